package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	errs "lsexport/pkg/errors"
	"lsexport/pkg/logger"
)

// CheckpointFile is the name of the per-session progress document
const CheckpointFile = "checkpoint.json"

// ErrNotFound is returned by Load when no checkpoint exists
var ErrNotFound = errors.New("checkpoint not found")

// SessionStatus is the lifecycle state of a whole export run
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAborted    SessionStatus = "aborted"
)

// EndpointStatus is the lifecycle state of one endpoint within a session
type EndpointStatus string

const (
	EndpointPending    EndpointStatus = "pending"
	EndpointInProgress EndpointStatus = "in_progress"
	EndpointCompleted  EndpointStatus = "completed"
	EndpointFailed     EndpointStatus = "failed"
)

// EndpointProgress tracks per-endpoint export progress. Mutated only through
// the Store so that every change is durably persisted.
type EndpointProgress struct {
	Name           string         `json:"name"`
	Status         EndpointStatus `json:"status"`
	Cursor         string         `json:"cursor"`
	RecordsWritten int            `json:"records_written"`
	Pages          int            `json:"pages"`
	Failure        string         `json:"failure,omitempty"`
	FailureType    string         `json:"failure_type,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Session is the durable record of one export run
type Session struct {
	ID          string              `json:"id"`
	Status      SessionStatus       `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Endpoints   []*EndpointProgress `json:"endpoints"`
	Version     int                 `json:"version"`
}

// Endpoint returns the progress entry for the named endpoint, or nil
func (s *Session) Endpoint(name string) *EndpointProgress {
	for _, ep := range s.Endpoints {
		if ep.Name == name {
			return ep
		}
	}
	return nil
}

// CountByStatus returns how many endpoints are in the given state
func (s *Session) CountByStatus(status EndpointStatus) int {
	n := 0
	for _, ep := range s.Endpoints {
		if ep.Status == status {
			n++
		}
	}
	return n
}

// FailedEndpoints returns the names of endpoints that ended in failure
func (s *Session) FailedEndpoints() []string {
	var names []string
	for _, ep := range s.Endpoints {
		if ep.Status == EndpointFailed {
			names = append(names, ep.Name)
		}
	}
	return names
}

// TotalRecords returns the sum of records written across endpoints
func (s *Session) TotalRecords() int {
	n := 0
	for _, ep := range s.Endpoints {
		n += ep.RecordsWritten
	}
	return n
}

// Summary renders a human-readable checkpoint status report
func (s *Session) Summary() string {
	out := "Checkpoint status:\n"
	out += fmt.Sprintf("  Session:   %s (%s)\n", s.ID, s.Status)
	out += fmt.Sprintf("  Started:   %s\n", s.StartedAt.Format(time.RFC3339))
	out += fmt.Sprintf("  Completed: %d endpoints\n", s.CountByStatus(EndpointCompleted))
	out += fmt.Sprintf("  Failed:    %d endpoints\n", s.CountByStatus(EndpointFailed))
	out += fmt.Sprintf("  Records:   %d\n", s.TotalRecords())

	for _, ep := range s.Endpoints {
		if ep.Status == EndpointInProgress {
			out += fmt.Sprintf("  In flight: %s (cursor %q, %d records)\n", ep.Name, ep.Cursor, ep.RecordsWritten)
		}
	}
	return out
}

// Store persists session progress to the session directory. Every mutating
// call is durably flushed (write, fsync, atomic rename) before returning, so
// process termination immediately after a call leaves a resumable state.
type Store struct {
	dir    string
	path   string
	logger logger.Logger
}

// NewStore creates a checkpoint store rooted at the session directory
func NewStore(sessionDir string) *Store {
	return &Store{
		dir:    sessionDir,
		path:   filepath.Join(sessionDir, CheckpointFile),
		logger: logger.GetLogger(),
	}
}

// Dir returns the session directory the store persists into
func (st *Store) Dir() string {
	return st.dir
}

// Exists checks whether a checkpoint file is present
func (st *Store) Exists() bool {
	_, err := os.Stat(st.path)
	return err == nil
}

// Create initializes a new session with all endpoints pending and persists it
func (st *Store) Create(sessionID string, endpoints []string) (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:        sessionID,
		Status:    SessionInProgress,
		StartedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	seen := make(map[string]bool, len(endpoints))
	for _, name := range endpoints {
		if seen[name] {
			return nil, fmt.Errorf("duplicate endpoint %q in export list", name)
		}
		seen[name] = true
		s.Endpoints = append(s.Endpoints, &EndpointProgress{
			Name:      name,
			Status:    EndpointPending,
			UpdatedAt: now,
		})
	}

	if err := os.MkdirAll(st.dir, 0755); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to create session directory")
	}
	if err := st.Save(s); err != nil {
		return nil, err
	}

	st.logger.InfoWithFields("checkpoint created", map[string]interface{}{
		"session":   sessionID,
		"endpoints": len(endpoints),
		"path":      st.path,
	})
	return s, nil
}

// Load reads the persisted session, or ErrNotFound
func (st *Store) Load() (*Session, error) {
	file, err := os.Open(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to open checkpoint")
	}
	defer file.Close()

	var s Session
	if err := json.NewDecoder(file).Decode(&s); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to decode checkpoint")
	}

	st.logger.InfoWithFields("checkpoint loaded", map[string]interface{}{
		"session":   s.ID,
		"status":    string(s.Status),
		"completed": s.CountByStatus(EndpointCompleted),
		"records":   s.TotalRecords(),
	})
	return &s, nil
}

// RecordPage advances an endpoint's cursor after a page append and persists.
// records_written only ever grows within a session.
func (st *Store) RecordPage(s *Session, endpoint, cursor string, recordsAppended int) error {
	ep := s.Endpoint(endpoint)
	if ep == nil {
		return fmt.Errorf("unknown endpoint %q in session %s", endpoint, s.ID)
	}
	if recordsAppended < 0 {
		return fmt.Errorf("negative record count for endpoint %q", endpoint)
	}

	ep.Status = EndpointInProgress
	ep.Cursor = cursor
	ep.RecordsWritten += recordsAppended
	ep.Pages++
	ep.UpdatedAt = time.Now()
	return st.Save(s)
}

// MarkEndpointComplete transitions an endpoint to completed and persists
func (st *Store) MarkEndpointComplete(s *Session, endpoint string) error {
	ep := s.Endpoint(endpoint)
	if ep == nil {
		return fmt.Errorf("unknown endpoint %q in session %s", endpoint, s.ID)
	}
	ep.Status = EndpointCompleted
	ep.Cursor = ""
	ep.Failure = ""
	ep.UpdatedAt = time.Now()

	if err := st.Save(s); err != nil {
		return err
	}
	st.logger.InfoWithFields("endpoint completed", map[string]interface{}{
		"session":  s.ID,
		"endpoint": endpoint,
		"records":  ep.RecordsWritten,
	})
	return nil
}

// MarkEndpointFailed transitions an endpoint to failed and persists.
// The failure type keeps the error classification available across resumes.
func (st *Store) MarkEndpointFailed(s *Session, endpoint, reason, failureType string) error {
	ep := s.Endpoint(endpoint)
	if ep == nil {
		return fmt.Errorf("unknown endpoint %q in session %s", endpoint, s.ID)
	}
	ep.Status = EndpointFailed
	ep.Failure = reason
	ep.FailureType = failureType
	ep.UpdatedAt = time.Now()
	return st.Save(s)
}

// MarkSessionComplete finishes the session and persists
func (st *Store) MarkSessionComplete(s *Session) error {
	now := time.Now()
	s.Status = SessionCompleted
	s.CompletedAt = &now
	return st.Save(s)
}

// MarkSessionAborted records a fatal, non-resumable end of the session
func (st *Store) MarkSessionAborted(s *Session) error {
	s.Status = SessionAborted
	return st.Save(s)
}

// Save writes the session document atomically: encode to a temp file in the
// same directory, fsync, then rename over the old document. A reader never
// observes a partially written checkpoint.
func (st *Store) Save(s *Session) error {
	s.UpdatedAt = time.Now()

	tempPath := st.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to create temporary checkpoint")
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to encode checkpoint")
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to sync checkpoint")
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to close checkpoint")
	}

	if err := os.Rename(tempPath, st.path); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypeStoreIO, err, "failed to replace checkpoint")
	}

	return nil
}
