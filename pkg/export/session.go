package export

import (
	"fmt"
	"path/filepath"
	"time"

	"lsexport/pkg/checkpoint"
	"lsexport/pkg/jsonl"
)

// sessionIDLayout names session directories by creation time
const sessionIDLayout = "20060102_150405"

// NewSessionID returns a timestamp-based session identifier
func NewSessionID(t time.Time) string {
	return t.Format(sessionIDLayout)
}

// CreateSession starts a fresh session directory under the output root with
// all endpoints pending.
func CreateSession(outputRoot string, endpoints []string) (*checkpoint.Store, *checkpoint.Session, *jsonl.Writer, error) {
	id := NewSessionID(time.Now())
	dir := filepath.Join(outputRoot, id)

	store := checkpoint.NewStore(dir)
	session, err := store.Create(id, endpoints)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	writer, err := jsonl.NewWriter(dir)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, session, writer, nil
}

// ResumeSession reopens an existing session directory
func ResumeSession(sessionDir string) (*checkpoint.Store, *checkpoint.Session, *jsonl.Writer, error) {
	store := checkpoint.NewStore(sessionDir)
	session, err := store.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load session from %s: %w", sessionDir, err)
	}
	if session.Status != checkpoint.SessionInProgress {
		return nil, nil, nil, fmt.Errorf("session %s is %s, nothing to resume", session.ID, session.Status)
	}

	writer, err := jsonl.NewWriter(sessionDir)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, session, writer, nil
}
