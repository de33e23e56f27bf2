package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lsexport/pkg/lightspeed"
	"lsexport/pkg/logger"
)

// exportedAtField is stamped onto every record on write, matching the
// metadata the downstream CSV conversion strips back off
const exportedAtField = "_exported_at"

// Writer appends records to one line-delimited JSON file per endpoint.
// File handles are opened in append mode and held for the session's
// lifetime; every page is flushed to disk before the checkpoint is advanced.
type Writer struct {
	dir    string
	files  map[string]*os.File
	logger logger.Logger
}

// NewWriter creates a writer rooted at the session directory
func NewWriter(sessionDir string) (*Writer, error) {
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Writer{
		dir:    sessionDir,
		files:  make(map[string]*os.File),
		logger: logger.GetLogger(),
	}, nil
}

// Path returns the output file path for an endpoint
func (w *Writer) Path(endpoint string) string {
	return filepath.Join(w.dir, endpoint+".jsonl")
}

// Append writes one page of records to the endpoint's file, in order, and
// syncs the file so the on-disk record count can be reconciled against the
// checkpoint after a crash. Returns the number of bytes written.
func (w *Writer) Append(endpoint string, records []lightspeed.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	file, err := w.file(endpoint)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	stamp := time.Now().UTC().Format(time.RFC3339)
	for _, record := range records {
		line := make(map[string]interface{}, len(record)+1)
		for k, v := range record {
			line[k] = v
		}
		line[exportedAtField] = stamp

		data, err := json.Marshal(line)
		if err != nil {
			return 0, fmt.Errorf("failed to encode record for %s: %w", endpoint, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	n, err := file.Write(buf.Bytes())
	if err != nil {
		return int64(n), fmt.Errorf("failed to append to %s: %w", w.Path(endpoint), err)
	}
	if err := file.Sync(); err != nil {
		return int64(n), fmt.Errorf("failed to sync %s: %w", w.Path(endpoint), err)
	}

	w.logger.DebugWithFields("page appended", map[string]interface{}{
		"endpoint": endpoint,
		"records":  len(records),
		"bytes":    n,
	})
	return int64(n), nil
}

// CountRecords counts the records already present in an endpoint's file.
// Missing file means zero.
func (w *Writer) CountRecords(endpoint string) (int, error) {
	file, err := os.Open(w.Path(endpoint))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			count++
		}
	}
	return count, scanner.Err()
}

// RecordIDs scans an endpoint's file and returns the identity keys of every
// record already written. Used once per resumed endpoint to drop duplicates
// when the last in-flight page is refetched.
func (w *Writer) RecordIDs(endpoint string) (map[string]struct{}, error) {
	file, err := os.Open(w.Path(endpoint))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	defer file.Close()

	ids := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record lightspeed.Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("corrupt record in %s: %w", w.Path(endpoint), err)
		}
		delete(record, exportedAtField)
		ids[record.Identity()] = struct{}{}
	}
	return ids, scanner.Err()
}

// Close closes all open endpoint files
func (w *Writer) Close() error {
	var firstErr error
	for endpoint, file := range w.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", w.Path(endpoint), err)
		}
		delete(w.files, endpoint)
	}
	return firstErr
}

func (w *Writer) file(endpoint string) (*os.File, error) {
	if file, ok := w.files[endpoint]; ok {
		return file, nil
	}
	file, err := os.OpenFile(w.Path(endpoint), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", w.Path(endpoint), err)
	}
	w.files[endpoint] = file
	return file, nil
}
