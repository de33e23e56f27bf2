package checkpoint

import (
	"os"
	"path/filepath"
	"sort"
)

// ResumableSession describes an incomplete export found under the output root
type ResumableSession struct {
	Dir     string
	Session *Session
}

// FindResumable scans the output root for session directories whose
// checkpoint is still in progress, newest first. Corrupt checkpoints are
// skipped rather than failing the scan.
func FindResumable(outputRoot string) ([]ResumableSession, error) {
	entries, err := os.ReadDir(outputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var found []ResumableSession
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(outputRoot, entry.Name())
		store := NewStore(dir)
		if !store.Exists() {
			continue
		}
		s, err := store.Load()
		if err != nil {
			continue
		}
		if s.Status == SessionInProgress {
			found = append(found, ResumableSession{Dir: dir, Session: s})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return filepath.Base(found[i].Dir) > filepath.Base(found[j].Dir)
	})
	return found, nil
}
