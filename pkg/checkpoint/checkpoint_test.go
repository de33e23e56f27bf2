package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lsexport/pkg/logger"
)

func init() {
	logger.SetLogger(logger.NewTestLogger())
}

func TestStore(t *testing.T) {
	endpoints := []string{"outlets", "products", "sales"}

	t.Run("CreateAndLoad", func(t *testing.T) {
		store := NewStore(t.TempDir())

		s, err := store.Create("20260828_120000", endpoints)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if s.Status != SessionInProgress {
			t.Errorf("Expected status in_progress, got %s", s.Status)
		}
		if len(s.Endpoints) != 3 {
			t.Fatalf("Expected 3 endpoints, got %d", len(s.Endpoints))
		}
		for _, ep := range s.Endpoints {
			if ep.Status != EndpointPending {
				t.Errorf("Endpoint %s: expected pending, got %s", ep.Name, ep.Status)
			}
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.ID != "20260828_120000" {
			t.Errorf("Expected session ID 20260828_120000, got %s", loaded.ID)
		}
		if len(loaded.Endpoints) != 3 {
			t.Errorf("Expected 3 endpoints after load, got %d", len(loaded.Endpoints))
		}
	})

	t.Run("DuplicateEndpointRejected", func(t *testing.T) {
		store := NewStore(t.TempDir())
		_, err := store.Create("s1", []string{"outlets", "outlets"})
		if err == nil {
			t.Fatal("Expected error for duplicate endpoint")
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		store := NewStore(t.TempDir())
		_, err := store.Load()
		if err != ErrNotFound {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RecordPage", func(t *testing.T) {
		store := NewStore(t.TempDir())
		s, err := store.Create("s1", endpoints)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if err := store.RecordPage(s, "products", "2", 200); err != nil {
			t.Fatalf("Failed to record page: %v", err)
		}
		if err := store.RecordPage(s, "products", "3", 150); err != nil {
			t.Fatalf("Failed to record page: %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		ep := loaded.Endpoint("products")
		if ep == nil {
			t.Fatal("Expected products endpoint")
		}
		if ep.Status != EndpointInProgress {
			t.Errorf("Expected in_progress, got %s", ep.Status)
		}
		if ep.Cursor != "3" {
			t.Errorf("Expected cursor 3, got %s", ep.Cursor)
		}
		if ep.RecordsWritten != 350 {
			t.Errorf("Expected 350 records, got %d", ep.RecordsWritten)
		}
		if ep.Pages != 2 {
			t.Errorf("Expected 2 pages, got %d", ep.Pages)
		}
	})

	t.Run("RecordPageUnknownEndpoint", func(t *testing.T) {
		store := NewStore(t.TempDir())
		s, _ := store.Create("s1", endpoints)
		if err := store.RecordPage(s, "nonexistent", "2", 10); err == nil {
			t.Error("Expected error for unknown endpoint")
		}
	})

	t.Run("MarkEndpointComplete", func(t *testing.T) {
		store := NewStore(t.TempDir())
		s, _ := store.Create("s1", endpoints)

		store.RecordPage(s, "outlets", "2", 5)
		if err := store.MarkEndpointComplete(s, "outlets"); err != nil {
			t.Fatalf("Failed to mark complete: %v", err)
		}

		loaded, _ := store.Load()
		ep := loaded.Endpoint("outlets")
		if ep.Status != EndpointCompleted {
			t.Errorf("Expected completed, got %s", ep.Status)
		}
		if ep.Cursor != "" {
			t.Errorf("Expected cleared cursor, got %q", ep.Cursor)
		}
		if ep.RecordsWritten != 5 {
			t.Errorf("Record count must survive completion, got %d", ep.RecordsWritten)
		}
	})

	t.Run("MarkEndpointFailed", func(t *testing.T) {
		store := NewStore(t.TempDir())
		s, _ := store.Create("s1", endpoints)

		if err := store.MarkEndpointFailed(s, "sales", "rate limit exceeded", "rate_limit"); err != nil {
			t.Fatalf("Failed to mark failed: %v", err)
		}

		loaded, _ := store.Load()
		ep := loaded.Endpoint("sales")
		if ep.Status != EndpointFailed {
			t.Errorf("Expected failed, got %s", ep.Status)
		}
		if ep.Failure != "rate limit exceeded" {
			t.Errorf("Expected failure reason, got %q", ep.Failure)
		}
		if ep.FailureType != "rate_limit" {
			t.Errorf("Expected failure type rate_limit, got %q", ep.FailureType)
		}
	})

	t.Run("SessionLifecycle", func(t *testing.T) {
		store := NewStore(t.TempDir())
		s, _ := store.Create("s1", endpoints)

		if err := store.MarkSessionComplete(s); err != nil {
			t.Fatalf("Failed to complete session: %v", err)
		}
		loaded, _ := store.Load()
		if loaded.Status != SessionCompleted {
			t.Errorf("Expected completed, got %s", loaded.Status)
		}
		if loaded.CompletedAt == nil {
			t.Error("Expected completion timestamp")
		}
	})

	t.Run("SaveIsAtomic", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)
		s, _ := store.Create("s1", endpoints)
		store.RecordPage(s, "outlets", "2", 10)

		// No temp file left behind after a save
		if _, err := os.Stat(filepath.Join(dir, CheckpointFile+".tmp")); !os.IsNotExist(err) {
			t.Error("Temporary checkpoint file left behind")
		}
	})
}

func TestSessionHelpers(t *testing.T) {
	s := &Session{
		ID:     "s1",
		Status: SessionInProgress,
		Endpoints: []*EndpointProgress{
			{Name: "outlets", Status: EndpointCompleted, RecordsWritten: 3},
			{Name: "products", Status: EndpointInProgress, Cursor: "7", RecordsWritten: 1200},
			{Name: "sales", Status: EndpointFailed, Failure: "server error"},
			{Name: "customers", Status: EndpointPending},
		},
	}

	if got := s.CountByStatus(EndpointCompleted); got != 1 {
		t.Errorf("CountByStatus(completed) = %d, want 1", got)
	}
	if got := s.TotalRecords(); got != 1203 {
		t.Errorf("TotalRecords() = %d, want 1203", got)
	}
	failed := s.FailedEndpoints()
	if len(failed) != 1 || failed[0] != "sales" {
		t.Errorf("FailedEndpoints() = %v, want [sales]", failed)
	}
	if s.Endpoint("nope") != nil {
		t.Error("Endpoint() should return nil for unknown name")
	}
	summary := s.Summary()
	if summary == "" {
		t.Error("Summary() should not be empty")
	}
}

func TestFindResumable(t *testing.T) {
	root := t.TempDir()

	mkSession := func(id string, status SessionStatus) {
		dir := filepath.Join(root, id)
		store := NewStore(dir)
		s, err := store.Create(id, []string{"outlets"})
		if err != nil {
			t.Fatalf("Failed to create session %s: %v", id, err)
		}
		if status == SessionCompleted {
			if err := store.MarkSessionComplete(s); err != nil {
				t.Fatalf("Failed to complete session %s: %v", id, err)
			}
		}
	}

	mkSession("20260826_080000", SessionCompleted)
	mkSession("20260827_090000", SessionInProgress)
	mkSession("20260828_100000", SessionInProgress)

	// A directory without a checkpoint is ignored
	os.MkdirAll(filepath.Join(root, "not_a_session"), 0755)

	found, err := FindResumable(root)
	if err != nil {
		t.Fatalf("FindResumable failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Expected 2 resumable sessions, got %d", len(found))
	}
	// Newest first
	if found[0].Session.ID != "20260828_100000" {
		t.Errorf("Expected newest session first, got %s", found[0].Session.ID)
	}

	t.Run("MissingRoot", func(t *testing.T) {
		found, err := FindResumable(filepath.Join(root, "does_not_exist"))
		if err != nil {
			t.Fatalf("Missing root must not error: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("Expected no sessions, got %d", len(found))
		}
	})
}

func TestUpdatedAtAdvances(t *testing.T) {
	store := NewStore(t.TempDir())
	s, _ := store.Create("s1", []string{"outlets"})

	before := s.UpdatedAt
	time.Sleep(10 * time.Millisecond)
	store.RecordPage(s, "outlets", "2", 1)

	if !s.UpdatedAt.After(before) {
		t.Error("UpdatedAt should advance on save")
	}
}
