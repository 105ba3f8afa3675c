package credential

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFileStore_LoadMissing(t *testing.T) {
	s := NewFileStoreAt(filepath.Join(t.TempDir(), "credential"))

	_, err := s.Load()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewFileStoreAt(filepath.Join(t.TempDir(), "nested", "credential"))

	if err := s.Save("api-key-123"); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != "api-key-123" {
		t.Errorf("expected 'api-key-123', got %q", got)
	}
}

func TestFileStore_SaveReplacesPreviousValue(t *testing.T) {
	s := NewFileStoreAt(filepath.Join(t.TempDir(), "credential"))

	if err := s.Save("first"); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.Save("second"); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != "second" {
		t.Errorf("expected 'second', got %q", got)
	}
}

func TestFileStore_SaveEmptyRejected(t *testing.T) {
	s := NewFileStoreAt(filepath.Join(t.TempDir(), "credential"))

	if err := s.Save("  "); err == nil {
		t.Error("expected error saving empty credential")
	}
}

func TestFileStore_Delete(t *testing.T) {
	s := NewFileStoreAt(filepath.Join(t.TempDir(), "credential"))

	if err := s.Save("api-key"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := s.Load()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFileStore_DeleteMissingIsNoOp(t *testing.T) {
	s := NewFileStoreAt(filepath.Join(t.TempDir(), "credential"))

	if err := s.Delete(); err != nil {
		t.Errorf("expected no error deleting absent credential, got %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Errorf("expected no error on second delete, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("")

	if _, err := s.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Save("value"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load()
	if err != nil || got != "value" {
		t.Fatalf("load after save: got %q, %v", got, err)
	}

	if err := s.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
