package i18n

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"log/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type storeStub struct {
	value   string
	saved   []string
	loadErr error
	saveErr error
}

func (s *storeStub) Load() (string, error) {
	return s.value, s.loadErr
}

func (s *storeStub) Save(value string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, value)
	return nil
}

func TestNewStateDefaultsForInvalidStoredValues(t *testing.T) {
	for _, stored := range []string{"", "klingon", "ENGLISH", "setswana "} {
		state, err := NewState(&storeStub{value: stored}, discardLogger())
		if err != nil {
			t.Fatalf("stored %q: NewState returned error: %v", stored, err)
		}
		if state.Language() != English {
			t.Fatalf("stored %q: expected english, got %q", stored, state.Language())
		}
	}
}

func TestNewStateHonorsValidStoredValue(t *testing.T) {
	state, err := NewState(&storeStub{value: "setswana"}, discardLogger())
	if err != nil {
		t.Fatalf("NewState returned error: %v", err)
	}
	if state.Language() != Setswana {
		t.Fatalf("expected setswana, got %q", state.Language())
	}
}

func TestSetPersistsEveryChange(t *testing.T) {
	store := &storeStub{}
	state, err := NewState(store, discardLogger())
	if err != nil {
		t.Fatalf("NewState returned error: %v", err)
	}

	if _, err := state.Set("setswana"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if _, err := state.Set("english"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	if len(store.saved) != 2 || store.saved[0] != "setswana" || store.saved[1] != "english" {
		t.Fatalf("unexpected persisted values: %v", store.saved)
	}
}

func TestSetRejectsUnrecognizedValues(t *testing.T) {
	store := &storeStub{}
	state, err := NewState(store, discardLogger())
	if err != nil {
		t.Fatalf("NewState returned error: %v", err)
	}

	if _, err := state.Set("klingon"); err == nil {
		t.Fatal("expected error for unrecognized language")
	}
	if len(store.saved) != 0 {
		t.Fatalf("expected no persisted value, got %v", store.saved)
	}
	if state.Language() != English {
		t.Fatalf("expected language unchanged, got %q", state.Language())
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preferred_language.json")
	store := NewFileStore(path)

	value, err := store.Load()
	if err != nil {
		t.Fatalf("Load on missing file returned error: %v", err)
	}
	if value != "" {
		t.Fatalf("expected absent value for missing file, got %q", value)
	}

	if err := store.Save("setswana"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	value, err = store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if value != "setswana" {
		t.Fatalf("expected setswana, got %q", value)
	}
}

func TestFileStoreTreatsCorruptFileAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferred_language.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	value, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if value != "" {
		t.Fatalf("expected absent value for corrupt file, got %q", value)
	}
}
