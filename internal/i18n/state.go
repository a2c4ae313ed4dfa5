package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"log/slog"
)

// Store persists the language preference between runs.
type Store interface {
	Load() (string, error)
	Save(value string) error
}

// State is the process-wide current-language holder. It initializes from its
// store, treating any unrecognized stored value as absent, and persists back
// on every change.
type State struct {
	mu      sync.RWMutex
	store   Store
	logger  *slog.Logger
	current Language
}

// NewState builds a State from the store's persisted value. A missing or
// invalid value defaults to english without failing.
func NewState(store Store, logger *slog.Logger) (*State, error) {
	stored, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("i18n: load language preference: %w", err)
	}

	lang, ok := ParseLanguage(stored)
	if !ok && stored != "" {
		logger.Warn("ignoring invalid stored language preference", "value", stored)
	}

	return &State{store: store, logger: logger, current: lang}, nil
}

// Language returns the current language.
func (s *State) Language() Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set switches the current language and persists it. Unrecognized values are
// rejected without touching the stored preference.
func (s *State) Set(value string) (Language, error) {
	lang, ok := ParseLanguage(value)
	if !ok {
		return s.Language(), fmt.Errorf("i18n: unrecognized language %q", value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(string(lang)); err != nil {
		return s.current, fmt.Errorf("i18n: persist language preference: %w", err)
	}
	s.current = lang
	return lang, nil
}

const preferenceKey = "preferredLanguage"

// FileStore keeps the preference in a single small JSON file, the service's
// stand-in for client-local storage.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored preference. A missing file reads as absent.
func (f *FileStore) Load() (string, error) {
	contents, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	var payload map[string]string
	if err := json.Unmarshal(contents, &payload); err != nil {
		// A corrupt file is treated like an invalid stored value.
		return "", nil
	}
	return payload[preferenceKey], nil
}

// Save writes the preference, creating parent directories as needed.
func (f *FileStore) Save(value string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}

	contents, err := json.Marshal(map[string]string{preferenceKey: value})
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, contents, 0o644)
}
