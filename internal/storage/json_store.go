package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/julianstephens/habitline/internal/constants"
)

// JSONFile is a Backend keeping every document in one JSON object on disk.
// Writes go to a temporary file that is renamed over the original.
type JSONFile struct {
	mu   sync.Mutex
	path string
	docs map[string]json.RawMessage
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{
		path: path,
	}
}

func (s *JSONFile) Init() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return s.read()
	}
	s.docs = make(map[string]json.RawMessage)
	return s.write()
}

func (s *JSONFile) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs != nil {
		return nil
	}
	return s.read()
}

func (s *JSONFile) read() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run '%s init' first", constants.AppName)
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	docs := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	s.docs = docs
	return nil
}

func (s *JSONFile) write() error {
	data, err := json.MarshalIndent(s.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set storage permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace storage: %w", err)
	}
	return nil
}

func (s *JSONFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	return nil
}

func (s *JSONFile) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs == nil {
		return nil, false, errors.New("storage not loaded")
	}
	doc, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), doc...), true, nil
}

func (s *JSONFile) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs == nil {
		return errors.New("storage not loaded")
	}
	if !json.Valid(value) {
		return fmt.Errorf("refusing to store invalid JSON under %s", key)
	}
	prev, had := s.docs[key]
	s.docs[key] = json.RawMessage(append([]byte(nil), value...))
	if err := s.write(); err != nil {
		if had {
			s.docs[key] = prev
		} else {
			delete(s.docs, key)
		}
		return err
	}
	return nil
}

func (s *JSONFile) GetConfigPath() string {
	return s.path
}
