package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// storeVersion is written into every config file.
const storeVersion = "1"

// Store persists section data keyed by section id.
type Store interface {
	// Load reads persisted data, replacing what is held in memory
	Load() error

	// Save writes the in-memory data to its backing medium
	Save() error

	// HasSection reports whether data was ever stored for sectionID
	HasSection(sectionID string) bool

	// GetSection returns a copy of the data for sectionID (empty if absent)
	GetSection(sectionID string) (map[string]interface{}, error)

	// SetSection replaces the data for sectionID
	SetSection(sectionID string, data map[string]interface{}) error

	// GetAll returns a deep copy of all section data
	GetAll() (map[string]map[string]interface{}, error)
}

// fileFormat is the on-disk layout of a FileStore.
type fileFormat struct {
	Version  string                            `json:"version"`
	Sections map[string]map[string]interface{} `json:"sections"`
}

// FileStore implements Store on top of a JSON file.
type FileStore struct {
	path     string
	data     map[string]map[string]interface{}
	mu       sync.RWMutex
	version  string
	modified bool
}

// DefaultPath returns ~/.webext/config.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".webext", "config.json"), nil
}

// NewFileStore creates a file store at path, loading it if it exists.
// An empty path selects DefaultPath.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	store := &FileStore{
		path:    path,
		data:    make(map[string]map[string]interface{}),
		version: storeVersion,
	}

	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return store, nil
}

// Load loads the configuration from disk. A missing file yields empty data.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]map[string]interface{})
			return nil
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg fileFormat
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	if cfg.Version != "" {
		s.version = cfg.Version
	}
	s.data = cfg.Sections
	if s.data == nil {
		s.data = make(map[string]map[string]interface{})
	}
	s.modified = false
	return nil
}

// Save writes the configuration through a temp file and an atomic rename.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fileFormat{Version: s.version, Sections: s.data}); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.modified = false
	return nil
}

// HasSection reports whether sectionID has stored data.
func (s *FileStore) HasSection(sectionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[sectionID]
	return ok
}

// GetSection returns a copy of the data for sectionID.
func (s *FileStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySection(s.data[sectionID]), nil
}

// SetSection stores a copy of data under sectionID.
func (s *FileStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sectionID] = copySection(data)
	s.modified = true
	return nil
}

// GetAll returns a deep copy of all sections.
func (s *FileStore) GetAll() (map[string]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[string]map[string]interface{}, len(s.data))
	for id, section := range s.data {
		all[id] = copySection(section)
	}
	return all, nil
}

// IsModified returns true if the store has unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// MemoryStore is a Store that never touches disk. Private browsing sessions
// use it so nothing they change outlives the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]interface{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]interface{})}
}

// Load is a no-op.
func (s *MemoryStore) Load() error { return nil }

// Save is a no-op.
func (s *MemoryStore) Save() error { return nil }

// HasSection reports whether sectionID has stored data.
func (s *MemoryStore) HasSection(sectionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[sectionID]
	return ok
}

// GetSection returns a copy of the data for sectionID.
func (s *MemoryStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySection(s.data[sectionID]), nil
}

// SetSection stores a copy of data under sectionID.
func (s *MemoryStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sectionID] = copySection(data)
	return nil
}

// GetAll returns a deep copy of all sections.
func (s *MemoryStore) GetAll() (map[string]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[string]map[string]interface{}, len(s.data))
	for id, section := range s.data {
		all[id] = copySection(section)
	}
	return all, nil
}

func copySection(data map[string]interface{}) map[string]interface{} {
	dataCopy := make(map[string]interface{}, len(data))
	for k, v := range data {
		dataCopy[k] = v
	}
	return dataCopy
}
