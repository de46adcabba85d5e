package config

import (
	"fmt"
	"strings"
	"sync"
)

// SectionIDExtensions is the identifier for the installed-extensions section
const SectionIDExtensions = "extensions"

// ExtensionsSection records which extensions are installed, in install
// order, and which of them the user enabled or disabled.
type ExtensionsSection struct {
	mu        sync.RWMutex
	installed []string
	enabled   map[string]bool
}

// NewExtensionsSection creates an empty section.
func NewExtensionsSection() *ExtensionsSection {
	return &ExtensionsSection{enabled: make(map[string]bool)}
}

// ID returns the section identifier.
func (s *ExtensionsSection) ID() string {
	return SectionIDExtensions
}

// Title returns the section title.
func (s *ExtensionsSection) Title() string {
	return "Extensions"
}

// Description returns the section description.
func (s *ExtensionsSection) Description() string {
	return "Installed extensions in install order and their enabled state"
}

// Data returns the current configuration data.
func (s *ExtensionsSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	installed := make([]interface{}, len(s.installed))
	for i, id := range s.installed {
		installed[i] = id
	}
	enabled := make(map[string]interface{}, len(s.enabled))
	for id, on := range s.enabled {
		enabled[id] = on
	}

	return map[string]interface{}{
		"installed": installed,
		"enabled":   enabled,
	}
}

// SetData updates the configuration from the provided data.
func (s *ExtensionsSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	installed, err := StringSlice(data["installed"])
	if err != nil {
		return fmt.Errorf("invalid installed list: %w", err)
	}
	enabled, err := BoolMap(data["enabled"])
	if err != nil {
		return fmt.Errorf("invalid enabled map: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.installed = installed
	s.enabled = enabled
	return nil
}

// Validate rejects empty and duplicate ids.
func (s *ExtensionsSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.installed))
	for i, id := range s.installed {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("installed id at index %d is empty", i)
		}
		if seen[id] {
			return fmt.Errorf("extension %q listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

// Reset clears both lists.
func (s *ExtensionsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installed = nil
	s.enabled = make(map[string]bool)
}

// Installed returns a copy of the installed ids.
func (s *ExtensionsSection) Installed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.installed))
	copy(out, s.installed)
	return out
}

// SetInstalled replaces the installed ids.
func (s *ExtensionsSection) SetInstalled(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installed = append([]string(nil), ids...)
}

// Enabled returns a copy of the enabled-state map.
func (s *ExtensionsSection) Enabled() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.enabled))
	for id, on := range s.enabled {
		out[id] = on
	}
	return out
}

// SetEnabled replaces the enabled-state map.
func (s *ExtensionsSection) SetEnabled(states map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = make(map[string]bool, len(states))
	for id, on := range states {
		s.enabled[id] = on
	}
}

// ExtensionStore persists extension manager state through a config
// Manager: the installed list and enabled flags live in the extensions
// section, each extension's preferences in its own section.
type ExtensionStore struct {
	manager *Manager
	section *ExtensionsSection
}

// NewExtensionStore wires an ExtensionStore to manager, registering the
// extensions section if it is not registered yet.
func NewExtensionStore(manager *Manager) (*ExtensionStore, error) {
	if existing, ok := manager.GetSection(SectionIDExtensions); ok {
		section, ok := existing.(*ExtensionsSection)
		if !ok {
			return nil, fmt.Errorf("section %q has unexpected type %T", SectionIDExtensions, existing)
		}
		return &ExtensionStore{manager: manager, section: section}, nil
	}

	section := NewExtensionsSection()
	if err := manager.RegisterSection(section); err != nil {
		return nil, err
	}
	if err := manager.LoadSection(section); err != nil {
		return nil, err
	}
	return &ExtensionStore{manager: manager, section: section}, nil
}

// LoadInstalled returns the persisted install order. found is false when
// nothing was ever persisted, which callers treat as a first run.
func (s *ExtensionStore) LoadInstalled() ([]string, bool, error) {
	if !s.manager.Store().HasSection(SectionIDExtensions) {
		return nil, false, nil
	}
	if err := s.manager.LoadSection(s.section); err != nil {
		return nil, false, err
	}
	return s.section.Installed(), true, nil
}

// SaveInstalled persists the install order.
func (s *ExtensionStore) SaveInstalled(ids []string) error {
	s.section.SetInstalled(ids)
	return s.manager.SaveSection(s.section)
}

// LoadEnabled returns the persisted enabled flags.
func (s *ExtensionStore) LoadEnabled() (map[string]bool, error) {
	if err := s.manager.LoadSection(s.section); err != nil {
		return nil, err
	}
	return s.section.Enabled(), nil
}

// SaveEnabled persists the enabled flags.
func (s *ExtensionStore) SaveEnabled(states map[string]bool) error {
	s.section.SetEnabled(states)
	return s.manager.SaveSection(s.section)
}

// LoadPreferences applies stored preferences to an extension's section.
func (s *ExtensionStore) LoadPreferences(section Section) error {
	return s.manager.LoadSection(section)
}

// SavePreferences writes an extension's preferences.
func (s *ExtensionStore) SavePreferences(section Section) error {
	return s.manager.SaveSection(section)
}
