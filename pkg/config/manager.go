package config

import (
	"fmt"
	"sync"
)

// Section is one independently serialised block of settings. Extensions
// that own preferences implement it so the settings store can persist them.
type Section interface {
	// ID returns the key the section is stored under
	ID() string

	// Title returns a human readable name
	Title() string

	// Description returns a one-line summary
	Description() string

	// Data returns the current settings as JSON-compatible values
	Data() map[string]interface{}

	// SetData replaces settings from data; unknown keys are ignored
	SetData(data map[string]interface{}) error

	// Validate checks the current settings
	Validate() error

	// Reset restores defaults
	Reset()
}

// Manager owns a set of sections and moves them in and out of a Store.
type Manager struct {
	store    Store
	sections map[string]Section
	order    []string
	mu       sync.RWMutex
}

// NewManager creates a manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// RegisterSection adds a section. Registering the same id twice fails.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if id == "" {
		return fmt.Errorf("section id cannot be empty")
	}
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section %q already registered", id)
	}

	m.sections[id] = section
	m.order = append(m.order, id)
	return nil
}

// GetSection returns the section registered under id.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	section, ok := m.sections[id]
	return section, ok
}

// GetSections returns all sections in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sections := make([]Section, 0, len(m.order))
	for _, id := range m.order {
		sections = append(sections, m.sections[id])
	}
	return sections
}

// LoadAll reloads the store and applies stored data to every section.
// Sections without stored data keep their defaults.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}

	for _, section := range m.GetSections() {
		if err := m.LoadSection(section); err != nil {
			return err
		}
	}
	return nil
}

// LoadSection applies stored data to a single section, which need not be
// registered.
func (m *Manager) LoadSection(section Section) error {
	if !m.store.HasSection(section.ID()) {
		return nil
	}

	data, err := m.store.GetSection(section.ID())
	if err != nil {
		return fmt.Errorf("failed to read section %s: %w", section.ID(), err)
	}
	if err := section.SetData(data); err != nil {
		return fmt.Errorf("failed to apply section %s: %w", section.ID(), err)
	}
	return nil
}

// SaveAll validates and writes every registered section.
func (m *Manager) SaveAll() error {
	for _, section := range m.GetSections() {
		if err := section.Validate(); err != nil {
			return fmt.Errorf("validation failed for section %s: %w", section.ID(), err)
		}
		if err := m.store.SetSection(section.ID(), section.Data()); err != nil {
			return fmt.Errorf("failed to store section %s: %w", section.ID(), err)
		}
	}

	if err := m.store.Save(); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	return nil
}

// SaveSection validates and writes a single section, which need not be
// registered.
func (m *Manager) SaveSection(section Section) error {
	if err := section.Validate(); err != nil {
		return fmt.Errorf("validation failed for section %s: %w", section.ID(), err)
	}
	if err := m.store.SetSection(section.ID(), section.Data()); err != nil {
		return fmt.Errorf("failed to store section %s: %w", section.ID(), err)
	}
	if err := m.store.Save(); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	return nil
}

// ResetAll restores defaults on every registered section.
func (m *Manager) ResetAll() {
	for _, section := range m.GetSections() {
		section.Reset()
	}
}
