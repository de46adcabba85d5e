// Package config persists webext settings: the installed-extension list,
// browser defaults, and each extension's own preference section.
package config

import (
	"sync"
)

var (
	// globalManager is the process configuration used by the CLI
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates the global configuration manager over a file store at
// configPath and loads the default sections. Calling it again replaces the
// previous manager.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager, err := newDefaultManager(store)
	if err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// InitializeEphemeral sets up the global manager over a MemoryStore seeded
// from the file at configPath, so a private session starts from the saved
// settings but never writes them back.
func InitializeEphemeral(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	seed, err := NewFileStore(configPath)
	if err != nil {
		return err
	}
	all, err := seed.GetAll()
	if err != nil {
		return err
	}

	store := NewMemoryStore()
	for id, data := range all {
		if err := store.SetSection(id, data); err != nil {
			return err
		}
	}

	manager, err := newDefaultManager(store)
	if err != nil {
		return err
	}

	globalManager = manager
	return nil
}

func newDefaultManager(store Store) (*Manager, error) {
	manager := NewManager(store)

	if err := manager.RegisterSection(NewExtensionsSection()); err != nil {
		return nil, err
	}
	if err := manager.RegisterSection(NewBrowserSection()); err != nil {
		return nil, err
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetBrowser returns the browser section from global config.
// Returns nil if config is not initialized.
func GetBrowser() *BrowserSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDBrowser)
	if !ok {
		return nil
	}

	browser, ok := section.(*BrowserSection)
	if !ok {
		return nil
	}
	return browser
}
