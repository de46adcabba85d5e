// Package manager owns the installed extensions and mediates between them
// and live pages: script injection, the request pipeline, event fan-out,
// toolbar and context-menu aggregation and bridge messages.
//
// All registry mutation goes through the manager's lock. Extension hooks
// are always called without the lock held, so a hook may reload the page
// it was handed and re-enter the manager.
package manager

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/entrhq/webext/pkg/bridge"
	"github.com/entrhq/webext/pkg/builtin"
	"github.com/entrhq/webext/pkg/config"
	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/extension/userscript"
	"github.com/entrhq/webext/pkg/logging"
)

// DefaultEventTimeout bounds how long Notify waits on one extension.
const DefaultEventTimeout = 250 * time.Millisecond

// ErrUnknownExtension is returned by InstallByID for ids nothing provides.
var ErrUnknownExtension = errors.New("unknown extension")

var debugLog *logging.Logger

func init() {
	debugLog = logging.MustLogger("manager")
}

// Persistence stores which extensions are installed, whether each is
// enabled, and the preferences of extensions that keep any.
type Persistence interface {
	// LoadInstalled reports found == false when nothing was ever saved.
	LoadInstalled() (ids []string, found bool, err error)
	SaveInstalled(ids []string) error
	LoadEnabled() (map[string]bool, error)
	SaveEnabled(states map[string]bool) error
	LoadPreferences(section config.Section) error
	SavePreferences(section config.Section) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithUserCatalog makes user-installed extensions available.
func WithUserCatalog(catalog *userscript.Catalog) Option {
	return func(m *Manager) {
		m.catalog = catalog
	}
}

// WithEventTimeout sets how long Notify waits on each extension.
func WithEventTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.eventTimeout = timeout
		}
	}
}

// WithoutBuiltins skips the built-in catalog and default installs.
func WithoutBuiltins() Option {
	return func(m *Manager) {
		m.builtins = false
	}
}

// Manager is the extension registry.
type Manager struct {
	mu sync.RWMutex

	store        Persistence
	catalog      *userscript.Catalog
	builtins     bool
	eventTimeout time.Duration
	initialized  bool

	available []extension.Extension // registration order
	installed []extension.Extension // install order
	index     map[string]extension.Extension
	scripts   map[string]*scriptCache // per extension, keyed by URL

	dispatcher *bridge.Dispatcher
}

// New creates a manager persisting through store. Call Initialize before
// use.
func New(store Persistence, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		builtins:     true,
		eventTimeout: DefaultEventTimeout,
		index:        make(map[string]extension.Extension),
		scripts:      make(map[string]*scriptCache),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.dispatcher = bridge.NewDispatcher(m.receiver)
	return m
}

// Initialize registers the available extensions and restores the installed
// set. The first run installs builtin.DefaultInstalled. Calling it again is
// a no-op.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	m.initialized = true

	if m.builtins {
		for _, ext := range builtin.Catalog() {
			m.registerLocked(ext)
		}
	}
	if m.catalog != nil {
		if err := m.catalog.Refresh(); err != nil {
			debugLog.Warnf("User extensions unavailable: %v", err)
		}
		for _, ext := range m.catalog.Extensions() {
			m.registerLocked(ext)
		}
	}

	ids, found, err := m.store.LoadInstalled()
	if err != nil {
		debugLog.Warnf("Failed to load installed extensions, using defaults: %v", err)
		found = false
	}
	if !found {
		ids = nil
		if m.builtins {
			ids = slices.Clone(builtin.DefaultInstalled)
		}
	}

	enabled, err := m.store.LoadEnabled()
	if err != nil {
		debugLog.Warnf("Failed to load enabled states: %v", err)
		enabled = nil
	}

	for _, id := range ids {
		ext, ok := m.findAvailableLocked(id)
		if !ok {
			debugLog.Warnf("Skipping unknown installed extension %s", id)
			continue
		}
		if state, ok := enabled[id]; ok {
			ext.SetEnabled(state)
		}
		if err := m.installLocked(ext); err != nil {
			debugLog.Warnf("Failed to restore %s: %v", id, err)
		}
	}

	debugLog.Infof("Initialized with %d available, %d installed", len(m.available), len(m.installed))

	if !found {
		return m.persistInstalledLocked()
	}
	return nil
}

// Register makes ext available for installation. A second registration of
// the same id is ignored.
func (m *Manager) Register(ext extension.Extension) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerLocked(ext)
}

func (m *Manager) registerLocked(ext extension.Extension) {
	id := ext.Metadata().ID
	if _, exists := m.findAvailableLocked(id); exists {
		debugLog.Debugf("Ignoring duplicate registration of %s", id)
		return
	}
	m.available = append(m.available, ext)
}

func (m *Manager) findAvailableLocked(id string) (extension.Extension, bool) {
	return lo.Find(m.available, func(ext extension.Extension) bool { return ext.Metadata().ID == id })
}

// Install adds ext to the installed set, registering it if needed. An
// already installed id is a no-op. If Init fails the extension is not
// installed.
func (m *Manager) Install(ext extension.Extension) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := ext.Metadata().ID
	if _, ok := m.index[id]; ok {
		return nil
	}
	m.registerLocked(ext)
	if err := m.installLocked(ext); err != nil {
		return err
	}
	return m.persistInstalledLocked()
}

// InstallByID installs an available extension.
func (m *Manager) InstallByID(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[id]; ok {
		return nil
	}
	ext, ok := m.findAvailableLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExtension, id)
	}
	if err := m.installLocked(ext); err != nil {
		return err
	}
	return m.persistInstalledLocked()
}

// installLocked restores preferences, runs Init and indexes ext. Init must
// not call back into the manager.
func (m *Manager) installLocked(ext extension.Extension) error {
	id := ext.Metadata().ID
	if _, ok := m.index[id]; ok {
		return nil
	}

	if section, ok := ext.(config.Section); ok {
		if err := m.store.LoadPreferences(section); err != nil {
			debugLog.Warnf("Discarding stored preferences of %s: %v", id, err)
			section.Reset()
		}
	}

	if err := safeInit(ext); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", id, err)
	}

	m.installed = append(m.installed, ext)
	m.index[id] = ext
	debugLog.Infof("Installed %s", id)
	return nil
}

// Uninstall removes id, running its Cleanup hook. Unknown ids are ignored.
func (m *Manager) Uninstall(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ext, ok := m.index[id]
	if !ok {
		return nil
	}

	safeCleanup(ext)
	m.installed = slices.DeleteFunc(m.installed, func(e extension.Extension) bool { return e.Metadata().ID == id })
	delete(m.index, id)
	delete(m.scripts, id)

	debugLog.Infof("Uninstalled %s", id)
	return m.persistInstalledLocked()
}

// Toggle flips whether id is enabled. Unknown ids are ignored.
func (m *Manager) Toggle(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ext, ok := m.index[id]
	if !ok {
		return nil
	}
	return m.setEnabledLocked(ext, !ext.Enabled())
}

// SetEnabled enables or disables id. Unknown ids are ignored.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ext, ok := m.index[id]
	if !ok {
		return nil
	}
	return m.setEnabledLocked(ext, enabled)
}

func (m *Manager) setEnabledLocked(ext extension.Extension, enabled bool) error {
	id := ext.Metadata().ID
	ext.SetEnabled(enabled)
	delete(m.scripts, id)
	debugLog.Infof("Set %s enabled=%v", id, enabled)

	states := make(map[string]bool, len(m.installed))
	for _, e := range m.installed {
		states[e.Metadata().ID] = e.Enabled()
	}
	if err := m.store.SaveEnabled(states); err != nil {
		return fmt.Errorf("failed to persist enabled states: %w", err)
	}
	return nil
}

func (m *Manager) persistInstalledLocked() error {
	ids := lo.Map(m.installed, func(ext extension.Extension, _ int) string { return ext.Metadata().ID })
	if err := m.store.SaveInstalled(ids); err != nil {
		return fmt.Errorf("failed to persist installed extensions: %w", err)
	}
	return nil
}

// SavePreferences persists the preferences of id, if it keeps any.
func (m *Manager) SavePreferences(id string) error {
	ext, ok := m.Get(id)
	if !ok {
		return nil
	}
	section, ok := ext.(config.Section)
	if !ok {
		return nil
	}
	if err := m.store.SavePreferences(section); err != nil {
		return fmt.Errorf("failed to save preferences of %s: %w", id, err)
	}
	return nil
}

// Get returns the installed extension id.
func (m *Manager) Get(id string) (extension.Extension, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ext, ok := m.index[id]
	return ext, ok
}

// IsInstalled reports whether id is installed.
func (m *Manager) IsInstalled(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Installed returns the identity of every installed extension in install
// order.
func (m *Manager) Installed() []extension.Metadata {
	return metadataOf(m.snapshotInstalled())
}

// Available returns the identity of every registered extension.
func (m *Manager) Available() []extension.Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return metadataOf(m.available)
}

func (m *Manager) snapshotInstalled() []extension.Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.installed)
}

func metadataOf(exts []extension.Extension) []extension.Metadata {
	return lo.Map(exts, func(ext extension.Extension, _ int) extension.Metadata { return ext.Metadata() })
}

// activeFor returns the installed extensions that are enabled, active for
// domain and declare any of caps. Pages without a host (about:blank, file:
// and data: URLs) have an empty domain, which only rules that permit every
// domain accept.
func (m *Manager) activeFor(domain string, caps ...extension.Capability) []extension.Extension {
	return lo.Filter(m.snapshotInstalled(), func(ext extension.Extension, _ int) bool {
		if len(caps) > 0 {
			meta := ext.Metadata()
			if !lo.SomeBy(caps, meta.Has) {
				return false
			}
		}
		return ext.Enabled() && safeActive(ext, domain)
	})
}

// enabled returns every enabled installed extension, whatever its
// activation rule.
func (m *Manager) enabled() []extension.Extension {
	return lo.Filter(m.snapshotInstalled(), func(ext extension.Extension, _ int) bool {
		return ext.Enabled()
	})
}
