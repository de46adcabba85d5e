// Package userscript loads user-installed extensions from manifest
// directories under ~/.webext/extensions.
package userscript

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	debugLog = logging.MustLogger("userscript")
}

// DefaultDir returns ~/.webext/extensions.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".webext", "extensions"), nil
}

// Catalog discovers manifests in a directory. Each subdirectory holding an
// extension.yaml is one candidate; invalid candidates are skipped.
type Catalog struct {
	dir string

	mu        sync.RWMutex
	manifests map[string]*Manifest // extension id -> manifest
}

// NewCatalog creates a catalog over dir. Call Refresh to scan it.
func NewCatalog(dir string) *Catalog {
	return &Catalog{
		dir:       dir,
		manifests: make(map[string]*Manifest),
	}
}

// Dir is the scanned directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Refresh rescans the directory. When two directories declare the same id
// the higher semantic version wins.
func (c *Catalog) Refresh() error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create extensions directory: %w", err)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read extensions directory: %w", err)
	}

	found := make(map[string]*Manifest)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		manifestPath := filepath.Join(c.dir, entry.Name(), ManifestFile)
		if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
			continue
		}

		m, err := LoadManifest(manifestPath)
		if err != nil {
			debugLog.Warnf("Skipping extension in %s: %v", entry.Name(), err)
			continue
		}

		if existing, ok := found[m.ID]; ok {
			if !m.SemVer().GreaterThan(existing.SemVer()) {
				debugLog.Debugf("Keeping %s %s over %s", m.ID, existing.Version, m.Version)
				continue
			}
			debugLog.Debugf("Replacing %s %s with %s", m.ID, existing.Version, m.Version)
		}
		found[m.ID] = m
	}

	c.mu.Lock()
	c.manifests = found
	c.mu.Unlock()

	debugLog.Infof("Loaded %d user extension(s) from %s", len(found), c.dir)
	return nil
}

// Manifest returns the manifest registered under id.
func (c *Catalog) Manifest(id string) (*Manifest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.manifests[id]
	return m, ok
}

// Get builds a fresh extension instance for id.
func (c *Catalog) Get(id string) (*Extension, bool) {
	m, ok := c.Manifest(id)
	if !ok {
		return nil, false
	}
	return New(m), true
}

// IDs returns the catalogued ids in lexical order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.manifests))
	for id := range c.manifests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Extensions builds one instance per catalogued manifest, ordered by id.
func (c *Catalog) Extensions() []extension.Extension {
	ids := c.IDs()
	exts := make([]extension.Extension, 0, len(ids))
	for _, id := range ids {
		if ext, ok := c.Get(id); ok {
			exts = append(exts, ext)
		}
	}
	return exts
}

// Count returns the number of catalogued extensions.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.manifests)
}
