// Package useragent rewrites the User-Agent header per site or globally.
package useragent

import (
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/entrhq/webext/pkg/config"
	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/logging"
)

const (
	ID          = "user-agent"
	ResetItemID = "user-agent.reset"

	presetPrefix  = "user-agent.preset."
	preferenceKey = "ext." + ID
	headerName    = "User-Agent"
)

var debugLog *logging.Logger

func init() {
	debugLog = logging.MustLogger(ID)
}

// Spoofer is the user-agent extension. Per-domain overrides win over the
// global setting; with neither, requests pass through.
type Spoofer struct {
	*extension.Base

	mu        sync.RWMutex
	global    string            // preset name or raw UA, empty when unset
	overrides map[string]string // domain -> preset name or raw UA
}

// New returns an enabled spoofer with nothing configured.
func New() *Spoofer {
	return &Spoofer{
		Base: extension.NewBase(extension.Metadata{
			ID:          ID,
			Name:        "User-Agent Switcher",
			Version:     "1.0.0",
			Author:      "webext",
			Description: "Presents a different browser identity to sites",
			Category:    extension.CategoryDeveloper,
			Icon:        "id-card",
			Permissions: []extension.Permission{extension.PermUserAgent},
			Capabilities: []extension.Capability{
				extension.CapModifyRequests,
				extension.CapModifyHeaders,
				extension.CapIntegrateToolbar,
			},
		}, extension.Always()),
		overrides: make(map[string]string),
	}
}

// SetGlobal sets the global identity to a preset name or raw string.
func (s *Spoofer) SetGlobal(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = strings.TrimSpace(value)
}

// ClearGlobal removes the global identity.
func (s *Spoofer) ClearGlobal() {
	s.SetGlobal("")
}

// Global returns the configured global value as entered.
func (s *Spoofer) Global() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}

// SetOverride sets the identity for domain and its subdomains.
func (s *Spoofer) SetOverride(domain, value string) {
	domain = extension.NormalizeDomain(domain)
	if domain == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[domain] = strings.TrimSpace(value)
}

// RemoveOverride deletes the override for domain.
func (s *Spoofer) RemoveOverride(domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, extension.NormalizeDomain(domain))
}

// Overrides returns a copy of the per-domain table.
func (s *Spoofer) Overrides() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.overrides)
}

// ResolveUserAgent returns the identity for domain: the most specific
// override, else the global value.
func (s *Spoofer) ResolveUserAgent(domain string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.overrides))
	for k := range s.overrides {
		keys = append(keys, k)
	}
	if match, ok := extension.MostSpecificMatch(domain, keys); ok {
		if ua := resolve(s.overrides[match]); ua != "" {
			return ua, true
		}
	}
	if s.global != "" {
		return resolve(s.global), true
	}
	return "", false
}

func (s *Spoofer) ModifyRequest(req *extension.Request) *extension.Request {
	ua, ok := s.ResolveUserAgent(req.PageDomain())
	if !ok {
		return req
	}
	if current, has := req.Header(headerName); has && current == ua {
		return req
	}
	return req.WithHeader(headerName, ua)
}

func (s *Spoofer) ContextMenuItems(extension.Page) []extension.ContextMenuItem {
	global := resolve(s.Global())
	items := make([]extension.ContextMenuItem, 0, len(Presets)+1)
	for _, p := range Presets {
		title := "Browse as " + p.Name
		if global == p.UserAgent {
			title += " ✓"
		}
		items = append(items, extension.ContextMenuItem{ID: presetPrefix + p.Slug, Title: title})
	}
	return append(items, extension.ContextMenuItem{ID: ResetItemID, Title: "Use default user agent"})
}

func (s *Spoofer) OnContextMenuItemSelected(itemID string, page extension.Page) {
	switch {
	case itemID == ResetItemID:
		s.ClearGlobal()
	case strings.HasPrefix(itemID, presetPrefix):
		p, ok := LookupPreset(strings.TrimPrefix(itemID, presetPrefix))
		if !ok {
			debugLog.Warnf("Ignoring unknown preset item %s", itemID)
			return
		}
		s.SetGlobal(p.Name)
	default:
		return
	}

	if page != nil {
		if err := page.Reload(); err != nil {
			debugLog.Warnf("Reload after %s failed: %v", itemID, err)
		}
	}
}

// config.Section

func (s *Spoofer) ID() string          { return preferenceKey }
func (s *Spoofer) Title() string       { return "User Agent" }
func (s *Spoofer) Description() string { return "Global and per-site browser identity" }

func (s *Spoofer) Data() map[string]interface{} {
	return map[string]interface{}{
		"global":    s.Global(),
		"overrides": s.Overrides(),
	}
}

func (s *Spoofer) SetData(data map[string]interface{}) error {
	global := s.Global()
	if v, ok := data["global"]; ok {
		str, isString := v.(string)
		if !isString {
			return fmt.Errorf("global: expected string, got %T", v)
		}
		global = str
	}

	overrides := s.Overrides()
	if v, ok := data["overrides"]; ok {
		m, err := config.StringMap(v)
		if err != nil {
			return fmt.Errorf("overrides: %w", err)
		}
		overrides = make(map[string]string, len(m))
		for domain, ua := range m {
			if d := extension.NormalizeDomain(domain); d != "" {
				overrides[d] = ua
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = strings.TrimSpace(global)
	s.overrides = overrides
	return nil
}

func (s *Spoofer) Validate() error {
	return nil
}

func (s *Spoofer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = ""
	s.overrides = make(map[string]string)
}
