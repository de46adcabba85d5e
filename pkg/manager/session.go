package manager

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/entrhq/webext/pkg/bridge"
	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/surface"
)

// Session binds one rendering surface to the manager. It is the
// extension.Page handed to extension hooks.
type Session struct {
	id      string
	manager *Manager
	surface surface.Surface
	events  surface.NavigationObserver

	mu       sync.Mutex
	prepared string // URL the registered scripts were prepared for
}

// NewSession attaches manager to s: navigation callbacks become extension
// events and bridge messages from the page reach the manager.
func (m *Manager) NewSession(s surface.Surface) (*Session, error) {
	session := &Session{
		id:      uuid.NewString(),
		manager: m,
		surface: s,
	}
	session.events = m.Observer(session)

	if err := s.AddMessageHandler(bridge.HandlerName, func(payload interface{}) {
		// Errors are logged by the dispatcher.
		_ = m.HandleMessage(payload)
	}); err != nil {
		return nil, fmt.Errorf("failed to expose bridge handler: %w", err)
	}
	s.SetObserver(session)

	debugLog.Infof("Session %s attached", session.id)
	return session, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// URL returns the URL the surface shows.
func (s *Session) URL() string {
	return s.surface.URL()
}

// Surface returns the underlying rendering surface.
func (s *Session) Surface() surface.Surface {
	return s.surface
}

// Navigate prepares extension scripts for url and loads it.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.prepare(url)
	if err := s.surface.Load(ctx, url); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

// Reload prepares scripts again, picking up extension state changes, and
// reloads the current page.
func (s *Session) Reload() error {
	return s.ReloadContext(context.Background())
}

// ReloadContext is Reload bounded by ctx.
func (s *Session) ReloadContext(ctx context.Context) error {
	if url := s.surface.URL(); url != "" {
		s.prepare(url)
	}
	if err := s.surface.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	return nil
}

// SendCommand delivers command to the page-side listener of extensionID.
// Delivery is not acknowledged.
func (s *Session) SendCommand(extensionID, command string, payload map[string]interface{}) error {
	script, err := bridge.CommandScript(extensionID, command, payload)
	if err != nil {
		return err
	}
	if _, err := s.surface.EvaluateJavaScript(context.Background(), script); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", command, extensionID, err)
	}
	return nil
}

// ToolbarItems returns the toolbar items for the current page.
func (s *Session) ToolbarItems() []ToolbarEntry {
	return s.manager.ToolbarItems(s)
}

// ContextMenuItems returns the context-menu items for the current page.
func (s *Session) ContextMenuItems(selection string) []ContextMenuEntry {
	return s.manager.ContextMenuItems(s, selection)
}

// TapToolbarItem routes a toolbar tap on this page.
func (s *Session) TapToolbarItem(extensionID string) {
	s.manager.DispatchToolbarTap(extensionID, s)
}

// SelectContextMenuItem routes a context-menu selection on this page.
func (s *Session) SelectContextMenuItem(extensionID, itemID string) {
	s.manager.DispatchContextMenuSelection(extensionID, itemID, s)
}

func (s *Session) prepare(url string) {
	s.mu.Lock()
	s.prepared = url
	s.mu.Unlock()
	s.manager.PrepareContentForNavigation(s, s.surface, url)
}

// OnStart prepares scripts for navigations the session did not start
// itself, such as link clicks and redirects.
func (s *Session) OnStart(url string) {
	s.mu.Lock()
	stale := !sameDocument(s.prepared, url)
	s.mu.Unlock()

	if stale {
		s.prepare(url)
	}
	s.events.OnStart(url)
}

func (s *Session) OnFinish(state surface.NavigationState) {
	s.events.OnFinish(state)
}

func (s *Session) OnFail(url string, err error) {
	s.events.OnFail(url, err)
}

// sameDocument compares two URLs the way the engine reports them: scheme
// and host case, an empty root path and the fragment do not matter.
func sameDocument(a, b string) bool {
	return a == b || canonicalURL(a) == canonicalURL(b)
}

func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

var _ extension.Page = (*Session)(nil)
