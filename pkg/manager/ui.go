package manager

import (
	"strings"

	"github.com/entrhq/webext/pkg/bridge"
	"github.com/entrhq/webext/pkg/extension"
)

// ToolbarEntry is a toolbar item tagged with the extension that owns it.
type ToolbarEntry struct {
	ExtensionID string
	Item        extension.ToolbarItem
}

// ContextMenuEntry is a context-menu item tagged with the extension that
// owns it.
type ContextMenuEntry struct {
	ExtensionID string
	Item        extension.ContextMenuItem
}

// ToolbarItems collects the toolbar items of the extensions active on page.
func (m *Manager) ToolbarItems(page extension.Page) []ToolbarEntry {
	var entries []ToolbarEntry
	for _, ext := range m.activeFor(extension.HostFromURL(page.URL()), extension.CapIntegrateToolbar) {
		id := ext.Metadata().ID
		for _, item := range safeToolbarItems(ext, page) {
			entries = append(entries, ToolbarEntry{ExtensionID: id, Item: item})
		}
	}
	return entries
}

// ContextMenuItems collects the context-menu items of the extensions active
// on page. Items that need a selection are left out when selection is
// blank.
func (m *Manager) ContextMenuItems(page extension.Page, selection string) []ContextMenuEntry {
	hasSelection := strings.TrimSpace(selection) != ""

	var entries []ContextMenuEntry
	for _, ext := range m.activeFor(extension.HostFromURL(page.URL()), extension.CapIntegrateToolbar) {
		id := ext.Metadata().ID
		for _, item := range safeContextMenuItems(ext, page) {
			if item.RequiresSelection && !hasSelection {
				continue
			}
			entries = append(entries, ContextMenuEntry{ExtensionID: id, Item: item})
		}
	}
	return entries
}

// DispatchToolbarTap routes a toolbar tap to extensionID.
func (m *Manager) DispatchToolbarTap(extensionID string, page extension.Page) {
	ext, ok := m.Get(extensionID)
	if !ok {
		return
	}

	m.InvalidateScripts(extensionID)
	func() {
		defer recovered(extensionID, "OnToolbarItemTapped")
		ext.OnToolbarItemTapped(page)
	}()
	m.afterUIAction(extensionID)
}

// DispatchContextMenuSelection routes a context-menu selection to
// extensionID.
func (m *Manager) DispatchContextMenuSelection(extensionID, itemID string, page extension.Page) {
	ext, ok := m.Get(extensionID)
	if !ok {
		return
	}

	m.InvalidateScripts(extensionID)
	func() {
		defer recovered(extensionID, "OnContextMenuItemSelected")
		ext.OnContextMenuItemSelected(itemID, page)
	}()
	m.afterUIAction(extensionID)
}

// afterUIAction persists what a UI action changed. Scripts are invalidated
// both before the hook, for a reload the hook itself triggers, and after it.
func (m *Manager) afterUIAction(extensionID string) {
	m.InvalidateScripts(extensionID)
	if err := m.SavePreferences(extensionID); err != nil {
		debugLog.Warnf("%v", err)
	}
}

// HandleMessage is the host side of the messaging bridge. raw is whatever
// the page posted to bridge.HandlerName.
func (m *Manager) HandleMessage(raw interface{}) error {
	return m.dispatcher.Handle(raw)
}

// MessageStats reports how many bridge messages were delivered and dropped.
func (m *Manager) MessageStats() bridge.Stats {
	return m.dispatcher.Stats()
}

// receiver resolves bridge messages to installed, enabled extensions.
func (m *Manager) receiver(extensionID string) (bridge.Receiver, bool) {
	ext, ok := m.Get(extensionID)
	if !ok || !ext.Enabled() {
		return nil, false
	}
	return ext, true
}
