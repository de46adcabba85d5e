package extension

import (
	"slices"
	"sync"

	"github.com/gobwas/glob"
)

// Capability names a hook family the manager consults an extension for.
type Capability string

const (
	CapInjectScripts    Capability = "inject-scripts"
	CapModifyRequests   Capability = "modify-requests"
	CapModifyHeaders    Capability = "modify-headers"
	CapAccessUserData   Capability = "access-user-data"
	CapDisplayOverlay   Capability = "display-overlay"
	CapIntegrateToolbar Capability = "integrate-toolbar"
)

// Permission is a domain-sensitive right an extension declares.
type Permission string

const (
	PermAllURLs            Permission = "all-urls"
	PermWebRequest         Permission = "web-request"
	PermWebRequestBlocking Permission = "web-request-blocking"
	PermStorage            Permission = "storage"
	PermTabs               Permission = "tabs"
	PermContextMenus       Permission = "context-menus"
	PermUserAgent          Permission = "user-agent"
)

// Category groups extensions for display.
type Category string

const (
	CategoryPrivacy      Category = "privacy"
	CategoryAppearance   Category = "appearance"
	CategoryDeveloper    Category = "developer"
	CategoryProductivity Category = "productivity"
	CategoryOther        Category = "other"
)

// Metadata is the immutable identity of an extension.
type Metadata struct {
	ID           string
	Name         string
	Version      string
	Author       string
	Description  string
	Category     Category
	Icon         string
	Permissions  []Permission
	Capabilities []Capability
}

// Has reports whether the capability set contains c.
func (m Metadata) Has(c Capability) bool {
	return slices.Contains(m.Capabilities, c)
}

// HasPermission reports whether p was declared.
func (m Metadata) HasPermission(p Permission) bool {
	return slices.Contains(m.Permissions, p)
}

func (m Metadata) clone() Metadata {
	m.Permissions = slices.Clone(m.Permissions)
	m.Capabilities = slices.Clone(m.Capabilities)
	return m
}

// InjectionTiming is the point in the page lifecycle a script runs at.
type InjectionTiming string

const (
	TimingBeforeDocument InjectionTiming = "before-document"
	TimingAfterDocument  InjectionTiming = "after-document"
	TimingOnDOMReady     InjectionTiming = "on-dom-ready"
	TimingOnPageComplete InjectionTiming = "on-page-complete"
)

// AllTimings returns every injection timing in lifecycle order.
func AllTimings() []InjectionTiming {
	return []InjectionTiming{TimingBeforeDocument, TimingAfterDocument, TimingOnDOMReady, TimingOnPageComplete}
}

// Valid reports whether t is one of the four known timings.
func (t InjectionTiming) Valid() bool {
	return slices.Contains(AllTimings(), t)
}

// Script is a source blob to inject into matching pages.
type Script struct {
	Source string
	Timing InjectionTiming

	// URLPattern restricts the script to matching URLs; empty means all.
	// '*' matches any run of characters.
	URLPattern string

	MainFrameOnly bool
}

var patternCache sync.Map // pattern -> glob.Glob, or error

// AppliesTo reports whether the script targets url. A pattern that does
// not compile matches nothing.
func (s Script) AppliesTo(url string) bool {
	if s.URLPattern == "" {
		return true
	}
	g, err := compilePattern(s.URLPattern)
	if err != nil {
		return false
	}
	return g.Match(url)
}

// CompilePattern validates a URL pattern.
func CompilePattern(pattern string) error {
	_, err := compilePattern(pattern)
	return err
}

func compilePattern(pattern string) (glob.Glob, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		if err, isErr := cached.(error); isErr {
			return nil, err
		}
		return cached.(glob.Glob), nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		patternCache.Store(pattern, err)
		return nil, err
	}
	patternCache.Store(pattern, g)
	return g, nil
}

// ToolbarItem describes a toolbar button an extension contributes.
type ToolbarItem struct {
	ID    string
	Title string
	Icon  string
	Badge string
}

// ContextMenuItem describes a context-menu entry an extension contributes.
type ContextMenuItem struct {
	ID                string
	Title             string
	Icon              string
	RequiresSelection bool
}

// Page is the live page an extension can act on.
type Page interface {
	ID() string
	URL() string
	Reload() error

	// SendCommand pushes a fire-and-forget command to the extension's
	// page-side listener.
	SendCommand(extensionID, command string, payload map[string]interface{}) error
}

// MessageType identifies a page-to-host bridge message.
type MessageType string

const (
	MessageStorageUpdated MessageType = "storage-updated"
	MessageContentBlocked MessageType = "content-blocked"
)

// KnownMessageType reports whether t is handled by the host.
func KnownMessageType(t MessageType) bool {
	return t == MessageStorageUpdated || t == MessageContentBlocked
}

// Message is a decoded page-to-host message.
type Message struct {
	ExtensionID string
	Type        MessageType
	Payload     map[string]interface{}
	URL         string
}
