// Package extension defines the extension model: identity, capabilities,
// per-domain activation rules, injectable scripts and the request and
// response values passed through the interception pipeline.
//
// Concrete extensions embed *Base and override only the hooks they need.
package extension

import (
	"sync"
)

// Extension is the contract every installed extension satisfies. Hooks are
// consulted by the manager only when the matching Capability is declared.
type Extension interface {
	Metadata() Metadata
	Enabled() bool
	SetEnabled(enabled bool)
	Activation() ActivationState

	// CustomRule is the predicate used by the Custom activation kind. It
	// receives a normalised domain.
	CustomRule(domain string) bool

	// IsActiveForDomain evaluates the activation rule. Callers outside
	// the extension use IsActive, which also honours a CustomRule
	// override.
	IsActiveForDomain(domain string) bool

	// ScriptsToInject must be pure; nil means nothing to inject.
	ScriptsToInject(url string) []Script

	ShouldBlockRequest(req *Request) bool

	// ModifyRequest must not mutate req and must be idempotent.
	ModifyRequest(req *Request) *Request

	ModifyResponse(req *Request, resp *Response) *Response

	// HandleEvent must not block; long work is deferred.
	HandleEvent(event Event)

	OnMessage(msg Message)

	ToolbarItems(page Page) []ToolbarItem
	ContextMenuItems(page Page) []ContextMenuItem
	OnToolbarItemTapped(page Page)
	OnContextMenuItemSelected(itemID string, page Page)

	Init() error
	Cleanup()
}

// IsActive reports whether ext runs on domain. A disabled extension is
// never active, whatever its IsActiveForDomain override returns. Under
// ActivationCustom the CustomRule of ext itself is consulted, so a type
// embedding *Base can override it.
func IsActive(ext Extension, domain string) bool {
	if !ext.Enabled() || !ext.IsActiveForDomain(domain) {
		return false
	}
	if ext.Activation().Kind == ActivationCustom {
		return ext.CustomRule(NormalizeDomain(domain))
	}
	return true
}

// Base implements every Extension hook with its no-op default.
type Base struct {
	mu         sync.RWMutex
	meta       Metadata
	enabled    bool
	activation ActivationState
	rule       func(domain string) bool
}

// NewBase returns an enabled base with the given identity and rule.
func NewBase(meta Metadata, activation ActivationState) *Base {
	return &Base{
		meta:       meta.clone(),
		enabled:    true,
		activation: activation.clone(),
	}
}

func (b *Base) Metadata() Metadata {
	return b.meta.clone()
}

func (b *Base) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

func (b *Base) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

func (b *Base) Activation() ActivationState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.activation.clone()
}

// SetActivation replaces the activation rule.
func (b *Base) SetActivation(state ActivationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activation = state.clone()
}

// SetCustomRule installs the predicate consulted under ActivationCustom.
func (b *Base) SetCustomRule(rule func(domain string) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rule = rule
}

func (b *Base) CustomRule(domain string) bool {
	b.mu.RLock()
	rule := b.rule
	b.mu.RUnlock()
	if rule == nil {
		return true
	}
	return rule(domain)
}

func (b *Base) IsActiveForDomain(domain string) bool {
	b.mu.RLock()
	enabled, activation := b.enabled, b.activation
	b.mu.RUnlock()
	if !enabled {
		return false
	}
	return activation.Permits(domain, b.CustomRule)
}

func (b *Base) ScriptsToInject(string) []Script                     { return nil }
func (b *Base) ShouldBlockRequest(*Request) bool                    { return false }
func (b *Base) ModifyRequest(req *Request) *Request                 { return req }
func (b *Base) ModifyResponse(_ *Request, resp *Response) *Response { return resp }
func (b *Base) HandleEvent(Event)                                   {}
func (b *Base) OnMessage(Message)                                   {}
func (b *Base) ToolbarItems(Page) []ToolbarItem                     { return nil }
func (b *Base) ContextMenuItems(Page) []ContextMenuItem             { return nil }
func (b *Base) OnToolbarItemTapped(Page)                            {}
func (b *Base) OnContextMenuItemSelected(string, Page)              {}
func (b *Base) Init() error                                         { return nil }
func (b *Base) Cleanup()                                            {}
