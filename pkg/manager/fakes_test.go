package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/webext/pkg/config"
	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/surface"
)

// testExtension records what the manager asks of it.
type testExtension struct {
	*extension.Base

	mu       sync.Mutex
	events   []extension.Event
	messages []extension.Message
	inits    int
	cleanups int

	scriptCalls int
	scripts     []extension.Script
	initErr     error
	block       bool
	trail       string // appended to the X-Trail request header
	delay       time.Duration
	panics      bool
	toolbar     []extension.ToolbarItem
	menu        []extension.ContextMenuItem
	taps        int
}

func newTestExtension(id string, caps ...extension.Capability) *testExtension {
	return &testExtension{
		Base: extension.NewBase(extension.Metadata{
			ID:           id,
			Name:         id,
			Version:      "1.0.0",
			Category:     extension.CategoryOther,
			Capabilities: caps,
		}, extension.Always()),
	}
}

func (e *testExtension) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inits++
	return e.initErr
}

func (e *testExtension) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanups++
}

func (e *testExtension) ScriptsToInject(string) []extension.Script {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scriptCalls++
	return e.scripts
}

func (e *testExtension) ShouldBlockRequest(*extension.Request) bool {
	if e.panics {
		panic("boom")
	}
	return e.block
}

func (e *testExtension) ModifyRequest(req *extension.Request) *extension.Request {
	if e.panics {
		panic("boom")
	}
	if e.trail == "" {
		return req
	}
	current, _ := req.Header("X-Trail")
	return req.WithHeader("X-Trail", current+e.trail)
}

func (e *testExtension) HandleEvent(event extension.Event) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.panics {
		panic("boom")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *testExtension) OnMessage(msg extension.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messages = append(e.messages, msg)
}

func (e *testExtension) ToolbarItems(extension.Page) []extension.ToolbarItem {
	if e.panics {
		panic("boom")
	}
	return e.toolbar
}

func (e *testExtension) ContextMenuItems(extension.Page) []extension.ContextMenuItem {
	return e.menu
}

func (e *testExtension) OnToolbarItemTapped(extension.Page) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.taps++
}

func (e *testExtension) eventTypes() []extension.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]extension.EventType, 0, len(e.events))
	for _, ev := range e.events {
		types = append(types, ev.Type)
	}
	return types
}

func (e *testExtension) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scriptCalls
}

// fakeSurface behaves like a tab whose documents load instantly.
type fakeSurface struct {
	mu        sync.Mutex
	url       string
	scripts   []surface.Registered
	handlers  map[string]func(interface{})
	evaluated []string
	observer  surface.NavigationObserver
	loads     int

	// canonical, when set, rewrites URLs the way an engine reports them.
	canonical func(string) string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{handlers: make(map[string]func(interface{}))}
}

func (s *fakeSurface) Load(_ context.Context, url string) error {
	s.mu.Lock()
	obs := s.observer
	s.loads++
	if s.canonical != nil {
		url = s.canonical(url)
	}
	s.mu.Unlock()

	if obs != nil {
		obs.OnStart(url)
	}
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
	if obs != nil {
		obs.OnFinish(surface.NavigationState{Title: "test", FinalURL: url})
	}
	return nil
}

func (s *fakeSurface) Reload(ctx context.Context) error {
	return s.Load(ctx, s.URL())
}

func (s *fakeSurface) Stop() error { return nil }

func (s *fakeSurface) RegisterScript(source string, timing extension.InjectionTiming, mainFrameOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, surface.Registered{Source: source, Timing: timing, MainFrameOnly: mainFrameOnly})
}

func (s *fakeSurface) ClearScripts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = nil
}

func (s *fakeSurface) AddMessageHandler(name string, handler func(payload interface{})) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
	return nil
}

func (s *fakeSurface) EvaluateJavaScript(_ context.Context, source string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluated = append(s.evaluated, source)
	return nil, nil
}

func (s *fakeSurface) SetCustomHeader(string, string) error { return nil }
func (s *fakeSurface) SetUserAgent(string) error            { return nil }

func (s *fakeSurface) SetObserver(observer surface.NavigationObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = observer
}

func (s *fakeSurface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *fakeSurface) Close() error { return nil }

func (s *fakeSurface) registered() []surface.Registered {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]surface.Registered(nil), s.scripts...)
}

// post delivers a message the way page-side bridge code would.
func (s *fakeSurface) post(t *testing.T, name, payload string) {
	s.mu.Lock()
	handler := s.handlers[name]
	s.mu.Unlock()
	require.NotNil(t, handler, "no handler %s", name)
	handler(payload)
}

// fakePage is a Page for hooks that do not need a surface.
type fakePage struct {
	url     string
	reloads int
}

func (p *fakePage) ID() string  { return "page" }
func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Reload() error {
	p.reloads++
	return nil
}

func (p *fakePage) SendCommand(string, string, map[string]interface{}) error {
	return nil
}

// newStore returns persistence over an in-memory config store.
func newStore(t *testing.T, store config.Store) *config.ExtensionStore {
	t.Helper()
	persistence, err := config.NewExtensionStore(config.NewManager(store))
	require.NoError(t, err)
	return persistence
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *config.MemoryStore) {
	t.Helper()
	store := config.NewMemoryStore()
	m := New(newStore(t, store), append([]Option{WithoutBuiltins()}, opts...)...)
	require.NoError(t, m.Initialize())
	return m, store
}
