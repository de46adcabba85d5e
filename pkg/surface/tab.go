package surface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webext/pkg/extension"
)

// Tab is a Surface backed by a Playwright page. Every request the page makes
// is routed through the tab's RequestPolicy, and documents are rewritten to
// carry the registered scripts.
type Tab struct {
	id      string
	page    playwright.Page
	context playwright.BrowserContext
	browser playwright.Browser // nil for persistent and adopted tabs
	owner   *Browser
	opts    TabOptions

	scripts *Registry
	history *history

	mu        sync.RWMutex
	observer  NavigationObserver
	headers   map[string]string
	userAgent string
	closed    bool
}

func newTab(id string, page playwright.Page, opts TabOptions) *Tab {
	return &Tab{
		id:        id,
		page:      page,
		opts:      opts,
		scripts:   NewRegistry(),
		history:   newHistory(),
		headers:   make(map[string]string),
		userAgent: opts.UserAgent,
	}
}

// attach installs the router and page listeners.
func (t *Tab) attach() error {
	if err := t.page.Route("**/*", t.route); err != nil {
		return fmt.Errorf("failed to install router: %w", err)
	}

	t.page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame.ParentFrame() == nil {
			t.history.commit(frame.URL())
		}
	})
	t.page.OnLoad(func(page playwright.Page) {
		// Page calls block until the event loop is free again.
		go t.notifyFinish()
	})
	t.page.OnRequestFailed(func(req playwright.Request) {
		if !isMainFrameNavigation(req) {
			return
		}
		err := req.Failure()
		if err == nil {
			err = errors.New("navigation failed")
		}
		if obs := t.currentObserver(); obs != nil {
			obs.OnFail(req.URL(), err)
		}
	})
	t.page.OnPopup(func(popup playwright.Page) {
		t.adoptPopup(popup)
	})
	return nil
}

func (t *Tab) adoptPopup(popup playwright.Page) {
	opts := t.opts
	opts.Partition = ""
	child := newTab(uuid.NewString(), popup, opts)
	child.context = t.context
	child.owner = t.owner
	if err := child.attach(); err != nil {
		debugLog.Warnf("Failed to attach popup of tab %s: %v", t.id, err)
		return
	}
	if t.owner != nil {
		t.owner.adopt(child)
	}
	debugLog.Debugf("Tab %s opened popup %s", t.id, child.id)
	if t.opts.OnNewTab != nil {
		t.opts.OnNewTab(child)
	}
}

// ID returns the tab id.
func (t *Tab) ID() string {
	return t.id
}

func (t *Tab) route(route playwright.Route) {
	req := route.Request()
	mainFrame := isMainFrame(req)
	navigation := req.IsNavigationRequest()

	pageURL := t.page.URL()
	if navigation && mainFrame {
		pageURL = req.URL()
		// Observers prepare scripts here, before the document is fetched.
		if obs := t.currentObserver(); obs != nil {
			obs.OnStart(req.URL())
		}
	}

	headers, err := req.AllHeaders()
	if err != nil {
		headers = req.Headers()
	}
	request := &extension.Request{
		URL:          req.URL(),
		Method:       req.Method(),
		Headers:      t.decorateHeaders(headers),
		ResourceType: req.ResourceType(),
		MainFrame:    mainFrame,
		PageURL:      pageURL,
	}

	policy := t.opts.Policy
	if policy != nil && policy.ShouldBlockRequest(request) {
		if err := route.Abort("blockedbyclient"); err != nil {
			debugLog.Debugf("Abort %s: %v", request.URL, err)
		}
		return
	}
	if policy != nil {
		request = policy.ModifyRequest(request)
	}

	if !navigation || request.ResourceType != "document" {
		if err := route.Continue(playwright.RouteContinueOptions{Headers: request.Headers}); err != nil {
			debugLog.Debugf("Continue %s: %v", request.URL, err)
		}
		return
	}

	t.fulfillDocument(route, request, policy)
}

// fulfillDocument fetches a document itself so the response can be
// filtered and the registered scripts injected.
func (t *Tab) fulfillDocument(route playwright.Route, request *extension.Request, policy RequestPolicy) {
	fetched, err := route.Fetch(playwright.RouteFetchOptions{
		Headers:      request.Headers,
		MaxRedirects: playwright.Int(0),
	})
	if err != nil {
		debugLog.Warnf("Fetch %s failed: %v", request.URL, err)
		_ = route.Abort("failed")
		return
	}

	body, err := fetched.Body()
	if err != nil {
		debugLog.Warnf("Reading %s failed: %v", request.URL, err)
		_ = route.Fulfill(playwright.RouteFulfillOptions{Response: fetched})
		return
	}

	resp := &extension.Response{
		URL:     fetched.URL(),
		Status:  fetched.Status(),
		Headers: fetched.Headers(),
		Body:    body,
	}

	out, err := rewriteDocument(request, resp, policy, t.scripts.Snapshot())
	if err != nil {
		debugLog.Warnf("Rewriting %s failed, serving it unchanged: %v", request.URL, err)
		out = resp
	}

	if err := route.Fulfill(playwright.RouteFulfillOptions{
		Status:  playwright.Int(out.Status),
		Headers: out.Headers,
		Body:    out.Body,
	}); err != nil {
		debugLog.Debugf("Fulfill %s: %v", request.URL, err)
	}
}

// rewriteDocument applies the response policy and script injection to a
// fetched document. Redirects and non-HTML responses only pass through the
// policy.
func rewriteDocument(req *extension.Request, resp *extension.Response, policy RequestPolicy, scripts []Registered) (*extension.Response, error) {
	out := resp
	if policy != nil {
		if modified := policy.ModifyResponse(req, resp); modified != nil {
			out = modified
		}
	}
	if out.Status >= 300 && out.Status < 400 {
		return out, nil
	}

	out = out.Clone()
	// The body is served decoded and a policy would refuse inline scripts.
	for name := range out.Headers {
		switch strings.ToLower(name) {
		case "content-security-policy", "content-length", "content-encoding":
			delete(out.Headers, name)
		}
	}
	if !out.IsHTML() {
		return out, nil
	}

	body, err := InjectScripts(out.Body, scripts, req.MainFrame)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

func (t *Tab) decorateHeaders(headers map[string]string) map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]string, len(headers)+len(t.headers)+1)
	for k, v := range headers {
		out[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range t.headers {
		out[http.CanonicalHeaderKey(k)] = v
	}
	if t.userAgent != "" {
		out["User-Agent"] = t.userAgent
	}
	return out
}

func isMainFrame(req playwright.Request) bool {
	frame := req.Frame()
	return frame == nil || frame.ParentFrame() == nil
}

func isMainFrameNavigation(req playwright.Request) bool {
	return req.IsNavigationRequest() && isMainFrame(req)
}

func (t *Tab) notifyFinish() {
	obs := t.currentObserver()
	if obs == nil {
		return
	}
	title, err := t.page.Title()
	if err != nil {
		debugLog.Debugf("Reading title of tab %s: %v", t.id, err)
	}
	back, forward := t.history.state()
	obs.OnFinish(NavigationState{
		Title:        title,
		CanGoBack:    back,
		CanGoForward: forward,
		FinalURL:     t.page.URL(),
	})
}

func (t *Tab) currentObserver() NavigationObserver {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.observer
}

// Load navigates to url and waits for the load event.
func (t *Tab) Load(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeoutFrom(ctx),
	}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Reload reloads the current document.
func (t *Tab) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeoutFrom(ctx),
	}); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// GoBack navigates one entry back in the tab's history.
func (t *Tab) GoBack(ctx context.Context) error {
	if back, _ := t.history.state(); !back {
		return nil
	}
	t.history.move(-1)
	if _, err := t.page.GoBack(playwright.PageGoBackOptions{Timeout: timeoutFrom(ctx)}); err != nil {
		return fmt.Errorf("back navigation failed: %w", err)
	}
	return nil
}

// GoForward navigates one entry forward in the tab's history.
func (t *Tab) GoForward(ctx context.Context) error {
	if _, forward := t.history.state(); !forward {
		return nil
	}
	t.history.move(1)
	if _, err := t.page.GoForward(playwright.PageGoForwardOptions{Timeout: timeoutFrom(ctx)}); err != nil {
		return fmt.Errorf("forward navigation failed: %w", err)
	}
	return nil
}

// Stop stops loading the current document.
func (t *Tab) Stop() error {
	_, err := t.page.Evaluate("window.stop()")
	return err
}

func (t *Tab) RegisterScript(source string, timing extension.InjectionTiming, mainFrameOnly bool) {
	t.scripts.Register(source, timing, mainFrameOnly)
}

func (t *Tab) ClearScripts() {
	t.scripts.Clear()
}

// AddMessageHandler exposes a page function name whose first argument is
// passed to handler.
func (t *Tab) AddMessageHandler(name string, handler func(payload interface{})) error {
	return t.page.ExposeFunction(name, func(args ...interface{}) interface{} {
		if len(args) == 0 {
			return nil
		}
		handler(args[0])
		return nil
	})
}

func (t *Tab) EvaluateJavaScript(ctx context.Context, source string) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := t.page.Evaluate(source)
	if err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	return result, nil
}

// SetCustomHeader adds a header to every request of the tab. An empty
// value removes it.
func (t *Tab) SetCustomHeader(name, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := http.CanonicalHeaderKey(name)
	if value == "" {
		delete(t.headers, key)
		return nil
	}
	t.headers[key] = value
	return nil
}

// SetUserAgent replaces the User-Agent header of subsequent requests.
func (t *Tab) SetUserAgent(ua string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.userAgent = ua
	return nil
}

func (t *Tab) SetObserver(observer NavigationObserver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = observer
}

func (t *Tab) URL() string {
	return t.page.URL()
}

// Close closes the page and whatever context the tab owns.
func (t *Tab) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if t.owner != nil {
		t.owner.forget(t.id)
	}

	var errs []error
	if err := t.page.Close(); err != nil {
		errs = append(errs, err)
	}
	// Popups share the context of the tab that opened them.
	if t.opts.Partition != "" && t.context != nil {
		if err := t.context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.browser != nil {
		if err := t.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing tab %s: %w", t.id, errors.Join(errs...))
	}
	debugLog.Infof("Closed tab %s", t.id)
	return nil
}

func timeoutFrom(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return &ms
}

var _ Surface = (*Tab)(nil)
