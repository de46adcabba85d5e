// Package surface is the rendering surface webext drives: a page that can
// load URLs, run registered scripts, expose message handlers and route its
// network traffic through a RequestPolicy.
//
// The Playwright implementation (Browser and Tab) backs the CLI; the
// interfaces let the manager and tests work against any engine.
package surface

import (
	"context"

	"github.com/entrhq/webext/pkg/extension"
)

// NavigationState describes a committed navigation.
type NavigationState struct {
	Title        string
	CanGoBack    bool
	CanGoForward bool
	FinalURL     string
}

// NavigationObserver receives navigation callbacks. Callbacks may arrive on
// any goroutine.
type NavigationObserver interface {
	OnStart(url string)
	OnFinish(state NavigationState)
	OnFail(url string, err error)
}

// RequestPolicy decides the fate of each request the surface routes.
type RequestPolicy interface {
	ShouldBlockRequest(req *extension.Request) bool
	ModifyRequest(req *extension.Request) *extension.Request
	ModifyResponse(req *extension.Request, resp *extension.Response) *extension.Response
}

// Partition selects where a surface keeps cookies and storage.
type Partition string

const (
	// PartitionPersistent keeps state in an on-disk profile directory.
	PartitionPersistent Partition = "persistent"

	// PartitionEphemeral keeps state in memory only, for private browsing.
	PartitionEphemeral Partition = "ephemeral"
)

// Surface is one page of the rendering engine.
type Surface interface {
	Load(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Stop() error

	// RegisterScript queues source for injection into documents loaded
	// after the call.
	RegisterScript(source string, timing extension.InjectionTiming, mainFrameOnly bool)

	// ClearScripts drops every registered script.
	ClearScripts()

	AddMessageHandler(name string, handler func(payload interface{})) error
	EvaluateJavaScript(ctx context.Context, source string) (interface{}, error)

	SetCustomHeader(name, value string) error
	SetUserAgent(ua string) error

	SetObserver(observer NavigationObserver)
	URL() string
	Close() error
}
