package manager

import (
	"github.com/entrhq/webext/pkg/extension"
)

// ShouldBlockRequest reports whether any active request-modifying
// extension vetoes req. Extensions are asked in install order and the first
// veto wins; that extension alone receives a content-blocked event.
// Activation is decided by the domain of the page issuing the request.
func (m *Manager) ShouldBlockRequest(req *extension.Request) bool {
	for _, ext := range m.activeFor(req.PageDomain(), extension.CapModifyRequests) {
		if !safeShouldBlock(ext, req) {
			continue
		}

		pageURL := req.PageURL
		if pageURL == "" {
			pageURL = req.URL
		}
		debugLog.Debugf("%s blocked %s", ext.Metadata().ID, req.URL)

		m.deliver([]extension.Extension{ext}, extension.Event{
			Type:   extension.EventContentBlocked,
			URL:    pageURL,
			Domain: req.PageDomain(),
			Data:   map[string]interface{}{"blocked_url": req.URL},
		})
		return true
	}
	return false
}

// ModifyRequest threads req through every active extension able to change
// requests, in install order. The input is never mutated.
func (m *Manager) ModifyRequest(req *extension.Request) *extension.Request {
	out := req
	for _, ext := range m.activeFor(req.PageDomain(), extension.CapModifyRequests, extension.CapModifyHeaders) {
		out = safeModifyRequest(ext, out)
	}
	return out
}

// ModifyResponse threads resp through every active request-modifying
// extension, in install order.
func (m *Manager) ModifyResponse(req *extension.Request, resp *extension.Response) *extension.Response {
	out := resp
	for _, ext := range m.activeFor(req.PageDomain(), extension.CapModifyRequests) {
		out = safeModifyResponse(ext, req, out)
	}
	return out
}
