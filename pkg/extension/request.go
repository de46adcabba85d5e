package extension

import (
	"maps"
	"net/http"
	"strings"
)

// Request is the host-side view of an outgoing network request.
type Request struct {
	URL          string
	Method       string
	Headers      map[string]string
	ResourceType string
	MainFrame    bool

	// PageURL is the top-level document the request belongs to. Empty for
	// top-level navigations.
	PageURL string
}

// NewRequest returns a GET request for url with an empty header map.
func NewRequest(url string) *Request {
	return &Request{URL: url, Method: http.MethodGet, Headers: map[string]string{}}
}

// Host is the normalised host of the request URL.
func (r *Request) Host() string {
	return HostFromURL(r.URL)
}

// Domain is the registrable domain of the request host.
func (r *Request) Domain() string {
	return RegistrableDomain(r.Host())
}

// PageDomain is the host of the page that issued the request, falling
// back to the request's own host for top-level navigations.
func (r *Request) PageDomain() string {
	if r.PageURL != "" {
		if host := HostFromURL(r.PageURL); host != "" {
			return host
		}
	}
	return r.Host()
}

// Header returns the value of name, matched case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	if v, ok := r.Headers[http.CanonicalHeaderKey(name)]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// SetHeader replaces any existing header with the same case-insensitive
// name. The key is stored canonicalised.
func (r *Request) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	for k := range r.Headers {
		if strings.EqualFold(k, name) {
			delete(r.Headers, k)
		}
	}
	r.Headers[http.CanonicalHeaderKey(name)] = value
}

// WithHeader returns a clone with name set to value. The receiver is not
// modified.
func (r *Request) WithHeader(name, value string) *Request {
	out := r.Clone()
	out.SetHeader(name, value)
	return out
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Headers = maps.Clone(r.Headers)
	if out.Headers == nil {
		out.Headers = map[string]string{}
	}
	return &out
}

// Response is the host-side view of a fetched document.
type Response struct {
	URL     string
	Status  int
	Headers map[string]string
	Body    []byte
}

// Header returns the value of name, matched case-insensitively.
func (r *Response) Header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// ContentType is the media type without parameters, lower-cased.
func (r *Response) ContentType() string {
	ct, _, _ := strings.Cut(r.Header("Content-Type"), ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// IsHTML reports whether the content type is an HTML document.
func (r *Response) IsHTML() bool {
	ct := r.ContentType()
	return ct == "text/html" || ct == "application/xhtml+xml"
}

// Clone returns a deep copy.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Headers = maps.Clone(r.Headers)
	out.Body = append([]byte(nil), r.Body...)
	return &out
}
