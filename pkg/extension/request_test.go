package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestDomains(t *testing.T) {
	req := NewRequest("https://ads.tracker.co.uk/pixel.gif")
	assert.Equal(t, "ads.tracker.co.uk", req.Host())
	assert.Equal(t, "tracker.co.uk", req.Domain())
	assert.Equal(t, "ads.tracker.co.uk", req.PageDomain(), "top-level falls back to own host")

	req.PageURL = "https://news.example.com/article"
	assert.Equal(t, "news.example.com", req.PageDomain())
}

func TestRequestHeaders(t *testing.T) {
	req := NewRequest("https://example.com")
	req.SetHeader("user-agent", "A")
	assert.Equal(t, map[string]string{"User-Agent": "A"}, req.Headers)

	v, ok := req.Header("USER-AGENT")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	modified := req.WithHeader("User-Agent", "B")
	assert.Equal(t, "B", modified.Headers["User-Agent"])
	assert.Equal(t, "A", req.Headers["User-Agent"], "receiver untouched")

	req.Headers["x-raw"] = "1"
	v, ok = req.Header("X-Raw")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = req.Header("Missing")
	assert.False(t, ok)
}

func TestRequestClone(t *testing.T) {
	var nilReq *Request
	assert.Nil(t, nilReq.Clone())

	req := &Request{URL: "https://example.com"}
	clone := req.Clone()
	assert.NotNil(t, clone.Headers)
	clone.SetHeader("A", "b")
	assert.Nil(t, req.Headers)
}

func TestResponse(t *testing.T) {
	resp := &Response{
		Status:  200,
		Headers: map[string]string{"content-type": "Text/HTML; charset=utf-8"},
		Body:    []byte("<html></html>"),
	}
	assert.Equal(t, "text/html", resp.ContentType())
	assert.True(t, resp.IsHTML())

	clone := resp.Clone()
	clone.Body[0] = 'X'
	assert.Equal(t, byte('<'), resp.Body[0])

	assert.False(t, (&Response{Headers: map[string]string{"Content-Type": "image/png"}}).IsHTML())
}

func TestEventEffectiveDomain(t *testing.T) {
	assert.Equal(t, "example.com", Event{URL: "https://Example.com/x"}.EffectiveDomain())
	assert.Equal(t, "override.org", Event{URL: "https://example.com", Domain: "Override.org"}.EffectiveDomain())
	assert.Equal(t, "", Event{Type: EventActionClicked}.EffectiveDomain())
}
