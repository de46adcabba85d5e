package surface

import (
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webext/pkg/extension"
)

const page = `<!DOCTYPE html><html><head>
<meta http-equiv="Content-Security-Policy" content="script-src 'self'">
<meta charset="utf-8">
<title>Test</title>
</head><body><p id="content">hello</p></body></html>`

func TestInjectScriptsPlacement(t *testing.T) {
	scripts := []Registered{
		{Source: "/*after*/", Timing: extension.TimingAfterDocument},
		{Source: "/*ready*/", Timing: extension.TimingOnDOMReady},
		{Source: "/*before*/", Timing: extension.TimingBeforeDocument},
		{Source: "/*complete*/", Timing: extension.TimingOnPageComplete},
	}

	out, err := InjectScripts([]byte(page), scripts, true)
	require.NoError(t, err)
	doc := string(out)

	headEnd := strings.Index(doc, "</head>")
	require.Positive(t, headEnd)

	before := strings.Index(doc, "/*before*/")
	ready := strings.Index(doc, "/*ready*/")
	complete := strings.Index(doc, "/*complete*/")
	title := strings.Index(doc, "<title>")
	content := strings.Index(doc, `<p id="content">`)
	after := strings.Index(doc, "/*after*/")

	assert.True(t, before < ready && ready < complete && complete < title, "head scripts precede the original head in timing order")
	assert.True(t, content < after && after > headEnd, "after-document scripts close the body")

	assert.Contains(t, doc, `<script data-webext="before-document">/*before*/</script>`)
	assert.Contains(t, doc, "DOMContentLoaded")
	assert.Contains(t, doc, "'load'")
	assert.Contains(t, doc, `<meta charset="utf-8"/>`)
	assert.NotContains(t, doc, "Content-Security-Policy")
}

func TestInjectScriptsSubframes(t *testing.T) {
	scripts := []Registered{
		{Source: "/*main-only*/", Timing: extension.TimingBeforeDocument, MainFrameOnly: true},
		{Source: "/*everywhere*/", Timing: extension.TimingBeforeDocument},
	}

	out, err := InjectScripts([]byte(page), scripts, false)
	require.NoError(t, err)
	assert.Contains(t, string(out), "/*everywhere*/")
	assert.NotContains(t, string(out), "/*main-only*/")

	out, err = InjectScripts([]byte(page), scripts, true)
	require.NoError(t, err)
	assert.Contains(t, string(out), "/*main-only*/")
}

func TestInjectScriptsNothingToDo(t *testing.T) {
	doc := []byte(page)

	out, err := InjectScripts(doc, nil, true)
	require.NoError(t, err)
	assert.Equal(t, doc, out)

	mainOnly := []Registered{{Source: "x", Timing: extension.TimingOnDOMReady, MainFrameOnly: true}}
	out, err = InjectScripts(doc, mainOnly, false)
	require.NoError(t, err)
	assert.Equal(t, doc, out, "CSP is left alone when nothing is injected")
}

func TestInjectScriptsFragment(t *testing.T) {
	out, err := InjectScripts([]byte("<p>bare</p>"), []Registered{{Source: "/*x*/", Timing: extension.TimingBeforeDocument}}, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "<html><head><script"), string(out))
	assert.Contains(t, string(out), "<p>bare</p>")
}

func TestInjectScriptsEscapesClosingTag(t *testing.T) {
	src := "var tag = '</script><b>';"
	out, err := InjectScripts([]byte(page), []Registered{{Source: src, Timing: extension.TimingBeforeDocument}}, true)
	require.NoError(t, err)
	assert.Contains(t, string(out), `var tag = '<\/script><b>';`)
	assert.NotContains(t, string(out), "'</script>")
}

func TestTimingWrappersCompile(t *testing.T) {
	for name, src := range map[string]string{
		"dom ready":     onDOMReady("var x = 1;"),
		"page complete": onPageComplete("var y = 2;"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := goja.Compile(name, src, false)
			assert.NoError(t, err)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("a", extension.TimingBeforeDocument, true)
	snap := r.Snapshot()
	r.Register("b", extension.TimingAfterDocument, false)

	assert.Len(t, snap, 1, "snapshots do not see later registrations")
	assert.Equal(t, 2, r.Len())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Len(t, snap, 1)
	assert.Equal(t, Registered{Source: "a", Timing: extension.TimingBeforeDocument, MainFrameOnly: true}, snap[0])
}

type stripPolicy struct {
	status int
}

func (p stripPolicy) ShouldBlockRequest(*extension.Request) bool { return false }
func (p stripPolicy) ModifyRequest(req *extension.Request) *extension.Request {
	return req
}
func (p stripPolicy) ModifyResponse(_ *extension.Request, resp *extension.Response) *extension.Response {
	out := resp.Clone()
	out.Body = []byte(strings.ReplaceAll(string(out.Body), "hello", "filtered"))
	if p.status != 0 {
		out.Status = p.status
	}
	return out
}

func TestRewriteDocument(t *testing.T) {
	req := extension.NewRequest("https://example.com/")
	req.MainFrame = true
	scripts := []Registered{{Source: "/*x*/", Timing: extension.TimingBeforeDocument}}

	newResponse := func(contentType string) *extension.Response {
		return &extension.Response{
			URL:    req.URL,
			Status: 200,
			Headers: map[string]string{
				"content-type":            contentType,
				"content-security-policy": "script-src 'none'",
				"content-encoding":        "gzip",
				"x-kept":                  "1",
			},
			Body: []byte(page),
		}
	}

	t.Run("html gets policy and scripts", func(t *testing.T) {
		resp := newResponse("text/html; charset=utf-8")
		out, err := rewriteDocument(req, resp, stripPolicy{}, scripts)
		require.NoError(t, err)
		assert.Contains(t, string(out.Body), "/*x*/")
		assert.Contains(t, string(out.Body), "filtered")
		assert.Equal(t, map[string]string{"content-type": "text/html; charset=utf-8", "x-kept": "1"}, out.Headers)
		assert.Contains(t, resp.Headers, "content-security-policy", "input is not mutated")
	})

	t.Run("non html is not injected", func(t *testing.T) {
		out, err := rewriteDocument(req, newResponse("application/json"), nil, scripts)
		require.NoError(t, err)
		assert.NotContains(t, string(out.Body), "/*x*/")
		assert.NotContains(t, out.Headers, "content-encoding")
	})

	t.Run("redirects pass through", func(t *testing.T) {
		out, err := rewriteDocument(req, newResponse("text/html"), stripPolicy{status: 302}, scripts)
		require.NoError(t, err)
		assert.Equal(t, 302, out.Status)
		assert.NotContains(t, string(out.Body), "/*x*/")
		assert.Contains(t, out.Headers, "content-security-policy")
	})
}

func TestHistory(t *testing.T) {
	h := newHistory()
	back, forward := h.state()
	assert.False(t, back)
	assert.False(t, forward)

	h.commit("https://a.example/")
	h.commit("https://b.example/")
	h.commit("https://b.example/")
	h.commit("https://c.example/")

	back, forward = h.state()
	assert.True(t, back)
	assert.False(t, forward)

	h.move(-1)
	h.commit("https://b.example/")
	assert.Equal(t, "https://b.example/", h.current())
	back, forward = h.state()
	assert.True(t, back)
	assert.True(t, forward)

	h.commit("https://d.example/")
	assert.Equal(t, "https://d.example/", h.current())
	_, forward = h.state()
	assert.False(t, forward, "a new navigation drops forward entries")

	h.move(5)
	assert.Equal(t, "https://d.example/", h.current())
}
