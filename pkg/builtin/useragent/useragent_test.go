package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webext/pkg/extension"
)

type fakePage struct {
	reloads int
}

func (p *fakePage) ID() string                                               { return "page-1" }
func (p *fakePage) URL() string                                              { return "https://example.com/" }
func (p *fakePage) SendCommand(string, string, map[string]interface{}) error { return nil }

func (p *fakePage) Reload() error {
	p.reloads++
	return nil
}

func mobileUA(t *testing.T) string {
	t.Helper()
	p, ok := LookupPreset("Mobile")
	require.True(t, ok)
	return p.UserAgent
}

func TestResolveUserAgent(t *testing.T) {
	s := New()

	_, ok := s.ResolveUserAgent("example.com")
	assert.False(t, ok, "nothing configured")

	s.SetGlobal("Mobile")
	s.SetOverride("example.com", "Custom/1.0")
	s.SetOverride("shop.example.com", "Desktop Firefox")

	tests := []struct {
		domain string
		want   string
	}{
		{"example.com", "Custom/1.0"},
		{"www.example.com", "Custom/1.0"},
		{"cart.shop.example.com", Presets[1].UserAgent},
		{"other.com", mobileUA(t)},
	}
	for _, tt := range tests {
		got, ok := s.ResolveUserAgent(tt.domain)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, tt.domain)
	}

	s.ClearGlobal()
	_, ok = s.ResolveUserAgent("other.com")
	assert.False(t, ok)

	s.RemoveOverride("example.com")
	_, ok = s.ResolveUserAgent("example.com")
	assert.False(t, ok)
}

func TestModifyRequest(t *testing.T) {
	s := New()
	s.SetGlobal("Mobile")
	s.SetOverride("example.com", "Custom/1.0")

	req := extension.NewRequest("https://example.com")
	out := s.ModifyRequest(req)
	assert.Equal(t, "Custom/1.0", out.Headers["User-Agent"])
	assert.Empty(t, req.Headers, "input untouched")
	assert.Same(t, out, s.ModifyRequest(out), "idempotent")

	other := s.ModifyRequest(extension.NewRequest("https://other.com"))
	assert.Equal(t, mobileUA(t), other.Headers["User-Agent"])

	t.Run("subresources follow the page", func(t *testing.T) {
		sub := extension.NewRequest("https://cdn.other.com/app.js")
		sub.PageURL = "https://example.com/"
		assert.Equal(t, "Custom/1.0", s.ModifyRequest(sub).Headers["User-Agent"])
	})

	t.Run("unset passes through", func(t *testing.T) {
		plain := New()
		r := extension.NewRequest("https://example.com")
		assert.Same(t, r, plain.ModifyRequest(r))
	})
}

func TestLookupPreset(t *testing.T) {
	for _, name := range []string{"Desktop Chrome", "desktop-chrome", "DESKTOP CHROME"} {
		p, ok := LookupPreset(name)
		assert.True(t, ok, name)
		assert.Equal(t, "desktop-chrome", p.Slug)
	}
	_, ok := LookupPreset("Netscape")
	assert.False(t, ok)
	assert.Equal(t, "Raw/2.0", resolve("Raw/2.0"))
}

func TestContextMenu(t *testing.T) {
	s := New()
	page := &fakePage{}

	items := s.ContextMenuItems(page)
	require.Len(t, items, len(Presets)+1)
	assert.Equal(t, "user-agent.preset.desktop-chrome", items[0].ID)
	assert.Equal(t, ResetItemID, items[len(items)-1].ID)

	s.OnContextMenuItemSelected("user-agent.preset.android", page)
	assert.Equal(t, "Android", s.Global())
	assert.Equal(t, 1, page.reloads)
	assert.Contains(t, s.ContextMenuItems(page)[4].Title, "✓")

	s.OnContextMenuItemSelected("user-agent.preset.netscape", page)
	assert.Equal(t, "Android", s.Global())
	assert.Equal(t, 1, page.reloads)

	s.OnContextMenuItemSelected(ResetItemID, page)
	assert.Empty(t, s.Global())
	assert.Equal(t, 2, page.reloads)
}

func TestPreferences(t *testing.T) {
	s := New()
	s.SetGlobal("Tablet")
	s.SetOverride("Example.com", "Custom/1.0")

	assert.Equal(t, map[string]interface{}{
		"global":    "Tablet",
		"overrides": map[string]string{"example.com": "Custom/1.0"},
	}, s.Data())

	restored := New()
	require.NoError(t, restored.SetData(map[string]interface{}{
		"global":    "Mobile",
		"overrides": map[string]interface{}{"Example.com": "Custom/1.0"},
	}))
	ua, ok := restored.ResolveUserAgent("example.com")
	assert.True(t, ok)
	assert.Equal(t, "Custom/1.0", ua)

	assert.Error(t, restored.SetData(map[string]interface{}{"global": 1}))
	assert.Error(t, restored.SetData(map[string]interface{}{"overrides": []interface{}{"x"}}))
	assert.Equal(t, "Mobile", restored.Global())

	restored.Reset()
	assert.Empty(t, restored.Global())
	assert.Empty(t, restored.Overrides())
}
