package darkmode

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webext/pkg/bridge"
	"github.com/entrhq/webext/pkg/extension"
)

type command struct {
	extensionID string
	name        string
}

type fakePage struct {
	url      string
	reloads  int
	commands []command
}

func (p *fakePage) ID() string  { return "page-1" }
func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Reload() error {
	p.reloads++
	return nil
}

func (p *fakePage) SendCommand(extensionID, name string, _ map[string]interface{}) error {
	p.commands = append(p.commands, command{extensionID, name})
	return nil
}

func TestDisabledByDefault(t *testing.T) {
	d := New()
	assert.False(t, d.Enabled())
	assert.Nil(t, d.ScriptsToInject("https://example.com/"))
	assert.Nil(t, d.ScriptsToInject("https://www.youtube.com/watch"))
}

func TestScriptsWhenEnabled(t *testing.T) {
	d := New()
	d.SetEnabled(true)

	scripts := d.ScriptsToInject("https://example.com/")
	require.Len(t, scripts, 1)
	assert.Equal(t, extension.TimingOnDOMReady, scripts[0].Timing)
	assert.Contains(t, scripts[0].Source, `"background":"#121212"`)

	_, err := goja.Compile("dark.js", bridge.Wrap(ID, scripts[0].Source), false)
	require.NoError(t, err)

	for _, site := range []string{"https://www.youtube.com/", "https://github.com/entrhq", "https://old.reddit.com/"} {
		assert.Nil(t, d.ScriptsToInject(site), site)
	}
}

func TestExcludeAndInclude(t *testing.T) {
	d := New()
	d.SetEnabled(true)

	d.Exclude("Example.com")
	assert.True(t, d.IsExcluded("docs.example.com"))
	assert.Nil(t, d.ScriptsToInject("https://docs.example.com/"))

	d.Include("example.com")
	assert.NotNil(t, d.ScriptsToInject("https://docs.example.com/"))

	d.Include("youtube.com")
	assert.NotNil(t, d.ScriptsToInject("https://youtube.com/"), "native exclusions can be lifted")
}

func TestSettings(t *testing.T) {
	d := New()
	assert.Equal(t, DefaultSettings(), d.Settings())

	require.NoError(t, d.SetPalette(PaletteSepia))
	assert.Error(t, d.SetPalette("neon"))
	assert.Equal(t, PaletteSepia, d.Settings().Palette)

	d.SetContrast(10)
	assert.Equal(t, MinContrast, d.Settings().Contrast)
	d.SetContrast(400)
	assert.Equal(t, MaxContrast, d.Settings().Contrast)
	d.SetContrast(120)
	assert.Equal(t, 120, d.Settings().Contrast)

	d.SetPreserveMedia(false)
	assert.False(t, d.Settings().PreserveMedia)
	assert.NoError(t, d.Validate())
}

func TestToolbarSendsToggleCommand(t *testing.T) {
	d := New()
	page := &fakePage{url: "https://example.com/"}

	items := d.ToolbarItems(page)
	require.Len(t, items, 1)
	assert.Equal(t, ToggleItemID, items[0].ID)

	d.OnToolbarItemTapped(page)
	assert.Equal(t, []command{{ID, ToggleCommand}}, page.commands)
	assert.Zero(t, page.reloads)
}

func TestContextMenu(t *testing.T) {
	d := New()
	page := &fakePage{url: "https://news.example.co.uk/story"}

	items := d.ContextMenuItems(page)
	require.Len(t, items, len(Palettes())+1)
	assert.Equal(t, "dark-mode.palette.dark", items[0].ID)
	assert.Equal(t, ExcludeItemID, items[len(items)-1].ID)

	d.OnContextMenuItemSelected("dark-mode.palette.high-contrast", page)
	assert.Equal(t, PaletteHighContrast, d.Settings().Palette)
	assert.Equal(t, 1, page.reloads)

	d.OnContextMenuItemSelected("dark-mode.palette.neon", page)
	assert.Equal(t, PaletteHighContrast, d.Settings().Palette)
	assert.Equal(t, 1, page.reloads, "unknown palette does not reload")

	d.OnContextMenuItemSelected(ExcludeItemID, page)
	assert.True(t, d.Activation().Lists("example.co.uk"))
	assert.Equal(t, 2, page.reloads)

	d.OnContextMenuItemSelected("something-else", page)
	assert.Equal(t, 2, page.reloads)
}

func TestPreferences(t *testing.T) {
	d := New()
	require.NoError(t, d.SetPalette(PaletteDimmed))
	d.Exclude("example.com")

	data := d.Data()
	assert.Equal(t, "dimmed", data["palette"])
	assert.Contains(t, data["excluded"], "example.com")

	restored := New()
	require.NoError(t, restored.SetData(map[string]interface{}{
		"palette":        "dimmed",
		"contrast":       float64(300),
		"preserve_media": false,
		"excluded":       []interface{}{"example.com"},
	}))
	assert.Equal(t, Settings{Palette: PaletteDimmed, Contrast: MaxContrast, PreserveMedia: false}, restored.Settings())
	assert.True(t, restored.IsExcluded("example.com"))
	assert.False(t, restored.IsExcluded("youtube.com"), "stored list replaces the defaults")

	assert.Error(t, restored.SetData(map[string]interface{}{"palette": "neon"}))
	assert.Error(t, restored.SetData(map[string]interface{}{"preserve_media": "yes"}))
	assert.Equal(t, PaletteDimmed, restored.Settings().Palette)

	restored.Reset()
	assert.Equal(t, DefaultSettings(), restored.Settings())
	assert.True(t, restored.IsExcluded("youtube.com"))
}
