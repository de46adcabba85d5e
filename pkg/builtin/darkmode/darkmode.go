// Package darkmode recolours light pages with a selectable dark palette,
// preferring a site's own dark theme when one can be switched on.
package darkmode

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/entrhq/webext/pkg/config"
	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/logging"
)

const (
	ID            = "dark-mode"
	ToggleItemID  = "dark-mode.toggle"
	ExcludeItemID = "dark-mode.exclude-site"
	ToggleCommand = "dark-mode:toggle"

	palettePrefix = "dark-mode.palette."
	preferenceKey = "ext." + ID

	MinContrast     = 50
	MaxContrast     = 150
	DefaultContrast = 100
)

// NativelyDark are sites with a dark theme of their own, excluded by default.
var NativelyDark = []string{
	"youtube.com",
	"github.com",
	"twitter.com",
	"x.com",
	"reddit.com",
	"discord.com",
	"twitch.tv",
	"netflix.com",
	"spotify.com",
	"slack.com",
}

// Palette names a colour scheme.
type Palette string

const (
	PaletteDark         Palette = "dark"
	PaletteDimmed       Palette = "dimmed"
	PaletteSepia        Palette = "sepia"
	PaletteHighContrast Palette = "high-contrast"
)

// Palettes returns every palette in menu order.
func Palettes() []Palette {
	return []Palette{PaletteDark, PaletteDimmed, PaletteSepia, PaletteHighContrast}
}

type colors struct {
	Background string `json:"background"`
	Surface    string `json:"surface"`
	Text       string `json:"text"`
	Link       string `json:"link"`
	Border     string `json:"border"`
}

var paletteColors = map[Palette]colors{
	PaletteDark:         {Background: "#121212", Surface: "#1e1e1e", Text: "#e0e0e0", Link: "#8ab4f8", Border: "#333333"},
	PaletteDimmed:       {Background: "#22272e", Surface: "#2d333b", Text: "#adbac7", Link: "#539bf5", Border: "#444c56"},
	PaletteSepia:        {Background: "#2b2118", Surface: "#35291e", Text: "#e8d9c0", Link: "#d9a86c", Border: "#4a3b2c"},
	PaletteHighContrast: {Background: "#000000", Surface: "#000000", Text: "#ffffff", Link: "#ffff00", Border: "#ffffff"},
}

func (p Palette) title() string {
	switch p {
	case PaletteHighContrast:
		return "High contrast"
	default:
		s := string(p)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// Settings are the user-adjustable appearance options.
type Settings struct {
	Palette       Palette
	Contrast      int
	PreserveMedia bool
}

// DefaultSettings returns the dark palette at neutral contrast.
func DefaultSettings() Settings {
	return Settings{Palette: PaletteDark, Contrast: DefaultContrast, PreserveMedia: true}
}

//go:embed dark.js
var darkSource string

var debugLog *logging.Logger

func init() {
	debugLog = logging.MustLogger(ID)
}

// DarkMode is the appearance transform extension. It starts disabled.
type DarkMode struct {
	*extension.Base

	mu       sync.RWMutex
	settings Settings
}

// New returns a disabled extension excluding NativelyDark.
func New() *DarkMode {
	d := &DarkMode{
		Base: extension.NewBase(extension.Metadata{
			ID:          ID,
			Name:        "Dark Mode",
			Version:     "1.0.0",
			Author:      "webext",
			Description: "Renders light pages with a dark palette",
			Category:    extension.CategoryAppearance,
			Icon:        "moon",
			Permissions: []extension.Permission{extension.PermAllURLs, extension.PermStorage},
			Capabilities: []extension.Capability{
				extension.CapInjectScripts,
				extension.CapDisplayOverlay,
				extension.CapIntegrateToolbar,
			},
		}, extension.Blocklist(NativelyDark...)),
		settings: DefaultSettings(),
	}
	d.SetEnabled(false)
	return d
}

// Settings returns the current appearance options.
func (d *DarkMode) Settings() Settings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.settings
}

// SetPalette selects a palette. Unknown names are rejected.
func (d *DarkMode) SetPalette(p Palette) error {
	if _, ok := paletteColors[p]; !ok {
		return fmt.Errorf("unknown palette %q", p)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings.Palette = p
	return nil
}

// SetContrast sets the contrast percentage, clamped to [MinContrast, MaxContrast].
func (d *DarkMode) SetContrast(percent int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings.Contrast = clampContrast(percent)
}

func (d *DarkMode) SetPreserveMedia(preserve bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings.PreserveMedia = preserve
}

// Exclude stops the transform on domain and its subdomains.
func (d *DarkMode) Exclude(domain string) {
	d.SetActivation(d.Activation().WithDomain(domain))
}

// Include removes domain from the exclusions.
func (d *DarkMode) Include(domain string) {
	d.SetActivation(d.Activation().WithoutDomain(domain))
}

// IsExcluded reports whether domain is covered by an exclusion.
func (d *DarkMode) IsExcluded(domain string) bool {
	return extension.MatchesAny(domain, d.Activation().Domains)
}

func clampContrast(percent int) int {
	return max(MinContrast, min(MaxContrast, percent))
}

func (d *DarkMode) ScriptsToInject(url string) []extension.Script {
	if !d.IsActiveForDomain(extension.HostFromURL(url)) {
		return nil
	}

	s := d.Settings()
	cfg, err := json.Marshal(map[string]interface{}{
		"palette":       paletteColors[s.Palette],
		"contrast":      s.Contrast,
		"preserveMedia": s.PreserveMedia,
	})
	if err != nil {
		debugLog.Errorf("Failed to encode settings: %v", err)
		return nil
	}

	return []extension.Script{{
		Source: fmt.Sprintf("var config = %s;\n%s", cfg, darkSource),
		Timing: extension.TimingOnDOMReady,
	}}
}

func (d *DarkMode) ToolbarItems(extension.Page) []extension.ToolbarItem {
	return []extension.ToolbarItem{{ID: ToggleItemID, Title: "Toggle dark mode", Icon: "moon"}}
}

// OnToolbarItemTapped flips the effect in the page without reloading.
func (d *DarkMode) OnToolbarItemTapped(page extension.Page) {
	if page == nil {
		return
	}
	if err := page.SendCommand(ID, ToggleCommand, nil); err != nil {
		debugLog.Warnf("Toggle command failed on %s: %v", page.URL(), err)
	}
}

func (d *DarkMode) ContextMenuItems(extension.Page) []extension.ContextMenuItem {
	current := d.Settings().Palette
	items := make([]extension.ContextMenuItem, 0, len(paletteColors)+1)
	for _, p := range Palettes() {
		title := p.title() + " palette"
		if p == current {
			title += " ✓"
		}
		items = append(items, extension.ContextMenuItem{ID: palettePrefix + string(p), Title: title})
	}
	return append(items, extension.ContextMenuItem{ID: ExcludeItemID, Title: "Disable dark mode on this site"})
}

func (d *DarkMode) OnContextMenuItemSelected(itemID string, page extension.Page) {
	switch {
	case strings.HasPrefix(itemID, palettePrefix):
		if err := d.SetPalette(Palette(strings.TrimPrefix(itemID, palettePrefix))); err != nil {
			debugLog.Warnf("Ignoring menu item %s: %v", itemID, err)
			return
		}
	case itemID == ExcludeItemID:
		if page == nil {
			return
		}
		host := extension.HostFromURL(page.URL())
		if host == "" {
			return
		}
		d.Exclude(extension.RegistrableDomain(host))
	default:
		return
	}

	if page != nil {
		if err := page.Reload(); err != nil {
			debugLog.Warnf("Reload after %s failed: %v", itemID, err)
		}
	}
}

// config.Section

func (d *DarkMode) ID() string          { return preferenceKey }
func (d *DarkMode) Title() string       { return "Dark Mode" }
func (d *DarkMode) Description() string { return "Palette, contrast and excluded sites" }

func (d *DarkMode) Data() map[string]interface{} {
	s := d.Settings()
	return map[string]interface{}{
		"palette":        string(s.Palette),
		"contrast":       s.Contrast,
		"preserve_media": s.PreserveMedia,
		"excluded":       d.Activation().Domains,
	}
}

func (d *DarkMode) SetData(data map[string]interface{}) error {
	s := d.Settings()

	if v, ok := data["palette"]; ok {
		name, isString := v.(string)
		if !isString {
			return fmt.Errorf("palette: expected string, got %T", v)
		}
		if _, known := paletteColors[Palette(name)]; !known {
			return fmt.Errorf("unknown palette %q", name)
		}
		s.Palette = Palette(name)
	}
	if v, ok := data["contrast"]; ok {
		n, err := config.Int(v)
		if err != nil {
			return fmt.Errorf("contrast: %w", err)
		}
		s.Contrast = clampContrast(n)
	}
	if v, ok := data["preserve_media"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return fmt.Errorf("preserve_media: expected bool, got %T", v)
		}
		s.PreserveMedia = b
	}
	if v, ok := data["excluded"]; ok {
		list, err := config.StringSlice(v)
		if err != nil {
			return fmt.Errorf("excluded: %w", err)
		}
		d.SetActivation(extension.Blocklist(list...))
	}

	d.mu.Lock()
	d.settings = s
	d.mu.Unlock()
	return nil
}

func (d *DarkMode) Validate() error {
	s := d.Settings()
	if _, ok := paletteColors[s.Palette]; !ok {
		return fmt.Errorf("unknown palette %q", s.Palette)
	}
	if s.Contrast < MinContrast || s.Contrast > MaxContrast {
		return fmt.Errorf("contrast %d outside %d-%d", s.Contrast, MinContrast, MaxContrast)
	}
	return nil
}

func (d *DarkMode) Reset() {
	d.mu.Lock()
	d.settings = DefaultSettings()
	d.mu.Unlock()
	d.SetActivation(extension.Blocklist(NativelyDark...))
}
