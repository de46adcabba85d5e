package useragent

import (
	"strings"
)

// Preset is a named User-Agent string.
type Preset struct {
	Name      string
	Slug      string
	UserAgent string
}

// Presets in menu order.
var Presets = []Preset{
	{
		Name:      "Desktop Chrome",
		Slug:      "desktop-chrome",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	},
	{
		Name:      "Desktop Firefox",
		Slug:      "desktop-firefox",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	},
	{
		Name:      "Desktop Safari",
		Slug:      "desktop-safari",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Safari/605.1.15",
	},
	{
		Name:      "Mobile",
		Slug:      "mobile",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Mobile/15E148 Safari/604.1",
	},
	{
		Name:      "Android",
		Slug:      "android",
		UserAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.6367.82 Mobile Safari/537.36",
	},
	{
		Name:      "Tablet",
		Slug:      "tablet",
		UserAgent: "Mozilla/5.0 (iPad; CPU OS 17_4_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Mobile/15E148 Safari/604.1",
	},
}

// LookupPreset finds a preset by name or slug, ignoring case.
func LookupPreset(nameOrSlug string) (Preset, bool) {
	key := strings.TrimSpace(nameOrSlug)
	for _, p := range Presets {
		if strings.EqualFold(p.Name, key) || strings.EqualFold(p.Slug, key) {
			return p, true
		}
	}
	return Preset{}, false
}

// resolve maps a preset name to its string; anything else is a raw UA.
func resolve(value string) string {
	if p, ok := LookupPreset(value); ok {
		return p.UserAgent
	}
	return value
}
