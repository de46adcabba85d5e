package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesDomain(t *testing.T) {
	tests := []struct {
		domain string
		entry  string
		want   bool
	}{
		{"example.com", "example.com", true},
		{"ads.example.com", "example.com", true},
		{"a.b.example.com", "example.com", true},
		{"Ads.Example.COM.", "example.com", true},
		{"example.com", "*.example.com", true},
		{"example.com.evil.com", "example.com", false},
		{"notexample.com", "example.com", false},
		{"example.com", "ads.example.com", false},
		{"", "example.com", false},
		{"example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.domain+"~"+tt.entry, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesDomain(tt.domain, tt.entry))
		})
	}
}

func TestNormalizeDomains(t *testing.T) {
	got := NormalizeDomains([]string{" Example.com ", "*.example.com", "", ".", "youtube.com."})
	assert.Equal(t, []string{"example.com", "youtube.com"}, got)
}

func TestMostSpecificMatch(t *testing.T) {
	entries := []string{"example.com", "shop.example.com", "other.org"}

	best, ok := MostSpecificMatch("cart.shop.example.com", entries)
	assert.True(t, ok)
	assert.Equal(t, "shop.example.com", best)

	best, ok = MostSpecificMatch("www.example.com", entries)
	assert.True(t, ok)
	assert.Equal(t, "example.com", best)

	_, ok = MostSpecificMatch("example.net", entries)
	assert.False(t, ok)
}

func TestHostFromURL(t *testing.T) {
	assert.Equal(t, "example.com", HostFromURL("https://Example.com:8443/path?q=1"))
	assert.Equal(t, "example.com", HostFromURL("example.com/path"))
	assert.Equal(t, "127.0.0.1", HostFromURL("http://127.0.0.1:8080"))
	assert.Equal(t, "", HostFromURL("about:blank"))
	assert.Equal(t, "", HostFromURL(""))
}

func TestRegistrableDomain(t *testing.T) {
	tests := map[string]string{
		"example.com":         "example.com",
		"www.example.com":     "example.com",
		"a.b.example.com":     "example.com",
		"a.b.co.uk":           "b.co.uk",
		"sub.doubleclick.net": "doubleclick.net",
		"co.uk":               "co.uk",
		"localhost":           "localhost",
		"192.168.1.10":        "192.168.1.10",
		"::1":                 "::1",
		"":                    "",
	}

	for host, want := range tests {
		t.Run(host, func(t *testing.T) {
			assert.Equal(t, want, RegistrableDomain(host))
		})
	}
}
