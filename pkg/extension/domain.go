package extension

import (
	"net"
	"net/url"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/net/publicsuffix"
)

// NormalizeDomain lower-cases d and strips whitespace, a leading "*." or
// "." and a trailing dot.
func NormalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "*.")
	d = strings.TrimPrefix(d, ".")
	return strings.TrimSuffix(d, ".")
}

// NormalizeDomains normalises a list, dropping empties and duplicates while
// keeping first-seen order.
func NormalizeDomains(domains []string) []string {
	normalized := lo.Map(domains, func(d string, _ int) string { return NormalizeDomain(d) })
	return lo.Uniq(lo.Compact(normalized))
}

// MatchesDomain reports whether domain equals entry or is a subdomain of
// it. "ads.example.com" matches "example.com"; "example.com.evil.com" does
// not.
func MatchesDomain(domain, entry string) bool {
	domain = NormalizeDomain(domain)
	entry = NormalizeDomain(entry)
	if domain == "" || entry == "" {
		return false
	}
	return domain == entry || strings.HasSuffix(domain, "."+entry)
}

// MatchesAny reports whether domain suffix-matches any entry.
func MatchesAny(domain string, entries []string) bool {
	return lo.SomeBy(entries, func(entry string) bool { return MatchesDomain(domain, entry) })
}

// MostSpecificMatch returns the longest entry domain suffix-matches.
func MostSpecificMatch(domain string, entries []string) (string, bool) {
	best := ""
	for _, entry := range entries {
		if MatchesDomain(domain, entry) && len(NormalizeDomain(entry)) > len(best) {
			best = NormalizeDomain(entry)
		}
	}
	return best, best != ""
}

// HostFromURL extracts the normalised host of raw. Scheme-less input such
// as "example.com/path" is accepted. Returns "" when raw has no host.
func HostFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return NormalizeDomain(u.Hostname())
}

// RegistrableDomain returns the eTLD+1 of host using the public suffix
// list, so "a.b.co.uk" yields "b.co.uk". IP literals and hosts that have no
// registrable part ("localhost", "co.uk") are returned unchanged.
func RegistrableDomain(host string) string {
	host = NormalizeDomain(host)
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
