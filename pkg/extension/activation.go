package extension

import (
	"slices"
)

// ActivationKind selects how an ActivationState decides per domain.
type ActivationKind string

const (
	ActivationAlways    ActivationKind = "always"
	ActivationAllowlist ActivationKind = "allowlist"
	ActivationBlocklist ActivationKind = "blocklist"
	ActivationCustom    ActivationKind = "custom"
)

// ActivationState is an extension's per-domain activation rule.
type ActivationState struct {
	Kind    ActivationKind
	Domains []string
}

// Always activates on every domain.
func Always() ActivationState {
	return ActivationState{Kind: ActivationAlways}
}

// Allowlist activates only on the listed domains and their subdomains.
func Allowlist(domains ...string) ActivationState {
	return ActivationState{Kind: ActivationAllowlist, Domains: NormalizeDomains(domains)}
}

// Blocklist activates everywhere except the listed domains and their
// subdomains.
func Blocklist(domains ...string) ActivationState {
	return ActivationState{Kind: ActivationBlocklist, Domains: NormalizeDomains(domains)}
}

// Custom defers to the extension's own predicate.
func Custom() ActivationState {
	return ActivationState{Kind: ActivationCustom}
}

// ParseActivation builds a state from its serialised kind. Unknown kinds
// return false.
func ParseActivation(kind string, domains []string) (ActivationState, bool) {
	switch ActivationKind(kind) {
	case ActivationAlways:
		return Always(), true
	case ActivationAllowlist:
		return Allowlist(domains...), true
	case ActivationBlocklist:
		return Blocklist(domains...), true
	case ActivationCustom:
		return Custom(), true
	default:
		return ActivationState{}, false
	}
}

// Permits evaluates the rule for domain. custom is consulted for
// ActivationCustom; a nil predicate permits. A malformed state permits
// nothing.
func (s ActivationState) Permits(domain string, custom func(domain string) bool) bool {
	switch s.Kind {
	case ActivationAlways:
		return true
	case ActivationAllowlist:
		return MatchesAny(domain, s.Domains)
	case ActivationBlocklist:
		return !MatchesAny(domain, s.Domains)
	case ActivationCustom:
		if custom == nil {
			return true
		}
		return custom(NormalizeDomain(domain))
	default:
		return false
	}
}

// WithDomain returns a copy with domain added to the list.
func (s ActivationState) WithDomain(domain string) ActivationState {
	out := s.clone()
	out.Domains = NormalizeDomains(append(out.Domains, domain))
	return out
}

// WithoutDomain returns a copy with domain removed from the list.
func (s ActivationState) WithoutDomain(domain string) ActivationState {
	out := s.clone()
	domain = NormalizeDomain(domain)
	out.Domains = slices.DeleteFunc(out.Domains, func(d string) bool { return d == domain })
	return out
}

// Lists reports whether domain is literally on the list (no suffix match).
func (s ActivationState) Lists(domain string) bool {
	return slices.Contains(s.Domains, NormalizeDomain(domain))
}

func (s ActivationState) clone() ActivationState {
	s.Domains = slices.Clone(s.Domains)
	return s
}
