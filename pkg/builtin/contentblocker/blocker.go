// Package contentblocker blocks requests to known ad and tracker hosts,
// strips their elements from HTML documents and hides ad slots in the page.
package contentblocker

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/entrhq/webext/pkg/config"
	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/logging"
)

const (
	ID            = "content-blocker"
	ToggleSiteID  = "content-blocker.toggle-site"
	preferenceKey = "ext." + ID
)

// DefaultBlockedHosts are ad and tracker hosts blocked with their subdomains.
var DefaultBlockedHosts = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googleadservices.com",
	"google-analytics.com",
	"googletagservices.com",
	"adnxs.com",
	"adsrvr.org",
	"taboola.com",
	"outbrain.com",
	"criteo.com",
	"criteo.net",
	"scorecardresearch.com",
	"amazon-adsystem.com",
	"moatads.com",
	"pubmatic.com",
	"rubiconproject.com",
	"quantserve.com",
	"hotjar.com",
}

// hideSelectors match common ad containers.
var hideSelectors = []string{
	"[id^='google_ads_']",
	"[id^='div-gpt-ad']",
	"ins.adsbygoogle",
	"iframe[src*='doubleclick.net']",
	"[class*='sponsored-content']",
	"[data-ad-slot]",
	"[data-google-query-id]",
	".ad-banner",
	".ad-container",
	"#taboola-below-article-thumbnails",
	".OUTBRAIN",
}

//go:embed hide.js
var hideSource string

var debugLog *logging.Logger

func init() {
	debugLog = logging.MustLogger(ID)
}

// Blocker is the content blocker extension.
type Blocker struct {
	*extension.Base

	mu      sync.RWMutex
	blocked []string
	allow   []string
	hidden  map[string]int // page URL -> elements hidden in the page
	vetoed  map[string]int // page URL -> requests blocked
}

// New returns an enabled blocker over DefaultBlockedHosts.
func New() *Blocker {
	return &Blocker{
		Base: extension.NewBase(extension.Metadata{
			ID:          ID,
			Name:        "Content Blocker",
			Version:     "1.0.0",
			Author:      "webext",
			Description: "Blocks ads and trackers and hides ad placeholders",
			Category:    extension.CategoryPrivacy,
			Icon:        "shield",
			Permissions: []extension.Permission{
				extension.PermAllURLs,
				extension.PermWebRequestBlocking,
			},
			Capabilities: []extension.Capability{
				extension.CapInjectScripts,
				extension.CapModifyRequests,
				extension.CapIntegrateToolbar,
			},
		}, extension.Blocklist()),
		blocked: extension.NormalizeDomains(DefaultBlockedHosts),
		hidden:  make(map[string]int),
		vetoed:  make(map[string]int),
	}
}

// Allow exempts domain and its subdomains from blocking.
func (b *Blocker) Allow(domain string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allow = extension.NormalizeDomains(append(b.allow, domain))
}

// Disallow removes domain from the allow-list.
func (b *Blocker) Disallow(domain string) {
	domain = extension.NormalizeDomain(domain)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allow = slices.DeleteFunc(b.allow, func(d string) bool { return d == domain })
}

// IsAllowed reports whether domain falls under an allow-list entry.
func (b *Blocker) IsAllowed(domain string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return extension.MatchesAny(domain, b.allow)
}

// AllowList returns the allow-listed domains.
func (b *Blocker) AllowList() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.allow)
}

func (b *Blocker) isBlockedHost(host string) bool {
	return extension.MatchesAny(host, b.blocked)
}

func (b *Blocker) ShouldBlockRequest(req *extension.Request) bool {
	if !b.isBlockedHost(req.Host()) {
		return false
	}
	return !b.IsAllowed(req.Domain()) && !b.IsAllowed(req.PageDomain())
}

func (b *Blocker) ScriptsToInject(url string) []extension.Script {
	if b.IsAllowed(extension.HostFromURL(url)) {
		return nil
	}
	selectors, _ := json.Marshal(hideSelectors)
	return []extension.Script{{
		Source: fmt.Sprintf("var selectors = %s;\n%s", selectors, hideSource),
		Timing: extension.TimingOnDOMReady,
	}}
}

func (b *Blocker) ModifyResponse(req *extension.Request, resp *extension.Response) *extension.Response {
	if resp == nil || !resp.IsHTML() || len(resp.Body) == 0 {
		return resp
	}
	if b.IsAllowed(req.PageDomain()) {
		return resp
	}

	body, removed, err := stripBlockedElements(resp.Body, b.isBlockedHost)
	if err != nil {
		debugLog.Warnf("Failed to filter %s: %v", resp.URL, err)
		return resp
	}
	if removed == 0 {
		return resp
	}

	debugLog.Debugf("Removed %d blocked element(s) from %s", removed, resp.URL)
	out := resp.Clone()
	out.Body = body
	return out
}

func (b *Blocker) HandleEvent(event extension.Event) {
	switch event.Type {
	case extension.EventDocumentStart:
		b.mu.Lock()
		delete(b.hidden, event.URL)
		delete(b.vetoed, event.URL)
		b.mu.Unlock()
	case extension.EventContentBlocked:
		b.mu.Lock()
		b.vetoed[event.URL]++
		b.mu.Unlock()
	}
}

func (b *Blocker) OnMessage(msg extension.Message) {
	if msg.Type != extension.MessageContentBlocked {
		return
	}
	count, err := config.Int(msg.Payload["count"])
	if err != nil {
		debugLog.Debugf("Ignoring content-blocked message without count: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if count > b.hidden[msg.URL] {
		b.hidden[msg.URL] = count
	}
}

// BlockedCount is the number of requests blocked plus elements hidden for
// the page at pageURL since it was last navigated to.
func (b *Blocker) BlockedCount(pageURL string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hidden[pageURL] + b.vetoed[pageURL]
}

func (b *Blocker) ToolbarItems(page extension.Page) []extension.ToolbarItem {
	title := "Allow on this site"
	if page != nil && b.IsAllowed(extension.HostFromURL(page.URL())) {
		title = "Block on this site"
	}

	badge := ""
	if page != nil {
		if n := b.BlockedCount(page.URL()); n > 0 {
			badge = strconv.Itoa(n)
		}
	}
	return []extension.ToolbarItem{{ID: ToggleSiteID, Title: title, Icon: "shield", Badge: badge}}
}

// OnToolbarItemTapped toggles the page's site in the allow-list and reloads.
func (b *Blocker) OnToolbarItemTapped(page extension.Page) {
	if page == nil {
		return
	}
	host := extension.HostFromURL(page.URL())
	if host == "" {
		return
	}

	site := extension.RegistrableDomain(host)
	if b.IsAllowed(host) {
		b.Disallow(site)
		b.Disallow(host)
	} else {
		b.Allow(site)
	}

	if err := page.Reload(); err != nil {
		debugLog.Warnf("Reload after toggling %s failed: %v", site, err)
	}
}

// config.Section

func (b *Blocker) ID() string          { return preferenceKey }
func (b *Blocker) Title() string       { return "Content Blocker" }
func (b *Blocker) Description() string { return "Sites exempt from content blocking" }

func (b *Blocker) Data() map[string]interface{} {
	return map[string]interface{}{"allowlist": b.AllowList()}
}

func (b *Blocker) SetData(data map[string]interface{}) error {
	raw, ok := data["allowlist"]
	if !ok {
		return nil
	}
	list, err := config.StringSlice(raw)
	if err != nil {
		return fmt.Errorf("allowlist: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.allow = extension.NormalizeDomains(list)
	return nil
}

func (b *Blocker) Validate() error {
	return nil
}

func (b *Blocker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allow = nil
}
