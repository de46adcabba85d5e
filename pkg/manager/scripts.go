package manager

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/entrhq/webext/pkg/bridge"
	"github.com/entrhq/webext/pkg/extension"
)

// ScriptRegistrar is the part of a rendering surface that receives
// injected scripts.
type ScriptRegistrar interface {
	RegisterScript(source string, timing extension.InjectionTiming, mainFrameOnly bool)
	ClearScripts()
}

// maxCachedURLs bounds the script cache of each extension. The least
// recently used URL is evicted first.
const maxCachedURLs = 64

type scriptCache = lru.Cache[string, []extension.Script]

func newScriptCache() *scriptCache {
	cache, _ := lru.New[string, []extension.Script](maxCachedURLs) // only fails for a non-positive size
	return cache
}

// ScriptsFor returns the scripts extension id wants injected into url. The
// result is cached until the extension is toggled, uninstalled or
// InvalidateScripts is called.
func (m *Manager) ScriptsFor(id, url string) []extension.Script {
	m.mu.RLock()
	ext, ok := m.index[id]
	var (
		cached []extension.Script
		hit    bool
	)
	if cache := m.scripts[id]; cache != nil {
		cached, hit = cache.Get(url)
	}
	m.mu.RUnlock()

	if !ok {
		return nil
	}
	if hit {
		return cached
	}

	scripts := safeScripts(ext, url)

	m.mu.Lock()
	// Skip caching if the extension went away while its hook ran.
	if _, still := m.index[id]; still {
		if m.scripts[id] == nil {
			m.scripts[id] = newScriptCache()
		}
		m.scripts[id].Add(url, scripts)
	}
	m.mu.Unlock()

	return scripts
}

// InvalidateScripts drops cached scripts for the given extensions, or for
// every extension when none are named.
func (m *Manager) InvalidateScripts(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(ids) == 0 {
		m.scripts = make(map[string]*scriptCache)
		return
	}
	for _, id := range ids {
		delete(m.scripts, id)
	}
}

// PrepareContentForNavigation replaces the scripts registered with surface
// by those the active extensions want for url, then tells those extensions
// a document is starting. It returns how many scripts were registered.
func (m *Manager) PrepareContentForNavigation(page extension.Page, surface ScriptRegistrar, url string) int {
	surface.ClearScripts()

	domain := extension.HostFromURL(url)
	active := m.activeFor(domain)

	type pending struct {
		id     string
		script extension.Script
	}
	byTiming := make(map[extension.InjectionTiming][]pending)

	for _, ext := range active {
		meta := ext.Metadata()
		if !meta.Has(extension.CapInjectScripts) {
			continue
		}
		for _, script := range m.ScriptsFor(meta.ID, url) {
			if !script.AppliesTo(url) {
				continue
			}
			byTiming[script.Timing] = append(byTiming[script.Timing], pending{id: meta.ID, script: script})
		}
	}

	count := 0
	for _, timing := range extension.AllTimings() {
		for _, p := range byTiming[timing] {
			surface.RegisterScript(bridge.Wrap(p.id, p.script.Source), timing, p.script.MainFrameOnly)
			count++
		}
	}

	debugLog.Debugf("Registered %d scripts from %d active extensions for %s", count, len(active), url)

	m.deliver(active, extension.Event{
		Type:   extension.EventDocumentStart,
		URL:    url,
		Domain: domain,
		Page:   page,
	})
	return count
}
