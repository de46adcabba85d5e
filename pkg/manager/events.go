package manager

import (
	"sync"
	"time"

	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/surface"
)

// Notify delivers event to every enabled extension active for its domain,
// or to every enabled extension when the event has no domain. Extensions
// are called one at a time in install order; one that does not return
// within the event timeout is left running and the next is called.
func (m *Manager) Notify(event extension.Event) {
	domain := event.EffectiveDomain()
	if domain == "" {
		m.deliver(m.enabled(), event)
		return
	}
	m.deliver(m.activeFor(domain), event)
}

func (m *Manager) deliver(exts []extension.Extension, event extension.Event) {
	for _, ext := range exts {
		m.handleEvent(ext, event)
	}
}

func (m *Manager) handleEvent(ext extension.Extension, event extension.Event) {
	id := ext.Metadata().ID
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer recovered(id, "HandleEvent("+string(event.Type)+")")
		ext.HandleEvent(event)
	}()

	timer := time.NewTimer(m.eventTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		debugLog.Warnf("Extension %s did not handle %s within %v", id, event.Type, m.eventTimeout)
	}
}

// Observer translates navigation callbacks of the surface showing page into
// extension events.
func (m *Manager) Observer(page extension.Page) surface.NavigationObserver {
	return &navigationObserver{manager: m, page: page}
}

type navigationObserver struct {
	manager *Manager
	page    extension.Page

	mu      sync.Mutex
	current string
}

func (o *navigationObserver) OnStart(url string) {
	o.mu.Lock()
	previous := o.current
	o.current = url
	o.mu.Unlock()

	if previous == "" {
		return
	}
	o.manager.Notify(extension.Event{
		Type: extension.EventPageUnload,
		URL:  previous,
		Page: o.page,
	})
}

func (o *navigationObserver) OnFinish(state surface.NavigationState) {
	o.mu.Lock()
	o.current = state.FinalURL
	o.mu.Unlock()

	for _, eventType := range []extension.EventType{extension.EventDocumentEnd, extension.EventPageLoad} {
		o.manager.Notify(extension.Event{
			Type: eventType,
			URL:  state.FinalURL,
			Page: o.page,
			Data: map[string]interface{}{"title": state.Title},
		})
	}
}

func (o *navigationObserver) OnFail(url string, err error) {
	o.manager.Notify(extension.Event{
		Type: extension.EventNavigationFailed,
		URL:  url,
		Page: o.page,
		Err:  err,
	})
}
