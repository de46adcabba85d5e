package extension

// EventType identifies a page lifecycle or content event.
type EventType string

const (
	EventPageLoad             EventType = "page-load"
	EventPageUnload           EventType = "page-unload"
	EventDocumentStart        EventType = "document-start"
	EventDocumentEnd          EventType = "document-end"
	EventContentBlocked       EventType = "content-blocked"
	EventFormSubmission       EventType = "form-submission"
	EventActionClicked        EventType = "action-clicked"
	EventContextMenuActivated EventType = "context-menu-activated"
	EventNavigationFailed     EventType = "navigation-failed"
)

// Event is delivered to every enabled extension active for its domain.
type Event struct {
	Type EventType
	URL  string

	// Domain overrides the host derived from URL.
	Domain string

	Page Page
	Data map[string]interface{}
	Err  error
}

// EffectiveDomain is Domain when set, otherwise the host of URL. Empty
// means the event is not tied to a domain.
func (e Event) EffectiveDomain() string {
	if e.Domain != "" {
		return NormalizeDomain(e.Domain)
	}
	return HostFromURL(e.URL)
}
