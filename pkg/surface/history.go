package surface

import "sync"

// history mirrors the main-frame session history of a tab so navigation
// state can be reported without asking the page.
type history struct {
	mu      sync.Mutex
	entries []string
	index   int
	pending bool // a back/forward move awaits its commit
}

func newHistory() *history {
	return &history{index: -1}
}

// commit records a committed main-frame navigation. After a back or forward
// move the commit lands on the current entry; otherwise forward entries are
// discarded and url is appended. Same-URL commits (reloads) change nothing.
func (h *history) commit(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending {
		h.pending = false
		if h.index >= 0 && h.index < len(h.entries) {
			h.entries[h.index] = url
			return
		}
	}
	if h.index >= 0 && h.entries[h.index] == url {
		return
	}
	h.entries = append(h.entries[:h.index+1], url)
	h.index = len(h.entries) - 1
}

// move steps delta entries, clamped to the recorded range.
func (h *history) move(delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		return
	}
	h.index = next
	h.pending = true
}

func (h *history) state() (canGoBack, canGoForward bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0, h.index < len(h.entries)-1
}

func (h *history) current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index < 0 {
		return ""
	}
	return h.entries[h.index]
}
