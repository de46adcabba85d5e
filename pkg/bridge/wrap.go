// Package bridge connects injected page scripts to the host. Wrap gives
// every script a per-extension webext API that posts JSON messages to an
// exposed binding; the Dispatcher decodes them on the host side and routes
// them to the owning extension. Commands travel the other way as a
// CustomEvent evaluated in the page.
package bridge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// HandlerName is the page binding scripts post messages to.
	HandlerName = "__webextBridge"

	// CommandEvent is the CustomEvent type carrying host commands.
	CommandEvent = "webext:command"
)

//go:embed bridge.js
var preludeSource string

// Wrap returns source enclosed in a function scope that receives the
// webext API bound to extensionID.
func Wrap(extensionID, source string) string {
	var b strings.Builder
	b.Grow(len(preludeSource) + len(source) + 128)

	b.WriteString("(function (webext) {\n")
	b.WriteString(source)
	b.WriteString("\n})(")
	b.WriteString(strings.TrimSpace(preludeSource))
	b.WriteString("(")
	b.WriteString(jsString(extensionID))
	b.WriteString(", ")
	b.WriteString(jsString(HandlerName))
	b.WriteString("));\n")
	return b.String()
}

// CommandScript returns JavaScript that delivers command to the listener of
// extensionID. Each call carries a fresh id so a page delivers it at most
// once.
func CommandScript(extensionID, command string, payload map[string]interface{}) (string, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	detail, err := json.Marshal(map[string]interface{}{
		"id":          uuid.NewString(),
		"extensionId": extensionID,
		"command":     command,
		"payload":     payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode command payload: %w", err)
	}
	return fmt.Sprintf("window.dispatchEvent(new CustomEvent(%s, { detail: %s }));", jsString(CommandEvent), detail), nil
}

func jsString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}
