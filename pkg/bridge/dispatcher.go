package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	debugLog = logging.MustLogger("bridge")
}

var (
	ErrMalformedMessage   = errors.New("malformed bridge message")
	ErrMissingExtensionID = errors.New("bridge message has no extension id")
	ErrUnknownType        = errors.New("unknown bridge message type")
	ErrNoReceiver         = errors.New("no receiver for extension")
	ErrReceiverPanic      = errors.New("receiver panicked")
)

type wireMessage struct {
	ExtensionID string                 `json:"extensionId"`
	Type        string                 `json:"type"`
	Payload     map[string]interface{} `json:"payload"`
	URL         string                 `json:"url"`
}

// Decode parses a message posted by page-side code. raw may be a JSON
// string, a byte slice or an already decoded map. A message with an unknown
// type is returned alongside ErrUnknownType.
func Decode(raw interface{}) (extension.Message, error) {
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case map[string]interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return extension.Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		data = encoded
	default:
		return extension.Message{}, fmt.Errorf("%w: unsupported payload %T", ErrMalformedMessage, raw)
	}

	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return extension.Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if wire.ExtensionID == "" {
		return extension.Message{}, ErrMissingExtensionID
	}
	if wire.Payload == nil {
		wire.Payload = map[string]interface{}{}
	}

	msg := extension.Message{
		ExtensionID: wire.ExtensionID,
		Type:        extension.MessageType(wire.Type),
		Payload:     wire.Payload,
		URL:         wire.URL,
	}
	if !extension.KnownMessageType(msg.Type) {
		return msg, fmt.Errorf("%w: %q", ErrUnknownType, wire.Type)
	}
	return msg, nil
}

// Receiver accepts decoded messages for one extension.
type Receiver interface {
	OnMessage(msg extension.Message)
}

// Stats counts handled messages.
type Stats struct {
	Delivered int64
	Dropped   int64
}

// Dispatcher routes raw bridge payloads to receivers by extension id.
type Dispatcher struct {
	lookup    func(extensionID string) (Receiver, bool)
	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewDispatcher creates a dispatcher resolving receivers through lookup.
func NewDispatcher(lookup func(extensionID string) (Receiver, bool)) *Dispatcher {
	return &Dispatcher{lookup: lookup}
}

// Handle decodes raw and delivers it. Nothing is fatal: the returned error
// says why a message was dropped and is also logged.
func (d *Dispatcher) Handle(raw interface{}) error {
	msg, err := Decode(raw)
	if err != nil {
		d.dropped.Add(1)
		debugLog.Warnf("Dropping bridge message: %v", err)
		return err
	}

	receiver, ok := d.lookup(msg.ExtensionID)
	if !ok {
		// Late message from a page whose extension was disabled or removed.
		d.dropped.Add(1)
		debugLog.Debugf("Dropping %s message for %s: no receiver", msg.Type, msg.ExtensionID)
		return fmt.Errorf("%w %s", ErrNoReceiver, msg.ExtensionID)
	}

	if err := deliver(receiver, msg); err != nil {
		d.dropped.Add(1)
		debugLog.Errorf("Receiver %s failed on %s: %v", msg.ExtensionID, msg.Type, err)
		return err
	}
	d.delivered.Add(1)
	return nil
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{Delivered: d.delivered.Load(), Dropped: d.dropped.Load()}
}

func deliver(receiver Receiver, msg extension.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrReceiverPanic, r)
		}
	}()
	receiver.OnMessage(msg)
	return nil
}
