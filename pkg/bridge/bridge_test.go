package bridge

import (
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webext/pkg/extension"
)

// pageShim stands in for the browser globals the prelude touches.
const pageShim = `
var listeners = {};
var store = {};
var posted = [];
var commands = [];
var cleared = 0;
var window = {
  location: { href: 'https://example.com/page' },
  addEventListener: function (name, fn) { (listeners[name] = listeners[name] || []).push(fn); },
  dispatchEvent: function (ev) {
    var fns = listeners[ev.type] || [];
    for (var i = 0; i < fns.length; i++) { fns[i](ev); }
    return true;
  },
  localStorage: {
    getItem: function (k) { return Object.prototype.hasOwnProperty.call(store, k) ? store[k] : null; },
    setItem: function (k, v) { store[k] = String(v); },
    removeItem: function (k) { delete store[k]; }
  },
  setTimeout: function () { return 1; },
  setInterval: function () { return 2; },
  clearTimeout: function () { cleared++; },
  clearInterval: function () { cleared++; },
  __webextBridge: function (raw) { posted.push(raw); }
};
function CustomEvent(type, init) { this.type = type; this.detail = init && init.detail; }
`

func newPage(t *testing.T) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	_, err := vm.RunString(pageShim)
	require.NoError(t, err)
	return vm
}

func postedMessages(t *testing.T, vm *goja.Runtime) []extension.Message {
	t.Helper()
	var raws []string
	require.NoError(t, vm.ExportTo(vm.Get("posted"), &raws))

	msgs := make([]extension.Message, 0, len(raws))
	for _, raw := range raws {
		msg, err := Decode(raw)
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestWrapCompiles(t *testing.T) {
	wrapped := Wrap("content-blocker", "var n = 1; // trailing comment")
	_, err := goja.Compile("wrapped.js", wrapped, false)
	require.NoError(t, err)
	assert.Contains(t, wrapped, `"content-blocker"`)
	assert.Contains(t, wrapped, HandlerName)
}

func TestWrapEscapesExtensionID(t *testing.T) {
	wrapped := Wrap(`evil"); alert(1); ("`, "webext.sendMessage('content-blocked', {})")
	_, err := goja.Compile("wrapped.js", wrapped, false)
	require.NoError(t, err)
}

func TestWrappedScriptMessaging(t *testing.T) {
	vm := newPage(t)

	_, err := vm.RunString(Wrap("counter", `
webext.sendMessage('content-blocked', { count: 3 });
webext.storage.set('visits', 5);
webext.storage.remove('gone');
`))
	require.NoError(t, err)

	msgs := postedMessages(t, vm)
	require.Len(t, msgs, 3)

	assert.Equal(t, "counter", msgs[0].ExtensionID)
	assert.Equal(t, extension.MessageContentBlocked, msgs[0].Type)
	assert.Equal(t, float64(3), msgs[0].Payload["count"])
	assert.Equal(t, "https://example.com/page", msgs[0].URL)

	assert.Equal(t, extension.MessageStorageUpdated, msgs[1].Type)
	assert.Equal(t, "visits", msgs[1].Payload["key"])
	assert.Equal(t, true, msgs[2].Payload["removed"])

	stored := vm.Get("store").ToObject(vm).Get("webext:counter:visits")
	assert.Equal(t, "5", stored.String())
}

func TestStorageIsScopedPerExtension(t *testing.T) {
	vm := newPage(t)

	_, err := vm.RunString(Wrap("a", "webext.storage.set('k', 'from-a');"))
	require.NoError(t, err)
	_, err = vm.RunString(Wrap("b", "seenByB = webext.storage.get('k', 'none');"))
	require.NoError(t, err)
	_, err = vm.RunString(Wrap("a", "seenByA = webext.storage.get('k', 'none');"))
	require.NoError(t, err)

	assert.Equal(t, "none", vm.Get("seenByB").String())
	assert.Equal(t, "from-a", vm.Get("seenByA").String())
}

func TestCommandDelivery(t *testing.T) {
	vm := newPage(t)

	_, err := vm.RunString(Wrap("dark-mode", `
webext.onCommand(function (command, payload) { commands.push(command + ':' + (payload.palette || '')); });
`))
	require.NoError(t, err)

	script, err := CommandScript("dark-mode", "dark-mode:toggle", map[string]interface{}{"palette": "sepia"})
	require.NoError(t, err)
	_, err = goja.Compile("command.js", script, false)
	require.NoError(t, err)

	_, err = vm.RunString(script)
	require.NoError(t, err)
	_, err = vm.RunString(script)
	require.NoError(t, err, "replaying the same command is harmless")

	other, err := CommandScript("user-agent", "dark-mode:toggle", nil)
	require.NoError(t, err)
	_, err = vm.RunString(other)
	require.NoError(t, err)

	var commands []string
	require.NoError(t, vm.ExportTo(vm.Get("commands"), &commands))
	assert.Equal(t, []string{"dark-mode:toggle:sepia"}, commands)

	second, err := CommandScript("dark-mode", "dark-mode:toggle", nil)
	require.NoError(t, err)
	assert.NotEqual(t, script, second, "each call carries a fresh id")
}

func TestPagehideClearsTimers(t *testing.T) {
	vm := newPage(t)

	_, err := vm.RunString(Wrap("timers", `
webext.setTimeout(function () {}, 100);
webext.setInterval(function () {}, 100);
`))
	require.NoError(t, err)

	_, err = vm.RunString(`window.dispatchEvent({ type: 'pagehide' });`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), vm.Get("cleared").ToInteger())

	_, err = vm.RunString(`window.dispatchEvent({ type: 'pagehide' });`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), vm.Get("cleared").ToInteger(), "timers are only cleared once")
}

func TestDecode(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		msg, err := Decode(`{"extensionId":"a","type":"storage-updated","payload":{"key":"k"},"url":"https://x.test"}`)
		require.NoError(t, err)
		assert.Equal(t, "a", msg.ExtensionID)
		assert.Equal(t, "k", msg.Payload["key"])
	})

	t.Run("bytes without payload", func(t *testing.T) {
		msg, err := Decode([]byte(`{"extensionId":"a","type":"content-blocked"}`))
		require.NoError(t, err)
		assert.NotNil(t, msg.Payload)
	})

	t.Run("map", func(t *testing.T) {
		msg, err := Decode(map[string]interface{}{"extensionId": "a", "type": "content-blocked"})
		require.NoError(t, err)
		assert.Equal(t, extension.MessageContentBlocked, msg.Type)
	})

	t.Run("unknown type", func(t *testing.T) {
		msg, err := Decode(`{"extensionId":"a","type":"telemetry"}`)
		assert.ErrorIs(t, err, ErrUnknownType)
		assert.Equal(t, "a", msg.ExtensionID)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := Decode(`{"type":"content-blocked"}`)
		assert.ErrorIs(t, err, ErrMissingExtensionID)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, raw := range []interface{}{`not json`, `{"extensionId":5}`, 42, nil} {
			_, err := Decode(raw)
			assert.ErrorIs(t, err, ErrMalformedMessage, "%v", raw)
		}
	})
}

type recordingReceiver struct {
	got   []extension.Message
	fail  bool
}

func (r *recordingReceiver) OnMessage(msg extension.Message) {
	if r.fail {
		panic("boom")
	}
	r.got = append(r.got, msg)
}

func TestDispatcher(t *testing.T) {
	live := &recordingReceiver{}
	faulty := &recordingReceiver{fail: true}
	receivers := map[string]Receiver{"live": live, "faulty": faulty}

	d := NewDispatcher(func(id string) (Receiver, bool) {
		r, ok := receivers[id]
		return r, ok
	})

	require.NoError(t, d.Handle(`{"extensionId":"live","type":"content-blocked","payload":{"count":1}}`))
	require.Len(t, live.got, 1)

	err := d.Handle(`{"extensionId":"removed","type":"content-blocked"}`)
	assert.True(t, errors.Is(err, ErrNoReceiver))

	assert.ErrorIs(t, d.Handle(`{"extensionId":"live","type":"whatever"}`), ErrUnknownType)
	assert.ErrorIs(t, d.Handle(`garbage`), ErrMalformedMessage)
	assert.ErrorIs(t, d.Handle(`{"extensionId":"faulty","type":"content-blocked"}`), ErrReceiverPanic)

	assert.Len(t, live.got, 1, "dropped messages never reach receivers")
	assert.Equal(t, Stats{Delivered: 1, Dropped: 4}, d.Stats())
}
