package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coni-eng/HyperIsle-sub002/internal/event"
	"github.com/coni-eng/HyperIsle-sub002/internal/island"
)

// fakeEngine records forwarded calls.
type fakeEngine struct {
	events     []event.Event
	dismissed  []string
	dismissAll int
	foreground string
	expanded   *bool
	collapsed  *bool
	replying   *bool
}

func (f *fakeEngine) HandleEvent(ev event.Event) { f.events = append(f.events, ev) }
func (f *fakeEngine) UserDismiss(key, reason string) {
	f.dismissed = append(f.dismissed, key)
}
func (f *fakeEngine) DismissAll(reason string) { f.dismissAll++ }
func (f *fakeEngine) UpdateUIState(expanded, collapsed, replying *bool) {
	f.expanded, f.collapsed, f.replying = expanded, collapsed, replying
}
func (f *fakeEngine) SetForegroundPackage(pkg string) { f.foreground = pkg }
func (f *fakeEngine) Snapshot() island.Snapshot {
	return island.Snapshot{ActiveKey: "k1", Stats: island.Stats{Accepted: 2}}
}

func TestDecodeEvent_Notification(t *testing.T) {
	payload := `{
		"kind": "notification",
		"key": "0|com.chat.app|42",
		"package": "com.chat.app",
		"notification": {"title": "Alice", "text": "hi", "has_reply_action": true}
	}`

	ev, err := DecodeEvent([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, event.KindNotification, ev.Kind)
	assert.Equal(t, "0|com.chat.app|42", ev.NotificationKey)
	assert.Equal(t, "com.chat.app", ev.PackageName)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, "Alice", ev.Notification.Title)
	assert.True(t, ev.Notification.HasReplyAction)
	assert.NotEmpty(t, ev.EventID)
}

func TestDecodeEvent_Call(t *testing.T) {
	payload := `{"kind": "incoming_call", "key": "call:1", "call": {"caller": "Bob"}}`

	ev, err := DecodeEvent([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, event.KindIncomingCall, ev.Kind)
	require.NotNil(t, ev.Call)
	assert.Equal(t, "Bob", ev.Call.Caller)
}

func TestDecodeEvent_DismissAllWithoutKey(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"kind": "dismiss_all", "dismiss": {"reason": "shade"}}`))
	require.NoError(t, err)
	assert.Equal(t, event.KindDismissAll, ev.Kind)
	assert.Equal(t, "shade", ev.Reason(""))
}

func TestDecodeEvent_IgnoresMismatchedPayloads(t *testing.T) {
	// A media envelope carrying a notification section keeps only media.
	payload := `{
		"kind": "media",
		"key": "session:1",
		"media": {"title": "Song", "playing": true},
		"notification": {"title": "bogus"}
	}`

	ev, err := DecodeEvent([]byte(payload))
	require.NoError(t, err)
	require.NotNil(t, ev.Media)
	assert.Nil(t, ev.Notification)
}

func TestDecodeEvent_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"kind": `},
		{"unknown kind", `{"kind": "weather", "key": "k"}`},
		{"missing key", `{"kind": "notification"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestServer_SubmitEvent(t *testing.T) {
	eng := &fakeEngine{}
	srv := NewServer(eng, nil)

	derr := srv.SubmitEvent(`{"kind": "timer", "key": "timer:1", "timer": {"ringing": true}}`)
	require.Nil(t, derr)

	require.Len(t, eng.events, 1)
	assert.Equal(t, event.KindTimer, eng.events[0].Kind)
	require.NotNil(t, eng.events[0].Timer)
	assert.True(t, eng.events[0].Timer.Ringing)
}

func TestServer_SubmitEvent_BadPayload(t *testing.T) {
	eng := &fakeEngine{}
	srv := NewServer(eng, nil)

	derr := srv.SubmitEvent(`not json`)
	assert.NotNil(t, derr)
	assert.Empty(t, eng.events)
}

func TestServer_UpdateUiState_ValidityFlags(t *testing.T) {
	eng := &fakeEngine{}
	srv := NewServer(eng, nil)

	derr := srv.UpdateUiState(true, true, false, false, true, false)
	require.Nil(t, derr)

	require.NotNil(t, eng.expanded)
	assert.True(t, *eng.expanded)
	assert.Nil(t, eng.collapsed)
	require.NotNil(t, eng.replying)
	assert.False(t, *eng.replying)
}

func TestServer_ForwardsMetaCalls(t *testing.T) {
	eng := &fakeEngine{}
	srv := NewServer(eng, nil)

	require.Nil(t, srv.UserDismiss("k1", "swipe"))
	require.Nil(t, srv.DismissAll("shade"))
	require.Nil(t, srv.SetForeground("com.maps.app"))

	assert.Equal(t, []string{"k1"}, eng.dismissed)
	assert.Equal(t, 1, eng.dismissAll)
	assert.Equal(t, "com.maps.app", eng.foreground)
}

func TestServer_Ping(t *testing.T) {
	srv := NewServer(&fakeEngine{}, nil)
	reply, derr := srv.Ping()
	require.Nil(t, derr)
	assert.Equal(t, "pong", reply)
}

func TestServer_Status(t *testing.T) {
	srv := NewServer(&fakeEngine{}, nil)
	out, derr := srv.Status()
	require.Nil(t, derr)
	assert.Contains(t, out, `"active_key":"k1"`)
	assert.Contains(t, out, `"accepted":2`)
}
