package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-automator/src/models"
)

// -----------------------------------------------------------------------------

func TestHandleMessage_BarePing(t *testing.T) {
	hub := newTestHub()
	s := hubSession(hub, "a")
	hub.RegisterSession(s)

	s.handleMessage([]byte("PING"))

	got := drain(s)
	require.Len(t, got, 1)
	assert.Equal(t, models.MsgTypePong, got[0].Type)
	assert.Empty(t, got[0].Status, "bare ping gets the bare pong form")
}

func TestHandleMessage_EnvelopePing(t *testing.T) {
	hub := newTestHub()
	s := hubSession(hub, "a")
	hub.RegisterSession(s)

	s.handleMessage([]byte(`{"type":"PING"}`))

	got := drain(s)
	require.Len(t, got, 1)
	assert.Equal(t, models.MsgTypePong, got[0].Type)
	assert.Equal(t, "ok", got[0].Status)
}

func TestHandleMessage_MalformedKeepsSessionAlive(t *testing.T) {
	hub := newTestHub()
	hub.RegisterChannel("periods", &staticSource{})
	s := hubSession(hub, "a")
	hub.RegisterSession(s)

	s.handleMessage([]byte("{not json"))
	assert.Equal(t, 1, hub.ConnectionCount())

	// The session still works afterwards.
	s.handleMessage([]byte(`{"type":"SUB","channel":"periods"}`))
	got := drain(s)
	require.NotEmpty(t, got)
	assert.Equal(t, models.MsgTypeSubAck, got[0].Type)
}

func TestHandleMessage_SubAndUnsub(t *testing.T) {
	hub := newTestHub()
	hub.RegisterChannel("periods", &staticSource{})
	s := hubSession(hub, "a")
	hub.RegisterSession(s)

	s.handleMessage([]byte(`{"type":"SUB","channel":"periods","params":{"resolution":60}}`))
	assert.Equal(t, 1, hub.SubscriberCount("periods"))

	s.handleMessage([]byte(`{"type":"UNSUB","channel":"periods"}`))
	assert.Equal(t, 0, hub.SubscriberCount("periods"))
}

func TestHandleMessage_SubWithoutChannel(t *testing.T) {
	hub := newTestHub()
	s := hubSession(hub, "a")
	hub.RegisterSession(s)

	s.handleMessage([]byte(`{"type":"SUB"}`))
	assert.Empty(t, drain(s))
}

func TestHandleMessage_UnknownTypeIgnored(t *testing.T) {
	hub := newTestHub()
	s := hubSession(hub, "a")
	hub.RegisterSession(s)

	s.handleMessage([]byte(`{"type":"WHATEVER"}`))
	assert.Empty(t, drain(s))
	assert.Equal(t, 1, hub.ConnectionCount())
}

// -----------------------------------------------------------------------------

func TestEnqueue_AfterCloseDoesNotPanic(t *testing.T) {
	hub := newTestHub()
	s := hubSession(hub, "a")
	s.closeSend()

	ok := s.enqueue(models.MClientEnvelope{Type: models.MsgTypeData})
	assert.False(t, ok)
}
