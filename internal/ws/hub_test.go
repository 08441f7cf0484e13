package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatStore stands in for the persistence collaborator.
type fakeChatStore struct {
	nextID string
	err    error
	saved  int
}

func (f *fakeChatStore) SaveChatMessage(_ context.Context, _, _, _, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved++
	return f.nextID, nil
}

func newTestHub(chats ChatStore) *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), chats, NewRegistry(0), nil)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// join drives a join event through the dispatcher synchronously.
func join(t *testing.T, h *Hub, c *Conn, roomID string) {
	t.Helper()
	h.dispatch(event{conn: c, typ: evtJoin, data: mustJSON(t, joinPayload{RoomID: roomID})})
}

// recv drains every frame queued on the connection.
func recv(t *testing.T, c *Conn) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case b := <-c.out:
			var env Envelope
			require.NoError(t, json.Unmarshal(b, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func decode[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestJoinBackfillsThenBroadcastsMembership(t *testing.T) {
	h := newTestHub(nil)
	a := testConn()

	join(t, h, a, "p1")

	got := recv(t, a)
	require.Len(t, got, 3)
	// Snapshot and history land before any broadcast for this connection.
	assert.Equal(t, evtCodeSnapshot, got[0].Type)
	assert.Equal(t, evtChatHistory, got[1].Type)
	assert.Equal(t, evtMembershipChanged, got[2].Type)

	assert.Equal(t, "", decode[codeSnapshotPayload](t, got[0]).Code)
	assert.Empty(t, decode[chatHistoryPayload](t, got[1]).Events)
	assert.Equal(t, 1, decode[membershipPayload](t, got[2]).ParticipantCount)
}

func TestJoinIsReconnectSafe(t *testing.T) {
	h := newTestHub(nil)
	a := testConn()

	join(t, h, a, "p1")
	join(t, h, a, "p1")

	room, ok := h.registry.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 1, room.Count())
}

func TestCollaborationScenario(t *testing.T) {
	h := newTestHub(nil)
	a, b := testConn(), testConn()

	// A joins p1 and sees count=1.
	join(t, h, a, "p1")
	got := recv(t, a)
	assert.Equal(t, 1, decode[membershipPayload](t, got[2]).ParticipantCount)

	// B joins p1; both see count=2 (inclusive broadcast).
	join(t, h, b, "p1")
	gotA, gotB := recv(t, a), recv(t, b)
	require.Len(t, gotA, 1)
	assert.Equal(t, 2, decode[membershipPayload](t, gotA[0]).ParticipantCount)
	assert.Equal(t, 2, decode[membershipPayload](t, gotB[2]).ParticipantCount)

	// A edits code; B gets the update, A does not (sender-exclusive).
	h.dispatch(event{conn: a, typ: evtCodeChange, data: mustJSON(t, codeChangePayload{RoomID: "p1", Code: "print(1)"})})
	assert.Empty(t, recv(t, a))
	gotB = recv(t, b)
	require.Len(t, gotB, 1)
	assert.Equal(t, evtCodeUpdated, gotB[0].Type)
	assert.Equal(t, "print(1)", decode[codeSnapshotPayload](t, gotB[0]).Code)

	// A disconnects; B sees count=1.
	h.dispatch(event{conn: a, typ: evtDisconnect})
	gotB = recv(t, b)
	require.Len(t, gotB, 1)
	assert.Equal(t, 1, decode[membershipPayload](t, gotB[0]).ParticipantCount)

	// B chats with a pre-assigned persisted ID; relay is sender-inclusive.
	h.dispatch(event{conn: b, typ: evtChatRelayed, chatRoom: "p1", chat: &ChatEvent{
		SenderID: b.senderID(), Text: "hi", PersistedID: "m1",
	}})
	gotB = recv(t, b)
	require.Len(t, gotB, 1)
	assert.Equal(t, evtChatRelayed, gotB[0].Type)
	assert.Equal(t, "m1", decode[chatRelayedPayload](t, gotB[0]).Event.PersistedID)
}

func TestLateJoinerReceivesCodeAndScrollback(t *testing.T) {
	h := newTestHub(nil)
	a := testConn()
	join(t, h, a, "p1")
	recv(t, a)

	h.dispatch(event{conn: a, typ: evtCodeChange, data: mustJSON(t, codeChangePayload{RoomID: "p1", Code: "x = 1"})})
	h.dispatch(event{conn: a, typ: evtChatRelayed, chatRoom: "p1", chat: &ChatEvent{Text: "first", PersistedID: "m1"}})
	recv(t, a)

	b := testConn()
	join(t, h, b, "p1")
	got := recv(t, b)
	require.Len(t, got, 3)
	assert.Equal(t, "x = 1", decode[codeSnapshotPayload](t, got[0]).Code)

	hist := decode[chatHistoryPayload](t, got[1]).Events
	require.Len(t, hist, 1)
	assert.Equal(t, "first", hist[0].Text)
}

func TestChatPersistAssignsID(t *testing.T) {
	chats := &fakeChatStore{nextID: "m42"}
	h := newTestHub(chats)
	a := testConn()
	join(t, h, a, "p1")
	recv(t, a)

	raw := mustJSON(t, Envelope{Type: evtChatMessage, Data: mustJSON(t, chatMessagePayload{RoomID: "p1", Text: "hello"})})
	h.route(context.Background(), a, raw)
	h.dispatch(<-h.events)

	got := recv(t, a)
	require.Len(t, got, 1)
	relayed := decode[chatRelayedPayload](t, got[0])
	assert.Equal(t, "m42", relayed.Event.PersistedID)
	assert.Equal(t, 1, chats.saved)

	room, _ := h.registry.Get("p1")
	require.Len(t, room.History(), 1)
	assert.Equal(t, "m42", room.History()[0].PersistedID)
}

func TestChatPersistFailureIsFailClosed(t *testing.T) {
	chats := &fakeChatStore{err: errors.New("db down")}
	h := newTestHub(chats)
	a, b := testConn(), testConn()
	join(t, h, a, "p1")
	join(t, h, b, "p1")
	recv(t, a)
	recv(t, b)

	raw := mustJSON(t, Envelope{Type: evtChatMessage, Data: mustJSON(t, chatMessagePayload{RoomID: "p1", Text: "hello"})})
	h.route(context.Background(), a, raw)

	// Nothing reached the dispatch loop.
	assert.Empty(t, h.events)

	// Sender alone hears about the failure; the room stays silent.
	gotA := recv(t, a)
	require.Len(t, gotA, 1)
	assert.Equal(t, evtChatError, gotA[0].Type)
	assert.Empty(t, recv(t, b))

	room, _ := h.registry.Get("p1")
	assert.Empty(t, room.History(), "scrollback unchanged on failure")
}

func TestSolutionEventsRelaySenderExclusive(t *testing.T) {
	h := newTestHub(nil)
	a, b := testConn(), testConn()
	join(t, h, a, "p1")
	join(t, h, b, "p1")
	recv(t, a)
	recv(t, b)

	data := mustJSON(t, map[string]any{"roomId": "p1", "solutionId": "s1", "votes": 3})
	h.dispatch(event{conn: a, typ: evtVoteChanged, data: data})

	assert.Empty(t, recv(t, a))
	got := recv(t, b)
	require.Len(t, got, 1)
	assert.Equal(t, evtVoteChanged, got[0].Type)
	assert.JSONEq(t, string(data), string(got[0].Data), "relay payload passes through verbatim")
}

func TestLeaveTearsDownEmptyRoom(t *testing.T) {
	h := newTestHub(nil)
	a := testConn()
	join(t, h, a, "p1")
	recv(t, a)

	h.dispatch(event{conn: a, typ: evtCodeChange, data: mustJSON(t, codeChangePayload{RoomID: "p1", Code: "leftover"})})
	h.dispatch(event{conn: a, typ: evtLeave, data: mustJSON(t, leavePayload{RoomID: "p1"})})
	assert.Equal(t, 0, h.registry.Len())

	// A fresh join must start clean, with no leakage from the prior session.
	b := testConn()
	join(t, h, b, "p1")
	got := recv(t, b)
	assert.Equal(t, "", decode[codeSnapshotPayload](t, got[0]).Code)
	assert.Empty(t, decode[chatHistoryPayload](t, got[1]).Events)
}

func TestDisconnectLeavesEveryJoinedRoom(t *testing.T) {
	h := newTestHub(nil)
	a, b := testConn(), testConn()
	join(t, h, a, "p1")
	join(t, h, a, "p2")
	join(t, h, b, "p2")
	recv(t, a)
	recv(t, b)

	h.dispatch(event{conn: a, typ: evtDisconnect})

	assert.Equal(t, 1, h.registry.Len(), "p1 emptied and removed, p2 survives")
	got := recv(t, b)
	require.Len(t, got, 1)
	assert.Equal(t, 1, decode[membershipPayload](t, got[0]).ParticipantCount)

	// A second disconnect for the same connection is harmless.
	h.dispatch(event{conn: a, typ: evtDisconnect})
}

func TestMalformedAndUnknownEventsAreDropped(t *testing.T) {
	h := newTestHub(nil)
	a := testConn()

	// Missing roomId.
	h.dispatch(event{conn: a, typ: evtJoin, data: mustJSON(t, joinPayload{})})
	// Unknown rooms are idempotent no-ops.
	h.dispatch(event{conn: a, typ: evtLeave, data: mustJSON(t, leavePayload{RoomID: "ghost"})})
	h.dispatch(event{conn: a, typ: evtCodeChange, data: mustJSON(t, codeChangePayload{RoomID: "ghost", Code: "x"})})
	// Garbage payload.
	h.dispatch(event{conn: a, typ: evtCodeChange, data: json.RawMessage(`{"roomId":42}`)})
	// Unknown event type via route.
	h.route(context.Background(), a, []byte(`{"type":"mystery"}`))
	// Unparseable frame via route.
	h.route(context.Background(), a, []byte(`not json`))

	assert.Empty(t, recv(t, a))
	assert.Equal(t, 0, h.registry.Len())
}

func TestNotifyUserReachesAllUserConnections(t *testing.T) {
	h := newTestHub(nil)
	phone := newConn(nil, "u1", "Asha")
	laptop := newConn(nil, "u1", "Asha")
	other := newConn(nil, "u2", "Ben")
	h.dispatch(event{conn: phone, typ: evtConnect})
	h.dispatch(event{conn: laptop, typ: evtConnect})
	h.dispatch(event{conn: other, typ: evtConnect})

	h.dispatch(event{typ: evtNotification, user: "u1", data: mustJSON(t, map[string]string{"type": "new_message"})})

	require.Len(t, recv(t, phone), 1)
	require.Len(t, recv(t, laptop), 1)
	assert.Empty(t, recv(t, other))
}

func TestStatsTrackMembership(t *testing.T) {
	h := newTestHub(nil)
	a, b := testConn(), testConn()
	join(t, h, a, "p1")
	join(t, h, b, "p1")
	join(t, h, b, "p2")

	rooms, participants := h.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, int64(3), participants)

	h.dispatch(event{conn: b, typ: evtDisconnect})
	rooms, participants = h.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, int64(1), participants)
}
