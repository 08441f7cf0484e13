package ws

import (
	"encoding/json"
	"time"
)

// Inbound event types, matching the names the frontend emits.
const (
	evtJoin              = "join"
	evtLeave             = "leave"
	evtCodeChange        = "code-change"
	evtChatMessage       = "chat-message"
	evtSolutionSubmitted = "solution-submitted"
	evtVoteChanged       = "vote-changed"
	evtSolutionAccepted  = "solution-accepted"

	// Transport-level, synthesized by the read loop on close.
	evtDisconnect = "disconnect"
)

// Outbound event types.
const (
	evtCodeSnapshot      = "room-code-snapshot"
	evtChatHistory       = "room-chat-history"
	evtMembershipChanged = "membership-changed"
	evtCodeUpdated       = "code-updated"
	evtChatRelayed       = "chat-relayed"
	evtChatError         = "chat-error"
	evtNotification      = "notification"
)

// Envelope is the wire frame: a type discriminator plus a typed payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type joinPayload struct {
	RoomID string `json:"roomId"`
}

type leavePayload struct {
	RoomID string `json:"roomId"`
}

type codeChangePayload struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type chatMessagePayload struct {
	RoomID      string `json:"roomId"`
	Text        string `json:"text"`
	PersistedID string `json:"persistedId,omitempty"`
}

// roomScoped is the minimal decode used for pure relays, which are
// forwarded without interpretation beyond routing.
type roomScoped struct {
	RoomID string `json:"roomId"`
}

// ChatEvent is one relayed chat message, also kept in the room scrollback.
type ChatEvent struct {
	SenderID    string    `json:"senderId"`
	SenderName  string    `json:"senderName"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sentAt"`
	PersistedID string    `json:"persistedId,omitempty"`
}

type codeSnapshotPayload struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type chatHistoryPayload struct {
	RoomID string      `json:"roomId"`
	Events []ChatEvent `json:"events"`
}

type membershipPayload struct {
	RoomID           string `json:"roomId"`
	ParticipantCount int    `json:"participantCount"`
}

type chatRelayedPayload struct {
	RoomID string    `json:"roomId"`
	Event  ChatEvent `json:"event"`
}

type chatErrorPayload struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

// encode marshals an outbound envelope. Payload structs contain no
// unmarshalable types, so errors cannot occur in practice.
func encode(typ string, v any) []byte {
	data, _ := json.Marshal(v)
	raw, _ := json.Marshal(Envelope{Type: typ, Data: data})
	return raw
}
