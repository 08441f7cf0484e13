package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/HarpithaAakula/Dev-Collab/pkg/metrics"
	"github.com/HarpithaAakula/Dev-Collab/pkg/ratelimit"
)

// ChatStore persists a chat message and returns its durable identifier.
// Implemented by the postgres store; stubbed in tests.
type ChatStore interface {
	SaveChatMessage(ctx context.Context, roomID, senderID, senderName, text string) (string, error)
}

// Awarder grants gamification points for realtime actions.
type Awarder interface {
	AwardJoin(ctx context.Context, userID string) error
}

// VerifyFunc resolves a bearer token to a user identity.
type VerifyFunc func(token string) (userID, userName string, err error)

// event is one unit of work for the dispatch loop.
type event struct {
	conn *Conn
	typ  string
	data json.RawMessage

	// chat carries a persisted message for relay; set only for chat events,
	// which persist on the sender's read goroutine before reaching the loop.
	chat     *ChatEvent
	chatRoom string

	// user targets a notification at all of one user's connections.
	user string
}

// Hub is the event dispatcher for the collaboration rooms: it owns the
// registry, the reverse conn→rooms index, and the per-user connection
// index, and it processes inbound events strictly one at a time on a
// single goroutine. All room mutation happens there, which is what makes
// the lock-free Room safe.
type Hub struct {
	log      *slog.Logger
	chats    ChatStore
	registry *Registry
	met      *metrics.Set
	verify   VerifyFunc
	awards   Awarder
	limit    *ratelimit.Limiter

	events chan event

	// Loop-owned state.
	joined map[*Conn]map[string]struct{} // reverse index for disconnect cleanup
	users  map[string]map[*Conn]struct{} // authenticated conns by user ID

	participants atomic.Int64
}

// NewHub wires the dispatcher. chats, verify, and awards may be nil:
// without a store chat messages relay unpersisted, without verify every
// connection is anonymous, without awards no points are granted.
func NewHub(log *slog.Logger, chats ChatStore, registry *Registry, met *metrics.Set) *Hub {
	return &Hub{
		log:      log,
		chats:    chats,
		registry: registry,
		met:      met,
		events:   make(chan event, 256),
		joined:   make(map[*Conn]map[string]struct{}),
		users:    make(map[string]map[*Conn]struct{}),
	}
}

// SetAuth installs the token verifier for /ws connections.
func (h *Hub) SetAuth(fn VerifyFunc) { h.verify = fn }

// SetAwarder installs the gamification hook for room joins.
func (h *Hub) SetAwarder(a Awarder) { h.awards = a }

// SetLimiter installs per-connection frame rate limiting.
func (h *Hub) SetLimiter(l *ratelimit.Limiter) { h.limit = l }

// Run processes events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

// Stats reports live room and participant counts for the stats endpoint.
func (h *Hub) Stats() (rooms int, participants int64) {
	return h.registry.Len(), h.participants.Load()
}

// NotifyUser pushes a realtime notification to every connection the
// given user currently holds. Safe to call from any goroutine.
func (h *Hub) NotifyUser(userID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("ws.notify.marshal", "err", err)
		return
	}
	h.events <- event{typ: evtNotification, user: userID, data: data}
}

// ServeWS handles a new /ws connection. Identity comes from an optional
// ?token= query parameter; connections without one join as anonymous
// viewers attributed to their connection handle.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var userID, userName string
	if tok := r.URL.Query().Get("token"); tok != "" && h.verify != nil {
		uid, name, err := h.verify(tok)
		if err != nil {
			h.log.Debug("ws.auth.invalid", "err", err)
		} else {
			userID, userName = uid, name
		}
	}

	wsc, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	ctx := r.Context()
	c := newConn(wsc, userID, userName)
	h.log.Debug("ws.connected", "conn", c.id, "user", userID)

	go c.WriteLoop(ctx)
	h.events <- event{conn: c, typ: evtConnect}

	for {
		payload, ok := c.Read(ctx)
		if !ok {
			break
		}
		h.route(ctx, c, payload)
	}

	h.events <- event{conn: c, typ: evtDisconnect}
	if h.limit != nil {
		h.limit.Forget(c.id)
	}
	_ = c.Close()
	h.log.Debug("ws.disconnected", "conn", c.id)
}

// evtConnect registers a connection's user identity with the loop.
const evtConnect = "connect"

// route runs on the connection's read goroutine. Everything is handed to
// the dispatch loop untouched except chat, which persists first so the
// relay carries its durable identifier (fail-closed on store errors).
func (h *Hub) route(ctx context.Context, c *Conn, raw []byte) {
	if h.limit != nil && !h.limit.Allow(c.id) {
		h.log.Debug("ws.frame.ratelimited", "conn", c.id)
		return
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.log.Warn("ws.frame.malformed", "conn", c.id, "err", err)
		return
	}

	switch env.Type {
	case evtChatMessage:
		h.persistAndRelayChat(ctx, c, env.Data)
	case evtJoin:
		if h.awards != nil && c.userID != "" {
			go h.awardJoin(c.userID)
		}
		h.events <- event{conn: c, typ: env.Type, data: env.Data}
	case evtLeave, evtCodeChange, evtSolutionSubmitted, evtVoteChanged, evtSolutionAccepted:
		h.events <- event{conn: c, typ: env.Type, data: env.Data}
	default:
		h.log.Warn("ws.event.unknown", "conn", c.id, "type", env.Type)
	}
}

// persistAndRelayChat saves the message (unless the client already
// persisted it over REST and supplied the ID) and then submits the relay.
// On a store failure only the sender hears about it; the room never sees
// a message that does not durably exist.
func (h *Hub) persistAndRelayChat(ctx context.Context, c *Conn, data json.RawMessage) {
	var p chatMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.Text == "" {
		h.log.Warn("ws.chat.malformed", "conn", c.id)
		return
	}

	ev := ChatEvent{
		SenderID:    c.senderID(),
		SenderName:  c.senderName(),
		Text:        p.Text,
		SentAt:      time.Now().UTC(),
		PersistedID: p.PersistedID,
	}
	if ev.PersistedID == "" && h.chats != nil {
		id, err := h.chats.SaveChatMessage(ctx, p.RoomID, ev.SenderID, ev.SenderName, ev.Text)
		if err != nil {
			h.log.Error("ws.chat.persist", "room", p.RoomID, "err", err)
			h.met.ChatPersistFailure()
			c.send(encode(evtChatError, chatErrorPayload{RoomID: p.RoomID, Reason: "message not delivered"}))
			return
		}
		ev.PersistedID = id
	}

	h.events <- event{conn: c, typ: evtChatRelayed, chatRoom: p.RoomID, chat: &ev}
}

func (h *Hub) awardJoin(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.awards.AwardJoin(ctx, userID); err != nil {
		h.log.Warn("ws.award.join", "user", userID, "err", err)
	}
}

// dispatch runs on the loop goroutine. A bad event is logged and
// dropped; nothing here may take the process down.
func (h *Hub) dispatch(ev event) {
	h.met.Event(ev.typ)
	switch ev.typ {
	case evtConnect:
		h.handleConnect(ev.conn)
	case evtJoin:
		h.handleJoin(ev.conn, ev.data)
	case evtLeave:
		h.handleLeave(ev.conn, ev.data)
	case evtCodeChange:
		h.handleCodeChange(ev.conn, ev.data)
	case evtChatRelayed:
		h.handleChatRelay(ev.chatRoom, *ev.chat)
	case evtSolutionSubmitted, evtVoteChanged, evtSolutionAccepted:
		h.handleRelay(ev.conn, ev.typ, ev.data)
	case evtNotification:
		h.handleNotify(ev.user, ev.data)
	case evtDisconnect:
		h.handleDisconnect(ev.conn)
	}
}

func (h *Hub) handleConnect(c *Conn) {
	if c.userID == "" {
		return
	}
	set := h.users[c.userID]
	if set == nil {
		set = make(map[*Conn]struct{})
		h.users[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) handleJoin(c *Conn, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		h.log.Warn("ws.join.malformed", "conn", c.id)
		return
	}

	room := h.registry.GetOrCreate(p.RoomID)
	before := room.Count()
	count := room.Add(c)

	set := h.joined[c]
	if set == nil {
		set = make(map[string]struct{})
		h.joined[c] = set
	}
	set[p.RoomID] = struct{}{}

	// Snapshot and history go to the joiner before any broadcast so the
	// client never sees a delta for state it does not have yet.
	c.send(encode(evtCodeSnapshot, codeSnapshotPayload{RoomID: p.RoomID, Code: room.Code()}))
	c.send(encode(evtChatHistory, chatHistoryPayload{RoomID: p.RoomID, Events: room.History()}))

	// Membership is broadcast inclusively: the joiner's own UI needs the
	// count too.
	room.broadcast(encode(evtMembershipChanged, membershipPayload{RoomID: p.RoomID, ParticipantCount: count}))

	if count > before {
		h.participants.Add(1)
	}
	h.met.SetRooms(h.registry.Len())
	h.met.SetParticipants(h.participants.Load())
	h.log.Debug("ws.room.joined", "room", p.RoomID, "conn", c.id, "count", count)
}

func (h *Hub) handleLeave(c *Conn, data json.RawMessage) {
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		h.log.Warn("ws.leave.malformed", "conn", c.id)
		return
	}
	h.leaveRoom(c, p.RoomID)
}

// leaveRoom removes c from one room and broadcasts the new count to the
// remaining participants. Unknown rooms are a no-op.
func (h *Hub) leaveRoom(c *Conn, roomID string) {
	room, ok := h.registry.Get(roomID)
	if !ok {
		return
	}
	before := room.Count()
	count := room.Remove(c)
	if count == before {
		return
	}
	if set := h.joined[c]; set != nil {
		delete(set, roomID)
	}

	room.broadcast(encode(evtMembershipChanged, membershipPayload{RoomID: roomID, ParticipantCount: count}))
	h.registry.RemoveIfEmpty(roomID)

	h.participants.Add(-1)
	h.met.SetRooms(h.registry.Len())
	h.met.SetParticipants(h.participants.Load())
	h.log.Debug("ws.room.left", "room", roomID, "conn", c.id, "count", count)
}

func (h *Hub) handleCodeChange(c *Conn, data json.RawMessage) {
	var p codeChangePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		h.log.Warn("ws.code.malformed", "conn", c.id)
		return
	}
	room, ok := h.registry.Get(p.RoomID)
	if !ok {
		return
	}
	room.SetCode(p.Code)
	// The sender already has the latest text locally.
	room.broadcastExcept(c, encode(evtCodeUpdated, codeSnapshotPayload{RoomID: p.RoomID, Code: p.Code}))
}

func (h *Hub) handleChatRelay(roomID string, ev ChatEvent) {
	room, ok := h.registry.Get(roomID)
	if !ok {
		return
	}
	room.AppendChat(ev)
	// Sender-inclusive: the sender reconciles its optimistic copy against
	// the relayed one via the persisted ID.
	room.broadcast(encode(evtChatRelayed, chatRelayedPayload{RoomID: roomID, Event: ev}))
}

// handleRelay forwards solution lifecycle events verbatim to everyone
// else in the room; the hub keeps no solution state.
func (h *Hub) handleRelay(c *Conn, typ string, data json.RawMessage) {
	var p roomScoped
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		h.log.Warn("ws.relay.malformed", "conn", c.id, "type", typ)
		return
	}
	room, ok := h.registry.Get(p.RoomID)
	if !ok {
		return
	}
	raw, _ := json.Marshal(Envelope{Type: typ, Data: data})
	room.broadcastExcept(c, raw)
}

func (h *Hub) handleNotify(userID string, data json.RawMessage) {
	raw, _ := json.Marshal(Envelope{Type: evtNotification, Data: data})
	for c := range h.users[userID] {
		c.send(raw)
	}
}

func (h *Hub) handleDisconnect(c *Conn) {
	for roomID := range h.joined[c] {
		h.leaveRoom(c, roomID)
	}
	delete(h.joined, c)

	if c.userID != "" {
		if set := h.users[c.userID]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.users, c.userID)
			}
		}
	}
}
