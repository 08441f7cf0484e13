package ws

// DefaultScrollbackCap bounds the per-room chat backfill buffer.
const DefaultScrollbackCap = 100

// Room holds the live collaboration state for one problem: who is
// present, the shared code buffer, and the recent chat scrollback.
//
// A Room is owned by the Hub and mutated only on its dispatch goroutine,
// so it carries no lock. The scrollback is a backfill cache for new
// joiners, not the durable chat record.
type Room struct {
	id            string
	participants  map[*Conn]struct{}
	code          string
	scrollback    []ChatEvent
	scrollbackCap int
}

func newRoom(id string, scrollbackCap int) *Room {
	if scrollbackCap <= 0 {
		scrollbackCap = DefaultScrollbackCap
	}
	return &Room{
		id:            id,
		participants:  make(map[*Conn]struct{}),
		scrollbackCap: scrollbackCap,
	}
}

// Add inserts a participant and returns the new count. Re-adding an
// already present connection is a no-op (reconnect-safe).
func (r *Room) Add(c *Conn) int {
	r.participants[c] = struct{}{}
	return len(r.participants)
}

// Remove deletes a participant and returns the new count. Removing an
// absent connection is a no-op.
func (r *Room) Remove(c *Conn) int {
	delete(r.participants, c)
	return len(r.participants)
}

func (r *Room) Count() int { return len(r.participants) }

// SetCode overwrites the shared buffer, last writer wins. Concurrent
// editors can clobber each other; that is the contract, not a defect.
func (r *Room) SetCode(code string) { r.code = code }

// Code returns the current buffer, "" before the first edit.
func (r *Room) Code() string { return r.code }

// AppendChat records a relayed message, evicting the oldest entry once
// the scrollback cap is reached.
func (r *Room) AppendChat(ev ChatEvent) {
	r.scrollback = append(r.scrollback, ev)
	if len(r.scrollback) > r.scrollbackCap {
		r.scrollback = r.scrollback[1:]
	}
}

// History returns a copy of the scrollback, oldest first.
func (r *Room) History() []ChatEvent {
	out := make([]ChatEvent, len(r.scrollback))
	copy(out, r.scrollback)
	return out
}

// broadcast queues a frame to every participant, sender included.
func (r *Room) broadcast(b []byte) {
	for c := range r.participants {
		c.send(b)
	}
}

// broadcastExcept queues a frame to every participant but the sender.
func (r *Room) broadcastExcept(sender *Conn, b []byte) {
	for c := range r.participants {
		if c != sender {
			c.send(b)
		}
	}
}
