package ws

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConn() *Conn {
	return newConn(nil, "", "")
}

func TestRoomAddRemoveIdempotent(t *testing.T) {
	r := newRoom("p1", 0)
	a, b := testConn(), testConn()

	assert.Equal(t, 1, r.Add(a))
	assert.Equal(t, 1, r.Add(a), "re-adding the same connection must not double-count")
	assert.Equal(t, 2, r.Add(b))

	assert.Equal(t, 1, r.Remove(a))
	assert.Equal(t, 1, r.Remove(a), "removing an absent connection is a no-op")
	assert.Equal(t, 0, r.Remove(b))
}

func TestRoomCodeLastWriteWins(t *testing.T) {
	r := newRoom("p1", 0)
	assert.Equal(t, "", r.Code(), "no edits yet means empty buffer")

	r.SetCode("print(1)")
	r.SetCode("print(2)")
	assert.Equal(t, "print(2)", r.Code())
}

func TestScrollbackCapEvictsOldest(t *testing.T) {
	r := newRoom("p1", 0)

	for i := 0; i < DefaultScrollbackCap+1; i++ {
		r.AppendChat(ChatEvent{Text: fmt.Sprintf("msg-%d", i), SentAt: time.Now()})
	}

	h := r.History()
	require.Len(t, h, DefaultScrollbackCap)
	assert.Equal(t, "msg-1", h[0].Text, "oldest entry evicted first")
	assert.Equal(t, fmt.Sprintf("msg-%d", DefaultScrollbackCap), h[len(h)-1].Text)
}

func TestHistoryIsACopy(t *testing.T) {
	r := newRoom("p1", 0)
	r.AppendChat(ChatEvent{Text: "hello"})

	h := r.History()
	h[0].Text = "mutated"
	assert.Equal(t, "hello", r.History()[0].Text)
}

func TestRegistryOneRoomPerID(t *testing.T) {
	reg := NewRegistry(0)

	r1 := reg.GetOrCreate("p1")
	r2 := reg.GetOrCreate("p1")
	assert.Same(t, r1, r2)

	r3 := reg.GetOrCreate("p2")
	assert.NotSame(t, r1, r3)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryRemoveIfEmpty(t *testing.T) {
	reg := NewRegistry(0)
	r := reg.GetOrCreate("p1")

	c := testConn()
	r.Add(c)
	reg.RemoveIfEmpty("p1")
	assert.Equal(t, 1, reg.Len(), "occupied room must survive")

	r.Remove(c)
	reg.RemoveIfEmpty("p1")
	assert.Equal(t, 0, reg.Len())

	// Unknown room is a no-op.
	reg.RemoveIfEmpty("nope")
}
