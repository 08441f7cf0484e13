package gamify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory gamification store for engine tests.
type memStore struct {
	points    map[string]int
	counts    map[string]int
	badges    map[string]map[string]bool
	languages map[string]map[string]bool
	failAdd   error
}

func newMemStore() *memStore {
	return &memStore{
		points:    map[string]int{},
		counts:    map[string]int{},
		badges:    map[string]map[string]bool{},
		languages: map[string]map[string]bool{},
	}
}

func (m *memStore) AddPoints(_ context.Context, userID string, delta int) (int, error) {
	if m.failAdd != nil {
		return 0, m.failAdd
	}
	m.points[userID] += delta
	return m.points[userID], nil
}

func (m *memStore) IncrementActionCount(_ context.Context, userID, action string) (int, error) {
	key := userID + "|" + action
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memStore) GrantBadge(_ context.Context, userID, badgeID string) error {
	if m.badges[userID] == nil {
		m.badges[userID] = map[string]bool{}
	}
	m.badges[userID][badgeID] = true
	return nil
}

func (m *memStore) HasBadge(_ context.Context, userID, badgeID string) (bool, error) {
	return m.badges[userID][badgeID], nil
}

func (m *memStore) TrackLanguage(_ context.Context, userID, language string) (int, error) {
	if m.languages[userID] == nil {
		m.languages[userID] = map[string]bool{}
	}
	m.languages[userID][language] = true
	return len(m.languages[userID]), nil
}

func newTestEngine(store Store) *Engine {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
}

func TestAwardJoinRoomGrantsPointsAndFirstBadge(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)

	res, err := e.Award(context.Background(), "u1", ActionJoinRoom)
	require.NoError(t, err)

	assert.Equal(t, 5, res.PointsAwarded)
	assert.Equal(t, 5, res.TotalPoints)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "first_collaborator", res.NewBadges[0].ID)

	// The badge is granted once, not on every subsequent join.
	res, err = e.Award(context.Background(), "u1", ActionJoinRoom)
	require.NoError(t, err)
	assert.Empty(t, res.NewBadges)
}

func TestChatDailyCap(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)

	for i := 0; i < ChatDailyCap; i++ {
		res, err := e.Award(context.Background(), "u1", ActionChatMessage)
		require.NoError(t, err)
		assert.Equal(t, 1, res.PointsAwarded)
	}

	// The 21st message of the day earns nothing.
	res, err := e.Award(context.Background(), "u1", ActionChatMessage)
	require.NoError(t, err)
	assert.Equal(t, 0, res.PointsAwarded)
	assert.Equal(t, ChatDailyCap, store.points["u1"])

	// The cap is per-user.
	res, err = e.Award(context.Background(), "u2", ActionChatMessage)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PointsAwarded)
}

func TestHundredPointsClub(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)

	res, err := e.Award(context.Background(), "u1", ActionSubmitSolution)
	require.NoError(t, err)
	assert.Equal(t, 50, res.TotalPoints)
	assert.Empty(t, badgeIDs(res.NewBadges), "badge requires 100 points")

	res, err = e.Award(context.Background(), "u1", ActionSubmitSolution)
	require.NoError(t, err)
	assert.Equal(t, 100, res.TotalPoints)
	assert.Contains(t, badgeIDs(res.NewBadges), "points_100_club")
}

func TestLanguageExplorer(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)

	for _, lang := range []string{"go", "python"} {
		badges, err := e.RecordLanguage(context.Background(), "u1", lang)
		require.NoError(t, err)
		assert.Empty(t, badges)
	}

	badges, err := e.RecordLanguage(context.Background(), "u1", "rust")
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "language_explorer", badges[0].ID)

	// Repeating a language does not re-grant.
	badges, err = e.RecordLanguage(context.Background(), "u1", "rust")
	require.NoError(t, err)
	assert.Empty(t, badges)
}

func TestBadgeGrantFiresNotifier(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)

	var notified []string
	e.SetNotifier(func(_ context.Context, userID string, b Badge) {
		notified = append(notified, userID+":"+b.ID)
	})

	_, err := e.Award(context.Background(), "u1", ActionJoinRoom)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1:first_collaborator"}, notified)

	// No new badge, no new notification.
	_, err = e.Award(context.Background(), "u1", ActionJoinRoom)
	require.NoError(t, err)
	assert.Len(t, notified, 1)
}

func TestAwardUnknownActionFails(t *testing.T) {
	e := newTestEngine(newMemStore())
	_, err := e.Award(context.Background(), "u1", Action("DANCE"))
	assert.Error(t, err)
}

func TestAwardPropagatesStoreErrors(t *testing.T) {
	store := newMemStore()
	store.failAdd = errors.New("db down")
	e := newTestEngine(store)

	_, err := e.Award(context.Background(), "u1", ActionJoinRoom)
	assert.Error(t, err)
}

func badgeIDs(badges []Badge) []string {
	out := make([]string, 0, len(badges))
	for _, b := range badges {
		out = append(out, b.ID)
	}
	return out
}
