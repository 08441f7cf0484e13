package gamify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Result reports what one award produced.
type Result struct {
	PointsAwarded int     `json:"pointsAwarded"`
	TotalPoints   int     `json:"totalPoints"`
	NewBadges     []Badge `json:"newBadges"`
}

// Engine applies the static point rules and badge checks. The daily chat
// tracker lives in memory, mirroring the original platform: restarting
// the process resets the cap, which is acceptable for an anti-farming
// guard.
type Engine struct {
	log    *slog.Logger
	store  Store
	notify BadgeNotifier

	mu    sync.Mutex
	day   string
	daily map[string]int // userID → chat points awarded today
}

// BadgeNotifier is invoked after a badge grant so the caller can store
// and push a notification. Wired up in main; nil disables it.
type BadgeNotifier func(ctx context.Context, userID string, b Badge)

// Store is the slice of the persistence layer the engine uses; the
// postgres store implements it.
type Store interface {
	AddPoints(ctx context.Context, userID string, delta int) (int, error)
	IncrementActionCount(ctx context.Context, userID, action string) (int, error)
	GrantBadge(ctx context.Context, userID, badgeID string) error
	TrackLanguage(ctx context.Context, userID, language string) (int, error)
	HasBadge(ctx context.Context, userID, badgeID string) (bool, error)
}

func New(log *slog.Logger, store Store) *Engine {
	return &Engine{
		log:   log,
		store: store,
		day:   today(),
		daily: make(map[string]int),
	}
}

// SetNotifier installs the badge notification hook.
func (e *Engine) SetNotifier(fn BadgeNotifier) { e.notify = fn }

func today() string { return time.Now().UTC().Format("2006-01-02") }

// chatBudget returns how many chat points the user may still earn today
// and rolls the tracker over at midnight.
func (e *Engine) chatBudget(userID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d := today(); d != e.day {
		e.day = d
		e.daily = make(map[string]int)
	}
	return ChatDailyCap - e.daily[userID]
}

func (e *Engine) spendChatBudget(userID string, pts int) {
	e.mu.Lock()
	e.daily[userID] += pts
	e.mu.Unlock()
}

// Award credits the action's points (respecting the daily chat cap),
// bumps the action counter, and grants any badges the user now
// qualifies for.
func (e *Engine) Award(ctx context.Context, userID string, action Action) (Result, error) {
	pts := Points[action]
	if pts == 0 {
		return Result{}, fmt.Errorf("unknown action %q", action)
	}
	if action == ActionChatMessage {
		if budget := e.chatBudget(userID); budget < pts {
			return Result{}, nil // capped out for today
		}
	}

	total, err := e.store.AddPoints(ctx, userID, pts)
	if err != nil {
		return Result{}, fmt.Errorf("add points: %w", err)
	}
	if action == ActionChatMessage {
		e.spendChatBudget(userID, pts)
	}

	count, err := e.store.IncrementActionCount(ctx, userID, string(action))
	if err != nil {
		return Result{}, fmt.Errorf("count action: %w", err)
	}

	res := Result{PointsAwarded: pts, TotalPoints: total}
	res.NewBadges = e.checkBadges(ctx, userID, action, count, total, 0)
	return res, nil
}

// RecordLanguage tracks a language the user collaborated in and checks
// the language badge.
func (e *Engine) RecordLanguage(ctx context.Context, userID, language string) ([]Badge, error) {
	if language == "" {
		return nil, nil
	}
	n, err := e.store.TrackLanguage(ctx, userID, language)
	if err != nil {
		return nil, fmt.Errorf("track language: %w", err)
	}
	return e.checkBadges(ctx, userID, "", 0, 0, n), nil
}

// checkBadges grants every badge whose requirement the user just met.
// Grant failures are logged, not propagated: a badge miss must not fail
// the action that earned it.
func (e *Engine) checkBadges(ctx context.Context, userID string, action Action, actionCount, totalPoints, languages int) []Badge {
	var earned []Badge
	for _, b := range Badges {
		qualifies := false
		switch b.requireKind {
		case reqAction:
			qualifies = b.requireAction == action && actionCount >= b.requireCount
		case reqTotalPoints:
			qualifies = totalPoints >= b.requireCount
		case reqLanguages:
			qualifies = languages >= b.requireCount
		}
		if !qualifies {
			continue
		}
		has, err := e.store.HasBadge(ctx, userID, b.ID)
		if err != nil {
			e.log.Warn("gamify.badge.check", "user", userID, "badge", b.ID, "err", err)
			continue
		}
		if has {
			continue
		}
		if err := e.store.GrantBadge(ctx, userID, b.ID); err != nil {
			e.log.Warn("gamify.badge.grant", "user", userID, "badge", b.ID, "err", err)
			continue
		}
		earned = append(earned, b)
		if e.notify != nil {
			e.notify(ctx, userID, b)
		}
	}
	return earned
}

// AwardJoin satisfies the hub's Awarder interface.
func (e *Engine) AwardJoin(ctx context.Context, userID string) error {
	_, err := e.Award(ctx, userID, ActionJoinRoom)
	return err
}
