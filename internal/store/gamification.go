package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// AddPoints credits points to a user and returns the new total.
func (p *Postgres) AddPoints(ctx context.Context, userID string, delta int) (int, error) {
	var total int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO gamification (user_id, points) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET points = gamification.points + $2
		RETURNING points
	`, userID, delta).Scan(&total)
	return total, err
}

// IncrementActionCount bumps a per-user action counter and returns the
// new count, used for badge eligibility.
func (p *Postgres) IncrementActionCount(ctx context.Context, userID, action string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO gamification_actions (user_id, action, count) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, action) DO UPDATE SET count = gamification_actions.count + 1
		RETURNING count
	`, userID, action).Scan(&count)
	return count, err
}

// GrantBadge adds a badge ID to the user's set; already-held badges are
// left untouched.
func (p *Postgres) GrantBadge(ctx context.Context, userID, badgeID string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO gamification (user_id, badges) VALUES ($1, ARRAY[$2])
		ON CONFLICT (user_id) DO UPDATE SET badges = array_append(gamification.badges, $2)
		WHERE NOT gamification.badges @> ARRAY[$2]
	`, userID, badgeID)
	return err
}

// HasBadge reports whether the user already holds a badge.
func (p *Postgres) HasBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	var has bool
	err := p.pool.QueryRow(ctx, `
		SELECT badges @> ARRAY[$2] FROM gamification WHERE user_id = $1
	`, userID, badgeID).Scan(&has)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return has, err
}

// TrackLanguage records a language the user collaborated in and returns
// how many distinct languages they have used.
func (p *Postgres) TrackLanguage(ctx context.Context, userID, language string) (int, error) {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO gamification_languages (user_id, language) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, language)
	if err != nil {
		return 0, err
	}
	var count int
	err = p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM gamification_languages WHERE user_id = $1
	`, userID).Scan(&count)
	return count, err
}

// GetGamificationProfile assembles a user's points, badges, and counters.
func (p *Postgres) GetGamificationProfile(ctx context.Context, userID string) (GamificationProfile, error) {
	prof := GamificationProfile{UserID: userID, ActionCounts: map[string]int{}}

	err := p.pool.QueryRow(ctx, `
		SELECT points, badges
		FROM gamification WHERE user_id = $1
	`, userID).Scan(&prof.Points, &prof.Badges)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return prof, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT action, count FROM gamification_actions WHERE user_id = $1
	`, userID)
	if err != nil {
		return prof, err
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return prof, err
		}
		prof.ActionCounts[action] = count
	}
	if err := rows.Err(); err != nil {
		return prof, err
	}

	langRows, err := p.pool.Query(ctx, `
		SELECT language FROM gamification_languages WHERE user_id = $1
	`, userID)
	if err != nil {
		return prof, err
	}
	defer langRows.Close()
	for langRows.Next() {
		var lang string
		if err := langRows.Scan(&lang); err != nil {
			return prof, err
		}
		prof.Languages = append(prof.Languages, lang)
	}

	prof.Level = prof.Points/100 + 1
	return prof, langRows.Err()
}

// Leaderboard returns the top users by points.
func (p *Postgres) Leaderboard(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT g.user_id, u.name, g.points, COALESCE(array_length(g.badges, 1), 0)
		FROM gamification g JOIN users u ON u.id = g.user_id
		ORDER BY g.points DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Points, &e.Badges); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
