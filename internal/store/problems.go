package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var ErrNotOwner = errors.New("not the problem owner")

// CreateProblem inserts a new problem owned by ownerID
func (p *Postgres) CreateProblem(ctx context.Context, ownerID, title, description string, tags []string) (Problem, error) {
	if tags == nil {
		tags = []string{}
	}
	row := p.pool.QueryRow(ctx, `
		INSERT INTO problems (title, description, tags, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, title, description, tags, status, owner_id, view_count, created_at, updated_at
	`, title, description, tags, ownerID)

	var pr Problem
	if err := row.Scan(&pr.ID, &pr.Title, &pr.Description, &pr.Tags, &pr.Status, &pr.OwnerID, &pr.ViewCount, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
		return Problem{}, err
	}
	return pr, nil
}

// ListProblems returns a page of problems, newest first, plus the total count.
func (p *Postgres) ListProblems(ctx context.Context, limit, offset int) ([]Problem, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM problems`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT p.id, p.title, p.description, p.tags, p.status, p.owner_id, u.name, p.view_count, p.created_at, p.updated_at
		FROM problems p JOIN users u ON u.id = p.owner_id
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := scanProblems(rows)
	return out, total, err
}

// SearchProblems runs a full-text search over title + description.
func (p *Postgres) SearchProblems(ctx context.Context, query string, limit int) ([]Problem, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT p.id, p.title, p.description, p.tags, p.status, p.owner_id, u.name, p.view_count, p.created_at, p.updated_at
		FROM problems p JOIN users u ON u.id = p.owner_id
		WHERE to_tsvector('english', p.title || ' ' || p.description) @@ plainto_tsquery('english', $1)
		   OR $1 = ANY(p.tags)
		ORDER BY p.created_at DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProblems(rows)
}

func scanProblems(rows pgx.Rows) ([]Problem, error) {
	var out []Problem
	for rows.Next() {
		var pr Problem
		if err := rows.Scan(&pr.ID, &pr.Title, &pr.Description, &pr.Tags, &pr.Status, &pr.OwnerID, &pr.OwnerName, &pr.ViewCount, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// GetProblem fetches one problem with its solutions and bumps the view count.
func (p *Postgres) GetProblem(ctx context.Context, id string) (Problem, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE problems SET view_count = view_count + 1
		WHERE id = $1
		RETURNING id, title, description, tags, status, owner_id, view_count, created_at, updated_at
	`, id)

	var pr Problem
	if err := row.Scan(&pr.ID, &pr.Title, &pr.Description, &pr.Tags, &pr.Status, &pr.OwnerID, &pr.ViewCount, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Problem{}, ErrNotFound
		}
		return Problem{}, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT s.id, s.problem_id, s.author_id, u.name, s.content, s.votes, s.is_accepted, s.created_at
		FROM solutions s JOIN users u ON u.id = s.author_id
		WHERE s.problem_id = $1
		ORDER BY s.is_accepted DESC, s.votes DESC, s.created_at ASC
	`, id)
	if err != nil {
		return Problem{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var s Solution
		if err := rows.Scan(&s.ID, &s.ProblemID, &s.AuthorID, &s.AuthorName, &s.Content, &s.Votes, &s.IsAccepted, &s.CreatedAt); err != nil {
			return Problem{}, err
		}
		pr.Solutions = append(pr.Solutions, s)
	}
	return pr, rows.Err()
}

// GetProblemOwner returns the owning user ID without touching view counts.
func (p *Postgres) GetProblemOwner(ctx context.Context, id string) (string, error) {
	var ownerID string
	err := p.pool.QueryRow(ctx, `SELECT owner_id FROM problems WHERE id = $1`, id).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return ownerID, err
}

// AddSolution attaches a solution to a problem
func (p *Postgres) AddSolution(ctx context.Context, problemID, authorID, content string) (Solution, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO solutions (problem_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, problem_id, author_id, content, votes, is_accepted, created_at
	`, problemID, authorID, content)

	var s Solution
	if err := row.Scan(&s.ID, &s.ProblemID, &s.AuthorID, &s.Content, &s.Votes, &s.IsAccepted, &s.CreatedAt); err != nil {
		return Solution{}, err
	}
	_, _ = p.pool.Exec(ctx, `UPDATE problems SET updated_at = NOW() WHERE id = $1`, problemID)
	return s, nil
}

// VoteSolution applies an up/down vote delta and returns the new total.
func (p *Postgres) VoteSolution(ctx context.Context, solutionID string, delta int) (int, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE solutions SET votes = votes + $2
		WHERE id = $1
		RETURNING votes
	`, solutionID, delta)

	var votes int
	if err := row.Scan(&votes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return votes, nil
}

// AcceptSolution marks one solution accepted and the problem solved.
// Only the problem owner may accept.
func (p *Postgres) AcceptSolution(ctx context.Context, problemID, solutionID, callerID string) error {
	var ownerID string
	err := p.pool.QueryRow(ctx, `SELECT owner_id FROM problems WHERE id = $1`, problemID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if ownerID != callerID {
		return ErrNotOwner
	}

	ct, err := p.pool.Exec(ctx, `
		UPDATE solutions SET is_accepted = TRUE
		WHERE id = $1 AND problem_id = $2
	`, solutionID, problemID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = p.pool.Exec(ctx, `
		UPDATE problems SET status = 'solved', updated_at = NOW() WHERE id = $1
	`, problemID)
	return err
}
