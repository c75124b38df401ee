// Package share implements the share-link repository using PostgreSQL.
package share

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/taskmaster-io/backend/internal/adapter/postgres"
	"github.com/taskmaster-io/backend/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const columns = "id, canvas_id, token, mode, expires_at, password_hash, view_indefinite_lock, created_at"

// Repo provides share-link persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new share repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// GetByToken looks a share up by its opaque token.
// Returns domain.ErrNotFound for unknown (or revoked) tokens.
func (r *Repo) GetByToken(ctx context.Context, token string) (*domain.Share, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := psql.Select(columns).From("canvas_shares").
		Where(sq.Eq{"token": token}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	s, err := scanShare(querier.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, postgres.MapError(err, "share", "by-token")
	}

	return s, nil
}

// ListByCanvas returns all share links of a canvas, newest first.
// Returns an empty slice (not nil) when the canvas has none.
func (r *Repo) ListByCanvas(ctx context.Context, canvasID uuid.UUID) ([]*domain.Share, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := psql.Select(columns).From("canvas_shares").
		Where(sq.Eq{"canvas_id": canvasID}).
		OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	result := []*domain.Share{}
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("list shares: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}

	return result, nil
}

// FindViewLock returns the canvas's active indefinite-view share, or
// domain.ErrNotFound when none exists.
func (r *Repo) FindViewLock(ctx context.Context, canvasID uuid.UUID) (*domain.Share, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := psql.Select(columns).From("canvas_shares").
		Where(sq.Eq{"canvas_id": canvasID, "view_indefinite_lock": true}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	s, err := scanShare(querier.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, postgres.MapError(err, "share", canvasID.String())
	}

	return s, nil
}

// Create inserts a new share link and returns the persisted row.
// The partial unique index on view_indefinite_lock makes a concurrent
// second lock insert fail with domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, s *domain.Share) (*domain.Share, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := psql.Insert("canvas_shares").
		Columns("canvas_id", "token", "mode", "expires_at", "password_hash", "view_indefinite_lock").
		Values(s.CanvasID, s.Token, s.Mode.String(), s.ExpiresAt, s.PasswordHash, s.ViewIndefiniteLock).
		Suffix("RETURNING " + columns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	created, err := scanShare(querier.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, postgres.MapError(err, "share", "new")
	}

	return created, nil
}

// Delete revokes a share link scoped to its canvas.
// Returns domain.ErrNotFound if no such link exists for that canvas.
func (r *Repo) Delete(ctx context.Context, shareID, canvasID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx,
		`DELETE FROM canvas_shares WHERE id = $1 AND canvas_id = $2`, shareID, canvasID)
	if err != nil {
		return postgres.MapError(err, "share", shareID.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("share %s: %w", shareID, domain.ErrNotFound)
	}

	return nil
}

func scanShare(row pgx.Row) (*domain.Share, error) {
	var (
		s    domain.Share
		mode string
	)

	err := row.Scan(&s.ID, &s.CanvasID, &s.Token, &mode,
		&s.ExpiresAt, &s.PasswordHash, &s.ViewIndefiniteLock, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	s.Mode = domain.ShareMode(mode)

	return &s, nil
}
