// Package canvas implements the Canvas repository using PostgreSQL.
package canvas

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/taskmaster-io/backend/internal/adapter/postgres"
	"github.com/taskmaster-io/backend/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const columns = "id, user_id, name, type, created_at, updated_at"

// Repo provides canvas persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new canvas repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// GetByID returns a canvas by primary key regardless of owner.
// Returns domain.ErrNotFound if it does not exist.
func (r *Repo) GetByID(ctx context.Context, canvasID uuid.UUID) (*domain.Canvas, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := psql.Select(columns).From("canvases").
		Where(sq.Eq{"id": canvasID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	c, err := scanCanvas(querier.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, postgres.MapError(err, "canvas", canvasID.String())
	}

	return c, nil
}

// GetOwned returns a canvas only if userID owns it.
// Returns domain.ErrNotFound otherwise, so callers cannot distinguish
// "someone else's canvas" from "no canvas".
func (r *Repo) GetOwned(ctx context.Context, canvasID, userID uuid.UUID) (*domain.Canvas, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := psql.Select(columns).From("canvases").
		Where(sq.Eq{"id": canvasID, "user_id": userID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	c, err := scanCanvas(querier.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, postgres.MapError(err, "canvas", canvasID.String())
	}

	return c, nil
}

// ListByUser returns the user's canvases, most recently updated first.
// Returns an empty slice (not nil) when the user has none.
func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Canvas, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := psql.Select(columns).From("canvases").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("updated_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	defer rows.Close()

	result := []*domain.Canvas{}
	for rows.Next() {
		c, err := scanCanvas(rows)
		if err != nil {
			return nil, fmt.Errorf("list canvases: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}

	return result, nil
}

// CountByUser returns how many canvases the user owns.
func (r *Repo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	err := querier.QueryRow(ctx,
		`SELECT count(*) FROM canvases WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count canvases: %w", err)
	}

	return count, nil
}

// Create inserts a new canvas and returns the persisted row.
func (r *Repo) Create(ctx context.Context, userID uuid.UUID, name string, kind domain.CanvasType) (*domain.Canvas, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := psql.Insert("canvases").
		Columns("user_id", "name", "type").
		Values(userID, name, kind.String()).
		Suffix("RETURNING " + columns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	c, err := scanCanvas(querier.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, postgres.MapError(err, "canvas", "new")
	}

	return c, nil
}

// Rename updates the canvas name if userID owns it.
// Returns domain.ErrNotFound otherwise.
func (r *Repo) Rename(ctx context.Context, canvasID, userID uuid.UUID, name string) (*domain.Canvas, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := psql.Update("canvases").
		Set("name", name).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": canvasID, "user_id": userID}).
		Suffix("RETURNING " + columns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	c, err := scanCanvas(querier.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, postgres.MapError(err, "canvas", canvasID.String())
	}

	return c, nil
}

// Touch stamps updated_at. Called on every committed snapshot so share
// listings sort by real activity.
func (r *Repo) Touch(ctx context.Context, canvasID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx,
		`UPDATE canvases SET updated_at = now() WHERE id = $1`, canvasID)
	if err != nil {
		return postgres.MapError(err, "canvas", canvasID.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("canvas %s: %w", canvasID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a canvas owned by userID. Nodes and shares cascade.
// Returns domain.ErrNotFound if it does not exist or belongs to another user.
func (r *Repo) Delete(ctx context.Context, canvasID, userID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx,
		`DELETE FROM canvases WHERE id = $1 AND user_id = $2`, canvasID, userID)
	if err != nil {
		return postgres.MapError(err, "canvas", canvasID.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("canvas %s: %w", canvasID, domain.ErrNotFound)
	}

	return nil
}

func scanCanvas(row pgx.Row) (*domain.Canvas, error) {
	var (
		c    domain.Canvas
		kind string
	)
	var createdAt, updatedAt time.Time

	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &kind, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c.Type = domain.CanvasType(kind)
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt

	return &c, nil
}
