// Package brainnode implements the mind-map node repository using PostgreSQL.
// Same full-replacement contract as the task-node repository: the caller
// wraps ReplaceAll in a transaction.
package brainnode

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/taskmaster-io/backend/internal/adapter/postgres"
	"github.com/taskmaster-io/backend/internal/domain"
)

// Repo provides mind-map node persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new brain-node repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const listByCanvasSQL = `
SELECT id, canvas_id, title, x, y, color, parent_id, is_root, created_at, updated_at
FROM brain_nodes
WHERE canvas_id = $1
ORDER BY is_root DESC, created_at ASC`

const insertBrainNodeSQL = `
INSERT INTO brain_nodes (id, canvas_id, title, x, y, color, parent_id, is_root)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// ListByCanvas returns all mind-map nodes of a canvas, root first.
// Returns an empty slice (not nil) for an empty canvas.
func (r *Repo) ListByCanvas(ctx context.Context, canvasID uuid.UUID) ([]domain.BrainNode, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listByCanvasSQL, canvasID)
	if err != nil {
		return nil, fmt.Errorf("list brain nodes: %w", err)
	}
	defer rows.Close()

	result := []domain.BrainNode{}
	for rows.Next() {
		var n domain.BrainNode
		err := rows.Scan(&n.ID, &n.CanvasID, &n.Title, &n.X, &n.Y,
			&n.Color, &n.ParentID, &n.IsRoot, &n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("list brain nodes: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list brain nodes: %w", err)
	}

	return result, nil
}

// ReplaceAll deletes every brain node of the canvas and inserts the given
// set through a single pgx batch. The caller owns transactionality.
func (r *Repo) ReplaceAll(ctx context.Context, canvasID uuid.UUID, nodes []domain.BrainNode) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, `DELETE FROM brain_nodes WHERE canvas_id = $1`, canvasID); err != nil {
		return postgres.MapError(err, "brain_nodes", canvasID.String())
	}

	if len(nodes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range nodes {
		n := &nodes[i]
		batch.Queue(insertBrainNodeSQL,
			n.ID, canvasID, n.Title, n.X, n.Y, n.Color, n.ParentID, n.IsRoot,
		)
	}

	br := querier.SendBatch(ctx, batch)
	defer br.Close()

	for range nodes {
		if _, err := br.Exec(); err != nil {
			return postgres.MapError(err, "brain_nodes", canvasID.String())
		}
	}

	return nil
}

// DeleteByCanvas removes all mind-map nodes of a canvas.
func (r *Repo) DeleteByCanvas(ctx context.Context, canvasID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, `DELETE FROM brain_nodes WHERE canvas_id = $1`, canvasID); err != nil {
		return postgres.MapError(err, "brain_nodes", canvasID.String())
	}

	return nil
}
