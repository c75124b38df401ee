// Package node implements the task-node repository using PostgreSQL.
//
// The synchronization engine never upserts individual nodes: a save replaces
// the canvas's entire node set (delete-all-then-insert-all) so that the
// snapshot broadcast to peers always matches what was just persisted.
// ReplaceAll must therefore run inside a transaction (TxManager.RunInTx);
// called outside one it would leave a window with no nodes at all.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/taskmaster-io/backend/internal/adapter/postgres"
	"github.com/taskmaster-io/backend/internal/domain"
)

// Repo provides task-node persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new task-node repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const listByCanvasSQL = `
SELECT id, canvas_id, title, x, y, priority, completed, parent_id, due_date, created_at, updated_at
FROM nodes
WHERE canvas_id = $1
ORDER BY created_at ASC`

const insertNodeSQL = `
INSERT INTO nodes (id, canvas_id, title, x, y, priority, completed, parent_id, due_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// ListByCanvas returns all task nodes of a canvas in creation order.
// Returns an empty slice (not nil) for an empty canvas.
func (r *Repo) ListByCanvas(ctx context.Context, canvasID uuid.UUID) ([]domain.Node, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listByCanvasSQL, canvasID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	result := []domain.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("list nodes: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	return result, nil
}

// ReplaceAll deletes every node of the canvas and inserts the given set.
// Inserts go through a single pgx batch. The caller owns transactionality.
func (r *Repo) ReplaceAll(ctx context.Context, canvasID uuid.UUID, nodes []domain.Node) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, `DELETE FROM nodes WHERE canvas_id = $1`, canvasID); err != nil {
		return postgres.MapError(err, "nodes", canvasID.String())
	}

	if len(nodes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range nodes {
		n := &nodes[i]
		batch.Queue(insertNodeSQL,
			n.ID, canvasID, n.Title, n.X, n.Y,
			n.Priority.String(), n.Completed, n.ParentID, n.DueDate,
		)
	}

	br := querier.SendBatch(ctx, batch)
	defer br.Close()

	for range nodes {
		if _, err := br.Exec(); err != nil {
			return postgres.MapError(err, "nodes", canvasID.String())
		}
	}

	return nil
}

// DeleteByCanvas removes all task nodes of a canvas.
func (r *Repo) DeleteByCanvas(ctx context.Context, canvasID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := querier.Exec(ctx, `DELETE FROM nodes WHERE canvas_id = $1`, canvasID); err != nil {
		return postgres.MapError(err, "nodes", canvasID.String())
	}

	return nil
}

func scanNode(rows pgx.Rows) (domain.Node, error) {
	var (
		n        domain.Node
		priority string
		parentID *string
		dueDate  *time.Time
	)

	err := rows.Scan(&n.ID, &n.CanvasID, &n.Title, &n.X, &n.Y,
		&priority, &n.Completed, &parentID, &dueDate, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return domain.Node{}, err
	}

	n.Priority = domain.Priority(priority)
	n.ParentID = parentID
	n.DueDate = dueDate

	return n, nil
}
