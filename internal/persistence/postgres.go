package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS pending_flows (
		conversation_id TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		state           TEXT NOT NULL,
		payload         JSONB NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)
`

// Connect opens a pool and checks that the database answers.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PostgresRepository stores snapshots in the pending_flows table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository wraps an open pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the pending_flows table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create pending_flows table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Save(ctx context.Context, s Snapshot) error {
	query := `
		INSERT INTO pending_flows (conversation_id, user_id, state, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (conversation_id) DO UPDATE
		SET user_id = EXCLUDED.user_id, state = EXCLUDED.state,
			payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, s.ConversationID, s.UserID, s.State, []byte(s.Payload), s.UpdatedAt)
	return err
}

func (r *PostgresRepository) Load(ctx context.Context, conversationID string) (Snapshot, bool, error) {
	query := `
		SELECT conversation_id, user_id, state, payload, updated_at
		FROM pending_flows WHERE conversation_id = $1
	`
	var s Snapshot
	var payload []byte
	err := r.pool.QueryRow(ctx, query, conversationID).
		Scan(&s.ConversationID, &s.UserID, &s.State, &payload, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	s.Payload = payload
	return s, true, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, conversationID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_flows WHERE conversation_id = $1`, conversationID)
	return err
}

func (r *PostgresRepository) List(ctx context.Context) ([]Snapshot, error) {
	query := `
		SELECT conversation_id, user_id, state, payload, updated_at
		FROM pending_flows
		ORDER BY conversation_id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var payload []byte
		if err := rows.Scan(&s.ConversationID, &s.UserID, &s.State, &payload, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Payload = payload
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
