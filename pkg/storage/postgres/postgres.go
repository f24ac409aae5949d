// Package postgres provides a PostgreSQL implementation of
// storage.ConversationStore. It uses pgx/v5 for connection pooling and
// JSONB for turn item storage.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/storage"
)

// Store is a PostgreSQL-backed ConversationStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.ConversationStore at compile time.
var _ storage.ConversationStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// SaveTurn appends a completed turn to its conversation's transcript.
func (s *Store) SaveTurn(ctx context.Context, rec storage.TurnRecord) error {
	var usageIn, usageOut, usageTotal *int
	if rec.Usage != nil {
		usageIn = &rec.Usage.InputTokens
		usageOut = &rec.Usage.OutputTokens
		usageTotal = &rec.Usage.TotalTokens
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO turns (
			conversation_id, request_id, model, input, output, items,
			usage_input_tokens, usage_output_tokens, usage_total_tokens,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ConversationID, rec.RequestID, rec.Model, rec.Input, rec.Output,
		nullJSON(rec.Items),
		usageIn, usageOut, usageTotal,
		rec.CreatedAt,
	)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting turn: %w", err)
	}

	return nil
}

// ListTurns returns a conversation's turns in completion order.
func (s *Store) ListTurns(ctx context.Context, conversationID string) ([]storage.TurnRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT request_id, model, input, output, items,
		       usage_input_tokens, usage_output_tokens, usage_total_tokens,
		       created_at
		FROM turns
		WHERE conversation_id = $1
		ORDER BY created_at, id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []storage.TurnRecord
	for rows.Next() {
		rec := storage.TurnRecord{ConversationID: conversationID}
		var items *[]byte
		var usageIn, usageOut, usageTotal *int

		if err := rows.Scan(
			&rec.RequestID, &rec.Model, &rec.Input, &rec.Output, &items,
			&usageIn, &usageOut, &usageTotal,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}

		if items != nil {
			rec.Items = *items
		}
		if usageTotal != nil {
			rec.Usage = &api.Usage{
				TotalTokens: *usageTotal,
			}
			if usageIn != nil {
				rec.Usage.InputTokens = *usageIn
			}
			if usageOut != nil {
				rec.Usage.OutputTokens = *usageOut
			}
		}

		turns = append(turns, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	if len(turns) == 0 {
		return nil, storage.ErrNotFound
	}
	return turns, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// nullJSON converts nil/empty byte slices to nil for nullable JSONB columns.
func nullJSON(b []byte) *[]byte {
	if len(b) == 0 {
		return nil
	}
	return &b
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
