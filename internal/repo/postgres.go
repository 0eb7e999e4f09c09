package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/task-sync/internal/model"
	"github.com/BuzzLyutic/task-sync/migrations"
)

// PostgresBackend stores tasks in the tasks table.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts, err := migrations.Up()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

const selectTasks = `
	SELECT id, identifier, name, notes, priority
	FROM tasks
`

func (r *PostgresBackend) All(ctx context.Context) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, selectTasks+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *PostgresBackend) ByIdentifiers(ctx context.Context, ids []uuid.UUID) ([]model.Task, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := r.pool.Query(ctx, selectTasks+" WHERE identifier = ANY($1::uuid[])", keys)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]model.Task, error) {
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var (
			t        model.Task
			id       pgtype.UUID
			priority string
		)
		if err := rows.Scan(&t.ID, &id, &t.Name, &t.Notes, &priority); err != nil {
			return nil, err
		}
		if id.Valid {
			u := uuid.UUID(id.Bytes)
			t.Identifier = &u
		}
		t.Priority = model.Priority(priority)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *PostgresBackend) Commit(ctx context.Context, cs Changeset) error {
	ids := make([]int64, len(cs.Inserts))

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, t := range cs.Updates {
			_, err := tx.Exec(ctx, `
				UPDATE tasks
				SET identifier = $2, name = $3, notes = $4, priority = $5, updated_at = now()
				WHERE id = $1
			`, t.ID, pgUUID(t.Identifier), t.Name, t.Notes, string(t.Priority))
			if err != nil {
				return err
			}
		}

		for _, t := range cs.Deletes {
			if _, err := tx.Exec(ctx, "DELETE FROM tasks WHERE id = $1", t.ID); err != nil {
				return err
			}
		}

		for i, t := range cs.Inserts {
			err := tx.QueryRow(ctx, `
				INSERT INTO tasks (identifier, name, notes, priority)
				VALUES ($1, $2, $3, $4)
				RETURNING id
			`, pgUUID(t.Identifier), t.Name, t.Notes, string(t.Priority)).Scan(&ids[i])
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapError(err)
	}

	for i, t := range cs.Inserts {
		t.ID = ids[i]
	}
	return nil
}

func (r *PostgresBackend) Close() error {
	r.pool.Close()
	return nil
}

func pgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

// mapError names the violated constraint for integrity errors.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
		return fmt.Errorf("constraint %s violated: %w", pgErr.ConstraintName, err)
	}
	return err
}

// PostgresCollection keeps the dev server's documents in remote_collection.
type PostgresCollection struct {
	pool *pgxpool.Pool
}

func NewPostgresCollection(pool *pgxpool.Pool) *PostgresCollection {
	return &PostgresCollection{pool: pool}
}

func (c *PostgresCollection) Snapshot(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := c.pool.Query(ctx, "SELECT key, body FROM remote_collection")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			key  string
			body []byte
		)
		if err := rows.Scan(&key, &body); err != nil {
			return nil, err
		}
		docs[key] = body
	}
	return docs, rows.Err()
}

func (c *PostgresCollection) Put(ctx context.Context, key string, body json.RawMessage) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO remote_collection (key, body) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`, key, []byte(body))
	return mapError(err)
}

func (c *PostgresCollection) Delete(ctx context.Context, key string) error {
	_, err := c.pool.Exec(ctx, "DELETE FROM remote_collection WHERE key = $1", key)
	return err
}
