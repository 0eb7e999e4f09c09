package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/BuzzLyutic/task-sync/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    identifier  TEXT,
    name        TEXT NOT NULL,
    notes       TEXT,
    priority    TEXT NOT NULL DEFAULT 'normal'
                CHECK (priority IN ('low', 'normal', 'high', 'critical')),
    created_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS tasks_identifier_idx ON tasks (identifier);
`

// SQLiteBackend is the on-device store.
type SQLiteBackend struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	dsn := "file::memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + path
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: every statement sees the same in-memory database and
	// writes never contend inside the driver
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range append(pragmas, sqliteSchema) {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to initialise database: %w", err)
		}
	}

	return &SQLiteBackend{conn: conn}, nil
}

func (b *SQLiteBackend) All(ctx context.Context) ([]model.Task, error) {
	rows, err := b.conn.QueryContext(ctx, `SELECT id, identifier, name, notes, priority FROM tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanSQLiteTasks(rows)
}

func (b *SQLiteBackend) ByIdentifiers(ctx context.Context, ids []uuid.UUID) ([]model.Task, error) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}

	query := `SELECT id, identifier, name, notes, priority FROM tasks WHERE identifier IN (` +
		strings.Join(placeholders, ", ") + `)`
	rows, err := b.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanSQLiteTasks(rows)
}

func scanSQLiteTasks(rows *sql.Rows) ([]model.Task, error) {
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var (
			t          model.Task
			identifier sql.NullString
			notes      sql.NullString
			priority   string
		)
		if err := rows.Scan(&t.ID, &identifier, &t.Name, &notes, &priority); err != nil {
			return nil, err
		}
		if identifier.Valid {
			id, err := uuid.Parse(identifier.String)
			if err != nil {
				return nil, fmt.Errorf("task %d: bad identifier %q: %w", t.ID, identifier.String, err)
			}
			t.Identifier = &id
		}
		if notes.Valid {
			n := notes.String
			t.Notes = &n
		}
		t.Priority = model.Priority(priority)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (b *SQLiteBackend) Commit(ctx context.Context, cs Changeset) (err error) {
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, t := range cs.Updates {
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks
			SET identifier = ?, name = ?, notes = ?, priority = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, sqliteUUID(t.Identifier), t.Name, t.Notes, string(t.Priority), t.ID)
		if err != nil {
			return err
		}
	}

	for _, t := range cs.Deletes {
		if _, err = tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, t.ID); err != nil {
			return err
		}
	}

	ids := make([]int64, len(cs.Inserts))
	for i, t := range cs.Inserts {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (identifier, name, notes, priority) VALUES (?, ?, ?, ?)
		`, sqliteUUID(t.Identifier), t.Name, t.Notes, string(t.Priority))
		if err != nil {
			return err
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	for i, t := range cs.Inserts {
		t.ID = ids[i]
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.conn.Close()
}

func sqliteUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
