package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crawshaw.io/sqlite"
)

// SQLiteJournal is an implementation of Journal that uses SQLite.
type SQLiteJournal struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	dbPath string
}

// OpenSQLite opens or creates the journal database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteJournal, error) {
	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	j := &SQLiteJournal{conn: conn, dbPath: dbPath}
	if err := j.createTable(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) createTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS tool_invocations (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		status TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		duration_us INTEGER NOT NULL,
		started_at INTEGER NOT NULL
	);`

	stmt, err := j.conn.Prepare(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare create table statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute create table statement: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (j *SQLiteJournal) Path() string {
	return j.dbPath
}

// Record stores one invocation.
func (j *SQLiteJournal) Record(_ context.Context, inv Invocation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.conn == nil {
		return fmt.Errorf("journal is closed")
	}

	stmt, err := j.conn.Prepare(`
	INSERT OR REPLACE INTO tool_invocations (id, tool, status, kind, duration_us, started_at)
	VALUES (?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindText(1, inv.ID)
	stmt.BindText(2, inv.Tool)
	stmt.BindText(3, inv.Status)
	stmt.BindText(4, inv.Kind)
	stmt.BindInt64(5, inv.Duration.Microseconds())
	stmt.BindInt64(6, inv.StartedAt.UnixNano())

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to insert invocation: %w", err)
	}
	return nil
}

// Recent returns up to limit invocations, newest first.
func (j *SQLiteJournal) Recent(_ context.Context, limit int) ([]Invocation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.conn == nil {
		return nil, fmt.Errorf("journal is closed")
	}

	stmt, err := j.conn.Prepare(`
	SELECT id, tool, status, kind, duration_us, started_at FROM tool_invocations
	ORDER BY started_at DESC
	LIMIT ?;`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindInt64(1, int64(limit))

	var out []Invocation
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("failed to execute select statement: %w", err)
		}
		if !hasRow {
			break
		}
		out = append(out, Invocation{
			ID:        stmt.ColumnText(0),
			Tool:      stmt.ColumnText(1),
			Status:    stmt.ColumnText(2),
			Kind:      stmt.ColumnText(3),
			Duration:  time.Duration(stmt.ColumnInt64(4)) * time.Microsecond,
			StartedAt: time.Unix(0, stmt.ColumnInt64(5)),
		})
	}
	return out, nil
}

// Close closes the database. It is safe to call more than once.
func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.conn == nil {
		return nil
	}
	err := j.conn.Close()
	j.conn = nil
	return err
}
