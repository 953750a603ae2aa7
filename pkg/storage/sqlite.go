package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// sqliteTimeLayout matches the TIMESTAMP text format used by existing
// listener databases, so old and new rows sort together.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// SQLiteStore implements Store on a SQLite database file
type SQLiteStore struct {
	pool  *sqlitex.Pool
	path  string
	table string
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// message table and its indexes exist.
func NewSQLiteStore(path, table string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    2,
		PrepareConn: prepareSQLiteConn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	s := &SQLiteStore{pool: pool, path: path, table: table}
	if err := s.createSchema(); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func prepareSQLiteConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteStore) createSchema() error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("failed to take connection: %w", err)
	}
	defer s.pool.Put(conn)

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			received_at TIMESTAMP NOT NULL,
			message_type TEXT,
			source TEXT,
			msg_id TEXT,
			dest TEXT,
			raw_message TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_type ON %[1]s (message_type);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s (source);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_received_at ON %[1]s (received_at);
	`, s.table)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Insert stores a record and returns its row id
func (s *SQLiteStore) Insert(ctx context.Context, rec *Record) (uint64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, &Error{Backend: BackendSQLite, Op: "insert", Err: err}
	}
	defer s.pool.Put(conn)

	query := fmt.Sprintf(`INSERT INTO %s
		(received_at, message_type, source, msg_id, dest, raw_message)
		VALUES (?, ?, ?, ?, ?, ?)`, s.table)

	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{
			rec.ReceivedAt.Format(sqliteTimeLayout),
			nullable(rec.Type),
			nullable(rec.Source),
			nullable(rec.MsgID),
			nullable(rec.Dest),
			rec.Raw,
		},
	})
	if err != nil {
		return 0, &Error{Backend: BackendSQLite, Op: "insert", Err: err}
	}
	return uint64(conn.LastInsertRowID()), nil
}

// Recent returns up to limit records, newest first
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, &Error{Backend: BackendSQLite, Op: "recent", Err: err}
	}
	defer s.pool.Put(conn)

	query := fmt.Sprintf(`SELECT id, received_at, message_type, source, msg_id, dest, raw_message
		FROM %s ORDER BY id DESC LIMIT ?`, s.table)

	var records []*Record
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			receivedAt, err := time.ParseInLocation(sqliteTimeLayout, stmt.ColumnText(1), time.Local)
			if err != nil {
				return fmt.Errorf("row %d: %w", stmt.ColumnInt64(0), err)
			}
			records = append(records, &Record{
				ID:         uint64(stmt.ColumnInt64(0)),
				ReceivedAt: receivedAt,
				Type:       stmt.ColumnText(2),
				Source:     stmt.ColumnText(3),
				MsgID:      stmt.ColumnText(4),
				Dest:       stmt.ColumnText(5),
				Raw:        stmt.ColumnText(6),
			})
			return nil
		},
	})
	if err != nil {
		return nil, &Error{Backend: BackendSQLite, Op: "recent", Err: err}
	}
	return records, nil
}

// Close closes all pooled connections
func (s *SQLiteStore) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	return nil
}

// nullable maps an empty string to SQL NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
