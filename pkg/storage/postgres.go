package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a PostgreSQL table
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore connects to dsn and ensures the message table exists
func NewPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	config.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGSERIAL PRIMARY KEY,
			received_at TIMESTAMPTZ NOT NULL,
			message_type TEXT,
			source TEXT,
			msg_id TEXT,
			dest TEXT,
			raw_message TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_type ON %[1]s (message_type);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s (source);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_received_at ON %[1]s (received_at);
	`, table)

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return &PostgresStore{pool: pool, table: table}, nil
}

// Insert stores a record and returns its generated id
func (s *PostgresStore) Insert(ctx context.Context, rec *Record) (uint64, error) {
	query := fmt.Sprintf(`INSERT INTO %s
		(received_at, message_type, source, msg_id, dest, raw_message)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, s.table)

	var id int64
	err := s.pool.QueryRow(ctx, query,
		rec.ReceivedAt,
		nullable(rec.Type),
		nullable(rec.Source),
		nullable(rec.MsgID),
		nullable(rec.Dest),
		rec.Raw,
	).Scan(&id)
	if err != nil {
		return 0, &Error{Backend: BackendPostgres, Op: "insert", Err: err}
	}
	return uint64(id), nil
}

// Recent returns up to limit records, newest first
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*Record, error) {
	query := fmt.Sprintf(`SELECT id, received_at, message_type, source, msg_id, dest, raw_message
		FROM %s ORDER BY id DESC LIMIT $1`, s.table)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, &Error{Backend: BackendPostgres, Op: "recent", Err: err}
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			id                        int64
			rec                       Record
			msgType, src, msgID, dest *string
		)
		if err := rows.Scan(&id, &rec.ReceivedAt, &msgType, &src, &msgID, &dest, &rec.Raw); err != nil {
			return nil, &Error{Backend: BackendPostgres, Op: "recent", Err: err}
		}
		rec.ID = uint64(id)
		rec.Type = deref(msgType)
		rec.Source = deref(src)
		rec.MsgID = deref(msgID)
		rec.Dest = deref(dest)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Backend: BackendPostgres, Op: "recent", Err: err}
	}
	return records, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
