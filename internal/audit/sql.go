package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const createTable = `CREATE TABLE IF NOT EXISTS governance_audit_log (
	log_id     TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	actor_id   TEXT,
	target_id  TEXT,
	action     TEXT NOT NULL,
	old_value  TEXT,
	new_value  TEXT,
	metadata   TEXT,
	created_at TIMESTAMP NOT NULL
)`

const insertEntry = `INSERT INTO governance_audit_log
	(log_id, event_type, actor_id, target_id, action, old_value, new_value, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// SQLLogger writes entries to governance_audit_log through database/sql.
// Postgres (lib/pq) and sqlite both accept its statements.
type SQLLogger struct {
	db *sql.DB
}

// OpenSQLLogger opens driverName/dsn, pings it and creates the table.
func OpenSQLLogger(ctx context.Context, driverName, dsn string) (*SQLLogger, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}
	l := NewSQLLogger(db)
	if err := l.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// NewSQLLogger wraps an open database.
func NewSQLLogger(db *sql.DB) *SQLLogger {
	return &SQLLogger{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (l *SQLLogger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create governance_audit_log: %w", err)
	}
	return nil
}

// InsertAuditLog inserts a single audit log entry.
func (l *SQLLogger) InsertAuditLog(ctx context.Context, e *Entry) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}
	_, err := l.db.ExecContext(ctx, insertEntry,
		e.LogID, string(e.EventType), e.ActorID, e.TargetID, e.Action,
		nullable(e.OldValue), nullable(e.NewValue), nullable(metadata), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry %s: %w", e.LogID, err)
	}
	return nil
}

// Close closes the database.
func (l *SQLLogger) Close() error {
	return l.db.Close()
}

func nullable(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
