package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/roomchat-server/internal/store"
)

// Schema creates the audit table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS room_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	room_code     TEXT NOT NULL,
	kind          TEXT NOT NULL,
	host_name     TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0,
	at            DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_room_events_code ON room_events(room_code, id);
`

// SQLiteStore implements store.AuditStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies Schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup opens the database and runs setup instead of the default schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRoomEvent appends ev to the audit log.
func (s *SQLiteStore) RecordRoomEvent(ctx context.Context, ev store.RoomEvent) (*store.RoomEvent, error) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	query := `
		INSERT INTO room_events (room_code, kind, host_name, message_count, at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, ev.RoomCode, string(ev.Kind), ev.HostName, ev.MessageCount, ev.At.UTC())
	if err != nil {
		return nil, fmt.Errorf("insert room event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	ev.ID = id
	return &ev, nil
}

// ListRoomEvents returns up to limit events, oldest first.
func (s *SQLiteStore) ListRoomEvents(ctx context.Context, code string, limit int) ([]store.RoomEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, room_code, kind, host_name, message_count, at
		FROM room_events
		WHERE (? = '' OR room_code = ?)
		ORDER BY id ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, code, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query room events: %w", err)
	}
	defer rows.Close()

	var events []store.RoomEvent
	for rows.Next() {
		var (
			ev   store.RoomEvent
			kind string
		)
		if err := rows.Scan(&ev.ID, &ev.RoomCode, &kind, &ev.HostName, &ev.MessageCount, &ev.At); err != nil {
			return nil, fmt.Errorf("scan room event: %w", err)
		}
		ev.Kind = store.RoomEventKind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room events: %w", err)
	}

	return events, nil
}
