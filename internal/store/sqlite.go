// Package store persists wizard sessions in SQLite so conversations survive
// a restart.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-bot/internal/wizard"
	_ "modernc.org/sqlite"
)

// SQLiteRegistry implements wizard.Registry using SQLite.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens (creating if needed) the session database at dbPath.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &SQLiteRegistry{db: db}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return r, nil
}

func (r *SQLiteRegistry) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		user_id INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL,
		chat_id INTEGER NOT NULL,
		step INTEGER NOT NULL,
		anchor_chat_id INTEGER NOT NULL DEFAULT 0,
		anchor_message_id INTEGER NOT NULL DEFAULT 0,
		shared INTEGER NOT NULL DEFAULT 0,
		category_group TEXT NOT NULL DEFAULT '',
		shared_category TEXT NOT NULL DEFAULT '',
		account_page INTEGER NOT NULL DEFAULT 0,
		calendar_month TEXT NOT NULL DEFAULT '',
		draft_date TEXT NOT NULL DEFAULT '',
		outflow TEXT,
		inflow TEXT,
		category TEXT NOT NULL DEFAULT '',
		account TEXT NOT NULL DEFAULT '',
		memo TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (r *SQLiteRegistry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

const selectSession = `
	SELECT user_id, session_id, chat_id, step,
	       anchor_chat_id, anchor_message_id, shared,
	       category_group, shared_category, account_page, calendar_month,
	       draft_date, outflow, inflow, category, account, memo,
	       updated_at
	FROM sessions`

// Get implements the wizard.Registry interface.
func (r *SQLiteRegistry) Get(ctx context.Context, userID int64) (*wizard.Session, error) {
	row := r.db.QueryRowContext(ctx, selectSession+` WHERE user_id = ?`, userID)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wizard.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// Put implements the wizard.Registry interface.
func (r *SQLiteRegistry) Put(ctx context.Context, s *wizard.Session) error {
	query := `
	INSERT INTO sessions (user_id, session_id, chat_id, step,
		anchor_chat_id, anchor_message_id, shared,
		category_group, shared_category, account_page, calendar_month,
		draft_date, outflow, inflow, category, account, memo, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		session_id = excluded.session_id,
		chat_id = excluded.chat_id,
		step = excluded.step,
		anchor_chat_id = excluded.anchor_chat_id,
		anchor_message_id = excluded.anchor_message_id,
		shared = excluded.shared,
		category_group = excluded.category_group,
		shared_category = excluded.shared_category,
		account_page = excluded.account_page,
		calendar_month = excluded.calendar_month,
		draft_date = excluded.draft_date,
		outflow = excluded.outflow,
		inflow = excluded.inflow,
		category = excluded.category,
		account = excluded.account,
		memo = excluded.memo,
		updated_at = excluded.updated_at`

	d := s.Draft
	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.ID, s.ChatID, int(s.Step),
		s.Anchor.ChatID, s.Anchor.MessageID, s.Shared,
		s.CategoryGroup, s.SharedCategory, s.AccountPage, dateString(s.CalendarMonth),
		dateString(d.Date), d.Outflow, d.Inflow, d.Category, d.Account, d.Memo,
		s.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Clear implements the wizard.Registry interface.
func (r *SQLiteRegistry) Clear(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Expired implements the wizard.Registry interface.
func (r *SQLiteRegistry) Expired(ctx context.Context, before time.Time) ([]*wizard.Session, error) {
	rows, err := r.db.QueryContext(ctx, selectSession+` WHERE updated_at < ? ORDER BY user_id`, before.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer rows.Close()

	var out []*wizard.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired sessions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*wizard.Session, error) {
	var (
		s                   wizard.Session
		step                int
		calendar, draftDate string
		updatedAt           int64
	)
	err := row.Scan(
		&s.UserID, &s.ID, &s.ChatID, &step,
		&s.Anchor.ChatID, &s.Anchor.MessageID, &s.Shared,
		&s.CategoryGroup, &s.SharedCategory, &s.AccountPage, &calendar,
		&draftDate, &s.Draft.Outflow, &s.Draft.Inflow, &s.Draft.Category, &s.Draft.Account, &s.Draft.Memo,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Step = wizard.Step(step)
	s.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if s.CalendarMonth, err = parseDate(calendar); err != nil {
		return nil, fmt.Errorf("calendar month: %w", err)
	}
	if s.Draft.Date, err = parseDate(draftDate); err != nil {
		return nil, fmt.Errorf("draft date: %w", err)
	}
	return &s, nil
}

// dateString stores the zero date as "" since civil cannot parse its own
// zero value back.
func dateString(d civil.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, nil
	}
	return civil.ParseDate(s)
}

// Ensure SQLiteRegistry implements wizard.Registry interface.
var _ wizard.Registry = (*SQLiteRegistry)(nil)
