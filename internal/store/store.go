package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pocketbase/dbx"
)

// Store is the relational persistence layer. Every mutation that guards a state
// transition is a conditional UPDATE whose WHERE clause encodes the expected
// prior state; callers inspect the affected row count.
type Store struct {
	db dbx.Builder
}

func New(db dbx.Builder) *Store {
	return &Store{db: db}
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(dsn string) (*dbx.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return dbx.NewFromDB(sqlDB, "postgres"), nil
}

// RunInTx runs fn against a store bound to a single transaction. Nested calls
// reuse the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Store) error) error {
	switch db := s.db.(type) {
	case *dbx.DB:
		return db.TransactionalContext(ctx, nil, func(tx *dbx.Tx) error {
			return fn(New(tx))
		})
	default:
		return fn(s)
	}
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.NewQuery("SELECT 1").WithContext(ctx).Row(&one)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL DEFAULT '',
		email            TEXT NOT NULL UNIQUE,
		password_hash    TEXT NOT NULL,
		role             TEXT NOT NULL DEFAULT 'user',
		reputation_score BIGINT NOT NULL DEFAULT 0,
		is_blocked       BOOLEAN NOT NULL DEFAULT FALSE,
		created          BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id              TEXT PRIMARY KEY,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		venue           TEXT NOT NULL DEFAULT '',
		category        TEXT NOT NULL DEFAULT '',
		image           TEXT NOT NULL DEFAULT '',
		event_date      BIGINT NOT NULL,
		sale_start_date BIGINT NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'ongoing',
		created         BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ticket_types (
		id              TEXT PRIMARY KEY,
		event_id        TEXT NOT NULL,
		name            TEXT NOT NULL,
		price           TEXT NOT NULL,
		total_seats     BIGINT NOT NULL,
		available_seats BIGINT NOT NULL CHECK (available_seats >= 0),
		sold_count      BIGINT NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'available',
		created         BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                    TEXT PRIMARY KEY,
		user_id               TEXT NOT NULL,
		event_id              TEXT NOT NULL,
		total_price           TEXT NOT NULL,
		status                TEXT NOT NULL DEFAULT 'pending',
		owned_ticket_ids      TEXT NOT NULL DEFAULT '[]',
		full_name             TEXT NOT NULL DEFAULT '',
		email                 TEXT NOT NULL DEFAULT '',
		phone                 TEXT NOT NULL DEFAULT '',
		checkout_session_id   TEXT NOT NULL DEFAULT '',
		processing_started_at BIGINT NOT NULL DEFAULT 0,
		paid_at               BIGINT NOT NULL DEFAULT 0,
		created               BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id       TEXT NOT NULL,
		line_no        BIGINT NOT NULL,
		ticket_type_id TEXT NOT NULL,
		quantity       BIGINT NOT NULL,
		sold           BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (order_id, line_no)
	)`,
	`CREATE TABLE IF NOT EXISTS owned_tickets (
		id                       TEXT PRIMARY KEY,
		ticket_type_id           TEXT NOT NULL,
		event_id                 TEXT NOT NULL,
		owner_id                 TEXT NOT NULL,
		order_id                 TEXT NOT NULL,
		order_line               BIGINT NOT NULL DEFAULT 0,
		is_traded                BOOLEAN NOT NULL DEFAULT FALSE,
		is_pending_trade         BOOLEAN NOT NULL DEFAULT FALSE,
		pending_recipient_id     TEXT NOT NULL DEFAULT '',
		pending_trade_created_at BIGINT NOT NULL DEFAULT 0,
		created                  BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trade_history (
		id           TEXT PRIMARY KEY,
		ticket_id    TEXT NOT NULL,
		from_user_id TEXT NOT NULL,
		to_user_id   TEXT NOT NULL,
		trade_date   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_types_event ON ticket_types (event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders (status, created)`,
	`CREATE INDEX IF NOT EXISTS idx_owned_tickets_owner ON owned_tickets (owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_owned_tickets_order ON owned_tickets (order_id, order_line)`,
	`CREATE INDEX IF NOT EXISTS idx_owned_tickets_recipient ON owned_tickets (pending_recipient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_history_ticket ON trade_history (ticket_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_history_from ON trade_history (from_user_id)`,
}

var tables = []string{"trade_history", "owned_tickets", "order_items", "orders", "ticket_types", "events", "accounts"}

// Migrate creates the marketplace tables if they do not exist.
func Migrate(ctx context.Context, db dbx.Builder) error {
	for _, stmt := range schema {
		if _, err := db.NewQuery(stmt).WithContext(ctx).Execute(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Drop removes the marketplace tables.
func Drop(ctx context.Context, db dbx.Builder) error {
	for _, table := range tables {
		if _, err := db.NewQuery("DROP TABLE IF EXISTS " + table).WithContext(ctx).Execute(); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func fromMillisPtr(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := fromMillis(ms)
	return &t
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
