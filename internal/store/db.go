package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

// Engine names reported by DB.Engine.
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// DB wraps sql.DB over either Postgres (pgx) or SQLite (mattn). The engine
// is picked from the DSN: postgres:// or postgresql:// selects Postgres,
// anything else is treated as a SQLite file path.
type DB struct {
	Client *sql.DB
	Engine string
}

// Open connects to the configured store and applies the schema.
func Open(databaseURL string) (*DB, error) {
	db, err := connect(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Connect opens the store without applying the schema. Used by the migrate
// command, which wants to report the two steps separately.
func Connect(databaseURL string) (*DB, error) {
	return connect(databaseURL)
}

func connect(databaseURL string) (*DB, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		db, err := sql.Open("pgx", databaseURL)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		if err := db.PingContext(context.Background()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return &DB{Client: db, Engine: EnginePostgres}, nil
	}

	if dir := filepath.Dir(databaseURL); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	db, err := sql.Open("sqlite3", databaseURL+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single pooled connection also keeps
	// :memory: stores coherent across queries.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &DB{Client: db, Engine: EngineSQLite}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Healthy verifies store connectivity.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Migrate applies the schema. Statements are IF NOT EXISTS so reapplying is
// safe; only the primary-key fragment differs between engines.
func (d *DB) Migrate(ctx context.Context) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.Engine == EnginePostgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}
	_, err := d.Client.ExecContext(ctx, fmt.Sprintf(schemaTemplate, pk))
	return err
}

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS students (
	id                %[1]s,
	hostel_code       TEXT NOT NULL,
	name              TEXT NOT NULL,
	address           TEXT NOT NULL DEFAULT '',
	course            TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	room_number       TEXT NOT NULL DEFAULT '',
	room_type         TEXT NOT NULL DEFAULT '',
	monthly_rent      INTEGER NOT NULL DEFAULT 0,
	advance_paid      INTEGER NOT NULL DEFAULT 0,
	advance_remaining INTEGER NOT NULL DEFAULT 0,
	date_join         TEXT NOT NULL DEFAULT '',
	date_leave        TEXT NOT NULL DEFAULT '',
	photo_path        TEXT NOT NULL DEFAULT '',
	is_deleted        INTEGER NOT NULL DEFAULT 0,
	deleted_at        TEXT NOT NULL DEFAULT '',
	created_at        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_students_hostel_deleted ON students(hostel_code, is_deleted);
CREATE INDEX IF NOT EXISTS idx_students_hostel_room    ON students(hostel_code, room_number);

CREATE TABLE IF NOT EXISTS rent_payments (
	id                %[1]s,
	student_id        INTEGER NOT NULL,
	date              TEXT NOT NULL,
	amount_paid       INTEGER NOT NULL DEFAULT 0,
	balance_remaining INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_rent_payments_student ON rent_payments(student_id);

CREATE TABLE IF NOT EXISTS extra_food (
	id                %[1]s,
	student_id        INTEGER NOT NULL,
	date              TEXT NOT NULL,
	amount_paid       INTEGER NOT NULL DEFAULT 0,
	balance_remaining INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_extra_food_student ON extra_food(student_id);

CREATE TABLE IF NOT EXISTS attendance (
	id          %[1]s,
	hostel_code TEXT NOT NULL,
	date        TEXT NOT NULL,
	room_number TEXT NOT NULL,
	student_id  INTEGER NOT NULL,
	status      TEXT NOT NULL,
	created_at  TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_day ON attendance(hostel_code, date, room_number, student_id);

CREATE TABLE IF NOT EXISTS monthly_accounts (
	id             %[1]s,
	hostel_code    TEXT NOT NULL,
	student_id     INTEGER NOT NULL,
	date           TEXT NOT NULL,
	room_number    TEXT NOT NULL DEFAULT '',
	rent_paid      INTEGER NOT NULL DEFAULT 0,
	rent_remaining INTEGER NOT NULL DEFAULT 0,
	eb_share       INTEGER NOT NULL DEFAULT 0,
	eb_paid        INTEGER NOT NULL DEFAULT 0,
	eb_remaining   INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_monthly_accounts_month ON monthly_accounts(hostel_code, student_id, date);
`

// IsUniqueViolation reports whether err is a unique-constraint violation on
// either engine.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
