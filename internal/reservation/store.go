package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/labctl/internal/infrastructure/database"
	"github.com/nerrad567/labctl/migrations"
)

// Store persists devices and their reservation rows in SQLite.
// It is safe for concurrent use; cross-process ordering is whatever
// SQLite's transaction commit provides.
type Store struct {
	db *sql.DB
}

// Initialize applies the embedded schema to db and returns a Store on it.
//
// The schema is created only if absent, so calling Initialize on an
// existing database leaves tables and data untouched.
func Initialize(ctx context.Context, db *database.DB) (*Store, error) {
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return nil, fmt.Errorf("initialising reservation schema: %w", err)
	}
	return NewStore(db.DB), nil
}

// NewStore wraps an open connection whose schema is already in place.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RegisterDevice inserts a device and its initial reservation row.
//
// Both rows are written in one transaction. If the device (or its
// reservation row) already exists the transaction is rolled back and
// RegisterDevice returns created=false with a nil error.
func (s *Store) RegisterDevice(ctx context.Context, name string) (created bool, err error) {
	if strings.TrimSpace(name) == "" {
		return false, ErrInvalidDeviceName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, `INSERT INTO devices (hostname) VALUES (?)`, name); err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, fmt.Errorf("inserting device: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (device_name, last_use, made_by, reserved) VALUES (?, 0, NULL, 0)`,
		name,
	); err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, fmt.Errorf("inserting reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing registration: %w", err)
	}
	return true, nil
}

// Get returns the reservation row for a device.
// Returns ErrReservationNotFound if the device is not registered.
func (s *Store) Get(ctx context.Context, deviceName string) (*Reservation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT device_name, last_use, made_by, reserved
		FROM reservations
		WHERE device_name = ?`, deviceName)

	r, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	return r, nil
}

// List returns every reservation row ordered by device name.
func (s *Store) List(ctx context.Context) ([]Reservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_name, last_use, made_by, reserved
		FROM reservations
		ORDER BY device_name`)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reservations: %w", err)
	}
	return out, nil
}

// CountDevices returns the number of registered devices.
func (s *Store) CountDevices(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting devices: %w", err)
	}
	return n, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReservation(row scanner) (*Reservation, error) {
	var (
		r        Reservation
		madeBy   sql.NullString
		reserved int
	)
	if err := row.Scan(&r.DeviceName, &r.LastUse, &madeBy, &reserved); err != nil {
		return nil, err
	}
	if madeBy.Valid {
		r.MadeBy = &madeBy.String
	}
	r.Reserved = reserved != 0
	return &r, nil
}

// isUniqueConstraintError reports whether err is a SQLite primary key or
// UNIQUE violation.
func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
