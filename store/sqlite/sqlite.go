/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces the admission engine consumes.

PURPOSE:
  Implements every collaborator contract (inventory, reservations, room
  types, rule documents, compensation, sweep runs) using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

INTERFACES IMPLEMENTED:
  admission.InventoryStore:    active bookable unit counts
  admission.ReservationStore:  overlap queries + create/cancel
  admission.RoomTypeStore:     categories and upgrade paths (via RoomTypes())
  rules.Store:                 operator-edited rule documents
  compensation.Store:          append-only compensation records

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statement exists for the compensations table.
  Reservations are never deleted either; cancellation is a status change
  that removes them from every capacity count.

OVERLAP QUERY:
  Ranges are half-open [date_from, date_to). The overlap predicate is
  date_from < ? AND date_to > ?, matching admission.DateRange.Overlaps, so
  same-day turnover never reads as a conflict at either layer.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/admission.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - admission/store.go: Interface definitions
  - admission/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/stayware/admission-engine/admission"
	"github.com/stayware/admission-engine/compensation"
	"github.com/stayware/admission-engine/rules"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes writers; SQLite allows one at a time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Reservations. Never deleted; cancellation is a status change.
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		room_type_id TEXT NOT NULL DEFAULT '',
		date_from TEXT NOT NULL,
		date_to TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Hot path: overlap counting per property (and room type)
	CREATE INDEX IF NOT EXISTS idx_reservations_property_range
		ON reservations(property_id, date_from, date_to);
	CREATE INDEX IF NOT EXISTS idx_reservations_status
		ON reservations(status);

	-- Rooms. Only bookable rooms count toward capacity; out-of-service
	-- rooms stay in the table but never count.
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		room_type_id TEXT NOT NULL DEFAULT '',
		bookable INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_property
		ON rooms(property_id, room_type_id);

	-- Room types with upgrade paths (comma-separated, preference order)
	CREATE TABLE IF NOT EXISTS room_types (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'standard',
		upgrade_targets TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_room_types_property
		ON room_types(property_id);

	-- Operator-edited overbooking rule documents (JSON)
	CREATE TABLE IF NOT EXISTS rule_documents (
		property_id TEXT NOT NULL,
		room_type_id TEXT NOT NULL DEFAULT '',
		document TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (property_id, room_type_id)
	);

	-- Compensations (append-only; corrections are new records)
	CREATE TABLE IF NOT EXISTS compensations (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL,
		comp_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT,
		reason TEXT,
		processed_at TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_compensations_booking
		ON compensations(booking_id);

	-- Compliance sweep runs, for the operations dashboard
	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		horizon_days INTEGER NOT NULL,
		status TEXT NOT NULL,
		risk_areas INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_runs_property
		ON sweep_runs(property_id, started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

const timeLayout = time.RFC3339

// =============================================================================
// admission.InventoryStore
// =============================================================================

func (s *Store) ActiveUnitCount(ctx context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) (int, error) {
	query := `SELECT COUNT(*) FROM rooms WHERE property_id = ? AND bookable = 1`
	args := []any{string(propertyID)}
	if roomTypeID != "" {
		query += ` AND room_type_id = ?`
		args = append(args, string(roomTypeID))
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	return count, nil
}

// SaveRoom inserts or replaces a room record.
func (s *Store) SaveRoom(ctx context.Context, id string, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID, bookable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := 0
	if bookable {
		b = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rooms (id, property_id, room_type_id, bookable) VALUES (?, ?, ?, ?)`,
		id, string(propertyID), string(roomTypeID), b)
	if err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	return nil
}

// =============================================================================
// admission.ReservationStore
// =============================================================================

func (s *Store) FindOverlapping(ctx context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID, rng admission.DateRange) ([]admission.Reservation, error) {
	// Half-open overlap: existing.from < candidate.to AND existing.to > candidate.from
	query := `
		SELECT id, property_id, room_type_id, date_from, date_to, status, source, created_at
		FROM reservations
		WHERE property_id = ?
		  AND status != 'cancelled'
		  AND date_from < ?
		  AND date_to > ?`
	args := []any{string(propertyID), rng.To.String(), rng.From.String()}
	if roomTypeID != "" {
		query += ` AND room_type_id = ?`
		args = append(args, string(roomTypeID))
	}
	query += ` ORDER BY date_from`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var out []admission.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Exists(ctx context.Context, id admission.ReservationID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE id = ?`, string(id)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check reservation: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Get(ctx context.Context, id admission.ReservationID) (admission.Reservation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, property_id, room_type_id, date_from, date_to, status, source, created_at
		FROM reservations WHERE id = ?`, string(id))

	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return admission.Reservation{}, admission.ErrBookingNotFound
	}
	if err != nil {
		return admission.Reservation{}, err
	}
	return r, nil
}

func (s *Store) Create(ctx context.Context, r admission.Reservation) error {
	if err := r.Range.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reservations (id, property_id, room_type_id, date_from, date_to, status, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.PropertyID), string(r.RoomTypeID),
		r.Range.From.String(), r.Range.To.String(),
		string(r.Status), r.Source, r.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (s *Store) Cancel(ctx context.Context, id admission.ReservationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE reservations SET status = 'cancelled' WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return admission.ErrBookingNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (admission.Reservation, error) {
	var id, propertyID, roomTypeID, from, to, status, source, createdAt string
	if err := row.Scan(&id, &propertyID, &roomTypeID, &from, &to, &status, &source, &createdAt); err != nil {
		return admission.Reservation{}, err
	}

	fromDate, err := admission.ParseDate(from)
	if err != nil {
		return admission.Reservation{}, err
	}
	toDate, err := admission.ParseDate(to)
	if err != nil {
		return admission.Reservation{}, err
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return admission.Reservation{}, fmt.Errorf("malformed created_at %q: %w", createdAt, err)
	}

	return admission.Reservation{
		ID:         admission.ReservationID(id),
		PropertyID: admission.PropertyID(propertyID),
		RoomTypeID: admission.RoomTypeID(roomTypeID),
		Range:      admission.DateRange{From: fromDate, To: toDate},
		Status:     admission.ReservationStatus(status),
		Source:     source,
		CreatedAt:  created,
	}, nil
}

// =============================================================================
// admission.RoomTypeStore
// =============================================================================

func (s *Store) GetRoomType(ctx context.Context, id admission.RoomTypeID) (admission.RoomType, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, property_id, name, category, upgrade_targets
		FROM room_types WHERE id = ?`, string(id))

	rt, err := scanRoomType(row)
	if err == sql.ErrNoRows {
		return admission.RoomType{}, admission.ErrRoomTypeNotFound
	}
	return rt, err
}

func (s *Store) ActiveRoomTypes(ctx context.Context, propertyID admission.PropertyID) ([]admission.RoomType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rt.id, rt.property_id, rt.name, rt.category, rt.upgrade_targets
		FROM room_types rt
		WHERE rt.property_id = ?
		  AND (EXISTS (
			SELECT 1 FROM rooms r
			WHERE r.room_type_id = rt.id AND r.bookable = 1
		  ) OR EXISTS (
			SELECT 1 FROM reservations b
			WHERE b.property_id = rt.property_id
			  AND b.room_type_id = rt.id
			  AND b.status != 'cancelled'
		  ))
		ORDER BY rt.id`, string(propertyID))
	if err != nil {
		return nil, fmt.Errorf("failed to query room types: %w", err)
	}
	defer rows.Close()

	var out []admission.RoomType
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// SaveRoomType inserts or replaces a room type definition.
func (s *Store) SaveRoomType(ctx context.Context, rt admission.RoomType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]string, len(rt.UpgradeTargets))
	for i, t := range rt.UpgradeTargets {
		targets[i] = string(t)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO room_types (id, property_id, name, category, upgrade_targets)
		VALUES (?, ?, ?, ?, ?)`,
		string(rt.ID), string(rt.PropertyID), rt.Name, string(rt.Category), strings.Join(targets, ","))
	if err != nil {
		return fmt.Errorf("failed to save room type: %w", err)
	}
	return nil
}

func scanRoomType(row rowScanner) (admission.RoomType, error) {
	var id, propertyID, name, category, targets string
	if err := row.Scan(&id, &propertyID, &name, &category, &targets); err != nil {
		return admission.RoomType{}, err
	}

	rt := admission.RoomType{
		ID:         admission.RoomTypeID(id),
		PropertyID: admission.PropertyID(propertyID),
		Name:       name,
		Category:   admission.RoomCategory(category),
	}
	if targets != "" {
		for _, t := range strings.Split(targets, ",") {
			rt.UpgradeTargets = append(rt.UpgradeTargets, admission.RoomTypeID(t))
		}
	}
	return rt, nil
}

// roomTypeAdapter exposes the store as admission.RoomTypeStore. The
// interface method name Get collides with the reservation Get on *Store,
// so the adapter renames it.
type roomTypeAdapter struct{ s *Store }

func (a roomTypeAdapter) Get(ctx context.Context, id admission.RoomTypeID) (admission.RoomType, error) {
	return a.s.GetRoomType(ctx, id)
}

func (a roomTypeAdapter) ActiveRoomTypes(ctx context.Context, propertyID admission.PropertyID) ([]admission.RoomType, error) {
	return a.s.ActiveRoomTypes(ctx, propertyID)
}

// RoomTypes returns the store's admission.RoomTypeStore view.
func (s *Store) RoomTypes() admission.RoomTypeStore { return roomTypeAdapter{s: s} }

// =============================================================================
// rules.Store
// =============================================================================

func (s *Store) RuleDocument(ctx context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) (string, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT document FROM rule_documents WHERE property_id = ? AND room_type_id = ?`,
		string(propertyID), string(roomTypeID)).Scan(&doc)
	if err == sql.ErrNoRows {
		return "", rules.ErrNoDocument
	}
	if err != nil {
		return "", fmt.Errorf("failed to load rule document: %w", err)
	}
	return doc, nil
}

func (s *Store) SaveRuleDocument(ctx context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID, doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rule_documents (property_id, room_type_id, document, updated_at)
		VALUES (?, ?, ?, ?)`,
		string(propertyID), string(roomTypeID), doc, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save rule document: %w", err)
	}
	return nil
}

// =============================================================================
// compensation.Store (append-only)
// =============================================================================

func (s *Store) AppendCompensation(ctx context.Context, rec compensation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compensations (id, booking_id, comp_type, amount, currency, reason, processed_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.BookingID), string(rec.Type), rec.Amount.String(),
		rec.Currency, rec.Reason, rec.ProcessedAt.UTC().Format(timeLayout), string(rec.Status))
	if err != nil {
		return fmt.Errorf("failed to append compensation: %w", err)
	}
	return nil
}

func (s *Store) ListCompensations(ctx context.Context, bookingID admission.ReservationID) ([]compensation.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, booking_id, comp_type, amount, currency, reason, processed_at, status
		FROM compensations WHERE booking_id = ? ORDER BY processed_at`, string(bookingID))
	if err != nil {
		return nil, fmt.Errorf("failed to query compensations: %w", err)
	}
	defer rows.Close()

	var out []compensation.Record
	for rows.Next() {
		var id, booking, typ, amount, currency, reason, processedAt, status string
		if err := rows.Scan(&id, &booking, &typ, &amount, &currency, &reason, &processedAt, &status); err != nil {
			return nil, err
		}

		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("malformed amount %q: %w", amount, err)
		}
		processed, err := time.Parse(timeLayout, processedAt)
		if err != nil {
			return nil, fmt.Errorf("malformed processed_at %q: %w", processedAt, err)
		}

		out = append(out, compensation.Record{
			ID:          id,
			BookingID:   admission.ReservationID(booking),
			Type:        compensation.Type(typ),
			Amount:      amt,
			Currency:    currency,
			Reason:      reason,
			ProcessedAt: processed,
			Status:      compensation.Status(status),
		})
	}
	return out, rows.Err()
}

// =============================================================================
// SWEEP RUNS - audit records for scheduled compliance sweeps
// =============================================================================

// SweepRun records one scheduled or on-demand compliance sweep.
type SweepRun struct {
	ID          string
	PropertyID  admission.PropertyID
	HorizonDays int
	Status      string // running, completed, failed
	RiskAreas   int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (s *Store) SaveSweepRun(ctx context.Context, run SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.UTC().Format(timeLayout)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sweep_runs (id, property_id, horizon_days, status, risk_areas, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.PropertyID), run.HorizonDays, run.Status, run.RiskAreas,
		run.Error, run.StartedAt.UTC().Format(timeLayout), completed)
	if err != nil {
		return fmt.Errorf("failed to save sweep run: %w", err)
	}
	return nil
}

func (s *Store) ListSweepRuns(ctx context.Context, propertyID admission.PropertyID, limit int) ([]SweepRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, horizon_days, status, risk_areas, error, started_at, completed_at
		FROM sweep_runs WHERE property_id = ?
		ORDER BY started_at DESC LIMIT ?`, string(propertyID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	var out []SweepRun
	for rows.Next() {
		var (
			run               SweepRun
			property, started string
			completed, errMsg sql.NullString
		)
		if err := rows.Scan(&run.ID, &property, &run.HorizonDays, &run.Status, &run.RiskAreas, &errMsg, &started, &completed); err != nil {
			return nil, err
		}
		run.PropertyID = admission.PropertyID(property)
		run.Error = errMsg.String
		startedAt, err := time.Parse(timeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("malformed started_at %q: %w", started, err)
		}
		run.StartedAt = startedAt
		if completed.Valid {
			t, err := time.Parse(timeLayout, completed.String)
			if err != nil {
				return nil, fmt.Errorf("malformed completed_at %q: %w", completed.String, err)
			}
			run.CompletedAt = &t
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Compile-time interface checks.
var (
	_ admission.InventoryStore   = (*Store)(nil)
	_ admission.ReservationStore = (*Store)(nil)
	_ admission.RoomTypeStore    = roomTypeAdapter{}
	_ rules.Store                = (*Store)(nil)
	_ compensation.Store         = (*Store)(nil)
)
