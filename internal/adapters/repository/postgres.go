package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/pkg/metrics"
	"github.com/shopspring/decimal"
)

const bookingColumns = `id, customer_id, service_type, address, booking_date, booking_time,
	duration, instructions, status, assigned_talent_id, assigned_at, assigned_by,
	version, created_at, updated_at`

const talentColumns = `id, name, address, city, capabilities, rate, experience, approval, photo_url`

const customerColumns = `id, first_name, middle_name, last_name, city`

// PostgresStore is a Store backed by PostgreSQL through database/sql.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres opens a pgx-backed pool for dsn and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db, opts...), nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the handle for migrations.
func (s *PostgresStore) DB() *sql.DB { return s.db }

// Close closes the pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(r rowScanner) (model.Booking, error) {
	var (
		b          model.Booking
		status     string
		talentID   sql.NullString
		assignedAt sql.NullTime
	)
	err := r.Scan(&b.ID, &b.CustomerID, &b.ServiceType, &b.Address, &b.Date, &b.Time,
		&b.Duration, &b.Instructions, &status, &talentID, &assignedAt, &b.AssignedBy,
		&b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.Status(status)
	b.AssignedTalentID = talentID.String
	if assignedAt.Valid {
		at := assignedAt.Time.UTC()
		b.AssignedAt = &at
	}
	return b, nil
}

func scanTalent(r rowScanner) (model.Talent, error) {
	var (
		t        model.Talent
		caps     []byte
		rate     decimal.NullDecimal
		approval string
	)
	if err := r.Scan(&t.ID, &t.Name, &t.Address, &t.City, &caps, &rate, &t.Experience, &approval, &t.PhotoURL); err != nil {
		return model.Talent{}, err
	}
	if len(caps) > 0 {
		if err := json.Unmarshal(caps, &t.Capabilities); err != nil {
			return model.Talent{}, fmt.Errorf("talent %s capabilities: %w", t.ID, err)
		}
	}
	if rate.Valid {
		v := rate.Decimal
		t.Rate = &v
	}
	t.Approval = model.Approval(approval)
	return t, nil
}

func scanCustomer(r rowScanner) (model.Customer, error) {
	var c model.Customer
	err := r.Scan(&c.ID, &c.FirstName, &c.MiddleName, &c.LastName, &c.City)
	return c, err
}

func (s *PostgresStore) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	defer observeQuery("bookings", time.Now())
	row := s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	defer observeQuery("bookings", time.Now())
	var (
		where []string
		args  []any
	)
	if f.ServiceType != "" {
		args = append(args, f.ServiceType)
		where = append(where, "lower(service_type) = lower($"+strconv.Itoa(len(args))+")")
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	if strings.TrimSpace(b.ServiceType) == "" {
		return model.Booking{}, fmt.Errorf("%w: service type is required", ErrInvalidRecord)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = model.StatusPending
	}
	if !b.Status.Valid() {
		return model.Booking{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, b.Status)
	}
	talentID, assignedAt := assignmentArgs(b)

	row := s.db.QueryRowContext(ctx, `INSERT INTO bookings
		(id, customer_id, service_type, address, booking_date, booking_time, duration, instructions,
		 status, assigned_talent_id, assigned_at, assigned_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
		RETURNING `+bookingColumns,
		b.ID, b.CustomerID, b.ServiceType, b.Address, b.Date, b.Time, b.Duration, b.Instructions,
		string(b.Status), talentID, assignedAt, b.AssignedBy)
	created, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("booking %s: %w", b.ID, ErrDuplicate)
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateBooking(ctx context.Context, b model.Booking, expectedVersion int64) (model.Booking, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds())) }()

	talentID, assignedAt := assignmentArgs(b)

	row := s.db.QueryRowContext(ctx, `UPDATE bookings
		SET status = $3, assigned_talent_id = $4, assigned_at = $5, assigned_by = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING `+bookingColumns,
		b.ID, expectedVersion, string(b.Status), talentID, assignedAt, b.AssignedBy)
	updated, err := scanBooking(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("update booking %s: %w", b.ID, err)
	}

	// Nothing matched: either the booking is gone or its version moved on.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, b.ID).Scan(&exists); err != nil {
		return model.Booking{}, fmt.Errorf("update booking %s: %w", b.ID, err)
	}
	if !exists {
		return model.Booking{}, fmt.Errorf("booking %s: %w", b.ID, ErrNotFound)
	}
	metrics.RecordRepositoryConflict()
	return model.Booking{}, fmt.Errorf("booking %s expected version %d: %w", b.ID, expectedVersion, ErrConflict)
}

func (s *PostgresStore) GetTalent(ctx context.Context, id string) (model.Talent, error) {
	defer observeQuery("talents", time.Now())
	t, err := scanTalent(s.db.QueryRowContext(ctx, `SELECT `+talentColumns+` FROM talents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Talent{}, fmt.Errorf("talent %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Talent{}, fmt.Errorf("get talent %s: %w", id, err)
	}
	return t, nil
}

func (s *PostgresStore) ListTalents(ctx context.Context, f model.TalentFilter) ([]model.Talent, error) {
	defer observeQuery("talents", time.Now())
	var (
		where []string
		args  []any
	)
	if len(f.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(&args, toAny(f.IDs))+")")
	}
	if f.Capability != "" {
		args = append(args, f.Capability)
		where = append(where, "capabilities @> jsonb_build_array($"+strconv.Itoa(len(args))+"::text)")
	}
	if len(f.Approvals) > 0 {
		approvals := make([]any, len(f.Approvals))
		for i, a := range f.Approvals {
			approvals[i] = string(a)
		}
		where = append(where, "approval IN ("+placeholders(&args, approvals)+")")
	}
	query := `SELECT ` + talentColumns + ` FROM talents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list talents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Talent, 0)
	for rows.Next() {
		t, err := scanTalent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan talent: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list talents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) PutTalent(ctx context.Context, t model.Talent) error {
	if t.ID == "" {
		return fmt.Errorf("%w: talent id is required", ErrInvalidRecord)
	}
	caps, err := json.Marshal(append([]string{}, t.Capabilities...))
	if err != nil {
		return fmt.Errorf("encode capabilities: %w", err)
	}
	var rate decimal.NullDecimal
	if t.Rate != nil {
		rate = decimal.NullDecimal{Decimal: *t.Rate, Valid: true}
	}
	approval := t.Approval
	if approval == "" {
		approval = model.ApprovalPending
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO talents (`+talentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, city = EXCLUDED.city,
			capabilities = EXCLUDED.capabilities, rate = EXCLUDED.rate,
			experience = EXCLUDED.experience, approval = EXCLUDED.approval,
			photo_url = EXCLUDED.photo_url`,
		t.ID, t.Name, t.Address, t.City, caps, rate, t.Experience, string(approval), t.PhotoURL)
	if err != nil {
		return fmt.Errorf("put talent %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	defer observeQuery("customers", time.Now())
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Customer{}, fmt.Errorf("get customer %s: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) ListCustomers(ctx context.Context, ids []string) ([]model.Customer, error) {
	if len(ids) == 0 {
		return []model.Customer{}, nil
	}
	defer observeQuery("customers", time.Now())
	var args []any
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id IN (` + placeholders(&args, toAny(ids)) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Customer, 0, len(ids))
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) PutCustomer(ctx context.Context, c model.Customer) error {
	if c.ID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidRecord)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO customers (`+customerColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name, middle_name = EXCLUDED.middle_name,
			last_name = EXCLUDED.last_name, city = EXCLUDED.city`,
		c.ID, c.FirstName, c.MiddleName, c.LastName, c.City)
	if err != nil {
		return fmt.Errorf("put customer %s: %w", c.ID, err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT count(*) FROM bookings),
		(SELECT count(*) FROM talents),
		(SELECT count(*) FROM customers)`).Scan(&c.Bookings, &c.Talents, &c.Customers)
	if err != nil {
		return Counts{}, fmt.Errorf("count records: %w", err)
	}
	return c, nil
}

// assignmentArgs maps the optional assignment fields to nullable columns.
func assignmentArgs(b model.Booking) (sql.NullString, sql.NullTime) { //nolint:gocritic // hugeParam
	var at sql.NullTime
	if b.AssignedAt != nil {
		at = sql.NullTime{Time: *b.AssignedAt, Valid: true}
	}
	return sql.NullString{String: b.AssignedTalentID, Valid: b.AssignedTalentID != ""}, at
}

// placeholders appends values to args and returns "$n, $n+1, ...".
func placeholders(args *[]any, values []any) string {
	ph := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		ph[i] = "$" + strconv.Itoa(len(*args))
	}
	return strings.Join(ph, ", ")
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
