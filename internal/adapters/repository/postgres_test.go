package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingCols = []string{
	"id", "customer_id", "service_type", "address", "booking_date", "booking_time",
	"duration", "instructions", "status", "assigned_talent_id", "assigned_at", "assigned_by",
	"version", "created_at", "updated_at",
}

var talentCols = []string{"id", "name", "address", "city", "capabilities", "rate", "experience", "approval", "photo_url"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func bookingRow(rows *sqlmock.Rows, id, status, talentID string, version int64) *sqlmock.Rows {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var talent, assignedAt any
	if talentID != "" {
		talent = talentID
		assignedAt = day.Add(9 * time.Hour)
	}
	return rows.AddRow(id, "c-1", "Cleaning", "1 Ayala Ave", day, "9:00 am", "", "", status,
		talent, assignedAt, "", version, day, day)
}

func TestPostgresStore_GetBooking(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \$1`).
		WithArgs("b-1").
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingCols), "b-1", "assigned", "t-1", 3))

	b, err := s.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, b.Status)
	assert.Equal(t, "t-1", b.AssignedTalentID)
	assert.Equal(t, int64(3), b.Version)
	require.NotNil(t, b.AssignedAt)

	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = s.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListBookingsFilters(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows(bookingCols)
	bookingRow(rows, "b-1", "pending", "", 1)
	bookingRow(rows, "b-2", "pending", "", 1)
	mock.ExpectQuery(`FROM bookings WHERE lower\(service_type\) = lower\(\$1\) AND status = \$2 ORDER BY created_at, id`).
		WithArgs("cleaning", "pending").
		WillReturnRows(rows)

	got, err := s.ListBookings(context.Background(), model.BookingFilter{ServiceType: "cleaning", Status: model.StatusPending, Query: "ignored"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Nil(t, got[0].AssignedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateBooking(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	next := model.Booking{ID: "b-1", Status: model.StatusAssigned, AssignedTalentID: "t-1", AssignedAt: &at, AssignedBy: "admin"}

	t.Run("applies when the version matches", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`UPDATE bookings .+ WHERE id = \$1 AND version = \$2`).
			WithArgs("b-1", int64(4), "assigned", "t-1", sqlmock.AnyArg(), "admin").
			WillReturnRows(bookingRow(sqlmock.NewRows(bookingCols), "b-1", "assigned", "t-1", 5))

		b, err := s.UpdateBooking(ctx, next, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(5), b.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a conflict when the version moved on", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`UPDATE bookings`).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs("b-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := s.UpdateBooking(ctx, next, 4)
		assert.ErrorIs(t, err, ErrConflict)
		assert.ErrorIs(t, err, model.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports not found when the booking is gone", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`UPDATE bookings`).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs("b-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := s.UpdateBooking(ctx, next, 4)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("passes backend failures through", func(t *testing.T) {
		s, mock := newMockStore(t)
		boom := errors.New("connection reset")
		mock.ExpectQuery(`UPDATE bookings`).WillReturnError(boom)

		_, err := s.UpdateBooking(ctx, next, 4)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, model.ErrConflict)
	})
}

func TestPostgresStore_ListTalents(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows(talentCols).
		AddRow("t-1", "Ana", "12 Rizal St", "Pasig", []byte(`["Cleaning","Laundry"]`), "18.50", "5 years", "approved", "").
		AddRow("t-2", "Bo", "", "Makati", []byte(`["Cleaning"]`), nil, "", "pending", "")
	mock.ExpectQuery(`FROM talents WHERE capabilities @> jsonb_build_array\(\$1::text\) AND approval IN \(\$2, \$3\) ORDER BY id`).
		WithArgs("Cleaning", "approved", "pending").
		WillReturnRows(rows)

	got, err := s.ListTalents(context.Background(), model.TalentFilter{
		Capability: "Cleaning",
		Approvals:  []model.Approval{model.ApprovalApproved, model.ApprovalPending},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Cleaning", "Laundry"}, got[0].Capabilities)
	require.NotNil(t, got[0].Rate)
	assert.True(t, got[0].Rate.Equal(decimal.RequireFromString("18.5")))
	assert.Nil(t, got[1].Rate)
	assert.Equal(t, model.ApprovalPending, got[1].Approval)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCustomersByID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM customers WHERE id IN \(\$1, \$2\)`).
		WithArgs("c-1", "c-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "middle_name", "last_name", "city"}).
			AddRow("c-1", "Maria", "", "Santos", "Makati"))

	got, err := s.ListCustomers(context.Background(), []string{"c-1", "c-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Maria Santos", got[0].DisplayName())

	empty, err := s.ListCustomers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutTalentAndCount(t *testing.T) {
	s, mock := newMockStore(t)
	rate := decimal.RequireFromString("20")

	mock.ExpectExec(`INSERT INTO talents .+ ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("t-1", "Ana", "", "Pasig", []byte(`["Cleaning"]`), sqlmock.AnyArg(), "", "pending", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.PutTalent(context.Background(), model.Talent{ID: "t-1", Name: "Ana", City: "Pasig", Capabilities: []string{"Cleaning"}, Rate: &rate}))
	assert.ErrorIs(t, s.PutTalent(context.Background(), model.Talent{}), ErrInvalidRecord)

	mock.ExpectQuery(`SELECT\s+\(SELECT count\(\*\) FROM bookings\)`).
		WillReturnRows(sqlmock.NewRows([]string{"b", "t", "c"}).AddRow(7, 3, 2))
	counts, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counts{Bookings: 7, Talents: 3, Customers: 2}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateBookingDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO bookings .+ ON CONFLICT \(id\) DO NOTHING`).WillReturnError(sql.ErrNoRows)

	_, err := s.CreateBooking(context.Background(), model.Booking{ID: "b-1", ServiceType: "Cleaning"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
