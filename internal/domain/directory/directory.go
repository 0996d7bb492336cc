// Package directory assembles the enriched booking listing shown to
// administrators. Every call reads fresh from the store.
package directory

import (
	"context"
	"sort"
	"strings"

	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/internal/domain/timeslot"
)

const (
	opList = "directory.list"
	opGet  = "directory.get"
)

// Source is the persistence the directory reads.
type Source interface {
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	ListCustomers(ctx context.Context, ids []string) ([]model.Customer, error)
	ListTalents(ctx context.Context, f model.TalentFilter) ([]model.Talent, error)
}

// Directory lists bookings with customer and talent details.
type Directory struct {
	src Source
}

// New creates a Directory over src.
func New(src Source) *Directory {
	return &Directory{src: src}
}

// List returns the bookings matching f, enriched and ordered by date, hour
// (unparseable times last) and id.
func (d *Directory) List(ctx context.Context, f model.BookingFilter) ([]model.BookingView, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, model.Invalidf(opList, "unknown status %q", f.Status)
	}
	bookings, err := d.src.ListBookings(ctx, model.BookingFilter{ServiceType: f.ServiceType, Status: f.Status})
	if err != nil {
		return nil, model.WrapKind(opList, model.ErrUnavailable, err)
	}
	views, err := d.enrich(ctx, opList, bookings)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := views[:0]
	for _, v := range views {
		if !f.MatchExact(v.Booking) {
			continue
		}
		if query != "" && !matchesQuery(v, query) {
			continue
		}
		out = append(out, v)
	}

	sortViews(out)
	return out, nil
}

// Get returns one enriched booking.
func (d *Directory) Get(ctx context.Context, id string) (model.BookingView, error) {
	if strings.TrimSpace(id) == "" {
		return model.BookingView{}, model.Invalidf(opGet, "booking id is required")
	}
	b, err := d.src.GetBooking(ctx, id)
	if err != nil {
		if model.IsNotFound(err) {
			return model.BookingView{}, model.WrapKind(opGet, model.ErrNotFound, err)
		}
		return model.BookingView{}, model.WrapKind(opGet, model.ErrUnavailable, err)
	}
	views, err := d.enrich(ctx, opGet, []model.Booking{b})
	if err != nil {
		return model.BookingView{}, err
	}
	return views[0], nil
}

// Summarize counts views per status.
func Summarize(views []model.BookingView) model.StatusCounts {
	var c model.StatusCounts
	for _, v := range views {
		switch v.Status {
		case model.StatusPending:
			c.Pending++
		case model.StatusAssigned:
			c.Assigned++
		case model.StatusCompleted:
			c.Completed++
		case model.StatusCancelled:
			c.Cancelled++
		}
		c.Total++
	}
	return c
}

func (d *Directory) enrich(ctx context.Context, op string, bookings []model.Booking) ([]model.BookingView, error) {
	customerIDs := make([]string, 0, len(bookings))
	talentIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if b.CustomerID != "" {
			customerIDs = append(customerIDs, b.CustomerID)
		}
		if b.HasTalent() {
			talentIDs = append(talentIDs, b.AssignedTalentID)
		}
	}

	customers := make(map[string]model.Customer)
	if len(customerIDs) > 0 {
		list, err := d.src.ListCustomers(ctx, dedupe(customerIDs))
		if err != nil {
			return nil, model.WrapKind(op, model.ErrUnavailable, err)
		}
		for _, c := range list {
			customers[c.ID] = c
		}
	}

	talents := make(map[string]model.Talent)
	if len(talentIDs) > 0 {
		list, err := d.src.ListTalents(ctx, model.TalentFilter{IDs: dedupe(talentIDs)})
		if err != nil {
			return nil, model.WrapKind(op, model.ErrUnavailable, err)
		}
		for _, t := range list {
			talents[t.ID] = t
		}
	}

	views := make([]model.BookingView, 0, len(bookings))
	for _, b := range bookings {
		v := model.BookingView{Booking: b}
		if c, ok := customers[b.CustomerID]; ok {
			v.CustomerName = c.DisplayName()
			v.CustomerCity = c.City
		}
		if t, ok := talents[b.AssignedTalentID]; ok && b.HasTalent() {
			v.TalentName = t.Name
			v.TalentPhoto = t.PhotoURL
			v.TalentRate = t.RateString()
		}
		views = append(views, v)
	}
	return views, nil
}

func matchesQuery(v model.BookingView, query string) bool {
	for _, field := range []string{v.CustomerName, v.ServiceType, v.Address} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func sortViews(views []model.BookingView) {
	hours := make(map[string]int, len(views))
	for _, v := range views {
		h, err := timeslot.NormalizeHour(v.Time)
		if err != nil {
			h = 24
		}
		hours[v.ID] = h
	}
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if hours[a.ID] != hours[b.ID] {
			return hours[a.ID] < hours[b.ID]
		}
		return a.ID < b.ID
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
