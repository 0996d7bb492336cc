// Package calendar places bookings into the weekly date x hourly-slot grid.
//
// A cell holds at most one booking. When several bookings of the same service
// share a day and hour, the first in iteration order occupies the cell and the
// rest are reported through Grid.Collisions.
package calendar

import (
	"strings"
	"time"

	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/internal/domain/timeslot"
)

// DateLayout is the wire format of grid dates.
const DateLayout = "2006-01-02"

const daysPerWeek = 7

// Catalog resolves a service id to the title stored on bookings.
type Catalog interface {
	Title(id string) (string, bool)
}

// Matcher finds bookings for grid cells.
type Matcher struct {
	catalog Catalog
}

// NewMatcher returns a Matcher resolving service ids through catalog.
func NewMatcher(catalog Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

// FindBooking returns the first booking of serviceID on date's calendar day
// whose hour equals slotLabel's hour. Unknown services, unparseable slot
// labels and unparseable booking times never match.
func (m *Matcher) FindBooking(date time.Time, slotLabel, serviceID string, bookings []model.Booking) (model.Booking, bool) {
	title, ok := m.catalog.Title(serviceID)
	if !ok {
		return model.Booking{}, false
	}
	slotHour, err := timeslot.NormalizeHour(slotLabel)
	if err != nil {
		return model.Booking{}, false
	}
	for _, b := range bookings {
		if !strings.EqualFold(b.ServiceType, title) || !b.SameDay(date) {
			continue
		}
		if h, err := timeslot.NormalizeHour(b.Time); err == nil && h == slotHour {
			return b, true
		}
	}
	return model.Booking{}, false
}

// Collision lists bookings hidden behind the one shown in a cell.
type Collision struct {
	Date       string   `json:"date"`
	Slot       string   `json:"slot"`
	Shown      string   `json:"shown"`
	BookingIDs []string `json:"booking_ids"`
}

// Grid is a week of days by hourly slots for one service.
type Grid struct {
	ServiceID string   `json:"service_id"`
	Service   string   `json:"service"`
	WeekStart string   `json:"week_start"`
	Days      []string `json:"days"`
	Slots     []string `json:"slots"`
	// Cells[slot][day] holds a booking id or "".
	Cells      [][]string  `json:"cells"`
	Collisions []Collision `json:"collisions"`
}

// At returns the booking id shown at slot index s and day index d.
func (g Grid) At(s, d int) string {
	if s < 0 || s >= len(g.Cells) || d < 0 || d >= len(g.Cells[s]) {
		return ""
	}
	return g.Cells[s][d]
}

// Week builds the grid of seven days from weekStart for serviceID. Each cell is
// filled with the booking FindBooking would return for it.
func (m *Matcher) Week(weekStart time.Time, slotLabels []string, serviceID string, bookings []model.Booking) Grid {
	start := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())
	g := Grid{
		ServiceID:  serviceID,
		WeekStart:  start.Format(DateLayout),
		Days:       make([]string, daysPerWeek),
		Slots:      append([]string(nil), slotLabels...),
		Cells:      make([][]string, len(slotLabels)),
		Collisions: []Collision{},
	}
	days := make([]time.Time, daysPerWeek)
	for d := range daysPerWeek {
		days[d] = start.AddDate(0, 0, d)
		g.Days[d] = days[d].Format(DateLayout)
	}
	for s := range g.Cells {
		g.Cells[s] = make([]string, daysPerWeek)
	}

	title, ok := m.catalog.Title(serviceID)
	if !ok {
		return g
	}
	g.Service = title

	// slot hour -> row; duplicate labels resolve to the first row.
	rows := make(map[int]int, len(slotLabels))
	for s, label := range slotLabels {
		if h, err := timeslot.NormalizeHour(label); err == nil {
			if _, dup := rows[h]; !dup {
				rows[h] = s
			}
		}
	}

	type cell struct{ s, d int }
	hits := make(map[cell][]string)
	var order []cell
	for _, b := range bookings {
		if !strings.EqualFold(b.ServiceType, title) {
			continue
		}
		d := dayIndex(days, b)
		if d < 0 {
			continue
		}
		h, err := timeslot.NormalizeHour(b.Time)
		if err != nil {
			continue
		}
		s, ok := rows[h]
		if !ok {
			continue
		}
		c := cell{s, d}
		if _, seen := hits[c]; !seen {
			order = append(order, c)
			g.Cells[s][d] = b.ID
		}
		hits[c] = append(hits[c], b.ID)
	}

	for _, c := range order {
		if ids := hits[c]; len(ids) > 1 {
			g.Collisions = append(g.Collisions, Collision{
				Date:       g.Days[c.d],
				Slot:       g.Slots[c.s],
				Shown:      ids[0],
				BookingIDs: ids,
			})
		}
	}
	return g
}

func dayIndex(days []time.Time, b model.Booking) int {
	for d, day := range days {
		if b.SameDay(day) {
			return d
		}
	}
	return -1
}
