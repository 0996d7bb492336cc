package calendar_test

import (
	"testing"
	"time"

	"github.com/okian/carematch/internal/domain/calendar"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/internal/domain/timeslot"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newMatcher() *calendar.Matcher {
	return calendar.NewMatcher(model.NewCatalog(map[string]string{
		"cleaning": "Cleaning",
		"driving":  "Driving",
	}))
}

func TestFindBooking(t *testing.T) {
	Convey("Given bookings across services and days", t, func() {
		m := newMatcher()
		bookings := []model.Booking{
			{ID: "b-1", ServiceType: "cleaning", Date: day(2025, 6, 1).Add(15 * time.Hour), Time: "8:30 am"},
			{ID: "b-2", ServiceType: "Driving", Date: day(2025, 6, 1), Time: "8 AM"},
			{ID: "b-3", ServiceType: "Cleaning", Date: day(2025, 6, 2), Time: "whenever"},
		}

		Convey("When the slot hour and day match", func() {
			b, ok := m.FindBooking(day(2025, 6, 1), "8 AM", "cleaning", bookings)

			Convey("Then the booking is found regardless of minutes and time of day", func() {
				So(ok, ShouldBeTrue)
				So(b.ID, ShouldEqual, "b-1")
			})
		})

		Convey("When the service differs", func() {
			b, ok := m.FindBooking(day(2025, 6, 1), "8 AM", "driving", bookings)
			So(ok, ShouldBeTrue)
			So(b.ID, ShouldEqual, "b-2")
		})

		Convey("When the service id is unknown", func() {
			_, ok := m.FindBooking(day(2025, 6, 1), "8 AM", "plumbing", bookings)
			So(ok, ShouldBeFalse)
		})

		Convey("When the booking time is unparseable", func() {
			for _, label := range timeslot.SlotLabels(0, 23) {
				_, ok := m.FindBooking(day(2025, 6, 2), label, "cleaning", bookings)
				So(ok, ShouldBeFalse)
			}
		})

		Convey("When the slot label is unparseable", func() {
			_, ok := m.FindBooking(day(2025, 6, 1), "morning", "cleaning", bookings)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given two bookings in the same cell", t, func() {
		m := newMatcher()
		bookings := []model.Booking{
			{ID: "first", ServiceType: "Cleaning", Date: day(2025, 6, 1), Time: "9:00 am"},
			{ID: "second", ServiceType: "Cleaning", Date: day(2025, 6, 1), Time: "9:15 am"},
		}

		Convey("Then the first by iteration order is returned", func() {
			b, ok := m.FindBooking(day(2025, 6, 1), "9 AM", "cleaning", bookings)
			So(ok, ShouldBeTrue)
			So(b.ID, ShouldEqual, "first")
		})
	})
}

func TestMatchingExclusivity(t *testing.T) {
	Convey("A booking at hour H appears only in the H slot", t, func() {
		m := newMatcher()
		labels := timeslot.SlotLabels(0, 23)
		for h := 0; h < 24; h++ {
			bookings := []model.Booking{{ID: "b", ServiceType: "Cleaning", Date: day(2025, 6, 4), Time: timeslot.SlotLabel(h)}}
			hits := 0
			for _, label := range labels {
				if _, ok := m.FindBooking(day(2025, 6, 4), label, "cleaning", bookings); ok {
					hits++
					So(label, ShouldEqual, timeslot.SlotLabel(h))
				}
			}
			So(hits, ShouldEqual, 1)
		}
	})
}

func TestWeek(t *testing.T) {
	Convey("Given a week of cleaning bookings", t, func() {
		m := newMatcher()
		bookings := []model.Booking{
			{ID: "mon-9", ServiceType: "Cleaning", Date: day(2025, 6, 2), Time: "9:00 am"},
			{ID: "mon-9b", ServiceType: "cleaning", Date: day(2025, 6, 2), Time: "9:45 AM"},
			{ID: "sun-2", ServiceType: "Cleaning", Date: day(2025, 6, 8), Time: "2 pm"},
			{ID: "next-week", ServiceType: "Cleaning", Date: day(2025, 6, 9), Time: "9 am"},
			{ID: "late", ServiceType: "Cleaning", Date: day(2025, 6, 3), Time: "11 pm"},
			{ID: "drive", ServiceType: "Driving", Date: day(2025, 6, 2), Time: "9 am"},
		}
		labels := timeslot.SlotLabels(7, 20)

		g := m.Week(day(2025, 6, 2), labels, "cleaning", bookings)

		Convey("Then the grid spans seven days and the given slots", func() {
			So(g.Service, ShouldEqual, "Cleaning")
			So(g.WeekStart, ShouldEqual, "2025-06-02")
			So(g.Days[6], ShouldEqual, "2025-06-08")
			So(len(g.Cells), ShouldEqual, len(labels))
		})

		Convey("Then cells agree with FindBooking", func() {
			for s, label := range labels {
				for d := range g.Days {
					date, _ := time.Parse(calendar.DateLayout, g.Days[d])
					b, ok := m.FindBooking(date, label, "cleaning", bookings)
					if ok {
						So(g.At(s, d), ShouldEqual, b.ID)
					} else {
						So(g.At(s, d), ShouldBeEmpty)
					}
				}
			}
			So(g.At(2, 0), ShouldEqual, "mon-9")
			So(g.At(7, 6), ShouldEqual, "sun-2")
		})

		Convey("Then hidden double-bookings are reported", func() {
			So(g.Collisions, ShouldHaveLength, 1)
			So(g.Collisions[0].Shown, ShouldEqual, "mon-9")
			So(g.Collisions[0].BookingIDs, ShouldResemble, []string{"mon-9", "mon-9b"})
			So(g.Collisions[0].Slot, ShouldEqual, "9 AM")
		})
	})

	Convey("Given an unknown service", t, func() {
		g := newMatcher().Week(day(2025, 6, 2), []string{"9 AM"}, "plumbing", nil)
		So(g.Service, ShouldBeEmpty)
		So(g.At(0, 0), ShouldBeEmpty)
		So(g.Collisions, ShouldBeEmpty)
	})
}
