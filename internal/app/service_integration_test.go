package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/carematch/internal/adapters/repository"
	service "github.com/okian/carematch/internal/app"
	"github.com/okian/carematch/internal/domain/model"
	"github.com/okian/carematch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	now   = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) // Wednesday
	admin = model.Actor{ID: "admin-1", Name: "Ops"}
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.AssignmentEvent
}

func (r *recordingNotifier) Notify(_ context.Context, e model.AssignmentEvent) error { //nolint:gocritic // hugeParam
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func fixtureStore(ctx context.Context) *repository.MemoryStore {
	st := repository.NewMemoryStore(ctx, repository.WithClock(func() time.Time { return now }))
	So(st.PutCustomer(ctx, model.Customer{ID: "c-1", FirstName: "Ada", LastName: "Lovelace", City: "Springfield"}), ShouldBeNil)
	So(st.PutTalent(ctx, model.Talent{ID: "t-1", Name: "Grace Hopper", City: "Springfield", Capabilities: []string{"Cleaning"}, Approval: model.ApprovalApproved}), ShouldBeNil)
	So(st.PutTalent(ctx, model.Talent{ID: "t-2", Name: "Alan Turing", City: "Shelbyville", Capabilities: []string{"Cleaning"}, Approval: model.ApprovalPending}), ShouldBeNil)
	So(st.PutTalent(ctx, model.Talent{ID: "t-3", Name: "Ken Thompson", City: "Springfield", Capabilities: []string{"Cleaning"}, Approval: model.ApprovalRejected}), ShouldBeNil)
	for _, b := range []model.Booking{
		{ID: "b-1", CustomerID: "c-1", ServiceType: "Cleaning", Address: "1 Evergreen Terrace", Date: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), Time: "8:00 am"},
		{ID: "b-2", CustomerID: "c-1", ServiceType: "Cleaning", Address: "1 Evergreen Terrace", Date: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), Time: "8 AM"},
	} {
		_, err := st.CreateBooking(ctx, b)
		So(err, ShouldBeNil)
	}
	return st
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service over a fixture store", t, func() {
		ctx := context.Background()
		notifier := &recordingNotifier{}
		svc := service.New(
			service.WithStore(fixtureStore(ctx)),
			service.WithNotifier(notifier),
			service.WithClock(func() time.Time { return now }),
			service.WithWorkerCount(1),
			service.WithLogger(logger.Nop()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a booking is assigned and completed", func() {
			assigned, err := svc.Assign(ctx, admin, "b-1", "t-1", 1)
			So(err, ShouldBeNil)
			completed, err := svc.MarkCompleted(ctx, admin, "b-1", assigned.Version)
			So(err, ShouldBeNil)

			Convey("Then the booking is closed to further assignment", func() {
				So(completed.Status, ShouldEqual, model.StatusCompleted)
				So(completed.AssignedTalentID, ShouldEqual, "t-1")

				_, err := svc.Reassign(ctx, admin, "b-1", "t-2", 0)
				So(errors.Is(err, model.ErrBookingClosed), ShouldBeTrue)
			})

			Convey("Then notifications are delivered in order", func() {
				So(eventually(func() bool { return len(notifier.types()) == 2 }), ShouldBeTrue)
				So(notifier.types(), ShouldResemble, []string{model.EventAssigned, model.EventCompleted})
			})

			Convey("Then the directory shows the talent", func() {
				view, err := svc.GetBooking(ctx, "b-1")
				So(err, ShouldBeNil)
				So(view.CustomerName, ShouldEqual, "Ada Lovelace")
				So(view.TalentName, ShouldEqual, "Grace Hopper")
			})
		})

		Convey("When a stale version is supplied", func() {
			_, err := svc.Assign(ctx, admin, "b-1", "t-1", 7)
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
		})

		Convey("When assigning a rejected talent", func() {
			_, err := svc.Assign(ctx, admin, "b-1", "t-3", 0)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("When suggesting talents for a booking", func() {
			out, err := svc.SuggestForBooking(ctx, "b-1")
			So(err, ShouldBeNil)

			Convey("Then eligible talents are ranked best first", func() {
				So(out, ShouldHaveLength, 2)
				So(out[0].TalentID, ShouldEqual, "t-1")
				So(out[0].MatchScore, ShouldEqual, 100)
				So(out[1].TalentID, ShouldEqual, "t-2")
				So(out[1].MatchScore, ShouldBeLessThan, out[0].MatchScore)
			})
		})

		Convey("When suggesting for a service nobody offers", func() {
			out, err := svc.Suggest(ctx, "Springfield", "Laundry")
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})

		Convey("When building the calendar for the current week", func() {
			grid, err := svc.Calendar(ctx, "cleaning", time.Time{})
			So(err, ShouldBeNil)

			Convey("Then the double-booked slot shows the first booking and reports the collision", func() {
				So(grid.WeekStart, ShouldEqual, "2026-03-02")
				So(grid.Slots[0], ShouldEqual, "7 AM")
				So(grid.At(1, 1), ShouldEqual, "b-1")
				So(grid.Collisions, ShouldHaveLength, 1)
				So(grid.Collisions[0].BookingIDs, ShouldResemble, []string{"b-1", "b-2"})
			})
		})

		Convey("When the calendar service is unknown", func() {
			_, err := svc.Calendar(ctx, "gardening", time.Time{})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("When listing with a status filter", func() {
			_, err := svc.SetStatus(ctx, admin, "b-2", model.StatusCancelled, 0)
			So(err, ShouldBeNil)
			views, counts, err := svc.ListBookings(ctx, model.BookingFilter{Status: model.StatusPending})
			So(err, ShouldBeNil)
			So(views, ShouldHaveLength, 1)
			So(views[0].ID, ShouldEqual, "b-1")
			So(counts.Pending, ShouldEqual, 1)
		})
	})
}
