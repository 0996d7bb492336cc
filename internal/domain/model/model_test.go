package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/carematch/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/smartystreets/goconvey/convey"
)

func TestStatus(t *testing.T) {
	convey.Convey("Given status strings", t, func() {
		convey.Convey("When parsing known values in any case", func() {
			st, ok := model.ParseStatus(" Assigned ")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(st, convey.ShouldEqual, model.StatusAssigned)
		})

		convey.Convey("When parsing an unknown value", func() {
			_, ok := model.ParseStatus("archived")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestBooking(t *testing.T) {
	convey.Convey("Given an assigned booking", t, func() {
		at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		b := model.Booking{
			ID:               "b-1",
			Date:             time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Status:           model.StatusAssigned,
			AssignedTalentID: "t-1",
			AssignedAt:       &at,
			AssignedBy:       "admin",
		}

		convey.Convey("Then the day comparison ignores time of day", func() {
			convey.So(b.SameDay(time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)), convey.ShouldBeTrue)
			convey.So(b.SameDay(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)), convey.ShouldBeFalse)
		})

		convey.Convey("When clearing the assignment", func() {
			b.ClearAssignment()
			convey.So(b.HasTalent(), convey.ShouldBeFalse)
			convey.So(b.AssignedAt, convey.ShouldBeNil)
			convey.So(b.AssignedBy, convey.ShouldBeEmpty)
		})
	})
}

func TestTalentAndCustomer(t *testing.T) {
	convey.Convey("Given talents with different approvals", t, func() {
		rate := decimal.RequireFromString("18.5")
		approved := model.Talent{ID: "t-1", Approval: model.ApprovalApproved, Capabilities: []string{"Cleaning"}, Rate: &rate}
		rejected := model.Talent{ID: "t-2", Approval: model.ApprovalRejected, Capabilities: []string{"Cleaning"}}

		convey.So(approved.Eligible(), convey.ShouldBeTrue)
		convey.So(rejected.Eligible(), convey.ShouldBeFalse)
		convey.So(approved.Offers("Cleaning"), convey.ShouldBeTrue)
		convey.So(approved.Offers("cleaning"), convey.ShouldBeFalse)
		convey.So(approved.RateString(), convey.ShouldEqual, "18.50")
		convey.So(rejected.RateString(), convey.ShouldBeEmpty)

		f := model.TalentFilter{Capability: "Cleaning", Approvals: []model.Approval{model.ApprovalApproved}}
		convey.So(f.Match(approved), convey.ShouldBeTrue)
		convey.So(f.Match(rejected), convey.ShouldBeFalse)
	})

	convey.Convey("Given a customer with a blank middle name", t, func() {
		c := model.Customer{FirstName: "Maria", MiddleName: "  ", LastName: "Santos"}
		convey.So(c.DisplayName(), convey.ShouldEqual, "Maria Santos")
	})
}

func TestCatalog(t *testing.T) {
	convey.Convey("Given a catalog", t, func() {
		c := model.NewCatalog(map[string]string{"cleaning": "Cleaning", "Elder-Care": "Elder Care"})

		title, ok := c.Title("ELDER-care")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(title, convey.ShouldEqual, "Elder Care")

		_, ok = c.Title("plumbing")
		convey.So(ok, convey.ShouldBeFalse)

		convey.So(c.Services(), convey.ShouldResemble, []model.Service{
			{ID: "cleaning", Title: "Cleaning"},
			{ID: "elder-care", Title: "Elder Care"},
		})
	})
}

func TestOpError(t *testing.T) {
	convey.Convey("Given a wrapped backend failure", t, func() {
		cause := errors.New("connection reset")
		err := model.WrapKind("workflow.assign", model.ErrUnavailable, cause)

		convey.So(errors.Is(err, model.ErrUnavailable), convey.ShouldBeTrue)
		convey.So(errors.Is(err, cause), convey.ShouldBeTrue)
		convey.So(err.Error(), convey.ShouldEqual, "workflow.assign: backend unavailable: connection reset")

		var opErr *model.OpError
		convey.So(errors.As(err, &opErr), convey.ShouldBeTrue)
		convey.So(opErr.Op, convey.ShouldEqual, "workflow.assign")
	})

	convey.Convey("Given a talent lookup miss", t, func() {
		err := model.NewKind("workflow.assign", model.ErrTalentNotFound)
		convey.So(errors.Is(err, model.ErrTalentNotFound), convey.ShouldBeTrue)
		convey.So(errors.Is(err, model.ErrNotFound), convey.ShouldBeTrue)
		convey.So(model.WrapKind("op", model.ErrConflict, nil), convey.ShouldBeNil)
	})
}
