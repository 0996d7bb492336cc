package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/carematch/internal/domain/model"
	scoring "github.com/okian/carematch/internal/domain/scoring"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSource struct {
	talents   []model.Talent
	bookings  map[string]model.Booking
	customers map[string]model.Customer
	err       error
}

func (f *fakeSource) ListTalents(_ context.Context, flt model.TalentFilter) ([]model.Talent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Talent
	for _, t := range f.talents {
		if flt.Match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSource) GetBooking(_ context.Context, id string) (model.Booking, error) {
	if f.err != nil {
		return model.Booking{}, f.err
	}
	b, ok := f.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	return b, nil
}

func (f *fakeSource) GetCustomer(_ context.Context, id string) (model.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return model.Customer{}, model.ErrNotFound
	}
	return c, nil
}

func talent(id, name, city string, approval model.Approval, services ...string) model.Talent {
	return model.Talent{ID: id, Name: name, City: city, Approval: approval, Capabilities: services}
}

func TestLocalityScorer(t *testing.T) {
	Convey("Given the locality scorer", t, func() {
		s := scoring.LocalityScorer{}

		Convey("Exact city matches score 100 for approved and pending talents", func() {
			So(s.Score("Quezon City", talent("a", "A", "quezon  city", model.ApprovalApproved)), ShouldEqual, 100)
			So(s.Score("Quezon City", talent("a", "A", "Quezon City", model.ApprovalPending)), ShouldEqual, 100)
		})

		Convey("Containing city names are a good match", func() {
			So(s.Score("Makati", talent("a", "A", "Makati City", model.ApprovalApproved)), ShouldEqual, 95)
			So(s.Score("Makati", talent("a", "A", "Makati City", model.ApprovalPending)), ShouldEqual, 90)
		})

		Convey("A shared locality token is a good match", func() {
			So(s.Score("North Caloocan", talent("a", "A", "Caloocan South", model.ApprovalApproved)), ShouldEqual, 85)
		})

		Convey("The talent address counts as a locality signal", func() {
			tl := model.Talent{Approval: model.ApprovalApproved, Address: "12 Rizal St, Pasig"}
			So(s.Score("Pasig", tl), ShouldEqual, 95)
		})

		Convey("A locality word within typo distance is a good match", func() {
			So(s.Score("Makati", talent("a", "A", "Makatti", model.ApprovalApproved)), ShouldEqual, 80)
			So(s.Score("Valenzuela", talent("a", "A", "Valenzuella City", model.ApprovalApproved)), ShouldEqual, 80)
			So(s.Score("Makati", talent("a", "A", "Makatti", model.ApprovalPending)), ShouldEqual, 75)
		})

		Convey("Unrelated cities are not near matches", func() {
			So(s.Score("Cebu", talent("a", "A", "Cagayan de Oro, Bukidnon", model.ApprovalApproved)), ShouldEqual, 50)
			So(s.Score("Naga", talent("a", "A", "San Fernando, Pampanga", model.ApprovalApproved)), ShouldEqual, 50)
			So(s.Score("Elle", talent("a", "A", "Shelbyville", model.ApprovalApproved)), ShouldEqual, 50)
			So(s.Score("Pasig", talent("a", "A", "Pasay", model.ApprovalApproved)), ShouldEqual, 50)
			So(s.Score("San Juan", talent("a", "A", "San Fernando", model.ApprovalPending)), ShouldEqual, 40)
		})

		Convey("A street named after the customer's city is not a locality signal", func() {
			tl := model.Talent{Approval: model.ApprovalApproved, City: "Shelbyville", Address: "42 Springfield Road, Shelbyville"}
			So(s.Score("Springfield", tl), ShouldEqual, 50)

			noComma := model.Talent{Approval: model.ApprovalApproved, Address: "42 Springfield Road"}
			So(s.Score("Springfield", noComma), ShouldEqual, 50)
		})

		Convey("Without a locality signal approved talents are a partial match", func() {
			So(s.Score("Cebu", talent("a", "A", "Davao", model.ApprovalApproved)), ShouldEqual, 50)
			So(s.Score("", talent("a", "A", "Davao", model.ApprovalApproved)), ShouldEqual, 50)
		})

		Convey("Without a locality signal pending talents are only available", func() {
			So(s.Score("Cebu", talent("a", "A", "Davao", model.ApprovalPending)), ShouldEqual, 40)
		})

		Convey("Near matches stay inside the good band", func() {
			for _, city := range []string{"Makati City", "Caloocan South", "QC Quezon", "Pasay"} {
				score := s.Score("Quezon", talent("a", "A", city, model.ApprovalPending))
				if score >= scoring.GoodScore {
					So(score, ShouldBeLessThan, scoring.PerfectScore)
				}
			}
		})
	})
}

func TestBucket(t *testing.T) {
	Convey("Scores map onto the four buckets", t, func() {
		So(scoring.Bucket(120), ShouldEqual, scoring.BucketPerfect)
		So(scoring.Bucket(100), ShouldEqual, scoring.BucketPerfect)
		So(scoring.Bucket(99), ShouldEqual, scoring.BucketGood)
		So(scoring.Bucket(75), ShouldEqual, scoring.BucketGood)
		So(scoring.Bucket(74), ShouldEqual, scoring.BucketPartial)
		So(scoring.Bucket(50), ShouldEqual, scoring.BucketPartial)
		So(scoring.Bucket(49), ShouldEqual, scoring.BucketAvailable)
		So(scoring.Label(scoring.BucketPerfect), ShouldEqual, "Perfect Match")
		So(scoring.Label(scoring.BucketAvailable), ShouldEqual, "Available")
	})
}

func TestEngine_Suggest(t *testing.T) {
	Convey("Given a pool of talents", t, func() {
		rate := decimal.RequireFromString("25")
		local := talent("t-local", "Zed", "Makati", model.ApprovalApproved, "Cleaning")
		local.Rate = &rate
		src := &fakeSource{talents: []model.Talent{
			talent("t-far", "Ana", "Davao", model.ApprovalApproved, "Cleaning"),
			talent("t-rejected", "Rex", "Makati", model.ApprovalRejected, "Cleaning"),
			talent("t-pending-far", "Ben", "Davao", model.ApprovalPending, "Cleaning"),
			local,
			talent("t-driver", "Dan", "Makati", model.ApprovalApproved, "Driving"),
			talent("t-near", "Cy", "Makati City", model.ApprovalApproved, "Cleaning"),
			talent("t-local-pending", "Amy", "makati", model.ApprovalPending, "Cleaning"),
		}}
		engine := scoring.NewEngine(src)

		Convey("When suggesting for a city and service", func() {
			got, err := engine.Suggest(context.Background(), "Makati", "Cleaning")
			So(err, ShouldBeNil)

			ids := make([]string, 0, len(got))
			for _, s := range got {
				ids = append(ids, s.TalentID)
			}

			Convey("Then rejected and other-service talents are excluded", func() {
				So(ids, ShouldNotContain, "t-rejected")
				So(ids, ShouldNotContain, "t-driver")
				So(len(got), ShouldEqual, 5)
			})

			Convey("Then results are ordered by score, approval, name", func() {
				So(ids, ShouldResemble, []string{"t-local", "t-local-pending", "t-near", "t-far", "t-pending-far"})
			})

			Convey("Then exact matches are perfect and outrank service-only matches", func() {
				So(got[0].MatchScore, ShouldBeGreaterThanOrEqualTo, 100)
				So(got[0].Label, ShouldEqual, "Perfect Match")
				So(got[0].Rate, ShouldEqual, "25.00")
				So(got[3].Bucket, ShouldEqual, scoring.BucketPartial)
				So(got[4].Bucket, ShouldEqual, scoring.BucketAvailable)
				for _, s := range got[3:] {
					So(got[0].MatchScore, ShouldBeGreaterThan, s.MatchScore)
				}
			})
		})

		Convey("When no talent offers the service", func() {
			got, err := engine.Suggest(context.Background(), "Makati", "Laundry")

			Convey("Then an empty result is returned without error", func() {
				So(err, ShouldBeNil)
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When a limit is configured", func() {
			got, err := scoring.NewEngine(src, scoring.WithLimit(2)).Suggest(context.Background(), "Makati", "Cleaning")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
		})

		Convey("When the service type is blank", func() {
			_, err := engine.Suggest(context.Background(), "Makati", " ")
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})

	Convey("Given a failing source", t, func() {
		engine := scoring.NewEngine(&fakeSource{err: errors.New("db down")})
		_, err := engine.Suggest(context.Background(), "Makati", "Cleaning")
		So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)

		_, err = engine.SuggestForBooking(context.Background(), "b-1")
		So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)
	})
}

func TestEngine_SuggestForBooking(t *testing.T) {
	Convey("Given a booking with a customer", t, func() {
		src := &fakeSource{
			talents: []model.Talent{
				talent("t-1", "Ana", "Pasig", model.ApprovalApproved, "Elder Care"),
				talent("t-2", "Bo", "Davao", model.ApprovalApproved, "Elder Care"),
			},
			bookings: map[string]model.Booking{
				"b-1": {ID: "b-1", CustomerID: "c-1", ServiceType: "Elder Care"},
				"b-2": {ID: "b-2", CustomerID: "c-missing", ServiceType: "Elder Care"},
			},
			customers: map[string]model.Customer{"c-1": {ID: "c-1", City: "Pasig"}},
		}
		engine := scoring.NewEngine(src)

		Convey("Then the customer's city drives the ranking", func() {
			got, err := engine.SuggestForBooking(context.Background(), "b-1")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].TalentID, ShouldEqual, "t-1")
			So(got[0].MatchScore, ShouldEqual, 100)
		})

		Convey("Then a missing customer falls back to service-only scoring", func() {
			got, err := engine.SuggestForBooking(context.Background(), "b-2")
			So(err, ShouldBeNil)
			So(got[0].MatchScore, ShouldEqual, 50)
			So(got[0].TalentID, ShouldEqual, "t-1")
		})

		Convey("Then an unknown booking is not found", func() {
			_, err := engine.SuggestForBooking(context.Background(), "nope")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then an empty booking id is a validation error", func() {
			_, err := engine.SuggestForBooking(context.Background(), "")
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})
}
