package timeslot_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/carematch/internal/domain/timeslot"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeHour(t *testing.T) {
	Convey("Given loosely formatted times", t, func() {
		cases := map[string]int{
			"8:00 am":  8,
			"8:30 am":  8,
			"2 PM":     14,
			"12pm":     12,
			"12:00 am": 0,
			"12:00 pm": 12,
			"11:59 pm": 23,
			"  9 Am  ": 9,
			"14:30":    14,
			"0":        0,
			"7":        7,
		}
		for in, want := range cases {
			got, err := timeslot.NormalizeHour(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
	})

	Convey("Given inputs that match no pattern", t, func() {
		for _, in := range []string{"", "noon", "8:0 am", "24", "13 pm", "0 am", "8:75", "8.30 am", "8 am pm", "-1"} {
			_, err := timeslot.NormalizeHour(in)
			So(errors.Is(err, timeslot.ErrUnparseable), ShouldBeTrue)
		}
	})
}

func TestRoundTrip(t *testing.T) {
	Convey("Every hour survives label rendering and normalization", t, func() {
		for h := 0; h < 24; h++ {
			got, err := timeslot.NormalizeHour(timeslot.SlotLabel(h))
			So(err, ShouldBeNil)
			So(got, ShouldEqual, h)

			h12 := h % 12
			if h12 == 0 {
				h12 = 12
			}
			meridiem := "am"
			if h >= 12 {
				meridiem = "pm"
			}
			got, err = timeslot.NormalizeHour(fmt.Sprintf("%d:00 %s", h12, meridiem))
			So(err, ShouldBeNil)
			So(got, ShouldEqual, h)
		}
	})
}

func TestSlotLabels(t *testing.T) {
	Convey("Given an hour range", t, func() {
		So(timeslot.SlotLabels(7, 9), ShouldResemble, []string{"7 AM", "8 AM", "9 AM"})
		So(timeslot.SlotLabels(11, 13), ShouldResemble, []string{"11 AM", "12 PM", "1 PM"})
		So(timeslot.SlotLabels(-3, 0), ShouldResemble, []string{"12 AM"})
		So(timeslot.SlotLabels(9, 8), ShouldBeEmpty)
	})
}
