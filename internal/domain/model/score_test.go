package model_test

import (
	"errors"
	"testing"

	"github.com/okian/critic/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScore(t *testing.T) {
	Convey("Given contest scores", t, func() {
		Convey("Then loss, draw and win should be valid", func() {
			So(model.Loss.Validate(), ShouldBeNil)
			So(model.Draw.Validate(), ShouldBeNil)
			So(model.Win.Validate(), ShouldBeNil)
		})

		Convey("Then anything else should be rejected", func() {
			for _, s := range []model.Score{-1, 0.25, 0.75, 2} {
				So(errors.Is(s.Validate(), model.ErrInvalidScore), ShouldBeTrue)
			}
		})

		Convey("Then the opponent should see the complement", func() {
			So(model.Win.Opponent(), ShouldEqual, model.Loss)
			So(model.Draw.Opponent(), ShouldEqual, model.Draw)
			So(model.Loss.Opponent(), ShouldEqual, model.Win)
		})

		Convey("Then outcomes should be named", func() {
			So(model.Win.Outcome(), ShouldEqual, "win")
			So(model.Draw.Outcome(), ShouldEqual, "draw")
			So(model.Loss.Outcome(), ShouldEqual, "loss")
			So(model.Score(3).Outcome(), ShouldEqual, "invalid")
		})
	})
}

func TestParseScore(t *testing.T) {
	Convey("Given textual scores", t, func() {
		cases := map[string]model.Score{
			"win":  model.Win,
			"DRAW": model.Draw,
			"loss": model.Loss,
			"1":    model.Win,
			"0.5":  model.Draw,
			"0":    model.Loss,
		}
		for in, want := range cases {
			got, err := model.ParseScore(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		Convey("When the input is not a score", func() {
			for _, in := range []string{"", "maybe", "0.3"} {
				_, err := model.ParseScore(in)
				So(errors.Is(err, model.ErrInvalidScore), ShouldBeTrue)
			}
		})
	})
}
