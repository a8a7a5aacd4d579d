package elo_test

import (
	"math"
	"testing"

	"github.com/okian/critic/internal/domain/elo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKFactor(t *testing.T) {
	Convey("Given the rating tiers", t, func() {
		cases := []struct {
			rating float64
			k      float64
		}{
			{3000, 5},
			{2400.5, 5},
			{2400, 10},
			{2201, 10},
			{2100, 15},
			{1900, 20},
			{1700, 25},
			{1500, 30},
			{1300, 35},
			{1000.5, 40},
			{1000, 60},
			{801, 60},
			{800, 80},
			{50, 80},
			{-20, 80},
		}

		Convey("Then K should fall as the rating rises", func() {
			for _, c := range cases {
				So(elo.KFactor(c.rating), ShouldEqual, c.k)
			}
		})
	})
}

func TestExpected(t *testing.T) {
	Convey("Given two ratings", t, func() {
		Convey("When they are equal", func() {
			Convey("Then each side is expected to score half", func() {
				So(elo.Expected(1000, 1000), ShouldEqual, 0.5)
			})
		})

		Convey("When self is 400 points stronger", func() {
			Convey("Then self is expected to score ten times the opponent", func() {
				e := elo.Expected(1400, 1000)
				So(e, ShouldAlmostEqual, 10.0/11.0, 1e-9)
				So(e+elo.Expected(1000, 1400), ShouldAlmostEqual, 1, 1e-12)
			})
		})
	})
}

func TestChange(t *testing.T) {
	Convey("Given a judgment between two contestants", t, func() {
		Convey("When equal ratings draw", func() {
			a, b := elo.Change(1000, 1000, 0.5)

			Convey("Then neither rating moves", func() {
				So(a, ShouldEqual, 0)
				So(b, ShouldEqual, 0)
				So(math.Signbit(a), ShouldBeFalse)
				So(math.Signbit(b), ShouldBeFalse)
			})
		})

		Convey("When equal ratings produce a winner", func() {
			a, b := elo.Change(1000, 1000, 1)

			Convey("Then the winner gains half of K and the loser loses it", func() {
				So(a, ShouldEqual, 30)
				So(b, ShouldEqual, -30)
			})
		})

		Convey("When both contestants share a tier", func() {
			pairs := [][3]float64{
				{1100, 1150, 1},
				{1100, 1150, 0},
				{1500, 1450, 0.5},
				{1900, 1999, 1},
			}

			Convey("Then the gain equals the loss", func() {
				for _, p := range pairs {
					a, b := elo.Change(p[0], p[1], p[2])
					So(a, ShouldEqual, -b)
				}
			})

			Convey("And the exact deltas are rounded to whole units", func() {
				a, b := elo.Change(1100, 1150, 1)
				So(a, ShouldEqual, 23)
				So(b, ShouldEqual, -23)

				a, b = elo.Change(1500, 1450, 0.5)
				So(a, ShouldEqual, -2)
				So(b, ShouldEqual, 2)
			})
		})

		Convey("When the tiers differ", func() {
			a, b := elo.Change(2500, 900, 0)

			Convey("Then the higher rated side moves less", func() {
				So(a, ShouldEqual, -5)
				So(b, ShouldEqual, 60)
			})
		})

		Convey("When a contestant below the floor loses", func() {
			a, b := elo.Change(50, 50, 0)

			Convey("Then its delta is clamped to zero", func() {
				So(a, ShouldEqual, 0)
			})

			Convey("And the opponent is unaffected by the clamp", func() {
				So(b, ShouldEqual, 40)
			})
		})

		Convey("When a contestant below the floor wins", func() {
			a, _ := elo.Change(50, 50, 1)

			Convey("Then it still gains", func() {
				So(a, ShouldEqual, 40)
			})
		})
	})
}
