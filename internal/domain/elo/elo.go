// Package elo converts pairwise judgments into bounded rating deltas.
package elo

import "math"

const (
	// ratingScale is the rating gap at which the stronger side is expected
	// to score ten times as often.
	ratingScale = 400.0
	// floorRating protects weak entries from sinking further.
	floorRating = 100.0
)

// tier maps a rating threshold to its K-factor. A rating must be strictly
// above min to use k.
type tier struct {
	min float64
	k   float64
}

var tiers = []tier{
	{2400, 5},
	{2200, 10},
	{2000, 15},
	{1800, 20},
	{1600, 25},
	{1400, 30},
	{1200, 35},
	{1000, 40},
	{800, 60},
}

const lowestTierK = 80.0

// KFactor returns the maximum swing for a contestant rated r.
func KFactor(r float64) float64 {
	for _, t := range tiers {
		if r > t.min {
			return t.k
		}
	}
	return lowestTierK
}

// Expected returns the score self is expected to achieve against opponent.
func Expected(self, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-self)/ratingScale))
}

// Delta returns the rounded, floor-clamped change for a contestant rated
// self who scored s against opponent.
func Delta(self, opponent, s float64) float64 {
	d := math.Round(KFactor(self) * (s - Expected(self, opponent)))
	if d == 0 || (self < floorRating && d < 0) {
		// also normalizes -0
		return 0
	}
	return d
}

// Change returns the deltas for A and B given A's score s against B.
// Both use the pre-update ratings.
func Change(a, b, s float64) (deltaA, deltaB float64) {
	return Delta(a, b, s), Delta(b, a, 1-s)
}
