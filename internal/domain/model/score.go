package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Score is the outcome of a contest for contestant A.
type Score float64

// Valid scores.
const (
	Loss Score = 0
	Draw Score = 0.5
	Win  Score = 1
)

// Validate returns ErrInvalidScore unless s is a loss, draw or win.
func (s Score) Validate() error {
	switch s {
	case Loss, Draw, Win:
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidScore, float64(s))
}

// Opponent returns the score from B's side.
func (s Score) Opponent() Score {
	return 1 - s
}

// Outcome names the score for logs and metric labels.
func (s Score) Outcome() string {
	switch s {
	case Win:
		return "win"
	case Draw:
		return "draw"
	case Loss:
		return "loss"
	}
	return "invalid"
}

// ParseScore accepts "win", "draw", "loss" or a numeric 0, 0.5, 1.
func ParseScore(v string) (Score, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "win", "a":
		return Win, nil
	case "draw", "equal":
		return Draw, nil
	case "loss", "b":
		return Loss, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, v)
	}
	s := Score(f)
	if err := s.Validate(); err != nil {
		return 0, err
	}
	return s, nil
}
