package matchmaking

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/okian/critic/pkg/logger"
)

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithLogger sets the logger used for selection outcomes.
func WithLogger(l logger.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}

// WithFallback controls whether an exhausted random group is skipped in
// favor of the remaining ones. Enabled by default.
func WithFallback(enabled bool) Option {
	return func(s *Selector) {
		s.fallback = enabled
	}
}

// WithSeed makes random group choice reproducible. Zero keeps the default
// time based seed.
func WithSeed(seed int64) Option {
	return func(s *Selector) {
		if seed != 0 {
			s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // group choice, not security
		}
	}
}

// WithIDGenerator overrides how contest ids are minted.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(s *Selector) {
		if gen != nil {
			s.newID = gen
		}
	}
}
