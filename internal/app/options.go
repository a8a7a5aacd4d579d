package service

import (
	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStoreDriver selects the store Start opens.
func WithStoreDriver(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.driver = driver
			s.dsn = dsn
		}
	}
}

// WithStore makes Start use an already opened store. Stop closes it.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithBaselineRating sets the rating new associations start at.
func WithBaselineRating(r float64) Option {
	return func(s *Service) {
		if r > 0 {
			s.baseline = r
		}
	}
}

// WithGroupFallback controls whether random group selection moves on to
// the next group when the first pick is exhausted.
func WithGroupFallback(enabled bool) Option {
	return func(s *Service) {
		s.fallback = enabled
	}
}

// WithRandomSeed fixes the seed of random group selection.
func WithRandomSeed(seed int64) Option {
	return func(s *Service) {
		s.randomSeed = seed
	}
}

// WithMaxPageSize caps ranking pages.
func WithMaxPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// WithSeedOnEmpty loads the default catalog when the store is empty.
func WithSeedOnEmpty(enabled bool) Option {
	return func(s *Service) {
		s.seedOnEmpty = enabled
	}
}
