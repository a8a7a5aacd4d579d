package repository

import (
	"time"

	"github.com/okian/critic/internal/domain/model"
)

// Options holds settings shared by every Store driver.
type Options struct {
	Baseline float64
	Now      func() time.Time
}

// Option applies a configuration option to a Store driver.
type Option func(*Options)

// WithBaseline sets the rating assigned when a title joins a group.
func WithBaseline(r float64) Option {
	return func(o *Options) {
		if r > 0 {
			o.Baseline = r
		}
	}
}

// WithClock overrides the time source used to stamp match records.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{
		Baseline: model.BaselineRating,
		Now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
