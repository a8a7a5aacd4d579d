package rating

import "github.com/okian/critic/pkg/logger"

// Option applies a configuration option to the Updater.
type Option func(*Updater)

// WithLogger sets the logger used for recorded judgments.
func WithLogger(l logger.Logger) Option {
	return func(u *Updater) {
		if l != nil {
			u.log = l
		}
	}
}
