package ranking

import "github.com/okian/critic/pkg/logger"

// Option applies a configuration option to the Reader.
type Option func(*Reader)

// WithLogger sets the logger used for failed reads.
func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMaxPageSize caps the rows returned per page. Zero disables the cap.
func WithMaxPageSize(n int) Option {
	return func(r *Reader) {
		if n >= 0 {
			r.maxPageSize = n
		}
	}
}
