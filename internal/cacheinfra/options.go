package cacheinfra

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type options struct {
	clock  clockwork.Clock
	logger *zap.Logger
}

// Option configures a backend.
type Option func(*options)

// WithClock sets the clock used for expiry arithmetic.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger used for backend state changes.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
