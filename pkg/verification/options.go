package verification

import (
	"time"

	"github.com/robfig/cron/v3"
)

const defaultReapSchedule = "@hourly"

type options struct {
	now        func() time.Time
	generator  Generator
	failClosed bool
	cron       *cron.Cron
	schedule   string
}

// Option customises the Issuer, Verifier, Limiter and Reaper
type Option func(*options)

// WithNow overrides the clock used for expiry, windows and redemption timestamps
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithGenerator replaces the secret and code generator
func WithGenerator(g Generator) Option {
	return func(o *options) {
		if g != nil {
			o.generator = g
		}
	}
}

// WithFailClosed makes the Limiter deny issuance when its count query fails.
// The default is to fail open.
func WithFailClosed() Option {
	return func(o *options) {
		o.failClosed = true
	}
}

// WithCron injects a preconfigured cron instance for the Reaper
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		if c != nil {
			o.cron = c
		}
	}
}

// WithSchedule overrides the cron specification used by the Reaper
func WithSchedule(spec string) Option {
	return func(o *options) {
		if spec != "" {
			o.schedule = spec
		}
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func buildOptions(opts []Option) *options {
	o := &options{
		now:       utcNow,
		generator: RandomGenerator{},
		schedule:  defaultReapSchedule,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
