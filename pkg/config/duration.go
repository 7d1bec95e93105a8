package config

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// ParseDuration accepts an ISO 8601 duration ("PT15M", "P1D") or a Go
// duration string ("15m")
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if isoDuration, err := duration.Parse(s); err == nil {
		return isoDuration.ToTimeDuration(), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
