package event

import (
	"log/slog"
	"time"
)

// busConfig holds the tunable parameters of a Bus.
type busConfig struct {
	queueSize       int
	voiceDominance  time.Duration
	allowEyeGesture bool
	activityWindow  time.Duration
	logger          *slog.Logger
	clock           func() time.Time
}

// defaultBusConfig returns the default bus configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		queueSize:       100,
		voiceDominance:  500 * time.Millisecond,
		allowEyeGesture: true,
		activityWindow:  0,
		logger:          slog.Default(),
		clock:           time.Now,
	}
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

// WithQueueSize sets the bounded queue capacity.
func WithQueueSize(n int) BusOption {
	return func(c *busConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithVoiceDominance sets the window during which an accepted voice event
// suppresses events from other sources.
func WithVoiceDominance(d time.Duration) BusOption {
	return func(c *busConfig) {
		if d >= 0 {
			c.voiceDominance = d
		}
	}
}

// WithEyeGestureSimultaneity controls whether eye events are admitted while
// the gesture source is active.
func WithEyeGestureSimultaneity(allow bool) BusOption {
	return func(c *busConfig) {
		c.allowEyeGesture = allow
	}
}

// WithActivityWindow bounds how long a source counts as active for conflict
// decisions. Zero keeps the original additive behavior: once active, always
// active.
func WithActivityWindow(d time.Duration) BusOption {
	return func(c *busConfig) {
		if d >= 0 {
			c.activityWindow = d
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(l *slog.Logger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) BusOption {
	return func(c *busConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}
