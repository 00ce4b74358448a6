// Package eye implements the gaze-hold and blink-sequence debounce machines
// and the producer loop that drives them from a face tracker.
package eye

import "time"

// Direction is a classified gaze direction.
type Direction uint8

const (
	// DirectionCenter is the neutral gaze; no-detection ticks classify here.
	DirectionCenter Direction = iota
	// DirectionLeft is a leftward gaze.
	DirectionLeft
	// DirectionRight is a rightward gaze.
	DirectionRight
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionCenter:
		return "center"
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	default:
		return "unknown"
	}
}

// GazeConfig holds the gaze machine thresholds.
type GazeConfig struct {
	// Hold is how long a non-center direction must be maintained.
	Hold time.Duration
	// Cooldown is the minimum interval between gaze actions.
	Cooldown time.Duration
	// LeftThreshold classifies ratios below it as left.
	LeftThreshold float64
	// RightThreshold classifies ratios above it as right.
	RightThreshold float64
}

// DefaultGazeConfig returns the standard gaze thresholds.
func DefaultGazeConfig() GazeConfig {
	return GazeConfig{
		Hold:           800 * time.Millisecond,
		Cooldown:       1200 * time.Millisecond,
		LeftThreshold:  0.40,
		RightThreshold: 0.60,
	}
}

// Ratio returns the normalized position of the iris center within the eye
// rim span. A degenerate span reads as centered.
func Ratio(irisX, rimMin, rimMax float64) float64 {
	span := rimMax - rimMin
	if span <= 0 {
		return 0.5
	}
	return (irisX - rimMin) / span
}

// Classify maps a normalized iris ratio to a direction.
func Classify(ratio float64, cfg GazeConfig) Direction {
	switch {
	case ratio < cfg.LeftThreshold:
		return DirectionLeft
	case ratio > cfg.RightThreshold:
		return DirectionRight
	default:
		return DirectionCenter
	}
}

// GazeDetector is the gaze-hold state machine. It fires once when a
// non-center direction has been held long enough and the cooldown since the
// previous fire has elapsed. Callers supply tick timestamps, so the machine
// is fully deterministic.
type GazeDetector struct {
	cfg       GazeConfig
	last      Direction
	holdStart time.Time
	lastFire  time.Time
}

// NewGazeDetector creates a gaze detector with the given thresholds.
func NewGazeDetector(cfg GazeConfig) *GazeDetector {
	return &GazeDetector{cfg: cfg}
}

// Observe feeds one classification tick. It returns the observed direction
// and whether a gaze action fired on this tick.
func (g *GazeDetector) Observe(dir Direction, now time.Time) (Direction, bool) {
	if dir != g.last {
		// A direction change restarts the hold.
		g.last = dir
		g.holdStart = time.Time{}
		if dir != DirectionCenter {
			g.holdStart = now
		}
		return dir, false
	}

	if dir == DirectionCenter {
		return dir, false
	}

	if g.holdStart.IsZero() {
		g.holdStart = now
		return dir, false
	}
	if now.Sub(g.holdStart) < g.cfg.Hold {
		return dir, false
	}

	// A maintained hold re-arms after the cooldown without re-accumulating
	// the hold time.
	if !g.lastFire.IsZero() && now.Sub(g.lastFire) < g.cfg.Cooldown {
		return dir, false
	}

	g.lastFire = now
	return dir, true
}
