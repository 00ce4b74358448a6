package gesture

import "time"

// Decision is the outcome of one stability-filter tick.
type Decision uint8

const (
	// DecisionNone reports nothing to do.
	DecisionNone Decision = iota
	// DecisionAction reports a stable, mapped, cooldown-clear shape.
	DecisionAction
	// DecisionPauseToggle reports the dedicated pause gesture.
	DecisionPauseToggle
)

// FilterConfig holds the stability-filter thresholds.
type FilterConfig struct {
	// StabilityFrames is how many consecutive identical classifications
	// make a shape intentional.
	StabilityFrames int
	// Cooldown is the minimum interval between gesture actions, measured
	// from the last action of any shape.
	Cooldown time.Duration
	// PauseCooldown is the dedicated interval for the pause gesture.
	PauseCooldown time.Duration
	// PauseShape is the shape that toggles the system pause.
	PauseShape Shape
	// Actions maps shapes to unified action names. Unmapped shapes never
	// emit and never consume the cooldown.
	Actions map[Shape]string
}

// DefaultFilterConfig returns the standard stability thresholds and the
// built-in shape-to-action mapping.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		StabilityFrames: 2,
		Cooldown:        300 * time.Millisecond,
		PauseCooldown:   800 * time.Millisecond,
		PauseShape:      ShapePinkyUp,
		Actions: map[Shape]string{
			ShapePinch:      "copy",
			ShapePeace:      "paste",
			ShapeScrollUp:   "next_tab",
			ShapeScrollDown: "previous_tab",
			ShapeOK:         "enter",
			ShapeFist:       "escape",
			ShapeThumbsUp:   "play_pause",
			ShapeThumbsDown: "volume_down",
			ShapeOpenPalm:   "show_desktop",
		},
	}
}

// StabilityFilter debounces raw classifications: a shape must repeat for
// StabilityFrames consecutive ticks before it counts, and actions are
// rate-limited by the gesture cooldown.
type StabilityFilter struct {
	cfg       FilterConfig
	prev      Shape
	run       int
	lastFired time.Time
	lastPause time.Time
}

// NewStabilityFilter creates a stability filter.
func NewStabilityFilter(cfg FilterConfig) *StabilityFilter {
	if cfg.StabilityFrames < 1 {
		cfg.StabilityFrames = 1
	}
	return &StabilityFilter{cfg: cfg}
}

// Observe feeds one classification tick. On DecisionAction the returned
// string is the mapped action name.
func (f *StabilityFilter) Observe(s Shape, now time.Time) (string, Decision) {
	if s == f.prev {
		f.run++
	} else {
		f.prev = s
		f.run = 1
	}

	if f.run < f.cfg.StabilityFrames || s == ShapeNeutral {
		return "", DecisionNone
	}

	// The pause shape has its own cooldown and is never eligible for a
	// plain action.
	if s == f.cfg.PauseShape {
		if now.Sub(f.lastPause) > f.cfg.PauseCooldown {
			f.lastPause = now
			return "", DecisionPauseToggle
		}
		return "", DecisionNone
	}

	action, mapped := f.cfg.Actions[s]
	if !mapped || action == "" {
		return "", DecisionNone
	}
	if now.Sub(f.lastFired) <= f.cfg.Cooldown {
		return "", DecisionNone
	}

	f.lastFired = now
	return action, DecisionAction
}
