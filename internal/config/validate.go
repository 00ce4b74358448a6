package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks cross-field constraints. It returns the first violation
// found, wrapped around ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Bus.QueueSize <= 0 {
		return invalid("bus.queue_size must be positive, got %d", c.Bus.QueueSize)
	}
	if c.Bus.VoiceDominanceWindow < 0 {
		return invalid("bus.voice_dominance_window must not be negative")
	}
	if c.Bus.SourceActivityWindow < 0 {
		return invalid("bus.source_activity_window must not be negative")
	}

	if c.Dispatch.Cooldown < 0 {
		return invalid("dispatch.cooldown must not be negative")
	}
	if c.Dispatch.HistorySize <= 0 {
		return invalid("dispatch.history_size must be positive, got %d", c.Dispatch.HistorySize)
	}

	if c.Gaze.Hold.Std() <= 0 || c.Gaze.Cooldown.Std() <= 0 {
		return invalid("gaze.hold and gaze.cooldown must be positive")
	}
	if c.Gaze.LeftThreshold <= 0 || c.Gaze.RightThreshold >= 1 ||
		c.Gaze.LeftThreshold >= c.Gaze.RightThreshold {
		return invalid("gaze thresholds must satisfy 0 < left < right < 1, got %.2f/%.2f",
			c.Gaze.LeftThreshold, c.Gaze.RightThreshold)
	}

	if c.Blink.CloseThreshold <= 0 || c.Blink.CloseThreshold >= 1 {
		return invalid("blink.close_threshold must be in (0, 1), got %.2f", c.Blink.CloseThreshold)
	}
	if c.Blink.DoubleWindow.Std() <= 0 || c.Blink.TripleWindow.Std() <= 0 || c.Blink.ResetAfter.Std() <= 0 {
		return invalid("blink windows must be positive")
	}
	if c.Blink.DoubleWindow > c.Blink.TripleWindow {
		return invalid("blink.double_window must not exceed blink.triple_window")
	}

	if c.Gesture.StabilityFrames < 1 {
		return invalid("gesture.stability_frames must be at least 1, got %d", c.Gesture.StabilityFrames)
	}
	if c.Gesture.Cooldown < 0 || c.Gesture.PauseCooldown < 0 {
		return invalid("gesture cooldowns must not be negative")
	}
	if c.Gesture.PauseShape == "" {
		return invalid("gesture.pause_shape must be set")
	}

	if c.Voice.ListenTimeout.Std() <= 0 {
		return invalid("voice.listen_timeout must be positive")
	}
	if c.Voice.Cooldown < 0 {
		return invalid("voice.cooldown must not be negative")
	}

	if c.Priorities.Voice < 1 || c.Priorities.Gesture < 1 || c.Priorities.Eye < 1 {
		return invalid("priorities must be at least 1, got voice=%d gesture=%d eye=%d",
			c.Priorities.Voice, c.Priorities.Gesture, c.Priorities.Eye)
	}

	if err := c.validateLevel(); err != nil {
		return err
	}

	for name, action := range c.Actions {
		if err := validateAction(name, action); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLevel() error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return invalid("log.level %q is not a slog level", c.Log.Level)
	}
	return nil
}

// LogLevel parses Log.Level. Call after Validate.
func (c *Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func validateAction(name string, a Action) error {
	if strings.TrimSpace(name) == "" {
		return invalid("action with empty name")
	}
	switch a.Kind {
	case "hotkey":
		if len(a.Keys) == 0 {
			return invalid("action %s: hotkey needs keys", name)
		}
	case "press":
		if a.Key == "" {
			return invalid("action %s: press needs a key", name)
		}
	case "click":
		// Button defaults to "left" downstream.
	case "script":
		if a.Script == "" || a.Call == "" {
			return invalid("action %s: script needs script and call", name)
		}
	default:
		return invalid("action %s: unknown kind %q", name, a.Kind)
	}
	return nil
}
