package app

import (
	"log/slog"

	"github.com/attunehid/attune/internal/config"
	"github.com/attunehid/attune/internal/dispatch"
	"github.com/attunehid/attune/internal/modality/eye"
	"github.com/attunehid/attune/internal/modality/gesture"
	"github.com/attunehid/attune/internal/modality/voice"
)

// buildTable overlays the configured action entries onto the built-in
// table. Script entries are skipped here; they register as custom handlers
// instead.
func buildTable(cfg *config.Config, logger *slog.Logger) map[string]dispatch.Command {
	table := dispatch.DefaultTable()
	for name, action := range cfg.Actions {
		switch action.Kind {
		case "hotkey":
			table[name] = dispatch.Hotkey(action.Keys...)
		case "press":
			table[name] = dispatch.Press(action.Key)
		case "click":
			button := action.Button
			if button == "" {
				button = "left"
			}
			table[name] = dispatch.Click(button)
		case "script":
			// Registered through the script engine.
		default:
			logger.Warn("skipping action with unknown kind", "action", name, "kind", action.Kind)
		}
	}
	return table
}

// scriptEntries returns the configured actions backed by Lua functions.
func scriptEntries(cfg *config.Config) map[string]config.Action {
	entries := make(map[string]config.Action)
	for name, action := range cfg.Actions {
		if action.Kind == "script" {
			entries[name] = action
		}
	}
	return entries
}

func gazeConfig(cfg *config.Config) eye.GazeConfig {
	return eye.GazeConfig{
		Hold:           cfg.Gaze.Hold.Std(),
		Cooldown:       cfg.Gaze.Cooldown.Std(),
		LeftThreshold:  cfg.Gaze.LeftThreshold,
		RightThreshold: cfg.Gaze.RightThreshold,
	}
}

func blinkConfig(cfg *config.Config) eye.BlinkConfig {
	return eye.BlinkConfig{
		CloseThreshold: cfg.Blink.CloseThreshold,
		DoubleWindow:   cfg.Blink.DoubleWindow.Std(),
		TripleWindow:   cfg.Blink.TripleWindow.Std(),
		ResetAfter:     cfg.Blink.ResetAfter.Std(),
	}
}

func eyeActions(cfg *config.Config) eye.Actions {
	return eye.Actions{
		LeftGaze:    cfg.Gaze.LeftAction,
		RightGaze:   cfg.Gaze.RightAction,
		DoubleBlink: cfg.Blink.DoubleAction,
		TripleBlink: cfg.Blink.TripleAction,
	}
}

func filterConfig(cfg *config.Config, logger *slog.Logger) gesture.FilterConfig {
	fc := gesture.FilterConfig{
		StabilityFrames: cfg.Gesture.StabilityFrames,
		Cooldown:        cfg.Gesture.Cooldown.Std(),
		PauseCooldown:   cfg.Gesture.PauseCooldown.Std(),
		Actions:         make(map[gesture.Shape]string, len(cfg.Gesture.Actions)),
	}
	if shape, ok := gesture.ParseShape(cfg.Gesture.PauseShape); ok {
		fc.PauseShape = shape
	} else {
		logger.Warn("unknown pause shape, using pinky_up", "shape", cfg.Gesture.PauseShape)
		fc.PauseShape = gesture.ShapePinkyUp
	}
	for name, action := range cfg.Gesture.Actions {
		shape, ok := gesture.ParseShape(name)
		if !ok {
			logger.Warn("skipping unknown gesture shape", "shape", name)
			continue
		}
		fc.Actions[shape] = action
	}
	return fc
}

func voiceRunnerConfig(cfg *config.Config) voice.RunnerConfig {
	rc := voice.DefaultRunnerConfig()
	rc.Cooldown = cfg.Voice.Cooldown.Std()
	return rc
}

// supportedIntents lists every action the dispatcher can resolve, for the
// Gemini prompt's closed intent set.
func supportedIntents(table map[string]dispatch.Command, scripts map[string]config.Action) []string {
	intents := make([]string, 0, len(table)+len(scripts))
	for name := range table {
		intents = append(intents, name)
	}
	for name := range scripts {
		intents = append(intents, name)
	}
	return intents
}
