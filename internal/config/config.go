// Package config holds the runtime configuration: every detection
// threshold, timing window, the action table, and the ambient knobs
// (logging, metrics, HUD). Values load from TOML with an environment
// overlay and can be watched for live reload.
package config

import "time"

// BusConfig tunes event admission.
type BusConfig struct {
	QueueSize            int      `toml:"queue_size"`
	VoiceDominanceWindow Duration `toml:"voice_dominance_window"`
	AllowEyeWithGesture  bool     `toml:"allow_eye_with_gesture"`
	SourceActivityWindow Duration `toml:"source_activity_window"`
}

// DispatchConfig tunes action execution.
type DispatchConfig struct {
	Cooldown    Duration `toml:"cooldown"`
	HistorySize int      `toml:"history_size"`
}

// GazeConfig tunes the gaze hold machine.
type GazeConfig struct {
	Hold           Duration `toml:"hold"`
	Cooldown       Duration `toml:"cooldown"`
	LeftThreshold  float64  `toml:"left_threshold"`
	RightThreshold float64  `toml:"right_threshold"`
	LeftAction     string   `toml:"left_action"`
	RightAction    string   `toml:"right_action"`
}

// BlinkConfig tunes the blink sequence machine.
type BlinkConfig struct {
	CloseThreshold float64  `toml:"close_threshold"`
	DoubleWindow   Duration `toml:"double_window"`
	TripleWindow   Duration `toml:"triple_window"`
	ResetAfter     Duration `toml:"reset_after"`
	DoubleAction   string   `toml:"double_action"`
	TripleAction   string   `toml:"triple_action"`
}

// GestureConfig tunes the hand shape stability filter and its shape to
// action mapping.
type GestureConfig struct {
	StabilityFrames int               `toml:"stability_frames"`
	Cooldown        Duration          `toml:"cooldown"`
	PauseCooldown   Duration          `toml:"pause_cooldown"`
	PauseShape      string            `toml:"pause_shape"`
	Actions         map[string]string `toml:"actions"`
}

// GeminiConfig configures the LLM intent fallback. The API key is read
// from the environment by the voice layer, never from the file.
type GeminiConfig struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
}

// VoiceConfig tunes the voice loop and its keyword table.
type VoiceConfig struct {
	ListenTimeout Duration          `toml:"listen_timeout"`
	Cooldown      Duration          `toml:"cooldown"`
	Keywords      map[string]string `toml:"keywords"`
	Gemini        GeminiConfig      `toml:"gemini"`
}

// PriorityConfig assigns the admission priority per source.
type PriorityConfig struct {
	Voice   int `toml:"voice"`
	Gesture int `toml:"gesture"`
	Eye     int `toml:"eye"`
}

// Action is one entry of the action table. Kind selects the variant:
// "hotkey" uses Keys, "press" uses Key, "click" uses Button, "script"
// uses Script (a Lua file) and Call (a global function it defines).
type Action struct {
	Kind   string   `toml:"kind"`
	Keys   []string `toml:"keys,omitempty"`
	Key    string   `toml:"key,omitempty"`
	Button string   `toml:"button,omitempty"`
	Script string   `toml:"script,omitempty"`
	Call   string   `toml:"call,omitempty"`
}

// ActionLogConfig configures the rotating action log.
type ActionLogConfig struct {
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string          `toml:"level"`
	ActionLog ActionLogConfig `toml:"action_log"`
}

// MetricsConfig configures the Prometheus listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// HUDConfig configures the terminal HUD.
type HUDConfig struct {
	Enabled bool `toml:"enabled"`
}

// Config is the full runtime configuration.
type Config struct {
	Bus        BusConfig         `toml:"bus"`
	Dispatch   DispatchConfig    `toml:"dispatch"`
	Gaze       GazeConfig        `toml:"gaze"`
	Blink      BlinkConfig       `toml:"blink"`
	Gesture    GestureConfig     `toml:"gesture"`
	Voice      VoiceConfig       `toml:"voice"`
	Priorities PriorityConfig    `toml:"priorities"`
	Actions    map[string]Action `toml:"actions"`
	Log        LogConfig         `toml:"log"`
	Metrics    MetricsConfig     `toml:"metrics"`
	HUD        HUDConfig         `toml:"hud"`
}

// Default returns the built-in configuration. The action table is empty
// here: entries in the file overlay the dispatcher's built-in table, they
// don't replace it.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			QueueSize:            100,
			VoiceDominanceWindow: Duration(500 * time.Millisecond),
			AllowEyeWithGesture:  true,
			SourceActivityWindow: 0,
		},
		Dispatch: DispatchConfig{
			Cooldown:    Duration(200 * time.Millisecond),
			HistorySize: 100,
		},
		Gaze: GazeConfig{
			Hold:           Duration(800 * time.Millisecond),
			Cooldown:       Duration(1200 * time.Millisecond),
			LeftThreshold:  0.40,
			RightThreshold: 0.60,
			LeftAction:     "previous_tab",
			RightAction:    "next_tab",
		},
		Blink: BlinkConfig{
			CloseThreshold: 0.25,
			DoubleWindow:   Duration(500 * time.Millisecond),
			TripleWindow:   Duration(700 * time.Millisecond),
			ResetAfter:     Duration(time.Second),
			DoubleAction:   "next_tab",
			TripleAction:   "show_desktop",
		},
		Gesture: GestureConfig{
			StabilityFrames: 2,
			Cooldown:        Duration(300 * time.Millisecond),
			PauseCooldown:   Duration(800 * time.Millisecond),
			PauseShape:      "pinky_up",
			Actions: map[string]string{
				"pinch":       "copy",
				"peace":       "paste",
				"scroll_up":   "next_tab",
				"scroll_down": "previous_tab",
				"ok":          "enter",
				"fist":        "escape",
				"thumbs_up":   "play_pause",
				"thumbs_down": "volume_down",
				"open_palm":   "show_desktop",
			},
		},
		Voice: VoiceConfig{
			ListenTimeout: Duration(4 * time.Second),
			Cooldown:      Duration(time.Second),
			Keywords:      nil, // nil means the built-in keyword table
			Gemini: GeminiConfig{
				Enabled: false,
				Model:   "gemini-1.5-flash",
			},
		},
		Priorities: PriorityConfig{Voice: 3, Gesture: 2, Eye: 1},
		Actions:    map[string]Action{},
		Log: LogConfig{
			Level: "info",
			ActionLog: ActionLogConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Metrics: MetricsConfig{Addr: ""},
		HUD:     HUDConfig{Enabled: true},
	}
}
