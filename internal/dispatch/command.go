package dispatch

import "log/slog"

// CommandKind tags a static action-table entry.
type CommandKind uint8

const (
	// CommandHotkey presses a key combination simultaneously.
	CommandHotkey CommandKind = iota
	// CommandPress presses a single key.
	CommandPress
	// CommandClick clicks a mouse button.
	CommandClick
)

// String returns the string representation of the command kind.
func (k CommandKind) String() string {
	switch k {
	case CommandHotkey:
		return "hotkey"
	case CommandPress:
		return "press"
	case CommandClick:
		return "click"
	default:
		return "unknown"
	}
}

// Command is one static action-table entry: the concrete effect an abstract
// action name resolves to.
type Command struct {
	Kind   CommandKind
	Keys   []string // CommandHotkey
	Key    string   // CommandPress
	Button string   // CommandClick, defaults to "left"
}

// Hotkey builds a key-combination command.
func Hotkey(keys ...string) Command {
	return Command{Kind: CommandHotkey, Keys: keys}
}

// Press builds a single-key command.
func Press(key string) Command {
	return Command{Kind: CommandPress, Key: key}
}

// Click builds a mouse-click command.
func Click(button string) Command {
	if button == "" {
		button = "left"
	}
	return Command{Kind: CommandClick, Button: button}
}

// DefaultTable returns the built-in action table.
func DefaultTable() map[string]Command {
	return map[string]Command{
		// Navigation
		"next_tab":     Hotkey("ctrl", "tab"),
		"previous_tab": Hotkey("ctrl", "shift", "tab"),
		"close_tab":    Hotkey("ctrl", "w"),
		"new_tab":      Hotkey("ctrl", "t"),

		// Window management
		"close_window": Hotkey("alt", "f4"),
		"minimize":     Hotkey("winleft", "down"),
		"maximize":     Hotkey("winleft", "up"),
		"show_desktop": Hotkey("winleft", "d"),

		// Text editing
		"copy":       Hotkey("ctrl", "c"),
		"paste":      Hotkey("ctrl", "v"),
		"cut":        Hotkey("ctrl", "x"),
		"select_all": Hotkey("ctrl", "a"),
		"undo":       Hotkey("ctrl", "z"),
		"redo":       Hotkey("ctrl", "shift", "z"),

		// Media
		"play_pause":  Press("playpause"),
		"volume_up":   Press("volumeup"),
		"volume_down": Press("volumedown"),
		"mute":        Press("volumemute"),

		// System
		"screenshot": Press("printscreen"),
		"escape":     Press("esc"),
		"enter":      Press("enter"),
		"backspace":  Press("backspace"),
	}
}

// Injector is the OS input-injection boundary. Implementations are external
// collaborators; the dispatcher only consults exception/no-exception.
type Injector interface {
	Hotkey(keys ...string) error
	Press(key string) error
	Click(button string) error
}

// NopInjector discards every effect. Useful in tests.
type NopInjector struct{}

func (NopInjector) Hotkey(...string) error { return nil }
func (NopInjector) Press(string) error     { return nil }
func (NopInjector) Click(string) error     { return nil }

// LogInjector logs every effect instead of performing it. It is the default
// sink when no OS injector is wired, and what simulation mode runs against.
type LogInjector struct {
	Logger *slog.Logger
}

// NewLogInjector creates a LogInjector writing through the given logger.
func NewLogInjector(logger *slog.Logger) *LogInjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogInjector{Logger: logger.With("component", "injector")}
}

func (l *LogInjector) Hotkey(keys ...string) error {
	l.Logger.Info("inject hotkey", "keys", keys)
	return nil
}

func (l *LogInjector) Press(key string) error {
	l.Logger.Info("inject press", "key", key)
	return nil
}

func (l *LogInjector) Click(button string) error {
	l.Logger.Info("inject click", "button", button)
	return nil
}
