package hud

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/attunehid/attune/internal/dispatch"
	"github.com/attunehid/attune/internal/modality/gesture"
)

// Snapshot is the state drawn on each frame, pulled from the app.
type Snapshot struct {
	Paused        bool
	ActiveSources []string
	QueueDepth    int
	Started       time.Time
	Counts        map[string]uint64
	Total         uint64
	Errors        uint64
	Recent        []dispatch.Record
}

// Config wires a HUD to the rest of the app. Snapshot must be non-nil;
// Sim and the toggles may be nil, which disables the matching keys.
type Config struct {
	Sim           *Sim
	Snapshot      func() Snapshot
	OnPauseToggle func()
	OnDebugToggle func() bool
	Logger        *slog.Logger
}

// digitShapes maps number keys to the hand shapes the sim can hold.
var digitShapes = map[rune]gesture.Shape{
	'1': gesture.ShapePinch,
	'2': gesture.ShapePeace,
	'3': gesture.ShapeOK,
	'4': gesture.ShapeFist,
	'5': gesture.ShapeOpenPalm,
	'6': gesture.ShapeScrollUp,
	'7': gesture.ShapeScrollDown,
	'8': gesture.ShapeThumbsUp,
	'9': gesture.ShapeMove,
	'0': gesture.ShapePinkyUp,
}

// HUD is the terminal status display. It owns the tcell screen and the key
// loop; simulation keys feed the Sim, which feeds the pipeline.
type HUD struct {
	screen tcell.Screen
	cfg    Config
	logger *slog.Logger

	typing bool
	phrase []rune
	debug  bool
}

// New creates a HUD on a fresh tcell screen.
func New(cfg Config) (*HUD, error) {
	if cfg.Snapshot == nil {
		return nil, fmt.Errorf("hud: Config.Snapshot is required")
	}
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("hud: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HUD{
		screen: screen,
		cfg:    cfg,
		logger: logger.With("component", "hud"),
	}, nil
}

// Run draws the HUD until ctx is cancelled or the user quits. It returns
// nil on a clean quit.
func (h *HUD) Run(ctx context.Context) error {
	if err := h.screen.Init(); err != nil {
		return fmt.Errorf("hud: %w", err)
	}
	defer h.screen.Fini()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	h.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.draw()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch tev := ev.(type) {
			case *tcell.EventResize:
				h.screen.Sync()
				h.draw()
			case *tcell.EventKey:
				if quit := h.handleKey(tev); quit {
					return nil
				}
				h.draw()
			}
		}
	}
}

// handleKey reports whether the HUD should quit.
func (h *HUD) handleKey(ev *tcell.EventKey) bool {
	if h.typing {
		h.handlePhraseKey(ev)
		return false
	}

	switch ev.Key() {
	case tcell.KeyCtrlC:
		return true
	case tcell.KeyLeft:
		if h.cfg.Sim != nil {
			h.cfg.Sim.GazeLeft()
		}
		return false
	case tcell.KeyRight:
		if h.cfg.Sim != nil {
			h.cfg.Sim.GazeRight()
		}
		return false
	case tcell.KeyRune:
	default:
		return false
	}

	r := ev.Rune()
	switch {
	case r == 'q':
		return true
	case r == 'p':
		if h.cfg.OnPauseToggle != nil {
			h.cfg.OnPauseToggle()
		}
	case r == 'd':
		if h.cfg.OnDebugToggle != nil {
			h.debug = h.cfg.OnDebugToggle()
		}
	case r == 'b':
		if h.cfg.Sim != nil {
			h.cfg.Sim.Blink()
		}
	case r == ':':
		if h.cfg.Sim != nil {
			h.typing = true
			h.phrase = h.phrase[:0]
		}
	default:
		if shape, ok := digitShapes[r]; ok && h.cfg.Sim != nil {
			h.cfg.Sim.Shape(shape)
		}
	}
	return false
}

func (h *HUD) handlePhraseKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEnter:
		if phrase := strings.TrimSpace(string(h.phrase)); phrase != "" {
			if !h.cfg.Sim.Say(phrase) {
				h.logger.Warn("phrase queue full, dropped", "phrase", phrase)
			}
		}
		h.typing = false
	case tcell.KeyEscape:
		h.typing = false
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(h.phrase) > 0 {
			h.phrase = h.phrase[:len(h.phrase)-1]
		}
	case tcell.KeyRune:
		h.phrase = append(h.phrase, ev.Rune())
	}
}

var (
	styleTitle  = tcell.StyleDefault.Bold(true)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	stylePaused = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleActive = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
)

func (h *HUD) draw() {
	snap := h.cfg.Snapshot()
	h.screen.Clear()

	y := 0
	h.text(0, y, styleTitle, "attune")
	elapsed := time.Since(snap.Started).Truncate(time.Second)
	h.text(10, y, styleDim, fmt.Sprintf("session %s", elapsed))
	y += 2

	if snap.Paused {
		h.text(0, y, stylePaused, "PAUSED")
	} else {
		h.text(0, y, styleActive, "ACTIVE")
	}
	h.text(10, y, tcell.StyleDefault, fmt.Sprintf("queue %d", snap.QueueDepth))
	if len(snap.ActiveSources) > 0 {
		h.text(20, y, tcell.StyleDefault, "sources: "+strings.Join(snap.ActiveSources, ", "))
	}
	if h.debug {
		h.text(50, y, styleDim, "debug")
	}
	y += 2

	h.text(0, y, styleTitle, fmt.Sprintf("actions: %d total, %d errors", snap.Total, snap.Errors))
	y++
	for _, name := range sortedKeys(snap.Counts) {
		h.text(2, y, tcell.StyleDefault, fmt.Sprintf("%-8s %d", name, snap.Counts[name]))
		y++
	}
	y++

	h.text(0, y, styleTitle, "recent")
	y++
	recent := snap.Recent
	if len(recent) > 8 {
		recent = recent[len(recent)-8:]
	}
	for i := len(recent) - 1; i >= 0; i-- {
		rec := recent[i]
		line := fmt.Sprintf("%s  %s (%s)", rec.At.Format("15:04:05"), rec.Action, rec.Source)
		if rec.Detail != "" {
			line += "  " + rec.Detail
		}
		h.text(2, y, tcell.StyleDefault, line)
		y++
	}
	y++

	if h.typing {
		h.text(0, y, tcell.StyleDefault, "say: "+string(h.phrase))
		y++
	}

	_, height := h.screen.Size()
	help := "q quit  p pause  d debug  ←/→ gaze  b blink  1-9,0 shapes  : say"
	if h.cfg.Sim == nil {
		help = "q quit  p pause  d debug"
	}
	h.text(0, height-1, styleDim, help)
	h.screen.Show()
}

// text draws a string, advancing by display width so wide runes line up.
func (h *HUD) text(x, y int, style tcell.Style, s string) {
	width, _ := h.screen.Size()
	for _, r := range s {
		if x >= width {
			return
		}
		h.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
