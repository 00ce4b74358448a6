package dispatch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/attunehid/attune/internal/event"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock hands out a controllable time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingInjector captures effects and can be told to fail.
type recordingInjector struct {
	mu      sync.Mutex
	hotkeys [][]string
	presses []string
	clicks  []string
	fail    error
	panics  bool
}

func (r *recordingInjector) Hotkey(keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panics {
		panic("injector exploded")
	}
	if r.fail != nil {
		return r.fail
	}
	r.hotkeys = append(r.hotkeys, keys)
	return nil
}

func (r *recordingInjector) Press(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.presses = append(r.presses, key)
	return nil
}

func (r *recordingInjector) Click(button string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.clicks = append(r.clicks, button)
	return nil
}

func newTestDispatcher(clock *fakeClock, inj Injector, opts ...Option) *Dispatcher {
	opts = append([]Option{WithClock(clock.Now), WithLogger(quietLogger())}, opts...)
	return New(inj, opts...)
}

func TestDispatcher_ExecuteHotkey(t *testing.T) {
	clock := newFakeClock()
	inj := &recordingInjector{}
	d := newTestDispatcher(clock, inj)

	if !d.Execute("copy", event.SourceVoice, "copy that") {
		t.Fatal("Execute(copy) should succeed")
	}
	if len(inj.hotkeys) != 1 || len(inj.hotkeys[0]) != 2 {
		t.Fatalf("hotkeys = %v, want one ctrl+c combo", inj.hotkeys)
	}
	if inj.hotkeys[0][0] != "ctrl" || inj.hotkeys[0][1] != "c" {
		t.Errorf("hotkey = %v, want [ctrl c]", inj.hotkeys[0])
	}
}

func TestDispatcher_ExecutePressAndClick(t *testing.T) {
	clock := newFakeClock()
	inj := &recordingInjector{}
	table := DefaultTable()
	table["left_click"] = Click("")
	d := newTestDispatcher(clock, inj, WithTable(table))

	if !d.Execute("escape", event.SourceGesture, "fist") {
		t.Fatal("Execute(escape) should succeed")
	}
	clock.Advance(time.Second)
	if !d.Execute("left_click", event.SourceGesture, "") {
		t.Fatal("Execute(left_click) should succeed")
	}
	if len(inj.presses) != 1 || inj.presses[0] != "esc" {
		t.Errorf("presses = %v, want [esc]", inj.presses)
	}
	if len(inj.clicks) != 1 || inj.clicks[0] != "left" {
		t.Errorf("clicks = %v, want [left]", inj.clicks)
	}
}

func TestDispatcher_CooldownInvariant(t *testing.T) {
	clock := newFakeClock()
	d := newTestDispatcher(clock, &recordingInjector{})

	var successes []time.Time
	steps := []time.Duration{0, 50, 100, 60, 150, 300, 10, 500}
	for _, step := range steps {
		clock.Advance(step * time.Millisecond)
		if d.Execute("copy", event.SourceVoice, "") {
			successes = append(successes, clock.Now())
		}
	}

	if len(successes) < 2 {
		t.Fatalf("expected multiple successes, got %d", len(successes))
	}
	for i := 1; i < len(successes); i++ {
		if gap := successes[i].Sub(successes[i-1]); gap < 200*time.Millisecond {
			t.Errorf("successes %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestDispatcher_CooldownIsGlobalAcrossSources(t *testing.T) {
	clock := newFakeClock()
	d := newTestDispatcher(clock, &recordingInjector{})

	if !d.Execute("copy", event.SourceVoice, "") {
		t.Fatal("first Execute should succeed")
	}
	clock.Advance(100 * time.Millisecond)
	if d.Execute("paste", event.SourceGesture, "") {
		t.Error("different action and source must still honor the global cooldown")
	}
	if got := d.Counters().Blocked; got != 1 {
		t.Errorf("blocked counter = %d, want 1", got)
	}
}

func TestDispatcher_UnknownAction(t *testing.T) {
	clock := newFakeClock()
	d := newTestDispatcher(clock, &recordingInjector{})

	if d.Execute("warp_speed", event.SourceVoice, "") {
		t.Error("unknown action should return false")
	}
	if got := d.Counters().Unknown; got != 1 {
		t.Errorf("unknown counter = %d, want 1", got)
	}

	// Recoverable: a known action still works afterwards.
	if !d.Execute("copy", event.SourceVoice, "") {
		t.Error("known action should succeed after an unknown one")
	}
}

func TestDispatcher_CustomHandlerPrecedence(t *testing.T) {
	clock := newFakeClock()
	inj := &recordingInjector{}
	d := newTestDispatcher(clock, inj)

	var called bool
	d.RegisterHandler("copy", func(source event.Source, detail string) error {
		called = true
		if source != event.SourceEye || detail != "double_blink" {
			t.Errorf("handler got %v/%q", source, detail)
		}
		return nil
	})

	if !d.Execute("copy", event.SourceEye, "double_blink") {
		t.Fatal("custom action should succeed")
	}
	if !called {
		t.Error("custom handler should take precedence over the table")
	}
	if len(inj.hotkeys) != 0 {
		t.Error("table entry must not run when a custom handler exists")
	}
}

func TestDispatcher_CustomHandlerArmsCooldown(t *testing.T) {
	clock := newFakeClock()
	d := newTestDispatcher(clock, &recordingInjector{})
	d.RegisterHandler("speak", func(event.Source, string) error { return nil })

	if !d.Execute("speak", event.SourceVoice, "") {
		t.Fatal("custom action should succeed")
	}
	clock.Advance(100 * time.Millisecond)
	if d.Execute("copy", event.SourceVoice, "") {
		t.Error("custom success must arm the global cooldown")
	}
}

func TestDispatcher_FailureDoesNotArmCooldown(t *testing.T) {
	clock := newFakeClock()
	inj := &recordingInjector{fail: errors.New("device gone")}
	d := newTestDispatcher(clock, inj)

	if d.Execute("copy", event.SourceVoice, "") {
		t.Fatal("failing injector should yield false")
	}
	if got := d.Counters().Failed; got != 1 {
		t.Errorf("failed counter = %d, want 1", got)
	}

	// Immediately retryable: failure must not consume the cooldown.
	inj.mu.Lock()
	inj.fail = nil
	inj.mu.Unlock()
	if !d.Execute("copy", event.SourceVoice, "") {
		t.Error("retry after failure should succeed without waiting out the cooldown")
	}
}

func TestDispatcher_InjectorPanicIsContained(t *testing.T) {
	clock := newFakeClock()
	inj := &recordingInjector{panics: true}
	d := newTestDispatcher(clock, inj)

	if d.Execute("copy", event.SourceVoice, "") {
		t.Error("panicking injector should yield false")
	}
	if got := d.Counters().Failed; got != 1 {
		t.Errorf("failed counter = %d, want 1", got)
	}
}

func TestDispatcher_HistoryBound(t *testing.T) {
	clock := newFakeClock()
	d := newTestDispatcher(clock, &recordingInjector{})

	d.RegisterHandler("tick", func(event.Source, string) error { return nil })
	for i := 0; i < 150; i++ {
		clock.Advance(250 * time.Millisecond)
		if !d.Execute("tick", event.SourceGesture, fmt.Sprintf("n=%d", i)) {
			t.Fatalf("execution %d should succeed", i)
		}
	}

	history := d.History(1000)
	if len(history) != 100 {
		t.Fatalf("History(1000) returned %d records, want 100", len(history))
	}
	if history[0].Detail != "n=50" {
		t.Errorf("oldest kept record = %q, want n=50", history[0].Detail)
	}
	if history[99].Detail != "n=149" {
		t.Errorf("newest record = %q, want n=149", history[99].Detail)
	}
}

func TestDispatcher_HistoryLimit(t *testing.T) {
	clock := newFakeClock()
	d := newTestDispatcher(clock, &recordingInjector{})

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		d.Execute("copy", event.SourceVoice, fmt.Sprintf("n=%d", i))
	}

	history := d.History(2)
	if len(history) != 2 {
		t.Fatalf("History(2) returned %d records", len(history))
	}
	if history[0].Detail != "n=3" || history[1].Detail != "n=4" {
		t.Errorf("History(2) = %v, want the two most recent, oldest first", history)
	}
}

func TestDispatcher_Stats(t *testing.T) {
	clock := newFakeClock()
	d := newTestDispatcher(clock, &recordingInjector{})

	clock.Advance(time.Second)
	d.Execute("copy", event.SourceVoice, "")
	clock.Advance(time.Second)
	d.Execute("copy", event.SourceVoice, "")
	clock.Advance(time.Second)
	d.Execute("copy", event.SourceGesture, "pinch")
	clock.Advance(time.Second)
	d.Execute("paste", event.SourceGesture, "peace")

	stats := d.Stats()
	if stats["copy (voice)"] != 2 {
		t.Errorf("copy (voice) = %d, want 2", stats["copy (voice)"])
	}
	if stats["copy (gesture)"] != 1 {
		t.Errorf("copy (gesture) = %d, want 1", stats["copy (gesture)"])
	}
	if stats["paste (gesture)"] != 1 {
		t.Errorf("paste (gesture) = %d, want 1", stats["paste (gesture)"])
	}
}

func TestDispatcher_SinkNotification(t *testing.T) {
	clock := newFakeClock()

	var mu sync.Mutex
	var records []Record
	sink := sinkFunc(func(r Record) {
		mu.Lock()
		defer mu.Unlock()
		records = append(records, r)
	})

	d := newTestDispatcher(clock, &recordingInjector{}, WithSink(sink))
	d.Execute("copy", event.SourceEye, "double_blink")

	mu.Lock()
	defer mu.Unlock()
	if len(records) != 1 {
		t.Fatalf("sink received %d records, want 1", len(records))
	}
	if records[0].Action != "copy" || records[0].Source != event.SourceEye || records[0].Detail != "double_blink" {
		t.Errorf("sink record = %+v", records[0])
	}
}

type sinkFunc func(Record)

func (f sinkFunc) RecordAction(r Record) { f(r) }

func TestDispatcher_SetTable(t *testing.T) {
	clock := newFakeClock()
	inj := &recordingInjector{}
	d := newTestDispatcher(clock, inj)

	d.SetTable(map[string]Command{"ping": Press("p")})

	if d.Execute("copy", event.SourceVoice, "") {
		t.Error("old table entry should be gone after SetTable")
	}
	if !d.Execute("ping", event.SourceVoice, "") {
		t.Error("new table entry should execute")
	}
	if len(inj.presses) != 1 || inj.presses[0] != "p" {
		t.Errorf("presses = %v, want [p]", inj.presses)
	}
}

func TestCommandKind_String(t *testing.T) {
	tests := []struct {
		kind CommandKind
		want string
	}{
		{CommandHotkey, "hotkey"},
		{CommandPress, "press"},
		{CommandClick, "click"},
		{CommandKind(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("CommandKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestDefaultTable_Complete(t *testing.T) {
	table := DefaultTable()
	for _, action := range []string{
		"next_tab", "previous_tab", "close_tab", "new_tab",
		"close_window", "minimize", "maximize", "show_desktop",
		"copy", "paste", "cut", "select_all", "undo", "redo",
		"play_pause", "volume_up", "volume_down", "mute",
		"screenshot", "escape", "enter", "backspace",
	} {
		if _, ok := table[action]; !ok {
			t.Errorf("default table missing %q", action)
		}
	}
}
