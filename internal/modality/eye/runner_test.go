package eye

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/attunehid/attune/internal/event"
	"github.com/attunehid/attune/internal/landmark"
)

// frame is one scripted tracker tick.
type frame struct {
	at    time.Time
	face  landmark.Face
	found bool
}

// scriptedTracker replays frames and cancels the run context when the
// script ends. It also backs the runner clock with each frame's timestamp.
type scriptedTracker struct {
	frames []frame
	i      int
	now    time.Time
	cancel context.CancelFunc
}

func (s *scriptedTracker) Next(ctx context.Context) (landmark.Face, bool, error) {
	if s.i >= len(s.frames) {
		s.cancel()
		return landmark.Face{}, false, ctx.Err()
	}
	f := s.frames[s.i]
	s.i++
	s.now = f.at
	return f.face, f.found, nil
}

func (s *scriptedTracker) clock() time.Time {
	return s.now
}

// collectEmitter records emitted events.
type collectEmitter struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collectEmitter) Emit(ev event.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return true
}

func (c *collectEmitter) snapshot() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

// faceAt synthesizes a face whose iris ratio and openness land where asked.
func faceAt(ratio, openness float64) landmark.Face {
	return SynthFace(ratio, openness)
}

func runScript(t *testing.T, frames []frame, opts ...RunnerOption) []event.Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := &scriptedTracker{frames: frames, cancel: cancel}
	emitter := &collectEmitter{}
	opts = append([]RunnerOption{
		WithClock(tracker.clock),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	r := NewRunner(tracker, emitter,
		DefaultGazeConfig(), DefaultBlinkConfig(), DefaultActions(), opts...)

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not exit")
	}
	return emitter.snapshot()
}

func TestRunner_GazeHoldEmitsLeftAction(t *testing.T) {
	base := time.Unix(1000, 0)
	var frames []frame
	// Hold a hard-left gaze for a full second of 30fps ticks.
	for i := 0; i <= 30; i++ {
		frames = append(frames, frame{
			at:    base.Add(time.Duration(i) * 33 * time.Millisecond),
			face:  faceAt(0.1, 1.0),
			found: true,
		})
	}

	events := runScript(t, frames)
	var gazes []event.Event
	for _, ev := range events {
		if ev.Kind == event.KindGazeLeft {
			gazes = append(gazes, ev)
		}
	}
	if len(gazes) != 1 {
		t.Fatalf("gaze events = %d, want exactly 1", len(gazes))
	}
	if gazes[0].Action != "previous_tab" || gazes[0].Detail != "left_gaze" || gazes[0].Source != event.SourceEye {
		t.Errorf("gaze event = %+v", gazes[0])
	}
	if gazes[0].Priority != 2 {
		t.Errorf("gaze priority = %d, want 2", gazes[0].Priority)
	}
}

func TestRunner_DoubleBlinkEmitsAction(t *testing.T) {
	base := time.Unix(1000, 0)
	frames := []frame{
		{at: base, face: faceAt(0.5, 1.0), found: true},
		{at: base.Add(50 * time.Millisecond), face: faceAt(0.5, 0.0), found: true},
		{at: base.Add(100 * time.Millisecond), face: faceAt(0.5, 1.0), found: true},
		{at: base.Add(300 * time.Millisecond), face: faceAt(0.5, 0.0), found: true},
		{at: base.Add(350 * time.Millisecond), face: faceAt(0.5, 1.0), found: true},
	}

	events := runScript(t, frames)
	if len(events) != 1 {
		t.Fatalf("events = %v, want exactly one double blink", events)
	}
	ev := events[0]
	if ev.Kind != event.KindDoubleBlink || ev.Action != "next_tab" || ev.Detail != "double_blink" || ev.Priority != 1 {
		t.Errorf("blink event = %+v", ev)
	}
}

func TestRunner_NoFaceResetsHold(t *testing.T) {
	base := time.Unix(1000, 0)
	var frames []frame
	// 0.5s of left gaze, a dropout, then 0.5s more: the hold must restart.
	for i := 0; i < 15; i++ {
		frames = append(frames, frame{
			at:    base.Add(time.Duration(i) * 33 * time.Millisecond),
			face:  faceAt(0.1, 1.0),
			found: true,
		})
	}
	frames = append(frames, frame{at: base.Add(500 * time.Millisecond)})
	for i := 0; i < 15; i++ {
		frames = append(frames, frame{
			at:    base.Add(520*time.Millisecond + time.Duration(i)*33*time.Millisecond),
			face:  faceAt(0.1, 1.0),
			found: true,
		})
	}

	events := runScript(t, frames)
	if len(events) != 0 {
		t.Errorf("events = %v, want none after a detection dropout", events)
	}
}

func TestRunner_ConfiguredPriority(t *testing.T) {
	base := time.Unix(1000, 0)
	var frames []frame
	// A double blink followed by a full left-gaze hold.
	frames = append(frames,
		frame{at: base, face: faceAt(0.5, 1.0), found: true},
		frame{at: base.Add(50 * time.Millisecond), face: faceAt(0.5, 0.0), found: true},
		frame{at: base.Add(100 * time.Millisecond), face: faceAt(0.5, 1.0), found: true},
		frame{at: base.Add(300 * time.Millisecond), face: faceAt(0.5, 0.0), found: true},
		frame{at: base.Add(350 * time.Millisecond), face: faceAt(0.5, 1.0), found: true},
	)
	for i := 0; i <= 30; i++ {
		frames = append(frames, frame{
			at:    base.Add(2*time.Second + time.Duration(i)*33*time.Millisecond),
			face:  faceAt(0.1, 1.0),
			found: true,
		})
	}

	events := runScript(t, frames, WithPriority(5))
	var blink, gaze *event.Event
	for i := range events {
		switch events[i].Kind {
		case event.KindDoubleBlink:
			blink = &events[i]
		case event.KindGazeLeft:
			gaze = &events[i]
		}
	}
	if blink == nil || blink.Priority != 5 {
		t.Errorf("blink = %+v, want priority 5", blink)
	}
	if gaze == nil || gaze.Priority != 6 {
		t.Errorf("gaze = %+v, want priority 6", gaze)
	}
}

// faultyTracker fails a fixed number of times before replaying its frames.
type faultyTracker struct {
	scriptedTracker
	failures int
}

func (f *faultyTracker) Next(ctx context.Context) (landmark.Face, bool, error) {
	if f.failures > 0 {
		f.failures--
		return landmark.Face{}, false, io.ErrUnexpectedEOF
	}
	return f.scriptedTracker.Next(ctx)
}

func TestRunner_TrackerErrorsReachTheHook(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base := time.Unix(1000, 0)
	tracker := &faultyTracker{
		scriptedTracker: scriptedTracker{
			frames: []frame{{at: base, face: faceAt(0.5, 1.0), found: true}},
			cancel: cancel,
		},
		failures: 2,
	}
	var mu sync.Mutex
	var reported []error
	emitter := &collectEmitter{}
	r := NewRunner(tracker, emitter,
		DefaultGazeConfig(), DefaultBlinkConfig(), DefaultActions(),
		WithClock(tracker.clock),
		WithRetryWait(time.Millisecond),
		WithErrorHook(func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not exit")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 2 {
		t.Fatalf("hook calls = %d, want 2", len(reported))
	}
	if reported[0] != io.ErrUnexpectedEOF {
		t.Errorf("hook error = %v", reported[0])
	}
}
