package eye

import (
	"context"
	"log/slog"
	"time"

	"github.com/attunehid/attune/internal/event"
	"github.com/attunehid/attune/internal/landmark"
)

// FaceTracker is the perception boundary the eye runner consumes. Next
// blocks until the next tick; ok reports whether a face was detected.
type FaceTracker interface {
	Next(ctx context.Context) (face landmark.Face, ok bool, err error)
}

// Actions maps debounced eye events to unified action names.
type Actions struct {
	LeftGaze    string
	RightGaze   string
	DoubleBlink string
	TripleBlink string
}

// DefaultActions returns the standard eye action mapping.
func DefaultActions() Actions {
	return Actions{
		LeftGaze:    "previous_tab",
		RightGaze:   "next_tab",
		DoubleBlink: "next_tab",
		TripleBlink: "show_desktop",
	}
}

// Runner drives the gaze and blink machines from a face tracker and emits
// debounced events onto the bus.
type Runner struct {
	tracker   FaceTracker
	emitter   event.Emitter
	gazeCfg   GazeConfig
	gaze      *GazeDetector
	blink     *BlinkDetector
	actions   Actions
	logger    *slog.Logger
	clock     func() time.Time
	retryWait time.Duration
	priority  int
	onError   func(error)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRetryWait sets the pause after a tracker error.
func WithRetryWait(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.retryWait = d
		}
	}
}

// WithPriority sets the admission priority carried by blink events; gaze
// events rank one step higher.
func WithPriority(p int) RunnerOption {
	return func(r *Runner) {
		if p > 0 {
			r.priority = p
		}
	}
}

// WithErrorHook registers a callback invoked on every tracker error.
func WithErrorHook(h func(error)) RunnerOption {
	return func(r *Runner) {
		r.onError = h
	}
}

// NewRunner creates an eye runner.
func NewRunner(tracker FaceTracker, emitter event.Emitter, gazeCfg GazeConfig, blinkCfg BlinkConfig, actions Actions, opts ...RunnerOption) *Runner {
	r := &Runner{
		tracker:   tracker,
		emitter:   emitter,
		gazeCfg:   gazeCfg,
		gaze:      NewGazeDetector(gazeCfg),
		blink:     NewBlinkDetector(blinkCfg),
		actions:   actions,
		logger:    slog.Default(),
		clock:     time.Now,
		retryWait: 500 * time.Millisecond,
		priority:  1,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "eye")
	return r
}

// Run consumes tracker ticks until the context is cancelled. Tracker errors
// are logged and retried; they never terminate the loop on their own.
func (r *Runner) Run(ctx context.Context) {
	for {
		face, ok, err := r.tracker.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Warn("face tracker error", "error", err)
			if r.onError != nil {
				r.onError(err)
			}
			if !sleepCtx(ctx, r.retryWait) {
				return
			}
			continue
		}

		now := r.clock()
		if !ok {
			// No face this tick: the machines see open, centered eyes.
			r.blink.Observe(1.0, now)
			r.gaze.Observe(DirectionCenter, now)
			continue
		}
		r.observe(face, now)
	}
}

// observe feeds one detection tick through both machines.
func (r *Runner) observe(face landmark.Face, now time.Time) {
	openness := (EAR(face.Left.Rim) + EAR(face.Right.Rim)) / 2
	switch r.blink.Observe(openness, now) {
	case BlinkDouble:
		r.emit(event.KindDoubleBlink, r.actions.DoubleBlink, "double_blink", r.priority, now)
	case BlinkTriple:
		r.emit(event.KindTripleBlink, r.actions.TripleBlink, "triple_blink", r.priority, now)
	}

	leftMin, leftMax := face.Left.RimSpanX()
	rightMin, rightMax := face.Right.RimSpanX()
	ratio := (Ratio(face.Left.IrisX(), leftMin, leftMax) + Ratio(face.Right.IrisX(), rightMin, rightMax)) / 2

	dir, fired := r.gaze.Observe(Classify(ratio, r.gazeCfg), now)
	if !fired {
		return
	}
	switch dir {
	case DirectionLeft:
		r.emit(event.KindGazeLeft, r.actions.LeftGaze, "left_gaze", r.priority+1, now)
	case DirectionRight:
		r.emit(event.KindGazeRight, r.actions.RightGaze, "right_gaze", r.priority+1, now)
	}
}

func (r *Runner) emit(kind event.Kind, action, detail string, priority int, now time.Time) {
	if action == "" {
		return
	}
	ev := event.New(kind, event.SourceEye).
		WithAction(action).
		WithDetail(detail).
		WithPriority(priority).
		WithTime(now)
	if !r.emitter.Emit(ev) {
		r.logger.Debug("event not accepted", "kind", kind.String())
	}
}

// sleepCtx waits for d unless the context ends first. It reports whether
// the full wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
