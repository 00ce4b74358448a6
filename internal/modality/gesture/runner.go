package gesture

import (
	"context"
	"log/slog"
	"time"

	"github.com/attunehid/attune/internal/event"
	"github.com/attunehid/attune/internal/landmark"
)

// HandTracker is the perception boundary the gesture runner consumes. Next
// blocks until the next tick; ok reports whether a hand was detected.
type HandTracker interface {
	Next(ctx context.Context) (hand landmark.Hand, ok bool, err error)
}

// Runner drives the classifier and stability filter from a hand tracker and
// emits debounced events onto the bus.
type Runner struct {
	tracker   HandTracker
	emitter   event.Emitter
	filter    *StabilityFilter
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

// WithPriority sets the admission priority carried by gesture action
// events; pause toggles rank one step higher.
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

// NewRunner creates a gesture runner.
func NewRunner(tracker HandTracker, emitter event.Emitter, cfg FilterConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		tracker:   tracker,
		emitter:   emitter,
		filter:    NewStabilityFilter(cfg),
		logger:    slog.Default(),
		clock:     time.Now,
		retryWait: 500 * time.Millisecond,
		priority:  2,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "gesture")
	return r
}

// Run consumes tracker ticks until the context is cancelled. Tracker errors
// are logged and retried; they never terminate the loop on their own.
func (r *Runner) Run(ctx context.Context) {
	for {
		hand, ok, err := r.tracker.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Warn("hand tracker error", "error", err)
			if r.onError != nil {
				r.onError(err)
			}
			if !sleepCtx(ctx, r.retryWait) {
				return
			}
			continue
		}

		shape := ShapeNeutral
		if ok {
			shape = Classify(hand)
		}

		now := r.clock()
		action, decision := r.filter.Observe(shape, now)
		switch decision {
		case DecisionPauseToggle:
			r.emit(event.New(event.KindPauseToggle, event.SourceGesture).
				WithDetail(shape.String()).
				WithPriority(r.priority + 1).
				WithTime(now))
		case DecisionAction:
			r.emit(event.New(event.KindGesture, event.SourceGesture).
				WithAction(action).
				WithDetail(shape.String()).
				WithPriority(r.priority).
				WithTime(now))
		}
	}
}

func (r *Runner) emit(ev event.Event) {
	if !r.emitter.Emit(ev) {
		r.logger.Debug("event not accepted", "kind", ev.Kind.String())
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
