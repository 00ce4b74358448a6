package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/attunehid/attune/internal/event"
)

// Recognizer is the speech-to-text black box. Listen blocks until an
// utterance is available or the recognizer's own timeout expires; an empty
// string with a nil error means nothing was heard.
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
}

// RunnerConfig holds the voice loop timings.
type RunnerConfig struct {
	// Cooldown is the minimum spacing between emitted voice commands.
	Cooldown time.Duration
	// IdleWait is how long to sleep after an empty utterance.
	IdleWait time.Duration
	// ErrorBackoff is how long to sleep after a recognizer error.
	ErrorBackoff time.Duration
}

// DefaultRunnerConfig returns the standard voice loop timings.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Cooldown:     time.Second,
		IdleWait:     time.Second,
		ErrorBackoff: 2 * time.Second,
	}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithPriority sets the admission priority carried by voice command
// events.
func WithPriority(p int) RunnerOption {
	return func(r *Runner) {
		if p > 0 {
			r.priority = p
		}
	}
}

// WithErrorHook registers a callback invoked on every recognizer error.
// A clean end of input does not count.
func WithErrorHook(h func(error)) RunnerOption {
	return func(r *Runner) {
		r.onError = h
	}
}

// Runner drives a Recognizer, resolves utterances into intents, and emits
// voice command events.
type Runner struct {
	recognizer Recognizer
	emitter    event.Emitter
	cfg        RunnerConfig
	logger     *slog.Logger
	clock      func() time.Time
	priority   int
	onError    func(error)

	mu       sync.Mutex
	resolver Resolver

	lastCommand time.Time
}

// NewRunner wires a recognizer and a resolver to an emitter. A zero config
// field falls back to its default.
func NewRunner(recognizer Recognizer, resolver Resolver, emitter event.Emitter, cfg RunnerConfig, opts ...RunnerOption) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = def.IdleWait
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	r := &Runner{
		recognizer: recognizer,
		resolver:   resolver,
		emitter:    emitter,
		cfg:        cfg,
		logger:     slog.Default(),
		clock:      time.Now,
		priority:   3,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "voice")
	return r
}

// SetResolver swaps the resolver. Safe during Run; used by config live
// reload.
func (r *Runner) SetResolver(resolver Resolver) {
	if resolver == nil {
		return
	}
	r.mu.Lock()
	r.resolver = resolver
	r.mu.Unlock()
}

func (r *Runner) currentResolver() Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolver
}

// Run listens for utterances until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	for {
		phrase, err := r.recognizer.Listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.Info("recognizer closed")
				return
			}
			r.logger.Warn("recognizer error", "error", err)
			if r.onError != nil {
				r.onError(err)
			}
			if !sleepCtx(ctx, r.cfg.ErrorBackoff) {
				return
			}
			continue
		}
		if phrase == "" {
			if !sleepCtx(ctx, r.cfg.IdleWait) {
				return
			}
			continue
		}

		now := r.clock()
		if now.Sub(r.lastCommand) < r.cfg.Cooldown {
			r.logger.Debug("voice cooldown, dropping utterance", "phrase", phrase)
			continue
		}

		intent, err := r.currentResolver().Resolve(ctx, phrase)
		if err != nil {
			r.logger.Warn("resolve failed", "phrase", phrase, "error", err)
			continue
		}
		if intent == "" {
			r.logger.Debug("unrecognized phrase", "phrase", phrase)
			continue
		}

		r.lastCommand = now
		ev := event.New(event.KindVoiceCommand, event.SourceVoice).
			WithAction(intent).
			WithDetail(phrase).
			WithPriority(r.priority).
			WithTime(now)
		if !r.emitter.Emit(ev) {
			r.logger.Debug("voice command not accepted", "intent", intent)
		}
	}
}

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
