// Package app assembles the pipeline: configuration, dispatcher, bus,
// modality runners, scripted actions, HUD, and the ambient pieces
// (logging, metrics, action log, config reload).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/attunehid/attune/internal/config"
	"github.com/attunehid/attune/internal/dispatch"
	"github.com/attunehid/attune/internal/event"
	"github.com/attunehid/attune/internal/hud"
	"github.com/attunehid/attune/internal/metrics"
	"github.com/attunehid/attune/internal/modality/eye"
	"github.com/attunehid/attune/internal/modality/gesture"
	"github.com/attunehid/attune/internal/modality/voice"
	"github.com/attunehid/attune/internal/script"
)

// Options are the command-line level choices.
type Options struct {
	ConfigPath  string
	LogLevel    string
	Sim         bool
	StdinVoice  bool
	Debug       bool
	MetricsAddr string
}

// Sources are the perception black boxes. A host embedding the pipeline
// provides its own; the sim and stdin modes fill them in otherwise. Nil
// fields simply don't get a runner.
type Sources struct {
	Faces eye.FaceTracker
	Hands gesture.HandTracker
	Mic   voice.Recognizer
}

// Option customizes construction.
type Option func(*App)

// WithSources supplies host-provided perception sources, overriding the
// sim/stdin defaults.
func WithSources(s Sources) Option {
	return func(a *App) {
		a.sources = &s
	}
}

// WithInjector replaces the default log-only input injector with a real
// OS one.
func WithInjector(inj dispatch.Injector) Option {
	return func(a *App) {
		if inj != nil {
			a.injector = inj
		}
	}
}

// App owns every long-lived component and their shutdown order.
type App struct {
	opts   Options
	logger *slog.Logger
	level  *slog.LevelVar
	base   slog.Level

	injector dispatch.Injector
	sources  *Sources

	dispatcher *dispatch.Dispatcher
	bus        *event.Bus
	engine     *script.Engine
	sim        *hud.Sim
	display    *hud.HUD
	stats      *SessionStats
	actionLog  *actionLogSink
	gemini     *voice.GeminiResolver
	metricsSrv *http.Server

	eyeRunner     *eye.Runner
	gestureRunner *gesture.Runner
	voiceRunner   *voice.Runner
	lineMic       *voice.LineRecognizer

	scriptFiles []string

	mu  sync.Mutex
	cfg *config.Config

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutOnce sync.Once
}

// New loads configuration and builds the pipeline. Nothing starts until
// Run.
func New(opts Options, extra ...Option) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}

	level := new(slog.LevelVar)
	base := cfg.LogLevel()
	if opts.LogLevel != "" {
		if err := base.UnmarshalText([]byte(opts.LogLevel)); err != nil {
			return nil, fmt.Errorf("bad log level %q: %w", opts.LogLevel, err)
		}
	}
	if opts.Debug {
		base = slog.LevelDebug
	}
	level.Set(base)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a := &App{
		opts:   opts,
		logger: logger.With("component", "app"),
		level:  level,
		base:   base,
		stats:  NewSessionStats(),
		cfg:    cfg,
	}
	for _, opt := range extra {
		opt(a)
	}
	if a.injector == nil {
		a.injector = dispatch.NewLogInjector(logger)
	}

	scripts := scriptEntries(cfg)
	if len(scripts) > 0 {
		a.engine = script.New(a.injector, script.WithLogger(logger))
	}

	sinks := []dispatch.Option{dispatch.WithSink(a.stats)}
	if cfg.Log.ActionLog.Path != "" {
		a.actionLog = newActionLogSink(cfg.Log.ActionLog, logger)
		sinks = append(sinks, dispatch.WithSink(a.actionLog))
	}

	table := buildTable(cfg, logger)
	a.dispatcher = dispatch.New(a.injector, append(sinks,
		dispatch.WithTable(table),
		dispatch.WithCooldown(cfg.Dispatch.Cooldown.Std()),
		dispatch.WithHistorySize(cfg.Dispatch.HistorySize),
		dispatch.WithLogger(logger))...)

	seen := make(map[string]bool)
	for name, action := range scripts {
		a.dispatcher.RegisterHandler(name, a.engine.Handler(action.Call))
		if !seen[action.Script] {
			seen[action.Script] = true
			a.scriptFiles = append(a.scriptFiles, action.Script)
		}
	}

	a.bus = event.NewBus(
		event.WithQueueSize(cfg.Bus.QueueSize),
		event.WithVoiceDominance(cfg.Bus.VoiceDominanceWindow.Std()),
		event.WithEyeGestureSimultaneity(cfg.Bus.AllowEyeWithGesture),
		event.WithActivityWindow(cfg.Bus.SourceActivityWindow.Std()),
		event.WithLogger(logger),
	)
	if err := a.bus.RegisterActionHandler(event.ActionAny, func(action string, ev event.Event) error {
		a.dispatcher.Execute(action, ev.Source, ev.Detail)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.buildSources(cfg, logger, table, scripts); err != nil {
		return nil, err
	}

	if a.sim != nil && cfg.HUD.Enabled {
		display, err := hud.New(hud.Config{
			Sim:           a.sim,
			Snapshot:      a.snapshot,
			OnPauseToggle: a.bus.TogglePause,
			OnDebugToggle: a.toggleDebug,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		a.display = display
	}
	return a, nil
}

// buildSources decides where faces, hands, and utterances come from and
// constructs the matching runners.
func (a *App) buildSources(cfg *config.Config, logger *slog.Logger, table map[string]dispatch.Command, scripts map[string]config.Action) error {
	src := Sources{}
	if a.sources != nil {
		src = *a.sources
	} else if a.opts.Sim {
		a.sim = hud.NewSim(hud.WithListenTimeout(cfg.Voice.ListenTimeout.Std()))
		src.Faces = a.sim.Faces()
		src.Hands = a.sim.Hands()
		src.Mic = a.sim.Mic()
	}
	if a.opts.StdinVoice {
		a.lineMic = voice.NewLineRecognizer(os.Stdin)
		src.Mic = a.lineMic
	}

	onError := func(error) { a.stats.RecordError() }
	if src.Faces != nil {
		a.eyeRunner = eye.NewRunner(src.Faces, a.bus,
			gazeConfig(cfg), blinkConfig(cfg), eyeActions(cfg),
			eye.WithPriority(cfg.Priorities.Eye),
			eye.WithErrorHook(onError),
			eye.WithLogger(logger))
	}
	if src.Hands != nil {
		a.gestureRunner = gesture.NewRunner(src.Hands, a.bus,
			filterConfig(cfg, logger),
			gesture.WithPriority(cfg.Priorities.Gesture),
			gesture.WithErrorHook(onError),
			gesture.WithLogger(logger))
	}
	if src.Mic != nil {
		resolver := a.buildResolver(cfg, table, scripts)
		a.voiceRunner = voice.NewRunner(src.Mic, resolver, a.bus,
			voiceRunnerConfig(cfg),
			voice.WithPriority(cfg.Priorities.Voice),
			voice.WithErrorHook(onError),
			voice.WithLogger(logger))
	}
	return nil
}

// buildResolver assembles the keyword resolver and, when configured and
// keyed, the Gemini fallback behind it.
func (a *App) buildResolver(cfg *config.Config, table map[string]dispatch.Command, scripts map[string]config.Action) voice.Resolver {
	keyword := voice.NewKeywordResolver(cfg.Voice.Keywords)
	if !cfg.Voice.Gemini.Enabled {
		return keyword
	}
	gemini, err := voice.NewGeminiResolver(context.Background(),
		cfg.Voice.Gemini.Model, supportedIntents(table, scripts), a.logger)
	if err != nil {
		a.logger.Warn("gemini fallback unavailable", "error", err)
		return keyword
	}
	a.gemini = gemini
	return voice.Chain{keyword, gemini}
}

// Run starts everything and blocks until ctx is cancelled or the HUD
// quits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer a.Shutdown()

	if err := a.bus.Start(); err != nil {
		return err
	}

	if a.engine != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.engine.Run(ctx)
		}()
		for _, file := range a.scriptFiles {
			if err := a.engine.LoadFile(ctx, file); err != nil {
				return err
			}
		}
	}

	if addr := a.currentConfig().Metrics.Addr; addr != "" {
		a.serveMetrics(addr)
	}

	a.startRunner(ctx, "eye", a.eyeRunner)
	a.startRunner(ctx, "gesture", a.gestureRunner)
	a.startRunner(ctx, "voice", a.voiceRunner)

	if a.opts.ConfigPath != "" {
		if err := config.Watch(ctx, a.opts.ConfigPath, a.logger, a.applyReload); err != nil {
			a.logger.Warn("config watch disabled", "error", err)
		}
	}

	a.logger.Info("pipeline running",
		"sim", a.opts.Sim, "stdin_voice", a.opts.StdinVoice,
		"hud", a.display != nil)

	if a.display != nil {
		return a.display.Run(ctx)
	}
	<-ctx.Done()
	return nil
}

// runnable is anything with a blocking Run loop.
type runnable interface {
	Run(ctx context.Context)
}

func (a *App) startRunner(ctx context.Context, name string, r runnable) {
	if r == nil || reflect.ValueOf(r).IsNil() {
		return
	}
	a.logger.Debug("starting runner", "runner", name)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		r.Run(ctx)
	}()
}

func (a *App) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metricsSrv = &http.Server{Addr: addr, Handler: mux}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("metrics listening", "addr", addr)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", "error", err)
		}
	}()
}

// Shutdown stops everything in reverse order. Safe to call more than
// once and safe to call concurrently with Run.
func (a *App) Shutdown() {
	a.shutOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		if a.metricsSrv != nil {
			a.metricsSrv.Close()
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.bus.Stop(stopCtx); err != nil {
			a.logger.Warn("bus stop", "error", err)
		}

		if a.engine != nil {
			a.engine.Close()
		}
		if a.gemini != nil {
			a.gemini.Close()
		}
		if a.lineMic != nil {
			a.lineMic.Close()
		}
		a.wg.Wait()
		if a.actionLog != nil {
			a.actionLog.Close()
		}

		sum := a.stats.Snapshot()
		busStats := a.bus.Stats()
		a.logger.Info("session summary",
			"elapsed", sum.Elapsed.Truncate(time.Second),
			"actions", sum.Total,
			"by_source", sum.BySource,
			"events_emitted", busStats.Emitted,
			"events_dropped", busStats.Dropped,
			"errors", busStats.ListenerErrors+busStats.HandlerErrors+sum.Errors)
	})
}

func (a *App) currentConfig() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// applyReload swaps in the safely hot-swappable subset of a reloaded
// configuration: the dispatcher action table and the voice keyword table.
// Everything else needs a restart, which gets logged once per section.
func (a *App) applyReload(next *config.Config) {
	prev := a.currentConfig()

	a.dispatcher.SetTable(buildTable(next, a.logger))
	if a.voiceRunner != nil {
		keyword := voice.NewKeywordResolver(next.Voice.Keywords)
		if a.gemini != nil {
			a.voiceRunner.SetResolver(voice.Chain{keyword, a.gemini})
		} else {
			a.voiceRunner.SetResolver(keyword)
		}
	}

	for _, name := range restartSections(prev, next) {
		a.logger.Info("config change needs a restart", "section", name)
	}

	a.mu.Lock()
	a.cfg = next
	a.mu.Unlock()
}

// restartSections lists the changed config sections that cannot be applied
// on a live pipeline. The hot-swapped parts, the action table and the voice
// keyword table, are excluded from the comparison.
func restartSections(prev, next *config.Config) []string {
	pv, nv := prev.Voice, next.Voice
	pv.Keywords, nv.Keywords = nil, nil

	var changed []string
	for _, section := range []struct {
		name       string
		prev, next any
	}{
		{"bus", prev.Bus, next.Bus},
		{"dispatch", prev.Dispatch, next.Dispatch},
		{"gaze", prev.Gaze, next.Gaze},
		{"blink", prev.Blink, next.Blink},
		{"gesture", prev.Gesture, next.Gesture},
		{"voice", pv, nv},
		{"priorities", prev.Priorities, next.Priorities},
		{"log", prev.Log, next.Log},
		{"metrics", prev.Metrics, next.Metrics},
		{"hud", prev.HUD, next.HUD},
	} {
		if !reflect.DeepEqual(section.prev, section.next) {
			changed = append(changed, section.name)
		}
	}
	return changed
}

// toggleDebug flips between the configured level and debug. It reports
// whether debug is now on.
func (a *App) toggleDebug() bool {
	if a.level.Level() == slog.LevelDebug && a.base != slog.LevelDebug {
		a.level.Set(a.base)
		return false
	}
	a.level.Set(slog.LevelDebug)
	return true
}

// snapshot feeds the HUD.
func (a *App) snapshot() hud.Snapshot {
	status := a.bus.Status()
	busStats := a.bus.Stats()
	sum := a.stats.Snapshot()

	sources := make([]string, 0, len(status.ActiveSources))
	for _, s := range status.ActiveSources {
		sources = append(sources, s.String())
	}
	return hud.Snapshot{
		Paused:        status.Paused,
		ActiveSources: sources,
		QueueDepth:    status.QueueDepth,
		Started:       sum.Started,
		Counts:        sum.BySource,
		Total:         sum.Total,
		Errors:        sum.Errors + busStats.ListenerErrors + busStats.HandlerErrors,
		Recent:        a.dispatcher.History(20),
	}
}
