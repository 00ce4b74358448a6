// Package event implements the coordination core's event model and bus: a
// bounded, single-consumer dispatcher that de-duplicates and prioritizes
// events from the eye, gesture, and voice modalities.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/attunehid/attune/internal/metrics"
)

// DropReason explains why the bus refused an event.
type DropReason string

const (
	// DropPaused marks events gated out while the system is paused.
	DropPaused DropReason = "system_paused"
	// DropConflict marks events removed by cross-source conflict resolution.
	DropConflict DropReason = "conflict_resolution"
	// DropQueueFull marks events rejected because the queue was at capacity.
	DropQueueFull DropReason = "queue_full"
	// DropNotRunning marks events emitted before Start or after Stop.
	DropNotRunning DropReason = "not_running"
)

// Status is a read-only snapshot of the bus state.
type Status struct {
	Paused         bool
	ActiveSources  []Source
	LastEventTimes map[Source]time.Time
	LastActionTime time.Time
	QueueDepth     int
}

// Stats reports lifetime bus counters.
type Stats struct {
	Emitted         uint64
	Processed       uint64
	Dropped         uint64
	DroppedByReason map[DropReason]uint64
	ListenerErrors  uint64
	HandlerErrors   uint64
}

// Bus is the sole arbiter of which triggered event becomes an action
// request. Producers call Emit from their own goroutines; a single consumer
// goroutine applies pause gating and conflict resolution, then forwards
// surviving events to listeners and the registered action handlers.
type Bus struct {
	config busConfig
	logger *slog.Logger

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup

	running atomic.Bool

	// mu guards everything below. It is never held across a listener,
	// handler, or any other external call.
	mu            sync.Mutex
	paused        bool
	lastEventTime map[Source]time.Time
	activeSources map[Source]struct{}
	lastAction    time.Time
	listeners     map[Kind][]Listener
	handlers      map[string]ActionHandler

	emitted        atomic.Uint64
	processed      atomic.Uint64
	droppedPaused  atomic.Uint64
	droppedConf    atomic.Uint64
	droppedFull    atomic.Uint64
	droppedStopped atomic.Uint64
	listenerErrs   atomic.Uint64
	handlerErrs    atomic.Uint64
}

// NewBus creates a bus with the given options. The bus is inert until Start.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Bus{
		config:        config,
		logger:        config.logger.With("component", "bus"),
		queue:         make(chan Event, config.queueSize),
		done:          make(chan struct{}),
		lastEventTime: make(map[Source]time.Time),
		activeSources: make(map[Source]struct{}),
		listeners:     make(map[Kind][]Listener),
		handlers:      make(map[string]ActionHandler),
	}
}

// Start spawns the consumer goroutine.
func (b *Bus) Start() error {
	if b.running.Swap(true) {
		return ErrBusAlreadyRunning
	}
	b.wg.Add(1)
	go b.consume()
	b.logger.Info("bus started", "queue_size", cap(b.queue))
	return nil
}

// Stop halts the consumer and waits for it to exit until the context
// expires. On expiry it returns ErrShutdownTimeout; the bus is stopped
// either way.
func (b *Bus) Stop(ctx context.Context) error {
	if !b.running.Swap(false) {
		return ErrBusNotRunning
	}
	close(b.done)

	exited := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(exited)
	}()

	select {
	case <-exited:
		b.logger.Info("bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("bus consumer did not exit before deadline")
		return ErrShutdownTimeout
	}
}

// IsRunning reports whether the consumer loop is active.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

// RegisterListener adds a listener for the given kind. Registration is
// additive; there is no unregistration.
func (b *Bus) RegisterListener(kind Kind, l Listener) error {
	if l == nil {
		return ErrNilListener
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[kind] = append(b.listeners[kind], l)
	return nil
}

// RegisterActionHandler adds a handler for the given action name. The name
// ActionAny registers a fallback receiving every action that has no
// exact-name handler.
func (b *Bus) RegisterActionHandler(name string, h ActionHandler) error {
	if h == nil {
		return ErrNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = h
	return nil
}

// Emit enqueues an event without blocking. A full queue drops the event:
// stale multi-modal intents are worse than missing ones, so the bus favors
// freshness over completeness.
func (b *Bus) Emit(ev Event) bool {
	if !b.running.Load() {
		b.drop(ev, DropNotRunning)
		return false
	}

	select {
	case b.queue <- ev:
		b.emitted.Add(1)
		metrics.EventsEmitted.WithLabelValues(ev.Source.String()).Inc()
		metrics.QueueDepth.Set(float64(len(b.queue)))
		return true
	default:
		b.drop(ev, DropQueueFull)
		return false
	}
}

// TogglePause flips the pause state and broadcasts a system notification
// directly to listeners, bypassing the main queue to avoid self-deadlock
// from the consumer loop.
func (b *Bus) TogglePause() {
	b.mu.Lock()
	b.paused = !b.paused
	paused := b.paused

	kind := KindSystemResume
	if paused {
		kind = KindSystemPause
	}
	ev := New(kind, SourceSystem).WithTime(b.config.clock())
	ls := append([]Listener(nil), b.listeners[kind]...)
	b.mu.Unlock()

	if paused {
		b.logger.Info("system paused")
	} else {
		b.logger.Info("system resumed")
	}
	b.notify(ls, ev)
}

// IsPaused reports the pause state.
func (b *Bus) IsPaused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// Status returns a read-only snapshot of the bus state.
func (b *Bus) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	sources := make([]Source, 0, len(b.activeSources))
	for s := range b.activeSources {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	times := make(map[Source]time.Time, len(b.lastEventTime))
	for s, t := range b.lastEventTime {
		times[s] = t
	}

	return Status{
		Paused:         b.paused,
		ActiveSources:  sources,
		LastEventTimes: times,
		LastActionTime: b.lastAction,
		QueueDepth:     len(b.queue),
	}
}

// Stats returns lifetime bus counters.
func (b *Bus) Stats() Stats {
	byReason := map[DropReason]uint64{
		DropPaused:     b.droppedPaused.Load(),
		DropConflict:   b.droppedConf.Load(),
		DropQueueFull:  b.droppedFull.Load(),
		DropNotRunning: b.droppedStopped.Load(),
	}
	var total uint64
	for _, n := range byReason {
		total += n
	}
	return Stats{
		Emitted:         b.emitted.Load(),
		Processed:       b.processed.Load(),
		Dropped:         total,
		DroppedByReason: byReason,
		ListenerErrors:  b.listenerErrs.Load(),
		HandlerErrors:   b.handlerErrs.Load(),
	}
}

// consume is the single consumer loop. At most one event is being handled
// at any instant.
func (b *Bus) consume() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.queue:
			metrics.QueueDepth.Set(float64(len(b.queue)))
			b.handle(ev)
		}
	}
}

// handle processes one dequeued event: pause gate, pause toggle, conflict
// resolution, state update, listener delivery, action dispatch.
func (b *Bus) handle(ev Event) {
	b.mu.Lock()

	// Step 1: pause gate. Voice still passes so the user can speak a
	// resume command; the pause toggle passes so the gesture can resume.
	if b.paused && ev.Source != SourceVoice && ev.Kind != KindPauseToggle {
		b.mu.Unlock()
		b.drop(ev, DropPaused)
		return
	}

	// Step 2: the pause toggle flips state and never reaches dispatch.
	if ev.Kind == KindPauseToggle {
		b.mu.Unlock()
		b.TogglePause()
		return
	}

	// Step 3: conflict resolution.
	if !b.admit(ev) {
		b.mu.Unlock()
		b.drop(ev, DropConflict)
		return
	}

	// Step 4: only accepted events mark their source active.
	b.lastEventTime[ev.Source] = ev.At
	b.activeSources[ev.Source] = struct{}{}

	ls := append([]Listener(nil), b.listeners[ev.Kind]...)
	b.mu.Unlock()

	b.processed.Add(1)
	metrics.EventsProcessed.Inc()

	// Step 5: listeners, outside the lock, each isolated.
	b.notify(ls, ev)

	// Step 6: action dispatch.
	if ev.Actionable() {
		b.dispatch(ev)
	}
}

// admit applies the priority rules. Caller holds b.mu.
func (b *Bus) admit(ev Event) bool {
	// Voice is explicit and deliberate; it always passes.
	if ev.Source == SourceVoice {
		return true
	}

	// A recent voice event suppresses ambient signals. Elapsed time is
	// measured between event timestamps so the rule is deterministic.
	if lastVoice, ok := b.lastEventTime[SourceVoice]; ok {
		if ev.At.Sub(lastVoice) < b.config.voiceDominance {
			return false
		}
	}

	// Gesture is more deliberate than gaze when both fire together;
	// coexistence is a policy, not hardcoded.
	if ev.Source == SourceEye && !b.config.allowEyeGesture && b.sourceActive(SourceGesture, ev.At) {
		return false
	}

	return true
}

// sourceActive reports whether a source counts as active at the given
// instant. With a zero activity window membership is sticky, matching the
// additive behavior of the original design. Caller holds b.mu.
func (b *Bus) sourceActive(s Source, at time.Time) bool {
	if _, ok := b.activeSources[s]; !ok {
		return false
	}
	if b.config.activityWindow <= 0 {
		return true
	}
	return at.Sub(b.lastEventTime[s]) < b.config.activityWindow
}

// notify delivers an event to each listener, isolating errors and panics so
// one listener cannot abort delivery to the rest.
func (b *Bus) notify(ls []Listener, ev Event) {
	for _, l := range ls {
		if err := b.safeListen(l, ev); err != nil {
			b.listenerErrs.Add(1)
			metrics.ListenerErrors.Inc()
			b.logger.Error("listener failed", "kind", ev.Kind.String(), "error", &ListenerError{Kind: ev.Kind, Err: err})
		}
	}
}

func (b *Bus) safeListen(l Listener, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l(ev)
}

// dispatch resolves and invokes the action handler for an actionable event.
func (b *Bus) dispatch(ev Event) {
	b.mu.Lock()
	h, ok := b.handlers[ev.Action]
	if !ok {
		h, ok = b.handlers[ActionAny]
	}
	b.mu.Unlock()

	if !ok {
		b.handlerErrs.Add(1)
		b.logger.Error("no handler for action", "action", ev.Action, "source", ev.Source.String())
		return
	}

	if err := b.safeHandle(h, ev); err != nil {
		b.handlerErrs.Add(1)
		b.logger.Error("action handler failed", "action", ev.Action, "error", err)
		return
	}

	b.mu.Lock()
	b.lastAction = ev.At
	b.mu.Unlock()
}

func (b *Bus) safeHandle(h ActionHandler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action handler panic: %v", r)
		}
	}()
	return h(ev.Action, ev)
}

// drop counts and logs a refused event.
func (b *Bus) drop(ev Event, reason DropReason) {
	switch reason {
	case DropPaused:
		b.droppedPaused.Add(1)
	case DropConflict:
		b.droppedConf.Add(1)
	case DropQueueFull:
		b.droppedFull.Add(1)
	case DropNotRunning:
		b.droppedStopped.Add(1)
	}
	metrics.EventsDropped.WithLabelValues(string(reason)).Inc()
	b.logger.Debug("event dropped",
		"kind", ev.Kind.String(),
		"source", ev.Source.String(),
		"reason", string(reason))
}
