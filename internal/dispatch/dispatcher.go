// Package dispatch translates abstract action names into concrete input
// effects, enforcing a single global execution cooldown and recording a
// bounded history for statistics and audit.
package dispatch

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/attunehid/attune/internal/event"
	"github.com/attunehid/attune/internal/metrics"
)

// Handler is a registered custom action. It takes precedence over the
// static table for its action name.
type Handler func(source event.Source, detail string) error

// Record is one executed action, kept in the history ring.
type Record struct {
	Action string
	Source event.Source
	At     time.Time
	Detail string
}

// Sink receives every executed action. Sinks are notified outside the
// dispatcher lock; a slow sink delays the caller but cannot deadlock.
type Sink interface {
	RecordAction(r Record)
}

// Counters reports lifetime dispatcher counts.
type Counters struct {
	Executed uint64
	Blocked  uint64
	Unknown  uint64
	Failed   uint64
}

// Dispatcher executes actions against the injection boundary.
type Dispatcher struct {
	injector Injector
	logger   *slog.Logger
	clock    func() time.Time
	cooldown time.Duration

	// mu guards the mutable state below; never held across the injector,
	// a custom handler, or a sink.
	mu         sync.Mutex
	table      map[string]Command
	handlers   map[string]Handler
	sinks      []Sink
	lastAction time.Time
	ring       []Record
	ringStart  int
	ringCount  int

	executed atomic.Uint64
	blocked  atomic.Uint64
	unknown  atomic.Uint64
	failed   atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTable replaces the default action table.
func WithTable(table map[string]Command) Option {
	return func(d *Dispatcher) {
		if table != nil {
			d.table = table
		}
	}
}

// WithCooldown sets the global minimum interval between executions.
func WithCooldown(cd time.Duration) Option {
	return func(d *Dispatcher) {
		if cd >= 0 {
			d.cooldown = cd
		}
	}
}

// WithHistorySize sets the history ring capacity.
func WithHistorySize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.ring = make([]Record, n)
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSink adds an action sink.
func WithSink(s Sink) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
}

// New creates a dispatcher performing effects through the given injector.
func New(injector Injector, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		injector: injector,
		logger:   slog.Default(),
		clock:    time.Now,
		cooldown: 200 * time.Millisecond,
		table:    DefaultTable(),
		handlers: make(map[string]Handler),
		ring:     make([]Record, 100),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatcher")
	return d
}

// RegisterHandler registers a custom action. Custom actions are resolved
// before the static table.
func (d *Dispatcher) RegisterHandler(name string, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// SetTable atomically replaces the static action table.
func (d *Dispatcher) SetTable(table map[string]Command) {
	if table == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table = table
}

// Execute performs the named action. It reports false when the action was
// blocked by the cooldown, unknown, or failed; failure never propagates.
func (d *Dispatcher) Execute(action string, source event.Source, detail string) bool {
	now := d.clock()

	d.mu.Lock()
	if now.Sub(d.lastAction) < d.cooldown {
		d.mu.Unlock()
		d.blocked.Add(1)
		metrics.ActionsBlocked.WithLabelValues("cooldown").Inc()
		d.logger.Debug("action blocked by cooldown", "action", action, "source", source.String())
		return false
	}
	handler, isCustom := d.handlers[action]
	var cmd Command
	if !isCustom {
		var known bool
		cmd, known = d.table[action]
		if !known {
			d.mu.Unlock()
			d.unknown.Add(1)
			metrics.ActionsBlocked.WithLabelValues("unknown").Inc()
			d.logger.Error("unknown action", "action", action, "source", source.String())
			return false
		}
	}
	d.mu.Unlock()

	var err error
	if isCustom {
		err = d.safeHandle(handler, source, detail)
	} else {
		err = d.safePerform(cmd)
	}
	if err != nil {
		d.failed.Add(1)
		metrics.ActionsBlocked.WithLabelValues("failed").Inc()
		d.logger.Error("action failed", "action", action, "source", source.String(), "error", err)
		return false
	}

	rec := Record{Action: action, Source: source, At: now, Detail: detail}

	d.mu.Lock()
	d.lastAction = now
	d.push(rec)
	sinks := append([]Sink(nil), d.sinks...)
	d.mu.Unlock()

	d.executed.Add(1)
	metrics.ActionsExecuted.WithLabelValues(action, source.String()).Inc()
	d.logger.Info("action executed", "action", action, "source", source.String(), "detail", detail)

	for _, s := range sinks {
		s.RecordAction(rec)
	}
	return true
}

// safePerform runs a static command with panic recovery.
func (d *Dispatcher) safePerform(cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("injector panic: %v", r)
		}
	}()

	switch cmd.Kind {
	case CommandHotkey:
		return d.injector.Hotkey(cmd.Keys...)
	case CommandPress:
		return d.injector.Press(cmd.Key)
	case CommandClick:
		button := cmd.Button
		if button == "" {
			button = "left"
		}
		return d.injector.Click(button)
	default:
		return fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
}

// safeHandle runs a custom handler with panic recovery.
func (d *Dispatcher) safeHandle(h Handler, source event.Source, detail string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(source, detail)
}

// push appends a record to the ring, evicting the oldest at capacity.
// Caller holds d.mu.
func (d *Dispatcher) push(r Record) {
	if d.ringCount < len(d.ring) {
		d.ring[(d.ringStart+d.ringCount)%len(d.ring)] = r
		d.ringCount++
		return
	}
	d.ring[d.ringStart] = r
	d.ringStart = (d.ringStart + 1) % len(d.ring)
}

// History returns the most recent records, oldest first, at most limit.
func (d *Dispatcher) History(limit int) []Record {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.ringCount
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, 0, n)
	for i := d.ringCount - n; i < d.ringCount; i++ {
		out = append(out, d.ring[(d.ringStart+i)%len(d.ring)])
	}
	return out
}

// Stats returns execution counts over the current history contents, grouped
// by "action (source)".
func (d *Dispatcher) Stats() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := make(map[string]int)
	for i := 0; i < d.ringCount; i++ {
		r := d.ring[(d.ringStart+i)%len(d.ring)]
		stats[r.Action+" ("+r.Source.String()+")"]++
	}
	return stats
}

// Counters returns lifetime dispatcher counts.
func (d *Dispatcher) Counters() Counters {
	return Counters{
		Executed: d.executed.Load(),
		Blocked:  d.blocked.Load(),
		Unknown:  d.unknown.Load(),
		Failed:   d.failed.Load(),
	}
}
