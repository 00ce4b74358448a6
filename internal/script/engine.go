// Package script runs Lua-defined custom actions. Scripts see a small
// `attune` module whose input functions delegate to the same injector the
// dispatcher uses, so a scripted action and a table action go through one
// code path at the OS boundary.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/attunehid/attune/internal/dispatch"
	"github.com/attunehid/attune/internal/event"
)

// ErrEngineClosed is returned when using a closed engine.
var ErrEngineClosed = errors.New("script engine is closed")

type call struct {
	fn     func(L *lua.LState) error
	result chan error
}

// Engine owns a single sandboxed Lua state. gopher-lua's LState is not
// goroutine-safe, so every operation is marshalled through a queue consumed
// by Run, which must be running for LoadFile and Call to complete.
type Engine struct {
	L        *lua.LState
	injector dispatch.Injector
	logger   *slog.Logger

	queue     chan *call
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine whose scripts inject input through injector.
// Only the base, table, string, and math libraries are opened; io, os,
// debug, and package stay closed to scripts.
func New(injector dispatch.Injector, opts ...Option) *Engine {
	e := &Engine{
		injector: injector,
		logger:   slog.Default(),
		queue:    make(chan *call, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "script")

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	e.L = L
	e.register(L)
	return e
}

// register installs the attune module.
func (e *Engine) register(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"hotkey": e.luaHotkey,
		"press":  e.luaPress,
		"click":  e.luaClick,
		"log":    e.luaLog,
	})
	L.SetGlobal("attune", mod)
}

func (e *Engine) luaHotkey(L *lua.LState) int {
	n := L.GetTop()
	if n == 0 {
		L.RaiseError("attune.hotkey needs at least one key")
	}
	keys := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		keys = append(keys, L.CheckString(i))
	}
	if err := e.injector.Hotkey(keys...); err != nil {
		L.RaiseError("attune.hotkey: %v", err)
	}
	return 0
}

func (e *Engine) luaPress(L *lua.LState) int {
	if err := e.injector.Press(L.CheckString(1)); err != nil {
		L.RaiseError("attune.press: %v", err)
	}
	return 0
}

func (e *Engine) luaClick(L *lua.LState) int {
	if err := e.injector.Click(L.OptString(1, "left")); err != nil {
		L.RaiseError("attune.click: %v", err)
	}
	return 0
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.logger.Info(L.CheckString(1))
	return 0
}

// Run consumes queued operations until ctx is cancelled or the engine is
// closed. It owns the Lua state; nothing else may touch it while Run is
// live.
func (e *Engine) Run(ctx context.Context) {
	defer e.L.Close()
	for {
		select {
		case <-ctx.Done():
			e.drain(ctx.Err())
			return
		case <-e.done:
			e.drain(ErrEngineClosed)
			return
		case c := <-e.queue:
			err := e.runCall(c)
			c.result <- err
			close(c.result)
		}
	}
}

// runCall executes one operation with panic recovery.
func (e *Engine) runCall(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			default:
				err = fmt.Errorf("lua panic: %v", v)
			}
		}
	}()
	return c.fn(e.L)
}

func (e *Engine) drain(err error) {
	for {
		select {
		case c := <-e.queue:
			c.result <- err
			close(c.result)
		default:
			return
		}
	}
}

// submit queues an operation and waits for its result.
func (e *Engine) submit(ctx context.Context, fn func(L *lua.LState) error) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineClosed
	case e.queue <- c:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.result:
		return err
	}
}

// LoadFile executes a script file. Scripts define global functions that
// Call later invokes.
func (e *Engine) LoadFile(ctx context.Context, path string) error {
	return e.submit(ctx, func(L *lua.LState) error {
		if err := L.DoFile(path); err != nil {
			return fmt.Errorf("script %s: %w", path, err)
		}
		return nil
	})
}

// Call invokes the global function fn with the event's source name and
// detail string as arguments.
func (e *Engine) Call(ctx context.Context, fn string, source event.Source, detail string) error {
	return e.submit(ctx, func(L *lua.LState) error {
		val := L.GetGlobal(fn)
		if val.Type() != lua.LTFunction {
			return fmt.Errorf("script: %q is not a function", fn)
		}
		L.Push(val)
		L.Push(lua.LString(source.String()))
		L.Push(lua.LString(detail))
		return L.PCall(2, 0, nil)
	})
}

// Handler adapts a script function into a dispatcher custom handler.
func (e *Engine) Handler(fn string) dispatch.Handler {
	return func(source event.Source, detail string) error {
		return e.Call(context.Background(), fn, source, detail)
	}
}

// Close stops the engine. In-flight operations finish with ErrEngineClosed.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
}
