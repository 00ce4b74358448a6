package script

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/attunehid/attune/internal/event"
)

type recordingInjector struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (r *recordingInjector) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if r.fail {
		return errors.New("injection refused")
	}
	return nil
}

func (r *recordingInjector) Hotkey(keys ...string) error {
	return r.record("hotkey:" + strings.Join(keys, "+"))
}

func (r *recordingInjector) Press(key string) error {
	return r.record("press:" + key)
}

func (r *recordingInjector) Click(button string) error {
	return r.record("click:" + button)
}

func (r *recordingInjector) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestEngine(t *testing.T) (*Engine, *recordingInjector) {
	t.Helper()
	inj := &recordingInjector{}
	e := New(inj, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("engine did not stop")
		}
	})
	return e, inj
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "actions.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEngine_CallInvokesScriptFunction(t *testing.T) {
	e, inj := newTestEngine(t)
	path := writeScript(t, `
function zoom(source, detail)
    attune.hotkey("ctrl", "plus")
    attune.press("enter")
    attune.click()
end
`)
	ctx := context.Background()
	if err := e.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := e.Call(ctx, "zoom", event.SourceVoice, "zoom in"); err != nil {
		t.Fatalf("Call: %v", err)
	}

	want := []string{"hotkey:ctrl+plus", "press:enter", "click:left"}
	got := inj.snapshot()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEngine_CallPassesSourceAndDetail(t *testing.T) {
	e, inj := newTestEngine(t)
	path := writeScript(t, `
function echo(source, detail)
    attune.press(source .. "/" .. detail)
end
`)
	ctx := context.Background()
	if err := e.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := e.Call(ctx, "echo", event.SourceGesture, "pinch"); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := inj.snapshot(); len(got) != 1 || got[0] != "press:gesture/pinch" {
		t.Errorf("calls = %v", got)
	}
}

func TestEngine_UnknownFunction(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Call(context.Background(), "missing", event.SourceVoice, ""); err == nil {
		t.Fatal("expected error for unknown function")
	}
}

func TestEngine_ScriptErrorPropagates(t *testing.T) {
	e, _ := newTestEngine(t)
	path := writeScript(t, `
function boom()
    error("deliberate")
end
`)
	ctx := context.Background()
	if err := e.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	err := e.Call(ctx, "boom", event.SourceVoice, "")
	if err == nil || !strings.Contains(err.Error(), "deliberate") {
		t.Fatalf("Call = %v, want script error", err)
	}
}

func TestEngine_InjectorErrorPropagates(t *testing.T) {
	e, inj := newTestEngine(t)
	inj.fail = true
	path := writeScript(t, `
function poke()
    attune.press("x")
end
`)
	ctx := context.Background()
	if err := e.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := e.Call(ctx, "poke", event.SourceEye, ""); err == nil {
		t.Fatal("expected injector error to surface")
	}
}

func TestEngine_SandboxHidesOSAndIO(t *testing.T) {
	e, _ := newTestEngine(t)
	path := writeScript(t, `
function probe()
    if os ~= nil or io ~= nil then
        error("sandbox leak")
    end
end
`)
	ctx := context.Background()
	if err := e.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := e.Call(ctx, "probe", event.SourceVoice, ""); err != nil {
		t.Fatalf("probe: %v", err)
	}
}

func TestEngine_ClosedEngineRejectsCalls(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Close()
	err := e.Call(context.Background(), "anything", event.SourceVoice, "")
	if !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("Call = %v, want ErrEngineClosed", err)
	}
}

func TestEngine_HandlerAdapter(t *testing.T) {
	e, inj := newTestEngine(t)
	path := writeScript(t, `
function wave()
    attune.hotkey("ctrl", "w")
end
`)
	ctx := context.Background()
	if err := e.LoadFile(ctx, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	h := e.Handler("wave")
	if err := h(event.SourceGesture, "open_palm"); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got := inj.snapshot(); len(got) != 1 || got[0] != "hotkey:ctrl+w" {
		t.Errorf("calls = %v", got)
	}
}
