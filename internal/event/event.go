package event

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies the modality that produced an event.
type Source uint8

const (
	// SourceSystem is used for bus-synthesized notifications.
	SourceSystem Source = iota
	// SourceEye covers gaze and blink events.
	SourceEye
	// SourceGesture covers hand-shape events.
	SourceGesture
	// SourceVoice covers spoken-command events.
	SourceVoice
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceSystem:
		return "system"
	case SourceEye:
		return "eye"
	case SourceGesture:
		return "gesture"
	case SourceVoice:
		return "voice"
	default:
		return "unknown"
	}
}

// Kind is the closed set of events the system produces.
type Kind uint8

const (
	// KindGazeLeft fires when a leftward gaze hold completes.
	KindGazeLeft Kind = iota
	// KindGazeRight fires when a rightward gaze hold completes.
	KindGazeRight
	// KindDoubleBlink fires on two blinks inside the double-blink window.
	KindDoubleBlink
	// KindTripleBlink fires on three blinks inside the triple-blink window.
	KindTripleBlink
	// KindGesture fires when a stable, mapped hand shape passes its cooldown.
	KindGesture
	// KindPauseToggle fires from the dedicated pause gesture; it flips the
	// bus pause state and never reaches the dispatcher.
	KindPauseToggle
	// KindVoiceCommand fires when an utterance resolves to an intent.
	KindVoiceCommand
	// KindSystemPause is synthesized by the bus when it enters the paused state.
	KindSystemPause
	// KindSystemResume is synthesized by the bus when it leaves the paused state.
	KindSystemResume
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindGazeLeft:
		return "gaze_left"
	case KindGazeRight:
		return "gaze_right"
	case KindDoubleBlink:
		return "double_blink"
	case KindTripleBlink:
		return "triple_blink"
	case KindGesture:
		return "gesture"
	case KindPauseToggle:
		return "pause_toggle"
	case KindVoiceCommand:
		return "voice_command"
	case KindSystemPause:
		return "system_pause"
	case KindSystemResume:
		return "system_resume"
	default:
		return "unknown"
	}
}

// ActionAny is the wildcard action-handler name. A handler registered under
// it receives every actionable event that has no exact-name handler.
const ActionAny = "*"

// Event is the immutable record a modality hands to the bus. It is consumed
// exactly once by the consumer loop and never mutated after creation.
type Event struct {
	// ID uniquely identifies the event.
	ID string

	// Kind tags the event variant.
	Kind Kind

	// Source is the modality that produced the event.
	Source Source

	// Action is the unified action name the dispatcher should execute.
	// Empty when the event is not actionable.
	Action string

	// Detail carries modality-specific context: the hand shape, the gaze
	// key, the blink kind, or the heard phrase.
	Detail string

	// Priority ranks urgency; higher is more urgent. It affects admission
	// policy only, never queue ordering.
	Priority int

	// At is the creation instant. Producers pass their tick time so
	// conflict windows are deterministic under test.
	At time.Time
}

// New creates an event with a fresh ID and the current time.
func New(kind Kind, source Source) Event {
	return Event{
		ID:     uuid.NewString(),
		Kind:   kind,
		Source: source,
		At:     time.Now(),
	}
}

// WithAction returns a copy carrying the given action name.
func (e Event) WithAction(action string) Event {
	e.Action = action
	return e
}

// WithDetail returns a copy carrying the given detail.
func (e Event) WithDetail(detail string) Event {
	e.Detail = detail
	return e
}

// WithPriority returns a copy carrying the given priority.
func (e Event) WithPriority(p int) Event {
	e.Priority = p
	return e
}

// WithTime returns a copy carrying the given creation instant.
func (e Event) WithTime(t time.Time) Event {
	e.At = t
	return e
}

// Actionable reports whether the event carries an action for the dispatcher.
func (e Event) Actionable() bool {
	return e.Action != ""
}

// Emitter is the producer-facing side of the bus. It is implemented by *Bus
// and by test fakes.
type Emitter interface {
	// Emit enqueues an event without blocking. It reports whether the
	// event was accepted onto the queue.
	Emit(ev Event) bool
}

// Listener receives events of a registered kind. Errors are logged and do
// not abort delivery to remaining listeners.
type Listener func(ev Event) error

// ActionHandler receives actionable events that survived gating and
// conflict resolution.
type ActionHandler func(action string, ev Event) error
