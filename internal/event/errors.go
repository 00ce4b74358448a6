package event

import "errors"

// Sentinel errors for the event bus.
var (
	// ErrBusNotRunning is returned when operations require a started bus.
	ErrBusNotRunning = errors.New("event bus is not running")

	// ErrBusAlreadyRunning is returned when Start is called twice.
	ErrBusAlreadyRunning = errors.New("event bus is already running")

	// ErrShutdownTimeout is returned when the consumer does not exit
	// before the Stop context expires.
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")

	// ErrNilListener is returned when a nil listener is registered.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrNilHandler is returned when a nil action handler is registered.
	ErrNilHandler = errors.New("action handler cannot be nil")
)

// ListenerError wraps an error returned (or recovered) from a listener with
// the kind it was registered for.
type ListenerError struct {
	// Kind is the event kind the listener was registered for.
	Kind Kind

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return "listener error for " + e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}
