package voice

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// LineRecognizer is a Recognizer that reads one utterance per line from a
// reader, typically stdin. It lets the whole pipeline run headless: type a
// phrase, hit enter, the command dispatches.
type LineRecognizer struct {
	r     io.Reader
	lines chan string
	done  chan struct{}
	start sync.Once
	stop  sync.Once

	mu    sync.Mutex
	final error
}

// NewLineRecognizer wraps r. The reader is not consumed until the first
// Listen call.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{
		r:     r,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
}

func (l *LineRecognizer) pump() {
	scanner := bufio.NewScanner(l.r)
	for scanner.Scan() {
		select {
		case l.lines <- scanner.Text():
		case <-l.done:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	l.mu.Lock()
	l.final = err
	l.mu.Unlock()
	close(l.lines)
}

// Listen returns the next line. It returns io.EOF once the reader is
// exhausted or the recognizer is closed, and ctx.Err() if the context ends
// first.
func (l *LineRecognizer) Listen(ctx context.Context) (string, error) {
	select {
	case <-l.done:
		return "", io.EOF
	default:
	}
	l.start.Do(func() { go l.pump() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-l.done:
		return "", io.EOF
	case line, ok := <-l.lines:
		if !ok {
			l.mu.Lock()
			defer l.mu.Unlock()
			return "", l.final
		}
		return line, nil
	}
}

// Close releases the pump goroutine even if lines remain unread. Safe to
// call more than once.
func (l *LineRecognizer) Close() error {
	l.stop.Do(func() { close(l.done) })
	return nil
}
