package eye

import (
	"time"

	"github.com/attunehid/attune/internal/landmark"
)

// BlinkResult is the outcome of one blink-machine tick.
type BlinkResult uint8

const (
	// BlinkNone reports no completed sequence. Single isolated blinks
	// land here on purpose: ordinary blinking must not trigger actions.
	BlinkNone BlinkResult = iota
	// BlinkDouble reports two blinks inside the double window.
	BlinkDouble
	// BlinkTriple reports three blinks inside the triple window.
	BlinkTriple
)

// String returns the string representation of the result.
func (r BlinkResult) String() string {
	switch r {
	case BlinkNone:
		return "none"
	case BlinkDouble:
		return "double_blink"
	case BlinkTriple:
		return "triple_blink"
	default:
		return "unknown"
	}
}

// BlinkConfig holds the blink machine thresholds.
type BlinkConfig struct {
	// CloseThreshold is the aspect ratio below which the eyes count as closed.
	CloseThreshold float64
	// DoubleWindow bounds the gap between the first and second blink.
	DoubleWindow time.Duration
	// TripleWindow bounds the span from the first to the third blink.
	TripleWindow time.Duration
	// ResetAfter clears the sequence when no new blink arrives in time.
	ResetAfter time.Duration
}

// DefaultBlinkConfig returns the standard blink thresholds.
func DefaultBlinkConfig() BlinkConfig {
	return BlinkConfig{
		CloseThreshold: 0.25,
		DoubleWindow:   500 * time.Millisecond,
		TripleWindow:   700 * time.Millisecond,
		ResetAfter:     time.Second,
	}
}

// EAR computes the eye aspect ratio over a six-point eye rim: the mean of
// the two vertical gaps over twice the horizontal span. A degenerate span
// reads as open.
func EAR(rim [6]landmark.Point) float64 {
	v1 := landmark.Dist(rim[1], rim[5])
	v2 := landmark.Dist(rim[2], rim[4])
	h := landmark.Dist(rim[0], rim[3])
	if h <= 0 {
		return 0.5
	}
	return (v1 + v2) / (2 * h)
}

// BlinkDetector is the blink-sequence state machine. A blink is an
// open-to-closed transition of the openness signal; sequences of two or
// three blinks inside their windows complete as double or triple blinks.
type BlinkDetector struct {
	cfg       BlinkConfig
	closed    bool
	count     int
	seqStart  time.Time
	lastBlink time.Time
}

// NewBlinkDetector creates a blink detector with the given thresholds.
func NewBlinkDetector(cfg BlinkConfig) *BlinkDetector {
	return &BlinkDetector{cfg: cfg}
}

// Count returns the current sequence length.
func (b *BlinkDetector) Count() int {
	return b.count
}

// Observe feeds one openness tick and returns any completed sequence.
func (b *BlinkDetector) Observe(openness float64, now time.Time) BlinkResult {
	if b.count > 0 && now.Sub(b.lastBlink) > b.cfg.ResetAfter {
		b.count = 0
		b.seqStart = time.Time{}
	}

	closed := openness < b.cfg.CloseThreshold
	result := BlinkNone

	if closed && !b.closed {
		b.count++
		switch b.count {
		case 1:
			b.seqStart = now
		case 2:
			// The double window is measured from the previous blink.
			if now.Sub(b.lastBlink) < b.cfg.DoubleWindow {
				result = BlinkDouble
			}
		case 3:
			// The triple window is cumulative from the first blink of
			// the sequence.
			if now.Sub(b.seqStart) < b.cfg.TripleWindow {
				result = BlinkTriple
			}
		}
		b.lastBlink = now
	}

	b.closed = closed
	return result
}
