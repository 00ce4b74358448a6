package eye

import (
	"testing"
	"time"

	"github.com/attunehid/attune/internal/landmark"
)

const (
	open   = 0.5
	closed = 0.1
)

// blinkAt feeds a closed-then-open pair so each call is one full blink.
func blinkAt(b *BlinkDetector, base time.Time, offset time.Duration) BlinkResult {
	result := b.Observe(closed, base.Add(offset))
	b.Observe(open, base.Add(offset+10*time.Millisecond))
	return result
}

func TestBlinkDetector_SingleBlinkEmitsNothing(t *testing.T) {
	b := NewBlinkDetector(DefaultBlinkConfig())
	base := time.Unix(1000, 0)

	if got := blinkAt(b, base, 0); got != BlinkNone {
		t.Errorf("single blink = %v, want none", got)
	}
	// Long after the reset window, another isolated blink is also nothing.
	if got := blinkAt(b, base, 3*time.Second); got != BlinkNone {
		t.Errorf("second isolated blink = %v, want none", got)
	}
}

func TestBlinkDetector_DoubleBlink(t *testing.T) {
	b := NewBlinkDetector(DefaultBlinkConfig())
	base := time.Unix(1000, 0)

	if got := blinkAt(b, base, 0); got != BlinkNone {
		t.Fatalf("first blink = %v, want none", got)
	}
	if got := blinkAt(b, base, 300*time.Millisecond); got != BlinkDouble {
		t.Errorf("second blink inside 0.5s = %v, want double", got)
	}
}

func TestBlinkDetector_SlowSecondBlinkIsNotDouble(t *testing.T) {
	b := NewBlinkDetector(DefaultBlinkConfig())
	base := time.Unix(1000, 0)

	blinkAt(b, base, 0)
	if got := blinkAt(b, base, 600*time.Millisecond); got != BlinkNone {
		t.Errorf("second blink outside 0.5s = %v, want none", got)
	}
}

func TestBlinkDetector_TripleBlink(t *testing.T) {
	b := NewBlinkDetector(DefaultBlinkConfig())
	base := time.Unix(1000, 0)

	blinkAt(b, base, 0)
	if got := blinkAt(b, base, 250*time.Millisecond); got != BlinkDouble {
		t.Fatalf("en-route double = %v, want double", got)
	}
	// Third blink within 0.7s of the first completes the triple.
	if got := blinkAt(b, base, 500*time.Millisecond); got != BlinkTriple {
		t.Errorf("third blink inside cumulative 0.7s = %v, want triple", got)
	}
}

func TestBlinkDetector_TripleWindowIsCumulative(t *testing.T) {
	b := NewBlinkDetector(DefaultBlinkConfig())
	base := time.Unix(1000, 0)

	blinkAt(b, base, 0)
	blinkAt(b, base, 400*time.Millisecond)
	// 0.35s after the second blink but 0.75s after the first: too late.
	if got := blinkAt(b, base, 750*time.Millisecond); got != BlinkNone {
		t.Fatalf("late third blink = %v, want none", got)
	}
	if got := b.Count(); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
}

func TestBlinkDetector_SequenceResetsAfterIdle(t *testing.T) {
	b := NewBlinkDetector(DefaultBlinkConfig())
	base := time.Unix(1000, 0)

	blinkAt(b, base, 0)
	// More than 1.0s without a new blink clears the counter, so this
	// starts a fresh sequence.
	blinkAt(b, base, 1500*time.Millisecond)
	if got := b.Count(); got != 1 {
		t.Errorf("count after reset = %d, want 1", got)
	}
	if got := blinkAt(b, base, 1700*time.Millisecond); got != BlinkDouble {
		t.Errorf("pair after reset = %v, want double", got)
	}
}

func TestBlinkDetector_HeldClosedIsOneBlink(t *testing.T) {
	b := NewBlinkDetector(DefaultBlinkConfig())
	base := time.Unix(1000, 0)

	b.Observe(closed, base)
	for i := 1; i <= 5; i++ {
		b.Observe(closed, base.Add(time.Duration(i)*50*time.Millisecond))
	}
	if got := b.Count(); got != 1 {
		t.Errorf("held-closed count = %d, want 1 (only the transition counts)", got)
	}
}

func TestEAR(t *testing.T) {
	openRim := [6]landmark.Point{
		{X: 0.40, Y: 0.50},
		{X: 0.43, Y: 0.48},
		{X: 0.46, Y: 0.48},
		{X: 0.48, Y: 0.50},
		{X: 0.46, Y: 0.52},
		{X: 0.43, Y: 0.52},
	}
	if got := EAR(openRim); got < 0.25 {
		t.Errorf("open eye EAR = %v, want >= 0.25", got)
	}

	closedRim := openRim
	for i := range closedRim {
		closedRim[i].Y = 0.50
	}
	if got := EAR(closedRim); got != 0 {
		t.Errorf("flat rim EAR = %v, want 0", got)
	}

	var degenerate [6]landmark.Point
	if got := EAR(degenerate); got != 0.5 {
		t.Errorf("degenerate rim EAR = %v, want 0.5", got)
	}
}
