// Package hud provides the terminal status display and the simulation
// sources that stand in for cameras and microphones. The sim implements
// the same black-box interfaces a real perception adapter would, so the
// full pipeline from landmark geometry through classification and
// dispatch runs for real under keyboard control.
package hud

import (
	"context"
	"sync"
	"time"

	"github.com/attunehid/attune/internal/landmark"
	"github.com/attunehid/attune/internal/modality/eye"
	"github.com/attunehid/attune/internal/modality/gesture"
)

const (
	defaultFrameInterval = 33 * time.Millisecond
	gazeHoldSpan         = time.Second
	blinkClosedFrames    = 2
	shapeHeldFrames      = 6
)

// Sim synthesizes perception input. Faces, Hands, and Mic return views
// that satisfy eye.FaceTracker, gesture.HandTracker, and voice.Recognizer;
// the keyboard methods (GazeLeft, Blink, Shape, Say, ...) queue what those
// views will produce.
type Sim struct {
	interval time.Duration
	timeout  time.Duration
	phrases  chan string

	mu        sync.Mutex
	gazeRatio float64
	gazeUntil time.Time
	blinkLeft int
	shape     gesture.Shape
	shapeLeft int
}

// SimOption configures a Sim.
type SimOption func(*Sim)

// WithFrameInterval sets the synthetic frame rate (default 33ms, ~30fps).
func WithFrameInterval(d time.Duration) SimOption {
	return func(s *Sim) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithListenTimeout sets how long the mic view blocks before reporting an
// empty utterance (default 4s).
func WithListenTimeout(d time.Duration) SimOption {
	return func(s *Sim) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSim returns an idle simulator. All views produce neutral input until
// a keyboard method queues something.
func NewSim(opts ...SimOption) *Sim {
	s := &Sim{
		interval: defaultFrameInterval,
		timeout:  4 * time.Second,
		phrases:  make(chan string, 8),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GazeLeft holds a hard-left synthetic gaze for about a second.
func (s *Sim) GazeLeft() { s.gaze(0.2) }

// GazeRight holds a hard-right synthetic gaze for about a second.
func (s *Sim) GazeRight() { s.gaze(0.8) }

func (s *Sim) gaze(ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gazeRatio = ratio
	s.gazeUntil = time.Now().Add(gazeHoldSpan)
}

// Blink closes the synthetic eyes for a couple of frames. Two Blink calls
// within half a second make a double blink, three within 0.7s a triple.
func (s *Sim) Blink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blinkLeft == 0 {
		s.blinkLeft = blinkClosedFrames
	}
}

// Shape holds a hand shape for a few frames, enough to pass the stability
// filter.
func (s *Sim) Shape(shape gesture.Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shape = shape
	s.shapeLeft = shapeHeldFrames
}

// Say queues a phrase as a recognized utterance. It drops the phrase when
// the queue is full rather than block the UI.
func (s *Sim) Say(phrase string) bool {
	select {
	case s.phrases <- phrase:
		return true
	default:
		return false
	}
}

// Faces returns the eye.FaceTracker view.
func (s *Sim) Faces() *SimFaces { return &SimFaces{sim: s} }

// Hands returns the gesture.HandTracker view.
func (s *Sim) Hands() *SimHands { return &SimHands{sim: s} }

// Mic returns the voice.Recognizer view.
func (s *Sim) Mic() *SimMic { return &SimMic{sim: s} }

func (s *Sim) tick(ctx context.Context) bool {
	t := time.NewTimer(s.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SimFaces produces one synthetic face per frame interval.
type SimFaces struct {
	sim *Sim
}

func (f *SimFaces) Next(ctx context.Context) (landmark.Face, bool, error) {
	if !f.sim.tick(ctx) {
		return landmark.Face{}, false, ctx.Err()
	}
	f.sim.mu.Lock()
	openness := 1.0
	if f.sim.blinkLeft > 0 {
		openness = 0.0
		f.sim.blinkLeft--
	}
	ratio := 0.5
	if time.Now().Before(f.sim.gazeUntil) {
		ratio = f.sim.gazeRatio
	}
	f.sim.mu.Unlock()
	return eye.SynthFace(ratio, openness), true, nil
}

// SimHands produces one synthetic hand per frame interval.
type SimHands struct {
	sim *Sim
}

func (h *SimHands) Next(ctx context.Context) (landmark.Hand, bool, error) {
	if !h.sim.tick(ctx) {
		return landmark.Hand{}, false, ctx.Err()
	}
	h.sim.mu.Lock()
	shape := gesture.ShapeNeutral
	if h.sim.shapeLeft > 0 {
		shape = h.sim.shape
		h.sim.shapeLeft--
	}
	h.sim.mu.Unlock()
	if shape == gesture.ShapeNeutral {
		return landmark.Hand{}, false, nil
	}
	return gesture.SynthHand(shape), true, nil
}

// SimMic yields queued phrases, or an empty utterance after the listen
// timeout.
type SimMic struct {
	sim *Sim
}

func (m *SimMic) Listen(ctx context.Context) (string, error) {
	t := time.NewTimer(m.sim.timeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case phrase := <-m.sim.phrases:
		return phrase, nil
	case <-t.C:
		return "", nil
	}
}
