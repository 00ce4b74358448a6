package hud

import (
	"context"
	"testing"
	"time"

	"github.com/attunehid/attune/internal/modality/eye"
	"github.com/attunehid/attune/internal/modality/gesture"
)

func TestSim_GazeProducesClassifiableFaces(t *testing.T) {
	sim := NewSim(WithFrameInterval(time.Millisecond))
	faces := sim.Faces()
	ctx := context.Background()

	sim.GazeLeft()
	face, ok, err := faces.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("Next = %v, %v", ok, err)
	}
	ratio := eye.Ratio(face.Left.IrisX(), face.Left.Rim[0].X, face.Left.Rim[3].X)
	if dir := eye.Classify(ratio, eye.DefaultGazeConfig()); dir != eye.DirectionLeft {
		t.Errorf("direction = %v, want left (ratio %.2f)", dir, ratio)
	}

	sim.GazeRight()
	face, _, _ = faces.Next(ctx)
	ratio = eye.Ratio(face.Left.IrisX(), face.Left.Rim[0].X, face.Left.Rim[3].X)
	if dir := eye.Classify(ratio, eye.DefaultGazeConfig()); dir != eye.DirectionRight {
		t.Errorf("direction = %v, want right (ratio %.2f)", dir, ratio)
	}
}

func TestSim_GazeExpiresToCenter(t *testing.T) {
	sim := NewSim(WithFrameInterval(time.Millisecond))
	faces := sim.Faces()
	ctx := context.Background()

	// Never held: centered.
	face, _, _ := faces.Next(ctx)
	ratio := eye.Ratio(face.Left.IrisX(), face.Left.Rim[0].X, face.Left.Rim[3].X)
	if dir := eye.Classify(ratio, eye.DefaultGazeConfig()); dir != eye.DirectionCenter {
		t.Errorf("direction = %v, want center", dir)
	}
}

func TestSim_BlinkClosesEyesForAFewFrames(t *testing.T) {
	sim := NewSim(WithFrameInterval(time.Millisecond))
	faces := sim.Faces()
	ctx := context.Background()
	cfg := eye.DefaultBlinkConfig()

	sim.Blink()
	closed := 0
	for i := 0; i < blinkClosedFrames+2; i++ {
		face, _, _ := faces.Next(ctx)
		if eye.EAR(face.Left.Rim) < cfg.CloseThreshold {
			closed++
		}
	}
	if closed != blinkClosedFrames {
		t.Errorf("closed frames = %d, want %d", closed, blinkClosedFrames)
	}
}

func TestSim_ShapesSurviveTheRealClassifier(t *testing.T) {
	sim := NewSim(WithFrameInterval(time.Millisecond))
	hands := sim.Hands()
	ctx := context.Background()

	for _, shape := range []gesture.Shape{gesture.ShapePinch, gesture.ShapePeace, gesture.ShapePinkyUp} {
		sim.Shape(shape)
		hand, ok, err := hands.Next(ctx)
		if err != nil || !ok {
			t.Fatalf("Next = %v, %v", ok, err)
		}
		if got := gesture.Classify(hand); got != shape {
			t.Errorf("Classify = %v, want %v", got, shape)
		}
	}
}

func TestSim_IdleHandsReportNothing(t *testing.T) {
	sim := NewSim(WithFrameInterval(time.Millisecond))
	if _, ok, err := sim.Hands().Next(context.Background()); ok || err != nil {
		t.Fatalf("Next = %v, %v, want no hand", ok, err)
	}
}

func TestSim_MicDeliversPhrases(t *testing.T) {
	sim := NewSim(WithListenTimeout(50 * time.Millisecond))
	mic := sim.Mic()
	ctx := context.Background()

	if !sim.Say("copy that") {
		t.Fatal("Say rejected")
	}
	phrase, err := mic.Listen(ctx)
	if err != nil || phrase != "copy that" {
		t.Fatalf("Listen = %q, %v", phrase, err)
	}

	// Nothing queued: times out to an empty utterance.
	phrase, err = mic.Listen(ctx)
	if err != nil || phrase != "" {
		t.Fatalf("Listen = %q, %v, want empty", phrase, err)
	}
}

func TestSim_MicHonorsContext(t *testing.T) {
	sim := NewSim()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sim.Mic().Listen(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
