// Package gesture implements hand-shape classification over 21-point hand
// landmarks, the stability filter that debounces it, and the producer loop.
package gesture

import (
	"github.com/attunehid/attune/internal/landmark"
)

// Shape is a classified hand shape.
type Shape uint8

const (
	// ShapeNeutral is no recognizable shape; no-detection ticks classify here.
	ShapeNeutral Shape = iota
	ShapeOK
	ShapePinch
	ShapeMove
	ShapePeace
	ShapeOpenPalm
	ShapePinkyUp
	ShapeScrollUp
	ShapeScrollDown
	ShapeFist
	ShapeThumbsUp
	ShapeThumbsDown
)

// String returns the string representation of the shape.
func (s Shape) String() string {
	switch s {
	case ShapeNeutral:
		return "neutral"
	case ShapeOK:
		return "ok"
	case ShapePinch:
		return "pinch"
	case ShapeMove:
		return "move"
	case ShapePeace:
		return "peace"
	case ShapeOpenPalm:
		return "open_palm"
	case ShapePinkyUp:
		return "pinky_up"
	case ShapeScrollUp:
		return "scroll_up"
	case ShapeScrollDown:
		return "scroll_down"
	case ShapeFist:
		return "fist"
	case ShapeThumbsUp:
		return "thumbs_up"
	case ShapeThumbsDown:
		return "thumbs_down"
	default:
		return "unknown"
	}
}

// ParseShape maps a shape name to its Shape. Unknown names parse as neutral.
func ParseShape(name string) (Shape, bool) {
	switch name {
	case "neutral":
		return ShapeNeutral, true
	case "ok":
		return ShapeOK, true
	case "pinch":
		return ShapePinch, true
	case "move":
		return ShapeMove, true
	case "peace":
		return ShapePeace, true
	case "open_palm":
		return ShapeOpenPalm, true
	case "pinky_up":
		return ShapePinkyUp, true
	case "scroll_up":
		return ShapeScrollUp, true
	case "scroll_down":
		return ShapeScrollDown, true
	case "fist":
		return ShapeFist, true
	case "thumbs_up":
		return ShapeThumbsUp, true
	case "thumbs_down":
		return ShapeThumbsDown, true
	default:
		return ShapeNeutral, false
	}
}

// Finger-state thresholds over normalized coordinates.
const (
	thumbExtendDist = 0.04
	pinchDist       = 0.06
)

// fingerState reports which digits are extended. A finger counts as
// extended when its tip sits above its PIP joint (smaller y); the thumb
// when its tip is far enough from its MCP joint.
type fingerState struct {
	thumb, index, middle, ring, pinky bool
}

func fingers(h landmark.Hand) fingerState {
	p := h.Points
	return fingerState{
		thumb:  landmark.Dist(p[landmark.ThumbTip], p[landmark.ThumbMCP]) > thumbExtendDist,
		index:  p[landmark.IndexTip].Y < p[landmark.IndexPIP].Y,
		middle: p[landmark.MiddleTip].Y < p[landmark.MiddlePIP].Y,
		ring:   p[landmark.RingTip].Y < p[landmark.RingPIP].Y,
		pinky:  p[landmark.PinkyTip].Y < p[landmark.PinkyPIP].Y,
	}
}

// Classify maps a hand skeleton to a shape. The rule order is significant:
// earlier rules win when several would match. ShapeThumbsDown exists in the
// closed set and the default action map but is never produced here.
func Classify(h landmark.Hand) Shape {
	f := fingers(h)
	pinch := landmark.Dist(h.Points[landmark.ThumbTip], h.Points[landmark.IndexTip]) < pinchDist
	allDown := !f.thumb && !f.index && !f.middle && !f.ring && !f.pinky

	switch {
	case pinch && f.middle:
		return ShapeOK
	case pinch:
		return ShapePinch
	case f.index && !f.middle && !f.ring && !f.pinky:
		return ShapeMove
	case f.index && f.middle && !f.ring && !f.pinky:
		return ShapePeace
	case f.index && f.middle && f.ring && f.pinky:
		return ShapeOpenPalm
	case f.pinky && !f.index && !f.middle && !f.ring:
		return ShapePinkyUp
	case f.index && f.middle && f.ring:
		return ShapeScrollUp
	case f.middle && f.ring && f.pinky:
		return ShapeScrollDown
	case allDown:
		return ShapeFist
	case f.thumb && !f.index && !f.middle && !f.ring && !f.pinky:
		return ShapeThumbsUp
	default:
		return ShapeNeutral
	}
}
