package gesture

import "github.com/attunehid/attune/internal/landmark"

// SynthHand builds a hand skeleton that classifies as the given shape. It
// backs the simulation sources and the classifier tests; shapes the
// classifier never produces (thumbs_down) synthesize as neutral.
func SynthHand(s Shape) landmark.Hand {
	var h landmark.Hand

	// Folded baseline: every tip below its PIP, thumb tip near its MCP.
	h.Points[landmark.Wrist] = landmark.Point{X: 0.50, Y: 0.90}
	h.Points[landmark.ThumbCMC] = landmark.Point{X: 0.42, Y: 0.82}
	h.Points[landmark.ThumbMCP] = landmark.Point{X: 0.40, Y: 0.75}
	h.Points[landmark.ThumbIP] = landmark.Point{X: 0.40, Y: 0.76}
	h.Points[landmark.ThumbTip] = landmark.Point{X: 0.41, Y: 0.76}

	xs := []float64{0.45, 0.50, 0.55, 0.60}
	mcps := []int{landmark.IndexMCP, landmark.MiddleMCP, landmark.RingMCP, landmark.PinkyMCP}
	for i, mcp := range mcps {
		h.Points[mcp] = landmark.Point{X: xs[i], Y: 0.70}
		h.Points[mcp+1] = landmark.Point{X: xs[i], Y: 0.60} // PIP
		h.Points[mcp+2] = landmark.Point{X: xs[i], Y: 0.65} // DIP
		h.Points[mcp+3] = landmark.Point{X: xs[i], Y: 0.68} // tip folded
	}

	extend := func(tip int) {
		h.Points[tip] = landmark.Point{X: h.Points[tip].X, Y: 0.45}
	}
	extendThumb := func() {
		h.Points[landmark.ThumbTip] = landmark.Point{X: 0.34, Y: 0.68}
	}
	pinch := func() {
		tip := h.Points[landmark.IndexTip]
		h.Points[landmark.ThumbTip] = landmark.Point{X: tip.X, Y: tip.Y - 0.01}
	}

	switch s {
	case ShapePinch:
		pinch()
	case ShapeOK:
		extend(landmark.MiddleTip)
		pinch()
	case ShapeMove:
		extend(landmark.IndexTip)
	case ShapePeace:
		extend(landmark.IndexTip)
		extend(landmark.MiddleTip)
	case ShapeOpenPalm:
		extend(landmark.IndexTip)
		extend(landmark.MiddleTip)
		extend(landmark.RingTip)
		extend(landmark.PinkyTip)
	case ShapePinkyUp:
		extend(landmark.PinkyTip)
	case ShapeScrollUp:
		extend(landmark.IndexTip)
		extend(landmark.MiddleTip)
		extend(landmark.RingTip)
	case ShapeScrollDown:
		extend(landmark.MiddleTip)
		extend(landmark.RingTip)
		extend(landmark.PinkyTip)
	case ShapeFist:
		// Folded baseline already is a fist.
	case ShapeThumbsUp:
		extendThumb()
	default:
		// Neutral: an ambiguous spread no rule matches.
		extend(landmark.IndexTip)
		extend(landmark.RingTip)
	}
	return h
}
