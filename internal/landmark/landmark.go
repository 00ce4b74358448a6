// Package landmark defines the normalized 2-D landmark geometry produced by
// the perception boundary. Coordinates are in [0, 1] with y growing downward,
// matching the conventions of face-mesh and hand-skeleton trackers.
package landmark

import "math"

// Point is a normalized 2-D landmark coordinate.
type Point struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// EyeGeometry carries the landmarks the eye machines consume: the iris
// cluster and the six-point eye rim used for the aspect ratio.
type EyeGeometry struct {
	Iris [5]Point
	Rim  [6]Point
}

// IrisX returns the mean x coordinate of the iris cluster.
func (g EyeGeometry) IrisX() float64 {
	var sum float64
	for _, p := range g.Iris {
		sum += p.X
	}
	return sum / float64(len(g.Iris))
}

// RimSpanX returns the minimum and maximum x coordinates of the eye rim.
func (g EyeGeometry) RimSpanX() (min, max float64) {
	min, max = g.Rim[0].X, g.Rim[0].X
	for _, p := range g.Rim[1:] {
		if p.X < min {
			min = p.X
		}
		if p.X > max {
			max = p.X
		}
	}
	return min, max
}

// Face is one detection tick's worth of eye geometry for both eyes.
type Face struct {
	Left  EyeGeometry
	Right EyeGeometry
}

// Hand skeleton indices, one per joint of a 21-point hand.
const (
	Wrist = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip

	HandPoints = 21
)

// Hand is one detection tick's worth of hand skeleton landmarks.
type Hand struct {
	Points [HandPoints]Point
}
