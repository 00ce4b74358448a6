package eye

import "github.com/attunehid/attune/internal/landmark"

// SynthFace builds a face whose iris ratio and eye openness land at the
// given values once run through Ratio and EAR. ratio 0 is hard left,
// 1 hard right; openness 1 is wide open, 0 fully closed. Both eyes get
// the same geometry. Used by simulation sources and tests.
func SynthFace(ratio, openness float64) landmark.Face {
	eyeGeom := func() landmark.EyeGeometry {
		var g landmark.EyeGeometry
		// Rim spans x in [0.40, 0.48]; vertical gap scales with openness.
		gap := openness * 0.04
		g.Rim = [6]landmark.Point{
			{X: 0.40, Y: 0.50},
			{X: 0.43, Y: 0.50 - gap/2},
			{X: 0.46, Y: 0.50 - gap/2},
			{X: 0.48, Y: 0.50},
			{X: 0.46, Y: 0.50 + gap/2},
			{X: 0.43, Y: 0.50 + gap/2},
		}
		irisX := 0.40 + ratio*0.08
		for i := range g.Iris {
			g.Iris[i] = landmark.Point{X: irisX, Y: 0.50}
		}
		return g
	}
	return landmark.Face{Left: eyeGeom(), Right: eyeGeom()}
}
