package landmark

import (
	"math"
	"testing"
)

func TestDist(t *testing.T) {
	cases := []struct {
		a, b Point
		want float64
	}{
		{Point{0, 0}, Point{3, 4}, 5},
		{Point{1, 1}, Point{1, 1}, 0},
		{Point{0.1, 0.2}, Point{0.1, 0.5}, 0.3},
	}
	for _, tc := range cases {
		if got := Dist(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Dist(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestEyeGeometry_IrisX(t *testing.T) {
	var g EyeGeometry
	for i := range g.Iris {
		g.Iris[i] = Point{X: 0.4 + float64(i)*0.01}
	}
	want := (0.4 + 0.41 + 0.42 + 0.43 + 0.44) / 5
	if got := g.IrisX(); math.Abs(got-want) > 1e-9 {
		t.Errorf("IrisX = %v, want %v", got, want)
	}
}

func TestEyeGeometry_RimSpanX(t *testing.T) {
	var g EyeGeometry
	xs := []float64{0.44, 0.40, 0.46, 0.48, 0.45, 0.42}
	for i, x := range xs {
		g.Rim[i] = Point{X: x}
	}
	min, max := g.RimSpanX()
	if min != 0.40 || max != 0.48 {
		t.Errorf("RimSpanX = %v, %v, want 0.40, 0.48", min, max)
	}
}

func TestHandIndices(t *testing.T) {
	if Wrist != 0 || ThumbTip != 4 || IndexTip != 8 || MiddleTip != 12 || RingTip != 16 || PinkyTip != 20 {
		t.Error("hand joint indices do not match the 21-point skeleton layout")
	}
	if HandPoints != 21 {
		t.Errorf("HandPoints = %d", HandPoints)
	}
}
