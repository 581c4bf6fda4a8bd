package manifold

import (
	"math"
	"testing"
)

func TestGoldenAnglePhaseSpacing(t *testing.T) {
	seen := make(map[int]Phasor)
	for k := 0; k < 10; k++ {
		p := GoldenAnglePhase(k)
		if p < 0 || p >= 2*math.Pi {
			t.Fatalf("GoldenAnglePhase(%d) = %f, want in [0, 2π)", k, p)
		}
		seen[k] = p
	}
	// Consecutive phases should never coincide (golden angle is irrational
	// relative to 2π, so no two of the first 10 land on the same point).
	for i := 0; i < 10; i++ {
		for j := i + 1; j < 10; j++ {
			if math.Abs(float64(seen[i])-float64(seen[j])) < 1e-9 {
				t.Fatalf("GoldenAnglePhase(%d) == GoldenAnglePhase(%d)", i, j)
			}
		}
	}
}

func TestCircularInterpEndpoints(t *testing.T) {
	theta1, theta2 := Phasor(0.2), Phasor(4.5)
	if got := CircularInterp(theta1, theta2, 0); math.Abs(float64(got)-float64(theta1)) > 1e-9 {
		t.Fatalf("CircularInterp(t=0) = %f, want %f", got, theta1)
	}
	if got := CircularInterp(theta1, theta2, 1); math.Abs(float64(got)-float64(theta2)) > 1e-9 {
		t.Fatalf("CircularInterp(t=1) = %f, want %f", got, theta2)
	}
}

func TestCircularInterpWrapsAround(t *testing.T) {
	// Two phases near the 0/2π boundary should interpolate the short way,
	// not swing through the far side of the circle.
	theta1 := Phasor(0.05)
	theta2 := Phasor(2*math.Pi - 0.05)
	mid := CircularInterp(theta1, theta2, 0.5)
	if math.Abs(float64(mid)) > 1e-6 && math.Abs(float64(mid)-2*math.Pi) > 1e-6 {
		t.Fatalf("CircularInterp midpoint = %f, want near 0", mid)
	}
}

func TestCircularMeanUniformIsUndefinedButSafe(t *testing.T) {
	phases := []Phasor{0, math.Pi}
	// Opposite phases with equal weight cancel; CircularMean must not panic
	// and must return some normalized value.
	got := CircularMean(phases, nil)
	if got < 0 || got >= 2*math.Pi {
		t.Fatalf("CircularMean = %f, want in [0, 2π)", got)
	}
}

func TestCircularMeanWeighted(t *testing.T) {
	phases := []Phasor{0, 0, math.Pi}
	weights := []float64{10, 10, 1}
	got := CircularMean(phases, weights)
	if math.Abs(float64(got)) > 0.3 {
		t.Fatalf("CircularMean weighted toward 0 = %f, want near 0", got)
	}
}

func TestInterferenceSymmetricAndBounded(t *testing.T) {
	a, b := Phasor(1.2), Phasor(3.4)
	if Interference(a, b) != Interference(b, a) {
		t.Fatalf("Interference not symmetric")
	}
	if v := Interference(a, a); math.Abs(v-1) > 1e-9 {
		t.Fatalf("Interference(a,a) = %f, want 1", v)
	}
	if v := Interference(a, b); v < -1 || v > 1 {
		t.Fatalf("Interference(a,b) = %f, want in [-1,1]", v)
	}
}
