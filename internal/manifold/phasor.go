package manifold

import "math"

// Phasor is a scalar phase on [0, 2π), independent of an occurrence's
// quaternion position — it carries interference/coupling dynamics, not
// geometry.
type Phasor float64

// Normalize wraps θ into [0, 2π).
func (p Phasor) Normalize() Phasor {
	theta := math.Mod(float64(p), 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return Phasor(theta)
}

// GoldenAnglePhase returns (k · α_g) mod 2π, deterministic in the
// insertion index k. Successive k assign maximally-separated phases
// around the circle.
func GoldenAnglePhase(k int) Phasor {
	return Phasor(float64(k) * GoldenAngle).Normalize()
}

// CircularInterp interpolates from θ1 to θ2 at parameter t via the unit
// circle: both angles are mapped to 2D unit vectors, linearly blended,
// then mapped back with atan2. This avoids the wrap-around discontinuity
// a naive linear blend of raw angles would hit.
func CircularInterp(theta1, theta2 Phasor, t float64) Phasor {
	x1, y1 := math.Cos(float64(theta1)), math.Sin(float64(theta1))
	x2, y2 := math.Cos(float64(theta2)), math.Sin(float64(theta2))
	x := x1 + t*(x2-x1)
	y := y1 + t*(y2-y1)
	if x == 0 && y == 0 {
		// Antipodal phases with t=0.5 average to the origin; any phase on
		// the bisecting line is equally valid, so keep θ1 unchanged.
		return theta1.Normalize()
	}
	return Phasor(math.Atan2(y, x)).Normalize()
}

// CircularMean returns the mass-weighted circular mean phase of phases,
// via vector addition on the unit circle. Callers with an empty slice get
// back phase 0; the caller is expected to guard on len(phases) == 0 before
// relying on the result.
func CircularMean(phases []Phasor, weights []float64) Phasor {
	var x, y float64
	for i, theta := range phases {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		x += w * math.Cos(float64(theta))
		y += w * math.Sin(float64(theta))
	}
	if x == 0 && y == 0 {
		return 0
	}
	return Phasor(math.Atan2(y, x)).Normalize()
}

// Interference is cos(θ1 − θ2) ∈ [−1,1]: 1 when phases coincide
// (constructive), −1 when in antiphase (destructive).
func Interference(theta1, theta2 Phasor) float64 {
	return math.Cos(float64(theta1) - float64(theta2))
}
