package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// EndpointArc converts SVG endpoint arc parameters into a segment. Radii are
// scaled up when too small to span the endpoints, and a zero radius yields a
// straight line, following the SVG implementation notes. Coincident
// endpoints draw nothing and yield nil.
func EndpointArc(from orb.Point, rx, ry, phi float64, largeArc, sweep bool, to orb.Point) Segment {
	rx, ry = math.Abs(rx), math.Abs(ry)
	if from == to {
		return nil
	}
	if rx == 0 || ry == 0 {
		return Line{To: to}
	}
	sinPhi, cosPhi := math.Sincos(phi)
	dx, dy := (from[0]-to[0])/2, (from[1]-to[1])/2
	x1 := cosPhi*dx + sinPhi*dy
	y1 := -sinPhi*dx + cosPhi*dy

	lambda := (x1*x1)/(rx*rx) + (y1*y1)/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	num := rx*rx*ry*ry - rx*rx*y1*y1 - ry*ry*x1*x1
	den := rx*rx*y1*y1 + ry*ry*x1*x1
	coef := 0.0
	if den > 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if largeArc == sweep {
		coef = -coef
	}
	cx1 := coef * rx * y1 / ry
	cy1 := -coef * ry * x1 / rx

	center := orb.Point{
		cosPhi*cx1 - sinPhi*cy1 + (from[0]+to[0])/2,
		sinPhi*cx1 + cosPhi*cy1 + (from[1]+to[1])/2,
	}

	theta1 := math.Atan2((y1-cy1)/ry, (x1-cx1)/rx)
	theta2 := math.Atan2((-y1-cy1)/ry, (-x1-cx1)/rx)
	delta := theta2 - theta1
	if sweep && delta < 0 {
		delta += 2 * math.Pi
	} else if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	}

	return Arc{
		Center: center,
		U:      orb.Point{rx * cosPhi, rx * sinPhi},
		V:      orb.Point{-ry * sinPhi, ry * cosPhi},
		Start:  theta1,
		Sweep:  delta,
	}
}

// EllipseArc returns the arc of an axis-aligned ellipse with radii wr and hr
// that starts at from. The start and sweep angles are visual angles measured
// from the positive x axis, as used by DrawingML arcTo.
func EllipseArc(from orb.Point, wr, hr, startAngle, sweepAngle float64) Segment {
	if wr == 0 || hr == 0 {
		end := orb.Point{
			from[0] - wr*math.Cos(startAngle) + wr*math.Cos(startAngle+sweepAngle),
			from[1] - hr*math.Sin(startAngle) + hr*math.Sin(startAngle+sweepAngle),
		}
		return Line{To: end}
	}
	t1 := visualToParametric(wr, hr, startAngle)
	t2 := visualToParametric(wr, hr, startAngle+sweepAngle)
	center := orb.Point{from[0] - wr*math.Cos(t1), from[1] - hr*math.Sin(t1)}
	return Arc{
		Center: center,
		U:      orb.Point{wr, 0},
		V:      orb.Point{0, hr},
		Start:  t1,
		Sweep:  t2 - t1,
	}
}

// visualToParametric is monotonic and stays within a quarter turn of angle,
// so differences of converted angles keep the sweep's direction and turns.
func visualToParametric(wr, hr, angle float64) float64 {
	s, c := math.Sincos(angle)
	t := math.Atan2(wr*s, hr*c)
	return t + 2*math.Pi*math.Round((angle-t)/(2*math.Pi))
}
