package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CatmullRom evaluates the uniform Catmull-Rom segment between p1 and p2
// at t in [0,1].
func CatmullRom(p0, p1, p2, p3 mgl32.Vec3, t float32) mgl32.Vec3 {
	t2 := t * t
	t3 := t2 * t

	a := p1.Mul(2)
	b := p2.Sub(p0).Mul(t)
	c := p0.Mul(2).Sub(p1.Mul(5)).Add(p2.Mul(4)).Sub(p3).Mul(t2)
	d := p1.Mul(3).Sub(p0).Sub(p2.Mul(3)).Add(p3).Mul(t3)

	return a.Add(b).Add(c).Add(d).Mul(0.5)
}

// Segment holds the four control point indices around a path position
// and the weight inside the [I1,I2] span.
type Segment struct {
	I0, I1, I2, I3 int
	Weight         float32
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

// Segment maps progress (0..1) onto the path. Neighbour indices are
// clamped at both ends, duplicating the endpoint tangents.
func (p *Path) Segment(progress float32) Segment {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	tMax := p.Len() - 1
	tPoint := float32(tMax) * progress
	tIndex := clampIndex(int(math.Floor(float64(tPoint))), tMax)

	return Segment{
		I0:     clampIndex(tIndex-1, tMax),
		I1:     tIndex,
		I2:     clampIndex(tIndex+1, tMax),
		I3:     clampIndex(tIndex+2, tMax),
		Weight: tPoint - float32(tIndex),
	}
}

// Sample returns the interpolated point and radius at progress.
func (p *Path) Sample(progress float32) (mgl32.Vec3, float32) {
	s := p.Segment(progress)
	point := CatmullRom(p.Points[s.I0], p.Points[s.I1], p.Points[s.I2], p.Points[s.I3], s.Weight)
	radius := lerp(p.Radii[s.I1], p.Radii[s.I2], s.Weight)
	return point, radius
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }
