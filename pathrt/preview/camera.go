package preview

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a Y-up perspective camera. FovY is in degrees.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	FovY     float32
	Near     float32
	Far      float32
}

// NewOrbitCamera places a camera distance units from the origin, rotated by
// yaw around Y and raised by pitch (both in radians), looking at the origin.
func NewOrbitCamera(distance, yaw, pitch float32) *Camera {
	return &Camera{
		Position: mgl32.Vec3{
			distance * float32(math.Cos(float64(pitch))*math.Sin(float64(yaw))),
			distance * float32(math.Sin(float64(pitch))),
			distance * float32(math.Cos(float64(pitch))*math.Cos(float64(yaw))),
		},
		FovY: 45,
		Near: 1,
		Far:  distance * 4,
	}
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, mgl32.Vec3{0, 1, 0})
}

func (c *Camera) ViewProjection(aspect float32) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
	return proj.Mul4(c.ViewMatrix())
}

// projector maps world positions to pixel x, pixel y and a depth where
// larger means closer. ok is false for points that cannot be drawn.
type projector func(p mgl32.Vec3) (mgl32.Vec3, bool)

func orthoProjector(extent, aspect float32, w, h int) projector {
	return func(p mgl32.Vec3) (mgl32.Vec3, bool) {
		x := (p.X()/(extent*aspect)*0.5 + 0.5) * float32(w)
		y := (0.5 - p.Y()/extent*0.5) * float32(h)
		return mgl32.Vec3{x, y, p.Z()}, true
	}
}

func (c *Camera) projector(w, h int) projector {
	vp := c.ViewProjection(float32(w) / float32(h))
	return func(p mgl32.Vec3) (mgl32.Vec3, bool) {
		clip := vp.Mul4x1(p.Vec4(1))
		if clip.W() < c.Near {
			return mgl32.Vec3{}, false
		}
		ndc := clip.Vec3().Mul(1 / clip.W())
		x := (ndc.X()*0.5 + 0.5) * float32(w)
		y := (0.5 - ndc.Y()*0.5) * float32(h)
		return mgl32.Vec3{x, y, -clip.W()}, true
	}
}
