package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Progress is mod(t+offset, duration)/duration with GLSL mod semantics,
// so negative times still land in [0,1).
func Progress(t, offset, duration float32) float32 {
	x := float64(t) + float64(offset)
	d := float64(duration)
	m := x - d*math.Floor(x/d)
	p := float32(m / d)
	if p >= 1 {
		p = 0
	}
	return p
}

// RotationAt scales the total rotation linearly with progress, so one path
// traversal performs the whole AxisAngle.W turn.
func RotationAt(axisAngle mgl32.Vec4, progress float32) mgl32.Quat {
	return mgl32.QuatRotate(axisAngle[3]*progress, axisAngle.Vec3())
}

// Pose is the per-instance part of the vertex transform. Every vertex of an
// instance shares it, so backends compute it once per instance per frame.
type Pose struct {
	Progress float32
	Rotation mgl32.Quat
	Center   mgl32.Vec3 // point on the path
	Radius   float32
	Local    mgl32.Vec3 // pivot * radius, added before rotation
}

// InstancePose evaluates where instance a sits on path at time t.
func InstancePose(t, duration float32, a Attributes, path *Path) Pose {
	progress := Progress(t, a.Offset, duration)
	center, radius := path.Sample(progress)
	return Pose{
		Progress: progress,
		Rotation: RotationAt(a.AxisAngle, progress),
		Center:   center,
		Radius:   radius,
		Local:    a.Pivot.Mul(radius),
	}
}

// Apply transforms one prefab vertex: offset by pivot*radius, rotate, then
// translate onto the path. The normal is only rotated.
func (p Pose) Apply(position, normal mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	pos := p.Rotation.Rotate(position.Add(p.Local)).Add(p.Center)
	nrm := p.Rotation.Rotate(normal)
	return pos, nrm
}

// TransformVertex is the complete per-vertex program. It is pure: the same
// inputs always produce the same outputs.
func TransformVertex(t, duration float32, a Attributes, path *Path, position, normal mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	return InstancePose(t, duration, a, path).Apply(position, normal)
}
