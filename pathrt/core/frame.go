package core

import "github.com/go-gl/mathgl/mgl32"

// Frame is the evaluated geometry of one draw. Positions and Normals hold
// VertexCount entries per instance; Colors hold one entry per instance.
type Frame struct {
	Time        float32
	VertexCount int
	Positions   []mgl32.Vec3
	Normals     []mgl32.Vec3
	Colors      []mgl32.Vec3
}

func NewFrame(count, vertexCount int) Frame {
	return Frame{
		VertexCount: vertexCount,
		Positions:   make([]mgl32.Vec3, count*vertexCount),
		Normals:     make([]mgl32.Vec3, count*vertexCount),
		Colors:      make([]mgl32.Vec3, count),
	}
}

// Count is the number of instances in the frame.
func (f *Frame) Count() int { return len(f.Colors) }

// Vertex returns the output of vertex v of instance i.
func (f *Frame) Vertex(i, v int) (mgl32.Vec3, mgl32.Vec3) {
	k := i*f.VertexCount + v
	return f.Positions[k], f.Normals[k]
}

// Bounds returns the axis-aligned box around every position.
func (f *Frame) Bounds() (lo, hi mgl32.Vec3) {
	if len(f.Positions) == 0 {
		return lo, hi
	}
	lo, hi = f.Positions[0], f.Positions[0]
	for _, p := range f.Positions[1:] {
		for c := 0; c < 3; c++ {
			lo[c] = min(lo[c], p[c])
			hi[c] = max(hi[c], p[c])
		}
	}
	return lo, hi
}
