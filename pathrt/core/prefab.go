package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

const DefaultPrefabRadius = 3.0

// Prefab is the base geometry replicated for every instance, as an
// unindexed triangle list with one normal per vertex.
type Prefab struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
}

func (p Prefab) VertexCount() int { return len(p.Positions) }

// NewOctahedron builds a flat-shaded octahedron with the given radius.
func NewOctahedron(radius float32) Prefab {
	v := [6]mgl32.Vec3{
		{radius, 0, 0}, {-radius, 0, 0},
		{0, radius, 0}, {0, -radius, 0},
		{0, 0, radius}, {0, 0, -radius},
	}
	faces := [8][3]int{
		{0, 2, 4}, {0, 4, 3}, {0, 3, 5}, {0, 5, 2},
		{1, 2, 5}, {1, 5, 3}, {1, 3, 4}, {1, 4, 2},
	}

	p := Prefab{
		Positions: make([]mgl32.Vec3, 0, len(faces)*3),
		Normals:   make([]mgl32.Vec3, 0, len(faces)*3),
	}
	for _, f := range faces {
		a, b, c := v[f[0]], v[f[1]], v[f[2]]
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		p.Positions = append(p.Positions, a, b, c)
		p.Normals = append(p.Normals, n, n, n)
	}
	return p
}
