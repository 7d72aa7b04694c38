package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePath_Endpoints(t *testing.T) {
	params := DefaultPathParams()
	p, err := GeneratePath(params, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	require.Equal(t, params.Length, p.Len())
	require.Len(t, p.Radii, params.Length)

	assert.Equal(t, mgl32.Vec3{-1000, 0, 0}, p.Points[0])
	assert.Equal(t, mgl32.Vec3{1000, 0, 0}, p.Points[p.Len()-1])
	assert.Equal(t, float32(2), p.Radii[0])
	assert.Equal(t, float32(2), p.Radii[p.Len()-1])

	half := params.Spread / 2
	for i := 1; i < p.Len()-1; i++ {
		for c := 0; c < 3; c++ {
			assert.GreaterOrEqual(t, p.Points[i][c], -half)
			assert.LessOrEqual(t, p.Points[i][c], half)
		}
		assert.GreaterOrEqual(t, p.Radii[i], params.RadiusMin)
		assert.LessOrEqual(t, p.Radii[i], params.RadiusMax)
	}
}

func TestPathParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PathParams)
		want   error
	}{
		{"too short", func(p *PathParams) { p.Length = 3 }, ErrPathTooShort},
		{"zero spread", func(p *PathParams) { p.Spread = 0 }, ErrInvalidSpread},
		{"inverted radius", func(p *PathParams) { p.RadiusMin, p.RadiusMax = 5, 1 }, ErrInvalidRadiusRange},
		{"infinite spread", func(p *PathParams) { p.Spread = float32(math.Inf(1)) }, ErrInvalidSpread},
		{"nan spread", func(p *PathParams) { p.Spread = float32(math.NaN()) }, ErrInvalidSpread},
		{"nan radius min", func(p *PathParams) { p.RadiusMin = float32(math.NaN()) }, ErrInvalidRadiusRange},
		{"nan radius max", func(p *PathParams) { p.RadiusMax = float32(math.NaN()) }, ErrInvalidRadiusRange},
		{"infinite radius max", func(p *PathParams) { p.RadiusMax = float32(math.Inf(1)) }, ErrInvalidRadiusRange},
		{"negative radius", func(p *PathParams) { p.RadiusMin = -1 }, ErrInvalidRadiusRange},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := DefaultPathParams()
			tc.mutate(&params)
			_, err := GeneratePath(params, rand.New(rand.NewSource(1)))
			assert.ErrorIs(t, err, tc.want)
		})
	}

	equal := DefaultPathParams()
	equal.RadiusMin, equal.RadiusMax = 4, 4
	p, err := GeneratePath(equal, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, float32(4), p.Radii[1])
}

func TestNewPath_CopiesAndValidates(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	radii := []float32{1, 1, 1, 1}

	p, err := NewPath(points, radii)
	require.NoError(t, err)
	points[0] = mgl32.Vec3{9, 9, 9}
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, p.Points[0])

	_, err = NewPath(points, radii[:3])
	assert.ErrorIs(t, err, ErrPathMismatch)

	_, err = NewPath(points[:3], radii[:3])
	assert.ErrorIs(t, err, ErrPathTooShort)
}

func TestPrefab_Octahedron(t *testing.T) {
	p := NewOctahedron(DefaultPrefabRadius)
	require.Equal(t, 24, p.VertexCount())
	require.Len(t, p.Normals, 24)

	for i, v := range p.Positions {
		assert.InDelta(t, DefaultPrefabRadius, v.Len(), 1e-5)
		// Flat normals point away from the centre.
		assert.Greater(t, v.Dot(p.Normals[i]), float32(0))
		assert.InDelta(t, 1, p.Normals[i].Len(), 1e-6)
	}
}
