package core

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinPathLength  = 4
	EndpointX      = 1000.0
	EndpointRadius = 2.0
)

// PathParams control GeneratePath.
type PathParams struct {
	Length    int
	Spread    float32 // interior coordinates lie in [-Spread/2, Spread/2]
	RadiusMin float32
	RadiusMax float32
}

func DefaultPathParams() PathParams {
	return PathParams{
		Length:    14,
		Spread:    500,
		RadiusMin: 1,
		RadiusMax: 24,
	}
}

func (p PathParams) Validate() error {
	if p.Length < MinPathLength {
		return fmt.Errorf("%w: got %d", ErrPathTooShort, p.Length)
	}
	if !(p.Spread > 0) || !finite(p.Spread) {
		return fmt.Errorf("%w: got %v", ErrInvalidSpread, p.Spread)
	}
	if !finite(p.RadiusMin) || !finite(p.RadiusMax) || p.RadiusMin < 0 || p.RadiusMin > p.RadiusMax {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRadiusRange, p.RadiusMin, p.RadiusMax)
	}
	return nil
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// Path is an immutable list of control points with a radius per point.
// Its length is fixed at construction.
type Path struct {
	Points []mgl32.Vec3
	Radii  []float32
}

// NewPath copies points and radii into a new Path.
func NewPath(points []mgl32.Vec3, radii []float32) (*Path, error) {
	if len(points) != len(radii) {
		return nil, fmt.Errorf("%w: %d points, %d radii", ErrPathMismatch, len(points), len(radii))
	}
	if len(points) < MinPathLength {
		return nil, fmt.Errorf("%w: got %d", ErrPathTooShort, len(points))
	}
	p := &Path{
		Points: make([]mgl32.Vec3, len(points)),
		Radii:  make([]float32, len(radii)),
	}
	copy(p.Points, points)
	copy(p.Radii, radii)
	return p, nil
}

// GeneratePath pins the endpoints to (-1000,0,0) and (1000,0,0) with
// radius 2 and draws interior points and radii uniformly.
func GeneratePath(params PathParams, rng *rand.Rand) (*Path, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	n := params.Length
	points := make([]mgl32.Vec3, n)
	radii := make([]float32, n)

	points[0] = mgl32.Vec3{-EndpointX, 0, 0}
	radii[0] = EndpointRadius

	half := params.Spread / 2
	for i := 1; i < n-1; i++ {
		points[i] = mgl32.Vec3{
			randRange(rng, -half, half),
			randRange(rng, -half, half),
			randRange(rng, -half, half),
		}
		radii[i] = randRange(rng, params.RadiusMin, params.RadiusMax)
	}

	points[n-1] = mgl32.Vec3{EndpointX, 0, 0}
	radii[n-1] = EndpointRadius

	return &Path{Points: points, Radii: radii}, nil
}

func (p *Path) Len() int { return len(p.Points) }
