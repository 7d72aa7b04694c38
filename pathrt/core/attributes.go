package core

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Ranges the per-instance draws are taken from.
const (
	PivotMax = 2.0

	AngleTurnsMin = 24
	AngleTurnsMax = 32

	SaturationMin = 0.5
	SaturationMax = 0.75
	LightnessMin  = 0.25
	LightnessMax  = 0.5

	axisEpsilon = 1e-6
	axisRetries = 8
)

// Attributes are the static per-instance inputs of the path animation.
// Layout mirrors the aOffset/aPivot/aAxisAngle/color instance streams.
type Attributes struct {
	Offset    float32
	Pivot     mgl32.Vec3
	AxisAngle mgl32.Vec4 // xyz unit axis, w total rotation over one traversal
	Color     mgl32.Vec3 // linear RGB 0..1
}

// Axis returns the rotation axis.
func (a Attributes) Axis() mgl32.Vec3 { return a.AxisAngle.Vec3() }

func randRange(rng *rand.Rand, min, max float32) float32 {
	return min + (max-min)*rng.Float32()
}

// randomAxis draws each component from [-1,1] and normalizes. Near-zero
// draws are resampled; after axisRetries misses it falls back to +X.
func randomAxis(rng *rand.Rand) mgl32.Vec3 {
	for i := 0; i < axisRetries; i++ {
		v := mgl32.Vec3{
			randRange(rng, -1, 1),
			randRange(rng, -1, 1),
			randRange(rng, -1, 1),
		}
		if v.Len() > axisEpsilon {
			return v.Normalize()
		}
	}
	return mgl32.Vec3{1, 0, 0}
}

// GenerateAttributes builds the attributes of instance index out of count.
// It holds no state between calls; all randomness comes from rng.
func GenerateAttributes(index, count int, duration float32, rng *rand.Rand) (Attributes, error) {
	if count <= 0 {
		return Attributes{}, fmt.Errorf("%w: %d", ErrInvalidParticleCount, count)
	}
	if !(duration > 0) {
		return Attributes{}, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}
	if index < 0 || index >= count {
		return Attributes{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, count)
	}

	var a Attributes
	a.Offset = float32(float64(index) / float64(count) * float64(duration))

	a.Pivot = mgl32.Vec3{
		randRange(rng, 0, PivotMax),
		randRange(rng, 0, PivotMax),
		randRange(rng, 0, PivotMax),
	}

	axis := randomAxis(rng)
	turns := AngleTurnsMin + rng.Intn(AngleTurnsMax-AngleTurnsMin+1)
	a.AxisAngle = axis.Vec4(float32(math.Pi * float64(turns)))

	hue := HueFor(index, count)
	sat := float64(randRange(rng, SaturationMin, SaturationMax))
	light := float64(randRange(rng, LightnessMin, LightnessMax))
	a.Color = HSLToRGB(hue, sat, light)

	return a, nil
}

// HueFor spreads hues evenly over all instances, in turns (0..1).
func HueFor(index, count int) float64 {
	return float64(index) / float64(count)
}

// AttributeBuffers stores attributes for every instance in flat
// per-stream arrays, ready for upload as instance attributes.
type AttributeBuffers struct {
	Count     int
	Offset    []float32 // 1 per instance
	Pivot     []float32 // 3 per instance
	AxisAngle []float32 // 4 per instance
	Color     []float32 // 3 per instance
}

func NewAttributeBuffers(count int) *AttributeBuffers {
	return &AttributeBuffers{
		Count:     count,
		Offset:    make([]float32, count),
		Pivot:     make([]float32, count*3),
		AxisAngle: make([]float32, count*4),
		Color:     make([]float32, count*3),
	}
}

// GenerateAttributeBuffers runs GenerateAttributes for every index in order.
func GenerateAttributeBuffers(count int, duration float32, rng *rand.Rand) (*AttributeBuffers, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidParticleCount, count)
	}
	b := NewAttributeBuffers(count)
	for i := 0; i < count; i++ {
		a, err := GenerateAttributes(i, count, duration, rng)
		if err != nil {
			return nil, err
		}
		b.Set(i, a)
	}
	return b, nil
}

func (b *AttributeBuffers) Set(i int, a Attributes) {
	b.Offset[i] = a.Offset
	copy(b.Pivot[i*3:i*3+3], a.Pivot[:])
	copy(b.AxisAngle[i*4:i*4+4], a.AxisAngle[:])
	copy(b.Color[i*3:i*3+3], a.Color[:])
}

func (b *AttributeBuffers) At(i int) Attributes {
	var a Attributes
	a.Offset = b.Offset[i]
	copy(a.Pivot[:], b.Pivot[i*3:i*3+3])
	copy(a.AxisAngle[:], b.AxisAngle[i*4:i*4+4])
	copy(a.Color[:], b.Color[i*3:i*3+3])
	return a
}

// InstanceAttributes returns the buffers keyed by their instance stream name.
func (b *AttributeBuffers) InstanceAttributes() map[string]InstanceAttribute {
	return map[string]InstanceAttribute{
		AttrOffset:    {ItemSize: 1, Data: b.Offset},
		AttrPivot:     {ItemSize: 3, Data: b.Pivot},
		AttrAxisAngle: {ItemSize: 4, Data: b.AxisAngle},
		AttrColor:     {ItemSize: 3, Data: b.Color},
	}
}
