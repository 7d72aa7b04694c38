package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Shader-visible names shared by every backend.
const (
	UniformTime     = "uTime"
	UniformDuration = "uDuration"
	UniformPath     = "uPath"
	UniformRadius   = "uRadius"

	AttrOffset    = "aOffset"
	AttrPivot     = "aPivot"
	AttrAxisAngle = "aAxisAngle"
	AttrColor     = "color"
)

type UniformKind int

const (
	UniformFloat UniformKind = iota
	UniformFloatArray
	UniformVec3Array
)

func (k UniformKind) String() string {
	switch k {
	case UniformFloat:
		return "float"
	case UniformFloatArray:
		return "float[]"
	case UniformVec3Array:
		return "vec3[]"
	}
	return fmt.Sprintf("UniformKind(%d)", int(k))
}

// Uniform is a value shared by all instances. Vec3 arrays are stored
// tightly packed, three floats per element.
type Uniform struct {
	Kind UniformKind
	Data []float32
}

func FloatUniform(v float32) Uniform {
	return Uniform{Kind: UniformFloat, Data: []float32{v}}
}

func FloatArrayUniform(v []float32) Uniform {
	d := make([]float32, len(v))
	copy(d, v)
	return Uniform{Kind: UniformFloatArray, Data: d}
}

func Vec3ArrayUniform(v []mgl32.Vec3) Uniform {
	d := make([]float32, 0, len(v)*3)
	for _, p := range v {
		d = append(d, p[0], p[1], p[2])
	}
	return Uniform{Kind: UniformVec3Array, Data: d}
}

// Float returns the scalar value; zero for non-scalar uniforms.
func (u Uniform) Float() float32 {
	if u.Kind != UniformFloat || len(u.Data) == 0 {
		return 0
	}
	return u.Data[0]
}

// Vec3s unpacks a vec3 array uniform.
func (u Uniform) Vec3s() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(u.Data)/3)
	for i := range out {
		out[i] = mgl32.Vec3{u.Data[i*3], u.Data[i*3+1], u.Data[i*3+2]}
	}
	return out
}

// InstanceAttribute is one per-instance stream with ItemSize floats per instance.
type InstanceAttribute struct {
	ItemSize int
	Data     []float32
}

// Count is the number of instances covered by the stream.
func (a InstanceAttribute) Count() int {
	if a.ItemSize <= 0 {
		return 0
	}
	return len(a.Data) / a.ItemSize
}

// PathUniforms returns the uPath/uRadius uniforms for p.
func PathUniforms(p *Path) map[string]Uniform {
	return map[string]Uniform{
		UniformPath:   Vec3ArrayUniform(p.Points),
		UniformRadius: FloatArrayUniform(p.Radii),
	}
}

var (
	ErrUnknownUniform   = errors.New("unknown uniform")
	ErrUnknownAttribute = errors.New("unknown instance attribute")
	ErrWrongKind        = errors.New("uniform has wrong kind")
	ErrWrongItemSize    = errors.New("attribute has wrong item size")
)

// UniformKinds lists every uniform the vertex program reads.
var UniformKinds = map[string]UniformKind{
	UniformTime:     UniformFloat,
	UniformDuration: UniformFloat,
	UniformPath:     UniformVec3Array,
	UniformRadius:   UniformFloatArray,
}

// AttributeSizes lists every instance stream and its floats per instance.
var AttributeSizes = map[string]int{
	AttrOffset:    1,
	AttrPivot:     3,
	AttrAxisAngle: 4,
	AttrColor:     3,
}

// CheckUniform reports whether u may be bound as name.
func CheckUniform(name string, u Uniform) error {
	kind, ok := UniformKinds[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUniform, name)
	}
	if u.Kind != kind {
		return fmt.Errorf("%w: %s is %s, want %s", ErrWrongKind, name, u.Kind, kind)
	}
	return nil
}

// CheckAttribute reports whether attr may be bound as name.
func CheckAttribute(name string, attr InstanceAttribute) error {
	size, ok := AttributeSizes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	if attr.ItemSize != size {
		return fmt.Errorf("%w: %s has %d, want %d", ErrWrongItemSize, name, attr.ItemSize, size)
	}
	return nil
}
