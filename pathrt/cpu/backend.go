package cpu

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/gekko3d/pathflock/pathrt/core"
)

var (
	ErrCountMismatch = errors.New("attribute count does not match instance count")
	ErrNotReady      = errors.New("backend inputs incomplete")
	ErrNonFinite     = errors.New("non-finite vertex output")
)

// instancesPerTask bounds the work handed to one goroutine.
const instancesPerTask = 1024

// Backend evaluates the vertex program on the CPU, spreading instances
// over Workers goroutines.
type Backend struct {
	Workers int

	prefab   core.Prefab
	count    int
	uniforms map[string]core.Uniform
	attrs    map[string]core.InstanceAttribute

	path      *core.Path
	pathDirty bool

	frame core.Frame
}

func New(workers int) *Backend {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Backend{
		Workers:  workers,
		uniforms: make(map[string]core.Uniform),
		attrs:    make(map[string]core.InstanceAttribute),
	}
}

func (b *Backend) SetPrefab(prefab core.Prefab, count int) error {
	if count <= 0 {
		return fmt.Errorf("%w: %d", core.ErrInvalidParticleCount, count)
	}
	if len(prefab.Positions) != len(prefab.Normals) {
		return fmt.Errorf("prefab has %d positions but %d normals", len(prefab.Positions), len(prefab.Normals))
	}
	b.prefab = prefab
	b.count = count
	b.frame = core.NewFrame(count, prefab.VertexCount())
	return nil
}

func (b *Backend) SetUniform(name string, u core.Uniform) error {
	if err := core.CheckUniform(name, u); err != nil {
		return err
	}
	b.uniforms[name] = u
	if name == core.UniformPath || name == core.UniformRadius {
		b.pathDirty = true
	}
	return nil
}

func (b *Backend) SetInstanceAttribute(name string, attr core.InstanceAttribute) error {
	if err := core.CheckAttribute(name, attr); err != nil {
		return err
	}
	if b.count > 0 && attr.Count() != b.count {
		return fmt.Errorf("%w: %s has %d, want %d", ErrCountMismatch, name, attr.Count(), b.count)
	}
	b.attrs[name] = attr
	return nil
}

func (b *Backend) ready() error {
	if b.count == 0 {
		return fmt.Errorf("%w: no prefab", ErrNotReady)
	}
	for name := range core.UniformKinds {
		if _, ok := b.uniforms[name]; !ok {
			return fmt.Errorf("%w: uniform %s not set", ErrNotReady, name)
		}
	}
	for name := range core.AttributeSizes {
		attr, ok := b.attrs[name]
		if !ok {
			return fmt.Errorf("%w: attribute %s not set", ErrNotReady, name)
		}
		if attr.Count() != b.count {
			return fmt.Errorf("%w: %s has %d, want %d", ErrCountMismatch, name, attr.Count(), b.count)
		}
	}
	if b.pathDirty || b.path == nil {
		path, err := core.NewPath(b.uniforms[core.UniformPath].Vec3s(), b.uniforms[core.UniformRadius].Data)
		if err != nil {
			return err
		}
		b.path = path
		b.pathDirty = false
	}
	return nil
}

func (b *Backend) attributesAt(i int) core.Attributes {
	var a core.Attributes
	a.Offset = b.attrs[core.AttrOffset].Data[i]
	copy(a.Pivot[:], b.attrs[core.AttrPivot].Data[i*3:i*3+3])
	copy(a.AxisAngle[:], b.attrs[core.AttrAxisAngle].Data[i*4:i*4+4])
	copy(a.Color[:], b.attrs[core.AttrColor].Data[i*3:i*3+3])
	return a
}

// Draw evaluates every vertex of every instance for the current uTime.
func (b *Backend) Draw() error {
	if err := b.ready(); err != nil {
		return err
	}
	t := b.uniforms[core.UniformTime].Float()
	duration := b.uniforms[core.UniformDuration].Float()
	vc := b.prefab.VertexCount()

	var g errgroup.Group
	g.SetLimit(b.Workers)
	for start := 0; start < b.count; start += instancesPerTask {
		end := min(start+instancesPerTask, b.count)
		g.Go(func() error {
			for i := start; i < end; i++ {
				a := b.attributesAt(i)
				pose := core.InstancePose(t, duration, a, b.path)
				b.frame.Colors[i] = a.Color
				for v := 0; v < vc; v++ {
					pos, nrm := pose.Apply(b.prefab.Positions[v], b.prefab.Normals[v])
					if !finite(pos) {
						return fmt.Errorf("%w: instance %d vertex %d", ErrNonFinite, i, v)
					}
					b.frame.Positions[i*vc+v] = pos
					b.frame.Normals[i*vc+v] = nrm
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	b.frame.Time = t
	return nil
}

func finite(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Frame returns the output of the last Draw. It is overwritten by the next one.
func (b *Backend) Frame() *core.Frame {
	return &b.frame
}

func (b *Backend) Release() {
	b.frame = core.Frame{}
	b.attrs = make(map[string]core.InstanceAttribute)
	b.uniforms = make(map[string]core.Uniform)
	b.path = nil
	b.count = 0
}
