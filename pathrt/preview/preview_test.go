package preview

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/pathflock/pathrt/core"
)

func octahedronFrame(center mgl32.Vec3, c mgl32.Vec3) *core.Frame {
	prefab := core.NewOctahedron(3)
	f := core.NewFrame(1, prefab.VertexCount())
	for v := range prefab.Positions {
		f.Positions[v] = prefab.Positions[v].Add(center)
		f.Normals[v] = prefab.Normals[v]
	}
	f.Colors[0] = c
	return &f
}

func TestRender_DrawsInstanceAtCenter(t *testing.T) {
	opts := DefaultOptions()
	opts.Width, opts.Height = 64, 64
	opts.Extent = 4
	r, err := NewRenderer(opts)
	require.NoError(t, err)

	img := r.Render(octahedronFrame(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}), "")
	center := img.RGBAAt(32, 32)
	assert.Greater(t, center.R, uint8(0))
	assert.Equal(t, uint8(0), center.G)
	assert.Equal(t, opts.Background, img.RGBAAt(0, 0))
	assert.Equal(t, opts.Background, img.RGBAAt(63, 63))
}

func TestRender_DepthKeepsNearest(t *testing.T) {
	opts := DefaultOptions()
	opts.Width, opts.Height = 32, 32
	opts.Extent = 4
	r, err := NewRenderer(opts)
	require.NoError(t, err)

	far := octahedronFrame(mgl32.Vec3{0, 0, -10}, mgl32.Vec3{0, 0, 1})
	near := octahedronFrame(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 1, 0})
	f := core.NewFrame(2, far.VertexCount)
	copy(f.Positions, append(far.Positions, near.Positions...))
	copy(f.Normals, append(far.Normals, near.Normals...))
	f.Colors[0], f.Colors[1] = far.Colors[0], near.Colors[0]

	px := r.Render(&f, "").RGBAAt(16, 16)
	assert.Greater(t, px.G, uint8(0))
	assert.Equal(t, uint8(0), px.B)
}

func TestRender_Label(t *testing.T) {
	opts := DefaultOptions()
	opts.Width, opts.Height = 120, 40
	opts.Extent = 1000
	r, err := NewRenderer(opts)
	require.NoError(t, err)

	frame := octahedronFrame(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	plain := r.Render(frame, "")
	labeled := r.Render(frame, "t=1.00")

	changed := false
	for y := 0; y < 20 && !changed; y++ {
		for x := 0; x < 60; x++ {
			if plain.RGBAAt(x, y) != labeled.RGBAAt(x, y) {
				changed = true
				break
			}
		}
	}
	assert.True(t, changed)
}

func TestExtentFitsFrame(t *testing.T) {
	f := octahedronFrame(mgl32.Vec3{100, -20, 0}, mgl32.Vec3{1, 1, 1})
	e := Extent(f, 2)
	assert.GreaterOrEqual(t, e, float32(23))
	assert.GreaterOrEqual(t, e*2, float32(103))

	empty := core.NewFrame(0, 0)
	assert.Equal(t, float32(1), Extent(&empty, 1))
}

func TestWritePNG(t *testing.T) {
	opts := DefaultOptions()
	opts.Width, opts.Height = 16, 8
	r, err := NewRenderer(opts)
	require.NoError(t, err)
	img := r.Render(octahedronFrame(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}), "")

	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, WritePNG(path, img))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	decoded, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
	assert.Equal(t, color.RGBAModel.Convert(img.At(0, 0)), color.RGBAModel.Convert(decoded.At(0, 0)))
}

func TestNewRenderer_Invalid(t *testing.T) {
	_, err := NewRenderer(Options{})
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.FontPath = filepath.Join(t.TempDir(), "missing.ttf")
	_, err = NewRenderer(opts)
	assert.Error(t, err)
}

func TestOrbitCamera(t *testing.T) {
	c := NewOrbitCamera(100, 0, 0)
	assert.InDelta(t, 100, c.Position.Z(), 1e-4)
	assert.InDelta(t, -1, c.Forward().Z(), 1e-6)

	project := c.projector(64, 64)
	center, ok := project(mgl32.Vec3{})
	require.True(t, ok)
	assert.InDelta(t, 32, center.X(), 1e-3)
	assert.InDelta(t, 32, center.Y(), 1e-3)

	near, _ := project(mgl32.Vec3{0, 0, 10})
	assert.Greater(t, near.Z(), center.Z(), "closer points have larger depth")

	right, _ := project(mgl32.Vec3{10, 10, 0})
	assert.Greater(t, right.X(), center.X())
	assert.Less(t, right.Y(), center.Y())

	_, ok = project(mgl32.Vec3{0, 0, 200})
	assert.False(t, ok, "points behind the camera are dropped")
}

func TestRender_PerspectiveCamera(t *testing.T) {
	opts := DefaultOptions()
	opts.Width, opts.Height = 64, 64
	opts.Camera = NewOrbitCamera(20, 0, 0)
	r, err := NewRenderer(opts)
	require.NoError(t, err)

	img := r.Render(octahedronFrame(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}), "")
	assert.Greater(t, img.RGBAAt(32, 32).B, uint8(0))
	assert.Equal(t, opts.Background, img.RGBAAt(0, 0))

	behind := r.Render(octahedronFrame(mgl32.Vec3{0, 0, 40}, mgl32.Vec3{0, 0, 1}), "")
	assert.Equal(t, opts.Background, behind.RGBAAt(32, 32))
}
