package pathflock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/pathflock/pathrt/core"
	"github.com/gekko3d/pathflock/pathrt/cpu"
)

// recordingBackend records the time seen by each Draw.
type recordingBackend struct {
	*cpu.Backend
	drawTimes []float32
	time      float32
	released  bool
}

func (b *recordingBackend) SetUniform(name string, u core.Uniform) error {
	if name == core.UniformTime {
		b.time = u.Float()
	}
	return b.Backend.SetUniform(name, u)
}

func (b *recordingBackend) Draw() error {
	b.drawTimes = append(b.drawTimes, b.time)
	return b.Backend.Draw()
}

func (b *recordingBackend) Release() {
	b.released = true
	b.Backend.Release()
}

func TestPathAnimationModule_RunsFrames(t *testing.T) {
	cfg := testConfig()
	cfg.TimeStep = 0.5
	backend := &recordingBackend{Backend: cpu.New(2)}

	app := NewAppBuilder().
		UseModule(LoggingModule{Prefix: "test"}).
		UseModule(PathAnimationModule{Config: cfg, Backend: backend}).
		Build()

	require.NoError(t, app.Run(4))

	assert.Equal(t, []float32{0, 0.5, 1, 1.5}, backend.drawTimes)
	sim, ok := Resource[Simulation](app)
	require.True(t, ok)
	assert.Equal(t, float32(2), sim.Clock.Time, "clock advances after the last draw")

	r, ok := Resource[FrameRenderer](app)
	require.True(t, ok)
	assert.Equal(t, uint64(4), r.Frames)

	frame := backend.Frame()
	assert.Equal(t, float32(1.5), frame.Time)
	require.Equal(t, sim.Count(), frame.Count())

	// The last frame was drawn at 1.5, one step behind the clock.
	sim.Clock.Time = 1.5
	want, _ := sim.EvaluateVertex(5, 2)
	got, _ := frame.Vertex(5, 2)
	assert.Equal(t, want, got)

	app.Shutdown()
	assert.True(t, backend.released)
}

func TestPathAnimationModule_UsesGivenScene(t *testing.T) {
	cfg := testConfig()
	sim, err := NewSimulation(cfg, NewRand(cfg))
	require.NoError(t, err)

	app := NewAppBuilder().
		UseModule(PathAnimationModule{Config: DefaultConfig(), Backend: cpu.New(1), Scene: sim.Scene}).
		Build()
	got, ok := Resource[Simulation](app)
	require.True(t, ok)
	assert.Same(t, sim.Scene, got.Scene)
	assert.Equal(t, 32, got.Count())
}

func TestPathAnimationModule_PanicsOnBadSetup(t *testing.T) {
	bad := testConfig()
	bad.Duration = 0
	assert.Panics(t, func() {
		NewAppBuilder().UseModule(PathAnimationModule{Config: bad, Backend: cpu.New(1)}).Build()
	})
	assert.Panics(t, func() {
		NewAppBuilder().UseModule(PathAnimationModule{Config: testConfig()}).Build()
	})
}

func TestPathAnimationModule_DrawErrorStopsRun(t *testing.T) {
	backend := cpu.New(1)
	app := NewAppBuilder().
		UseModule(PathAnimationModule{Config: testConfig(), Backend: backend}).
		Build()

	// Dropping the inputs makes the next draw fail.
	backend.Release()
	err := app.Run(3)
	assert.ErrorIs(t, err, cpu.ErrNotReady)
	assert.Equal(t, uint64(0), app.Frame())
}
