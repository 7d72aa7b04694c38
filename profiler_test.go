package pathflock

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/pathflock/pathrt/cpu"
)

func TestProfiler_Scopes(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("a")
	time.Sleep(time.Millisecond)
	p.EndScope("a")
	p.BeginScope("b")
	p.EndScope("b")
	p.BeginScope("a")
	p.EndScope("a")
	p.EndScope("missing")

	assert.Equal(t, []string{"a", "b"}, p.Order)
	assert.NotContains(t, p.Scopes, "missing")
	assert.GreaterOrEqual(t, p.Total(), p.Scopes["a"])

	p.SetCount("z", 2)
	p.SetCount("y", 1)
	s := p.String()
	assert.Contains(t, s, "timings: a=")
	assert.Contains(t, s, "counts: y=1 z=2")
}

func TestProfilerModule_TimesStages(t *testing.T) {
	var out bytes.Buffer
	logger := NewWriterLogger("", true, &out, &out)

	app := NewAppBuilder().
		UseModule(ProfilerModule{LogEvery: 2}).
		UseModule(PathAnimationModule{Config: testConfig(), Backend: cpu.New(1)}).
		Build()
	app.addResources(logger)

	require.NoError(t, app.Run(3))

	p, ok := Resource[Profiler](app)
	require.True(t, ok)
	assert.Equal(t, []string{"PreUpdate", "Update", "Render", "PostRender"}, p.Order)
	assert.Equal(t, 32, p.Counts["instances"])
	assert.Equal(t, 32*24, p.Counts["vertices"])
	assert.Greater(t, p.Scopes[Render.Name], time.Duration(0))

	// Frames 0 and 2 are logged.
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("counts: instances=32")))
}

func TestProfiler_ClosesScopeOfFailingStage(t *testing.T) {
	boom := errors.New("boom")
	app := newApp()
	p := NewProfiler()
	app.addResources(p)
	app.UseSystem(System(func() error {
		time.Sleep(time.Millisecond)
		return boom
	}).InStage(Update))

	assert.ErrorIs(t, app.Run(1), boom)
	assert.Equal(t, []string{"PreUpdate", "Update"}, p.Order)
	assert.GreaterOrEqual(t, p.Scopes[Update.Name], time.Millisecond)
	assert.NotContains(t, p.Scopes, Render.Name)
}
