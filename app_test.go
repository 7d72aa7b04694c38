package pathflock

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name     string
	released *[]string
}
type MockResource2 struct {
	name     string
	released *[]string
}

func (r *MockResource1) Release() { *r.released = append(*r.released, r.name) }
func (r *MockResource2) Release() { *r.released = append(*r.released, r.name) }

type counter struct {
	calls []string
}

func TestApp_addResources(t *testing.T) {
	app := newApp()

	resource1 := &MockResource1{name: "Resource1"}
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Expect panic when trying to add the same type of resource again
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := &MockResource2{name: "Resource2"}
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	assert.Panics(t, func() { app.addResources(MockResource1{}) }, "non-pointer resources are rejected")

	got, ok := Resource[MockResource2](app)
	require.True(t, ok)
	assert.Same(t, resource2, got)
	_, ok = Resource[counter](app)
	assert.False(t, ok)
}

func TestApp_StageOrder(t *testing.T) {
	app := newApp()
	c := &counter{}
	app.addResources(c)

	custom := Stage{Name: "Custom"}
	app.UseStage(custom, AfterStage(Render))
	app.UseSystem(System(func(c *counter) { c.calls = append(c.calls, "post") }).InStage(PostRender))
	app.UseSystem(System(func(c *counter) { c.calls = append(c.calls, "custom") }).InStage(custom))
	app.UseSystem(System(func(c *counter) { c.calls = append(c.calls, "render") }).InStage(Render))
	app.UseSystem(System(func(c *counter) { c.calls = append(c.calls, "update") }))
	app.UseSystem(System(func(c *counter) { c.calls = append(c.calls, "pre") }).InStage(PreUpdate))

	app.Step()
	assert.Equal(t, []string{"pre", "update", "render", "custom", "post"}, c.calls)
	assert.Equal(t, uint64(1), app.Frame())

	assert.Panics(t, func() { app.UseStage(custom, BeforeStage(Update)) })
	assert.Panics(t, func() { app.UseStage(Stage{Name: "X"}, AfterStage(Stage{Name: "Missing"})) })
	assert.Panics(t, func() { app.UseSystem(System(func(c *counter) {}).InStage(Stage{Name: "Missing"})) })
}

func TestApp_ValidateSystem(t *testing.T) {
	app := newApp()
	assert.Panics(t, func() { app.UseSystem(System(42)) })
	assert.Panics(t, func() { app.UseSystem(System(func(c counter) {})) })
	assert.Panics(t, func() { app.UseSystem(System(func() int { return 0 })) })
	assert.NotPanics(t, func() { app.UseSystem(System(func(cmd *Commands) error { return nil })) })
}

func TestApp_RunStopsOnErrorAndStop(t *testing.T) {
	boom := errors.New("boom")

	app := newApp()
	c := &counter{}
	app.addResources(c)
	app.UseSystem(System(func(c *counter) error {
		c.calls = append(c.calls, "tick")
		if len(c.calls) == 3 {
			return boom
		}
		return nil
	}))
	err := app.Run(10)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, c.calls, 3)
	assert.Equal(t, uint64(2), app.Frame())

	app = newApp()
	c = &counter{}
	app.addResources(c)
	app.UseSystem(System(func(c *counter, cmd *Commands) {
		c.calls = append(c.calls, "tick")
		if len(c.calls) == 4 {
			cmd.Stop()
		}
	}))
	require.NoError(t, app.Run(0))
	assert.Len(t, c.calls, 4)
	assert.Equal(t, uint64(4), app.Frame())
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := newApp()
	app.UseSystem(System(func(c *counter) {}))
	assert.Panics(t, func() { app.Step() })
}

func TestApp_ShutdownReleasesNewestFirst(t *testing.T) {
	var released []string
	app := newApp()
	app.addResources(
		&MockResource1{name: "first", released: &released},
		&counter{},
		&MockResource2{name: "second", released: &released},
	)
	app.Shutdown()
	assert.Equal(t, []string{"second", "first"}, released)
}
