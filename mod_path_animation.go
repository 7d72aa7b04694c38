package pathflock

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gekko3d/pathflock/pathrt/core"
)

// PathAnimationModule builds the Simulation, uploads it to Backend and
// schedules the per-frame work: draw in Render, advance the clock in
// PostRender. Time therefore never changes while a frame is evaluated.
//
// Scene, when set, is used instead of generating a new one (e.g. a scene
// decoded with core.DecodeScene). Rand defaults to NewRand(Config).
type PathAnimationModule struct {
	Config  Config
	Backend Backend
	Scene   *core.Scene
	Rand    *rand.Rand
}

func (m PathAnimationModule) Install(app *App, cmd *Commands) {
	log := app.Logger()

	sim, err := m.build()
	if err != nil {
		panic(fmt.Sprintf("path animation: %v", err))
	}
	if m.Backend == nil {
		panic("path animation: no backend")
	}
	if err := sim.Upload(m.Backend); err != nil {
		panic(fmt.Sprintf("path animation: upload: %v", err))
	}

	log.Infof("simulation %s: %d instances, %d path points, duration %.1fs",
		sim.ID, sim.Count(), sim.Scene.Path.Len(), sim.Scene.Duration)

	if p, ok := Resource[Profiler](app); ok {
		p.SetCount("instances", sim.Count())
		p.SetCount("vertices", sim.Count()*sim.Prefab.VertexCount())
	}

	cmd.AddResources(sim, sim.Clock, &FrameRenderer{Backend: m.Backend})
	cmd.UseSystem(System(renderSystem).InStage(Render))
	cmd.UseSystem(System(clockSystem).InStage(PostRender))
}

func (m PathAnimationModule) build() (*Simulation, error) {
	if m.Scene != nil {
		return NewSimulationFromScene(m.Config, m.Scene)
	}
	rng := m.Rand
	if rng == nil {
		rng = NewRand(m.Config)
	}
	return NewSimulation(m.Config, rng)
}

func renderSystem(sim *Simulation, r *FrameRenderer) error {
	start := time.Now()
	if err := sim.SyncTime(r.Backend); err != nil {
		return fmt.Errorf("sync time: %w", err)
	}
	if err := r.Backend.Draw(); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	r.Frames++
	r.LastDraw = time.Since(start)
	return nil
}
