package pathflock

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/pathflock/pathrt/core"
)

// Simulation owns all state of one animated particle set. It is built once,
// advanced once per frame and released at shutdown; nothing lives in
// package-level variables.
type Simulation struct {
	ID     uuid.UUID
	Config Config
	Scene  *core.Scene
	Prefab core.Prefab
	Clock  *Clock
}

// NewRand returns the generator for cfg.Seed, seeding from the wall clock
// when Seed is zero.
func NewRand(cfg Config) *rand.Rand {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// NewSimulation validates cfg, then generates the attributes first and the
// path second from rng.
func NewSimulation(cfg Config, rng *rand.Rand) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	attrs, err := core.GenerateAttributeBuffers(cfg.ParticleCount, cfg.Duration, rng)
	if err != nil {
		return nil, fmt.Errorf("generate attributes: %w", err)
	}
	path, err := core.GeneratePath(cfg.PathParams(), rng)
	if err != nil {
		return nil, fmt.Errorf("generate path: %w", err)
	}
	return NewSimulationFromScene(cfg, &core.Scene{
		Duration:   cfg.Duration,
		Attributes: attrs,
		Path:       path,
	})
}

// NewSimulationFromScene wraps a previously generated (or decoded) scene.
// Scene values win over cfg for count, duration and path length.
func NewSimulationFromScene(cfg Config, scene *core.Scene) (*Simulation, error) {
	if scene == nil || scene.Attributes == nil || scene.Path == nil {
		return nil, fmt.Errorf("%w: incomplete scene", ErrInvalidConfig)
	}
	cfg.ParticleCount = scene.Attributes.Count
	cfg.Duration = scene.Duration
	cfg.PathLength = scene.Path.Len()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulation{
		ID:     uuid.New(),
		Config: cfg,
		Scene:  scene,
		Prefab: core.NewOctahedron(cfg.PrefabRadius),
		Clock:  NewClock(cfg.TimeStep, cfg.Duration),
	}, nil
}

func (s *Simulation) Count() int { return s.Scene.Attributes.Count }

// Advance moves global time forward one step.
func (s *Simulation) Advance() {
	s.Clock.Tick()
}

// Pose evaluates instance i at the current time.
func (s *Simulation) Pose(i int) core.Pose {
	return core.InstancePose(s.Clock.Time, s.Scene.Duration, s.Scene.Attributes.At(i), s.Scene.Path)
}

// EvaluateVertex returns the world position and normal of prefab vertex v
// of instance i at the current time.
func (s *Simulation) EvaluateVertex(i, v int) (mgl32.Vec3, mgl32.Vec3) {
	return s.Pose(i).Apply(s.Prefab.Positions[v], s.Prefab.Normals[v])
}

// Upload hands the static inputs to b: prefab, duration, path and the four
// instance streams. Time is sent separately each frame by SyncTime.
func (s *Simulation) Upload(b Backend) error {
	if err := b.SetPrefab(s.Prefab, s.Count()); err != nil {
		return fmt.Errorf("set prefab: %w", err)
	}
	if err := b.SetUniform(core.UniformDuration, core.FloatUniform(s.Scene.Duration)); err != nil {
		return fmt.Errorf("set %s: %w", core.UniformDuration, err)
	}
	for name, u := range core.PathUniforms(s.Scene.Path) {
		if err := b.SetUniform(name, u); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	for name, attr := range s.Scene.Attributes.InstanceAttributes() {
		if err := b.SetInstanceAttribute(name, attr); err != nil {
			return fmt.Errorf("set attribute %s: %w", name, err)
		}
	}
	return s.SyncTime(b)
}

func (s *Simulation) SyncTime(b Backend) error {
	return b.SetUniform(core.UniformTime, core.FloatUniform(s.Clock.Time))
}
