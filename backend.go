package pathflock

import (
	"time"

	"github.com/gekko3d/pathflock/pathrt/core"
)

// Backend executes the path animation for every instance. Uniforms and
// instance attributes are addressed by the names in pathrt/core. Backends
// must not cull instances by the prefab's bounds, since the animated
// position has nothing to do with them.
type Backend interface {
	SetPrefab(prefab core.Prefab, count int) error
	SetUniform(name string, u core.Uniform) error
	SetInstanceAttribute(name string, attr core.InstanceAttribute) error
	Draw() error
	Release()
}

// FrameRenderer is the App resource wrapping the active backend.
type FrameRenderer struct {
	Backend  Backend
	Frames   uint64
	LastDraw time.Duration
}

func (r *FrameRenderer) Release() {
	if r.Backend != nil {
		r.Backend.Release()
	}
}
