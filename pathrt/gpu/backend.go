package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/pathflock/pathrt/core"
	"github.com/gekko3d/pathflock/pathrt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	WorkgroupSize       = 64
	MaxWorkgroupsPerDim = 65535

	ParamsSize         = 32
	PrefabVertexStride = 32 // position vec4 + normal vec4
	OutVertexStride    = 48 // position vec4 + normal vec4 + color vec4
)

var (
	ErrCountMismatch = errors.New("attribute count does not match instance count")
	ErrNotReady      = errors.New("gpu backend inputs incomplete")
	ErrMapFailed     = errors.New("readback map failed")
)

// Params mirrors the WGSL Params uniform block.
type Params struct {
	Time        float32
	Duration    float32
	PathLength  uint32
	Count       uint32
	VertexCount uint32
	RowStride   uint32
}

func (p Params) Bytes() []byte {
	data := make([]byte, ParamsSize)
	binary.LittleEndian.PutUint32(data[0:4], math.Float32bits(p.Time))
	binary.LittleEndian.PutUint32(data[4:8], math.Float32bits(p.Duration))
	binary.LittleEndian.PutUint32(data[8:12], p.PathLength)
	binary.LittleEndian.PutUint32(data[12:16], p.Count)
	binary.LittleEndian.PutUint32(data[16:20], p.VertexCount)
	binary.LittleEndian.PutUint32(data[20:24], p.RowStride)
	return data
}

// DispatchSize splits total invocations into an x*y grid of 64-wide
// workgroups that stays under the per-dimension limit. rowStride is the
// number of invocations in one y row.
func DispatchSize(total uint32) (x, y, rowStride uint32) {
	groups := (total + WorkgroupSize - 1) / WorkgroupSize
	if groups == 0 {
		return 0, 0, 0
	}
	x = min(groups, MaxWorkgroupsPerDim)
	y = (groups + x - 1) / x
	return x, y, x * WorkgroupSize
}

// PackPrefab lays out prefab vertices as the WGSL PrefabVertex array.
func PackPrefab(p core.Prefab) []byte {
	data := make([]float32, 0, p.VertexCount()*8)
	for i := range p.Positions {
		pos, nrm := p.Positions[i], p.Normals[i]
		data = append(data, pos[0], pos[1], pos[2], 1, nrm[0], nrm[1], nrm[2], 0)
	}
	return core.Float32Bytes(data)
}

// DecodeFrame unpacks the OutVertex array read back from the GPU.
func DecodeFrame(data []byte, count, vertexCount int, t float32) (*core.Frame, error) {
	if len(data) < count*vertexCount*OutVertexStride {
		return nil, fmt.Errorf("readback has %d bytes, want %d", len(data), count*vertexCount*OutVertexStride)
	}
	floats := core.BytesFloat32(data[:count*vertexCount*OutVertexStride])
	frame := core.NewFrame(count, vertexCount)
	frame.Time = t
	for k := range frame.Positions {
		o := k * 12
		frame.Positions[k] = mgl32.Vec3{floats[o], floats[o+1], floats[o+2]}
		frame.Normals[k] = mgl32.Vec3{floats[o+4], floats[o+5], floats[o+6]}
		if k%vertexCount == 0 {
			frame.Colors[k/vertexCount] = mgl32.Vec3{floats[o+8], floats[o+9], floats[o+10]}
		}
	}
	return &frame, nil
}

// Backend runs the vertex program as a compute pass and keeps the result in
// OutputBuf, where a render pass (or ReadFrame) can pick it up.
type Backend struct {
	Device *wgpu.Device
	Label  string

	instance *wgpu.Instance
	adapter  *wgpu.Adapter

	Pipeline *wgpu.ComputePipeline

	ParamsBuf    *wgpu.Buffer
	PathBuf      *wgpu.Buffer
	RadiusBuf    *wgpu.Buffer
	OffsetBuf    *wgpu.Buffer
	PivotBuf     *wgpu.Buffer
	AxisAngleBuf *wgpu.Buffer
	ColorBuf     *wgpu.Buffer
	PrefabBuf    *wgpu.Buffer
	OutputBuf    *wgpu.Buffer
	ReadbackBuf  *wgpu.Buffer

	BindGroup0 *wgpu.BindGroup
	BindGroup1 *wgpu.BindGroup
	BindGroup2 *wgpu.BindGroup

	params        Params
	radii         int
	counts        map[string]int
	set           map[string]bool
	bindingsDirty bool
}

// NewHeadless creates its own instance, adapter and device; no surface is
// needed for a compute-only backend.
func NewHeadless(label string) (*Backend, error) {
	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}

	b, err := New(device, label)
	if err != nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, err
	}
	b.instance = instance
	b.adapter = adapter
	return b, nil
}

// New builds the compute pipeline on an existing device.
func New(device *wgpu.Device, label string) (*Backend, error) {
	b := &Backend{
		Device: device,
		Label:  label,
		counts: make(map[string]int),
		set:    make(map[string]bool),
	}

	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label + "/PathAnimShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaders.PathAnimWGSL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create path shader module: %w", err)
	}
	defer shaderModule.Release()

	b.Pipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label + "/PathAnimPipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shaderModule,
			EntryPoint: "animate",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create path pipeline: %w", err)
	}

	b.ParamsBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + "/ParamsBuf",
		Size:  ParamsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params buffer: %w", err)
	}
	return b, nil
}

// ensureBuffer (re)creates buf when it is missing or too small, then
// uploads data. Recreating invalidates the bind groups.
func (b *Backend) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage) error {
	neededSize := uint64(len(data))
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}
	if neededSize == 0 {
		neededSize = 4
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}
		newBuf, err := b.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: b.Label + "/" + name,
			Size:  neededSize,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		*buf = newBuf
		b.bindingsDirty = true
	}
	if len(data) > 0 {
		b.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return nil
}

func (b *Backend) SetPrefab(prefab core.Prefab, count int) error {
	if count <= 0 {
		return fmt.Errorf("%w: %d", core.ErrInvalidParticleCount, count)
	}
	if err := b.ensureBuffer("PrefabBuf", &b.PrefabBuf, PackPrefab(prefab), wgpu.BufferUsageStorage); err != nil {
		return err
	}
	b.params.Count = uint32(count)
	b.params.VertexCount = uint32(prefab.VertexCount())

	out := make([]byte, count*prefab.VertexCount()*OutVertexStride)
	if err := b.ensureBuffer("OutputBuf", &b.OutputBuf, out, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc); err != nil {
		return err
	}
	b.set["prefab"] = true
	return nil
}

func (b *Backend) SetUniform(name string, u core.Uniform) error {
	if err := core.CheckUniform(name, u); err != nil {
		return err
	}
	var err error
	switch name {
	case core.UniformTime:
		b.params.Time = u.Float()
	case core.UniformDuration:
		b.params.Duration = u.Float()
	case core.UniformPath:
		b.params.PathLength = uint32(len(u.Data) / 3)
		err = b.ensureBuffer("PathBuf", &b.PathBuf, core.Float32Bytes(core.PadVec3(u.Data, 1)), wgpu.BufferUsageStorage)
	case core.UniformRadius:
		b.radii = len(u.Data)
		err = b.ensureBuffer("RadiusBuf", &b.RadiusBuf, core.Float32Bytes(u.Data), wgpu.BufferUsageStorage)
	}
	if err != nil {
		return err
	}
	b.set[name] = true
	return nil
}

func (b *Backend) SetInstanceAttribute(name string, attr core.InstanceAttribute) error {
	if err := core.CheckAttribute(name, attr); err != nil {
		return err
	}
	if b.params.Count > 0 && attr.Count() != int(b.params.Count) {
		return fmt.Errorf("%w: %s has %d, want %d", ErrCountMismatch, name, attr.Count(), b.params.Count)
	}
	var err error
	switch name {
	case core.AttrOffset:
		err = b.ensureBuffer("OffsetBuf", &b.OffsetBuf, core.Float32Bytes(attr.Data), wgpu.BufferUsageStorage)
	case core.AttrPivot:
		err = b.ensureBuffer("PivotBuf", &b.PivotBuf, core.Float32Bytes(core.PadVec3(attr.Data, 0)), wgpu.BufferUsageStorage)
	case core.AttrAxisAngle:
		err = b.ensureBuffer("AxisAngleBuf", &b.AxisAngleBuf, core.Float32Bytes(attr.Data), wgpu.BufferUsageStorage)
	case core.AttrColor:
		err = b.ensureBuffer("ColorBuf", &b.ColorBuf, core.Float32Bytes(core.PadVec3(attr.Data, 1)), wgpu.BufferUsageStorage)
	}
	if err != nil {
		return err
	}
	b.counts[name] = attr.Count()
	b.set[name] = true
	return nil
}

func (b *Backend) ready() error {
	if !b.set["prefab"] {
		return fmt.Errorf("%w: no prefab", ErrNotReady)
	}
	for name := range core.UniformKinds {
		if !b.set[name] {
			return fmt.Errorf("%w: uniform %s not set", ErrNotReady, name)
		}
	}
	for name := range core.AttributeSizes {
		if !b.set[name] {
			return fmt.Errorf("%w: attribute %s not set", ErrNotReady, name)
		}
	}
	return checkCounts(b.params, b.radii, b.counts)
}

// checkCounts rejects inputs the shader would read past: a radius per path
// point and one entry per instance in every attribute stream.
func checkCounts(p Params, radii int, counts map[string]int) error {
	if p.PathLength < core.MinPathLength {
		return fmt.Errorf("%w: got %d", core.ErrPathTooShort, p.PathLength)
	}
	if radii != int(p.PathLength) {
		return fmt.Errorf("%w: %d points, %d radii", core.ErrPathMismatch, p.PathLength, radii)
	}
	for name := range core.AttributeSizes {
		if counts[name] != int(p.Count) {
			return fmt.Errorf("%w: %s has %d, want %d", ErrCountMismatch, name, counts[name], p.Count)
		}
	}
	return nil
}

func (b *Backend) createBindGroups() error {
	for _, bg := range []*wgpu.BindGroup{b.BindGroup0, b.BindGroup1, b.BindGroup2} {
		if bg != nil {
			bg.Release()
		}
	}

	var err error
	b.BindGroup0, err = b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: b.Pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: b.PathBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: b.RadiusBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create path bind group 0: %w", err)
	}

	b.BindGroup1, err = b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: b.Pipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.OffsetBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: b.PivotBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: b.AxisAngleBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: b.ColorBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: b.PrefabBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create path bind group 1: %w", err)
	}

	b.BindGroup2, err = b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: b.Pipeline.GetBindGroupLayout(2),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.OutputBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create path bind group 2: %w", err)
	}

	b.bindingsDirty = false
	return nil
}

// Draw uploads the current time and dispatches one invocation per vertex.
func (b *Backend) Draw() error {
	if err := b.ready(); err != nil {
		return err
	}
	x, y, stride := DispatchSize(b.params.Count * b.params.VertexCount)
	b.params.RowStride = stride
	b.Device.GetQueue().WriteBuffer(b.ParamsBuf, 0, b.params.Bytes())

	if b.bindingsDirty || b.BindGroup0 == nil {
		if err := b.createBindGroups(); err != nil {
			return err
		}
	}

	encoder, err := b.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	defer encoder.Release()

	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(b.Pipeline)
	computePass.SetBindGroup(0, b.BindGroup0, nil)
	computePass.SetBindGroup(1, b.BindGroup1, nil)
	computePass.SetBindGroup(2, b.BindGroup2, nil)
	computePass.DispatchWorkgroups(x, y, 1)
	computePass.End()

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmdBuf.Release()

	b.Device.GetQueue().Submit(cmdBuf)
	return nil
}

// ReadFrame copies the last Draw's output to the CPU. It blocks until the
// GPU is done.
func (b *Backend) ReadFrame() (*core.Frame, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	count, vc := int(b.params.Count), int(b.params.VertexCount)
	size := uint64(count * vc * OutVertexStride)

	if b.ReadbackBuf == nil || b.ReadbackBuf.GetSize() != size {
		if b.ReadbackBuf != nil {
			b.ReadbackBuf.Release()
		}
		var err error
		b.ReadbackBuf, err = b.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: b.Label + "/ReadbackBuf",
			Size:  size,
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create readback buffer: %w", err)
		}
	}

	encoder, err := b.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	defer encoder.Release()
	encoder.CopyBufferToBuffer(b.OutputBuf, 0, b.ReadbackBuf, 0, size)
	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	defer cmdBuf.Release()
	b.Device.GetQueue().Submit(cmdBuf)

	done := false
	var status wgpu.BufferMapAsyncStatus
	b.ReadbackBuf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	for !done {
		b.Device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("%w: status %v", ErrMapFailed, status)
	}
	defer b.ReadbackBuf.Unmap()

	return DecodeFrame(b.ReadbackBuf.GetMappedRange(0, uint(size)), count, vc, b.params.Time)
}

func (b *Backend) Release() {
	for _, bg := range []*wgpu.BindGroup{b.BindGroup0, b.BindGroup1, b.BindGroup2} {
		if bg != nil {
			bg.Release()
		}
	}
	b.BindGroup0, b.BindGroup1, b.BindGroup2 = nil, nil, nil

	for _, buf := range []**wgpu.Buffer{
		&b.ParamsBuf, &b.PathBuf, &b.RadiusBuf, &b.OffsetBuf, &b.PivotBuf,
		&b.AxisAngleBuf, &b.ColorBuf, &b.PrefabBuf, &b.OutputBuf, &b.ReadbackBuf,
	} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	if b.Pipeline != nil {
		b.Pipeline.Release()
		b.Pipeline = nil
	}

	// Only tear down the device when NewHeadless created it.
	if b.adapter != nil {
		b.Device.Release()
		b.adapter.Release()
		b.instance.Release()
		b.Device, b.adapter, b.instance = nil, nil, nil
	}
	b.set = make(map[string]bool)
	b.counts = make(map[string]int)
	b.radii = 0
}
