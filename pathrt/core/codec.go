package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	sceneMagic   = "PFLK"
	sceneVersion = 1

	// Header sizes beyond these are treated as corrupt.
	MaxSceneInstances  = 1 << 24
	MaxScenePathLength = 1 << 16

	readChunk = 1 << 14
)

// Scene is everything the evaluator needs besides time: the static
// instance streams and the shared path.
type Scene struct {
	Duration   float32
	Attributes *AttributeBuffers
	Path       *Path
}

type sceneHeader struct {
	Magic    [4]byte
	Version  uint32
	Count    uint32
	PathLen  uint32
	Duration float32
}

// EncodeScene writes s as little-endian float32 streams behind a small header.
func EncodeScene(w io.Writer, s *Scene) error {
	h := sceneHeader{
		Version:  sceneVersion,
		Count:    uint32(s.Attributes.Count),
		PathLen:  uint32(s.Path.Len()),
		Duration: s.Duration,
	}
	copy(h.Magic[:], sceneMagic)

	streams := []any{
		h,
		s.Attributes.Offset,
		s.Attributes.Pivot,
		s.Attributes.AxisAngle,
		s.Attributes.Color,
		Vec3ArrayUniform(s.Path.Points).Data,
		s.Path.Radii,
	}
	for _, v := range streams {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("encode scene: %w", err)
		}
	}
	return nil
}

// DecodeScene reads a scene written by EncodeScene.
func DecodeScene(r io.Reader) (*Scene, error) {
	var h sceneHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("decode scene header: %w", err)
	}
	if string(h.Magic[:]) != sceneMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptScene, h.Magic[:])
	}
	if h.Version != sceneVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptScene, h.Version)
	}
	if h.Count == 0 {
		return nil, fmt.Errorf("%w: %v", ErrCorruptScene, ErrInvalidParticleCount)
	}
	if !(h.Duration > 0) {
		return nil, fmt.Errorf("%w: %v", ErrCorruptScene, ErrInvalidDuration)
	}
	if h.Count > MaxSceneInstances {
		return nil, fmt.Errorf("%w: %d instances exceeds %d", ErrCorruptScene, h.Count, MaxSceneInstances)
	}
	if h.PathLen > MaxScenePathLength {
		return nil, fmt.Errorf("%w: path length %d exceeds %d", ErrCorruptScene, h.PathLen, MaxScenePathLength)
	}

	count, pathLen := int(h.Count), int(h.PathLen)
	attrs := &AttributeBuffers{Count: count}
	var points, radii []float32
	for _, s := range []struct {
		dst *[]float32
		n   int
	}{
		{&attrs.Offset, count},
		{&attrs.Pivot, count * 3},
		{&attrs.AxisAngle, count * 4},
		{&attrs.Color, count * 3},
		{&points, pathLen * 3},
		{&radii, pathLen},
	} {
		v, err := readFloats(r, s.n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptScene, err)
		}
		*s.dst = v
	}

	path, err := NewPath(Uniform{Kind: UniformVec3Array, Data: points}.Vec3s(), radii)
	if err != nil {
		return nil, err
	}
	return &Scene{Duration: h.Duration, Attributes: attrs, Path: path}, nil
}

// readFloats reads n float32 values in fixed-size chunks, so a header that
// lies about its sizes fails at EOF before the full buffer is allocated.
func readFloats(r io.Reader, n int) ([]float32, error) {
	out := make([]float32, 0, min(n, readChunk))
	chunk := make([]float32, min(n, readChunk))
	for len(out) < n {
		c := chunk[:min(n-len(out), readChunk)]
		if err := binary.Read(r, binary.LittleEndian, c); err != nil {
			return nil, err
		}
		out = append(out, c...)
	}
	return out, nil
}

// MarshalScene is EncodeScene into a byte slice.
func MarshalScene(s *Scene) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeScene(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Float32Bytes packs data little-endian for buffer uploads.
func Float32Bytes(data []float32) []byte {
	out := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// BytesFloat32 is the inverse of Float32Bytes.
func BytesFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// PadVec3 widens packed vec3 data to vec4 with w=pad, matching the 16-byte
// stride of vec3 arrays in storage buffers.
func PadVec3(data []float32, pad float32) []float32 {
	n := len(data) / 3
	out := make([]float32, n*4)
	for i := 0; i < n; i++ {
		out[i*4+0] = data[i*3+0]
		out[i*4+1] = data[i*3+1]
		out[i*4+2] = data[i*3+2]
		out[i*4+3] = pad
	}
	return out
}
