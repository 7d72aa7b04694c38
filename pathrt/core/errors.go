package core

import "errors"

var (
	ErrInvalidParticleCount = errors.New("particle count must be positive")
	ErrInvalidDuration      = errors.New("duration must be positive")
	ErrIndexOutOfRange      = errors.New("instance index out of range")
	ErrPathTooShort         = errors.New("path needs at least 4 control points")
	ErrInvalidSpread        = errors.New("path spread must be positive")
	ErrInvalidRadiusRange   = errors.New("radius range min exceeds max")
	ErrPathMismatch         = errors.New("path points and radii differ in length")
	ErrCorruptScene         = errors.New("corrupt scene data")
)
