package pathflock

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/pathflock/pathrt/core"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds every tunable of the scene. Zero Seed means seed from the clock.
type Config struct {
	ParticleCount int        `yaml:"particleCount"`
	Duration      float32    `yaml:"duration"`
	TimeStep      float32    `yaml:"timeStep"`
	PathLength    int        `yaml:"pathLength"`
	PathSpread    float32    `yaml:"pathSpread"`
	RadiusRange   [2]float32 `yaml:"radiusRange"`
	PrefabRadius  float32    `yaml:"prefabRadius"`
	Seed          int64      `yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		ParticleCount: 25000,
		Duration:      120,
		TimeStep:      1.0 / 60.0,
		PathLength:    14,
		PathSpread:    500,
		RadiusRange:   [2]float32{1, 24},
		PrefabRadius:  core.DefaultPrefabRadius,
	}
}

// Validate reports the first invalid field. Nothing is clamped.
func (c Config) Validate() error {
	switch {
	case c.ParticleCount <= 0:
		return fmt.Errorf("%w: particleCount %d: %w", ErrInvalidConfig, c.ParticleCount, core.ErrInvalidParticleCount)
	case !(c.Duration > 0) || math.IsInf(float64(c.Duration), 0):
		return fmt.Errorf("%w: duration %v: %w", ErrInvalidConfig, c.Duration, core.ErrInvalidDuration)
	case !(c.TimeStep > 0) || math.IsInf(float64(c.TimeStep), 0):
		return fmt.Errorf("%w: timeStep %v must be positive and finite", ErrInvalidConfig, c.TimeStep)
	case !(c.PrefabRadius > 0) || math.IsInf(float64(c.PrefabRadius), 0):
		return fmt.Errorf("%w: prefabRadius %v must be positive and finite", ErrInvalidConfig, c.PrefabRadius)
	}
	if err := c.PathParams().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) PathParams() core.PathParams {
	return core.PathParams{
		Length:    c.PathLength,
		Spread:    c.PathSpread,
		RadiusMin: c.RadiusRange[0],
		RadiusMax: c.RadiusRange[1],
	}
}

// LoadConfig overlays the YAML file at path onto DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
