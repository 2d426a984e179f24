// Package config loads process configuration from ORRERY_* environment
// variables. Binaries layer command-line flags on top.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/observability"
)

// Config is the runtime configuration shared by the binaries.
type Config struct {
	FPS             int       `env:"ORRERY_FPS"              envDefault:"60"`
	RegistryPath    string    `env:"ORRERY_REGISTRY"`
	AssetRoot       string    `env:"ORRERY_ASSET_ROOT"`
	GRPCAddr        string    `env:"ORRERY_GRPC_ADDR"        envDefault:"127.0.0.1:7450"`
	MetricsAddr     string    `env:"ORRERY_METRICS_ADDR"     envDefault:":9090"`
	SatelliteTiming string    `env:"ORRERY_SATELLITE_TIMING" envDefault:"wallclock"`
	Watch           bool      `env:"ORRERY_WATCH"`
	Epoch           time.Time `env:"ORRERY_EPOCH"`
	ViewportWidth   int       `env:"ORRERY_VIEWPORT_WIDTH"   envDefault:"1920"`
	ViewportHeight  int       `env:"ORRERY_VIEWPORT_HEIGHT"  envDefault:"1080"`

	Camera CameraConfig `envPrefix:"ORRERY_CAMERA_"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Tracing observability.TracingConfig `envPrefix:"ORRERY_TRACING_"`
}

// CameraConfig holds the focus transition tunables.
type CameraConfig struct {
	FOVDegrees    float64 `env:"FOV"            envDefault:"45"`
	InBlend       float64 `env:"IN_BLEND"       envDefault:"0.03"`
	OutBlend      float64 `env:"OUT_BLEND"      envDefault:"0.05"`
	Epsilon       float64 `env:"EPSILON"        envDefault:"1"`
	DefaultOffset float64 `env:"DEFAULT_OFFSET" envDefault:"30"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that Load cannot express as defaults.
func (c Config) Validate() error {
	if c.FPS <= 0 || c.FPS > 1000 {
		return fmt.Errorf("ORRERY_FPS %d out of range (0, 1000]", c.FPS)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport %dx%d: %w", c.ViewportWidth, c.ViewportHeight, core.ErrInvalidViewport)
	}
	if _, err := c.Timing(); err != nil {
		return fmt.Errorf("ORRERY_SATELLITE_TIMING: %w", err)
	}
	if err := c.CameraConfig().Validate(); err != nil {
		return fmt.Errorf("ORRERY_CAMERA_*: %w", err)
	}
	return nil
}

// FrameInterval is the duration of one frame.
func (c Config) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.FPS)
}

// Timing parses the satellite time base.
func (c Config) Timing() (core.SatelliteTiming, error) {
	return core.ParseSatelliteTiming(c.SatelliteTiming)
}

// CameraConfig merges the tunables over the stock camera framing.
func (c Config) CameraConfig() core.CameraConfig {
	cam := core.DefaultCameraConfig()
	cam.FOVDegrees = c.Camera.FOVDegrees
	cam.InBlend = c.Camera.InBlend
	cam.OutBlend = c.Camera.OutBlend
	cam.Epsilon = c.Camera.Epsilon
	cam.DefaultOffset = c.Camera.DefaultOffset
	return cam
}

// EpochOr returns the configured epoch, or fallback when none is set.
func (c Config) EpochOr(fallback time.Time) time.Time {
	if c.Epoch.IsZero() {
		return fallback
	}
	return c.Epoch
}
