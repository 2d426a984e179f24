package core

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/registry"
)

// Default window size for headless sessions.
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)

// FrameObserver is told how long each frame step took.
type FrameObserver interface {
	FrameRendered(d time.Duration)
	SetBodyCount(n int)
}

// Engine ties the registry, scene, integrator and camera controller into a
// single synchronous frame step. It is not safe for concurrent use: one
// goroutine owns it and applies input between frames.
type Engine struct {
	Registry   *registry.Registry
	Scene      *Scene
	Settings   *RateSettings
	Integrator *Integrator
	Controller *Controller
	Camera     *Camera
	Viewport   *Viewport
	Overlay    Overlay

	builder *Builder
	log     logging.Logger
	frames  FrameObserver

	frame   uint64
	elapsed time.Duration

	tickListeners []func(Snapshot)
}

type engineConfig struct {
	camera      CameraConfig
	timing      SatelliteTiming
	width       int
	height      int
	log         logging.Logger
	builderOpts []BuilderOption
	overlay     Overlay
	observer    TransitionObserver
	frames      FrameObserver
	settings    *RateSettings
	targets     []RenderTarget
}

// EngineOption customises NewEngine.
type EngineOption func(*engineConfig)

// WithCameraConfig overrides the camera tunables.
func WithCameraConfig(c CameraConfig) EngineOption {
	return func(ec *engineConfig) { ec.camera = c }
}

// WithSatelliteTiming selects the satellite time base.
func WithSatelliteTiming(t SatelliteTiming) EngineOption {
	return func(ec *engineConfig) { ec.timing = t }
}

// WithViewportSize sets the initial window size.
func WithViewportSize(width, height int) EngineOption {
	return func(ec *engineConfig) { ec.width, ec.height = width, height }
}

// WithLogger attaches a logger to the engine and its parts.
func WithLogger(l logging.Logger) EngineOption {
	return func(ec *engineConfig) {
		if l != nil {
			ec.log = l
		}
	}
}

// WithBuilderOptions forwards options to the scene builder.
func WithBuilderOptions(opts ...BuilderOption) EngineOption {
	return func(ec *engineConfig) { ec.builderOpts = append(ec.builderOpts, opts...) }
}

// WithEngineOverlay replaces the default InfoPanel overlay.
func WithEngineOverlay(o Overlay) EngineOption {
	return func(ec *engineConfig) { ec.overlay = o }
}

// WithObserver attaches a transition observer.
func WithObserver(o TransitionObserver) EngineOption {
	return func(ec *engineConfig) { ec.observer = o }
}

// WithFrameObserver attaches a frame observer.
func WithFrameObserver(o FrameObserver) EngineOption {
	return func(ec *engineConfig) { ec.frames = o }
}

// WithSettings shares an existing settings instance.
func WithSettings(s *RateSettings) EngineOption {
	return func(ec *engineConfig) { ec.settings = s }
}

// WithRenderTargets attaches render targets (scene renderer, overlay
// renderer) that follow the viewport size.
func WithRenderTargets(targets ...RenderTarget) EngineOption {
	return func(ec *engineConfig) { ec.targets = append(ec.targets, targets...) }
}

// NewEngine builds the scene for every body in reg and wires the frame
// step.
func NewEngine(reg *registry.Registry, opts ...EngineOption) (*Engine, error) {
	if reg == nil {
		return nil, fmt.Errorf("NewEngine: registry is nil")
	}
	ec := engineConfig{
		camera: DefaultCameraConfig(),
		timing: WallClockTiming,
		width:  DefaultViewportWidth,
		height: DefaultViewportHeight,
		log:    logging.Noop(),
	}
	for _, opt := range opts {
		opt(&ec)
	}
	if err := ec.camera.Validate(); err != nil {
		return nil, fmt.Errorf("NewEngine: %w", err)
	}

	settings := ec.settings
	if settings == nil {
		settings = NewRateSettings()
	}
	overlay := ec.overlay
	if overlay == nil {
		overlay = &InfoPanel{}
	}

	cam := NewCamera(ec.camera, 1)
	vp, err := NewViewport(ec.width, ec.height, cam)
	if err != nil {
		return nil, fmt.Errorf("NewEngine: %w", err)
	}
	for _, t := range ec.targets {
		vp.Attach(t)
	}

	scene := NewScene()
	builderOpts := append([]BuilderOption{
		WithBuilderLogger(ec.log),
		WithLightIntensity(settings.LightIntensity()),
	}, ec.builderOpts...)
	builder := NewBuilder(scene, builderOpts...)

	e := &Engine{
		Registry:   reg,
		Scene:      scene,
		Settings:   settings,
		Integrator: NewIntegrator(scene, settings, ec.timing),
		Camera:     cam,
		Viewport:   vp,
		Overlay:    overlay,
		builder:    builder,
		log:        ec.log,
		frames:     ec.frames,
	}
	e.Controller = NewController(ec.camera, cam, scene, settings,
		WithOverlay(overlay),
		WithInfoSource(reg),
		WithTransitionObserver(ec.observer),
		WithControllerLogger(ec.log),
	)

	if star, ok := reg.Star(); ok {
		builder.BuildStar(star)
	}
	settings.OnLightChange(func(v float64) {
		if n := scene.Star(); n != nil {
			n.Material.Intensity = v
		}
	})
	for _, belt := range reg.Belts() {
		builder.BuildBelt(belt)
	}
	for _, body := range reg.List() {
		if _, err := builder.Build(body); err != nil {
			return nil, fmt.Errorf("NewEngine: %w", err)
		}
	}
	e.reportBodies()

	e.log.Info(context.Background(), "scene built",
		logging.Int("bodies", len(scene.Bodies())),
		logging.Int("nodes", len(scene.Nodes())),
		logging.Int("pick_targets", len(scene.PickTargets())),
		logging.String("satellite_timing", ec.timing.String()),
	)
	return e, nil
}

// AddBody registers a new body and adds it to the running scene. The
// body becomes pickable on the next frame.
func (e *Engine) AddBody(b *model.Body, info *model.BodyInfo) error {
	if err := e.Registry.Add(b); err != nil {
		return err
	}
	if info != nil {
		e.Registry.SetInfo(b.Name, *info)
	}
	return e.BuildRegistered(b.Name)
}

// BuildRegistered adds an already registered body to the scene. Bodies
// already in the scene are left alone.
func (e *Engine) BuildRegistered(name string) error {
	if e.Scene.Body(name) != nil {
		return nil
	}
	body, err := e.Registry.Get(name)
	if err != nil {
		return err
	}
	if _, err := e.builder.Build(body); err != nil {
		return err
	}
	e.reportBodies()
	e.log.Info(context.Background(), "body added", logging.String("body", name))
	return nil
}

// RegisterTickListener adds a callback run after every frame with the
// frame's snapshot.
func (e *Engine) RegisterTickListener(fn func(Snapshot)) {
	e.tickListeners = append(e.tickListeners, fn)
}

// Step runs one frame at the given elapsed time: integrate, resolve hover
// and advance the camera, in that order.
func (e *Engine) Step(elapsed time.Duration) Snapshot {
	start := time.Now()

	e.elapsed = elapsed
	e.frame++
	e.Integrator.Step(elapsed)
	e.Controller.Update()

	snap := e.Snapshot()
	if e.frames != nil {
		e.frames.FrameRendered(time.Since(start))
	}
	for _, fn := range e.tickListeners {
		fn(snap)
	}
	return snap
}

// Run steps the engine for the given number of frames at a fixed frame
// interval, starting from the current elapsed time.
func (e *Engine) Run(frames int, dt time.Duration) Snapshot {
	var snap Snapshot
	for i := 0; i < frames; i++ {
		snap = e.Step(e.elapsed + dt)
	}
	return snap
}

// Frame returns the number of frames stepped.
func (e *Engine) Frame() uint64 { return e.frame }

// Elapsed returns the elapsed time of the last frame.
func (e *Engine) Elapsed() time.Duration { return e.elapsed }

// PickPixel picks the body under a pixel position.
func (e *Engine) PickPixel(px, py float64) (string, bool) {
	return e.Controller.Pick(e.Viewport.ToNDC(px, py))
}

// HoverPixel records the pointer at a pixel position.
func (e *Engine) HoverPixel(px, py float64) {
	e.Controller.Hover(e.Viewport.ToNDC(px, py))
}

// Resize applies a window resize to the viewport, camera and render
// targets.
func (e *Engine) Resize(width, height int) error {
	return e.Viewport.Resize(width, height)
}

// SetRates applies user rate controls. Nil values are left unchanged.
func (e *Engine) SetRates(orbital, rotation, light *float64) {
	if orbital != nil {
		e.Controller.SetOrbitalMultiplier(*orbital)
	}
	if rotation != nil {
		e.Settings.SetRotationMultiplier(*rotation)
	}
	if light != nil {
		e.Settings.SetLightIntensity(*light)
	}
}

func (e *Engine) reportBodies() {
	if e.frames != nil {
		e.frames.SetBodyCount(len(e.Scene.Bodies()))
	}
}
