package core

import (
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/registry"
)

type frameCounter struct {
	frames int
	bodies int
}

func (c *frameCounter) FrameRendered(time.Duration) { c.frames++ }
func (c *frameCounter) SetBodyCount(n int)          { c.bodies = n }

func TestEngineSolarSystem(t *testing.T) {
	counter := &frameCounter{}
	e, err := NewEngine(registry.SolarSystem(), WithFrameObserver(counter))
	if err != nil {
		t.Fatal(err)
	}
	if counter.bodies != 9 {
		t.Fatalf("body count = %d, want 9", counter.bodies)
	}
	if e.Scene.Star() == nil || len(e.Scene.Belts()) != 2 {
		t.Fatal("star or belts missing")
	}

	snap := e.Run(60, time.Second/60)
	if snap.Frame != 60 || counter.frames != 60 {
		t.Fatalf("frames = %d/%d, want 60", snap.Frame, counter.frames)
	}
	earth, ok := snap.Body("Earth")
	if !ok {
		t.Fatal("Earth missing from snapshot")
	}
	if len(earth.Satellites) != 2 {
		t.Fatalf("Earth satellites = %d, want Moon and ISS", len(earth.Satellites))
	}
	if earth.OrbitAngle == 0 || earth.SpinAngle == 0 {
		t.Fatalf("Earth did not move: %+v", earth)
	}
}

func TestEngineFocusFreezesOrbits(t *testing.T) {
	e, err := NewEngine(registry.SolarSystem())
	if err != nil {
		t.Fatal(err)
	}
	e.Run(5, time.Second/60)
	if err := e.Controller.Focus("Mars"); err != nil {
		t.Fatal(err)
	}
	before := e.Snapshot()
	after := e.Run(30, time.Second/60)

	for _, b := range after.Bodies {
		prev, _ := before.Body(b.Name)
		if b.OrbitAngle != prev.OrbitAngle {
			t.Fatalf("%s revolved while focused: %v -> %v", b.Name, prev.OrbitAngle, b.OrbitAngle)
		}
		if b.SpinAngle == prev.SpinAngle {
			t.Fatalf("%s stopped spinning while focused", b.Name)
		}
	}
	if after.Settings.OrbitalMultiplier != 0 || after.Focused != "Mars" {
		t.Fatalf("snapshot = %+v", after)
	}
}

func TestEnginePickPixelAndOverlay(t *testing.T) {
	reg := registry.New()
	if err := reg.Add(&model.Body{Name: "Solo", Radius: 6, BaseOrbitDistance: 40, CameraOffset: 15}); err != nil {
		t.Fatal(err)
	}
	reg.SetInfo("Solo", model.BodyInfo{Radius: "6", Info: "a lonely world"})

	panel := &InfoPanel{}
	e, err := NewEngine(reg, WithViewportSize(800, 600), WithEngineOverlay(panel))
	if err != nil {
		t.Fatal(err)
	}
	ndc, ok := e.Camera.Project(Vec3{X: 40})
	if !ok {
		t.Fatal("body behind camera")
	}
	px := (ndc.X + 1) / 2 * 800
	py := (1 - ndc.Y) / 2 * 600

	name, hit := e.PickPixel(px, py)
	if !hit || name != "Solo" {
		t.Fatalf("PickPixel = %q, %v", name, hit)
	}
	for i := 0; i < 1000 && e.Controller.Mode() != ModeFocused; i++ {
		e.Step(time.Duration(i) * time.Millisecond)
	}
	snap := e.Snapshot()
	if !snap.Overlay.Visible || snap.Overlay.Name != "Solo" {
		t.Fatalf("overlay = %+v", snap.Overlay)
	}
	if panel.Info.Info != "a lonely world" {
		t.Fatalf("overlay info = %+v", panel.Info)
	}
}

func TestEngineAddBodyIsPickable(t *testing.T) {
	e, err := NewEngine(registry.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.AddBody(&model.Body{Name: "Late", Radius: 5, BaseOrbitDistance: 60}, nil); err != nil {
		t.Fatal(err)
	}
	if e.Scene.Body("Late") == nil {
		t.Fatal("body not built")
	}
	e.Step(0)
	ndc, _ := e.Camera.Project(e.Scene.Body("Late").Planet.World)
	if name, ok := e.Controller.Pick(ndc); !ok || name != "Late" {
		t.Fatalf("Pick = %q, %v", name, ok)
	}
	if err := e.AddBody(&model.Body{Name: "Late", Radius: 5}, nil); !errors.Is(err, registry.ErrBodyExists) {
		t.Fatalf("duplicate AddBody err = %v", err)
	}
}

func TestEngineSetRatesAndLight(t *testing.T) {
	e, err := NewEngine(registry.SolarSystem())
	if err != nil {
		t.Fatal(err)
	}
	orbital, rotation, light := 4.0, 12.0, 3.5
	e.SetRates(&orbital, &rotation, &light)

	if got := e.Settings.OrbitalMultiplier(); got != 4 {
		t.Fatalf("orbital = %v", got)
	}
	if got := e.Settings.RotationMultiplier(); got != MaxRateMultiplier {
		t.Fatalf("rotation = %v, want clamped to %v", got, MaxRateMultiplier)
	}
	if got := e.Scene.Star().Material.Intensity; got != 3.5 {
		t.Fatalf("star intensity = %v, want 3.5", got)
	}
}

func TestEngineResize(t *testing.T) {
	overlay := &Surface{Name: "overlay"}
	e, err := NewEngine(registry.New(), WithRenderTargets(overlay))
	if err != nil {
		t.Fatal(err)
	}
	if overlay.Width != DefaultViewportWidth {
		t.Fatalf("overlay width = %d", overlay.Width)
	}
	if err := e.Resize(800, 600); err != nil {
		t.Fatal(err)
	}
	snap := e.Snapshot()
	if snap.Viewport.Width != 800 || !nearly(snap.Camera.Aspect, 800.0/600.0, 1e-12) || overlay.Height != 600 {
		t.Fatalf("resize not applied: %+v, overlay %+v", snap.Viewport, overlay)
	}
	if err := e.Resize(-1, 10); !errors.Is(err, ErrInvalidViewport) {
		t.Fatalf("Resize(-1, 10) err = %v", err)
	}
}

func TestNewEngineRejectsBadCamera(t *testing.T) {
	cfg := DefaultCameraConfig()
	cfg.Epsilon = 0
	if _, err := NewEngine(registry.New(), WithCameraConfig(cfg)); err == nil {
		t.Fatal("expected camera validation error")
	}
}
