package core

import "time"

// Snapshot is a read-only copy of the per-frame state, safe to hand to
// other goroutines.
type Snapshot struct {
	Frame   uint64
	Elapsed time.Duration

	Mode    string
	Focused string
	Hovered string

	Camera   CameraState
	Viewport ViewportState
	Settings SettingsState
	Overlay  OverlayState

	Bodies []BodyState
}

// CameraState is the camera pose.
type CameraState struct {
	Position Vec3
	Target   Vec3
	Aspect   float64
}

// ViewportState is the window size.
type ViewportState struct {
	Width, Height int
}

// SettingsState holds the user-controlled rates.
type SettingsState struct {
	OrbitalMultiplier  float64
	RotationMultiplier float64
	LightIntensity     float64
}

// OverlayState reports the default info panel; it is zero for custom
// overlays.
type OverlayState struct {
	Visible bool
	Name    string
}

// BodyState is one body's transforms after the frame.
type BodyState struct {
	Name       string
	Position   Vec3
	OrbitAngle float64
	SpinAngle  float64
	Satellites []SatelliteState
}

// SatelliteState is a satellite's world position.
type SatelliteState struct {
	Name     string
	Position Vec3
}

// Snapshot captures the engine state as of the last frame.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Frame:   e.frame,
		Elapsed: e.elapsed,
		Mode:    e.Controller.Mode().String(),
		Focused: e.Controller.Focused(),
		Hovered: e.Controller.Hovered(),
		Camera: CameraState{
			Position: e.Camera.Position,
			Target:   e.Camera.Target,
			Aspect:   e.Camera.Aspect,
		},
		Viewport: ViewportState{Width: e.Viewport.Width, Height: e.Viewport.Height},
		Settings: SettingsState{
			OrbitalMultiplier:  e.Settings.OrbitalMultiplier(),
			RotationMultiplier: e.Settings.RotationMultiplier(),
			LightIntensity:     e.Settings.LightIntensity(),
		},
	}
	if p, ok := e.Overlay.(*InfoPanel); ok {
		snap.Overlay = OverlayState{Visible: p.Visible, Name: p.Name}
	}

	for _, bn := range e.Scene.Bodies() {
		bs := BodyState{
			Name:     bn.Body.Name,
			Position: bn.Planet.World,
		}
		bs.OrbitAngle, _ = e.Scene.OrbitAngle(bn.Body.Name)
		bs.SpinAngle, _ = e.Scene.SpinAngle(bn.Body.Name)
		for _, sat := range bn.Satellites {
			bs.Satellites = append(bs.Satellites, SatelliteState{Name: sat.Name, Position: sat.World})
		}
		snap.Bodies = append(snap.Bodies, bs)
	}
	return snap
}

// Body returns the named body's state.
func (s Snapshot) Body(name string) (BodyState, bool) {
	for _, b := range s.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return BodyState{}, false
}
