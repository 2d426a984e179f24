package core

import (
	"fmt"
	"strings"
	"time"
)

// SatelliteTiming selects the time base for satellite placement.
type SatelliteTiming int

const (
	// WallClockTiming places satellites by elapsed wall-clock time. The
	// orbital multiplier does not reach them, so moons keep circling while
	// a focused planet's revolution is frozen.
	WallClockTiming SatelliteTiming = iota
	// ScaledTiming advances a satellite phase clock by each frame's dt
	// times the orbital multiplier, so moons speed up, slow down and
	// freeze together with planet revolution.
	ScaledTiming
)

func (t SatelliteTiming) String() string {
	if t == ScaledTiming {
		return "scaled"
	}
	return "wallclock"
}

// ParseSatelliteTiming accepts "wallclock" or "scaled".
func ParseSatelliteTiming(s string) (SatelliteTiming, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wallclock", "wall-clock", "wall_clock":
		return WallClockTiming, nil
	case "scaled":
		return ScaledTiming, nil
	default:
		return WallClockTiming, fmt.Errorf("unknown satellite timing %q", s)
	}
}

// Integrator advances self-rotation and orbital revolution every frame.
//
// Planets ride an orbit pivot that turns about world Y by a per-frame
// increment; satellites are re-placed from scratch each frame by their
// Placement. The two schemes differ on purpose: pivot increments are cheap
// and continuous, while closed-form placement keeps tight moon orbits free
// of accumulated floating-point error.
type Integrator struct {
	scene    *Scene
	settings *RateSettings
	timing   SatelliteTiming

	phase   time.Duration
	last    time.Duration
	stepped bool
}

// NewIntegrator binds an integrator to a scene and shared settings.
func NewIntegrator(scene *Scene, settings *RateSettings, timing SatelliteTiming) *Integrator {
	return &Integrator{scene: scene, settings: settings, timing: timing}
}

// Timing reports the satellite time base.
func (in *Integrator) Timing() SatelliteTiming { return in.timing }

// SatelliteClock returns the time value satellites were last placed with.
func (in *Integrator) SatelliteClock() time.Duration { return in.phase }

// Step advances the scene by one frame. elapsed is the monotonic time since
// the session started.
func (in *Integrator) Step(elapsed time.Duration) {
	orbital := in.settings.OrbitalMultiplier()
	rotation := in.settings.RotationMultiplier()

	switch in.timing {
	case ScaledTiming:
		if in.stepped && elapsed > in.last {
			in.phase += time.Duration(float64(elapsed-in.last) * orbital)
		}
	default:
		in.phase = elapsed
	}
	in.last = elapsed
	in.stepped = true

	if star := in.scene.Star(); star != nil {
		star.Local.Rotation.Y += in.starRate() * rotation
	}

	for _, belt := range in.scene.Belts() {
		belt.Local.Rotation.Y += in.beltRate(belt) * orbital
	}

	for _, bn := range in.scene.Bodies() {
		in.stepBody(bn, orbital, rotation)
	}
}

func (in *Integrator) stepBody(bn *BodyNodes, orbital, rotation float64) {
	if bn == nil || bn.Body == nil {
		return
	}
	body := bn.Body

	if bn.Pivot != nil {
		bn.Pivot.Local.Rotation.Y += body.OrbitRevolutionRate * orbital
	}
	if bn.Planet == nil {
		return
	}
	bn.Planet.Local.Rotation.Y += body.SelfRotationRate * rotation

	pivotAngle := 0.0
	if bn.Pivot != nil {
		pivotAngle = bn.Pivot.Local.Rotation.Y
	}
	bn.Planet.World = bn.Planet.Local.Position.RotateY(pivotAngle)

	if bn.Ring != nil {
		bn.Ring.World = bn.Ring.Local.Position.RotateY(pivotAngle)
	}
	if bn.Atmosphere != nil && body.Atmosphere != nil {
		bn.Atmosphere.Local.Rotation.Y += body.Atmosphere.RotationRate * rotation
		bn.Atmosphere.World = bn.Planet.World
	}

	for _, sat := range bn.Satellites {
		if sat.Node == nil || sat.Placement == nil {
			continue
		}
		sat.World = sat.Placement.Place(in.phase, bn.Planet.World)
		sat.Local.Rotation.Y += sat.Spin
	}
}

// Rates for the star and belts come from the registry records they were
// built from; the scene keeps them on the node for the integrator.
func (in *Integrator) starRate() float64 {
	if rate, ok := in.scene.rates[in.scene.star]; ok {
		return rate
	}
	return 0
}

func (in *Integrator) beltRate(belt *Node) float64 {
	return in.scene.rates[belt]
}

// OrbitAngle returns the accumulated revolution of a body's pivot.
func (s *Scene) OrbitAngle(name string) (float64, bool) {
	bn := s.bodies[name]
	if bn == nil || bn.Pivot == nil {
		return 0, false
	}
	return bn.Pivot.Local.Rotation.Y, true
}

// SpinAngle returns the accumulated self-rotation of a body's planet node.
func (s *Scene) SpinAngle(name string) (float64, bool) {
	bn := s.bodies[name]
	if bn == nil || bn.Planet == nil {
		return 0, false
	}
	return bn.Planet.Local.Rotation.Y, true
}
