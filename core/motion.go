package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orrery/model"
)

// SatellitePosition places a moon on its circular orbit around parent at
// elapsed time t. The result depends only on its arguments, so repeated calls
// with the same inputs agree exactly and no error builds up over long runs.
//
// angularRate is radians per millisecond; tilt inclines the orbit plane
// about the X axis.
func SatellitePosition(t time.Duration, orbitRadius, angularRate, tilt float64, parent Vec3) Vec3 {
	ms := float64(t) / float64(time.Millisecond)
	s, c := math.Sincos(ms * angularRate)
	st, ct := math.Sincos(tilt)
	return Vec3{
		X: parent.X + orbitRadius*c,
		Y: parent.Y + orbitRadius*s*st,
		Z: parent.Z + orbitRadius*s*ct,
	}
}

// Placement positions a satellite relative to its parent for a given phase
// time. Implementations must be pure in (t, parent).
type Placement interface {
	Place(t time.Duration, parent Vec3) Vec3
}

// CircularPlacement is the closed-form trigonometric orbit used by moons.
type CircularPlacement struct {
	OrbitRadius float64
	AngularRate float64
	Tilt        float64 // radians
}

// Place implements Placement.
func (c CircularPlacement) Place(t time.Duration, parent Vec3) Vec3 {
	return SatellitePosition(t, c.OrbitRadius, c.AngularRate, c.Tilt, parent)
}

// SGP4Placement propagates a TLE with SGP4 and projects the resulting
// direction onto a sphere of OrbitRadius around the parent. Scene distances
// are not to scale, so only the direction of the ECI vector is kept.
type SGP4Placement struct {
	sat         satellite.Satellite
	epoch       time.Time
	orbitRadius float64
}

// NewSGP4Placement parses a TLE. epoch is the simulated instant that
// corresponds to elapsed time zero.
func NewSGP4Placement(tle model.TLE, epoch time.Time, orbitRadius float64) *SGP4Placement {
	return &SGP4Placement{
		sat:         satellite.TLEToSat(tle.Line1, tle.Line2, satellite.GravityWGS72),
		epoch:       epoch.UTC(),
		orbitRadius: orbitRadius,
	}
}

// Place implements Placement. ECI Z (the Earth's pole) maps to scene +Y.
func (m *SGP4Placement) Place(t time.Duration, parent Vec3) Vec3 {
	at := m.epoch.Add(t)
	year, month, day := at.Date()
	hour, min, sec := at.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	dir := Vec3{X: posECI.X, Y: posECI.Z, Z: -posECI.Y}.Normalize()
	if dir == (Vec3{}) {
		// Propagation failures come back as zero vectors; park the
		// satellite on the parent's +X side rather than inside it.
		dir = Vec3{X: 1}
	}
	return parent.Add(dir.Scale(m.orbitRadius))
}

// NewPlacement chooses the placement for a satellite: SGP4 when it carries
// a TLE, the circular formula otherwise.
func NewPlacement(s model.Satellite, epoch time.Time) Placement {
	if s.TLE != nil && s.TLE.Line1 != "" && s.TLE.Line2 != "" {
		return NewSGP4Placement(*s.TLE, epoch, s.OrbitRadius)
	}
	tilt := 0.0
	if s.TiltDegrees != nil {
		tilt = degToRad(*s.TiltDegrees)
	}
	return CircularPlacement{OrbitRadius: s.OrbitRadius, AngularRate: s.AngularRate, Tilt: tilt}
}
