package model

// Body is a top-level orbiting object (planet or dwarf planet) circling the
// central star. A Body is immutable once registered; the scene keeps the
// derived transform state.
type Body struct {
	Name string

	// Radius is the sphere radius in scene units.
	Radius float64
	// BaseOrbitDistance is the distance from the star at which the body
	// is placed inside its orbit pivot.
	BaseOrbitDistance float64
	AxialTiltDegrees  float64

	// SelfRotationRate and OrbitRevolutionRate are radians per frame at a
	// multiplier of 1.
	SelfRotationRate    float64
	OrbitRevolutionRate float64

	Ring       *Ring
	Atmosphere *Atmosphere
	Satellites []Satellite

	// CameraOffset is the distance the camera settles at when the body is
	// focused. Zero selects the scene default.
	CameraOffset float64

	Texture string
	BumpMap string
	// Color is the flat fallback colour (0xRRGGBB) used when the texture
	// cannot be loaded.
	Color uint32
}

// Ring is a flat annulus around a body, coplanar with its equator.
type Ring struct {
	InnerRadius float64
	OuterRadius float64
	Texture     string
}

// Atmosphere is a slightly larger translucent shell around a body.
type Atmosphere struct {
	Radius       float64
	RotationRate float64
	Opacity      float64
	Texture      string
}

// Satellite is a moon owned by its parent Body.
type Satellite struct {
	Name string
	Size float64

	OrbitRadius float64
	// AngularRate is radians per millisecond of elapsed time.
	AngularRate float64
	// TiltDegrees inclines the orbit plane. Nil means an equatorial orbit.
	TiltDegrees *float64
	// SpinRate is the satellite's own rotation in radians per frame.
	SpinRate float64

	Texture string
	BumpMap string

	// TLE, when set, places the satellite by SGP4 propagation instead of
	// the circular formula.
	TLE *TLE
}

// TLE is a two-line element set for an artificial satellite.
type TLE struct {
	Line1 string
	Line2 string
}

// Star is the central light source. It spins but does not orbit and is
// never pickable.
type Star struct {
	Name          string
	Radius        float64
	RotationRate  float64
	EmissiveColor uint32
	Texture       string
}

// Belt is a ring of small rocks scattered between two orbit radii that
// revolves as a whole.
type Belt struct {
	Name           string
	Count          int
	MinRadius      float64
	MaxRadius      float64
	RevolutionRate float64
	Seed           uint64
}

// BodyInfo holds the display strings shown by the info overlay.
type BodyInfo struct {
	Radius   string
	Tilt     string
	Rotation string
	Orbit    string
	Distance string
	Moons    string
	Info     string
}

// Tilt is a convenience for building optional satellite tilts.
func Tilt(deg float64) *float64 { return &deg }
