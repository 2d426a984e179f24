package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidViewport indicates a non-positive viewport size.
var ErrInvalidViewport = errors.New("invalid viewport size")

// NDC is a pointer position in normalised device coordinates: x and y in
// [-1, 1], +y up.
type NDC struct {
	X, Y float64
}

// CameraConfig holds the camera projection and the focus transition
// tunables.
type CameraConfig struct {
	FOVDegrees float64
	Near, Far  float64

	// Home is where the camera rests in free mode and returns to on close.
	Home Vec3

	// InBlend and OutBlend are the per-frame interpolation fractions
	// towards the focus target and back home.
	InBlend  float64
	OutBlend float64
	// Epsilon is the arrival distance that ends a transition.
	Epsilon float64

	// DefaultOffset frames bodies without an offset of their own.
	DefaultOffset float64
}

// DefaultCameraConfig returns the stock framing.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		FOVDegrees:    45,
		Near:          0.1,
		Far:           1000,
		Home:          Vec3{X: -175, Y: 115, Z: 5},
		InBlend:       0.03,
		OutBlend:      0.05,
		Epsilon:       1,
		DefaultOffset: DefaultCameraOffset,
	}
}

// Validate rejects tunables that would stall or overshoot a transition.
func (c CameraConfig) Validate() error {
	switch {
	case c.FOVDegrees <= 0 || c.FOVDegrees >= 180:
		return fmt.Errorf("camera fov %v out of range (0, 180)", c.FOVDegrees)
	case c.Near <= 0 || c.Far <= c.Near:
		return fmt.Errorf("camera clip planes near=%v far=%v", c.Near, c.Far)
	case c.InBlend <= 0 || c.InBlend > 1:
		return fmt.Errorf("camera in-blend %v out of range (0, 1]", c.InBlend)
	case c.OutBlend <= 0 || c.OutBlend > 1:
		return fmt.Errorf("camera out-blend %v out of range (0, 1]", c.OutBlend)
	case c.Epsilon <= 0:
		return fmt.Errorf("camera epsilon %v must be positive", c.Epsilon)
	case c.DefaultOffset <= 0:
		return fmt.Errorf("camera default offset %v must be positive", c.DefaultOffset)
	}
	return nil
}

// Camera is a perspective camera looking at Target with +Y up.
type Camera struct {
	Position Vec3
	Target   Vec3
	FOV      float64 // vertical, radians
	Aspect   float64
	Near     float64
	Far      float64
}

// NewCamera places a camera at cfg.Home looking at the origin.
func NewCamera(cfg CameraConfig, aspect float64) *Camera {
	return &Camera{
		Position: cfg.Home,
		Target:   Origin,
		FOV:      degToRad(cfg.FOVDegrees),
		Aspect:   aspect,
		Near:     cfg.Near,
		Far:      cfg.Far,
	}
}

// basis returns the camera's forward, right and up unit vectors.
func (c *Camera) basis() (forward, right, up Vec3) {
	forward = c.Target.Sub(c.Position).Normalize()
	if forward == (Vec3{}) {
		forward = Vec3{Z: -1}
	}
	worldUp := Vec3{Y: 1}
	right = forward.Cross(worldUp).Normalize()
	if right == (Vec3{}) {
		// Looking straight up or down.
		right = Vec3{X: 1}
	}
	up = right.Cross(forward)
	return forward, right, up
}

// RayFromNDC casts a ray from the camera through a pointer position.
func (c *Camera) RayFromNDC(p NDC) Ray {
	forward, right, up := c.basis()
	h := math.Tan(c.FOV / 2)
	dir := forward.
		Add(right.Scale(p.X * h * c.Aspect)).
		Add(up.Scale(p.Y * h)).
		Normalize()
	return Ray{Origin: c.Position, Direction: dir}
}

// Project maps a world point to NDC. ok is false for points behind the
// camera.
func (c *Camera) Project(p Vec3) (NDC, bool) {
	forward, right, up := c.basis()
	rel := p.Sub(c.Position)
	depth := rel.Dot(forward)
	if depth <= 0 {
		return NDC{}, false
	}
	h := math.Tan(c.FOV / 2)
	return NDC{
		X: rel.Dot(right) / (depth * h * c.Aspect),
		Y: rel.Dot(up) / (depth * h),
	}, true
}

// RenderTarget is a drawable surface that follows the viewport size.
type RenderTarget interface {
	SetSize(width, height int)
}

// Surface is a headless render target that records its size.
type Surface struct {
	Name          string
	Width, Height int
}

// SetSize implements RenderTarget.
func (s *Surface) SetSize(width, height int) {
	s.Width, s.Height = width, height
}

// Viewport is the window-sized render region. Resizing updates the
// camera's aspect and every attached render target together.
type Viewport struct {
	Width, Height int

	camera  *Camera
	targets []RenderTarget
}

// NewViewport sizes a viewport and sets the camera aspect.
func NewViewport(width, height int, cam *Camera) (*Viewport, error) {
	v := &Viewport{camera: cam}
	if err := v.Resize(width, height); err != nil {
		return nil, err
	}
	return v, nil
}

// Attach adds a render target and sizes it immediately.
func (v *Viewport) Attach(t RenderTarget) {
	if t == nil {
		return
	}
	t.SetSize(v.Width, v.Height)
	v.targets = append(v.targets, t)
}

// Resize applies a new window size. Non-positive sizes leave the viewport
// unchanged and return ErrInvalidViewport.
func (v *Viewport) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	v.Width, v.Height = width, height
	if v.camera != nil {
		v.camera.Aspect = float64(width) / float64(height)
	}
	for _, t := range v.targets {
		t.SetSize(width, height)
	}
	return nil
}

// Aspect returns width/height.
func (v *Viewport) Aspect() float64 {
	return float64(v.Width) / float64(v.Height)
}

// ToNDC converts a pixel position (origin top-left) to NDC.
func (v *Viewport) ToNDC(px, py float64) NDC {
	return NDC{
		X: (px/float64(v.Width))*2 - 1,
		Y: -(py/float64(v.Height))*2 + 1,
	}
}
