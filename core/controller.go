package core

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
)

// Mode is the camera focus state.
type Mode int

const (
	// ModeFree leaves the camera to the user; orbits run at the configured
	// rate.
	ModeFree Mode = iota
	// ModeTransitioningIn moves the camera towards the focused body with
	// planet revolution frozen.
	ModeTransitioningIn
	// ModeFocused is the idle-focused state: the camera has arrived and
	// the info overlay is showing.
	ModeFocused
	// ModeTransitioningOut returns the camera home after a close.
	ModeTransitioningOut
)

func (m Mode) String() string {
	switch m {
	case ModeFree:
		return "free"
	case ModeTransitioningIn:
		return "transitioning_in"
	case ModeFocused:
		return "focused"
	case ModeTransitioningOut:
		return "transitioning_out"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Overlay presents the focused body's description.
type Overlay interface {
	Show(name string, info model.BodyInfo)
	Hide()
}

// InfoSource supplies overlay metadata by body name.
type InfoSource interface {
	Info(name string) (model.BodyInfo, error)
}

// TransitionObserver is told about picks and mode changes.
type TransitionObserver interface {
	PickResolved(body string, hit bool)
	ModeChanged(from, to string, body string)
}

// Controller maps pointer input to body selection and drives the camera
// between free roaming and a focused body.
//
// Invariant: ModeFree has no focused body; ModeTransitioningIn and
// ModeFocused always have exactly one. A new focus is only accepted by
// entering ModeTransitioningIn.
type Controller struct {
	cfg      CameraConfig
	camera   *Camera
	scene    *Scene
	settings *RateSettings
	overlay  Overlay
	info     InfoSource
	observer TransitionObserver
	log      logging.Logger

	mode    Mode
	focused *BodyNodes
	offset  float64

	// frozen is set while planet revolution is held at zero for a focus;
	// savedOrbital is the multiplier to restore on close.
	frozen       bool
	savedOrbital float64

	pointer    NDC
	hasPointer bool
	hovered    string
}

// ControllerOption customises a Controller.
type ControllerOption func(*Controller)

// WithOverlay sets the info overlay.
func WithOverlay(o Overlay) ControllerOption {
	return func(c *Controller) {
		if o != nil {
			c.overlay = o
		}
	}
}

// WithInfoSource sets the overlay metadata source.
func WithInfoSource(s InfoSource) ControllerOption {
	return func(c *Controller) { c.info = s }
}

// WithTransitionObserver attaches an observer for picks and mode changes.
func WithTransitionObserver(o TransitionObserver) ControllerOption {
	return func(c *Controller) { c.observer = o }
}

// WithControllerLogger attaches a logger.
func WithControllerLogger(l logging.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// NewController binds a controller to the camera, scene and shared settings.
func NewController(cfg CameraConfig, cam *Camera, scene *Scene, settings *RateSettings, opts ...ControllerOption) *Controller {
	c := &Controller{
		cfg:      cfg,
		camera:   cam,
		scene:    scene,
		settings: settings,
		overlay:  &InfoPanel{},
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the current focus state.
func (c *Controller) Mode() Mode { return c.mode }

// Focused returns the focused body name, or "" in free mode.
func (c *Controller) Focused() string {
	if c.focused == nil {
		return ""
	}
	return c.focused.Body.Name
}

// FocusOffset returns the camera distance cached for the current focus.
func (c *Controller) FocusOffset() float64 { return c.offset }

// Hovered returns the body under the pointer as of the last Update.
func (c *Controller) Hovered() string { return c.hovered }

// Camera returns the controlled camera.
func (c *Controller) Camera() *Camera { return c.camera }

// Raycast returns the nearest pick target under p and its owning body.
func (c *Controller) Raycast(p NDC) (string, *Node, bool) {
	ray := c.camera.RayFromNDC(p)
	var (
		best     *Node
		bestT    = math.Inf(1)
		bestBody string
	)
	for _, n := range c.scene.PickTargets() {
		t, ok := ray.IntersectSphere(n.World, n.Radius)
		if !ok || t < c.camera.Near || t > c.camera.Far || t >= bestT {
			continue
		}
		body, owned := c.scene.OwnerOf(n.ID)
		if !owned {
			continue
		}
		best, bestT, bestBody = n, t, body
	}
	if best == nil {
		return "", nil, false
	}
	return bestBody, best, true
}

// Offset returns the framing distance for a body.
func (c *Controller) Offset(b *model.Body) float64 {
	if b != nil && b.CameraOffset > 0 {
		return b.CameraOffset
	}
	return c.cfg.DefaultOffset
}

// Pick selects the body under p. A miss changes nothing. A hit freezes
// planet revolution and starts (or retargets) the transition in; the
// latest pick wins.
func (c *Controller) Pick(p NDC) (string, bool) {
	name, _, ok := c.Raycast(p)
	if !ok {
		c.observePick("", false)
		return "", false
	}
	bn := c.scene.Body(name)
	if bn == nil {
		// The pick table only holds built bodies; anything else is a
		// scene construction bug.
		panic(fmt.Sprintf("core: pick target owned by unknown body %q", name))
	}
	c.observePick(name, true)
	c.focus(bn)
	return name, true
}

// Focus starts a transition towards a body by name, as a pick would.
func (c *Controller) Focus(name string) error {
	bn := c.scene.Body(name)
	if bn == nil {
		return fmt.Errorf("%w: %q", ErrBodyNotInScene, name)
	}
	c.focus(bn)
	return nil
}

func (c *Controller) focus(bn *BodyNodes) {
	if c.mode == ModeFocused {
		c.overlay.Hide()
	}
	if !c.frozen {
		c.savedOrbital = c.settings.OrbitalMultiplier()
		c.frozen = true
	}
	c.settings.SetOrbitalMultiplier(0)

	prev := c.Focused()
	c.focused = bn
	c.offset = c.Offset(bn.Body)
	c.camera.Target = bn.Planet.World

	if c.mode == ModeTransitioningIn {
		c.log.Debug(context.Background(), "focus retargeted",
			logging.String("from", prev),
			logging.String("to", bn.Body.Name),
		)
		return
	}
	c.setMode(ModeTransitioningIn)
}

// Close ends a focus: the overlay hides, revolution resumes at its
// pre-freeze rate and the camera heads home. It reports whether anything
// changed.
func (c *Controller) Close() bool {
	if c.mode != ModeTransitioningIn && c.mode != ModeFocused {
		return false
	}
	c.overlay.Hide()
	c.release()
	c.focused = nil
	c.offset = 0
	c.camera.Target = Origin
	c.setMode(ModeTransitioningOut)
	return true
}

func (c *Controller) release() {
	if !c.frozen {
		return
	}
	c.settings.SetOrbitalMultiplier(c.savedOrbital)
	c.frozen = false
}

// SetOrbitalMultiplier applies a user rate change. While a focus holds
// revolution frozen the value is kept for release instead.
func (c *Controller) SetOrbitalMultiplier(v float64) float64 {
	if c.frozen {
		c.savedOrbital = clamp(v, MinRateMultiplier, MaxRateMultiplier)
		return c.savedOrbital
	}
	return c.settings.SetOrbitalMultiplier(v)
}

// Hover records the pointer position used for hover highlighting.
func (c *Controller) Hover(p NDC) {
	c.pointer = p
	c.hasPointer = true
}

// MoveCamera repositions the camera for user orbit/pan. It only applies in
// free mode.
func (c *Controller) MoveCamera(pos Vec3) bool {
	if c.mode != ModeFree {
		return false
	}
	c.camera.Position = pos
	return true
}

// Update runs the per-frame camera step: hover resolution, then one
// interpolation step of any active transition.
func (c *Controller) Update() {
	if c.hasPointer {
		c.hovered, _, _ = c.Raycast(c.pointer)
	}

	switch c.mode {
	case ModeTransitioningIn:
		target := c.focusTarget()
		c.camera.Position = c.camera.Position.Lerp(target, c.cfg.InBlend)
		c.camera.Target = c.focused.Planet.World
		if c.camera.Position.DistanceTo(target) < c.cfg.Epsilon {
			c.setMode(ModeFocused)
			c.showInfo()
		}
	case ModeFocused:
		c.camera.Target = c.focused.Planet.World
	case ModeTransitioningOut:
		c.camera.Position = c.camera.Position.Lerp(c.cfg.Home, c.cfg.OutBlend)
		if c.camera.Position.DistanceTo(c.cfg.Home) < c.cfg.Epsilon {
			c.setMode(ModeFree)
		}
	}
}

// FocusTarget returns the camera destination for the current focus.
func (c *Controller) FocusTarget() (Vec3, bool) {
	if c.focused == nil {
		return Vec3{}, false
	}
	return c.focusTarget(), true
}

func (c *Controller) focusTarget() Vec3 {
	bodyPos := c.focused.Planet.World
	dir := c.camera.Position.Sub(bodyPos).Normalize()
	if dir == (Vec3{}) {
		dir = c.cfg.Home.Sub(bodyPos).Normalize()
	}
	return bodyPos.Add(dir.Scale(c.offset))
}

func (c *Controller) showInfo() {
	name := c.focused.Body.Name
	var info model.BodyInfo
	if c.info != nil {
		var err error
		info, err = c.info.Info(name)
		if err != nil {
			c.log.Warn(context.Background(), "no overlay metadata",
				logging.String("body", name),
				logging.String("error", err.Error()),
			)
		}
	}
	c.overlay.Show(name, info)
}

func (c *Controller) setMode(to Mode) {
	from := c.mode
	c.mode = to
	body := c.Focused()
	c.log.Debug(context.Background(), "camera mode changed",
		logging.String("from", from.String()),
		logging.String("to", to.String()),
		logging.String("body", body),
	)
	if c.observer != nil {
		c.observer.ModeChanged(from.String(), to.String(), body)
	}
}

func (c *Controller) observePick(body string, hit bool) {
	if c.observer != nil {
		c.observer.PickResolved(body, hit)
	}
}

// InfoPanel is the default Overlay: it records what is showing.
type InfoPanel struct {
	Visible bool
	Name    string
	Info    model.BodyInfo
	Shown   int
}

// Show implements Overlay.
func (p *InfoPanel) Show(name string, info model.BodyInfo) {
	p.Visible = true
	p.Name = name
	p.Info = info
	p.Shown++
}

// Hide implements Overlay.
func (p *InfoPanel) Hide() {
	p.Visible = false
}
