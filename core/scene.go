package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
)

var (
	// ErrBodyInScene indicates a body was built twice.
	ErrBodyInScene = errors.New("body already in scene")
	// ErrBodyNotInScene indicates a reference to a body that was never built.
	ErrBodyNotInScene = errors.New("body not in scene")
)

// NodeID is the stable index of a node within its Scene.
type NodeID uint32

// NodeKind distinguishes the node roles in a body's hierarchy.
type NodeKind int

const (
	KindStar NodeKind = iota
	KindPivot
	KindPlanet
	KindRing
	KindAtmosphere
	KindSatellite
	KindOrbitGuide
	KindBelt
)

func (k NodeKind) String() string {
	switch k {
	case KindStar:
		return "star"
	case KindPivot:
		return "pivot"
	case KindPlanet:
		return "planet"
	case KindRing:
		return "ring"
	case KindAtmosphere:
		return "atmosphere"
	case KindSatellite:
		return "satellite"
	case KindOrbitGuide:
		return "orbit_guide"
	case KindBelt:
		return "belt"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	orbitGuideSegments = 100
	orbitGuideOpacity  = 0.03
	planetBumpScale    = 0.7
	moonBumpScale      = 0.5
	// atmosphereTilt is the fixed lean of every atmosphere shell about Z.
	atmosphereTilt = 0.41

	// DefaultCameraOffset frames bodies that carry no offset of their own.
	DefaultCameraOffset = 30.0
)

// Node is a renderable element with a transform. Local is relative to
// the parent; World is the resolved world position after the last
// integrator step.
type Node struct {
	ID     NodeID
	Kind   NodeKind
	Name   string
	Body   string // owning body; empty for the star and belts
	Parent *Node

	Local  Transform
	World  Vec3
	Radius float64

	Material Material
	// Points holds the orbit guide outline or the belt's rock positions,
	// in the node's local frame.
	Points []Vec3
}

// SatelliteNode pairs a satellite node with its placement.
type SatelliteNode struct {
	*Node
	Spin      float64
	Placement Placement
}

// BodyNodes is the node hierarchy built for one body. Optional parts are
// nil when the body does not have them.
type BodyNodes struct {
	Body       *model.Body
	Pivot      *Node
	Planet     *Node
	Ring       *Node
	Atmosphere *Node
	Guide      *Node
	Satellites []SatelliteNode
}

// Scene owns every node plus the pick target table.
type Scene struct {
	nodes  []*Node
	bodies map[string]*BodyNodes
	order  []string

	star  *Node
	belts []*Node
	// rates holds per-frame rotation rates for the star and belts.
	rates map[*Node]float64

	// pickable maps each registered target to its owning body name.
	pickable map[NodeID]string
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{
		bodies:   make(map[string]*BodyNodes),
		pickable: make(map[NodeID]string),
		rates:    make(map[*Node]float64),
	}
}

// Node returns the node with the given id, or nil.
func (s *Scene) Node(id NodeID) *Node {
	if int(id) >= len(s.nodes) {
		return nil
	}
	return s.nodes[id]
}

// Nodes returns every node in creation order.
func (s *Scene) Nodes() []*Node { return s.nodes }

// Body returns the hierarchy built for name, or nil.
func (s *Scene) Body(name string) *BodyNodes { return s.bodies[name] }

// Bodies returns the built bodies in build order.
func (s *Scene) Bodies() []*BodyNodes {
	res := make([]*BodyNodes, 0, len(s.order))
	for _, name := range s.order {
		res = append(res, s.bodies[name])
	}
	return res
}

// Star returns the star node, or nil.
func (s *Scene) Star() *Node { return s.star }

// Belts returns the belt nodes.
func (s *Scene) Belts() []*Node { return s.belts }

// PickTargets returns the registered pick targets in id order.
func (s *Scene) PickTargets() []*Node {
	ids := make([]NodeID, 0, len(s.pickable))
	for id := range s.pickable {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]*Node, 0, len(ids))
	for _, id := range ids {
		res = append(res, s.nodes[id])
	}
	return res
}

// OwnerOf resolves a pick target to the body that owns it. Atmosphere
// shells resolve to their planet's body.
func (s *Scene) OwnerOf(id NodeID) (string, bool) {
	name, ok := s.pickable[id]
	return name, ok
}

// BeltPositions returns the world positions of a belt's rocks.
func (s *Scene) BeltPositions(belt *Node) []Vec3 {
	if belt == nil {
		return nil
	}
	res := make([]Vec3, len(belt.Points))
	for i, p := range belt.Points {
		res[i] = p.RotateY(belt.Local.Rotation.Y)
	}
	return res
}

func (s *Scene) add(n *Node) *Node {
	n.ID = NodeID(len(s.nodes))
	s.nodes = append(s.nodes, n)
	return n
}

// AssetFailureRecorder is notified of every degraded material.
type AssetFailureRecorder interface {
	AssetLoadFailed(kind string)
}

// Builder turns registry records into scene nodes.
type Builder struct {
	scene    *Scene
	assets   AssetLoader
	log      logging.Logger
	epoch    time.Time
	failures AssetFailureRecorder
	light    float64
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithAssetLoader sets the texture resolver. The default resolves nothing.
func WithAssetLoader(l AssetLoader) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.assets = l
		}
	}
}

// WithBuilderLogger attaches a logger for degraded assets.
func WithBuilderLogger(l logging.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithEpoch sets the simulated instant at elapsed time zero, used by SGP4
// satellites.
func WithEpoch(t time.Time) BuilderOption {
	return func(b *Builder) { b.epoch = t }
}

// WithAssetFailureRecorder attaches a recorder, typically metrics.
func WithAssetFailureRecorder(r AssetFailureRecorder) BuilderOption {
	return func(b *Builder) { b.failures = r }
}

// WithLightIntensity sets the star's initial emissive intensity.
func WithLightIntensity(v float64) BuilderOption {
	return func(b *Builder) { b.light = v }
}

// NewBuilder constructs a builder that adds nodes to scene.
func NewBuilder(scene *Scene, opts ...BuilderOption) *Builder {
	b := &Builder{
		scene:  scene,
		assets: NoAssets{},
		log:    logging.Noop(),
		light:  DefaultLightIntensity,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Scene returns the scene being built.
func (b *Builder) Scene() *Scene { return b.scene }

// BuildStar adds the central star at the origin.
func (b *Builder) BuildStar(star model.Star) *Node {
	mat := Material{
		Color:      star.EmissiveColor,
		Emissive:   star.EmissiveColor,
		Intensity:  b.light,
		Opacity:    1,
		DepthWrite: true,
	}
	b.applyTexture(&mat, star.Texture, "star")
	n := b.scene.add(&Node{Kind: KindStar, Name: star.Name, Radius: star.Radius, Material: mat})
	b.scene.star = n
	b.scene.rates[n] = star.RotationRate
	return n
}

// BuildBelt scatters belt.Count rocks uniformly in angle and radius
// between the belt's bounds. The layout is reproducible from belt.Seed.
func (b *Builder) BuildBelt(belt model.Belt) *Node {
	rng := rand.New(rand.NewPCG(belt.Seed, belt.Seed^0x9E3779B97F4A7C15))
	pts := make([]Vec3, belt.Count)
	for i := range pts {
		r := belt.MinRadius + rng.Float64()*(belt.MaxRadius-belt.MinRadius)
		a := rng.Float64() * 2 * math.Pi
		pts[i] = Vec3{X: r * math.Cos(a), Z: r * math.Sin(a)}
	}
	n := b.scene.add(&Node{
		Kind:     KindBelt,
		Name:     belt.Name,
		Points:   pts,
		Material: Material{Color: 0x8C8C8C, Opacity: 1, DepthWrite: true},
	})
	b.scene.belts = append(b.scene.belts, n)
	b.scene.rates[n] = belt.RevolutionRate
	return n
}

// Build creates the node hierarchy for body: orbit pivot, planet, optional
// ring and atmosphere, satellites and an orbit guide. The planet and any
// atmosphere are registered as pick targets. Missing textures degrade the
// affected material; they never fail the build.
func (b *Builder) Build(body *model.Body) (*BodyNodes, error) {
	if body == nil {
		return nil, fmt.Errorf("Build: nil body")
	}
	if _, exists := b.scene.bodies[body.Name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrBodyInScene, body.Name)
	}

	bn := &BodyNodes{Body: body}
	tilt := degToRad(body.AxialTiltDegrees)

	bn.Pivot = b.scene.add(&Node{Kind: KindPivot, Name: body.Name + "/pivot", Body: body.Name})

	planetMat := Material{Color: body.Color, Opacity: 1, DepthWrite: true, BumpScale: planetBumpScale}
	b.applyTexture(&planetMat, body.Texture, "planet")
	b.applyBump(&planetMat, body.BumpMap, "planet")
	bn.Planet = b.scene.add(&Node{
		Kind:   KindPlanet,
		Name:   body.Name,
		Body:   body.Name,
		Parent: bn.Pivot,
		Local: Transform{
			Position: Vec3{X: body.BaseOrbitDistance},
			Rotation: Euler{Z: tilt},
		},
		World:    Vec3{X: body.BaseOrbitDistance},
		Radius:   body.Radius,
		Material: planetMat,
	})
	b.scene.pickable[bn.Planet.ID] = body.Name

	guide := make([]Vec3, orbitGuideSegments+1)
	for i := range guide {
		a := 2 * math.Pi * float64(i) / orbitGuideSegments
		guide[i] = Vec3{X: body.BaseOrbitDistance * math.Cos(a), Z: body.BaseOrbitDistance * math.Sin(a)}
	}
	bn.Guide = b.scene.add(&Node{
		Kind:   KindOrbitGuide,
		Name:   body.Name + "/orbit",
		Body:   body.Name,
		Parent: bn.Pivot,
		Radius: body.BaseOrbitDistance,
		Points: guide,
		Material: Material{
			Color:    0xFFFFFF,
			Opacity:  orbitGuideOpacity,
			Blending: BlendAlpha,
		},
	})

	if body.Ring != nil {
		ringMat := Material{Color: body.Color, Opacity: 1, DepthWrite: true, DoubleSided: true}
		b.applyTexture(&ringMat, body.Ring.Texture, "ring")
		bn.Ring = b.scene.add(&Node{
			Kind:   KindRing,
			Name:   body.Name + "/ring",
			Body:   body.Name,
			Parent: bn.Pivot,
			Local: Transform{
				Position: Vec3{X: body.BaseOrbitDistance},
				Rotation: Euler{X: -0.5 * math.Pi, Y: -tilt},
			},
			World:    Vec3{X: body.BaseOrbitDistance},
			Radius:   body.Ring.OuterRadius,
			Material: ringMat,
			Points:   []Vec3{{X: body.Ring.InnerRadius}, {X: body.Ring.OuterRadius}},
		})
	}

	if body.Atmosphere != nil {
		atmoMat := Material{
			Color:      0xFFFFFF,
			Opacity:    body.Atmosphere.Opacity,
			Blending:   BlendAlpha,
			DepthWrite: false,
		}
		b.applyTexture(&atmoMat, body.Atmosphere.Texture, "atmosphere")
		bn.Atmosphere = b.scene.add(&Node{
			Kind:     KindAtmosphere,
			Name:     body.Name + "/atmosphere",
			Body:     body.Name,
			Parent:   bn.Planet,
			Local:    Transform{Rotation: Euler{Z: atmosphereTilt}},
			World:    bn.Planet.World,
			Radius:   body.Atmosphere.Radius,
			Material: atmoMat,
		})
		b.scene.pickable[bn.Atmosphere.ID] = body.Name
	}

	for i, sat := range body.Satellites {
		name := sat.Name
		if name == "" {
			name = fmt.Sprintf("%s/moon-%d", body.Name, i)
		}
		moonMat := Material{Color: 0xBFBFBF, Opacity: 1, DepthWrite: true, BumpScale: moonBumpScale}
		b.applyTexture(&moonMat, sat.Texture, "satellite")
		b.applyBump(&moonMat, sat.BumpMap, "satellite")
		n := b.scene.add(&Node{
			Kind:   KindSatellite,
			Name:   name,
			Body:   body.Name,
			Parent: bn.Pivot,
			// Initial resting place before the first step.
			Local:    Transform{Position: Vec3{X: body.BaseOrbitDistance + body.Radius*1.5}},
			Radius:   sat.Size,
			Material: moonMat,
		})
		n.World = n.Local.Position
		bn.Satellites = append(bn.Satellites, SatelliteNode{
			Node:      n,
			Spin:      sat.SpinRate,
			Placement: NewPlacement(sat, b.epoch),
		})
	}

	b.scene.bodies[body.Name] = bn
	b.scene.order = append(b.scene.order, body.Name)
	return bn, nil
}

func (b *Builder) applyTexture(mat *Material, path, kind string) {
	if path == "" {
		return
	}
	tex, err := b.assets.LoadTexture(path)
	if err != nil {
		b.degrade(mat, path, kind, err)
		return
	}
	mat.Map = &tex
}

func (b *Builder) applyBump(mat *Material, path, kind string) {
	if path == "" {
		return
	}
	tex, err := b.assets.LoadTexture(path)
	if err != nil {
		// A missing bump map only loses surface detail.
		b.log.Warn(context.Background(), "bump map unavailable",
			logging.String("kind", kind),
			logging.String("path", path),
			logging.String("error", err.Error()),
		)
		if b.failures != nil {
			b.failures.AssetLoadFailed(kind)
		}
		return
	}
	mat.BumpMap = &tex
}

func (b *Builder) degrade(mat *Material, path, kind string, err error) {
	mat.Map = nil
	mat.Fallback = true
	b.log.Warn(context.Background(), "texture unavailable; using flat colour",
		logging.String("kind", kind),
		logging.String("path", path),
		logging.String("color", fmt.Sprintf("#%06X", mat.Color)),
		logging.String("error", err.Error()),
	)
	if b.failures != nil {
		b.failures.AssetLoadFailed(kind)
	}
}
