package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/orrery/model"
)

//go:embed solar_system.yaml
var solarSystemYAML []byte

// Format names the encoding of a registry document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Summary is a small report of what a load added. It is mainly useful for
// logging from main().
type Summary struct {
	Bodies  []string
	Skipped []string
	Belts   int
	Star    bool
}

// internal document shapes, kept unexported so the file format can evolve
// independently of model.
type registryDoc struct {
	Star   *starDoc  `json:"star" yaml:"star"`
	Belts  []beltDoc `json:"belts" yaml:"belts"`
	Bodies []bodyDoc `json:"bodies" yaml:"bodies"`
}

type starDoc struct {
	Name          string  `json:"name" yaml:"name"`
	Radius        float64 `json:"radius" yaml:"radius"`
	RotationRate  float64 `json:"rotation_rate" yaml:"rotation_rate"`
	EmissiveColor uint32  `json:"emissive_color" yaml:"emissive_color"`
	Texture       string  `json:"texture" yaml:"texture"`
}

type beltDoc struct {
	Name           string  `json:"name" yaml:"name"`
	Count          int     `json:"count" yaml:"count"`
	MinRadius      float64 `json:"min_radius" yaml:"min_radius"`
	MaxRadius      float64 `json:"max_radius" yaml:"max_radius"`
	RevolutionRate float64 `json:"revolution_rate" yaml:"revolution_rate"`
	Seed           uint64  `json:"seed" yaml:"seed"`
}

type bodyDoc struct {
	Name           string         `json:"name" yaml:"name"`
	Radius         float64        `json:"radius" yaml:"radius"`
	OrbitDistance  float64        `json:"orbit_distance" yaml:"orbit_distance"`
	Tilt           float64        `json:"tilt" yaml:"tilt"`
	RotationRate   float64        `json:"rotation_rate" yaml:"rotation_rate"`
	RevolutionRate float64        `json:"revolution_rate" yaml:"revolution_rate"`
	CameraOffset   float64        `json:"camera_offset" yaml:"camera_offset"`
	Texture        string         `json:"texture" yaml:"texture"`
	BumpMap        string         `json:"bump_map" yaml:"bump_map"`
	Color          uint32         `json:"color" yaml:"color"`
	Ring           *ringDoc       `json:"ring" yaml:"ring"`
	Atmosphere     *atmosphereDoc `json:"atmosphere" yaml:"atmosphere"`
	Satellites     []satelliteDoc `json:"satellites" yaml:"satellites"`
	Info           *infoDoc       `json:"info" yaml:"info"`
}

type ringDoc struct {
	InnerRadius float64 `json:"inner_radius" yaml:"inner_radius"`
	OuterRadius float64 `json:"outer_radius" yaml:"outer_radius"`
	Texture     string  `json:"texture" yaml:"texture"`
}

type atmosphereDoc struct {
	Radius       float64  `json:"radius" yaml:"radius"`
	RotationRate float64  `json:"rotation_rate" yaml:"rotation_rate"`
	Opacity      *float64 `json:"opacity" yaml:"opacity"` // optional; defaults to 0.4
	Texture      string   `json:"texture" yaml:"texture"`
}

type satelliteDoc struct {
	Name        string   `json:"name" yaml:"name"`
	Size        float64  `json:"size" yaml:"size"`
	OrbitRadius float64  `json:"orbit_radius" yaml:"orbit_radius"`
	AngularRate float64  `json:"angular_rate" yaml:"angular_rate"`
	Tilt        *float64 `json:"tilt" yaml:"tilt"`
	SpinRate    float64  `json:"spin_rate" yaml:"spin_rate"`
	Texture     string   `json:"texture" yaml:"texture"`
	BumpMap     string   `json:"bump_map" yaml:"bump_map"`
	TLE         []string `json:"tle" yaml:"tle"`
}

type infoDoc struct {
	Radius   string `json:"radius" yaml:"radius"`
	Tilt     string `json:"tilt" yaml:"tilt"`
	Rotation string `json:"rotation" yaml:"rotation"`
	Orbit    string `json:"orbit" yaml:"orbit"`
	Distance string `json:"distance" yaml:"distance"`
	Moons    string `json:"moons" yaml:"moons"`
	Info     string `json:"info" yaml:"info"`
}

const defaultAtmosphereOpacity = 0.4

// SolarSystem returns a registry populated with the built-in scene.
func SolarSystem() *Registry {
	r := New()
	if _, err := Load(r, bytes.NewReader(solarSystemYAML), FormatYAML); err != nil {
		// The embedded document is part of the binary; failing to read it
		// is a build defect.
		panic(fmt.Errorf("registry: embedded solar system: %w", err))
	}
	return r
}

// LoadFile reads a registry document, choosing the format from the file
// extension (.json, otherwise YAML).
func LoadFile(r *Registry, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %w", err)
	}
	defer f.Close()
	return Load(r, f, FormatForPath(path))
}

// FormatForPath maps a file extension to a Format.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load decodes a registry document from src and adds its contents to r.
//
// Bodies and belts already present in r are skipped rather than rejected so
// that the same document can be re-applied after an edit; only new records
// are added. A malformed record fails the whole load and nothing is applied.
func Load(r *Registry, src io.Reader, format Format) (*Summary, error) {
	if r == nil {
		return nil, fmt.Errorf("Load: registry is nil")
	}

	var doc registryDoc
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(src).Decode(&doc); err != nil {
			return nil, fmt.Errorf("Load: decode json: %w", err)
		}
	case FormatYAML, "":
		if err := yaml.NewDecoder(src).Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("Load: decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("Load: unsupported format %q", format)
	}

	// Check every record before touching r so a bad entry leaves the
	// registry as it was.
	bodies := make([]*model.Body, 0, len(doc.Bodies))
	for _, bd := range doc.Bodies {
		body, err := bd.toModel()
		if err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		if err := Validate(body); err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		bodies = append(bodies, body)
	}
	for _, bd := range doc.Belts {
		if err := ValidateBelt(model.Belt(bd)); err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
	}

	sum := &Summary{}

	if doc.Star != nil {
		r.SetStar(model.Star{
			Name:          doc.Star.Name,
			Radius:        doc.Star.Radius,
			RotationRate:  doc.Star.RotationRate,
			EmissiveColor: doc.Star.EmissiveColor,
			Texture:       doc.Star.Texture,
		})
		sum.Star = true
	}

	for _, bd := range doc.Belts {
		if err := r.AddBelt(model.Belt(bd)); err != nil {
			if errors.Is(err, ErrBeltExists) {
				continue
			}
			return nil, fmt.Errorf("Load: %w", err)
		}
		sum.Belts++
	}

	for i, body := range bodies {
		if err := r.Add(body); err != nil {
			if errors.Is(err, ErrBodyExists) {
				sum.Skipped = append(sum.Skipped, body.Name)
				continue
			}
			return nil, fmt.Errorf("Load: %w", err)
		}
		if info := doc.Bodies[i].Info; info != nil {
			r.SetInfo(body.Name, model.BodyInfo(*info))
		}
		sum.Bodies = append(sum.Bodies, body.Name)
	}

	return sum, nil
}

func (bd bodyDoc) toModel() (*model.Body, error) {
	b := &model.Body{
		Name:                bd.Name,
		Radius:              bd.Radius,
		BaseOrbitDistance:   bd.OrbitDistance,
		AxialTiltDegrees:    bd.Tilt,
		SelfRotationRate:    bd.RotationRate,
		OrbitRevolutionRate: bd.RevolutionRate,
		CameraOffset:        bd.CameraOffset,
		Texture:             bd.Texture,
		BumpMap:             bd.BumpMap,
		Color:               bd.Color,
	}
	if bd.Ring != nil {
		b.Ring = &model.Ring{
			InnerRadius: bd.Ring.InnerRadius,
			OuterRadius: bd.Ring.OuterRadius,
			Texture:     bd.Ring.Texture,
		}
	}
	if bd.Atmosphere != nil {
		opacity := defaultAtmosphereOpacity
		if bd.Atmosphere.Opacity != nil {
			opacity = *bd.Atmosphere.Opacity
		}
		b.Atmosphere = &model.Atmosphere{
			Radius:       bd.Atmosphere.Radius,
			RotationRate: bd.Atmosphere.RotationRate,
			Opacity:      opacity,
			Texture:      bd.Atmosphere.Texture,
		}
	}
	for _, sd := range bd.Satellites {
		sat := model.Satellite{
			Name:        sd.Name,
			Size:        sd.Size,
			OrbitRadius: sd.OrbitRadius,
			AngularRate: sd.AngularRate,
			TiltDegrees: sd.Tilt,
			SpinRate:    sd.SpinRate,
			Texture:     sd.Texture,
			BumpMap:     sd.BumpMap,
		}
		switch len(sd.TLE) {
		case 0:
		case 2:
			sat.TLE = &model.TLE{Line1: sd.TLE[0], Line2: sd.TLE[1]}
		default:
			return nil, fmt.Errorf("%w: %q satellite %q tle needs exactly two lines", ErrBodyInvalid, bd.Name, sd.Name)
		}
		b.Satellites = append(b.Satellites, sat)
	}
	return b, nil
}

// DecodeBody decodes a single body record, in the same shape as one entry
// of a document's bodies list, and validates it. The body is not added to
// any registry.
func DecodeBody(src io.Reader, format Format) (*model.Body, *model.BodyInfo, error) {
	var bd bodyDoc
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(src).Decode(&bd); err != nil {
			return nil, nil, fmt.Errorf("%w: decode json: %v", ErrBodyInvalid, err)
		}
	case FormatYAML, "":
		if err := yaml.NewDecoder(src).Decode(&bd); err != nil {
			return nil, nil, fmt.Errorf("%w: decode yaml: %v", ErrBodyInvalid, err)
		}
	default:
		return nil, nil, fmt.Errorf("DecodeBody: unsupported format %q", format)
	}
	body, err := bd.toModel()
	if err != nil {
		return nil, nil, err
	}
	if err := Validate(body); err != nil {
		return nil, nil, err
	}
	var info *model.BodyInfo
	if bd.Info != nil {
		bi := model.BodyInfo(*bd.Info)
		info = &bi
	}
	return body, info, nil
}
