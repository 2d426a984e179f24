package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/orrery/model"
)

func TestSolarSystemDefaults(t *testing.T) {
	r := SolarSystem()

	var names []string
	for _, b := range r.List() {
		names = append(names, b.Name)
	}
	want := []string{"Mercury", "Venus", "Earth", "Mars", "Jupiter", "Saturn", "Uranus", "Neptune", "Pluto"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("body order mismatch (-want +got):\n%s", diff)
	}

	offsets := map[string]float64{
		"Mercury": 10, "Venus": 25, "Earth": 25, "Mars": 15, "Jupiter": 50,
		"Saturn": 50, "Uranus": 25, "Neptune": 20, "Pluto": 10,
	}
	for name, off := range offsets {
		if got := r.MustGet(name).CameraOffset; got != off {
			t.Errorf("%s camera offset = %v, want %v", name, got, off)
		}
	}

	earth := r.MustGet("Earth")
	if earth.Atmosphere == nil || earth.Atmosphere.Radius != 6.5 || earth.Atmosphere.Opacity != 0.4 {
		t.Fatalf("Earth atmosphere = %+v", earth.Atmosphere)
	}
	if len(earth.Satellites) != 2 || earth.Satellites[0].TiltDegrees == nil || *earth.Satellites[0].TiltDegrees != 5 {
		t.Fatalf("Earth satellites = %+v", earth.Satellites)
	}
	if earth.Satellites[1].TLE == nil {
		t.Fatalf("expected ISS to carry a TLE")
	}

	saturn := r.MustGet("Saturn")
	if saturn.Ring == nil || saturn.Ring.InnerRadius != 18 || saturn.Ring.OuterRadius != 29 {
		t.Fatalf("Saturn ring = %+v", saturn.Ring)
	}

	star, ok := r.Star()
	if !ok || star.EmissiveColor != 0xFFF88F {
		t.Fatalf("star = %+v ok=%v", star, ok)
	}
	if belts := r.Belts(); len(belts) != 2 || belts[1].Count != 3000 {
		t.Fatalf("belts = %+v", belts)
	}

	info, err := r.Info("Pluto")
	if err != nil {
		t.Fatalf("Info(Pluto): %v", err)
	}
	if !strings.Contains(info.Info, "dwarf planet") {
		t.Fatalf("Pluto info = %q", info.Info)
	}
}

func TestLoadJSONAddsOnlyNewBodies(t *testing.T) {
	doc := `{
  "bodies": [
    {"name": "Earth", "radius": 6.4, "orbit_distance": 90},
    {"name": "Demo", "radius": 5, "orbit_distance": 150, "camera_offset": 30,
     "satellites": [{"name": "Pebble", "size": 0.5, "orbit_radius": 8, "angular_rate": 0.001}],
     "info": {"info": "generated"}}
  ]
}`
	r := New()
	if err := r.Add(&model.Body{Name: "Earth", Radius: 6.4, BaseOrbitDistance: 90}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	sum, err := Load(r, strings.NewReader(doc), FormatJSON)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(&Summary{Bodies: []string{"Demo"}, Skipped: []string{"Earth"}}, sum); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	demo := r.MustGet("Demo")
	if demo.CameraOffset != 30 || len(demo.Satellites) != 1 || demo.Satellites[0].TiltDegrees != nil {
		t.Fatalf("Demo = %+v", demo)
	}
	info, _ := r.Info("Demo")
	if info.Info != "generated" {
		t.Fatalf("Demo info = %+v", info)
	}
}

func TestLoadRejectsMalformedBody(t *testing.T) {
	doc := `
bodies:
  - name: Broken
    radius: 0
`
	if _, err := Load(New(), strings.NewReader(doc), FormatYAML); !errors.Is(err, ErrBodyInvalid) {
		t.Fatalf("Load err = %v, want ErrBodyInvalid", err)
	}

	doc = `
bodies:
  - name: HalfTLE
    radius: 1
    satellites:
      - {name: sat, size: 1, orbit_radius: 2, tle: ["only one line"]}
`
	if _, err := Load(New(), strings.NewReader(doc), FormatYAML); !errors.Is(err, ErrBodyInvalid) {
		t.Fatalf("Load err = %v, want ErrBodyInvalid", err)
	}
}

func TestLoadFileByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.json")
	if err := os.WriteFile(path, []byte(`{"bodies":[{"name":"Solo","radius":1,"orbit_distance":20}]}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := New()
	sum, err := LoadFile(r, path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(sum.Bodies) != 1 || r.Len() != 1 {
		t.Fatalf("LoadFile summary = %+v, len = %d", sum, r.Len())
	}

	if got := FormatForPath("scene.YAML"); got != FormatYAML {
		t.Fatalf("FormatForPath(yaml) = %q", got)
	}
}

func TestDecodeBody(t *testing.T) {
	src := `{"name": "Demo", "radius": 4, "orbit_distance": 230, "camera_offset": 30,
		"satellites": [{"name": "Pebble", "size": 0.5, "orbit_radius": 6, "angular_rate": 0.002}],
		"info": {"radius": "4 units", "info": "added at runtime"}}`
	body, info, err := DecodeBody(strings.NewReader(src), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	want := &model.Body{
		Name:              "Demo",
		Radius:            4,
		BaseOrbitDistance: 230,
		CameraOffset:      30,
		Satellites:        []model.Satellite{{Name: "Pebble", Size: 0.5, OrbitRadius: 6, AngularRate: 0.002}},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if info == nil || info.Info != "added at runtime" {
		t.Fatalf("info = %+v", info)
	}

	if _, _, err := DecodeBody(strings.NewReader(`{"name": "Flat", "radius": 0}`), FormatJSON); !errors.Is(err, ErrBodyInvalid) {
		t.Fatalf("zero radius err = %v, want ErrBodyInvalid", err)
	}
	if _, _, err := DecodeBody(strings.NewReader(`{`), FormatJSON); !errors.Is(err, ErrBodyInvalid) {
		t.Fatalf("truncated json err = %v, want ErrBodyInvalid", err)
	}
}

func TestLoadIsAllOrNothing(t *testing.T) {
	r := New()
	doc := `
belts:
  - {name: main, count: 10, min_radius: 130, max_radius: 160}
bodies:
  - name: Beta
    radius: 3
    orbit_distance: 70
  - name: Gamma
    radius: 0
`
	if _, err := Load(r, strings.NewReader(doc), FormatYAML); !errors.Is(err, ErrBodyInvalid) {
		t.Fatalf("Load err = %v, want ErrBodyInvalid", err)
	}
	if r.Len() != 0 || len(r.Belts()) != 0 {
		t.Fatalf("failed load applied %d bodies and %d belts", r.Len(), len(r.Belts()))
	}

	fixed := strings.Replace(doc, "radius: 0", "radius: 1", 1)
	sum, err := Load(r, strings.NewReader(fixed), FormatYAML)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"Beta", "Gamma"}, sum.Bodies); diff != "" {
		t.Fatalf("added bodies mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadReappliedBeltsAreSkipped(t *testing.T) {
	r := New()
	doc := `
belts:
  - {name: main, count: 10, min_radius: 130, max_radius: 160}
`
	for i := 0; i < 3; i++ {
		sum, err := Load(r, strings.NewReader(doc), FormatYAML)
		if err != nil {
			t.Fatalf("Load #%d: %v", i, err)
		}
		want := 0
		if i == 0 {
			want = 1
		}
		if sum.Belts != want {
			t.Fatalf("Load #%d added %d belts, want %d", i, sum.Belts, want)
		}
	}
	if n := len(r.Belts()); n != 1 {
		t.Fatalf("registry holds %d belts after re-applying a one-belt document", n)
	}
}
