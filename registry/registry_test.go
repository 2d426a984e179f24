package registry

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/orrery/model"
)

func TestRegistryGetUnknownBody(t *testing.T) {
	r := New()
	if _, err := r.Get("Vulcan"); !errors.Is(err, ErrBodyNotFound) {
		t.Fatalf("Get(unknown) err = %v, want ErrBodyNotFound", err)
	}
}

func TestRegistryAddAndList(t *testing.T) {
	r := New()
	for _, name := range []string{"Inner", "Middle", "Outer"} {
		if err := r.Add(&model.Body{Name: name, Radius: 1, BaseOrbitDistance: 10}); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}
	if err := r.Add(&model.Body{Name: "Middle", Radius: 2}); !errors.Is(err, ErrBodyExists) {
		t.Fatalf("duplicate Add err = %v, want ErrBodyExists", err)
	}

	got := r.List()
	if len(got) != 3 {
		t.Fatalf("List() len = %d, want 3", len(got))
	}
	for i, want := range []string{"Inner", "Middle", "Outer"} {
		if got[i].Name != want {
			t.Fatalf("List()[%d] = %s, want %s", i, got[i].Name, want)
		}
	}
}

func TestRegistryAddCopiesRecord(t *testing.T) {
	r := New()
	b := &model.Body{Name: "Mutable", Radius: 1, Satellites: []model.Satellite{{Size: 1, OrbitRadius: 2}}}
	if err := r.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	b.Radius = 99
	b.Satellites[0].Size = 99

	got := r.MustGet("Mutable")
	if got.Radius != 1 || got.Satellites[0].Size != 1 {
		t.Fatalf("registered body changed after caller mutation: %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body *model.Body
		ok   bool
	}{
		{name: "nil", body: nil},
		{name: "empty name", body: &model.Body{Radius: 1}},
		{name: "zero radius", body: &model.Body{Name: "x"}},
		{name: "negative orbit", body: &model.Body{Name: "x", Radius: 1, BaseOrbitDistance: -1}},
		{name: "inverted ring", body: &model.Body{Name: "x", Radius: 1, Ring: &model.Ring{InnerRadius: 5, OuterRadius: 4}}},
		{name: "atmosphere inside body", body: &model.Body{Name: "x", Radius: 2, Atmosphere: &model.Atmosphere{Radius: 1.5}}},
		{name: "bad satellite", body: &model.Body{Name: "x", Radius: 1, Satellites: []model.Satellite{{Size: 1}}}},
		{name: "valid", body: &model.Body{Name: "x", Radius: 1, Ring: &model.Ring{InnerRadius: 2, OuterRadius: 3}}, ok: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.body)
			if tc.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tc.ok && !errors.Is(err, ErrBodyInvalid) {
				t.Fatalf("Validate() = %v, want ErrBodyInvalid", err)
			}
		})
	}
}

func TestRegistrySubscribe(t *testing.T) {
	r := New()
	var seen []string
	unsubscribe := r.Subscribe(func(ev Event) {
		if ev.Type == EventBodyAdded {
			seen = append(seen, ev.Body.Name)
			// Callbacks run outside the lock.
			_ = r.Len()
		}
	})

	if err := r.Add(&model.Body{Name: "First", Radius: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	unsubscribe()
	if err := r.Add(&model.Body{Name: "Second", Radius: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if len(seen) != 1 || seen[0] != "First" {
		t.Fatalf("events = %v, want [First]", seen)
	}
}

func TestRegistryInfo(t *testing.T) {
	r := New()
	if err := r.Add(&model.Body{Name: "Earth", Radius: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	r.SetInfo("Earth", model.BodyInfo{Moons: "1 (Moon)"})

	info, err := r.Info("Earth")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Moons != "1 (Moon)" {
		t.Fatalf("Info().Moons = %q", info.Moons)
	}
	if _, err := r.Info("Nowhere"); !errors.Is(err, ErrBodyNotFound) {
		t.Fatalf("Info(unknown) err = %v, want ErrBodyNotFound", err)
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := New()
	b := &model.Body{
		Name:       "Ringed",
		Radius:     2,
		Ring:       &model.Ring{InnerRadius: 3, OuterRadius: 5},
		Atmosphere: &model.Atmosphere{Radius: 2.1},
		Satellites: []model.Satellite{{Size: 1, OrbitRadius: 4, TiltDegrees: model.Tilt(5)}},
	}
	if err := r.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := r.Get("Ringed")
	if err != nil {
		t.Fatal(err)
	}
	got.Ring.OuterRadius = 99
	got.Atmosphere.Radius = 99
	*got.Satellites[0].TiltDegrees = 99
	r.List()[0].Ring.InnerRadius = 99

	again := r.MustGet("Ringed")
	if again.Ring.InnerRadius != 3 || again.Ring.OuterRadius != 5 || again.Atmosphere.Radius != 2.1 || *again.Satellites[0].TiltDegrees != 5 {
		t.Fatalf("stored body changed through a returned copy: %+v %+v %+v", again.Ring, again.Atmosphere, again.Satellites)
	}
}

func TestRegistryAddBeltRejectsDuplicateName(t *testing.T) {
	r := New()
	belt := model.Belt{Name: "main", Count: 10, MinRadius: 1, MaxRadius: 2}
	if err := r.AddBelt(belt); err != nil {
		t.Fatal(err)
	}
	if err := r.AddBelt(belt); !errors.Is(err, ErrBeltExists) {
		t.Fatalf("second AddBelt err = %v, want ErrBeltExists", err)
	}
	if err := r.AddBelt(model.Belt{Name: "bad", MinRadius: 5, MaxRadius: 1}); !errors.Is(err, ErrBodyInvalid) {
		t.Fatalf("AddBelt err = %v, want ErrBodyInvalid", err)
	}
}
