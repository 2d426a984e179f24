package core

import "sync"

// Limits for the user-tunable controls.
const (
	MinRateMultiplier = 0.0
	MaxRateMultiplier = 10.0
	MinLightIntensity = 1.0
	MaxLightIntensity = 10.0

	DefaultLightIntensity = 1.9
)

// RateSettings holds the global rate multipliers and star light intensity.
// One instance is shared by pointer between the integrator, the camera
// controller and the scene; setters clamp to the documented ranges.
type RateSettings struct {
	mu             sync.RWMutex
	orbital        float64
	rotation       float64
	lightIntensity float64

	lightListeners []func(float64)
}

// NewRateSettings returns settings at their defaults: both multipliers at 1
// and the light at DefaultLightIntensity.
func NewRateSettings() *RateSettings {
	return &RateSettings{
		orbital:        1,
		rotation:       1,
		lightIntensity: DefaultLightIntensity,
	}
}

// OrbitalMultiplier scales planet revolution.
func (s *RateSettings) OrbitalMultiplier() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orbital
}

// RotationMultiplier scales self-rotation.
func (s *RateSettings) RotationMultiplier() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rotation
}

// LightIntensity is the star's emissive intensity.
func (s *RateSettings) LightIntensity() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lightIntensity
}

// SetOrbitalMultiplier clamps v to [0,10] and returns the stored value.
func (s *RateSettings) SetOrbitalMultiplier(v float64) float64 {
	v = clamp(v, MinRateMultiplier, MaxRateMultiplier)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orbital = v
	return v
}

// SetRotationMultiplier clamps v to [0,10] and returns the stored value.
func (s *RateSettings) SetRotationMultiplier(v float64) float64 {
	v = clamp(v, MinRateMultiplier, MaxRateMultiplier)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = v
	return v
}

// SetLightIntensity clamps v to [1,10], notifies light listeners and
// returns the stored value.
func (s *RateSettings) SetLightIntensity(v float64) float64 {
	v = clamp(v, MinLightIntensity, MaxLightIntensity)
	s.mu.Lock()
	s.lightIntensity = v
	listeners := append([]func(float64){}, s.lightListeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
	return v
}

// OnLightChange registers fn to be called after each SetLightIntensity.
func (s *RateSettings) OnLightChange(fn func(float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lightListeners = append(s.lightListeners, fn)
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
