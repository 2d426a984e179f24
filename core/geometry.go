package core

import "math"

// Vec3 is a point or direction in scene units. +Y is the world vertical
// axis; orbits lie in the XZ plane.
type Vec3 struct {
	X, Y, Z float64
}

// Origin is the scene centre where the star sits.
var Origin = Vec3{}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns v × other.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector along v. The zero vector stays zero.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Lerp moves v towards target by fraction alpha of the remaining distance.
func (v Vec3) Lerp(target Vec3, alpha float64) Vec3 {
	return Vec3{
		X: v.X + (target.X-v.X)*alpha,
		Y: v.Y + (target.Y-v.Y)*alpha,
		Z: v.Z + (target.Z-v.Z)*alpha,
	}
}

// RotateY rotates v about the world vertical axis by angle radians, using
// the right-handed convention: +X turns towards -Z.
func (v Vec3) RotateY(angle float64) Vec3 {
	s, c := math.Sincos(angle)
	return Vec3{
		X: v.X*c + v.Z*s,
		Y: v.Y,
		Z: -v.X*s + v.Z*c,
	}
}

// Euler is an XYZ rotation in radians.
type Euler struct {
	X, Y, Z float64
}

// Transform is a node's position and orientation relative to its parent.
type Transform struct {
	Position Vec3
	Rotation Euler
}

// Ray is a half-line starting at Origin along unit Direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectSphere returns the nearest non-negative ray parameter at which
// the ray enters (or, from inside, leaves) the sphere.
func (r Ray) IntersectSphere(center Vec3, radius float64) (float64, bool) {
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Direction)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
