package render

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// PointLight is an omnidirectional light with quadratic distance
// attenuation 1/(constant + linear*d + quadratic*d²).
type PointLight struct {
	Position  mgl32.Vec3
	Color     mgl32.Vec3
	Constant  float32
	Linear    float32
	Quadratic float32
}

// NewPointLight returns a point light with attenuation coefficients
// covering roughly a 50 unit radius.
func NewPointLight(position, color mgl32.Vec3) PointLight {
	return PointLight{
		Position:  position,
		Color:     color,
		Constant:  1,
		Linear:    0.09,
		Quadratic: 0.032,
	}
}

// Attenuation returns the intensity falloff at distance d.
func (l PointLight) Attenuation(d float32) float32 {
	return 1 / (l.Constant + l.Linear*d + l.Quadratic*d*d)
}

// DirectionalLight models a light infinitely far away, such as the sun.
// Direction points from the light toward the scene and must be unit length.
type DirectionalLight struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec3
}

// ShadowViewProjection returns the orthographic light matrix covering a
// sphere of the given radius around center, for rendering the shadow map.
func (l DirectionalLight) ShadowViewProjection(center mgl32.Vec3, radius float32) mgl32.Mat4 {
	eye := center.Sub(l.Direction.Mul(2 * radius))
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(l.Direction.Y()) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	view := mgl32.LookAtV(eye, center, up)
	proj := mgl32.Ortho(-radius, radius, -radius, radius, 0.1, 4*radius)
	return proj.Mul4(view)
}

// SpotLight is a point light restricted to a cone. CosInner and CosOuter
// are cosines of the cone half-angles; intensity fades smoothly between
// them. Direction points away from the light and must be unit length.
type SpotLight struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	CosInner  float32
	CosOuter  float32
	Constant  float32
	Linear    float32
	Quadratic float32
}

// NewSpotLight returns a spot light with the given cone half-angles in
// radians and default attenuation coefficients.
func NewSpotLight(position, direction, color mgl32.Vec3, inner, outer float32) SpotLight {
	return SpotLight{
		Position:  position,
		Direction: direction,
		Color:     color,
		CosInner:  math32.Cos(inner),
		CosOuter:  math32.Cos(outer),
		Constant:  1,
		Linear:    0.09,
		Quadratic: 0.032,
	}
}

// Attenuation returns the intensity falloff at distance d.
func (l SpotLight) Attenuation(d float32) float32 {
	return 1 / (l.Constant + l.Linear*d + l.Quadratic*d*d)
}

// ConeFalloff returns the cone intensity for a fragment in direction
// toFrag from the light, 1 inside the inner cone and 0 outside the outer.
func (l SpotLight) ConeFalloff(toFrag mgl32.Vec3) float32 {
	cos := toFrag.Dot(l.Direction)
	if l.CosInner == l.CosOuter {
		if cos >= l.CosInner {
			return 1
		}
		return 0
	}
	return clampf((cos-l.CosOuter)/(l.CosInner-l.CosOuter), 0, 1)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}
