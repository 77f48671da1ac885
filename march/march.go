// Package march implements sphere tracing and cone marching over vectorized
// signed distance fields, along with the screen-space shading estimators
// that sample the field directly: ambient occlusion, soft shadows and
// fresnel reflectance.
package march

import (
	"errors"

	"github.com/soypat/conemarch/sceneval"
	"github.com/soypat/geometry/ms3"
)

// Miss is the sentinel depth stored for rays that exit the scene without
// hitting a surface.
const Miss float32 = -1.0

var (
	errBufferMismatch = errors.New("ray buffer length mismatch")
	errBadMaxDist     = errors.New("zero or negative maximum trace distance")
)

// Config parametrizes sphere tracing.
type Config struct {
	// MaxSteps bounds field evaluations per ray. Zero means 100.
	MaxSteps int
	// Eps scales the hit threshold: a ray at depth t hits when the field
	// drops below Eps*t, so the acceptance band widens with distance to
	// match the shrinking screen-space size of far geometry. Zero means 1e-3.
	Eps float32
	// MaxDist is the far limit beyond which rays are misses.
	MaxDist float32
}

func (cfg *Config) defaults() error {
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 100
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-3
	}
	if cfg.MaxDist <= 0 {
		return errBadMaxDist
	}
	return nil
}

// Trace sphere-traces rays through the field. On input t holds per-ray
// starting depths, typically zero or the hints produced by [ConeMarch].
// On output t holds hit depths, with [Miss] stored for rays that exhausted
// their step budget or left the scene. Rays whose input depth is already
// [Miss] are skipped.
func Trace(sdf sceneval.SDF3, origins, dirs []ms3.Vec, t []float32, cfg Config, userData any) error {
	if len(origins) != len(dirs) || len(origins) != len(t) {
		return errBufferMismatch
	}
	err := cfg.defaults()
	if err != nil {
		return err
	}
	vp, err := sceneval.GetVecPool(userData)
	if err != nil {
		return err
	}
	pos := vp.V3.Acquire(len(t))
	dist := vp.Float.Acquire(len(t))
	defer vp.V3.Release(pos)
	defer vp.Float.Release(dist)

	active := make([]int32, 0, len(t))
	for i := range t {
		if t[i] != Miss {
			active = append(active, int32(i))
		}
	}
	for step := 0; step < cfg.MaxSteps && len(active) > 0; step++ {
		for k, i := range active {
			pos[k] = ms3.Add(origins[i], ms3.Scale(t[i], dirs[i]))
		}
		err = sdf.Evaluate(pos[:len(active)], dist[:len(active)], userData)
		if err != nil {
			return err
		}
		keep := active[:0]
		for k, i := range active {
			d := dist[k]
			if d < cfg.Eps*t[i] {
				continue // Hit, depth stays put.
			}
			t[i] += d
			if t[i] > cfg.MaxDist {
				t[i] = Miss
				continue
			}
			keep = append(keep, i)
		}
		active = keep
	}
	// Step budget exhausted without converging counts as a miss.
	for _, i := range active {
		t[i] = Miss
	}
	return nil
}

// ConeConfig parametrizes a cone marching pass.
type ConeConfig struct {
	// TanHalf is the tangent of the cone half-angle, i.e. the cone radius
	// at unit depth. For a depth prepass at a given pyramid level this is
	// half the world-space footprint of one coarse pixel at unit depth.
	TanHalf float32
	// MaxSteps bounds field evaluations per cone. Zero means 100.
	MaxSteps int
	// MaxDist is the far limit. Cones reaching it are marked [Miss].
	MaxDist float32
}

// ConeMarch advances each cone axis while the whole cone cross-section
// provably remains in empty space, producing a conservative lower bound of
// the surface depth along every ray contained in the cone. On input t holds
// starting depths from a coarser level (zero for the coarsest); on output t
// holds advanced depths, never past the surface, or [Miss] for cones whose
// axis left the scene, meaning no ray inside the cone can hit before
// MaxDist. Rays whose input depth is already [Miss] are skipped, so coarse
// misses propagate through finer levels down to the final trace.
func ConeMarch(sdf sceneval.SDF3, origins, dirs []ms3.Vec, t []float32, cfg ConeConfig, userData any) error {
	if len(origins) != len(dirs) || len(origins) != len(t) {
		return errBufferMismatch
	}
	if cfg.TanHalf <= 0 {
		return errors.New("zero or negative cone half-angle tangent")
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 100
	}
	if cfg.MaxDist <= 0 {
		return errBadMaxDist
	}
	vp, err := sceneval.GetVecPool(userData)
	if err != nil {
		return err
	}
	pos := vp.V3.Acquire(len(t))
	dist := vp.Float.Acquire(len(t))
	defer vp.V3.Release(pos)
	defer vp.Float.Release(dist)

	active := make([]int32, 0, len(t))
	for i := range t {
		if t[i] != Miss {
			active = append(active, int32(i))
		}
	}
	for step := 0; step < cfg.MaxSteps && len(active) > 0; step++ {
		for k, i := range active {
			pos[k] = ms3.Add(origins[i], ms3.Scale(t[i], dirs[i]))
		}
		err = sdf.Evaluate(pos[:len(active)], dist[:len(active)], userData)
		if err != nil {
			return err
		}
		keep := active[:0]
		for k, i := range active {
			d := dist[k]
			r := t[i] * cfg.TanHalf
			// Advancing by d-r keeps every point of the cross-section
			// outside the surface. Once the field shrinks to the cone
			// radius the cone cannot safely advance further.
			adv := d - r
			if adv <= r*1e-2 {
				continue
			}
			t[i] += adv
			if t[i] >= cfg.MaxDist {
				t[i] = Miss
				continue
			}
			keep = append(keep, i)
		}
		active = keep
	}
	return nil
}
