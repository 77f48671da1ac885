package march

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/conemarch/sceneval"
	"github.com/soypat/geometry/ms1"
	"github.com/soypat/geometry/ms3"
)

// ShadowRatio selects the penumbra estimate used by [SoftShadow] at each
// march step. All policies take the minimum of the running shadow factor
// and a ratio of field distance to march depth; they differ in how that
// ratio maps to penumbra width.
type ShadowRatio uint8

const (
	// ShadowRatioScaled is 8*d/t, a wide penumbra that darkens
	// aggressively near contact points. The default.
	ShadowRatioScaled ShadowRatio = iota
	// ShadowRatioPlain is d/t, the raw distance-over-depth bound.
	ShadowRatioPlain
	// ShadowRatioSized is d/(t*size), letting callers dial penumbra
	// width through ShadowConfig.Size.
	ShadowRatioSized
)

// ShadowConfig parametrizes soft shadow marching.
type ShadowConfig struct {
	Policy ShadowRatio
	// Size is the penumbra width parameter for [ShadowRatioSized].
	// Ignored by other policies. Zero means 0.1.
	Size float32
	// TMin offsets the march start off the surface to avoid self-shadowing.
	// Zero means 0.02.
	TMin float32
	// TMax bounds the march toward the light.
	TMax float32
	// MaxSteps bounds field evaluations per shadow ray. Zero means 64.
	MaxSteps int
}

func (cfg *ShadowConfig) defaults() error {
	if cfg.Size == 0 {
		cfg.Size = 0.1
	}
	if cfg.TMin == 0 {
		cfg.TMin = 0.02
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 64
	}
	if cfg.TMax <= cfg.TMin {
		return errors.New("shadow march TMax must exceed TMin")
	}
	return nil
}

func (cfg *ShadowConfig) ratio(d, t float32) float32 {
	switch cfg.Policy {
	case ShadowRatioPlain:
		return d / t
	case ShadowRatioSized:
		return d / (t * cfg.Size)
	}
	return 8 * d / t
}

// SoftShadow marches from each position toward the light and writes a
// shadow factor in [0,1] per position, 0 fully occluded. dir points from
// the surface toward the light and must be unit length. The raw min-ratio
// factor is eased with a smoothstep so penumbra gradients have no
// derivative discontinuity at their edges.
func SoftShadow(sdf sceneval.SDF3, pos []ms3.Vec, dir ms3.Vec, shadow []float32, cfg ShadowConfig, userData any) error {
	if len(pos) != len(shadow) {
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
	samp := vp.V3.Acquire(len(pos))
	dist := vp.Float.Acquire(len(pos))
	depth := vp.Float.Acquire(len(pos))
	defer vp.V3.Release(samp)
	defer vp.Float.Release(dist)
	defer vp.Float.Release(depth)

	active := make([]int32, len(pos))
	for i := range active {
		active[i] = int32(i)
		depth[i] = cfg.TMin
		shadow[i] = 1
	}
	for step := 0; step < cfg.MaxSteps && len(active) > 0; step++ {
		for k, i := range active {
			samp[k] = ms3.Add(pos[i], ms3.Scale(depth[i], dir))
		}
		err = sdf.Evaluate(samp[:len(active)], dist[:len(active)], userData)
		if err != nil {
			return err
		}
		keep := active[:0]
		for k, i := range active {
			d := dist[k]
			if d < 1e-4 {
				shadow[i] = 0
				continue
			}
			shadow[i] = minf(shadow[i], cfg.ratio(d, depth[i]))
			depth[i] += clampf(d, 0.01, 0.2)
			if depth[i] < cfg.TMax {
				keep = append(keep, i)
			}
		}
		active = keep
	}
	for i := range shadow {
		shadow[i] = ms1.SmoothStep(0, 1, shadow[i])
	}
	return nil
}

// AmbientOcclusion estimates occlusion by probing the field at increasing
// distances along each normal with geometrically decaying weights, then
// biases the result with a sky visibility term favoring up-facing surfaces.
// Results in [0,1] are written to occ, 1 fully open. Normals must be unit
// length.
func AmbientOcclusion(sdf sceneval.SDF3, pos, normals []ms3.Vec, occ []float32, userData any) error {
	if len(pos) != len(normals) || len(pos) != len(occ) {
		return errBufferMismatch
	}
	vp, err := sceneval.GetVecPool(userData)
	if err != nil {
		return err
	}
	samp := vp.V3.Acquire(len(pos))
	dist := vp.Float.Acquire(len(pos))
	acc := vp.Float.Acquire(len(pos))
	defer vp.V3.Release(samp)
	defer vp.Float.Release(dist)
	defer vp.Float.Release(acc)

	for i := range acc {
		acc[i] = 0
	}
	const steps = 5
	sca := float32(1.0)
	for step := 0; step < steps; step++ {
		h := 0.01 + 0.12*float32(step)/float32(steps-1)
		for i, p := range pos {
			samp[i] = ms3.Add(p, ms3.Scale(h, normals[i]))
		}
		err = sdf.Evaluate(samp, dist, userData)
		if err != nil {
			return err
		}
		for i, d := range dist {
			acc[i] += (h - d) * sca
		}
		sca *= 0.95
	}
	for i := range occ {
		sky := 0.5 + 0.5*normals[i].Y
		occ[i] = clampf(1-3*acc[i], 0, 1) * sky
	}
	return nil
}

// Fresnel returns the Schlick reflectance approximation for the given
// cosine of the angle between view direction and surface normal, using a
// base reflectance of 0.04.
func Fresnel(cosTheta float32) float32 {
	c := clampf(1-cosTheta, 0, 1)
	c2 := c * c
	return 0.04 + 0.96*c2*c2*c
}

func minf(a, b float32) float32 { return math32.Min(a, b) }

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}
