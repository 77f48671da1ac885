package render

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/conemarch/march"
	"github.com/soypat/conemarch/sceneval"
	"github.com/soypat/geometry/ms3"
)

// FieldFunc yields the scene distance field frozen at a scene time. Scene
// types expose a Frame method matching this signature through a closure.
type FieldFunc func(t float32) sceneval.ColorSDF3

// DepthPyramid is a chain of R32Float depth targets from a coarse level up
// to full resolution, filled front to back by [ConeMarchPass]. Each level's
// texels are conservative lower bounds of surface depth, so any finer level
// may start marching from them, or [march.Miss] for rays proven empty out
// to the far limit, which finer levels and the trace skip outright.
type DepthPyramid struct {
	levels  []ResourceID // Coarsest first, full resolution last.
	widths  []int
	heights []int
}

// NewDepthPyramid registers depth targets halving in resolution from
// width x height down to a coarsest level no wider than coarsest texels,
// named "cone.depth0" (coarsest) upward.
func NewDepthPyramid(st *Storage, width, height, coarsest int) DepthPyramid {
	if coarsest < 1 {
		coarsest = 16
	}
	var ws, hs []int
	w, h := width, height
	for {
		ws = append(ws, w)
		hs = append(hs, h)
		if w <= coarsest || h <= coarsest {
			break
		}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	var dp DepthPyramid
	for i := len(ws) - 1; i >= 0; i-- {
		name := fmt.Sprintf("cone.depth%d", len(ws)-1-i)
		dp.levels = append(dp.levels, st.AddTexture(name, NewTexture(ws[i], hs[i], R32Float)))
		dp.widths = append(dp.widths, ws[i])
		dp.heights = append(dp.heights, hs[i])
	}
	return dp
}

// Levels returns the level handles, coarsest first.
func (dp DepthPyramid) Levels() []ResourceID { return dp.levels }

// Finest returns the full resolution level handle.
func (dp DepthPyramid) Finest() ResourceID { return dp.levels[len(dp.levels)-1] }

// ConeMarchPass fills a [DepthPyramid] by cone marching each level with
// start depths inherited from the previous coarser level. The full
// resolution output lets the subsequent sphere tracing pass skip most of
// the empty space in front of every ray.
type ConeMarchPass struct {
	field   FieldFunc
	pyramid DepthPyramid
	// MaxDist is the far limit of the prepass.
	MaxDist float32
	// MaxSteps bounds field evaluations per cone and level. Zero means 100.
	MaxSteps int

	vp sceneval.VecPool
}

// NewConeMarchPass returns a prepass marching field into pyramid.
func NewConeMarchPass(field FieldFunc, pyramid DepthPyramid, maxDist float32) *ConeMarchPass {
	return &ConeMarchPass{field: field, pyramid: pyramid, MaxDist: maxDist}
}

func (cp *ConeMarchPass) Name() string { return "conemarch" }

func (cp *ConeMarchPass) Reads() []ResourceID { return nil }

func (cp *ConeMarchPass) Writes() []ResourceID { return cp.pyramid.levels }

func (cp *ConeMarchPass) validate(st *Storage) error {
	for i, id := range cp.pyramid.levels {
		tex := st.MustTexture(id)
		if tex.Width() != cp.pyramid.widths[i] || tex.Height() != cp.pyramid.heights[i] {
			return errTextureSizeMismatch
		}
		if tex.Format() != R32Float {
			return errTextureFormat
		}
	}
	return nil
}

func (cp *ConeMarchPass) Execute(fc *FrameContext) error {
	sdf := cp.field(fc.Time)
	var prev *Texture
	for li, id := range cp.pyramid.levels {
		tex := fc.Storage.MustTexture(id)
		w, h := cp.pyramid.widths[li], cp.pyramid.heights[li]
		n := w * h
		origins := cp.vp.V3.Acquire(n)
		dirs := cp.vp.V3.Acquire(n)
		err := fc.Camera.RayDirections(w, h, origins, dirs)
		if err == nil {
			t := tex.Pix()
			if prev == nil {
				for i := range t {
					t[i] = 0
				}
			} else {
				pw, ph := prev.Width(), prev.Height()
				for y := 0; y < h; y++ {
					py := y * ph / h
					for x := 0; x < w; x++ {
						t[y*w+x] = prev.LoadR(x*pw/w, py)
					}
				}
			}
			// Cone half-angle covering one texel of this level out to its
			// corners, so every finer ray through the texel stays inside
			// the cone and may safely resume from its depth.
			tanHalf := math32.Sqrt2 * math32.Tan(fc.Camera.FovY/2) / float32(h)
			err = march.ConeMarch(sdf, origins, dirs, t, march.ConeConfig{
				TanHalf:  tanHalf,
				MaxSteps: cp.MaxSteps,
				MaxDist:  cp.MaxDist,
			}, &cp.vp)
		}
		cp.vp.V3.Release(origins)
		cp.vp.V3.Release(dirs)
		if err != nil {
			return err
		}
		prev = tex
	}
	return nil
}

// TracePass sphere-traces the distance field at full resolution and shades
// hits with ambient occlusion, soft shadows and fresnel on top of the
// scene's directional and point lights. Misses leave the color target
// untouched and mark the depth target far, so a [BackgroundPass] reading
// the same depth target fills the sky behind.
type TracePass struct {
	field  FieldFunc
	start  ResourceID
	lights *Lights
	color  ResourceID
	depth  ResourceID
	// Config parametrizes the sphere tracer.
	Config march.Config
	// Shadow parametrizes the soft shadow march toward the directional light.
	Shadow march.ShadowConfig

	vp sceneval.VecPool
}

// NewTracePass registers a width x height "trace.depth" target and returns
// a pass tracing field into target. prepass may be nil to trace from the
// camera with no depth hints.
func NewTracePass(st *Storage, field FieldFunc, prepass *DepthPyramid, lights *Lights, target ResourceID, width, height int, maxDist float32) *TracePass {
	tp := &TracePass{
		field:  field,
		start:  invalidResource,
		lights: lights,
		color:  target,
		depth:  st.AddTexture("trace.depth", NewTexture(width, height, R32Float)),
		Config: march.Config{MaxDist: maxDist},
		Shadow: march.ShadowConfig{TMax: maxDist},
	}
	if prepass != nil {
		tp.start = prepass.Finest()
	}
	return tp
}

// Depth returns the handle of the ray depth target, far-marked at misses.
func (tp *TracePass) Depth() ResourceID { return tp.depth }

func (tp *TracePass) Name() string { return "trace" }

func (tp *TracePass) Reads() []ResourceID {
	if tp.start == invalidResource {
		return nil
	}
	return []ResourceID{tp.start}
}

func (tp *TracePass) Writes() []ResourceID { return []ResourceID{tp.color, tp.depth} }

func (tp *TracePass) validate(st *Storage) error {
	dep := st.MustTexture(tp.depth)
	target := st.MustTexture(tp.color)
	if target.Width() != dep.Width() || target.Height() != dep.Height() {
		return errTextureSizeMismatch
	}
	if tp.start != invalidResource {
		s := st.MustTexture(tp.start)
		if s.Width() != dep.Width() || s.Height() != dep.Height() || s.Format() != dep.Format() {
			return errTextureSizeMismatch
		}
	}
	return nil
}

func (tp *TracePass) Execute(fc *FrameContext) error {
	sdf := tp.field(fc.Time)
	st := fc.Storage
	depTex := st.MustTexture(tp.depth)
	target, err := st.Texture(tp.color)
	if err != nil {
		return err
	}
	width, height := depTex.Width(), depTex.Height()
	n := width * height
	origins := tp.vp.V3.Acquire(n)
	dirs := tp.vp.V3.Acquire(n)
	defer tp.vp.V3.Release(origins)
	defer tp.vp.V3.Release(dirs)
	err = fc.Camera.RayDirections(width, height, origins, dirs)
	if err != nil {
		return err
	}
	t := depTex.Pix()
	if tp.start != invalidResource {
		err = depTex.CopyFrom(st.MustTexture(tp.start))
		if err != nil {
			return err
		}
	} else {
		for i := range t {
			t[i] = 0
		}
	}
	err = march.Trace(sdf, origins, dirs, t, tp.Config, &tp.vp)
	if err != nil {
		return err
	}
	hits := make([]int32, 0, n)
	for i, ti := range t {
		if ti != march.Miss {
			hits = append(hits, int32(i))
		}
	}
	if len(hits) > 0 {
		err = tp.shadeHits(sdf, target, origins, dirs, t, hits)
		if err != nil {
			return err
		}
	}
	// Mark misses far for the background pass.
	for i, ti := range t {
		if ti == march.Miss {
			t[i] = farDepth
		}
	}
	return nil
}

func (tp *TracePass) shadeHits(sdf sceneval.ColorSDF3, target *Texture, origins, dirs []ms3.Vec, t []float32, hits []int32) error {
	nh := len(hits)
	pos := tp.vp.V3.Acquire(nh)
	normals := tp.vp.V3.Acquire(nh)
	colors := tp.vp.V3.Acquire(nh)
	dist := tp.vp.Float.Acquire(nh)
	occ := tp.vp.Float.Acquire(nh)
	shadow := tp.vp.Float.Acquire(nh)
	defer tp.vp.V3.Release(pos)
	defer tp.vp.V3.Release(normals)
	defer tp.vp.V3.Release(colors)
	defer tp.vp.Float.Release(dist)
	defer tp.vp.Float.Release(occ)
	defer tp.vp.Float.Release(shadow)

	for k, i := range hits {
		pos[k] = ms3.Add(origins[i], ms3.Scale(t[i], dirs[i]))
	}
	err := sceneval.NormalsCentralDiff(sdf, pos, normals, 1e-4, &tp.vp)
	if err != nil {
		return err
	}
	for k := range normals {
		normals[k] = ms3.Unit(normals[k])
	}
	err = sdf.EvaluateColor(pos, dist, colors, &tp.vp)
	if err != nil {
		return err
	}
	err = march.AmbientOcclusion(sdf, pos, normals, occ, &tp.vp)
	if err != nil {
		return err
	}
	dl := tp.lights.Directional
	if dl != nil {
		toLight := ms3.Scale(-1, toMS(dl.Direction))
		err = march.SoftShadow(sdf, pos, toLight, shadow, tp.Shadow, &tp.vp)
		if err != nil {
			return err
		}
	} else {
		for k := range shadow {
			shadow[k] = 1
		}
	}
	width := target.Width()
	for k, i := range hits {
		base := colors[k]
		nor := normals[k]
		view := ms3.Scale(-1, dirs[i])
		col := ms3.Scale(tp.lights.Ambient*occ[k], base)
		if dl != nil {
			toLight := ms3.Scale(-1, toMS(dl.Direction))
			dif := clampf(ms3.Dot(nor, toLight), 0, 1) * shadow[k]
			col = ms3.Add(col, ms3.Scale(dif, ms3.MulElem(base, toMS(dl.Color))))
		}
		for li := range tp.lights.Points {
			l := &tp.lights.Points[li]
			toLight := ms3.Sub(toMS(l.Position), pos[k])
			d := ms3.Norm(toLight)
			if d < 1e-6 {
				continue
			}
			dif := clampf(ms3.Dot(nor, ms3.Scale(1/d, toLight)), 0, 1)
			col = ms3.Add(col, ms3.Scale(dif*l.Attenuation(d), ms3.MulElem(base, toMS(l.Color))))
		}
		fres := march.Fresnel(clampf(ms3.Dot(nor, view), 0, 1))
		col = ms3.AddScalar(fres*0.25*occ[k], col)
		x, y := int(i)%width, int(i)/width
		target.Store(x, y, [4]float32{col.X, col.Y, col.Z, 1})
	}
	return nil
}
