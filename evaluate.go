package conemarch

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/conemarch/sceneval"
	"github.com/soypat/geometry/ms3"
)

var errLengthMismatch = errors.New("position and distance buffer length mismatch")

// Frame is a view of a [Scene] frozen at a single scene time. It implements
// the sceneval evaluation interfaces so marchers and render passes need not
// know about scene time at all.
type Frame struct {
	s *Scene
	t float32
}

// Frame returns the scene frozen at time t. The frame aliases the scene's
// node arena and is cheap to create per rendered frame.
func (s *Scene) Frame(t float32) Frame { return Frame{s: s, t: t} }

// Bounds returns the scene bounding box. Valid for all frame times.
func (f Frame) Bounds() ms3.Box { return f.s.Bounds() }

// Evaluate writes the signed distance of the scene surface at each position
// into dist. Scratch buffers for the CSG tree walk are acquired from the
// [sceneval.VecPool] found in userData.
func (f Frame) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(dist) != len(pos) {
		return errLengthMismatch
	}
	vp, err := sceneval.GetVecPool(userData)
	if err != nil {
		return err
	}
	return f.s.evalNode(f.s.root, pos, dist, nil, f.t, vp)
}

// EvaluateColor writes signed distance and blended surface color at each
// position. Colors are meaningful near the surface where the closest-feature
// blend weights are well conditioned.
func (f Frame) EvaluateColor(pos []ms3.Vec, dist []float32, color []ms3.Vec, userData any) error {
	if len(dist) != len(pos) || len(color) != len(pos) {
		return errLengthMismatch
	}
	vp, err := sceneval.GetVecPool(userData)
	if err != nil {
		return err
	}
	return f.s.evalNode(f.s.root, pos, dist, color, f.t, vp)
}

// At evaluates the scene distance and surface color at a single point and
// time. It allocates nothing and is the reference for the vectorized path.
func (s *Scene) At(p ms3.Vec, t float32) (dist float32, color ms3.Vec) {
	return s.at(s.root, p, t)
}

func (s *Scene) at(h NodeHandle, p ms3.Vec, t float32) (float32, ms3.Vec) {
	n := &s.nodes[h]
	if n.kind.isPrimitive() {
		return n.primitiveAt(p), n.color
	}
	switch n.kind {
	case nodeTranslate, nodeOrbit:
		return s.at(n.a, ms3.Sub(p, n.offsetAt(t)), t)
	}
	d1, c1 := s.at(n.a, p, t)
	d2, c2 := s.at(n.b, p, t)
	switch n.kind {
	case nodeUnion:
		if d2 < d1 {
			return d2, c2
		}
		return d1, c1
	case nodeSmoothUnion:
		if n.f0 < epstol {
			if d2 < d1 {
				return d2, c2
			}
			return d1, c1
		}
		d, blend := smoothUnion(n.f0, d1, d2)
		return d, ms3.InterpElem(c2, c1, splat(blend))
	case nodeSmoothDiff:
		if n.f0 < epstol {
			return maxf(d1, -d2), c1
		}
		d, _ := smoothDiff(n.f0, d1, d2)
		return d, c1
	case nodeSmoothIntersect:
		if n.f0 < epstol {
			if d2 > d1 {
				return d2, c2
			}
			return d1, c1
		}
		d, blend := smoothIntersect(n.f0, d1, d2)
		return d, ms3.InterpElem(c2, c1, splat(blend))
	}
	panic("unreachable scene node kind")
}

// evalNode walks the CSG tree over a batch of positions. The distance and
// color buffers for subtree b of binary nodes come from the pool so the
// total scratch footprint is proportional to tree depth, not node count.
func (s *Scene) evalNode(h NodeHandle, pos []ms3.Vec, dist []float32, color []ms3.Vec, t float32, vp *sceneval.VecPool) error {
	n := &s.nodes[h]
	if n.kind.isPrimitive() {
		for i, p := range pos {
			dist[i] = n.primitiveAt(p)
		}
		for i := range color {
			color[i] = n.color
		}
		return nil
	}
	switch n.kind {
	case nodeTranslate, nodeOrbit:
		off := n.offsetAt(t)
		ps := vp.V3.Acquire(len(pos))
		defer vp.V3.Release(ps)
		for i, p := range pos {
			ps[i] = ms3.Sub(p, off)
		}
		return s.evalNode(n.a, ps, dist, color, t, vp)
	}
	db := vp.Float.Acquire(len(pos))
	defer vp.Float.Release(db)
	var cb []ms3.Vec
	if color != nil {
		cb = vp.V3.Acquire(len(pos))
		defer vp.V3.Release(cb)
	}
	err := s.evalNode(n.a, pos, dist, color, t, vp)
	if err != nil {
		return err
	}
	err = s.evalNode(n.b, pos, db, cb, t, vp)
	if err != nil {
		return err
	}
	k := n.f0
	hard := n.kind == nodeUnion || k < epstol
	for i, d1 := range dist {
		d2 := db[i]
		switch {
		case hard:
			if n.kind == nodeSmoothDiff {
				dist[i] = maxf(d1, -d2)
			} else if n.kind == nodeSmoothIntersect {
				dist[i] = maxf(d1, d2)
				if color != nil && d2 > d1 {
					color[i] = cb[i]
				}
			} else if d2 < d1 {
				dist[i] = d2
				if color != nil {
					color[i] = cb[i]
				}
			}
		case n.kind == nodeSmoothUnion:
			d, blend := smoothUnion(k, d1, d2)
			dist[i] = d
			if color != nil {
				color[i] = ms3.InterpElem(cb[i], color[i], splat(blend))
			}
		case n.kind == nodeSmoothDiff:
			dist[i], _ = smoothDiff(k, d1, d2)
		case n.kind == nodeSmoothIntersect:
			d, blend := smoothIntersect(k, d1, d2)
			dist[i] = d
			if color != nil {
				color[i] = ms3.InterpElem(cb[i], color[i], splat(blend))
			}
		}
	}
	return nil
}

func (n *node) offsetAt(t float32) ms3.Vec {
	if n.kind == nodeTranslate {
		return n.v
	}
	sin, cos := math32.Sincos(n.f0*t + n.f1)
	return ms3.Vec{X: n.v.X * cos, Z: n.v.Z * sin}
}

func (n *node) primitiveAt(p ms3.Vec) float32 {
	switch n.kind {
	case nodeSphere:
		return ms3.Norm(p) - n.f0
	case nodeBox:
		q := ms3.Sub(ms3.AbsElem(p), ms3.Scale(0.5, n.v))
		return ms3.Norm(ms3.MaxElem(q, ms3.Vec{})) + minf(q.Max(), 0)
	case nodeTorus:
		q1 := hypotf(p.X, p.Z) - n.f0
		return hypotf(q1, p.Y) - n.f1
	case nodeBoxFrame:
		e, b := boxFrameArgs(n)
		p = ms3.Sub(ms3.AbsElem(p), b)
		q := ms3.AddScalar(-e, ms3.AbsElem(ms3.AddScalar(e, p)))
		s1 := ms3.Norm(ms3.MaxElem(ms3.Vec{X: p.X, Y: q.Y, Z: q.Z}, ms3.Vec{})) + minf(maxf(p.X, maxf(q.Y, q.Z)), 0)
		s2 := ms3.Norm(ms3.MaxElem(ms3.Vec{X: q.X, Y: p.Y, Z: q.Z}, ms3.Vec{})) + minf(maxf(q.X, maxf(p.Y, q.Z)), 0)
		s3 := ms3.Norm(ms3.MaxElem(ms3.Vec{X: q.X, Y: q.Y, Z: p.Z}, ms3.Vec{})) + minf(maxf(q.X, maxf(q.Y, p.Z)), 0)
		return minf(s1, minf(s2, s3))
	case nodePlane:
		return p.Y - n.f0
	}
	panic("unreachable primitive kind")
}

// smoothUnion blends two distances with smoothing radius k and returns the
// blend factor used so callers can mix surface attributes identically.
func smoothUnion(k, d1, d2 float32) (d, h float32) {
	h = clampf(0.5+0.5*(d2-d1)/k, 0, 1)
	return mixf(d2, d1, h) - k*h*(1-h), h
}

func smoothDiff(k, d1, d2 float32) (d, h float32) {
	h = clampf(0.5-0.5*(d2+d1)/k, 0, 1)
	return mixf(d1, -d2, h) + k*h*(1-h), h
}

func smoothIntersect(k, d1, d2 float32) (d, h float32) {
	h = clampf(0.5-0.5*(d2-d1)/k, 0, 1)
	return mixf(d2, d1, h) + k*h*(1-h), h
}

func splat(v float32) ms3.Vec { return ms3.Vec{X: v, Y: v, Z: v} }
