// Package conemarch implements a signed distance field scene description
// for real-time sphere tracing. Scenes are built from closed-form primitives
// combined with smooth constructive solid geometry operations and stored in
// a flat arena of nodes addressed by handles, which makes per-frame scene
// rebuilding cheap and keeps evaluation free of pointer chasing.
//
// Evaluation of a built [Scene] lives in the sceneval package. Ray and cone
// marching over evaluated scenes live in the march package and the
// multi-pass compositing pipeline in the render package.
package conemarch

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

const (
	// epstol is used to check for badly conditioned denominators
	// such as smoothing radii and lengths used for normalization.
	epstol = 6e-7
	// planeSlab is the half-extent reported for unbounded plane primitives
	// so that bounding box arithmetic over scene trees stays finite.
	planeSlab = 1e3
)

// Builder wraps scene construction: primitive and operation node creation
// with validation. Provides error handling strategies with panics or error
// accumulation during scene building.
type Builder struct {
	// NoDimensionPanic controls the error strategy for invalid shape
	// arguments. When false (the default) invalid dimensions panic at the
	// call site. When true errors accumulate and are returned by Err.
	NoDimensionPanic bool

	nodes     []node
	accumErrs []error
}

// Err returns errors accumulated during scene building, or nil if there were none.
func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

// ClearErrors discards accumulated build errors.
func (bld *Builder) ClearErrors() {
	bld.accumErrs = bld.accumErrs[:0]
}

func (bld *Builder) shapeErrorf(msg string, args ...any) {
	if !bld.NoDimensionPanic {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

func (bld *Builder) addNode(n node) NodeHandle {
	bld.nodes = append(bld.nodes, n)
	return NodeHandle(len(bld.nodes) - 1)
}

func (bld *Builder) mustHandle(h NodeHandle, op string) {
	if int(h) < 0 || int(h) >= len(bld.nodes) {
		panic("invalid node handle argument to " + op)
	}
}

func minf(a, b float32) float32 {
	return math32.Min(a, b)
}

func maxf(a, b float32) float32 {
	return math32.Max(a, b)
}

func absf(a float32) float32 {
	return math32.Abs(a)
}

func hypotf(a, b float32) float32 {
	return math32.Hypot(a, b)
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}

func mixf(x, y, a float32) float32 {
	return x*(1-a) + y*a
}
