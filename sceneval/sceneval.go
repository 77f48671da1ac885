// Package sceneval defines vectorized signed distance field evaluation
// interfaces and evaluators that run on CPU or GPU. Evaluators operate on
// batches of positions so the cost of tree traversal and GPU dispatch is
// amortized over many points.
package sceneval

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// SDF3 implements a 3D signed distance field in vectorized
// form suitable for running on GPU.
type SDF3 interface {
	// Evaluate evaluates the signed distance field over pos positions.
	// dist and pos must be of same length. Resulting distances are stored
	// in dist.
	//
	// userData facilitates getting data to the evaluators for use in processing, such as [VecPool].
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() ms3.Box
}

// ColorSDF3 is a [SDF3] that also carries a surface color field. The color
// at a point is the CSG-blended color of the nearest surface feature and is
// only meaningful close to the zero level set.
type ColorSDF3 interface {
	SDF3
	// EvaluateColor evaluates distance and color over pos positions.
	// All three buffers must be of same length.
	EvaluateColor(pos []ms3.Vec, dist []float32, color []ms3.Vec, userData any) error
}

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and distance buffer length mismatch")
)

// NormalsCentralDiff writes the field gradient at each position into
// normals, estimated by central differences with a total probe width of
// step per axis. Costs six batched field evaluations. Gradients are not
// unit length; callers wanting surface normals normalize them afterwards.
func NormalsCentralDiff(s SDF3, pos, normals []ms3.Vec, step float32, userData any) error {
	switch {
	case s == nil:
		return errors.New("nil SDF3")
	case step <= 0:
		return errors.New("step must be positive")
	case len(pos) != len(normals):
		return errMismatchBufferLength
	case len(pos) == 0:
		return errEmptyBuffers
	}
	vp, err := GetVecPool(userData)
	if err != nil {
		return fmt.Errorf("normal estimation needs pooled scratch buffers: %w", err)
	}
	ahead := vp.Float.Acquire(len(pos))
	behind := vp.Float.Acquire(len(pos))
	probe := vp.V3.Acquire(len(pos))
	defer vp.Float.Release(ahead)
	defer vp.Float.Release(behind)
	defer vp.V3.Release(probe)

	h := step * 0.5
	offsets := [3]ms3.Vec{{X: h}, {Y: h}, {Z: h}}
	for axis, off := range offsets {
		for i, p := range pos {
			probe[i] = ms3.Add(p, off)
		}
		if err := s.Evaluate(probe, ahead, userData); err != nil {
			return err
		}
		for i, p := range pos {
			probe[i] = ms3.Sub(p, off)
		}
		if err := s.Evaluate(probe, behind, userData); err != nil {
			return err
		}
		switch axis {
		case 0:
			for i := range normals {
				normals[i].X = ahead[i] - behind[i]
			}
		case 1:
			for i := range normals {
				normals[i].Y = ahead[i] - behind[i]
			}
		case 2:
			for i := range normals {
				normals[i].Z = ahead[i] - behind[i]
			}
		}
	}
	return nil
}

// SDF3CPU wraps a [SDF3] with an owned [VecPool] so callers may pass nil
// userData. It keeps an evaluation count for profiling.
type SDF3CPU struct {
	SDF   SDF3
	vp    VecPool
	evals uint64
}

// NewCPUSDF3 wraps an SDF3 for CPU evaluation with self-provided scratch buffers.
func NewCPUSDF3(s SDF3) (*SDF3CPU, error) {
	if s == nil {
		return nil, errors.New("nil SDF3")
	}
	return &SDF3CPU{SDF: s}, nil
}

// Evaluate implements [SDF3]. If userData is nil the wrapper's own pool is used.
func (sdf *SDF3CPU) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	if userData == nil {
		userData = &sdf.vp
	}
	err := sdf.SDF.Evaluate(pos, dist, userData)
	sdf.evals += uint64(len(pos))
	if err2 := sdf.vp.AssertAllReleased(); err2 != nil {
		if err != nil {
			return fmt.Errorf("%s: %w", err2.Error(), err)
		}
		return err2
	}
	return err
}

// Bounds returns the wrapped SDF's bounding box.
func (sdf *SDF3CPU) Bounds() ms3.Box { return sdf.SDF.Bounds() }

// VecPool returns the wrapper's scratch buffer pool. Implements the
// interface looked up by [GetVecPool].
func (sdf *SDF3CPU) VecPool() *VecPool { return &sdf.vp }

// Evaluations returns the total positions evaluated over the wrapper's lifetime.
func (sdf *SDF3CPU) Evaluations() uint64 { return sdf.evals }

// ColorSDF3CPU wraps a [ColorSDF3] the way [SDF3CPU] wraps a [SDF3].
type ColorSDF3CPU struct {
	SDF   ColorSDF3
	vp    VecPool
	evals uint64
}

// NewCPUColorSDF3 wraps a ColorSDF3 for CPU evaluation with self-provided scratch buffers.
func NewCPUColorSDF3(s ColorSDF3) (*ColorSDF3CPU, error) {
	if s == nil {
		return nil, errors.New("nil ColorSDF3")
	}
	return &ColorSDF3CPU{SDF: s}, nil
}

// Evaluate implements [SDF3].
func (sdf *ColorSDF3CPU) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	if userData == nil {
		userData = &sdf.vp
	}
	err := sdf.SDF.Evaluate(pos, dist, userData)
	sdf.evals += uint64(len(pos))
	return errOrUnreleased(err, &sdf.vp)
}

// EvaluateColor implements [ColorSDF3].
func (sdf *ColorSDF3CPU) EvaluateColor(pos []ms3.Vec, dist []float32, color []ms3.Vec, userData any) error {
	if len(pos) != len(dist) || len(pos) != len(color) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	if userData == nil {
		userData = &sdf.vp
	}
	err := sdf.SDF.EvaluateColor(pos, dist, color, userData)
	sdf.evals += uint64(len(pos))
	return errOrUnreleased(err, &sdf.vp)
}

// Bounds returns the wrapped SDF's bounding box.
func (sdf *ColorSDF3CPU) Bounds() ms3.Box { return sdf.SDF.Bounds() }

// VecPool returns the wrapper's scratch buffer pool.
func (sdf *ColorSDF3CPU) VecPool() *VecPool { return &sdf.vp }

// Evaluations returns the total positions evaluated over the wrapper's lifetime.
func (sdf *ColorSDF3CPU) Evaluations() uint64 { return sdf.evals }

func errOrUnreleased(err error, vp *VecPool) error {
	if err2 := vp.AssertAllReleased(); err2 != nil {
		if err != nil {
			return fmt.Errorf("%s: %w", err2.Error(), err)
		}
		return err2
	}
	return err
}
