//go:build tinygo || !cgo

package sceneval

import (
	"errors"
	"io"

	"github.com/soypat/geometry/ms3"
)

var errNoCGO = errors.New("GPU evaluation requires CGo and is not supported on TinyGo")

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// NewComputeSDF3 instantiates a [SDF3] that runs on the GPU.
func NewComputeSDF3(glglSourceCode io.Reader, bb ms3.Box) (*SDF3Compute, error) {
	return nil, errNoCGO
}

// SDF3Compute evaluates a signed distance field on the GPU.
type SDF3Compute struct {
	bb ms3.Box
}

func (sdf *SDF3Compute) Bounds() ms3.Box {
	return sdf.bb
}

// SetTime sets the scene time uniform for animated scenes.
func (sdf *SDF3Compute) SetTime(t float32) error {
	return errNoCGO
}

func (sdf *SDF3Compute) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	return errNoCGO
}
