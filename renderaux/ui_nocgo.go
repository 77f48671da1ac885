//go:build tinygo || !cgo

package renderaux

import (
	"context"
	"errors"

	"github.com/soypat/conemarch"
)

// UIConfig parametrizes the interactive viewer.
type UIConfig struct {
	Width  int
	Height int
	// Context cancels the render loop when done. May be nil.
	Context context.Context
}

// UI opens a window raymarching the scene in a fragment shader.
func UI(scene *conemarch.Scene, cfg UIConfig) error {
	return errors.New("interactive viewer requires CGo and is not supported on TinyGo")
}
