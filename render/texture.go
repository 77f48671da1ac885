// Package render implements a multi-pass compositing pipeline over software
// float textures: rasterized geometry and shadow passes feeding a deferred
// Blinn-Phong lighting pass, and sphere tracing passes with a cone marching
// depth prepass for signed distance field scenes. Passes are registered on a
// [Scheduler] which resolves their resource handles against a [Storage]
// arena up front and executes them in registration order each frame.
package render

import (
	"errors"

	"github.com/chewxy/math32"
)

// Format enumerates texel formats of float textures.
type Format uint8

const (
	// RGBA32Float stores four float32 channels per texel.
	RGBA32Float Format = iota
	// R32Float stores one float32 channel per texel. Used for depth and
	// shadow targets.
	R32Float
)

// Channels returns the number of float32 values per texel.
func (f Format) Channels() int {
	if f == R32Float {
		return 1
	}
	return 4
}

// Texture is a 2D float texture living in host memory. Texel (0,0) is the
// top-left corner.
type Texture struct {
	width  int
	height int
	format Format
	pix    []float32
}

// NewTexture allocates a zero-filled texture.
func NewTexture(width, height int, format Format) *Texture {
	if width <= 0 || height <= 0 {
		panic("zero or negative texture dimension")
	}
	return &Texture{
		width:  width,
		height: height,
		format: format,
		pix:    make([]float32, width*height*format.Channels()),
	}
}

func (t *Texture) Width() int     { return t.width }
func (t *Texture) Height() int    { return t.height }
func (t *Texture) Format() Format { return t.format }

// Pix returns the backing texel storage, rows top to bottom, channels
// interleaved.
func (t *Texture) Pix() []float32 { return t.pix }

// Fill sets every channel of every texel to v.
func (t *Texture) Fill(v float32) {
	for i := range t.pix {
		t.pix[i] = v
	}
}

// FillRGBA sets every texel of an RGBA texture.
func (t *Texture) FillRGBA(r, g, b, a float32) {
	for i := 0; i < len(t.pix); i += 4 {
		t.pix[i+0] = r
		t.pix[i+1] = g
		t.pix[i+2] = b
		t.pix[i+3] = a
	}
}

// Load returns the texel at (x, y). Missing channels read as zero.
func (t *Texture) Load(x, y int) (texel [4]float32) {
	i := (y*t.width + x) * t.format.Channels()
	if t.format == R32Float {
		texel[0] = t.pix[i]
		return texel
	}
	copy(texel[:], t.pix[i:i+4])
	return texel
}

// Store writes the texel at (x, y). Channels beyond the format are dropped.
func (t *Texture) Store(x, y int, texel [4]float32) {
	i := (y*t.width + x) * t.format.Channels()
	if t.format == R32Float {
		t.pix[i] = texel[0]
		return
	}
	copy(t.pix[i:i+4], texel[:])
}

// LoadR returns the first channel at (x, y) without bounds adjustment.
func (t *Texture) LoadR(x, y int) float32 {
	return t.pix[(y*t.width+x)*t.format.Channels()]
}

// StoreR writes the first channel at (x, y).
func (t *Texture) StoreR(x, y int, v float32) {
	t.pix[(y*t.width+x)*t.format.Channels()] = v
}

// SampleClamp returns the texel nearest to normalized coordinates (u, v)
// in [0,1], clamping samples outside the texture to its edge.
func (t *Texture) SampleClamp(u, v float32) [4]float32 {
	x := clampi(int(u*float32(t.width)), 0, t.width-1)
	y := clampi(int(v*float32(t.height)), 0, t.height-1)
	return t.Load(x, y)
}

// LoadRClamp returns the first channel at (x, y) with coordinates clamped
// to the texture edge. Used by filters sampling past borders.
func (t *Texture) LoadRClamp(x, y int) float32 {
	x = clampi(x, 0, t.width-1)
	y = clampi(y, 0, t.height-1)
	return t.LoadR(x, y)
}

var (
	errTextureSizeMismatch = errors.New("texture size mismatch")
	errTextureFormat       = errors.New("unexpected texture format")
)

// CopyFrom copies texel data from src, which must match in size and format.
func (t *Texture) CopyFrom(src *Texture) error {
	if t.width != src.width || t.height != src.height || t.format != src.format {
		return errTextureSizeMismatch
	}
	copy(t.pix, src.pix)
	return nil
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}

// farDepth marks depth texels never written by a pass.
var farDepth = math32.Inf(1)
