// Package renderaux provides higher level helpers around the render
// pipeline: conversion of float textures to images and PNG files, depth
// pyramid debug dumps, frame rate logging and an interactive GLFW viewer
// for distance field scenes.
package renderaux

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/chewxy/math32"
	"github.com/soypat/conemarch/render"
	"golang.org/x/image/draw"
)

// ToImage converts an RGBA32Float texture to an 8-bit image. When gamma is
// true a square root transfer maps linear radiance to display values.
func ToImage(tex *render.Texture, gamma bool) *image.RGBA {
	w, h := tex.Width(), tex.Height()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			texel := tex.Load(x, y)
			if gamma {
				texel[0] = math32.Sqrt(math32.Max(texel[0], 0))
				texel[1] = math32.Sqrt(math32.Max(texel[1], 0))
				texel[2] = math32.Sqrt(math32.Max(texel[2], 0))
			}
			img.SetRGBA(x, y, color.RGBA{
				R: touint8(texel[0]),
				G: touint8(texel[1]),
				B: touint8(texel[2]),
				A: 255,
			})
		}
	}
	return img
}

// DepthToImage converts an R32Float depth texture to a grayscale image,
// mapping [0, maxDepth] to white-to-black so near surfaces render bright.
// Far-marked texels come out black.
func DepthToImage(tex *render.Texture, maxDepth float32) *image.Gray {
	w, h := tex.Width(), tex.Height()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := tex.LoadR(x, y)
			v := 1 - d/maxDepth
			if math32.IsInf(d, 1) || d < 0 {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: touint8(v)})
		}
	}
	return img
}

// WritePNG encodes img to a file.
func WritePNG(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	return png.Encode(fp, img)
}

// RenderPNG converts a color texture and writes it to a PNG file with gamma
// applied.
func RenderPNG(filename string, tex *render.Texture) error {
	return WritePNG(filename, ToImage(tex, true))
}

// DumpPyramid writes every level of a depth pyramid as a grayscale PNG
// upscaled to the finest level's size, named prefix0.png (coarsest) upward.
// Nearest neighbor scaling keeps the coarse texel blocks visible, which is
// the point of the dump.
func DumpPyramid(st *render.Storage, dp render.DepthPyramid, maxDepth float32, prefix string) error {
	levels := dp.Levels()
	finest, err := st.Texture(dp.Finest())
	if err != nil {
		return err
	}
	full := image.Rect(0, 0, finest.Width(), finest.Height())
	for i, id := range levels {
		tex, err := st.Texture(id)
		if err != nil {
			return err
		}
		gray := DepthToImage(tex, maxDepth)
		dst := image.NewGray(full)
		draw.NearestNeighbor.Scale(dst, full, gray, gray.Bounds(), draw.Src, nil)
		err = WritePNG(fmt.Sprintf("%s%d.png", prefix, i), dst)
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendRGBABytes appends the texture as 8-bit RGBA rows to dst, with gamma
// applied, in the layout expected by ebiten's Image.ReplacePixels.
func AppendRGBABytes(dst []byte, tex *render.Texture) []byte {
	w, h := tex.Width(), tex.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			texel := tex.Load(x, y)
			dst = append(dst,
				touint8(math32.Sqrt(math32.Max(texel[0], 0))),
				touint8(math32.Sqrt(math32.Max(texel[1], 0))),
				touint8(math32.Sqrt(math32.Max(texel[2], 0))),
				255,
			)
		}
	}
	return dst
}

func touint8(v float32) uint8 {
	return uint8(255 * clampf(v, 0, 1))
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}
