package render

import "github.com/go-gl/mathgl/mgl32"

// BackgroundPass fills pixels left empty by earlier passes with a vertical
// sky gradient. Directions are derived from the camera's view-projection
// without translation so the horizon stays fixed as the camera moves.
type BackgroundPass struct {
	depth  ResourceID
	target ResourceID
	// Zenith and Horizon are the gradient endpoint colors.
	Zenith  mgl32.Vec3
	Horizon mgl32.Vec3
}

// NewBackgroundPass returns a background pass writing sky color into target
// wherever depth still holds its cleared far value.
func NewBackgroundPass(depth, target ResourceID) *BackgroundPass {
	return &BackgroundPass{
		depth:   depth,
		target:  target,
		Zenith:  mgl32.Vec3{0.25, 0.45, 0.85},
		Horizon: mgl32.Vec3{0.85, 0.88, 0.95},
	}
}

func (bp *BackgroundPass) Name() string { return "background" }

func (bp *BackgroundPass) Reads() []ResourceID { return []ResourceID{bp.depth} }

func (bp *BackgroundPass) Writes() []ResourceID { return []ResourceID{bp.target} }

func (bp *BackgroundPass) validate(st *Storage) error {
	dep := st.MustTexture(bp.depth)
	target := st.MustTexture(bp.target)
	if dep.Width() != target.Width() || dep.Height() != target.Height() {
		return errTextureSizeMismatch
	}
	if dep.Format() != R32Float || target.Format() != RGBA32Float {
		return errTextureFormat
	}
	return nil
}

func (bp *BackgroundPass) Execute(fc *FrameContext) error {
	depTex := fc.Storage.MustTexture(bp.depth)
	target, err := fc.Storage.Texture(bp.target)
	if err != nil {
		return err
	}
	width, height := target.Width(), target.Height()
	inv := fc.Camera.Uniform().VPWithoutTranslation.Inv()
	parallelRows(height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			ndcY := 1 - 2*(float32(y)+0.5)/float32(height)
			for x := 0; x < width; x++ {
				if depTex.LoadR(x, y) != farDepth {
					continue
				}
				ndcX := 2*(float32(x)+0.5)/float32(width) - 1
				d4 := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
				dir := d4.Vec3().Mul(1 / d4.W()).Normalize()
				k := clampf(dir.Y()*0.5+0.5, 0, 1)
				c := bp.Horizon.Mul(1 - k).Add(bp.Zenith.Mul(k))
				target.Store(x, y, [4]float32{c.X(), c.Y(), c.Z(), 1})
			}
		}
	})
	return nil
}
