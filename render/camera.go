package render

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

// Camera is a perspective yaw/pitch camera. Yaw and pitch are in radians;
// zero yaw looks down +Z and positive pitch looks up.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	// FovY is the vertical field of view in radians.
	FovY   float32
	Aspect float32
	Near   float32
	Far    float32
}

// NewCamera returns a camera with a 60 degree vertical field of view and
// sane clip planes for the given target aspect ratio.
func NewCamera(aspect float32) *Camera {
	return &Camera{
		FovY:   mgl32.DegToRad(60),
		Aspect: aspect,
		Near:   0.1,
		Far:    100,
	}
}

// Forward returns the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	cp := math32.Cos(c.Pitch)
	return mgl32.Vec3{
		cp * math32.Sin(c.Yaw),
		math32.Sin(c.Pitch),
		cp * math32.Cos(c.Yaw),
	}
}

// LookAt orients the camera toward target without moving it.
func (c *Camera) LookAt(target mgl32.Vec3) {
	d := target.Sub(c.Position)
	c.Yaw = math32.Atan2(d.X(), d.Z())
	c.Pitch = math32.Atan2(d.Y(), math32.Hypot(d.X(), d.Z()))
}

// View returns the world-to-view matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), mgl32.Vec3{0, 1, 0})
}

// Projection returns the perspective projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

// ViewProjection returns projection times view.
func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// VPWithoutTranslation returns the view-projection with the view translation
// zeroed, so directions transform but positions do not. Backgrounds rendered
// with it stay glued to the horizon as the camera moves.
func (c *Camera) VPWithoutTranslation() mgl32.Mat4 {
	v := c.View()
	v[12], v[13], v[14] = 0, 0, 0
	return c.Projection().Mul4(v)
}

// Uniform is the camera data laid out as shading passes consume it.
// InverseViewProjection unprojects clip coordinates back to world space and
// round-trips with ViewProjection to within floating point tolerance.
type Uniform struct {
	Position              mgl32.Vec4
	ViewProjection        mgl32.Mat4
	InverseViewProjection mgl32.Mat4
	VPWithoutTranslation  mgl32.Mat4
}

// Uniform returns the camera's shading uniform for the current frame.
func (c *Camera) Uniform() Uniform {
	vp := c.ViewProjection()
	return Uniform{
		Position:              c.Position.Vec4(1),
		ViewProjection:        vp,
		InverseViewProjection: vp.Inv(),
		VPWithoutTranslation:  c.VPWithoutTranslation(),
	}
}

// RayDirections fills origins and dirs with one primary ray per pixel of a
// width x height target, rows top to bottom. Both buffers must be of length
// width*height. Directions are unit length.
func (c *Camera) RayDirections(width, height int, origins, dirs []ms3.Vec) error {
	if len(origins) != width*height || len(dirs) != width*height {
		return errTextureSizeMismatch
	}
	u := c.Uniform()
	inv := u.InverseViewProjection
	origin := toMS(u.Position.Vec3())
	for y := 0; y < height; y++ {
		ndcY := 1 - 2*(float32(y)+0.5)/float32(height)
		for x := 0; x < width; x++ {
			ndcX := 2*(float32(x)+0.5)/float32(width) - 1
			i := y*width + x
			origins[i] = origin
			dirs[i] = toMS(c.rayThrough(inv, ndcX, ndcY))
		}
	}
	return nil
}

func (c *Camera) rayThrough(invVP mgl32.Mat4, ndcX, ndcY float32) mgl32.Vec3 {
	p0 := invVP.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	p1 := invVP.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	a := p0.Vec3().Mul(1 / p0.W())
	b := p1.Vec3().Mul(1 / p1.W())
	return b.Sub(a).Normalize()
}

func toMS(v mgl32.Vec3) ms3.Vec { return ms3.Vec{X: v.X(), Y: v.Y(), Z: v.Z()} }

func fromMS(v ms3.Vec) mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }
