package render

import "github.com/go-gl/mathgl/mgl32"

// Transform composes translation, rotation and scale into model matrices.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix returns the model matrix, scale applied first, translation last.
func (t Transform) Matrix() mgl32.Mat4 {
	tr := mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z())
	sc := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return tr.Mul4(t.Rotation.Mat4()).Mul4(sc)
}

// NormalMatrix returns the rotation-only matrix used to transform normals
// and tangents. Valid for uniform scaling.
func (t Transform) NormalMatrix() mgl32.Mat4 {
	return t.Rotation.Mat4()
}
