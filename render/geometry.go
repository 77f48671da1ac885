package render

import "github.com/go-gl/mathgl/mgl32"

// GBuffer bundles the geometry pass attachments. Position texels carry the
// world position in xyz and a validity flag in w; normal texels the world
// normal; albedo texels the surface color in rgb and shininess in a.
type GBuffer struct {
	Position ResourceID
	Normal   ResourceID
	Albedo   ResourceID
	Depth    ResourceID
}

// NewGBuffer registers width x height G-buffer attachments in storage under
// the names "gbuffer.position", "gbuffer.normal", "gbuffer.albedo" and
// "gbuffer.depth".
func NewGBuffer(st *Storage, width, height int) GBuffer {
	return GBuffer{
		Position: st.AddTexture("gbuffer.position", NewTexture(width, height, RGBA32Float)),
		Normal:   st.AddTexture("gbuffer.normal", NewTexture(width, height, RGBA32Float)),
		Albedo:   st.AddTexture("gbuffer.albedo", NewTexture(width, height, RGBA32Float)),
		Depth:    st.AddTexture("gbuffer.depth", NewTexture(width, height, R32Float)),
	}
}

// GeometryPass rasterizes models into the G-buffer. It performs the depth
// test itself so later passes see only the nearest surface per pixel.
type GeometryPass struct {
	models []*Model
	gb     GBuffer
}

// NewGeometryPass returns a geometry pass rendering models into gb. The
// models slice is retained; callers may mutate transforms between frames.
func NewGeometryPass(models []*Model, gb GBuffer) *GeometryPass {
	return &GeometryPass{models: models, gb: gb}
}

func (gp *GeometryPass) Name() string { return "geometry" }

func (gp *GeometryPass) Reads() []ResourceID { return nil }

func (gp *GeometryPass) Writes() []ResourceID {
	return []ResourceID{gp.gb.Position, gp.gb.Normal, gp.gb.Albedo, gp.gb.Depth}
}

func (gp *GeometryPass) validate(st *Storage) error {
	pos := st.MustTexture(gp.gb.Position)
	for _, id := range []ResourceID{gp.gb.Normal, gp.gb.Albedo, gp.gb.Depth} {
		if tex := st.MustTexture(id); tex.Width() != pos.Width() || tex.Height() != pos.Height() {
			return errTextureSizeMismatch
		}
	}
	if st.MustTexture(gp.gb.Depth).Format() != R32Float {
		return errTextureFormat
	}
	return nil
}

func (gp *GeometryPass) Execute(fc *FrameContext) error {
	st := fc.Storage
	posTex := st.MustTexture(gp.gb.Position)
	norTex := st.MustTexture(gp.gb.Normal)
	albTex := st.MustTexture(gp.gb.Albedo)
	depTex := st.MustTexture(gp.gb.Depth)
	posTex.FillRGBA(0, 0, 0, 0)
	norTex.FillRGBA(0, 0, 0, 0)
	albTex.FillRGBA(0, 0, 0, 0)
	depTex.Fill(farDepth)

	width, height := depTex.Width(), depTex.Height()
	vp := fc.Camera.ViewProjection()
	for _, model := range gp.models {
		modelMat := model.Transform.Matrix()
		normalMat := model.Transform.NormalMatrix()
		mvp := vp.Mul4(modelMat)
		mesh := model.Mesh
		mat := &model.Material
		for tri := 0; tri+2 < len(mesh.Indices); tri += 3 {
			v0 := &mesh.Vertices[mesh.Indices[tri]]
			v1 := &mesh.Vertices[mesh.Indices[tri+1]]
			v2 := &mesh.Vertices[mesh.Indices[tri+2]]
			wp0 := modelMat.Mul4x1(v0.Position.Vec4(1)).Vec3()
			wp1 := modelMat.Mul4x1(v1.Position.Vec4(1)).Vec3()
			wp2 := modelMat.Mul4x1(v2.Position.Vec4(1)).Vec3()
			rasterTriangle(mvp, v0.Position, v1.Position, v2.Position, width, height,
				func(x, y int, b0, b1, b2, depth float32) {
					if depth >= depTex.LoadR(x, y) {
						return
					}
					depTex.StoreR(x, y, depth)
					wp := lerp3(wp0, wp1, wp2, b0, b1, b2)
					normal := shadeNormal(mat, normalMat, v0, v1, v2, b0, b1, b2)
					posTex.Store(x, y, [4]float32{wp.X(), wp.Y(), wp.Z(), 1})
					norTex.Store(x, y, [4]float32{normal.X(), normal.Y(), normal.Z(), 0})
					albTex.Store(x, y, [4]float32{mat.Albedo.X(), mat.Albedo.Y(), mat.Albedo.Z(), mat.Shininess})
				})
		}
	}
	return nil
}

// shadeNormal interpolates the vertex tangent basis and perturbs the
// geometric normal with the material normal map when present.
func shadeNormal(mat *Material, normalMat mgl32.Mat4, v0, v1, v2 *Vertex, b0, b1, b2 float32) mgl32.Vec3 {
	n := lerp3(v0.Normal, v1.Normal, v2.Normal, b0, b1, b2)
	n = normalMat.Mul4x1(n.Vec4(0)).Vec3().Normalize()
	if mat.NormalMap == nil {
		return n
	}
	t := lerp3(v0.Tangent, v1.Tangent, v2.Tangent, b0, b1, b2)
	t = normalMat.Mul4x1(t.Vec4(0)).Vec3()
	// Gram-Schmidt keeps the basis orthonormal after interpolation.
	t = t.Sub(n.Mul(t.Dot(n))).Normalize()
	bitan := n.Cross(t)
	uv := v0.UV.Mul(b0).Add(v1.UV.Mul(b1)).Add(v2.UV.Mul(b2))
	texel := mat.NormalMap.SampleClamp(uv.X(), uv.Y())
	tn := mgl32.Vec3{texel[0]*2 - 1, texel[1]*2 - 1, texel[2]*2 - 1}
	return t.Mul(tn.X()).Add(bitan.Mul(tn.Y())).Add(n.Mul(tn.Z())).Normalize()
}

func lerp3(a, b, c mgl32.Vec3, ba, bb, bc float32) mgl32.Vec3 {
	return a.Mul(ba).Add(b.Mul(bb)).Add(c.Mul(bc))
}
