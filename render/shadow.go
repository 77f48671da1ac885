package render

import "github.com/go-gl/mathgl/mgl32"

// ShadowPass renders a depth-only view of the models from the directional
// light into a shadow map. The light matrix is recomputed every frame so
// the light direction and covered region may change between frames.
type ShadowPass struct {
	models []*Model
	light  *DirectionalLight
	target ResourceID
	// Center and Radius define the world sphere covered by the map.
	Center mgl32.Vec3
	Radius float32

	lightVP mgl32.Mat4
}

// NewShadowPass registers a size x size R32Float shadow map in storage
// under "shadow.map" and returns a pass rendering models into it from the
// light's point of view, covering a sphere of the given radius at center.
func NewShadowPass(st *Storage, models []*Model, light *DirectionalLight, size int, center mgl32.Vec3, radius float32) *ShadowPass {
	return &ShadowPass{
		models: models,
		light:  light,
		target: st.AddTexture("shadow.map", NewTexture(size, size, R32Float)),
		Center: center,
		Radius: radius,
	}
}

func (sp *ShadowPass) Name() string { return "shadow" }

func (sp *ShadowPass) Reads() []ResourceID { return nil }

func (sp *ShadowPass) Writes() []ResourceID { return []ResourceID{sp.target} }

// Map returns the shadow map handle for the lighting pass.
func (sp *ShadowPass) Map() ResourceID { return sp.target }

// ViewProjection returns the light matrix of the most recently rendered
// frame. The lighting pass uses it to project fragments into the map.
func (sp *ShadowPass) ViewProjection() mgl32.Mat4 { return sp.lightVP }

func (sp *ShadowPass) Execute(fc *FrameContext) error {
	tex := fc.Storage.MustTexture(sp.target)
	tex.Fill(farDepth)
	sp.lightVP = sp.light.ShadowViewProjection(sp.Center, sp.Radius)
	width, height := tex.Width(), tex.Height()
	for _, model := range sp.models {
		mvp := sp.lightVP.Mul4(model.Transform.Matrix())
		mesh := model.Mesh
		for tri := 0; tri+2 < len(mesh.Indices); tri += 3 {
			v0 := mesh.Vertices[mesh.Indices[tri]].Position
			v1 := mesh.Vertices[mesh.Indices[tri+1]].Position
			v2 := mesh.Vertices[mesh.Indices[tri+2]].Position
			rasterTriangle(mvp, v0, v1, v2, width, height,
				func(x, y int, b0, b1, b2, depth float32) {
					if depth < tex.LoadR(x, y) {
						tex.StoreR(x, y, depth)
					}
				})
		}
	}
	return nil
}
