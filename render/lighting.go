package render

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Lights collects the scene light sources consumed by the lighting pass.
// Fields may be mutated between frames.
type Lights struct {
	Directional *DirectionalLight
	Points      []PointLight
	Spots       []SpotLight
	// Ambient scales the albedo contribution of indirect light.
	Ambient float32
}

// LightingPass shades the G-buffer with Blinn-Phong lighting, sampling the
// shadow map for directional light occlusion. Pixels without geometry are
// left untouched for the background pass.
type LightingPass struct {
	gb     GBuffer
	lights *Lights
	shadow *ShadowPass
	target ResourceID
}

// NewLightingPass returns a lighting pass reading gb and the shadow pass
// output, writing shaded color into target. shadow may be nil, disabling
// directional shadowing.
func NewLightingPass(gb GBuffer, lights *Lights, shadow *ShadowPass, target ResourceID) *LightingPass {
	return &LightingPass{gb: gb, lights: lights, shadow: shadow, target: target}
}

func (lp *LightingPass) Name() string { return "lighting" }

func (lp *LightingPass) Reads() []ResourceID {
	ids := []ResourceID{lp.gb.Position, lp.gb.Normal, lp.gb.Albedo}
	if lp.shadow != nil {
		ids = append(ids, lp.shadow.Map())
	}
	return ids
}

func (lp *LightingPass) Writes() []ResourceID { return []ResourceID{lp.target} }

func (lp *LightingPass) validate(st *Storage) error {
	pos := st.MustTexture(lp.gb.Position)
	for _, id := range []ResourceID{lp.gb.Normal, lp.gb.Albedo, lp.target} {
		if tex := st.MustTexture(id); tex.Width() != pos.Width() || tex.Height() != pos.Height() {
			return errTextureSizeMismatch
		}
	}
	if lp.shadow != nil && st.MustTexture(lp.shadow.Map()).Format() != R32Float {
		return errTextureFormat
	}
	return nil
}

func (lp *LightingPass) Execute(fc *FrameContext) error {
	st := fc.Storage
	posTex := st.MustTexture(lp.gb.Position)
	norTex := st.MustTexture(lp.gb.Normal)
	albTex := st.MustTexture(lp.gb.Albedo)
	target, err := st.Texture(lp.target)
	if err != nil {
		return err
	}
	var shadowMap *Texture
	var lightVP mgl32.Mat4
	if lp.shadow != nil {
		shadowMap = st.MustTexture(lp.shadow.Map())
		lightVP = lp.shadow.ViewProjection()
	}
	camPos := fc.Camera.Uniform().Position.Vec3()
	width, height := target.Width(), target.Height()
	parallelRows(height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < width; x++ {
				p := posTex.Load(x, y)
				if p[3] == 0 {
					continue // No geometry rendered here.
				}
				pos := mgl32.Vec3{p[0], p[1], p[2]}
				n := norTex.Load(x, y)
				normal := mgl32.Vec3{n[0], n[1], n[2]}
				a := albTex.Load(x, y)
				albedo := mgl32.Vec3{a[0], a[1], a[2]}
				shininess := a[3]
				view := camPos.Sub(pos).Normalize()

				color := albedo.Mul(lp.lights.Ambient)
				if lp.lights.Directional != nil {
					lit := blinnPhong(lp.lights.Directional.Direction.Mul(-1),
						lp.lights.Directional.Color, normal, view, albedo, shininess)
					if shadowMap != nil {
						lit = lit.Mul(shadowFactor(shadowMap, lightVP, pos, normal,
							lp.lights.Directional.Direction))
					}
					color = color.Add(lit)
				}
				for i := range lp.lights.Points {
					l := &lp.lights.Points[i]
					toLight := l.Position.Sub(pos)
					d := toLight.Len()
					if d < 1e-6 {
						continue
					}
					lit := blinnPhong(toLight.Mul(1/d), l.Color, normal, view, albedo, shininess)
					color = color.Add(lit.Mul(l.Attenuation(d)))
				}
				for i := range lp.lights.Spots {
					l := &lp.lights.Spots[i]
					toLight := l.Position.Sub(pos)
					d := toLight.Len()
					if d < 1e-6 {
						continue
					}
					cone := l.ConeFalloff(toLight.Mul(-1 / d))
					if cone == 0 {
						continue
					}
					lit := blinnPhong(toLight.Mul(1/d), l.Color, normal, view, albedo, shininess)
					color = color.Add(lit.Mul(l.Attenuation(d) * cone))
				}
				target.Store(x, y, [4]float32{color.X(), color.Y(), color.Z(), 1})
			}
		}
	})
	return nil
}

// blinnPhong returns the diffuse plus specular contribution of one light.
// lightDir points from the surface toward the light.
func blinnPhong(lightDir, lightColor, normal, view, albedo mgl32.Vec3, shininess float32) mgl32.Vec3 {
	ndotl := normal.Dot(lightDir)
	if ndotl <= 0 {
		return mgl32.Vec3{}
	}
	diffuse := mulElem(albedo, lightColor).Mul(ndotl)
	half := lightDir.Add(view).Normalize()
	spec := math32.Pow(math32.Max(normal.Dot(half), 0), math32.Max(shininess, 1))
	return diffuse.Add(lightColor.Mul(spec))
}

// shadowFactor samples a 3x3 percentage-closer filter around the fragment's
// projection into the shadow map. Bias scales with the surface slope
// relative to the light to suppress acne on grazing surfaces without
// detaching contact shadows.
func shadowFactor(shadowMap *Texture, lightVP mgl32.Mat4, pos, normal, lightDir mgl32.Vec3) float32 {
	clip := lightVP.Mul4x1(pos.Vec4(1))
	if clip.W() <= 0 {
		return 1
	}
	invW := 1 / clip.W()
	u := clip.X()*invW*0.5 + 0.5
	v := 1 - (clip.Y()*invW*0.5 + 0.5)
	depth := clip.Z()*invW*0.5 + 0.5
	if u < 0 || u > 1 || v < 0 || v > 1 || depth > 1 {
		return 1
	}
	ndotl := normal.Dot(lightDir.Mul(-1))
	bias := math32.Max(0.001*(1-ndotl), 0.0001)
	w, h := shadowMap.Width(), shadowMap.Height()
	cx := int(u * float32(w))
	cy := int(v * float32(h))
	lit := float32(0)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			stored := shadowMap.LoadRClamp(cx+dx, cy+dy)
			if depth-bias <= stored {
				lit++
			}
		}
	}
	return lit / 9
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}
