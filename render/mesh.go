package render

import "github.com/go-gl/mathgl/mgl32"

// Vertex carries the attributes interpolated by the geometry pass.
// Tangent spans the U texture direction and together with the normal
// defines the tangent basis used for normal mapping.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Tangent  mgl32.Vec3
	UV       mgl32.Vec2
}

// Mesh is indexed triangle geometry. Indices come in triples.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Material describes a surface for the deferred lighting pass. When
// NormalMap is non-nil its RGB texels are tangent-space normals mapped from
// [0,1] to [-1,1].
type Material struct {
	Albedo    mgl32.Vec3
	Shininess float32
	NormalMap *Texture
}

// Model places a mesh in the world with a material.
type Model struct {
	Mesh      *Mesh
	Material  Material
	Transform Transform
}

// NewPlaneMesh returns a size x size quad in the XZ plane facing +Y,
// centered at the origin, with UVs spanning the quad once.
func NewPlaneMesh(size float32) *Mesh {
	h := size / 2
	up := mgl32.Vec3{0, 1, 0}
	tan := mgl32.Vec3{1, 0, 0}
	return &Mesh{
		Vertices: []Vertex{
			{Position: mgl32.Vec3{-h, 0, -h}, Normal: up, Tangent: tan, UV: mgl32.Vec2{0, 0}},
			{Position: mgl32.Vec3{h, 0, -h}, Normal: up, Tangent: tan, UV: mgl32.Vec2{1, 0}},
			{Position: mgl32.Vec3{h, 0, h}, Normal: up, Tangent: tan, UV: mgl32.Vec2{1, 1}},
			{Position: mgl32.Vec3{-h, 0, h}, Normal: up, Tangent: tan, UV: mgl32.Vec2{0, 1}},
		},
		Indices: []uint32{0, 2, 1, 0, 3, 2},
	}
}

// NewCubeMesh returns a size-edged cube centered at the origin with per-face
// normals, tangents and UVs.
func NewCubeMesh(size float32) *Mesh {
	h := size / 2
	type face struct {
		normal, tangent mgl32.Vec3
	}
	faces := []face{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}},
	}
	m := &Mesh{}
	for _, f := range faces {
		bitan := f.normal.Cross(f.tangent)
		base := uint32(len(m.Vertices))
		corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
		for c, k := range corners {
			p := f.normal.Mul(h).Add(f.tangent.Mul(k[0] * h)).Add(bitan.Mul(k[1] * h))
			m.Vertices = append(m.Vertices, Vertex{
				Position: p,
				Normal:   f.normal,
				Tangent:  f.tangent,
				UV:       uvs[c],
			})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}
