package render

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// fragmentFn receives one covered pixel with perspective-correct barycentric
// weights for the triangle's three vertices and the screen-space depth in
// [0,1], 0 at the near plane.
type fragmentFn func(x, y int, b0, b1, b2, depth float32)

// rasterTriangle rasterizes one triangle through mvp onto a width x height
// grid. Triangles crossing the near plane and back faces are dropped whole;
// the pipeline's geometry is scene-scale boxes and ground planes for which
// per-triangle near clipping is not worth its complexity.
func rasterTriangle(mvp mgl32.Mat4, p0, p1, p2 mgl32.Vec3, width, height int, frag fragmentFn) {
	c0 := mvp.Mul4x1(p0.Vec4(1))
	c1 := mvp.Mul4x1(p1.Vec4(1))
	c2 := mvp.Mul4x1(p2.Vec4(1))
	if c0.W() < 1e-6 || c1.W() < 1e-6 || c2.W() < 1e-6 {
		return
	}
	w0, w1, w2 := c0.W(), c1.W(), c2.W()
	// Screen coordinates with y growing downward.
	fw, fh := float32(width), float32(height)
	sx0, sy0, z0 := toScreen(c0, fw, fh)
	sx1, sy1, z1 := toScreen(c1, fw, fh)
	sx2, sy2, z2 := toScreen(c2, fw, fh)

	// Both windings rasterize: dividing the edge functions by the signed
	// area normalizes orientation, so no faces are culled.
	area := edge(sx0, sy0, sx1, sy1, sx2, sy2)
	if area == 0 {
		return
	}
	minX := clampi(int(math32.Floor(min3(sx0, sx1, sx2))), 0, width-1)
	maxX := clampi(int(math32.Ceil(max3(sx0, sx1, sx2))), 0, width-1)
	minY := clampi(int(math32.Floor(min3(sy0, sy1, sy2))), 0, height-1)
	maxY := clampi(int(math32.Ceil(max3(sy0, sy1, sy2))), 0, height-1)
	invArea := 1 / area
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			l0 := edge(sx1, sy1, sx2, sy2, px, py) * invArea
			l1 := edge(sx2, sy2, sx0, sy0, px, py) * invArea
			l2 := edge(sx0, sy0, sx1, sy1, px, py) * invArea
			if l0 < 0 || l1 < 0 || l2 < 0 {
				continue
			}
			// Depth interpolates linearly in screen space; attributes
			// need division by clip w to stay perspective correct.
			depth := l0*z0 + l1*z1 + l2*z2
			if depth < 0 || depth > 1 {
				continue
			}
			b0 := l0 / w0
			b1 := l1 / w1
			b2 := l2 / w2
			sum := b0 + b1 + b2
			frag(x, y, b0/sum, b1/sum, b2/sum, depth)
		}
	}
}

func toScreen(c mgl32.Vec4, fw, fh float32) (sx, sy, z01 float32) {
	invW := 1 / c.W()
	ndcX := c.X() * invW
	ndcY := c.Y() * invW
	ndcZ := c.Z() * invW
	return (ndcX*0.5 + 0.5) * fw, (1 - (ndcY*0.5 + 0.5)) * fh, ndcZ*0.5 + 0.5
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func min3(a, b, c float32) float32 { return math32.Min(a, math32.Min(b, c)) }

func max3(a, b, c float32) float32 { return math32.Max(a, math32.Max(b, c)) }
