package conemarch

import "github.com/soypat/geometry/ms3"

// Sphere creates a sphere primitive centered at the origin of radius r with
// a flat surface color.
func (bld *Builder) Sphere(r float32, color ms3.Vec) NodeHandle {
	if r <= 0 {
		bld.shapeErrorf("zero or negative sphere radius")
	}
	return bld.addNode(node{kind: nodeSphere, a: invalidHandle, b: invalidHandle, f0: r, color: color})
}

// Box creates a box primitive centered at the origin with x,y,z dimensions.
func (bld *Builder) Box(x, y, z float32, color ms3.Vec) NodeHandle {
	if x <= 0 || y <= 0 || z <= 0 {
		bld.shapeErrorf("zero or negative box dimension")
	}
	return bld.addNode(node{kind: nodeBox, a: invalidHandle, b: invalidHandle, v: ms3.Vec{X: x, Y: y, Z: z}, color: color})
}

// Torus creates a torus primitive from two radii defining the radius across
// the hole (greaterRadius) and the radius of the solid tube (lesserRadius).
// The torus axis is the y axis so the torus rests flat on a ground plane.
func (bld *Builder) Torus(greaterRadius, lesserRadius float32, color ms3.Vec) NodeHandle {
	if greaterRadius <= 0 || lesserRadius <= 0 {
		bld.shapeErrorf("invalid torus parameter")
	}
	if greaterRadius < 2*lesserRadius {
		bld.shapeErrorf("too large torus lesser radius")
	}
	return bld.addNode(node{kind: nodeTorus, a: invalidHandle, b: invalidHandle, f0: greaterRadius, f1: lesserRadius, color: color})
}

// BoxFrame creates a framed box with the frame composed of square beams of
// thickness e.
func (bld *Builder) BoxFrame(dimX, dimY, dimZ, e float32, color ms3.Vec) NodeHandle {
	e /= 2
	if dimX <= 0 || dimY <= 0 || dimZ <= 0 || e <= 0 {
		bld.shapeErrorf("negative or zero BoxFrame dimension")
	}
	d := ms3.Vec{X: dimX, Y: dimY, Z: dimZ}
	if 2*e > d.Min() {
		bld.shapeErrorf("BoxFrame edge thickness too large")
	}
	return bld.addNode(node{kind: nodeBoxFrame, a: invalidHandle, b: invalidHandle, v: d, f0: e, color: color})
}

// Plane creates the horizontal half-space below y = height. Planes are
// unbounded; their reported bounding box is a large finite slab.
func (bld *Builder) Plane(height float32, color ms3.Vec) NodeHandle {
	return bld.addNode(node{kind: nodePlane, a: invalidHandle, b: invalidHandle, f0: height, color: color})
}

// boxFrameArgs mirrors the shader-side parameter preparation: e is already
// halved at build time, the stored dims are full-size.
func boxFrameArgs(n *node) (e float32, b ms3.Vec) {
	dd, e := n.v, n.f0
	dd = ms3.Scale(0.5, dd)
	dd = ms3.AddScalar(-2*e, dd)
	return e, dd
}
