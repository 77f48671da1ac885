package conemarch

import "github.com/soypat/geometry/ms3"

// Union joins two scene subtrees exactly, keeping the color of whichever
// surface is nearest. Is exact.
func (bld *Builder) Union(a, b NodeHandle) NodeHandle {
	bld.mustHandle(a, "Union")
	bld.mustHandle(b, "Union")
	return bld.addNode(node{kind: nodeUnion, a: a, b: b})
}

// SmoothUnion joins the shapes of two subtrees into one with a smoothing
// blend of radius k. Surface colors blend with the same factor as the
// distances so material transitions follow the geometric blend.
func (bld *Builder) SmoothUnion(k float32, a, b NodeHandle) NodeHandle {
	bld.mustHandle(a, "SmoothUnion")
	bld.mustHandle(b, "SmoothUnion")
	if k <= 0 {
		bld.shapeErrorf("zero or negative smoothing radius")
	}
	return bld.addNode(node{kind: nodeSmoothUnion, a: a, b: b, f0: k})
}

// SmoothDifference subtracts b from a with a smoothing blend of radius k.
// The result keeps a's color.
func (bld *Builder) SmoothDifference(k float32, a, b NodeHandle) NodeHandle {
	bld.mustHandle(a, "SmoothDifference")
	bld.mustHandle(b, "SmoothDifference")
	if k <= 0 {
		bld.shapeErrorf("zero or negative smoothing radius")
	}
	return bld.addNode(node{kind: nodeSmoothDiff, a: a, b: b, f0: k})
}

// SmoothIntersect intersects two subtrees with a smoothing blend of radius k.
func (bld *Builder) SmoothIntersect(k float32, a, b NodeHandle) NodeHandle {
	bld.mustHandle(a, "SmoothIntersect")
	bld.mustHandle(b, "SmoothIntersect")
	if k <= 0 {
		bld.shapeErrorf("zero or negative smoothing radius")
	}
	return bld.addNode(node{kind: nodeSmoothIntersect, a: a, b: b, f0: k})
}

// Translate moves the subtree in the given direction and returns the result.
func (bld *Builder) Translate(h NodeHandle, dirX, dirY, dirZ float32) NodeHandle {
	bld.mustHandle(h, "Translate")
	return bld.addNode(node{kind: nodeTranslate, a: h, b: invalidHandle, v: ms3.Vec{X: dirX, Y: dirY, Z: dirZ}})
}

// Orbit translates the subtree along a circular path in the XZ plane as a
// function of scene time: offset(t) = (rx·cos(ω·t+φ), 0, rz·sin(ω·t+φ)).
// It is the only time-varying operation; scenes without Orbit nodes are
// constant in time.
func (bld *Builder) Orbit(h NodeHandle, radiusX, radiusZ, angularVel, phase float32) NodeHandle {
	bld.mustHandle(h, "Orbit")
	if radiusX == 0 && radiusZ == 0 {
		bld.shapeErrorf("zero orbit radius")
	}
	return bld.addNode(node{
		kind: nodeOrbit, a: h, b: invalidHandle,
		v:  ms3.Vec{X: radiusX, Z: radiusZ},
		f0: angularVel, f1: phase,
	})
}
