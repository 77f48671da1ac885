package conemarch

import (
	"errors"

	"github.com/soypat/geometry/ms3"
)

// NodeHandle indexes a node within a [Builder] arena and the [Scene] built
// from it. Handles are only valid for the builder that created them.
type NodeHandle int32

const invalidHandle NodeHandle = -1

type nodeKind uint8

const (
	nodeInvalid nodeKind = iota
	// Primitive leaves.
	nodeSphere
	nodeBox
	nodeTorus
	nodeBoxFrame
	nodePlane
	// Binary operations.
	nodeUnion
	nodeSmoothUnion
	nodeSmoothDiff
	nodeSmoothIntersect
	// Unary spatial operations.
	nodeTranslate
	nodeOrbit
)

func (k nodeKind) isPrimitive() bool { return k >= nodeSphere && k <= nodePlane }
func (k nodeKind) isBinary() bool    { return k >= nodeUnion && k <= nodeSmoothIntersect }

// node is the arena element. Interpretation of the parameter fields depends
// on kind; see the Builder constructors. Keeping all nodes in one flat slice
// avoids pointer cycles and makes per-frame scene rebuilds a single append
// loop over reused backing memory.
type node struct {
	kind  nodeKind
	a, b  NodeHandle
	v     ms3.Vec // dimensions, translation offset or orbit radii.
	f0    float32 // radius, height, smoothing radius or angular velocity.
	f1    float32 // secondary radius, frame thickness or orbit phase.
	color ms3.Vec
}

// Scene is an immutable built scene: a validated node arena plus the root
// of the CSG tree. Evaluation at a (point, time) pair is a pure function;
// Scene holds no mutable state.
type Scene struct {
	nodes []node
	root  NodeHandle
}

var (
	errEmptyScene    = errors.New("scene has no nodes")
	errDanglingNodes = errors.New("scene contains nodes unreachable from root")
)

// Scene finalizes the builder contents into an immutable Scene rooted at
// root. The builder may keep being used afterwards; the returned Scene owns
// a copy of the node arena.
func (bld *Builder) Scene(root NodeHandle) (*Scene, error) {
	if err := bld.Err(); err != nil {
		return nil, err
	}
	if len(bld.nodes) == 0 {
		return nil, errEmptyScene
	}
	bld.mustHandle(root, "Scene")
	nodes := make([]node, len(bld.nodes))
	copy(nodes, bld.nodes)
	s := &Scene{nodes: nodes, root: root}
	if s.reachableFrom(root) != len(nodes) {
		return nil, errDanglingNodes
	}
	return s, nil
}

func (s *Scene) reachableFrom(root NodeHandle) int {
	seen := make([]bool, len(s.nodes))
	var walk func(h NodeHandle)
	walk = func(h NodeHandle) {
		if seen[h] {
			return
		}
		seen[h] = true
		n := &s.nodes[h]
		if n.a != invalidHandle {
			walk(n.a)
		}
		if n.b != invalidHandle {
			walk(n.b)
		}
	}
	walk(root)
	count := 0
	for _, ok := range seen {
		if ok {
			count++
		}
	}
	return count
}

// Bounds returns the axis-aligned bounding box containing the scene surface
// at time t. Orbiting nodes report bounds covering the whole orbit so the
// result is valid for all times.
func (s *Scene) Bounds() ms3.Box {
	return s.bounds(s.root)
}

func (s *Scene) bounds(h NodeHandle) ms3.Box {
	n := &s.nodes[h]
	switch n.kind {
	case nodeSphere:
		r := n.f0
		return ms3.NewCenteredBox(ms3.Vec{}, ms3.Vec{X: 2 * r, Y: 2 * r, Z: 2 * r})
	case nodeBox, nodeBoxFrame:
		return ms3.NewCenteredBox(ms3.Vec{}, n.v)
	case nodeTorus:
		R := n.f0 + n.f1
		return ms3.Box{
			Min: ms3.Vec{X: -R, Y: -n.f1, Z: -R},
			Max: ms3.Vec{X: R, Y: n.f1, Z: R},
		}
	case nodePlane:
		return ms3.Box{
			Min: ms3.Vec{X: -planeSlab, Y: -planeSlab, Z: -planeSlab},
			Max: ms3.Vec{X: planeSlab, Y: n.f0, Z: planeSlab},
		}
	case nodeUnion, nodeSmoothUnion:
		return s.bounds(n.a).Union(s.bounds(n.b))
	case nodeSmoothDiff:
		return s.bounds(n.a)
	case nodeSmoothIntersect:
		return s.bounds(n.a).Intersect(s.bounds(n.b))
	case nodeTranslate:
		return s.bounds(n.a).Add(n.v)
	case nodeOrbit:
		bb := s.bounds(n.a)
		r := maxf(absf(n.v.X), absf(n.v.Z))
		pad := ms3.Vec{X: r, Y: 0, Z: r}
		bb.Min = ms3.Sub(bb.Min, pad)
		bb.Max = ms3.Add(bb.Max, pad)
		return bb
	}
	panic("unreachable scene node kind")
}

// NumNodes returns the number of nodes in the scene arena.
func (s *Scene) NumNodes() int { return len(s.nodes) }
