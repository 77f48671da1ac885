package conemarch_test

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/conemarch"
	"github.com/soypat/conemarch/sceneval"
	"github.com/soypat/geometry/ms3"
)

type sceneTestConfig struct {
	bld     *conemarch.Builder
	posbuf  []ms3.Vec
	distbuf []float32
	colbuf  []ms3.Vec
	vp      sceneval.VecPool
	rng     *rand.Rand
}

func newSceneTestConfig() *sceneTestConfig {
	const bufsize = 16 * 16 * 16
	return &sceneTestConfig{
		bld:     &conemarch.Builder{},
		posbuf:  make([]ms3.Vec, bufsize),
		distbuf: make([]float32, bufsize),
		colbuf:  make([]ms3.Vec, bufsize),
		rng:     rand.New(rand.NewSource(1)),
	}
}

func (cfg *sceneTestConfig) randPos(n int, span float32) []ms3.Vec {
	pos := cfg.posbuf[:n]
	for i := range pos {
		pos[i] = ms3.Vec{
			X: span * (2*cfg.rng.Float32() - 1),
			Y: span * (2*cfg.rng.Float32() - 1),
			Z: span * (2*cfg.rng.Float32() - 1),
		}
	}
	return pos
}

func TestPrimitiveSurfaceZeros(t *testing.T) {
	cfg := newSceneTestConfig()
	bld := cfg.bld
	const tol = 1e-5
	cases := []struct {
		name    string
		build   func() conemarch.NodeHandle
		surface []ms3.Vec
		inside  []ms3.Vec
	}{
		{
			name:    "sphere",
			build:   func() conemarch.NodeHandle { return bld.Sphere(2, ms3.Vec{X: 1}) },
			surface: []ms3.Vec{{X: 2}, {Y: -2}, {Z: 2}},
			inside:  []ms3.Vec{{}, {X: 1}},
		},
		{
			name:    "box",
			build:   func() conemarch.NodeHandle { return bld.Box(2, 4, 6, ms3.Vec{X: 1}) },
			surface: []ms3.Vec{{X: 1}, {Y: 2}, {Z: -3}, {X: 1, Y: 2, Z: 3}},
			inside:  []ms3.Vec{{}, {Y: 1.5}},
		},
		{
			name:    "torus",
			build:   func() conemarch.NodeHandle { return bld.Torus(2, 0.5, ms3.Vec{X: 1}) },
			surface: []ms3.Vec{{X: 2.5}, {X: 1.5}, {X: 2, Y: 0.5}, {Z: -2.5}},
			inside:  []ms3.Vec{{X: 2}, {Z: 2}},
		},
		{
			name:    "plane",
			build:   func() conemarch.NodeHandle { return bld.Plane(1, ms3.Vec{X: 1}) },
			surface: []ms3.Vec{{Y: 1}, {X: 5, Y: 1, Z: -5}},
			inside:  []ms3.Vec{{}, {Y: -3}},
		},
	}
	for _, tc := range cases {
		scene, err := bld.Scene(tc.build())
		if err != nil {
			t.Fatalf("%s: %s", tc.name, err)
		}
		for _, p := range tc.surface {
			d, _ := scene.At(p, 0)
			if math32.Abs(d) > tol {
				t.Errorf("%s: expected zero distance at %+v, got %g", tc.name, p, d)
			}
		}
		for _, p := range tc.inside {
			d, _ := scene.At(p, 0)
			if d >= 0 {
				t.Errorf("%s: expected negative distance at %+v, got %g", tc.name, p, d)
			}
		}
	}
}

func TestBoxFrameBeams(t *testing.T) {
	bld := &conemarch.Builder{}
	scene, err := bld.Scene(bld.BoxFrame(2, 2, 2, 0.4, ms3.Vec{X: 1}))
	if err != nil {
		t.Fatal(err)
	}
	// Corners lie on the frame surface, face centers are outside.
	d, _ := scene.At(ms3.Vec{X: 1, Y: 1, Z: 1}, 0)
	if math32.Abs(d) > 1e-5 {
		t.Errorf("corner should be on surface, got %g", d)
	}
	d, _ = scene.At(ms3.Vec{X: 1}, 0)
	if d <= 0 {
		t.Errorf("face center should be outside the frame, got %g", d)
	}
}

func TestSmoothOpsConvergeToHard(t *testing.T) {
	cfg := newSceneTestConfig()
	pos := cfg.randPos(512, 3)
	const k = 1e-4
	const tol = 1e-3
	build := func(op func(bld *conemarch.Builder, a, b conemarch.NodeHandle) conemarch.NodeHandle) *conemarch.Scene {
		bld := &conemarch.Builder{}
		a := bld.Sphere(1, ms3.Vec{X: 1})
		b := bld.Translate(bld.Box(1, 1, 1, ms3.Vec{Y: 1}), 0.5, 0, 0)
		scene, err := bld.Scene(op(bld, a, b))
		if err != nil {
			t.Fatal(err)
		}
		return scene
	}
	su := build(func(bld *conemarch.Builder, a, b conemarch.NodeHandle) conemarch.NodeHandle {
		return bld.SmoothUnion(k, a, b)
	})
	sd := build(func(bld *conemarch.Builder, a, b conemarch.NodeHandle) conemarch.NodeHandle {
		return bld.SmoothDifference(k, a, b)
	})
	si := build(func(bld *conemarch.Builder, a, b conemarch.NodeHandle) conemarch.NodeHandle {
		return bld.SmoothIntersect(k, a, b)
	})
	sphere := func(p ms3.Vec) float32 { return ms3.Norm(p) - 1 }
	box := func(p ms3.Vec) float32 {
		q := ms3.Sub(ms3.AbsElem(ms3.Sub(p, ms3.Vec{X: 0.5})), ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
		return ms3.Norm(ms3.MaxElem(q, ms3.Vec{})) + math32.Min(q.Max(), 0)
	}
	for _, p := range pos {
		a, b := sphere(p), box(p)
		if d, _ := su.At(p, 0); math32.Abs(d-math32.Min(a, b)) > tol {
			t.Fatalf("smooth union at %+v: got %g want %g", p, d, math32.Min(a, b))
		}
		if d, _ := sd.At(p, 0); math32.Abs(d-math32.Max(a, -b)) > tol {
			t.Fatalf("smooth difference at %+v: got %g want %g", p, d, math32.Max(a, -b))
		}
		if d, _ := si.At(p, 0); math32.Abs(d-math32.Max(a, b)) > tol {
			t.Fatalf("smooth intersect at %+v: got %g want %g", p, d, math32.Max(a, b))
		}
	}
}

func TestVectorizedMatchesScalar(t *testing.T) {
	cfg := newSceneTestConfig()
	bld := cfg.bld
	ground := bld.Plane(0, ms3.Vec{X: 0.5, Y: 0.5, Z: 0.45})
	ball := bld.Translate(bld.Sphere(1, ms3.Vec{X: 0.9, Y: 0.3, Z: 0.2}), 0, 1.2, 0)
	ring := bld.Translate(bld.Torus(1.6, 0.35, ms3.Vec{X: 0.2, Y: 0.5, Z: 0.85}), 0, 0.35, 0)
	body := bld.SmoothUnion(0.4, ball, ring)
	moon := bld.Orbit(bld.Sphere(0.4, ms3.Vec{Y: 1}), 3, 2, 0.8, 0.3)
	scene, err := bld.Scene(bld.Union(bld.Union(body, moon), ground))
	if err != nil {
		t.Fatal(err)
	}
	pos := cfg.randPos(1024, 4)
	dist := cfg.distbuf[:len(pos)]
	col := cfg.colbuf[:len(pos)]
	const sceneTime = 0.7
	frame := scene.Frame(sceneTime)
	err = frame.EvaluateColor(pos, dist, col, &cfg.vp)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range pos {
		d, c := scene.At(p, sceneTime)
		if d != dist[i] {
			t.Fatalf("distance mismatch at %+v: scalar %g vectorized %g", p, d, dist[i])
		}
		if c != col[i] {
			t.Fatalf("color mismatch at %+v: scalar %+v vectorized %+v", p, c, col[i])
		}
	}
	// Evaluation is pure: a second pass is bit-identical.
	dist2 := make([]float32, len(pos))
	err = frame.Evaluate(pos, dist2, &cfg.vp)
	if err != nil {
		t.Fatal(err)
	}
	for i := range dist {
		if dist[i] != dist2[i] {
			t.Fatalf("evaluation not reproducible at index %d", i)
		}
	}
	if err := cfg.vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}

func TestSmoothUnionColorBlend(t *testing.T) {
	bld := &conemarch.Builder{}
	red := ms3.Vec{X: 1}
	blue := ms3.Vec{Z: 1}
	a := bld.Translate(bld.Sphere(1, red), -2, 0, 0)
	b := bld.Translate(bld.Sphere(1, blue), 2, 0, 0)
	scene, err := bld.Scene(bld.SmoothUnion(0.5, a, b))
	if err != nil {
		t.Fatal(err)
	}
	// Deep inside each sphere the blend factor saturates to that side.
	_, c := scene.At(ms3.Vec{X: -2}, 0)
	if c != red {
		t.Errorf("expected pure red at left sphere center, got %+v", c)
	}
	_, c = scene.At(ms3.Vec{X: 2}, 0)
	if c != blue {
		t.Errorf("expected pure blue at right sphere center, got %+v", c)
	}
	// On the symmetry plane both colors contribute.
	_, c = scene.At(ms3.Vec{}, 0)
	if c.X == 0 || c.Z == 0 {
		t.Errorf("expected blended color on symmetry plane, got %+v", c)
	}
}

func TestOrbitMotion(t *testing.T) {
	bld := &conemarch.Builder{}
	moon := bld.Orbit(bld.Sphere(0.5, ms3.Vec{X: 1}), 3, 3, 1, 0)
	scene, err := bld.Scene(moon)
	if err != nil {
		t.Fatal(err)
	}
	// At t=0 the orbit offset is (3,0,0); the center is on the surface of
	// nothing but distance there equals -0.5 (sphere center).
	d, _ := scene.At(ms3.Vec{X: 3}, 0)
	if math32.Abs(d+0.5) > 1e-5 {
		t.Errorf("expected distance -0.5 at orbit position, got %g", d)
	}
	// Half a period later the sphere sits at (-3, 0, 0).
	d, _ = scene.At(ms3.Vec{X: -3}, math32.Pi)
	if math32.Abs(d+0.5) > 1e-4 {
		t.Errorf("expected distance -0.5 at opposed orbit position, got %g", d)
	}
	// Bounds cover the whole orbit at any time.
	bb := scene.Bounds()
	if bb.Min.X > -3.4 || bb.Max.X < 3.4 || bb.Min.Z > -3.4 || bb.Max.Z < 3.4 {
		t.Errorf("orbit bounds do not cover the path: %+v", bb)
	}
	if !scene.Animated() {
		t.Error("orbiting scene should report animated")
	}
}

func TestBuilderErrors(t *testing.T) {
	bld := &conemarch.Builder{NoDimensionPanic: true}
	bld.Sphere(-1, ms3.Vec{})
	bld.Torus(1, 0.9, ms3.Vec{})
	a := bld.Sphere(1, ms3.Vec{})
	b := bld.Sphere(1, ms3.Vec{})
	bld.SmoothUnion(0, a, b)
	err := bld.Err()
	if err == nil {
		t.Fatal("expected accumulated builder errors")
	}
	if _, err := bld.Scene(a); err == nil {
		t.Error("Scene should refuse builders with accumulated errors")
	}
	bld.ClearErrors()
	if bld.Err() != nil {
		t.Error("ClearErrors should discard accumulated errors")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on invalid dimension without NoDimensionPanic")
		}
	}()
	panicking := &conemarch.Builder{}
	panicking.Sphere(-1, ms3.Vec{})
}

func TestSceneValidation(t *testing.T) {
	bld := &conemarch.Builder{}
	a := bld.Sphere(1, ms3.Vec{})
	bld.Sphere(2, ms3.Vec{}) // Unreachable from a.
	if _, err := bld.Scene(a); err == nil {
		t.Error("expected dangling node error")
	}
	empty := &conemarch.Builder{}
	if _, err := empty.Scene(0); err == nil {
		t.Error("expected empty scene error")
	}
}

func TestShaderGeneration(t *testing.T) {
	bld := &conemarch.Builder{}
	static, err := bld.Scene(bld.SmoothUnion(0.3,
		bld.Sphere(1, ms3.Vec{X: 1}),
		bld.Box(1, 1, 1, ms3.Vec{Y: 1}),
	))
	if err != nil {
		t.Fatal(err)
	}
	decl, distFn, colorFn := static.AppendShaderDecl(nil)
	src := string(decl)
	if strings.Contains(src, "SceneTime") {
		t.Error("static scene should not declare a SceneTime uniform")
	}
	if !strings.Contains(src, "float "+distFn+"(vec3 p)") {
		t.Errorf("missing root distance function %s", distFn)
	}
	if !strings.Contains(src, "vec4 "+colorFn+"(vec3 p)") {
		t.Errorf("missing root color function %s", colorFn)
	}

	animBld := &conemarch.Builder{}
	animated, err := animBld.Scene(animBld.Orbit(animBld.Sphere(1, ms3.Vec{X: 1}), 2, 2, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	decl, _, _ = animated.AppendShaderDecl(nil)
	if !strings.Contains(string(decl), "uniform float SceneTime;") {
		t.Error("animated scene should declare a SceneTime uniform")
	}

	var buf bytes.Buffer
	_, err = static.WriteComputeDistance(&buf)
	if err != nil {
		t.Fatal(err)
	}
	src = buf.String()
	if !strings.HasPrefix(src, "#shader compute\n#version 430\n") {
		t.Error("compute program missing combined-format header")
	}
	if !strings.Contains(src, "imageStore(out_distances") {
		t.Error("compute program missing distance store")
	}
}
