package render

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

type fakePass struct {
	name   string
	reads  []ResourceID
	writes []ResourceID
	fn     func(fc *FrameContext) error
}

func (p *fakePass) Name() string          { return p.name }
func (p *fakePass) Reads() []ResourceID   { return p.reads }
func (p *fakePass) Writes() []ResourceID  { return p.writes }
func (p *fakePass) Execute(fc *FrameContext) error {
	if p.fn == nil {
		return nil
	}
	return p.fn(fc)
}

func TestTextureLoadStore(t *testing.T) {
	tex := NewTexture(4, 3, RGBA32Float)
	tex.Store(2, 1, [4]float32{1, 2, 3, 4})
	if got := tex.Load(2, 1); got != [4]float32{1, 2, 3, 4} {
		t.Errorf("rgba roundtrip got %v", got)
	}
	dep := NewTexture(4, 3, R32Float)
	dep.StoreR(3, 2, 7)
	if got := dep.LoadR(3, 2); got != 7 {
		t.Errorf("r32 roundtrip got %v", got)
	}
	if got := dep.LoadRClamp(10, -5); got != dep.LoadR(3, 0) {
		t.Errorf("clamped load got %v", got)
	}
	if err := dep.CopyFrom(tex); err == nil {
		t.Error("copy between mismatched formats should error")
	}
}

func TestStorage(t *testing.T) {
	st := NewStorage()
	tex := NewTexture(2, 2, R32Float)
	id := st.AddTexture("depth", tex)
	got, err := st.Texture(id)
	if err != nil || got != tex {
		t.Fatalf("texture lookup: %v %v", got, err)
	}
	if _, err = st.Lookup("missing"); err == nil {
		t.Error("unknown name should error")
	}
	if _, err = st.Texture(WindowView); err == nil {
		t.Error("window view without installed texture should error")
	}
	win := NewTexture(2, 2, RGBA32Float)
	st.SetWindowView(win)
	if got, _ = st.Texture(WindowView); got != win {
		t.Error("window view should resolve to installed texture")
	}
	// Re-registering a name keeps the handle stable.
	tex2 := NewTexture(4, 4, R32Float)
	if id2 := st.AddTexture("depth", tex2); id2 != id {
		t.Errorf("handle changed on re-register: %d != %d", id2, id)
	}
	if got, _ = st.Texture(id); got != tex2 {
		t.Error("re-registered texture should replace the old one")
	}
}

func TestSchedulerValidation(t *testing.T) {
	st := NewStorage()
	a := st.AddTexture("a", NewTexture(1, 1, R32Float))
	sched := NewScheduler(st)
	err := sched.AddPass(&fakePass{name: "reader", reads: []ResourceID{a}})
	if err == nil {
		t.Error("reading a never-written resource should fail at setup")
	}
	err = sched.AddPass(&fakePass{name: "writer", writes: []ResourceID{a}})
	if err != nil {
		t.Fatal(err)
	}
	err = sched.AddPass(&fakePass{name: "reader", reads: []ResourceID{a}})
	if err != nil {
		t.Fatal(err)
	}
	if err = sched.AddPass(&fakePass{name: "reader"}); err == nil {
		t.Error("duplicate pass name should fail")
	}
	if err = sched.AddPass(&fakePass{name: "ghost", writes: []ResourceID{99}}); err == nil {
		t.Error("unresolvable write should fail at setup")
	}
	if err = sched.AddPass(nil); err == nil {
		t.Error("nil pass should fail")
	}
	// Execution order follows registration order.
	var order []string
	sched2 := NewScheduler(st)
	for _, name := range []string{"first", "second", "third"} {
		name := name
		err = sched2.AddPass(&fakePass{name: name, fn: func(fc *FrameContext) error {
			order = append(order, name)
			return nil
		}})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err = sched2.Render(&FrameContext{}); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != "first" || order[2] != "third" {
		t.Errorf("unexpected execution order %v", order)
	}
}

func TestSchedulerSizeValidation(t *testing.T) {
	st := NewStorage()
	did := st.AddTexture("depth", NewTexture(8, 8, R32Float))
	sched := NewScheduler(st)
	err := sched.AddPass(&fakePass{name: "depthwriter", writes: []ResourceID{did}})
	if err != nil {
		t.Fatal(err)
	}
	small := st.AddTexture("small", NewTexture(4, 4, RGBA32Float))
	if err = sched.AddPass(NewBackgroundPass(did, small)); err == nil {
		t.Error("mismatched depth and target sizes should fail at setup")
	}
	wrongFmt := st.AddTexture("wrongfmt", NewTexture(8, 8, R32Float))
	if err = sched.AddPass(NewBackgroundPass(did, wrongFmt)); err == nil {
		t.Error("single channel color target should fail at setup")
	}
	frame := st.AddTexture("frame", NewTexture(8, 8, RGBA32Float))
	if err = sched.AddPass(NewBackgroundPass(did, frame)); err != nil {
		t.Error(err)
	}
}

func TestCameraRays(t *testing.T) {
	cam := NewCamera(4.0 / 3.0)
	cam.Position = mgl32.Vec3{1, 2, 3}
	cam.Yaw = 0.7
	cam.Pitch = -0.2
	const w, h = 8, 6
	org := make([]ms3.Vec, w*h)
	dirs := make([]ms3.Vec, w*h)
	err := cam.RayDirections(w, h, org, dirs)
	if err != nil {
		t.Fatal(err)
	}
	fwd := cam.Forward()
	for i, d := range dirs {
		n := math32.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
		if math32.Abs(n-1) > 1e-4 {
			t.Fatalf("ray %d not unit length: %g", i, n)
		}
		if d.X*fwd.X()+d.Y*fwd.Y()+d.Z*fwd.Z() <= 0 {
			t.Fatalf("ray %d points behind the camera", i)
		}
	}
	// The ray bundle center aligns with the camera forward vector.
	c := dirs[(h/2)*w+w/2]
	dot := c.X*fwd.X() + c.Y*fwd.Y() + c.Z*fwd.Z()
	if dot < 0.99 {
		t.Errorf("central ray deviates from forward: cos=%g", dot)
	}
	if got := org[0]; got.X != 1 || got.Y != 2 || got.Z != 3 {
		t.Errorf("ray origin should be camera position, got %+v", got)
	}
}

func TestCameraUniform(t *testing.T) {
	cam := NewCamera(16.0 / 9.0)
	cam.Position = mgl32.Vec3{2, 1, -4}
	cam.Yaw = 0.3
	cam.Pitch = 0.1
	u := cam.Uniform()
	round := u.ViewProjection.Mul4(u.InverseViewProjection)
	ident := mgl32.Ident4()
	for i := range round {
		if math32.Abs(round[i]-ident[i]) > 1e-3 {
			t.Fatalf("view-projection times its inverse deviates from identity: %v", round)
		}
	}
	if u.Position.Vec3() != cam.Position || u.Position.W() != 1 {
		t.Errorf("uniform position %v", u.Position)
	}
	if u.VPWithoutTranslation != cam.VPWithoutTranslation() {
		t.Error("uniform without-translation matrix disagrees with the camera")
	}
}

func TestLights(t *testing.T) {
	pl := NewPointLight(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	if got := pl.Attenuation(0); math32.Abs(got-1) > 1e-6 {
		t.Errorf("attenuation at zero distance should be 1, got %g", got)
	}
	if a, b := pl.Attenuation(1), pl.Attenuation(10); a <= b {
		t.Errorf("attenuation should fall with distance: %g <= %g", a, b)
	}
	want := 1 / (pl.Constant + pl.Linear*5 + pl.Quadratic*25)
	if got := pl.Attenuation(5); math32.Abs(got-want) > 1e-6 {
		t.Errorf("attenuation formula: got %g want %g", got, want)
	}

	spot := NewSpotLight(mgl32.Vec3{}, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1},
		mgl32.DegToRad(10), mgl32.DegToRad(20))
	if got := spot.ConeFalloff(mgl32.Vec3{0, -1, 0}); got != 1 {
		t.Errorf("axis direction should be fully lit, got %g", got)
	}
	if got := spot.ConeFalloff(mgl32.Vec3{1, 0, 0}); got != 0 {
		t.Errorf("perpendicular direction should be dark, got %g", got)
	}
}

func TestLightingSuperposition(t *testing.T) {
	st := NewStorage()
	gb := NewGBuffer(st, 1, 1)
	st.MustTexture(gb.Position).Store(0, 0, [4]float32{0, 0, 0, 1})
	st.MustTexture(gb.Normal).Store(0, 0, [4]float32{0, 1, 0, 0})
	st.MustTexture(gb.Albedo).Store(0, 0, [4]float32{0.5, 0.5, 0.5, 16})
	target := NewTexture(1, 1, RGBA32Float)
	tid := st.AddTexture("out", target)
	cam := NewCamera(1)
	cam.Position = mgl32.Vec3{0, 3, -3}

	shade := func(lights *Lights) [4]float32 {
		lp := NewLightingPass(gb, lights, nil, tid)
		err := lp.Execute(&FrameContext{Storage: st, Camera: cam})
		if err != nil {
			t.Fatal(err)
		}
		return target.Load(0, 0)
	}
	la := &Lights{Points: []PointLight{NewPointLight(mgl32.Vec3{2, 2, 0}, mgl32.Vec3{1, 0.5, 0.2})}}
	lb := &Lights{Points: []PointLight{NewPointLight(mgl32.Vec3{-2, 2, 0}, mgl32.Vec3{0.2, 0.5, 1})}}
	both := &Lights{Points: append(append([]PointLight{}, la.Points...), lb.Points...)}

	ca := shade(la)
	cb := shade(lb)
	cboth := shade(both)
	for ch := 0; ch < 3; ch++ {
		sum := ca[ch] + cb[ch]
		if math32.Abs(cboth[ch]-sum) > 1e-5 {
			t.Errorf("channel %d not additive: both=%g sum=%g", ch, cboth[ch], sum)
		}
	}
}

func TestShadowFactorRange(t *testing.T) {
	shadowMap := NewTexture(8, 8, R32Float)
	shadowMap.Fill(0.5)
	light := DirectionalLight{Direction: mgl32.Vec3{0, -1, 0}}
	vp := light.ShadowViewProjection(mgl32.Vec3{}, 5)
	for _, pos := range []mgl32.Vec3{{}, {1, 0, 1}, {-2, 1, 3}, {4.9, 0, -4.9}} {
		got := shadowFactor(shadowMap, vp, pos, mgl32.Vec3{0, 1, 0}, light.Direction)
		if got < 0 || got > 1 {
			t.Errorf("shadow factor out of range at %+v: %g", pos, got)
		}
	}
	// A point outside the map is treated as lit.
	got := shadowFactor(shadowMap, vp, mgl32.Vec3{100, 0, 0}, mgl32.Vec3{0, 1, 0}, light.Direction)
	if got != 1 {
		t.Errorf("out-of-map point should be lit, got %g", got)
	}
}
