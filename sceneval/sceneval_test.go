package sceneval_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/conemarch/sceneval"
	"github.com/soypat/geometry/ms3"
)

// sphereSDF is a minimal vectorized field for exercising the evaluators.
type sphereSDF struct {
	r float32
}

func (s sphereSDF) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	for i, p := range pos {
		dist[i] = ms3.Norm(p) - s.r
	}
	return nil
}

func (s sphereSDF) Bounds() ms3.Box {
	return ms3.NewCenteredBox(ms3.Vec{}, ms3.Vec{X: 2 * s.r, Y: 2 * s.r, Z: 2 * s.r})
}

func TestVecPoolAcquireRelease(t *testing.T) {
	var vp sceneval.VecPool
	buf := vp.Float.Acquire(128)
	if len(buf) != 128 {
		t.Fatalf("acquired length %d, want 128", len(buf))
	}
	if err := vp.AssertAllReleased(); err == nil {
		t.Error("expected held buffer to be reported")
	}
	if err := vp.Float.Release(buf); err != nil {
		t.Fatal(err)
	}
	if err := vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
	// Reacquiring a smaller buffer reuses the pooled allocation.
	buf2 := vp.Float.Acquire(64)
	if &buf2[0] != &buf[0] {
		t.Error("pool did not reuse released buffer")
	}
	if err := vp.Float.Release(buf2); err != nil {
		t.Fatal(err)
	}
	if err := vp.Float.Release(buf2); err == nil {
		t.Error("double release should error")
	}
	if err := vp.Float.Release(make([]float32, 8)); err == nil {
		t.Error("releasing a foreign buffer should error")
	}
}

func TestGetVecPool(t *testing.T) {
	var vp sceneval.VecPool
	got, err := sceneval.GetVecPool(&vp)
	if err != nil || got != &vp {
		t.Fatalf("GetVecPool of *VecPool: %v %v", got, err)
	}
	if _, err := sceneval.GetVecPool(42); err == nil {
		t.Error("expected error for userData without pool")
	}
	cpu, err := sceneval.NewCPUSDF3(sphereSDF{r: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got, err = sceneval.GetVecPool(cpu); err != nil || got != cpu.VecPool() {
		t.Errorf("GetVecPool through VecPool method: %v %v", got, err)
	}
}

func TestNormalsCentralDiffSphere(t *testing.T) {
	var vp sceneval.VecPool
	sdf := sphereSDF{r: 2}
	pos := []ms3.Vec{
		{X: 2}, {Y: -2}, {Z: 2},
		ms3.Scale(2, ms3.Unit(ms3.Vec{X: 1, Y: 1, Z: 1})),
	}
	normals := make([]ms3.Vec, len(pos))
	err := sceneval.NormalsCentralDiff(sdf, pos, normals, 1e-4, &vp)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range pos {
		want := ms3.Unit(p)
		got := ms3.Unit(normals[i])
		if ms3.Norm(ms3.Sub(got, want)) > 1e-3 {
			t.Errorf("normal at %+v: got %+v want %+v", p, got, want)
		}
	}
	if err := vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}

func TestCPUWrapper(t *testing.T) {
	cpu, err := sceneval.NewCPUSDF3(sphereSDF{r: 1})
	if err != nil {
		t.Fatal(err)
	}
	pos := []ms3.Vec{{X: 2}, {}}
	dist := make([]float32, len(pos))
	// nil userData works: the wrapper provides its own pool.
	err = cpu.Evaluate(pos, dist, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math32.Abs(dist[0]-1) > 1e-6 || math32.Abs(dist[1]+1) > 1e-6 {
		t.Errorf("unexpected distances %v", dist)
	}
	if cpu.Evaluations() != 2 {
		t.Errorf("expected 2 evaluations recorded, got %d", cpu.Evaluations())
	}
	if err = cpu.Evaluate(pos, dist[:1], nil); err == nil {
		t.Error("mismatched buffer lengths should error")
	}
}
