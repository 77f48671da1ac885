package sceneval

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// VecPool serves as a pool of Vec and float32 buffers for
// evaluators to use as scratch space. The zero value is ready for use.
// Usage of a VecPool prevents the amount of memory allocated during
// evaluation from growing with the number of evaluations.
//
// Pass a *VecPool as the userData argument of Evaluate calls, or
// implement the method below on the userData type to provide one:
//
//	func (obj *MyObj) VecPool() *sceneval.VecPool
type VecPool struct {
	V3    bufPool[ms3.Vec]
	V2    bufPool[ms2.Vec]
	Float bufPool[float32]
}

// GetVecPool asserts the userData as a VecPool. If assertion fails
// then a new VecPool is provided by userData's VecPool method, if
// it implements one.
func GetVecPool(userData any) (*VecPool, error) {
	vp, ok := userData.(*VecPool)
	if ok {
		return vp, nil
	}
	vper, ok := userData.(interface{ VecPool() *VecPool })
	if !ok {
		return nil, fmt.Errorf("type %T does not provide scratch buffers, expected *sceneval.VecPool", userData)
	}
	vp = vper.VecPool()
	if vp == nil {
		return nil, errors.New("nil VecPool returned by userData")
	}
	return vp, nil
}

// AssertAllReleased checks all buffers are not in use. Should be called
// after all evaluation has concluded: a failure means scratch buffers leaked.
func (vp *VecPool) AssertAllReleased() error {
	err := vp.Float.assertAllReleased()
	if err != nil {
		return err
	}
	err = vp.V2.assertAllReleased()
	if err != nil {
		return err
	}
	err = vp.V3.assertAllReleased()
	if err != nil {
		return err
	}
	return nil
}

// TotalAlloc returns the total amount of memory held by the pool in bytes.
func (vp *VecPool) TotalAlloc() uint64 {
	return vp.Float.totalAlloc()*uint64(unsafe.Sizeof(float32(0))) +
		vp.V2.totalAlloc()*uint64(unsafe.Sizeof(ms2.Vec{})) +
		vp.V3.totalAlloc()*uint64(unsafe.Sizeof(ms3.Vec{}))
}

// TotalSize returns the number of allocated buffers held by the pool.
func (vp *VecPool) TotalSize() int {
	return len(vp.Float.bufs) + len(vp.V2.bufs) + len(vp.V3.bufs)
}

type bufPool[T any] struct {
	bufs     [][]T
	acquired []bool
}

// Acquire returns a buffer of at least minLength length, allocating a new
// one if all pooled buffers are in use or too small. Buffers must be
// returned with [bufPool.Release] once done with.
func (bp *bufPool[T]) Acquire(minLength int) []T {
	if minLength <= 0 {
		panic("invalid pool buffer acquire length")
	}
	for i, locked := range bp.acquired {
		if !locked && len(bp.bufs[i]) >= minLength {
			bp.acquired[i] = true
			return bp.bufs[i][:minLength]
		}
	}
	newbuf := make([]T, minLength)
	bp.bufs = append(bp.bufs, newbuf)
	bp.acquired = append(bp.acquired, true)
	return newbuf
}

// Release returns a buffer acquired with [bufPool.Acquire] to the pool.
func (bp *bufPool[T]) Release(buf []T) error {
	if len(buf) == 0 {
		return errors.New("release of zero length buffer")
	}
	for i, existing := range bp.bufs {
		if len(existing) == 0 || &existing[0] != &buf[0] {
			continue
		}
		if !bp.acquired[i] {
			return errors.New("release of unacquired buffer")
		}
		bp.acquired[i] = false
		return nil
	}
	return errors.New("release of buffer not belonging to pool")
}

func (bp *bufPool[T]) assertAllReleased() error {
	for _, locked := range bp.acquired {
		if locked {
			var z T
			return fmt.Errorf("not all %T buffers released", z)
		}
	}
	return nil
}

func (bp *bufPool[T]) totalAlloc() (n uint64) {
	for _, buf := range bp.bufs {
		n += uint64(len(buf))
	}
	return n
}
