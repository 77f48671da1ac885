package render

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Pass is one stage of the pipeline. Reads and Writes declare the resources
// a pass touches so the [Scheduler] can validate the whole pipeline wiring
// at setup time instead of failing mid-frame.
type Pass interface {
	Name() string
	// Reads returns handles the pass samples from.
	Reads() []ResourceID
	// Writes returns handles the pass renders into.
	Writes() []ResourceID
	Execute(fc *FrameContext) error
}

// FrameContext carries per-frame state into pass execution.
type FrameContext struct {
	Storage *Storage
	Camera  *Camera
	// Time is the scene time in seconds driving animated scenes.
	Time float32
}

var (
	errDuplicatePass = errors.New("pass name already registered")
	errNilPass       = errors.New("nil pass")
)

// Scheduler validates and executes passes in registration order. Ordering
// is explicit: a pass added first runs first, every frame.
type Scheduler struct {
	storage *Storage
	passes  []Pass
	written map[ResourceID]bool
	// Logger receives per-pass timing lines when non-nil.
	Logger *log.Logger
}

// NewScheduler returns a scheduler executing passes against st.
func NewScheduler(st *Storage) *Scheduler {
	return &Scheduler{storage: st, written: make(map[ResourceID]bool)}
}

// AddPass appends a pass to the pipeline after validating that every
// resource it declares resolves in storage, that its name is unique, that
// everything it reads has been written by an earlier pass, and that the
// sizes and formats of its targets agree. A broken pipeline therefore
// fails at setup, not during rendering.
func (s *Scheduler) AddPass(p Pass) error {
	if p == nil {
		return errNilPass
	}
	for _, existing := range s.passes {
		if existing.Name() == p.Name() {
			return fmt.Errorf("%w: %q", errDuplicatePass, p.Name())
		}
	}
	for _, id := range p.Reads() {
		if _, err := s.storage.Texture(id); err != nil {
			return fmt.Errorf("pass %q read: %w", p.Name(), err)
		}
		if !s.written[id] {
			return fmt.Errorf("pass %q reads resource %d before any pass writes it", p.Name(), id)
		}
	}
	for _, id := range p.Writes() {
		if _, err := s.storage.Texture(id); err != nil {
			return fmt.Errorf("pass %q write: %w", p.Name(), err)
		}
	}
	if v, ok := p.(interface{ validate(st *Storage) error }); ok {
		if err := v.validate(s.storage); err != nil {
			return fmt.Errorf("pass %q: %w", p.Name(), err)
		}
	}
	for _, id := range p.Writes() {
		s.written[id] = true
	}
	s.passes = append(s.passes, p)
	return nil
}

// Passes returns registered pass names in execution order.
func (s *Scheduler) Passes() []string {
	names := make([]string, len(s.passes))
	for i, p := range s.passes {
		names[i] = p.Name()
	}
	return names
}

// Render executes all passes in order. The first pass error aborts the
// frame and is returned wrapped with the pass name.
func (s *Scheduler) Render(fc *FrameContext) error {
	if fc.Storage == nil {
		fc.Storage = s.storage
	}
	for _, p := range s.passes {
		start := time.Now()
		err := p.Execute(fc)
		if err != nil {
			return fmt.Errorf("pass %q: %w", p.Name(), err)
		}
		if s.Logger != nil {
			s.Logger.Printf("pass %q took %s", p.Name(), time.Since(start))
		}
	}
	return nil
}
