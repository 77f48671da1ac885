package renderaux

import (
	"log"
	"time"
)

// FPSLogger accumulates frame times and logs the average frame rate once
// per reporting interval.
type FPSLogger struct {
	// Interval between log lines. Zero means one second.
	Interval time.Duration
	// Logger receives the lines. Nil means the standard logger.
	Logger *log.Logger

	frames int
	since  time.Time
}

// Frame records one finished frame, logging if the interval elapsed.
func (f *FPSLogger) Frame() {
	now := time.Now()
	if f.since.IsZero() {
		f.since = now
		return
	}
	f.frames++
	interval := f.Interval
	if interval == 0 {
		interval = time.Second
	}
	elapsed := now.Sub(f.since)
	if elapsed < interval {
		return
	}
	fps := float64(f.frames) / elapsed.Seconds()
	if f.Logger != nil {
		f.Logger.Printf("%.1f fps (%d frames in %s)", fps, f.frames, elapsed.Round(time.Millisecond))
	} else {
		log.Printf("%.1f fps (%d frames in %s)", fps, f.frames, elapsed.Round(time.Millisecond))
	}
	f.frames = 0
	f.since = now
}
