// Package profiling times the phases of a command and writes pprof
// profiles on request.
package profiling

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed phase.
type Stopper interface {
	Stop()
}

// phase is one timed section. Phases started while another is open are
// nested under it.
type phase struct {
	name     string
	depth    int
	start    time.Time
	duration time.Duration
	rec      *Recorder
}

func (p *phase) Stop() {
	p.rec.stop(p)
}

// Recorder collects phases in start order.
type Recorder struct {
	mu      sync.Mutex
	enabled bool
	started time.Time
	phases  []*phase
	open    []*phase
}

var defaultRecorder = &Recorder{}

// Enable turns on the package-level recorder. Until then Start is a no-op.
func Enable() {
	defaultRecorder.Enable()
}

// Start begins a phase on the package-level recorder.
func Start(name string) Stopper {
	return defaultRecorder.Start(name)
}

// Summarize writes the package-level recorder's phases to w.
func Summarize(w io.Writer) {
	defaultRecorder.Summarize(w)
}

// Enable starts the recorder's clock.
func (r *Recorder) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled {
		return
	}
	r.enabled = true
	r.started = time.Now()
}

// Start begins a phase. The returned Stopper must be stopped, usually with
// defer.
func (r *Recorder) Start(name string) Stopper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return noop{}
	}
	p := &phase{name: name, depth: len(r.open), start: time.Now(), rec: r}
	r.phases = append(r.phases, p)
	r.open = append(r.open, p)
	return p
}

func (r *Recorder) stop(p *phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.duration = time.Since(p.start)
	for i := len(r.open) - 1; i >= 0; i-- {
		if r.open[i] == p {
			r.open = append(r.open[:i], r.open[i+1:]...)
			break
		}
	}
}

// Summarize writes one line per phase with its share of the total time.
// Phases still open are reported up to now.
func (r *Recorder) Summarize(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}
	total := time.Since(r.started)
	fmt.Fprintf(w, "timing (total %v)\n", total.Round(100*time.Microsecond))
	for _, p := range r.phases {
		d := p.duration
		if d == 0 {
			d = time.Since(p.start)
		}
		share := 0.0
		if total > 0 {
			share = float64(d) / float64(total) * 100
		}
		fmt.Fprintf(w, "%s- %s %v (%.1f%%)\n", strings.Repeat("  ", p.depth+1), p.name, d.Round(100*time.Microsecond), share)
	}
}

type noop struct{}

func (noop) Stop() {}
