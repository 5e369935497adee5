package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ProgressReporter shows a spinner with elapsed time while a long operation
// runs. It draws nothing unless the writer is a terminal.
type ProgressReporter struct {
	w       io.Writer
	enabled bool
	label   string

	mu    sync.Mutex
	start time.Time
	stop  chan struct{}
	done  chan struct{}
}

// NewProgressReporter creates a reporter writing to w.
func NewProgressReporter(w io.Writer, label string) *ProgressReporter {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &ProgressReporter{w: w, enabled: enabled, label: label}
}

// Start begins drawing. Calling Start twice is a no-op.
func (p *ProgressReporter) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.start = time.Now()
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	if !p.enabled {
		close(p.done)
		return
	}
	go p.loop(p.stop, p.done)
}

func (p *ProgressReporter) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for frame := 0; ; frame++ {
		fmt.Fprintf(p.w, "\r%s %s [%s]", spinnerFrames[frame%len(spinnerFrames)], p.label,
			time.Since(p.start).Round(100*time.Millisecond))
		select {
		case <-stop:
			fmt.Fprint(p.w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Done stops drawing, clears the line and returns the elapsed time.
func (p *ProgressReporter) Done() time.Duration {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop = nil
	p.mu.Unlock()
	if stop == nil {
		return 0
	}
	close(stop)
	<-done
	return time.Since(p.start)
}
