package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
)

// CobraProfiler adds --cpu-profile, --mem-profile and --timing to a command
// tree.
type CobraProfiler struct {
	cpuPath string
	memPath string
	timing  bool
	cpuFile *os.File
}

// NewCobraProfiler creates a profiler with no flags set.
func NewCobraProfiler() *CobraProfiler {
	return &CobraProfiler{}
}

// Attach registers the flags on cmd and installs persistent pre/post run
// hooks. Subcommands must not define their own persistent hooks.
func (p *CobraProfiler) Attach(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&p.cpuPath, "cpu-profile", "", "Write a CPU profile to this file")
	flags.StringVar(&p.memPath, "mem-profile", "", "Write a heap profile to this file on exit")
	flags.BoolVar(&p.timing, "timing", false, "Print a timing summary to stderr on exit")
	_ = flags.MarkHidden("cpu-profile")
	_ = flags.MarkHidden("mem-profile")

	cmd.PersistentPreRunE = p.PreRun
	cmd.PersistentPostRun = p.PostRun
}

// PreRun starts timing and CPU profiling as requested.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	if p.timing {
		Enable()
	}
	if p.cpuPath == "" {
		return nil
	}
	f, err := os.Create(p.cpuPath)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	p.cpuFile = f
	return nil
}

// PostRun stops profiling and writes the requested outputs to stderr.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, args []string) {
	stderr := cmd.ErrOrStderr()
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		p.cpuFile = nil
		fmt.Fprintf(stderr, "CPU profile written to %s\n", p.cpuPath)
	}

	if p.memPath != "" {
		f, err := os.Create(p.memPath)
		if err != nil {
			fmt.Fprintf(stderr, "could not create memory profile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(stderr, "could not write memory profile: %v\n", err)
			} else {
				fmt.Fprintf(stderr, "Memory profile written to %s\n", p.memPath)
			}
			f.Close()
		}
	}

	if p.timing {
		Summarize(stderr)
	}
}
