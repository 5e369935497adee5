package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/finder/cli"
	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/pkg/paths"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		Long: `Show the daemon log. JSON log lines are reformatted for reading unless
--json is given, in which case lines are printed as they are.

Examples:
  # Follow the daemon log
  finder logs -f

  # Last 100 lines
  finder logs --tail 100`,
		Args: cobra.NoArgs,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().Int("tail", 50, "Number of lines to show from the end of the log (-1 for all)")
	cmd.Flags().String("file", "", "Log file to read (defaults to the daemon log)")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = paths.DaemonLogPath()
	}
	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")
	raw := cli.GetOptions(cmd).JSONOutput
	out := cmd.OutOrStdout()

	info, err := os.Stat(path)
	if err != nil {
		if !follow {
			return errors.PathNotFound(path)
		}
		info = nil
	}

	emit := func(line string) {
		if raw {
			fmt.Fprintln(out, line)
			return
		}
		fmt.Fprintln(out, formatLogLine(line, cli.DefaultTheme))
	}

	var offset int64
	if info != nil {
		lines, err := lastLines(path, tailLines)
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
		offset = info.Size()
	}
	if !follow {
		return nil
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("cannot follow %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				cli.GetLogger(cmd).WithError(line.Err).Debug("Error reading log line")
				continue
			}
			emit(line.Text)
		}
	}
}

// lastLines reads path to the end and returns its final n lines; n < 0
// returns every line.
func lastLines(path string, n int) ([]string, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    false,
		MustExist: true,
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return nil, err
	}
	defer t.Cleanup()

	var lines []string
	for line := range t.Lines {
		if line.Err != nil {
			continue
		}
		lines = append(lines, line.Text)
		if n >= 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, nil
}

// formatLogLine renders a logrus JSON line as "15:04:05 LEVEL [component]
// message key=value...". Other lines are returned unchanged.
func formatLogLine(line string, t *cli.Theme) string {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line
	}

	ts, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)
	component, _ := entry["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Local().Format("15:04:05")
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = t.Error
	case "warning", "warn":
		levelStyle = t.Warning
	case "info":
		levelStyle = lipgloss.NewStyle().Foreground(t.Colors.Blue)
	default:
		levelStyle = t.Muted
	}

	var keys []string
	for k := range entry {
		switch k {
		case "time", "level", "msg", "component":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{t.Muted.Render(timeStr), levelStyle.Render(strings.ToUpper(level))}
	if component != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Colors.Violet).Render("["+component+"]"))
	}
	parts = append(parts, msg)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", t.Muted.Render(k), entry[k]))
	}
	return strings.Join(parts, " ")
}
