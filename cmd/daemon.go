package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/grovetools/finder/cli"
	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/internal/daemon/engine"
	"github.com/grovetools/finder/internal/daemon/pidfile"
	"github.com/grovetools/finder/internal/daemon/server"
	"github.com/grovetools/finder/logging"
	"github.com/grovetools/finder/pkg/daemon"
	"github.com/grovetools/finder/pkg/paths"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewDaemonCmd returns the daemon command with subcommands.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run or control finderd",
		Long: `finderd owns the scenario list, runs searches and pushes every change to
connected clients over a unix socket. While it runs, all finder commands
go through it.`,
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			logging.SetFileOverride(paths.DaemonLogPath())
			logger := logging.NewLogger("finderd")
			pidPath := paths.PidFilePath()

			if err := pidfile.Acquire(pidPath); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.WithError(err).Error("Failed to release pidfile")
				}
			}()

			configDir, err := os.Getwd()
			if err != nil {
				return err
			}
			if opts := cli.GetOptions(cmd); opts.ConfigFile != "" {
				configDir = filepath.Dir(opts.ConfigFile)
			}

			eng, err := engine.New(cfg, configDir, logger)
			if err != nil {
				return err
			}
			defer eng.Close()
			srv := server.New(eng, logger)

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return eng.Start(gctx)
			})
			g.Go(func() error {
				return srv.ListenAndServe(cfg.Daemon.Socket)
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("Received stop signal")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			logger.WithField("pid", os.Getpid()).Info("Starting daemon")
			fmt.Fprintf(cmd.ErrOrStderr(), "finderd listening on %s (log: %s)\n", cfg.Daemon.Socket, paths.DaemonLogPath())

			if err := g.Wait(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("daemon error: %w", err)
			}
			return nil
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()
			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success("Sent SIGTERM to process %d", pid)
			return nil
		},
	}
}

// DaemonStatus is the output of 'finder daemon status'.
type DaemonStatus struct {
	Running   bool   `json:"running"`
	PID       int    `json:"pid,omitempty"`
	Socket    string `json:"socket"`
	Reachable bool   `json:"reachable"`
	LogFile   string `json:"log_file"`
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		Long:  "Check daemon status. Exits non-zero when the daemon is not running.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			status := DaemonStatus{
				Running:   running,
				Socket:    cfg.Daemon.Socket,
				Reachable: daemon.Reachable(cfg.Daemon.Socket),
				LogFile:   paths.DaemonLogPath(),
			}
			if running {
				status.PID = pid
			}

			if cli.GetOptions(cmd).JSONOutput {
				if err := cli.PrintJSON(cmd.OutOrStdout(), status); err != nil {
					return err
				}
			} else {
				pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
				if running {
					pretty.Success("Running (PID %d)", pid)
				} else {
					pretty.Warn("Stopped")
				}
				pretty.Path("Socket", status.Socket)
				pretty.Field("Reachable", status.Reachable)
				pretty.Path("Log", status.LogFile)
			}

			if !running {
				return errors.New(errors.ErrCodeDaemonUnavailable, "finder daemon is not running")
			}
			return nil
		},
	}
}
