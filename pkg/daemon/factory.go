package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/finder/config"
)

// New returns a Client that will use the daemon if available,
// otherwise falls back to LocalClient.
func New(cfg *config.Config) Client {
	socketPath := cfg.Daemon.Socket
	if Reachable(socketPath) {
		return NewRemoteClient(socketPath)
	}
	return NewLocalClient(cfg)
}

// Reachable reports whether something accepts connections on socketPath.
func Reachable(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
