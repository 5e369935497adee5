package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// WriteTree creates files and directories under root. Keys ending in "/"
// are directories; other keys are files with the given content.
func WriteTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()

	for rel, content := range tree {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			require.NoError(t, os.MkdirAll(p, 0755), "mkdir %s", rel)
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755), "mkdir parent of %s", rel)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644), "write %s", rel)
	}
}

// SetModTime sets both atime and mtime of root/rel.
func SetModTime(t *testing.T, root, rel string, mtime time.Time) {
	t.Helper()

	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.Chtimes(p, mtime, mtime), "chtimes %s", rel)
}

// QuietLogger returns a logger entry that discards everything below panic.
func QuietLogger(component string) *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l.WithField("component", component)
}

// RandomString generates a random string of the specified length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

// Eventually polls cond every 10ms until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
