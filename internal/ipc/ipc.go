// Package ipc locates the local Unix socket on which a running sharedclip
// server also answers gRPC. CLI commands check for it and fall back to TCP
// when it is absent.
package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
)

// ErrInUse is returned by Listen when another server already owns the socket.
var ErrInUse = errors.New("ipc socket in use")

// SocketPath returns the socket path: $SHAREDCLIP_SOCKET if set, otherwise
// sharedclip.sock under $XDG_RUNTIME_DIR or the temp dir.
func SocketPath() string {
	if s := os.Getenv("SHAREDCLIP_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "sharedclip.sock")
	}
	return filepath.Join(os.TempDir(), "sharedclip.sock")
}

// Target returns the gRPC dial target for the socket.
func Target() string { return "unix://" + SocketPath() }

// IsRunning reports whether a server appears to be listening on the socket.
// It does a dial-and-close; no data is exchanged.
func IsRunning() bool {
	if runtime.GOOS == "windows" {
		return false
	}
	c, err := net.Dial("unix", SocketPath())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates the socket, removing a stale file left by a crashed run.
// The socket is restricted to the current user.
func Listen() (net.Listener, error) {
	if runtime.GOOS == "windows" {
		return nil, fmt.Errorf("ipc: %w", errors.ErrUnsupported)
	}
	path := SocketPath()
	if IsRunning() {
		return nil, fmt.Errorf("%w: %s", ErrInUse, path)
	}
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("ipc chmod %s: %w", path, err)
	}
	return ln, nil
}
