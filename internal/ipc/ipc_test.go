package ipc

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSocketPath(t *testing.T) {
	tests := []struct {
		name   string
		socket string
		xdg    string
		want   string
	}{
		{"explicit", "/run/custom.sock", "/run/user/1000", "/run/custom.sock"},
		{"xdg", "", "/run/user/1000", "/run/user/1000/sharedclip.sock"},
		{"temp", "", "", filepath.Join(os.TempDir(), "sharedclip.sock")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SHAREDCLIP_SOCKET", tt.socket)
			t.Setenv("XDG_RUNTIME_DIR", tt.xdg)
			if got := SocketPath(); got != tt.want {
				t.Errorf("SocketPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListen(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets only")
	}
	path := filepath.Join(t.TempDir(), "s.sock")
	t.Setenv("SHAREDCLIP_SOCKET", path)

	if IsRunning() {
		t.Fatal("IsRunning() = true before Listen")
	}
	// A stale file from a crashed run is replaced.
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	if !IsRunning() {
		t.Error("IsRunning() = false while listening")
	}
	if _, err := Listen(); !errors.Is(err, ErrInUse) {
		t.Errorf("second Listen() = %v, want ErrInUse", err)
	}
	if got := Target(); got != "unix://"+path {
		t.Errorf("Target() = %q", got)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := fi.Mode().Perm(); perm != 0o600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}

	_ = ln.Close()
	if IsRunning() {
		t.Error("IsRunning() = true after Close")
	}
}
