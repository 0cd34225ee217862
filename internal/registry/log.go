package registry

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

const previewLen = 120

// LogContent logs a clipboard write at INFO (device, size) and, when debug
// logging is enabled, a preview of up to 120 bytes.
func LogContent(event, deviceID, content string) {
	slog.Info(event, "device", deviceID, "size_bytes", len(content))

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("clipboard content", "device", deviceID, "preview", preview(content, previewLen))
}

// preview cuts s to at most n bytes without splitting a UTF-8 sequence.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
