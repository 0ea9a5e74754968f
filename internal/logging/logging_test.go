package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skobkin/presencego/internal/config"
)

func TestFanoutWriter_ContinuesWhenOneDestinationFails(t *testing.T) {
	var dst bytes.Buffer
	w := newFanoutWriter(errorWriter{err: errors.New("broken console")}, &dst)

	n, err := w.Write([]byte("test"))
	if err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	if n != len("test") {
		t.Fatalf("unexpected bytes written: got %d, want %d", n, len("test"))
	}
	if got := dst.String(); got != "test" {
		t.Fatalf("unexpected destination contents: got %q", got)
	}
}

func TestFanoutWriter_AllDestinationsFail(t *testing.T) {
	w := newFanoutWriter(errorWriter{err: errors.New("a")}, errorWriter{err: errors.New("b")})
	if _, err := w.Write([]byte("x")); err == nil || err.Error() != "a" {
		t.Fatalf("expected first error, got %v", err)
	}
}

func TestManagerConfigure_LogFileStillReceivesLogsWhenConsoleFails(t *testing.T) {
	origDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origDefault) })

	logPath := filepath.Join(t.TempDir(), "logs", "presenced.log")
	m := NewManager(errorWriter{err: errors.New("broken console")})
	t.Cleanup(func() { _ = m.Close() })

	if err := m.Configure(config.LoggingConfig{Level: "debug", LogToFile: true}, logPath); err != nil {
		t.Fatalf("configure manager: %v", err)
	}

	slog.Info("file must receive this message")

	if err := m.Close(); err != nil {
		t.Fatalf("close manager: %v", err)
	}

	cleanLogPath := filepath.Clean(logPath)
	// #nosec G304 -- logPath is created from t.TempDir() in this test.
	raw, err := os.ReadFile(cleanLogPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(raw, []byte("file must receive this message")) {
		t.Fatalf("log file does not contain test message, contents: %q", string(raw))
	}
}

func TestManagerJSONFormatAndComponent(t *testing.T) {
	origDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origDefault) })

	var out bytes.Buffer
	m := NewManager(&out)
	if err := m.Configure(config.LoggingConfig{Level: "info", Format: config.LogFormatJSON}, ""); err != nil {
		t.Fatalf("configure manager: %v", err)
	}

	m.Logger("rpc").Info("connected", "endpoint", "/tmp/discord-ipc-0")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &rec); err != nil {
		t.Fatalf("expected one json record, got %q: %v", out.String(), err)
	}
	if rec["component"] != "rpc" || rec["endpoint"] != "/tmp/discord-ipc-0" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestManagerSetLevel(t *testing.T) {
	origDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origDefault) })

	var out bytes.Buffer
	m := NewManager(&out)
	if err := m.Configure(config.LoggingConfig{Level: "warn"}, ""); err != nil {
		t.Fatalf("configure manager: %v", err)
	}

	m.Logger("test").Info("hidden")
	if out.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", out.String())
	}
	if err := m.SetLevel("debug"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	m.Logger("test").Debug("visible")
	if !strings.Contains(out.String(), "visible") {
		t.Fatalf("expected debug output, got %q", out.String())
	}
	if err := m.SetLevel("loud"); err == nil {
		t.Fatalf("expected unsupported level error")
	}
}

type errorWriter struct {
	err error
}

func (w errorWriter) Write(_ []byte) (int, error) {
	return 0, w.err
}
