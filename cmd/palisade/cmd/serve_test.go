package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/palisade-http/palisade/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "server.pid")

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile() error: %v", err)
	}

	if got := readPIDFile(path); got != os.Getpid() {
		t.Errorf("readPIDFile() = %d, want %d", got, os.Getpid())
	}
}

func TestReadPIDFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"garbage", "not-a-pid\n"},
		{"negative", "-5\n"},
		{"zero", "0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "server.pid")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if got := readPIDFile(path); got != 0 {
				t.Errorf("readPIDFile() = %d, want 0", got)
			}
		})
	}
}

func TestReadPIDFile_Missing(t *testing.T) {
	if got := readPIDFile(filepath.Join(t.TempDir(), "nope.pid")); got != 0 {
		t.Errorf("readPIDFile() = %d, want 0 for missing file", got)
	}
}

func TestCreateAccessStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("stdout", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.AccessLog.Output = "stdout"

		store, err := createAccessStore(cfg, logger)
		if err != nil {
			t.Fatalf("createAccessStore() error: %v", err)
		}
		defer store.Close()
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.AccessLog.Output = "sqlite://" + filepath.Join(t.TempDir(), "access.db")
		cfg.AccessLog.RetentionDays = 1

		store, err := createAccessStore(cfg, logger)
		if err != nil {
			t.Fatalf("createAccessStore() error: %v", err)
		}
		defer store.Close()
	})

	t.Run("file", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.AccessLog.Output = "file://" + t.TempDir()
		cfg.AccessLog.RetentionDays = 1

		store, err := createAccessStore(cfg, logger)
		if err != nil {
			t.Fatalf("createAccessStore() error: %v", err)
		}
		defer store.Close()
	})

	t.Run("invalid", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.AccessLog.Output = "syslog://localhost"

		if _, err := createAccessStore(cfg, logger); err == nil {
			t.Error("createAccessStore() = nil error, want error for unknown output")
		}
	})
}
