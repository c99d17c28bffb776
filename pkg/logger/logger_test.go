package logger

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid config with info level",
			cfg:     &Config{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level",
			cfg:     &Config{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &Config{Level: "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	logger, err := New(&Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New() with file output failed: %v", err)
	}
	if logger == nil {
		t.Fatal("New() returned nil logger")
	}

	logger.Info("file output test")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, false},
		{"invalid", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	base, err := New(&Config{Level: "error"})
	if err != nil {
		t.Fatal(err)
	}

	child := base.WithField("component", "scraper")
	if child == nil {
		t.Fatal("WithField returned nil")
	}

	grandchild := child.WithFields(map[string]interface{}{"attempt": 2})
	if grandchild == nil {
		t.Fatal("WithFields returned nil")
	}

	parent, ok := base.(*zerologLogger)
	if !ok {
		t.Fatal("unexpected logger type")
	}
	if len(parent.fields) != 0 {
		t.Errorf("Expected parent logger fields untouched, got %d fields", len(parent.fields))
	}
}

func TestWithErrorNilIsNoop(t *testing.T) {
	base, err := New(&Config{Level: "error"})
	if err != nil {
		t.Fatal(err)
	}

	if got := base.WithError(nil); got != base {
		t.Error("Expected WithError(nil) to return the same logger")
	}
}

func TestGetLoggerCreatesDefault(t *testing.T) {
	if GetLogger() == nil {
		t.Error("Expected GetLogger to create a default logger")
	}
}
