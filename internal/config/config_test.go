package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty config gets defaults",
			config:  Config{},
			wantErr: false,
		},
		{
			name:    "negative timeout",
			config:  Config{API: APIConfig{Timeout: -time.Second}},
			wantErr: true,
		},
		{
			name:    "negative concurrency",
			config:  Config{Watch: WatchConfig{MaxConcurrent: -1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:5000" {
		t.Errorf("BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:5000")
	}
	if cfg.API.Language != "en" {
		t.Errorf("Language = %q, want %q", cfg.API.Language, "en")
	}
	if cfg.API.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0 (no client timeout)", cfg.API.Timeout)
	}
	if cfg.Capture.SampleRate != 16000 || cfg.Capture.Channels != 1 {
		t.Errorf("capture = %d Hz / %d ch, want 16000 / 1", cfg.Capture.SampleRate, cfg.Capture.Channels)
	}
	if cfg.Capture.Bitrate != "128k" {
		t.Errorf("Bitrate = %q, want %q", cfg.Capture.Bitrate, "128k")
	}
	if !*cfg.Capture.EchoCancel || !*cfg.Capture.NoiseSuppress {
		t.Error("capture hints should default to enabled")
	}
	if cfg.Watch.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", cfg.Watch.MaxConcurrent)
	}
}

func TestValidateTrimsBaseURL(t *testing.T) {
	cfg := Config{API: APIConfig{BaseURL: "http://api.local:5000/"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.API.BaseURL != "http://api.local:5000" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  base_url: http://meetings.example:8080
  language: es
capture:
  bitrate: 96k
  noise_suppression: false
watch:
  max_concurrent: 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://meetings.example:8080" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Language != "es" {
		t.Errorf("Language = %q, want %q", cfg.API.Language, "es")
	}
	if cfg.Capture.Bitrate != "96k" {
		t.Errorf("Bitrate = %q, want %q", cfg.Capture.Bitrate, "96k")
	}
	if *cfg.Capture.NoiseSuppress {
		t.Error("noise_suppression: false should be kept")
	}
	if cfg.Watch.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", cfg.Watch.MaxConcurrent)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.API.Language != "en" {
		t.Errorf("Language = %q, want default", cfg.API.Language)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MINUTES_API_URL", "http://env.example")
	t.Setenv("MINUTES_API_TIMEOUT", "90s")
	t.Setenv("MINUTES_WATCH_CONCURRENCY", "3")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://env.example" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.API.Timeout)
	}
	if cfg.Watch.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", cfg.Watch.MaxConcurrent)
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("MINUTES_API_TIMEOUT", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for unparsable timeout")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("api: [unclosed"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
