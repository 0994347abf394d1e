// Package config loads minutes settings from YAML, .env and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Capture CaptureConfig `yaml:"capture"`
	Paths   PathsConfig   `yaml:"paths"`
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`
}

type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

type CaptureConfig struct {
	FFmpegPath    string `yaml:"ffmpeg_path"`
	FFprobePath   string `yaml:"ffprobe_path"`
	InputFormat   string `yaml:"input_format"`
	Device        string `yaml:"device"`
	SampleRate    int    `yaml:"sample_rate"`
	Channels      int    `yaml:"channels"`
	Bitrate       string `yaml:"bitrate"`
	EchoCancel    *bool  `yaml:"echo_cancellation"`
	NoiseSuppress *bool  `yaml:"noise_suppression"`
}

type PathsConfig struct {
	DataDir string `yaml:"data_dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type WatchConfig struct {
	Inbox         string `yaml:"inbox"`
	Output        string `yaml:"output"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	Docx          bool   `yaml:"docx"`
	MetricsAddr   string `yaml:"metrics_addr"`
}

// DefaultPath returns ~/.config/minutes/config.yaml.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "minutes")
}

// Load reads the YAML file at path (a missing file is not an error), applies
// .env and MINUTES_* overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.API.BaseURL, "MINUTES_API_URL")
	setString(&c.API.Language, "MINUTES_LANGUAGE")
	setString(&c.Capture.FFmpegPath, "MINUTES_FFMPEG")
	setString(&c.Capture.FFprobePath, "MINUTES_FFPROBE")
	setString(&c.Capture.Device, "MINUTES_CAPTURE_DEVICE")
	setString(&c.Paths.DataDir, "MINUTES_DATA_DIR")
	setString(&c.Logging.Level, "MINUTES_LOG_LEVEL")
	setString(&c.Watch.MetricsAddr, "MINUTES_METRICS_ADDR")

	if v := strings.TrimSpace(os.Getenv("MINUTES_API_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MINUTES_API_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if v := strings.TrimSpace(os.Getenv("MINUTES_WATCH_CONCURRENCY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MINUTES_WATCH_CONCURRENCY %q: %w", v, err)
		}
		c.Watch.MaxConcurrent = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Capture.SampleRate < 0 {
		return fmt.Errorf("capture.sample_rate must not be negative")
	}
	if c.Watch.MaxConcurrent < 0 {
		return fmt.Errorf("watch.max_concurrent must not be negative")
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:5000"
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Language == "" {
		c.API.Language = "en"
	}
	if c.Capture.FFmpegPath == "" {
		c.Capture.FFmpegPath = "ffmpeg"
	}
	if c.Capture.FFprobePath == "" {
		c.Capture.FFprobePath = "ffprobe"
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Capture.Channels == 0 {
		c.Capture.Channels = 1
	}
	if c.Capture.Bitrate == "" {
		c.Capture.Bitrate = "128k"
	}
	if c.Capture.EchoCancel == nil {
		c.Capture.EchoCancel = boolPtr(true)
	}
	if c.Capture.NoiseSuppress == nil {
		c.Capture.NoiseSuppress = boolPtr(true)
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = defaultDataDir()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Watch.MaxConcurrent == 0 {
		c.Watch.MaxConcurrent = 2
	}
	return nil
}

// DBPath is the sqlite file holding the session and history.
func (c *Config) DBPath() string {
	return filepath.Join(c.Paths.DataDir, "minutes.sqlite")
}

// LogPath is where the TUI writes its log.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.DataDir, "minutes.log")
}

func boolPtr(b bool) *bool { return &b }
