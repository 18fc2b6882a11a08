package agni

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/agni-os/nova/pkg/audioio"
)

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Config holds the application configuration.
type Config struct {
	// APIKey authenticates all model traffic.
	APIKey string

	// Port is the dashboard HTTP port.
	Port string

	// LogLevel selects the logging verbosity.
	LogLevel string

	// Voice is the synthesis voice for both TTS and live audio.
	Voice string

	// LiveModel overrides the realtime model resource name.
	LiveModel string

	// CameraEnabled turns on the vision frame feed during sessions.
	CameraEnabled bool

	// CameraDevice is the capture device index.
	CameraDevice int

	// RecordPath, when set, archives session capture audio as WAV.
	RecordPath string

	// Capture is the microphone configuration.
	Capture audioio.Config

	// Playback is the speaker configuration.
	Playback audioio.Config
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",
		Voice:    "Kore",
		Capture:  audioio.DefaultCaptureConfig(),
		Playback: audioio.DefaultPlaybackConfig(),
	}
}

// LoadEnvConfig builds a config from the environment on top of the
// defaults. cmd/nova loads .env files before calling this.
func LoadEnvConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("NOVA_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("NOVA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("NOVA_VOICE"); v != "" {
		cfg.Voice = v
	}
	if v := os.Getenv("NOVA_LIVE_MODEL"); v != "" {
		cfg.LiveModel = v
	}
	if v := os.Getenv("NOVA_RECORD_PATH"); v != "" {
		cfg.RecordPath = v
	}
	if v := os.Getenv("NOVA_CAMERA"); v != "" {
		cfg.CameraEnabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("NOVA_CAMERA_DEVICE"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			cfg.CameraDevice = id
		}
	}
	if v := os.Getenv("NOVA_AUDIO_BACKEND"); v != "" {
		cfg.Capture.Backend = audioio.Backend(v)
		cfg.Playback.Backend = audioio.Backend(v)
	}

	return cfg
}

// Validate checks the configuration for use.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigError{Field: "api_key", Message: "GEMINI_API_KEY is required"}
	}
	if c.Port == "" {
		return &ConfigError{Field: "port", Message: "port is required"}
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return &ConfigError{Field: "port", Message: "port must be numeric"}
	}
	if err := c.Capture.Validate(); err != nil {
		return &ConfigError{Field: "capture", Message: err.Error()}
	}
	if err := c.Playback.Validate(); err != nil {
		return &ConfigError{Field: "playback", Message: err.Error()}
	}
	return nil
}
