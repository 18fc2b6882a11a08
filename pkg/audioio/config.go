// Package audioio provides audio capture and playback for nova.
//
// Two backends are supported:
//   - PortAudio - real microphone and speaker devices
//   - Mock - synthetic audio for CI/testing without hardware
//
// Capture runs at 16 kHz mono in 4096-sample frames, the format the live
// session expects. Playback runs at 24 kHz, the rate the model returns.
package audioio

import "fmt"

// Backend selects the audio device implementation.
type Backend string

const (
	// BackendAuto picks the best available backend.
	BackendAuto Backend = "auto"
	// BackendPortAudio uses PortAudio devices.
	BackendPortAudio Backend = "portaudio"
	// BackendMock uses synthetic audio for testing.
	BackendMock Backend = "mock"
)

// Config holds audio device configuration.
type Config struct {
	// Backend specifies which device implementation to use.
	Backend Backend `json:"backend"`

	// SampleRate in Hz.
	SampleRate int `json:"sample_rate"`

	// Channels is the channel count. Capture and playback are mono.
	Channels int `json:"channels"`

	// FrameSize is the number of samples per frame.
	FrameSize int `json:"frame_size"`
}

// DefaultCaptureConfig returns the microphone configuration the live
// session requires: 16 kHz mono, 4096-sample frames.
func DefaultCaptureConfig() Config {
	return Config{
		Backend:    BackendAuto,
		SampleRate: 16000,
		Channels:   1,
		FrameSize:  4096,
	}
}

// DefaultPlaybackConfig returns the speaker configuration matching the
// model's output audio: 24 kHz mono.
func DefaultPlaybackConfig() Config {
	return Config{
		Backend:    BackendAuto,
		SampleRate: 24000,
		Channels:   1,
		FrameSize:  1024,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("audioio: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("audioio: channels must be positive, got %d", c.Channels)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("audioio: frame_size must be positive, got %d", c.FrameSize)
	}
	return nil
}

// FrameBytes returns the size of one frame in bytes (int16 samples).
func (c *Config) FrameBytes() int {
	return c.FrameSize * c.Channels * 2
}
