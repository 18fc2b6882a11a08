// Package live implements the bidirectional realtime session with the
// Gemini Live API over a websocket. One client is one session: it mints
// a session ID on connect and stamps it on every callback, so owners
// can discard events that belong to a connection that has since been
// torn down.
package live

import (
	"errors"
	"time"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("live: missing API key")

	// ErrNotConnected is returned when sending on a closed session.
	ErrNotConnected = errors.New("live: not connected")

	// ErrAlreadyConnected is returned by Connect on a live session.
	ErrAlreadyConnected = errors.New("live: already connected")
)

const (
	liveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	defaultModel = "models/gemini-2.5-flash-native-audio-preview-09-2025"
	defaultVoice = "Kore"

	// Wire formats for outgoing media chunks.
	audioMimeType = "audio/pcm;rate=16000"
	imageMimeType = "image/jpeg"
)

// Config holds the session configuration.
type Config struct {
	// APIKey authenticates the websocket dial.
	APIKey string

	// Model is the live model resource name.
	Model string

	// Voice is the prebuilt voice for audio responses.
	Voice string

	// SystemPrompt is the session's system instruction.
	SystemPrompt string

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns a config with the standard model and voice.
func DefaultConfig() Config {
	return Config{
		Model:            defaultModel,
		Voice:            defaultVoice,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Validate checks that the config can open a session.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Tool is a function the model may invoke mid-session.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(args map[string]any) (string, error)
}

// ToolCall is a single function invocation from the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}
