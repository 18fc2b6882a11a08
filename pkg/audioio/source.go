package audioio

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrAccessDenied means the capture device could not be opened,
	// typically because microphone permission was refused.
	ErrAccessDenied = errors.New("audioio: device access denied")

	// ErrClosed means the device was already closed.
	ErrClosed = errors.New("audioio: device closed")
)

// Source captures audio from a microphone.
type Source interface {
	// Start begins capture. Safe to call once per open device.
	Start(ctx context.Context) error

	// Stop halts capture. Safe to call multiple times.
	Stop() error

	// Read blocks until the next frame is available.
	// Returns io.EOF after the source is stopped.
	Read(ctx context.Context) (Chunk, error)

	// Config returns the device configuration.
	Config() Config

	// Name returns the backend name.
	Name() string

	// Close releases the device. The source cannot be restarted after.
	io.Closer
}

// Sink plays audio through a speaker.
type Sink interface {
	// Start opens the output stream.
	Start(ctx context.Context) error

	// Stop halts playback. Safe to call multiple times.
	Stop() error

	// Write queues a chunk for playback. It may block while the
	// device drains.
	Write(chunk Chunk) error

	// Config returns the device configuration.
	Config() Config

	// Name returns the backend name.
	Name() string

	io.Closer
}
