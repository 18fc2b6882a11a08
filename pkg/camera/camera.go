// Package camera grabs JPEG vision frames for the live session.
//
// The media runtime polls Frame at 1 Hz while a session is active and
// streams each frame to the model alongside the audio. A machine with
// no camera simply runs audio-only sessions; every error here is
// non-fatal.
package camera

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/agni-os/nova/internal/log"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("camera: closed")

const (
	// Frames are downscaled before encoding; the model needs context,
	// not resolution.
	frameWidth  = 320
	frameHeight = 240

	jpegQuality = 60
)

// Capture owns one camera device.
type Capture struct {
	mu     sync.Mutex
	device *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// Open acquires the camera at the given device index.
func Open(deviceID int) (*Capture, error) {
	device, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("camera: opening device %d: %w", deviceID, err)
	}

	log.Info("camera opened", "device", deviceID)
	return &Capture{
		device: device,
		mat:    gocv.NewMat(),
	}, nil
}

// Frame grabs one frame, downscales it, and returns JPEG bytes.
func (c *Capture) Frame() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	if ok := c.device.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, errors.New("camera: failed to read frame")
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(c.mat, &scaled, image.Pt(frameWidth, frameHeight), 0, 0, gocv.InterpolationLinear)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, scaled, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return nil, fmt.Errorf("camera: encoding frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the device. Idempotent.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.mat.Close()
	if err := c.device.Close(); err != nil {
		return fmt.Errorf("camera: closing device: %w", err)
	}
	return nil
}
