package audioio

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder archives captured audio to a WAV file. It is an optional
// debugging aid on the capture path and never blocks it: write errors
// are remembered and reported on Close.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	enc    *wav.Encoder
	format *audio.Format
	err    error
	closed bool
}

// NewRecorder creates a WAV recorder writing to path.
func NewRecorder(path string, sampleRate, channels int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating recording file: %w", err)
	}
	return &Recorder{
		file: f,
		enc:  wav.NewEncoder(f, sampleRate, 16, channels, 1),
		format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
	}, nil
}

// Record appends a chunk to the archive.
func (r *Recorder) Record(chunk Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}

	data := make([]int, len(chunk.Samples))
	for i, s := range chunk.Samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         r.format,
		SourceBitDepth: 16,
	}
	if err := r.enc.Write(buf); err != nil {
		r.err = fmt.Errorf("writing recording: %w", err)
	}
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.err
	}
	r.closed = true

	if err := r.enc.Close(); err != nil && r.err == nil {
		r.err = fmt.Errorf("finalizing recording: %w", err)
	}
	if err := r.file.Close(); err != nil && r.err == nil {
		r.err = fmt.Errorf("closing recording file: %w", err)
	}
	return r.err
}
