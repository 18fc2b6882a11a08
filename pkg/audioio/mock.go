package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
)

// MockSource generates synthetic audio for tests: silence by default,
// or a sine wave. Frames are produced on demand from Read, so tests
// run without real-time pacing.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	phase   float64

	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0

	framesRead int
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave makes the mock generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// NewMockSource creates a mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockSource{
		cfg:       cfg,
		logger:    logger,
		amplitude: 0.5,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.started = true
	return nil
}

func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	return nil
}

func (m *MockSource) Read(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.started {
		return Chunk{}, io.EOF
	}

	samples := make([]int16, m.cfg.FrameSize*m.cfg.Channels)
	if m.frequency > 0 {
		mono := make([]float32, m.cfg.FrameSize)
		for i := range mono {
			mono[i] = float32(m.amplitude * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.cfg.SampleRate)))
			m.phase++
			if m.phase >= float64(m.cfg.SampleRate) {
				m.phase = 0
			}
		}
		for i, s := range FloatsToPCM16(mono) {
			for ch := 0; ch < m.cfg.Channels; ch++ {
				samples[i*m.cfg.Channels+ch] = s
			}
		}
	}
	m.framesRead++

	return Chunk{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}, nil
}

func (m *MockSource) Config() Config { return m.cfg }
func (m *MockSource) Name() string   { return "mock" }

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.started = false
	return nil
}

// FramesRead reports how many frames were consumed, for tests.
func (m *MockSource) FramesRead() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.framesRead
}

// MockSink records written audio instead of playing it.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool

	written []int16
	writes  int
}

// NewMockSink creates a mock audio sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSink{cfg: cfg, logger: logger}
}

func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.started = true
	return nil
}

func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	return nil
}

func (m *MockSink) Write(chunk Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.started {
		return ErrClosed
	}
	m.written = append(m.written, chunk.Samples...)
	m.writes++
	return nil
}

func (m *MockSink) Config() Config { return m.cfg }
func (m *MockSink) Name() string   { return "mock" }

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.started = false
	return nil
}

// Written returns a snapshot of all samples written so far.
func (m *MockSink) Written() []int16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int16, len(m.written))
	copy(out, m.written)
	return out
}

// Writes reports the number of Write calls.
func (m *MockSink) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

var (
	_ Source = (*MockSource)(nil)
	_ Sink   = (*MockSink)(nil)
)
