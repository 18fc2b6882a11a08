package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio may only be initialized once per process; sources and sinks
// share the library handle through a refcount.
var (
	paMu   sync.Mutex
	paRefs int
)

func paAcquire() error {
	paMu.Lock()
	defer paMu.Unlock()
	if paRefs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initializing portaudio: %w", err)
		}
	}
	paRefs++
	return nil
}

func paRelease() {
	paMu.Lock()
	defer paMu.Unlock()
	paRefs--
	if paRefs == 0 {
		_ = portaudio.Terminate()
	}
}

// fallbackCaptureRates are tried in order when the device refuses the
// requested capture rate. Captured audio is resampled back down in Read.
var fallbackCaptureRates = []int{48000, 44100}

type portAudioSource struct {
	cfg        Config
	logger     *slog.Logger
	deviceRate int

	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []int16
	started bool
	closed  bool
}

func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := paAcquire(); err != nil {
		return nil, err
	}

	s := &portAudioSource{cfg: cfg, logger: logger}

	var firstErr error
	for _, rate := range append([]int{cfg.SampleRate}, fallbackCaptureRates...) {
		// Size the device frame so one read still yields about
		// cfg.FrameSize samples after resampling.
		s.buf = make([]int16, cfg.FrameSize*cfg.Channels*rate/cfg.SampleRate)
		stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(rate), len(s.buf), &s.buf)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if rate != cfg.SampleRate {
			logger.Warn("capture device refused requested rate, resampling",
				"want", cfg.SampleRate, "using", rate)
		}
		s.deviceRate = rate
		s.stream = stream
		return s, nil
	}

	paRelease()
	// Opening the default capture device fails at every rate when the OS
	// refuses microphone access, so surface it as a permission problem.
	return nil, fmt.Errorf("%w: %v", ErrAccessDenied, firstErr)
}

func (s *portAudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("starting capture stream: %w", err)
	}
	s.started = true
	return nil
}

func (s *portAudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("stopping capture stream: %w", err)
	}
	return nil
}

func (s *portAudioSource) Read(ctx context.Context) (Chunk, error) {
	s.mu.Lock()
	if s.closed || !s.started {
		s.mu.Unlock()
		return Chunk{}, io.EOF
	}
	stream := s.stream
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}

	if err := stream.Read(); err != nil {
		return Chunk{}, fmt.Errorf("reading capture stream: %w", err)
	}

	s.mu.Lock()
	samples := make([]int16, len(s.buf))
	copy(samples, s.buf)
	s.mu.Unlock()

	if s.deviceRate != s.cfg.SampleRate {
		samples = Resample(samples, s.deviceRate, s.cfg.SampleRate)
	}

	return Chunk{
		Samples:    samples,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
	}, nil
}

func (s *portAudioSource) Config() Config { return s.cfg }
func (s *portAudioSource) Name() string   { return "portaudio" }

func (s *portAudioSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.started = false
	stream := s.stream
	s.mu.Unlock()

	err := stream.Close()
	paRelease()
	if err != nil {
		return fmt.Errorf("closing capture stream: %w", err)
	}
	return nil
}

type portAudioSink struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	stream    *portaudio.Stream
	out       []int16
	remainder []int16
	started   bool
	closed    bool
}

func newPortAudioSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := paAcquire(); err != nil {
		return nil, err
	}

	k := &portAudioSink{
		cfg:    cfg,
		logger: logger,
		out:    make([]int16, cfg.FrameSize*cfg.Channels),
	}
	k.remainder = make([]int16, 0, len(k.out))

	stream, err := portaudio.OpenDefaultStream(0, cfg.Channels, float64(cfg.SampleRate), len(k.out), &k.out)
	if err != nil {
		paRelease()
		return nil, fmt.Errorf("opening playback stream: %w", err)
	}
	k.stream = stream

	return k, nil
}

func (k *portAudioSink) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrClosed
	}
	if k.started {
		return nil
	}
	if err := k.stream.Start(); err != nil {
		return fmt.Errorf("starting playback stream: %w", err)
	}
	k.started = true
	return nil
}

func (k *portAudioSink) Stop() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.started {
		return nil
	}
	k.started = false
	k.remainder = k.remainder[:0]
	if err := k.stream.Stop(); err != nil {
		return fmt.Errorf("stopping playback stream: %w", err)
	}
	return nil
}

// Write plays samples through the device, carrying any tail shorter than
// a device frame to the next call.
func (k *portAudioSink) Write(chunk Chunk) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrClosed
	}
	if !k.started {
		return ErrClosed
	}

	pending := append(k.remainder, chunk.Samples...)
	frame := len(k.out)
	for len(pending) >= frame {
		copy(k.out, pending[:frame])
		pending = pending[frame:]
		if err := k.stream.Write(); err != nil {
			k.remainder = k.remainder[:0]
			return fmt.Errorf("writing playback stream: %w", err)
		}
	}
	k.remainder = append(k.remainder[:0], pending...)
	return nil
}

func (k *portAudioSink) Config() Config { return k.cfg }
func (k *portAudioSink) Name() string   { return "portaudio" }

func (k *portAudioSink) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	k.started = false
	stream := k.stream
	k.mu.Unlock()

	err := stream.Close()
	paRelease()
	if err != nil {
		return fmt.Errorf("closing playback stream: %w", err)
	}
	return nil
}

var (
	_ Source = (*portAudioSource)(nil)
	_ Sink   = (*portAudioSink)(nil)
)
