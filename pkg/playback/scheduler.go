// Package playback schedules model audio onto the output device.
//
// Segments are placed on a monotonic timeline: each one starts at the
// later of the cursor and the device clock, and advances the cursor by
// its own duration, so consecutive chunks play gapless and never
// overlap. The scheduler tracks every in-flight segment; when the last
// one completes the drain callback fires, which is the single signal
// the rest of the system uses to know speech has finished.
package playback

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/agni-os/nova/pkg/analysis"
	"github.com/agni-os/nova/pkg/audioio"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("playback: scheduler closed")

// Clock reports the device timeline position in seconds.
type Clock interface {
	Now() float64
}

type monotonicClock struct {
	start time.Time
}

func (c *monotonicClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// NewMonotonicClock returns a clock anchored at construction time.
func NewMonotonicClock() Clock {
	return &monotonicClock{start: time.Now()}
}

// Scheduled describes where an enqueued segment landed on the timeline.
type Scheduled struct {
	// Start is the timeline position in seconds.
	Start float64

	// Duration of the segment.
	Duration time.Duration
}

type segment struct {
	timer *time.Timer
}

// Scheduler owns the playback timeline for one output sink.
type Scheduler struct {
	clock      Clock
	sink       audioio.Sink
	tap        *analysis.Tap
	sampleRate int
	logger     *slog.Logger

	mu        sync.Mutex
	cursor    float64
	active    map[uint64]*segment
	nextID    uint64
	gen       uint64
	onDrained func()
	closed    bool

	writeCh chan audioio.Chunk
	done    chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock substitutes the device clock, for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithSampleRate overrides the output sample rate.
func WithSampleRate(rate int) Option {
	return func(s *Scheduler) { s.sampleRate = rate }
}

// New creates a scheduler writing to sink. The tap observes every
// scheduled sample and may be nil.
func New(sink audioio.Sink, tap *analysis.Tap, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		clock:      NewMonotonicClock(),
		sink:       sink,
		tap:        tap,
		sampleRate: 24000,
		logger:     logger,
		active:     make(map[uint64]*segment),
		writeCh:    make(chan audioio.Chunk, 64),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.writeLoop()
	return s
}

// writeLoop feeds the sink off the caller's goroutine so Enqueue never
// blocks on the device.
func (s *Scheduler) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case chunk := <-s.writeCh:
			if s.sink == nil {
				continue
			}
			if err := s.sink.Write(chunk); err != nil {
				s.logger.Warn("playback write failed", "error", err)
			}
		}
	}
}

// OnDrained registers the callback fired each time the active set
// transitions from busy to empty.
func (s *Scheduler) OnDrained(fn func()) {
	s.mu.Lock()
	s.onDrained = fn
	s.mu.Unlock()
}

// Enqueue schedules raw PCM16 bytes at the next gapless position.
func (s *Scheduler) Enqueue(pcm []byte) (Scheduled, error) {
	var chunk audioio.Chunk
	chunk.FromBytes(pcm, s.sampleRate, 1)
	samples := chunk.Samples
	dur := chunk.Duration()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Scheduled{}, ErrClosed
	}

	now := s.clock.Now()
	start := s.cursor
	if now > start {
		start = now
	}
	s.cursor = start + dur.Seconds()

	id := s.nextID
	s.nextID++
	gen := s.gen

	seg := &segment{}
	delay := time.Duration((start - now) * float64(time.Second))
	seg.timer = time.AfterFunc(delay+dur, func() {
		s.complete(id, gen)
	})
	s.active[id] = seg
	s.mu.Unlock()

	s.tap.Push(samples)

	select {
	case s.writeCh <- chunk:
	default:
		s.logger.Warn("playback queue full, dropping chunk", "samples", len(samples))
	}

	return Scheduled{Start: start, Duration: dur}, nil
}

// complete removes a finished segment. Segments flushed before their
// timer fired belong to an older generation and are ignored.
func (s *Scheduler) complete(id, gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if _, ok := s.active[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	drained := len(s.active) == 0
	cb := s.onDrained
	s.mu.Unlock()

	if drained && cb != nil {
		cb()
	}
}

// Flush cancels every pending segment and resets the cursor. Flushed
// segments never trigger the drain callback.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	s.gen++
	for id, seg := range s.active {
		seg.timer.Stop()
		delete(s.active, id)
	}
	s.cursor = 0
	s.mu.Unlock()

	// Drop anything the writer has not picked up yet.
	for {
		select {
		case <-s.writeCh:
		default:
			return
		}
	}
}

// Active returns the number of in-flight segments.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Cursor returns the current timeline position in seconds.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Close flushes and shuts the writer down. The scheduler cannot be
// reused after Close.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Flush()
	close(s.done)
	return nil
}
