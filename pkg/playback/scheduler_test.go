package playback

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agni-os/nova/pkg/analysis"
	"github.com/agni-os/nova/pkg/audioio"
)

type fakeClock struct {
	mu  sync.Mutex
	now float64
}

func (c *fakeClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t float64) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// pcmSeconds builds raw PCM16 bytes lasting d seconds at 24 kHz.
func pcmSeconds(d float64) []byte {
	n := int(d * 24000)
	return make([]byte, n*2)
}

func newTestScheduler(clock Clock) *Scheduler {
	return New(nil, nil, nil, WithClock(clock))
}

func TestGaplessScheduling(t *testing.T) {
	clock := &fakeClock{}
	s := newTestScheduler(clock)
	defer s.Close()

	first, err := s.Enqueue(pcmSeconds(0.5))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if first.Start != 0 {
		t.Errorf("first start = %v, want 0", first.Start)
	}

	second, err := s.Enqueue(pcmSeconds(0.25))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	wantStart := first.Start + first.Duration.Seconds()
	if math.Abs(second.Start-wantStart) > 1e-9 {
		t.Errorf("second start = %v, want %v (gapless)", second.Start, wantStart)
	}
	if second.Start < first.Start+first.Duration.Seconds() {
		t.Error("segments overlap")
	}

	wantCursor := second.Start + second.Duration.Seconds()
	if math.Abs(s.Cursor()-wantCursor) > 1e-9 {
		t.Errorf("cursor = %v, want %v", s.Cursor(), wantCursor)
	}
	if s.Active() != 2 {
		t.Errorf("active = %d, want 2", s.Active())
	}
}

func TestStartNeverBeforeDeviceClock(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(5.0)

	s := newTestScheduler(clock)
	defer s.Close()

	got, err := s.Enqueue(pcmSeconds(0.1))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if got.Start != 5.0 {
		t.Errorf("start = %v, want 5.0 (device clock)", got.Start)
	}
}

func TestCursorLagsBehindClock(t *testing.T) {
	clock := &fakeClock{}
	s := newTestScheduler(clock)
	defer s.Close()

	if _, err := s.Enqueue(pcmSeconds(0.1)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Long silence: the device clock runs past the cursor.
	clock.Set(10.0)

	got, err := s.Enqueue(pcmSeconds(0.1))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if got.Start != 10.0 {
		t.Errorf("start = %v, want 10.0 after idle gap", got.Start)
	}
}

func TestDrainedFiresOncePerBusyToEmpty(t *testing.T) {
	clock := &fakeClock{}
	s := newTestScheduler(clock)
	defer s.Close()

	var drains atomic.Int32
	done := make(chan struct{}, 4)
	s.OnDrained(func() {
		drains.Add(1)
		done <- struct{}{}
	})

	if _, err := s.Enqueue(pcmSeconds(0.01)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := s.Enqueue(pcmSeconds(0.01)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drain callback never fired")
	}

	// Give any spurious second callback a chance to show up.
	time.Sleep(50 * time.Millisecond)
	if n := drains.Load(); n != 1 {
		t.Errorf("drain fired %d times, want exactly 1", n)
	}
	if s.Active() != 0 {
		t.Errorf("active = %d after drain, want 0", s.Active())
	}
}

func TestFlushCancelsPendingSegments(t *testing.T) {
	clock := &fakeClock{}
	s := newTestScheduler(clock)
	defer s.Close()

	var drains atomic.Int32
	s.OnDrained(func() { drains.Add(1) })

	if _, err := s.Enqueue(pcmSeconds(0.02)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	s.Flush()

	if s.Active() != 0 {
		t.Errorf("active = %d after flush, want 0", s.Active())
	}
	if s.Cursor() != 0 {
		t.Errorf("cursor = %v after flush, want 0", s.Cursor())
	}

	// Flushed segments must not count as a drain.
	time.Sleep(100 * time.Millisecond)
	if n := drains.Load(); n != 0 {
		t.Errorf("drain fired %d times after flush, want 0", n)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	s := newTestScheduler(&fakeClock{})
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := s.Enqueue(pcmSeconds(0.01)); err != ErrClosed {
		t.Errorf("Enqueue after Close = %v, want ErrClosed", err)
	}
	// Close twice is fine.
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestOutputTapObservesAudio(t *testing.T) {
	tap := analysis.NewTap()
	s := New(nil, tap, nil, WithClock(&fakeClock{}))
	defer s.Close()

	// A non-silent tone so the tap has something to measure.
	samples := make([]int16, 2400)
	for i := range samples {
		samples[i] = int16(20000 * math.Sin(2*math.Pi*440*float64(i)/24000))
	}
	if _, err := s.Enqueue(audioio.SamplesToBytes(samples)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if tap.Volume() == 0 {
		t.Error("output tap saw no energy from scheduled audio")
	}
}

func TestSinkReceivesScheduledAudio(t *testing.T) {
	sink := audioio.NewMockSink(audioio.DefaultPlaybackConfig(), nil)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("sink Start failed: %v", err)
	}
	defer sink.Close()

	s := New(sink, nil, nil, WithClock(&fakeClock{}))
	defer s.Close()

	if _, err := s.Enqueue(pcmSeconds(0.1)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	deadline := time.After(time.Second)
	for sink.Writes() == 0 {
		select {
		case <-deadline:
			t.Fatal("sink never received the scheduled chunk")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
