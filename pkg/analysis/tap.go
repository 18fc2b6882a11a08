// Package analysis provides non-owning audio observation taps.
//
// A Tap sits beside an audio path (capture or playback), keeps a short
// window of the most recent samples, and answers frequency-domain
// queries for the visualizer. It never blocks or modifies the path it
// observes, and a nil *Tap is safe to use everywhere.
package analysis

import (
	"math"
	"sync"
)

const (
	// defaultWindow is the analysis window in samples. At 16 kHz this
	// is 128 ms, enough for the lowest bins to resolve.
	defaultWindow = 2048

	// magnitudeGain maps normalized DFT magnitudes onto the 0..255
	// byte range the renderer consumes. Speech rarely exceeds a
	// quarter of full scale per bin, so the gain runs hot.
	magnitudeGain = 4.0 * 255.0
)

// Tap observes one audio path.
type Tap struct {
	mu     sync.Mutex
	ring   []int16
	pos    int
	filled int
}

// NewTap creates a tap with the default analysis window.
func NewTap() *Tap {
	return NewTapSize(defaultWindow)
}

// NewTapSize creates a tap with an explicit window size in samples.
func NewTapSize(window int) *Tap {
	if window <= 0 {
		window = defaultWindow
	}
	return &Tap{ring: make([]int16, window)}
}

// Push appends samples to the analysis window. It is cheap and never
// blocks; the audio path calls it inline.
func (t *Tap) Push(samples []int16) {
	if t == nil || len(samples) == 0 {
		return
	}
	t.mu.Lock()
	for _, s := range samples {
		t.ring[t.pos] = s
		t.pos = (t.pos + 1) % len(t.ring)
	}
	if t.filled < len(t.ring) {
		t.filled += len(samples)
		if t.filled > len(t.ring) {
			t.filled = len(t.ring)
		}
	}
	t.mu.Unlock()
}

// Reset clears the window, returning the tap to silence.
func (t *Tap) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	for i := range t.ring {
		t.ring[i] = 0
	}
	t.pos = 0
	t.filled = 0
	t.mu.Unlock()
}

// snapshot copies the window in chronological order.
func (t *Tap) snapshot() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, len(t.ring))
	for i := range t.ring {
		idx := (t.pos + i) % len(t.ring)
		out[i] = float64(t.ring[idx]) / 32768.0
	}
	return out
}

// Spectrum fills dst with bin magnitudes scaled to 0..255. Bin k covers
// frequency k/len(dst) of the Nyquist range. A nil tap yields zeros.
func (t *Tap) Spectrum(dst []byte) {
	if len(dst) == 0 {
		return
	}
	if t == nil {
		for i := range dst {
			dst[i] = 0
		}
		return
	}

	window := t.snapshot()
	n := len(window)
	half := n / 2

	// Output bins divide the lower half of the DFT range, where speech
	// energy lives. Each takes the peak magnitude across its whole band
	// so a narrowband tone lands in its bin no matter which DFT bin it
	// falls on.
	bandWidth := half / (2 * len(dst))
	if bandWidth < 1 {
		bandWidth = 1
	}
	for k := range dst {
		start := 1 + k*bandWidth
		var mag float64
		for bin := start; bin < start+bandWidth && bin <= half; bin++ {
			if m := goertzel(window, bin); m > mag {
				mag = m
			}
		}
		v := mag * magnitudeGain
		if v > 255 {
			v = 255
		}
		dst[k] = byte(v)
	}
}

// Volume returns the mean spectrum magnitude normalized to 0..1.
func (t *Tap) Volume() float64 {
	if t == nil {
		return 0
	}
	bins := make([]byte, 64)
	t.Spectrum(bins)
	var sum float64
	for _, b := range bins {
		sum += float64(b)
	}
	return sum / float64(len(bins)) / 255.0
}

// RMS returns the root mean square level of the window, 0..1.
func (t *Tap) RMS() float64 {
	if t == nil {
		return 0
	}
	window := t.snapshot()
	var sum float64
	for _, s := range window {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(window)))
}

// goertzel computes the normalized magnitude of one DFT bin.
func goertzel(samples []float64, bin int) float64 {
	n := len(samples)
	w := 2 * math.Pi * float64(bin) / float64(n)
	coeff := 2 * math.Cos(w)

	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) / float64(n)
}
