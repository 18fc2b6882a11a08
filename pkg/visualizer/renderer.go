// Package visualizer computes animation frames for the assistant orb.
// The renderer is purely deterministic given a clock step and a random
// source, so the same inputs always produce the same frame geometry.
// Drawing happens client side; this package only ships numbers.
package visualizer

import (
	"math"
	"math/rand"
	"sync"

	"github.com/agni-os/nova/pkg/analysis"
	"github.com/agni-os/nova/pkg/state"
)

const (
	barCount      = 180
	spectrumBins  = 128
	baseSize      = 800.0
	maxParticles  = 600
	initParticles = 40
)

// Particle is a spark shed from an active frequency bar.
type Particle struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	Speed float64 `json:"speed"`
	Size  float64 `json:"size"`
}

// Frame is one rendered animation step.
type Frame struct {
	State         string     `json:"state"`
	Emotion       string     `json:"emotion"`
	Color         RGB        `json:"color"`
	Volume        float64    `json:"volume"`
	GlowRadius    float64    `json:"glowRadius"`
	RingRadii     [3]float64 `json:"ringRadii"`
	RingRotations [3]float64 `json:"ringRotations"`
	CoreRadius    float64    `json:"coreRadius"`
	Bars          []float64  `json:"bars"`
	Particles     []Particle `json:"particles"`
}

// Renderer turns machine state and audio taps into frames. Taps may be
// nil; the renderer then animates on synthetic or ambient motion only.
type Renderer struct {
	mu       sync.Mutex
	machine  *state.Machine
	input    *analysis.Tap
	output   *analysis.Tap
	rng      *rand.Rand
	size     float64
	rate     float64
	color    RGB
	seeded   bool
	time     float64
	parts    []Particle
	spectrum []byte
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRand replaces the particle random source, fixing it makes frames
// reproducible in tests.
func WithRand(r *rand.Rand) Option {
	return func(v *Renderer) { v.rng = r }
}

// WithSize sets the canvas reference size, geometry scales by size/800.
func WithSize(size float64) Option {
	return func(v *Renderer) { v.size = size }
}

// WithSmoothing sets the color convergence rate per second.
func WithSmoothing(rate float64) Option {
	return func(v *Renderer) { v.rate = rate }
}

// NewRenderer builds a renderer bound to a state machine and the input
// and output audio taps.
func NewRenderer(machine *state.Machine, input, output *analysis.Tap, opts ...Option) *Renderer {
	v := &Renderer{
		machine:  machine,
		input:    input,
		output:   output,
		rng:      rand.New(rand.NewSource(1)),
		size:     baseSize,
		rate:     6.0,
		spectrum: make([]byte, spectrumBins),
	}
	for _, opt := range opts {
		opt(v)
	}
	scale := v.size / baseSize
	for i := 0; i < initParticles; i++ {
		v.parts = append(v.parts, Particle{
			Angle: v.rng.Float64() * 2 * math.Pi,
			Speed: (0.5 + v.rng.Float64()*2) * scale,
			Size:  (1 + v.rng.Float64()*3) * scale,
		})
	}
	return v
}

// Step advances the animation by dt seconds and returns the frame.
func (v *Renderer) Step(dt float64) Frame {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, em := v.machine.Snapshot()
	profile := ProfileFor(em)
	target := Blend(ThemeFor(st), profile.Color)

	if !v.seeded {
		v.color = target
		v.seeded = true
	} else {
		k := v.rate * dt
		if k > 1 {
			k = 1
		}
		v.color.R += (target.R - v.color.R) * k
		v.color.G += (target.G - v.color.G) * k
		v.color.B += (target.B - v.color.B) * k
	}

	v.time += dt * profile.Speed
	scale := v.size / baseSize

	active := v.fillSpectrum(st, profile)
	volume := meanByte(v.spectrum)

	frame := Frame{
		State:   st.String(),
		Emotion: string(em),
		Color:   v.color,
		Volume:  volume / 255,
		Bars:    make([]float64, 0, barCount),
	}

	baseGlow := (180 + volume*1.5*profile.Intensity) * scale
	frame.GlowRadius = baseGlow + math.Sin(v.time*3)*20*scale

	rotGain := 2.5
	if st == state.Idle {
		rotGain = 1
	}
	for j := 0; j < 3; j++ {
		frame.RingRadii[j] = (110 + float64(j)*45 + volume*0.3*profile.Intensity) * scale
		frame.RingRotations[j] = v.time * 0.6 * float64(j+1) * rotGain
	}

	corePulse := math.Sin(v.time*4) * 5
	frame.CoreRadius = (75 + volume*profile.Intensity + corePulse) * scale

	if active && st != state.Idle {
		threshold := 210.0
		if profile.Intensity > 1.2 {
			threshold = 180
		}
		for i := 0; i < barCount; i++ {
			val := float64(v.spectrum[i%len(v.spectrum)])
			jitter := 0.0
			if profile.Jitter > 0 {
				jitter = (v.rng.Float64() - 0.5) * profile.Jitter * scale
			}
			h := val/255*160*profile.Intensity*scale + jitter
			if h < 0 {
				h = 0
			}
			frame.Bars = append(frame.Bars, h)

			if val > threshold && v.rng.Float64() > 0.85 && len(v.parts) < maxParticles {
				angle := float64(i) / barCount * 2 * math.Pi
				v.parts = append(v.parts, Particle{
					Angle: angle,
					Speed: (2 + v.rng.Float64()*5) * profile.Speed * scale,
					Size:  (1 + v.rng.Float64()*3) * scale,
				})
			}
		}
	}

	v.stepParticles(dt, scale)
	frame.Particles = append(frame.Particles[:0], v.parts...)
	return frame
}

// fillSpectrum loads v.spectrum from the tap matching the state, or a
// synthetic pulse while thinking or waking. Returns whether bars should
// render.
func (v *Renderer) fillSpectrum(st state.State, p EmotionProfile) bool {
	switch st {
	case state.Listening:
		v.input.Spectrum(v.spectrum)
		return true
	case state.Speaking:
		v.output.Spectrum(v.spectrum)
		return true
	case state.Thinking, state.Waking:
		for i := range v.spectrum {
			w := (math.Sin(v.time*2+float64(i)*0.3) + 1) / 2
			v.spectrum[i] = byte(w * 140 * clamp(p.Intensity, 0, 1.5))
		}
		return true
	default:
		for i := range v.spectrum {
			v.spectrum[i] = 0
		}
		return false
	}
}

// stepParticles advances positions and decays speed and size. The decay
// constants come from a 60 fps reference, dt rescales them.
func (v *Renderer) stepParticles(dt float64, scale float64) {
	steps := dt * 60
	speedDecay := math.Pow(0.95, steps)
	sizeDecay := math.Pow(0.94, steps)
	alive := v.parts[:0]
	for _, p := range v.parts {
		p.X += math.Cos(p.Angle) * p.Speed * steps
		p.Y += math.Sin(p.Angle) * p.Speed * steps
		p.Speed *= speedDecay
		p.Size *= sizeDecay
		if p.Size >= 0.2*scale {
			alive = append(alive, p)
		}
	}
	v.parts = alive
}

func meanByte(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	var sum float64
	for _, x := range b {
		sum += float64(x)
	}
	return sum / float64(len(b))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
