package visualizer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/agni-os/nova/pkg/analysis"
	"github.com/agni-os/nova/pkg/state"
)

func newTestRenderer(m *state.Machine, in, out *analysis.Tap) *Renderer {
	return NewRenderer(m, in, out, WithRand(rand.New(rand.NewSource(42))))
}

func TestThemeForUnknownStateFallsBackToIdle(t *testing.T) {
	if got := ThemeFor(state.Thinking); got != stateThemes[state.Idle] {
		t.Fatalf("ThemeFor(Thinking) = %+v, want idle base", got)
	}
}

func TestBlendWeights(t *testing.T) {
	got := Blend(RGB{100, 100, 100}, RGB{200, 0, 100})
	want := RGB{R: 130, G: 70, B: 100}
	if got != want {
		t.Fatalf("Blend = %+v, want %+v", got, want)
	}
}

func TestFirstFrameSnapsToTargetColor(t *testing.T) {
	m := state.NewMachine()
	m.Set(state.Listening)
	v := newTestRenderer(m, nil, nil)

	frame := v.Step(1.0 / 60)
	want := Blend(ThemeFor(state.Listening), ProfileFor(state.Neutral).Color)
	if frame.Color != want {
		t.Fatalf("first frame color = %+v, want %+v", frame.Color, want)
	}
}

func TestColorConvergesAfterStateChange(t *testing.T) {
	m := state.NewMachine()
	m.Set(state.Idle)
	v := newTestRenderer(m, nil, nil)
	v.Step(1.0 / 60)

	m.Set(state.Speaking)
	var frame Frame
	for i := 0; i < 300; i++ {
		frame = v.Step(1.0 / 60)
	}
	want := Blend(ThemeFor(state.Speaking), ProfileFor(state.Neutral).Color)
	if math.Abs(frame.Color.G-want.G) > 1 {
		t.Fatalf("color did not converge: got G=%.2f want G=%.2f", frame.Color.G, want.G)
	}
}

func TestColorMovesGraduallyNotInstantly(t *testing.T) {
	m := state.NewMachine()
	m.Set(state.Idle)
	v := newTestRenderer(m, nil, nil)
	v.Step(1.0 / 60)

	m.Set(state.Error)
	frame := v.Step(1.0 / 60)
	target := Blend(ThemeFor(state.Error), ProfileFor(state.Neutral).Color)
	if frame.Color == target {
		t.Fatal("color jumped to target in a single small step")
	}
}

func TestListeningReadsInputTap(t *testing.T) {
	m := state.NewMachine()
	m.Set(state.Listening)
	in := analysis.NewTap()

	samples := make([]int16, 2048)
	for i := range samples {
		samples[i] = int16(12000 * math.Sin(2*math.Pi*300*float64(i)/16000))
	}
	in.Push(samples)

	v := newTestRenderer(m, in, nil)
	frame := v.Step(1.0 / 60)
	if frame.Volume <= 0 {
		t.Fatal("expected nonzero volume from a loud input tap")
	}
	if len(frame.Bars) != barCount {
		t.Fatalf("bars = %d, want %d", len(frame.Bars), barCount)
	}
}

func TestIdleRendersNoBars(t *testing.T) {
	m := state.NewMachine()
	v := newTestRenderer(m, nil, nil)
	frame := v.Step(1.0 / 60)
	if len(frame.Bars) != 0 {
		t.Fatalf("idle frame carries %d bars, want none", len(frame.Bars))
	}
	if frame.Volume != 0 {
		t.Fatalf("idle volume = %f, want 0", frame.Volume)
	}
}

func TestThinkingAnimatesWithoutTaps(t *testing.T) {
	m := state.NewMachine()
	m.Set(state.Thinking)
	v := newTestRenderer(m, nil, nil)

	v.Step(0.1)
	frame := v.Step(0.1)
	if len(frame.Bars) != barCount {
		t.Fatalf("thinking frame has %d bars, want %d", len(frame.Bars), barCount)
	}
	var sum float64
	for _, b := range frame.Bars {
		sum += b
	}
	if sum == 0 {
		t.Fatal("synthetic pulse produced flat bars")
	}
}

func TestNilTapsAreTolerated(t *testing.T) {
	m := state.NewMachine()
	m.Set(state.Speaking)
	v := newTestRenderer(m, nil, nil)
	frame := v.Step(1.0 / 60)
	if frame.Volume != 0 {
		t.Fatalf("nil output tap volume = %f, want 0", frame.Volume)
	}
}

func TestDeterministicWithFixedSeed(t *testing.T) {
	build := func() Frame {
		m := state.NewMachine()
		m.Set(state.Listening)
		in := analysis.NewTap()
		samples := make([]int16, 2048)
		for i := range samples {
			samples[i] = int16(15000 * math.Sin(2*math.Pi*500*float64(i)/16000))
		}
		in.Push(samples)
		v := NewRenderer(m, in, nil, WithRand(rand.New(rand.NewSource(7))))
		var f Frame
		for i := 0; i < 10; i++ {
			f = v.Step(1.0 / 60)
		}
		return f
	}

	a, b := build(), build()
	if a.GlowRadius != b.GlowRadius || a.CoreRadius != b.CoreRadius {
		t.Fatal("frames diverge under identical seeds and inputs")
	}
	if len(a.Particles) != len(b.Particles) {
		t.Fatalf("particle counts diverge: %d vs %d", len(a.Particles), len(b.Particles))
	}
}

func TestParticlesDecayAndDie(t *testing.T) {
	m := state.NewMachine()
	v := newTestRenderer(m, nil, nil)

	first := v.Step(1.0 / 60)
	if len(first.Particles) == 0 {
		t.Fatal("expected seed particles on the first frame")
	}
	for i := 0; i < 600; i++ {
		v.Step(1.0 / 60)
	}
	last := v.Step(1.0 / 60)
	if len(last.Particles) >= len(first.Particles) {
		t.Fatalf("particles never decay: %d -> %d", len(first.Particles), len(last.Particles))
	}
}

func TestEmotionSpeedAcceleratesRings(t *testing.T) {
	run := func(e state.Emotion) float64 {
		m := state.NewMachine()
		m.Set(state.Speaking)
		m.SetEmotion(e)
		v := newTestRenderer(m, nil, nil)
		var f Frame
		for i := 0; i < 30; i++ {
			f = v.Step(1.0 / 60)
		}
		return f.RingRotations[0]
	}
	if run(state.Urgent) <= run(state.Calm) {
		t.Fatal("urgent rings should outrun calm rings")
	}
}

func TestGeometryScalesWithSize(t *testing.T) {
	m := state.NewMachine()
	small := NewRenderer(m, nil, nil, WithRand(rand.New(rand.NewSource(1))), WithSize(400))
	big := NewRenderer(m, nil, nil, WithRand(rand.New(rand.NewSource(1))), WithSize(800))

	fs := small.Step(1.0 / 60)
	fb := big.Step(1.0 / 60)
	if math.Abs(fs.CoreRadius*2-fb.CoreRadius) > 0.001 {
		t.Fatalf("core radius does not scale: %.3f vs %.3f", fs.CoreRadius, fb.CoreRadius)
	}
	if math.Abs(fs.RingRadii[2]*2-fb.RingRadii[2]) > 0.001 {
		t.Fatalf("ring radius does not scale: %.3f vs %.3f", fs.RingRadii[2], fb.RingRadii[2])
	}
}
