package visualizer

import "github.com/agni-os/nova/pkg/state"

// RGB is a color in 0..255 channel space.
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// stateThemes are the base colors per operating state. States without
// an entry render in the idle neutral.
var stateThemes = map[state.State]RGB{
	state.Listening: {R: 14, G: 165, B: 233},
	state.Speaking:  {R: 34, G: 197, B: 94},
	state.Error:     {R: 244, G: 63, B: 94},
	state.Idle:      {R: 113, G: 113, B: 122},
}

// ThemeFor returns the base color for a state.
func ThemeFor(s state.State) RGB {
	if c, ok := stateThemes[s]; ok {
		return c
	}
	return stateThemes[state.Idle]
}

// EmotionProfile modulates the rendering: a color overlay plus motion
// coefficients.
type EmotionProfile struct {
	Color     RGB
	Speed     float64
	Intensity float64
	Jitter    float64
}

var emotionProfiles = map[state.Emotion]EmotionProfile{
	state.Neutral:    {Color: RGB{0, 0, 0}, Speed: 1.0, Intensity: 1.0, Jitter: 0},
	state.Happy:      {Color: RGB{255, 215, 0}, Speed: 1.8, Intensity: 1.5, Jitter: 1},
	state.Positive:   {Color: RGB{100, 255, 100}, Speed: 1.3, Intensity: 1.2, Jitter: 0.5},
	state.Calm:       {Color: RGB{150, 200, 255}, Speed: 0.5, Intensity: 0.7, Jitter: 0},
	state.Urgent:     {Color: RGB{255, 50, 0}, Speed: 2.5, Intensity: 2.0, Jitter: 3},
	state.Frustrated: {Color: RGB{200, 0, 50}, Speed: 2.0, Intensity: 1.8, Jitter: 8},
	state.Confused:   {Color: RGB{180, 150, 255}, Speed: 0.8, Intensity: 1.0, Jitter: 4},
	state.Sad:        {Color: RGB{50, 50, 150}, Speed: 0.4, Intensity: 0.5, Jitter: 0},
}

// ProfileFor returns the emotion profile, neutral for unknown emotions.
func ProfileFor(e state.Emotion) EmotionProfile {
	if p, ok := emotionProfiles[e]; ok {
		return p
	}
	return emotionProfiles[state.Neutral]
}

// Blend mixes the state base with the emotion overlay at 0.7/0.3.
func Blend(base, overlay RGB) RGB {
	return RGB{
		R: base.R*0.7 + overlay.R*0.3,
		G: base.G*0.7 + overlay.G*0.3,
		B: base.B*0.7 + overlay.B*0.3,
	}
}
