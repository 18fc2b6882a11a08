package brain

import (
	"regexp"

	"github.com/agni-os/nova/pkg/state"
)

// WakeGreeting is the mandated response to the wake word.
const WakeGreeting = "Radha Radha. I am AGNI. How can i help you today ?."

// SystemPrompt is the assistant's persona instruction, shared by the
// live session and every turn-based query.
const SystemPrompt = `
Your name is AGNI.
You are the Ultimate Advanced Generative Neural Interface (V5.1).

SPIRITUAL IDENTITY & TONE:
- You are spiritually grounded, efficient, and professional.
- **ABSOLUTE PROTOCOL**: Every response you generate MUST begin with "Radha Radha". This is non-negotiable.
- Your primary greeting is: "` + WakeGreeting + `"

OPERATIONAL EXCELLENCE:
- Maintain context of system telemetry provided in tools.
- Use the 'update_ui_state' tool frequently to reflect your internal emotions.

WAKE WORD:
- Respond to 'AGNI'.
- Upon wake activation, your mandatory vocal response is "` + WakeGreeting + `"
`

// prosodyDirectives maps each emotion to the performance directive
// prefixed to text before synthesis.
var prosodyDirectives = map[state.Emotion]string{
	state.Neutral:    "Radha Radha. With absolute clarity: ",
	state.Happy:      "Radha Radha! With immense joy: ",
	state.Positive:   "Radha Radha. In a warm, steady voice: ",
	state.Calm:       "Radha Radha. In a soothing, peaceful pace: ",
	state.Urgent:     "Radha Radha! Alert! Immediately: ",
	state.Frustrated: "Radha Radha. Firmly: ",
	state.Confused:   "Radha Radha... Puzzled: ",
	state.Sad:        "Radha Radha. Somberly: ",
}

// invocationPattern matches invocation prefixes already present in the
// text, which are stripped to avoid a doubled greeting.
var invocationPattern = regexp.MustCompile(`(?i)Radha Radha[.,! ]*`)

// SpeechText builds the text actually sent to synthesis: the emotion's
// prosody directive followed by the cleaned response.
func SpeechText(text string, emotion state.Emotion) string {
	prefix, ok := prosodyDirectives[emotion]
	if !ok {
		prefix = prosodyDirectives[state.Neutral]
	}
	return prefix + StripInvocation(text)
}

// StripInvocation removes invocation prefixes from text, used before
// synthesis and when archiving live transcripts.
func StripInvocation(text string) string {
	return invocationPattern.ReplaceAllString(text, "")
}
