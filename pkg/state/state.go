// Package state defines the assistant's operating states and emotional
// registers, plus a small observable machine that owns the current pair.
package state

import "fmt"

// State is the assistant's top-level operating mode.
type State int

const (
	Idle State = iota
	Listening
	Thinking
	Speaking
	Waking
	Error
)

// String returns the canonical uppercase name.
func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Listening:
		return "LISTENING"
	case Thinking:
		return "THINKING"
	case Speaking:
		return "SPEAKING"
	case Waking:
		return "WAKING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseState converts a canonical name back to a State.
func ParseState(s string) (State, error) {
	switch s {
	case "IDLE":
		return Idle, nil
	case "LISTENING":
		return Listening, nil
	case "THINKING":
		return Thinking, nil
	case "SPEAKING":
		return Speaking, nil
	case "WAKING":
		return Waking, nil
	case "ERROR":
		return Error, nil
	default:
		return Idle, fmt.Errorf("state: unknown state %q", s)
	}
}

// Emotion is the expressive register carried alongside the state.
type Emotion string

const (
	Neutral    Emotion = "neutral"
	Happy      Emotion = "happy"
	Positive   Emotion = "positive"
	Calm       Emotion = "calm"
	Urgent     Emotion = "urgent"
	Frustrated Emotion = "frustrated"
	Confused   Emotion = "confused"
	Sad        Emotion = "sad"
)

// Emotions lists every valid emotion.
var Emotions = []Emotion{Neutral, Happy, Positive, Calm, Urgent, Frustrated, Confused, Sad}

func (e Emotion) String() string { return string(e) }

// Valid reports whether e is one of the known emotions.
func (e Emotion) Valid() bool {
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

// ParseEmotion converts a name to an Emotion, defaulting invalid input
// to Neutral with an error.
func ParseEmotion(s string) (Emotion, error) {
	e := Emotion(s)
	if !e.Valid() {
		return Neutral, fmt.Errorf("state: unknown emotion %q", s)
	}
	return e, nil
}
