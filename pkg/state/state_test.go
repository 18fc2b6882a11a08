package state

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "IDLE"},
		{Listening, "LISTENING"},
		{Thinking, "THINKING"},
		{Speaking, "SPEAKING"},
		{Waking, "WAKING"},
		{Error, "ERROR"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestParseStateRoundTrip(t *testing.T) {
	for _, s := range []State{Idle, Listening, Thinking, Speaking, Waking, Error} {
		got, err := ParseState(s.String())
		if err != nil {
			t.Fatalf("ParseState(%q) returned error: %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseState(%q) = %v, want %v", s.String(), got, s)
		}
	}

	if _, err := ParseState("DANCING"); err == nil {
		t.Error("expected error for unknown state name")
	}
}

func TestEmotionValid(t *testing.T) {
	for _, e := range Emotions {
		if !e.Valid() {
			t.Errorf("emotion %q should be valid", e)
		}
	}
	if Emotion("ecstatic").Valid() {
		t.Error("unknown emotion should not be valid")
	}
}

func TestParseEmotion(t *testing.T) {
	got, err := ParseEmotion("urgent")
	if err != nil {
		t.Fatalf("ParseEmotion(urgent) error: %v", err)
	}
	if got != Urgent {
		t.Errorf("got %v, want %v", got, Urgent)
	}

	got, err = ParseEmotion("bogus")
	if err == nil {
		t.Error("expected error for unknown emotion")
	}
	if got != Neutral {
		t.Errorf("invalid emotion should default to neutral, got %v", got)
	}
}

func TestMachineSetNotifiesListeners(t *testing.T) {
	m := NewMachine()

	var gotState State
	var gotEmotion Emotion
	calls := 0
	m.OnChange(func(s State, e Emotion) {
		gotState = s
		gotEmotion = e
		calls++
	})

	m.Set(Listening)
	if calls != 1 {
		t.Fatalf("expected 1 listener call, got %d", calls)
	}
	if gotState != Listening || gotEmotion != Neutral {
		t.Errorf("listener saw (%v, %v), want (LISTENING, neutral)", gotState, gotEmotion)
	}

	// Setting the same state again must not re-notify.
	m.Set(Listening)
	if calls != 1 {
		t.Errorf("duplicate Set should be a no-op, got %d calls", calls)
	}

	m.SetEmotion(Happy)
	if calls != 2 {
		t.Fatalf("expected 2 listener calls, got %d", calls)
	}
	if gotState != Listening || gotEmotion != Happy {
		t.Errorf("listener saw (%v, %v), want (LISTENING, happy)", gotState, gotEmotion)
	}
}

func TestMachineIgnoresInvalidEmotion(t *testing.T) {
	m := NewMachine()
	m.SetEmotion(Emotion("rage"))
	if m.Emotion() != Neutral {
		t.Errorf("invalid emotion should be ignored, got %v", m.Emotion())
	}
}

func TestMachineCompareAndSet(t *testing.T) {
	m := NewMachine()
	m.Set(Speaking)

	if ok := m.CompareAndSet(Idle, Listening); ok {
		t.Error("CompareAndSet should fail when current state differs")
	}
	if m.State() != Speaking {
		t.Errorf("state changed on failed swap: %v", m.State())
	}

	if ok := m.CompareAndSet(Speaking, Idle); !ok {
		t.Error("CompareAndSet should succeed when current state matches")
	}
	if m.State() != Idle {
		t.Errorf("state = %v, want IDLE", m.State())
	}
}

func TestMachineListenerMayReenter(t *testing.T) {
	m := NewMachine()
	m.OnChange(func(s State, e Emotion) {
		// Listeners run outside the lock, so reading back must not deadlock.
		_ = m.State()
	})
	m.Set(Thinking)
	if m.State() != Thinking {
		t.Errorf("state = %v, want THINKING", m.State())
	}
}
