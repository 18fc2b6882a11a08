package state

import "sync"

// Listener receives every committed state/emotion change.
type Listener func(State, Emotion)

// Machine holds the current state and emotion behind a mutex and fans
// changes out to registered listeners. Listeners run outside the lock
// with a snapshot, so they may call back into the machine.
type Machine struct {
	mu        sync.Mutex
	state     State
	emotion   Emotion
	listeners []Listener
}

// NewMachine returns a machine starting at Idle/Neutral.
func NewMachine() *Machine {
	return &Machine{state: Idle, emotion: Neutral}
}

// OnChange registers a listener for subsequent changes.
func (m *Machine) OnChange(fn Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Set commits a new state. No-op when unchanged.
func (m *Machine) Set(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	e := m.emotion
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, fn := range ls {
		fn(s, e)
	}
}

// SetEmotion commits a new emotion. Invalid emotions are ignored.
func (m *Machine) SetEmotion(e Emotion) {
	if !e.Valid() {
		return
	}
	m.mu.Lock()
	if m.emotion == e {
		m.mu.Unlock()
		return
	}
	m.emotion = e
	s := m.state
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, fn := range ls {
		fn(s, e)
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Emotion returns the current emotion.
func (m *Machine) Emotion() Emotion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emotion
}

// Snapshot returns both values atomically.
func (m *Machine) Snapshot() (State, Emotion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.emotion
}

// CompareAndSet commits next only if the current state equals expect.
// It reports whether the swap happened.
func (m *Machine) CompareAndSet(expect, next State) bool {
	m.mu.Lock()
	if m.state != expect {
		m.mu.Unlock()
		return false
	}
	m.state = next
	e := m.emotion
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, fn := range ls {
		fn(next, e)
	}
	return true
}
