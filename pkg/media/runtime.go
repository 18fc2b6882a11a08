// Package media owns the realtime session lifecycle.
//
// A Runtime ties together the microphone, the optional camera, the
// live session client, the playback scheduler, and the analysis taps.
// It enforces the session invariants: at most one session at a time,
// the runtime alone releases what it opened, events from superseded
// sessions are dropped, and speaking only ends when playback drains.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agni-os/nova/internal/log"
	"github.com/agni-os/nova/pkg/analysis"
	"github.com/agni-os/nova/pkg/audioio"
	"github.com/agni-os/nova/pkg/live"
	"github.com/agni-os/nova/pkg/playback"
	"github.com/agni-os/nova/pkg/state"
)

// maxConsecutiveErrors is the session watchdog fuse: this many errors
// in a row force a full teardown. The counter resets only when a new
// session starts.
const maxConsecutiveErrors = 3

// defaultFrameInterval paces vision frames to the model.
const defaultFrameInterval = time.Second

// Session is the slice of the live client the runtime drives.
type Session interface {
	Connect(ctx context.Context) error
	Close() error
	SendAudio(pcm []byte) error
	SendImage(jpeg []byte) error
	SessionID() string
	IsConnected() bool
}

// SessionFactory builds a fresh Session wired to the given callbacks.
type SessionFactory func(cb live.Callbacks) (Session, error)

// SourceFactory opens the microphone.
type SourceFactory func() (audioio.Source, error)

// FrameSource supplies JPEG vision frames. A nil FrameSource means
// audio-only sessions.
type FrameSource interface {
	Frame() ([]byte, error)
}

// Hooks notify the application layer about session events. All hooks
// may be nil and run on the session's read goroutine.
type Hooks struct {
	OnInputTranscript  func(text string)
	OnOutputTranscript func(text string)
	OnTurnComplete     func()
	OnSessionError     func(err error)
	OnVisionFrame      func(jpeg []byte)
	OnLog              func(msg string)
}

// Config holds runtime settings.
type Config struct {
	// Capture is the microphone configuration.
	Capture audioio.Config

	// RecordPath, when set, archives each session's capture as WAV
	// under this file path.
	RecordPath string

	// FrameInterval paces vision frames. Zero means one per second.
	FrameInterval time.Duration
}

// Runtime manages one live session at a time.
type Runtime struct {
	cfg        Config
	machine    *state.Machine
	sched      *playback.Scheduler
	inputTap   *analysis.Tap
	newSource  SourceFactory
	newSession SessionFactory
	frames     FrameSource
	hooks      Hooks

	// lifeMu serializes whole start/stop transitions so two concurrent
	// starts cannot each open a microphone. State fields stay on mu.
	lifeMu sync.Mutex

	mu        sync.Mutex
	active    bool
	session   Session
	source    audioio.Source
	recorder  *audioio.Recorder
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	errStreak int
}

// New creates a runtime. The scheduler's drain callback is claimed
// here: draining is the only path out of SPEAKING.
func New(cfg Config, machine *state.Machine, sched *playback.Scheduler, inputTap *analysis.Tap, newSource SourceFactory, newSession SessionFactory, frames FrameSource, hooks Hooks) *Runtime {
	r := &Runtime{
		cfg:        cfg,
		machine:    machine,
		sched:      sched,
		inputTap:   inputTap,
		newSource:  newSource,
		newSession: newSession,
		frames:     frames,
		hooks:      hooks,
	}

	sched.OnDrained(func() {
		next := state.Idle
		if r.Active() {
			next = state.Listening
		}
		r.machine.CompareAndSet(state.Speaking, next)
	})

	return r
}

// Active reports whether a session is live.
func (r *Runtime) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Connected reports whether a live session is currently established.
// It can lag Active during connection loss, before the watchdog fires.
func (r *Runtime) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active && r.session != nil && r.session.IsConnected()
}

// SessionID returns the current session's identity, empty when idle.
func (r *Runtime) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return ""
	}
	return r.session.SessionID()
}

// StartSession opens the microphone, connects the live session, and
// begins streaming. Starting while already active is a no-op. The
// transition runs under the lifecycle lock, so a concurrent start or
// stop waits rather than racing past the active check.
func (r *Runtime) StartSession(ctx context.Context) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	source, err := r.newSource()
	if err != nil {
		r.machine.Set(state.Error)
		if errors.Is(err, audioio.ErrAccessDenied) {
			r.logf("Media access denied. Check microphone permissions.")
		} else {
			r.logf("Audio capture unavailable: %v", err)
		}
		return fmt.Errorf("media: opening capture device: %w", err)
	}

	session, err := r.newSession(live.Callbacks{
		OnAudio:            r.onAudio,
		OnInputTranscript:  r.onInputTranscript,
		OnOutputTranscript: r.onOutputTranscript,
		OnTurnComplete:     r.onTurnComplete,
		OnInterrupted:      r.onInterrupted,
		OnError:            r.onSessionError,
		OnClose:            r.onSessionClose,
	})
	if err != nil {
		source.Close()
		r.machine.Set(state.Error)
		return fmt.Errorf("media: creating session: %w", err)
	}

	var recorder *audioio.Recorder
	if r.cfg.RecordPath != "" {
		recorder, err = audioio.NewRecorder(r.cfg.RecordPath, r.cfg.Capture.SampleRate, r.cfg.Capture.Channels)
		if err != nil {
			log.Warn("session recording disabled", "error", err)
			recorder = nil
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.active = true
	r.session = session
	r.source = source
	r.recorder = recorder
	r.cancel = cancel
	r.errStreak = 0
	r.mu.Unlock()

	if err := session.Connect(ctx); err != nil {
		r.teardown(nil)
		r.machine.Set(state.Error)
		return fmt.Errorf("media: connecting session: %w", err)
	}

	if err := source.Start(loopCtx); err != nil {
		r.teardown(nil)
		r.machine.Set(state.Error)
		return fmt.Errorf("media: starting capture: %w", err)
	}

	r.machine.Set(state.Listening)
	r.logf("Live session started (%s).", session.SessionID())

	r.wg.Add(1)
	go r.captureLoop(loopCtx, source, session, recorder)

	if r.frames != nil {
		r.wg.Add(1)
		go r.frameLoop(loopCtx, session)
	}

	return nil
}

// captureLoop streams microphone frames into the session and the
// input tap until the session ends.
func (r *Runtime) captureLoop(ctx context.Context, source audioio.Source, session Session, recorder *audioio.Recorder) {
	defer r.wg.Done()

	for {
		chunk, err := source.Read(ctx)
		if err != nil {
			return
		}

		r.inputTap.Push(chunk.Samples)
		if recorder != nil {
			recorder.Record(chunk)
		}

		// Fire-and-forget: a failed frame is dropped, not retried.
		if err := session.SendAudio(chunk.Bytes()); err != nil {
			if errors.Is(err, live.ErrNotConnected) {
				return
			}
			log.Debug("audio frame dropped", "error", err)
		}
	}
}

// frameLoop sends one vision frame per second.
func (r *Runtime) frameLoop(ctx context.Context, session Session) {
	defer r.wg.Done()

	interval := r.cfg.FrameInterval
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jpeg, err := r.frames.Frame()
			if err != nil {
				log.Debug("vision frame skipped", "error", err)
				continue
			}
			if r.hooks.OnVisionFrame != nil {
				r.hooks.OnVisionFrame(jpeg)
			}
			if err := session.SendImage(jpeg); err != nil {
				if errors.Is(err, live.ErrNotConnected) {
					return
				}
				log.Debug("vision frame dropped", "error", err)
			}
		}
	}
}

// StopSession tears everything down and returns to IDLE. It is
// idempotent and safe in every state, including before the session
// ever connected.
func (r *Runtime) StopSession() {
	r.stop(nil)
}

// stop runs a full stop transition. A non-nil expect makes it a no-op
// unless that exact session is still current, so deferred teardowns
// cannot take down a successor session.
func (r *Runtime) stop(expect Session) {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	if !r.teardown(expect) {
		return
	}
	r.sched.Flush()
	r.machine.Set(state.Idle)
}

// teardown releases session resources without touching state. It
// reports whether it acted; a stale expectation leaves everything
// alone.
func (r *Runtime) teardown(expect Session) bool {
	r.mu.Lock()
	if expect != nil && r.session != expect {
		r.mu.Unlock()
		return false
	}
	session := r.session
	source := r.source
	recorder := r.recorder
	cancel := r.cancel
	r.active = false
	r.session = nil
	r.source = nil
	r.recorder = nil
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if session != nil {
		session.Close()
	}
	if source != nil {
		source.Stop()
		source.Close()
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			log.Warn("session recording failed", "error", err)
		}
	}
	if session != nil {
		r.logf("Live session stopped.")
	}
	return true
}

// current reports whether sid identifies the active session.
func (r *Runtime) current(sid string) bool {
	_, ok := r.currentSession(sid)
	return ok
}

// currentSession resolves sid to the active session handle, used by
// callbacks that schedule a deferred stop of exactly that session.
func (r *Runtime) currentSession(sid string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || r.session == nil || r.session.SessionID() != sid {
		return nil, false
	}
	return r.session, true
}

func (r *Runtime) onAudio(sid string, pcm []byte) {
	if !r.current(sid) {
		return
	}
	r.machine.Set(state.Speaking)
	if _, err := r.sched.Enqueue(pcm); err != nil {
		log.Warn("failed to schedule model audio", "error", err)
	}
}

func (r *Runtime) onInputTranscript(sid, text string) {
	if !r.current(sid) {
		return
	}
	if r.hooks.OnInputTranscript != nil {
		r.hooks.OnInputTranscript(text)
	}
}

func (r *Runtime) onOutputTranscript(sid, text string) {
	if !r.current(sid) {
		return
	}
	if r.hooks.OnOutputTranscript != nil {
		r.hooks.OnOutputTranscript(text)
	}
}

func (r *Runtime) onTurnComplete(sid string) {
	if !r.current(sid) {
		return
	}
	if r.hooks.OnTurnComplete != nil {
		r.hooks.OnTurnComplete()
	}
}

// onInterrupted handles barge-in: pending speech is discarded and the
// assistant goes back to listening.
func (r *Runtime) onInterrupted(sid string) {
	if !r.current(sid) {
		return
	}
	r.sched.Flush()
	r.machine.Set(state.Listening)
	r.logf("Interrupted by user.")
}

func (r *Runtime) onSessionError(sid string, err error) {
	session, ok := r.currentSession(sid)
	if !ok {
		return
	}

	r.machine.Set(state.Error)
	r.logf("Session error: %v", err)

	if r.hooks.OnSessionError != nil {
		r.hooks.OnSessionError(err)
	}

	r.mu.Lock()
	r.errStreak++
	tripped := r.errStreak >= maxConsecutiveErrors
	streak := r.errStreak
	r.mu.Unlock()

	if tripped {
		log.Error("session error watchdog tripped", "consecutive_errors", streak)
		r.logf("Too many session errors, resetting.")
		// The callback runs on the session's read goroutine; stopping
		// must not wait for it, and must not hit a successor session.
		go r.stop(session)
	}
}

// onSessionClose releases everything when the server ends the session.
// A close from a superseded session is ignored, and the deferred stop
// is pinned to this session in case a new one starts first.
func (r *Runtime) onSessionClose(sid string) {
	session, ok := r.currentSession(sid)
	if !ok {
		return
	}
	go r.stop(session)
}

func (r *Runtime) logf(format string, args ...any) {
	if r.hooks.OnLog != nil {
		r.hooks.OnLog(fmt.Sprintf(format, args...))
	}
}
