// Package agni wires the assistant together: state machine, brain,
// live session runtime, playback, visualizer, and the dashboard.
package agni

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/agni-os/nova/internal/log"
	"github.com/agni-os/nova/pkg/analysis"
	"github.com/agni-os/nova/pkg/audioio"
	"github.com/agni-os/nova/pkg/brain"
	"github.com/agni-os/nova/pkg/camera"
	"github.com/agni-os/nova/pkg/live"
	"github.com/agni-os/nova/pkg/media"
	"github.com/agni-os/nova/pkg/playback"
	"github.com/agni-os/nova/pkg/state"
	"github.com/agni-os/nova/pkg/visualizer"
	"github.com/agni-os/nova/pkg/web"
)

const (
	// historyCap bounds the stored conversation, well past the context
	// window sent per query.
	historyCap = 200

	// frameInterval paces visualizer frames to the dashboard.
	frameInterval = 33 * time.Millisecond

	// apologyText is the assistant turn recorded when a query fails.
	apologyText = "Radha Radha. Core fault detected. I could not complete that request."
)

// ErrBusy is returned when a text query arrives while one is running.
var ErrBusy = errors.New("agni: a query is already in progress")

// intelligence is the turn-based model surface, satisfied by
// brain.Client.
type intelligence interface {
	Query(ctx context.Context, prompt string, hist *brain.History, mode brain.Mode) (brain.Answer, error)
	Synthesize(ctx context.Context, text string, emotion state.Emotion) ([]byte, error)
}

// App is the assistant application.
type App struct {
	cfg Config

	machine   *state.Machine
	history   *brain.History
	inputTap  *analysis.Tap
	outputTap *analysis.Tap
	renderer  *visualizer.Renderer

	mind    intelligence
	sink    audioio.Sink
	sched   *playback.Scheduler
	runtime *media.Runtime
	cam     *camera.Capture
	server  *web.Server

	mu          sync.Mutex
	busy        bool
	turnBuf     strings.Builder
	reauthTried bool
}

// New creates the application. Init must be called before Run.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		machine:   state.NewMachine(),
		history:   brain.NewHistory(historyCap),
		inputTap:  analysis.NewTap(),
		outputTap: analysis.NewTap(),
	}
	a.renderer = visualizer.NewRenderer(a.machine, a.inputTap, a.outputTap)
	return a, nil
}

// Init builds the clients and devices and wires the callbacks.
func (a *App) Init(ctx context.Context) error {
	log.Init(a.cfg.LogLevel)

	mind, err := brain.NewClient(ctx, a.brainConfig())
	if err != nil {
		return err
	}
	a.mind = mind

	sink, err := audioio.NewSink(a.cfg.Playback, log.L())
	if err != nil {
		return err
	}
	if err := sink.Start(ctx); err != nil {
		sink.Close()
		return err
	}
	a.sink = sink

	a.sched = playback.New(sink, a.outputTap, log.L(),
		playback.WithSampleRate(a.cfg.Playback.SampleRate))

	var frames media.FrameSource
	if a.cfg.CameraEnabled {
		cam, err := camera.Open(a.cfg.CameraDevice)
		if err != nil {
			log.Warn("camera unavailable, sessions run audio only", "error", err)
		} else {
			a.cam = cam
			frames = cam
		}
	}

	a.runtime = media.New(
		media.Config{Capture: a.cfg.Capture, RecordPath: a.cfg.RecordPath},
		a.machine,
		a.sched,
		a.inputTap,
		a.newMicrophone,
		a.newLiveSession,
		frames,
		media.Hooks{
			OnInputTranscript:  a.onInputTranscript,
			OnOutputTranscript: a.onOutputTranscript,
			OnTurnComplete:     a.onTurnComplete,
			OnSessionError:     a.onSessionError,
			OnVisionFrame:      a.onVisionFrame,
			OnLog:              func(msg string) { a.addLog("session", msg) },
		},
	)

	a.server = web.NewServer(a.cfg.Port, a)
	a.machine.OnChange(func(st state.State, em state.Emotion) {
		a.addLog("state", st.String()+" / "+string(em))
		a.publishState()
	})

	return nil
}

// Run serves the dashboard and streams visualizer frames until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.server.StartAsync()
	a.publishState()
	log.Info("nova online", "port", a.cfg.Port)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			a.server.PublishFrame(a.renderer.Step(dt))
		}
	}
}

// Shutdown tears everything down in dependency order.
func (a *App) Shutdown() {
	if a.runtime != nil {
		a.runtime.StopSession()
	}
	if a.sched != nil {
		a.sched.Close()
	}
	if a.sink != nil {
		a.sink.Close()
	}
	if a.cam != nil {
		a.cam.Close()
	}
	if a.server != nil {
		if err := a.server.Shutdown(); err != nil {
			log.Warn("dashboard shutdown", "error", err)
		}
	}
	log.Info("nova offline")
}

// StateView implements web.Controller.
func (a *App) StateView() web.StateView {
	st, em := a.machine.Snapshot()
	view := web.StateView{
		State:    st.String(),
		Emotion:  string(em),
		MicLevel: a.inputTap.RMS(),
	}
	if a.runtime != nil {
		view.SessionActive = a.runtime.Active()
		view.Connected = a.runtime.Connected()
	}
	if a.sched != nil {
		view.PendingAudio = a.sched.Active()
	}
	return view
}

// StartSession implements web.Controller.
func (a *App) StartSession() error {
	a.mu.Lock()
	a.reauthTried = false
	a.mu.Unlock()
	return a.runtime.StartSession(context.Background())
}

// StopSession implements web.Controller.
func (a *App) StopSession() {
	a.runtime.StopSession()
}

// HandleChat implements web.Controller, running one text query turn.
func (a *App) HandleChat(ctx context.Context, text, mode string) (web.ChatReply, error) {
	answer, err := a.HandleTextQuery(ctx, text, brain.ParseMode(mode))
	if err != nil {
		return web.ChatReply{}, err
	}
	st, em := a.machine.Snapshot()
	return web.ChatReply{
		Text:      answer.Text,
		Citations: answer.Citations,
		State:     st.String(),
		Emotion:   string(em),
	}, nil
}

// HandleTextQuery runs one turn of the turn-based flow: think, record
// the exchange, speak the answer. Query failures still record an
// assistant turn with the apology text and park the machine in ERROR.
func (a *App) HandleTextQuery(ctx context.Context, text string, mode brain.Mode) (brain.Answer, error) {
	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		return brain.Answer{}, ErrBusy
	}
	a.busy = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.busy = false
		a.mu.Unlock()
	}()

	a.machine.Set(state.Thinking)
	a.addLog("query", text)

	// The query sees the history as it stood before this turn; the
	// prompt itself travels separately.
	answer, err := a.mindClient().Query(ctx, text, a.history, mode)
	if err != nil && brain.IsAuthError(err) {
		if rerr := a.rebuildMind(ctx); rerr == nil {
			answer, err = a.mindClient().Query(ctx, text, a.history, mode)
		}
	}
	a.history.AddUser(text)
	if err != nil {
		a.history.AddAssistant(apologyText, nil)
		a.machine.Set(state.Error)
		log.Error("query failed", "mode", string(mode), "error", err)
		a.addLog("error", err.Error())
		return brain.Answer{Text: apologyText}, nil
	}

	a.history.AddAssistant(answer.Text, answer.Citations)
	a.speak(ctx, answer.Text)
	return answer, nil
}

// speak synthesizes text with the current emotion and schedules it.
// Synthesis may report no audio; the machine then returns to idle
// directly.
func (a *App) speak(ctx context.Context, text string) {
	_, emotion := a.machine.Snapshot()
	audio, err := a.mindClient().Synthesize(ctx, text, emotion)
	if err != nil {
		a.machine.Set(state.Error)
		log.Error("synthesis failed", "error", err)
		a.addLog("error", err.Error())
		return
	}
	if len(audio) == 0 {
		a.machine.Set(state.Idle)
		return
	}

	a.machine.Set(state.Speaking)
	if _, err := a.sched.Enqueue(audio); err != nil {
		a.machine.Set(state.Error)
		log.Error("playback enqueue failed", "error", err)
	}
}

// newMicrophone opens the capture source for a session.
func (a *App) newMicrophone() (audioio.Source, error) {
	return audioio.NewSource(a.cfg.Capture, log.L())
}

// newLiveSession builds a realtime client with the tools registered.
func (a *App) newLiveSession(cb live.Callbacks) (media.Session, error) {
	cfg := live.DefaultConfig()
	cfg.APIKey = a.cfg.APIKey
	cfg.Voice = a.cfg.Voice
	cfg.SystemPrompt = brain.SystemPrompt
	if a.cfg.LiveModel != "" {
		cfg.Model = a.cfg.LiveModel
	}

	client, err := live.NewClient(cfg, cb)
	if err != nil {
		return nil, err
	}
	for _, tool := range a.liveTools() {
		client.RegisterTool(tool)
	}
	return client, nil
}

// onInputTranscript watches what the user says. Hearing the wake word
// outside of active speech promotes the machine to WAKING ahead of the
// mandated greeting.
func (a *App) onInputTranscript(text string) {
	a.addLog("heard", text)
	if !strings.Contains(strings.ToLower(text), "agni") {
		return
	}
	if !a.machine.CompareAndSet(state.Listening, state.Waking) {
		a.machine.CompareAndSet(state.Idle, state.Waking)
	}
}

func (a *App) onOutputTranscript(text string) {
	a.mu.Lock()
	a.turnBuf.WriteString(text)
	a.mu.Unlock()
}

// onTurnComplete archives the assistant's spoken turn.
func (a *App) onTurnComplete() {
	a.mu.Lock()
	spoken := a.turnBuf.String()
	a.turnBuf.Reset()
	a.mu.Unlock()

	if spoken != "" {
		a.history.AddAssistant(spoken, nil)
		a.addLog("spoke", spoken)
	}
}

// onVisionFrame mirrors each camera frame sent to the model onto the
// dashboard's camera feed.
func (a *App) onVisionFrame(jpeg []byte) {
	if a.server != nil {
		a.server.PublishCameraFrame(jpeg)
	}
}

// onSessionError handles live session failures. Auth failures rebuild
// the clients from config and retry the session once.
func (a *App) onSessionError(err error) {
	a.addLog("error", err.Error())
	if !brain.IsAuthError(err) {
		return
	}

	a.mu.Lock()
	tried := a.reauthTried
	a.reauthTried = true
	a.mu.Unlock()
	if tried {
		return
	}

	go func() {
		a.runtime.StopSession()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.rebuildMind(ctx); err != nil {
			log.Error("credential refresh failed", "error", err)
			return
		}
		if err := a.runtime.StartSession(ctx); err != nil {
			log.Error("session retry failed", "error", err)
		}
	}()
}

func (a *App) mindClient() intelligence {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mind
}

// rebuildMind recreates the brain client from config.
func (a *App) rebuildMind(ctx context.Context) error {
	mind, err := brain.NewClient(ctx, a.brainConfig())
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.mind = mind
	a.mu.Unlock()
	log.Info("model clients rebuilt")
	return nil
}

func (a *App) brainConfig() brain.Config {
	cfg := brain.DefaultConfig()
	cfg.APIKey = a.cfg.APIKey
	cfg.Voice = a.cfg.Voice
	return cfg
}

func (a *App) publishState() {
	if a.server != nil {
		a.server.PublishState(a.StateView())
	}
}

func (a *App) addLog(kind, msg string) {
	if a.server != nil {
		a.server.AddLog(kind, msg)
	}
}
