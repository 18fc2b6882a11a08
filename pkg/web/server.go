// Package web serves the control dashboard and HTTP API.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"

	"github.com/agni-os/nova/internal/log"
	"github.com/agni-os/nova/pkg/brain"
	"github.com/agni-os/nova/pkg/hub"
)

const maxLogEntries = 500

// StateView is the assistant snapshot exposed to the dashboard.
type StateView struct {
	State         string  `json:"state"`
	Emotion       string  `json:"emotion"`
	SessionActive bool    `json:"session_active"`
	Connected     bool    `json:"connected"`
	MicLevel      float64 `json:"mic_level"`
	PendingAudio  int     `json:"pending_audio"`
}

// ChatReply is the answer to a text query.
type ChatReply struct {
	Text      string           `json:"text"`
	Citations []brain.Citation `json:"citations,omitempty"`
	State     string           `json:"state"`
	Emotion   string           `json:"emotion"`
}

// Controller is the application surface the server drives.
type Controller interface {
	StateView() StateView
	HandleChat(ctx context.Context, text, mode string) (ChatReply, error)
	StartSession() error
	StopSession()
}

// LogEntry is one dashboard log line.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Server hosts the API and the websocket broadcast channels.
type Server struct {
	app  *fiber.App
	port string
	ctrl Controller

	logs   []LogEntry
	logsMu sync.RWMutex

	stateHub  *hub.Hub
	logHub    *hub.Hub
	frameHub  *hub.Hub
	cameraHub *hub.Hub
}

// NewServer wires routes and hubs. The controller may be nil in tests;
// routes then answer 503.
func NewServer(port string, ctrl Controller) *Server {
	s := &Server{
		port:     port,
		ctrl:     ctrl,
		logs:     make([]LogEntry, 0, maxLogEntries),
		stateHub:  hub.New("state", hub.WithRetention()),
		logHub:    hub.New("logs"),
		frameHub:  hub.New("frames"),
		cameraHub: hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "NOVA Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Post("/chat", s.handleChat)
	api.Post("/session/start", s.handleSessionStart)
	api.Post("/session/stop", s.handleSessionStop)
	api.Get("/logs", s.handleGetLogs)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	// Dashboard assets go last so API and websocket routes win.
	app.Use("/", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFS),
		PathPrefix: "static",
		Index:      "index.html",
	}))

	s.app = app
	return s
}

// Start runs the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	go s.stateHub.Run()
	go s.logHub.Run()
	go s.frameHub.Run()
	go s.cameraHub.Run()
	log.Info("dashboard listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync serves in a background goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server stopped", "error", err)
		}
	}()
}

// PublishState broadcasts a state snapshot. The state hub retains it
// for late-joining clients.
func (s *Server) PublishState(view StateView) {
	s.stateHub.BroadcastJSON(view)
}

// PublishFrame broadcasts one visualizer frame.
func (s *Server) PublishFrame(frame any) {
	s.frameHub.BroadcastJSON(frame)
}

// PublishCameraFrame broadcasts one JPEG camera frame as a binary
// websocket message.
func (s *Server) PublishCameraFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// AddLog records a dashboard log line and broadcasts it. The buffer
// keeps the most recent entries only.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// Logs returns a copy of the buffered log entries.
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Shutdown stops the HTTP listener and the hubs.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.stateHub.Stop()
	s.logHub.Stop()
	s.frameHub.Stop()
	s.cameraHub.Stop()
	return err
}
