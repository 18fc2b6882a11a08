package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/agni-os/nova/pkg/hub"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

func (s *Server) handleState(c *fiber.Ctx) error {
	if s.ctrl == nil {
		return fiber.ErrServiceUnavailable
	}
	return c.JSON(s.ctrl.StateView())
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	if s.ctrl == nil {
		return fiber.ErrServiceUnavailable
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	reply, err := s.ctrl.HandleChat(c.Context(), req.Text, req.Mode)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(reply)
}

func (s *Server) handleSessionStart(c *fiber.Ctx) error {
	if s.ctrl == nil {
		return fiber.ErrServiceUnavailable
	}
	if err := s.ctrl.StartSession(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "started"})
}

func (s *Server) handleSessionStop(c *fiber.Ctx) error {
	if s.ctrl == nil {
		return fiber.ErrServiceUnavailable
	}
	s.ctrl.StopSession()
	return c.JSON(fiber.Map{"status": "stopped"})
}

func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

func (s *Server) handleStateWS(c *websocket.Conn) {
	hub.NewClient(s.stateHub, c).Run()
}

func (s *Server) handleLogsWS(c *websocket.Conn) {
	// Replay the buffer so a fresh dashboard has history.
	for _, entry := range s.Logs() {
		if err := c.WriteJSON(entry); err != nil {
			c.Close()
			return
		}
	}
	hub.NewClient(s.logHub, c).Run()
}

func (s *Server) handleFramesWS(c *websocket.Conn) {
	hub.NewClient(s.frameHub, c).Run()
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
