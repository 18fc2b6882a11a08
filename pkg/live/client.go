package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agni-os/nova/internal/log"
)

// Callbacks receive every event of one session. Each carries the
// session ID so owners can drop events from a superseded connection.
// All callbacks run on the client's read goroutine.
type Callbacks struct {
	OnAudio            func(sessionID string, pcm []byte)
	OnInputTranscript  func(sessionID, text string)
	OnOutputTranscript func(sessionID, text string)
	OnTurnComplete     func(sessionID string)
	OnInterrupted      func(sessionID string)
	OnToolCall         func(sessionID string, call ToolCall)
	OnError            func(sessionID string, err error)
	OnClose            func(sessionID string)
}

// Client is a single realtime session.
type Client struct {
	config Config

	ws   *websocket.Conn
	wsMu sync.Mutex

	tools    []Tool
	toolsMap map[string]Tool

	mu        sync.RWMutex
	sessionID string
	connected bool
	closed    bool
	closeOnce sync.Once

	callbacks Callbacks
}

// NewClient creates a client for one session.
func NewClient(cfg Config, cb Callbacks) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}

	return &Client{
		config:    cfg,
		callbacks: cb,
		toolsMap:  make(map[string]Tool),
	}, nil
}

// RegisterTool adds a tool before Connect.
func (c *Client) RegisterTool(tool Tool) {
	c.tools = append(c.tools, tool)
	c.toolsMap[tool.Name] = tool
}

// SessionID returns the identity of the current connection, empty
// before Connect.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// IsConnected reports whether the session is open.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && !c.closed
}

// Connect dials the live endpoint, sends the setup message, and starts
// the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	if c.closed {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.sessionID = uuid.NewString()
	sid := c.sessionID
	c.mu.Unlock()

	url := fmt.Sprintf("%s?key=%s", liveURL, c.config.APIKey)

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("live: failed to connect: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		// Torn down while dialing.
		c.mu.Unlock()
		ws.Close()
		return ErrNotConnected
	}
	c.ws = ws
	c.connected = true
	c.mu.Unlock()

	if err := c.sendJSON(buildSetup(c.config, c.tools)); err != nil {
		c.Close()
		return fmt.Errorf("live: failed to configure session: %w", err)
	}

	go c.readLoop()

	log.Info("live session connected", "session_id", sid, "model", c.config.Model)
	return nil
}

// SendAudio sends one capture frame of raw PCM16 bytes, base64-encoded,
// fire-and-forget.
func (c *Client) SendAudio(pcm []byte) error {
	return c.sendMediaChunk(pcm, audioMimeType)
}

// SendImage sends a JPEG vision frame.
func (c *Client) SendImage(jpeg []byte) error {
	return c.sendMediaChunk(jpeg, imageMimeType)
}

func (c *Client) sendMediaChunk(data []byte, mimeType string) error {
	c.mu.RLock()
	if !c.connected || c.closed {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	msg := map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{
					"data":      base64.StdEncoding.EncodeToString(data),
					"mime_type": mimeType,
				},
			},
		},
	}
	return c.sendJSON(msg)
}

// SubmitToolResult returns a tool result to the model.
func (c *Client) SubmitToolResult(callID, result string) error {
	msg := map[string]any{
		"tool_response": map[string]any{
			"function_responses": []map[string]any{
				{
					"id":       callID,
					"response": map[string]any{"result": result},
				},
			},
		},
	}
	return c.sendJSON(msg)
}

// Close tears the session down. It is idempotent and safe to call
// before Connect; the close callback fires at most once.
func (c *Client) Close() error {
	c.mu.Lock()
	wasConnected := c.connected
	sid := c.sessionID
	c.closed = true
	c.connected = false
	ws := c.ws
	c.mu.Unlock()

	var err error
	if ws != nil {
		err = ws.Close()
	}

	if wasConnected {
		c.closeOnce.Do(func() {
			if c.callbacks.OnClose != nil {
				c.callbacks.OnClose(sid)
			}
		})
	}
	return err
}

func (c *Client) readLoop() {
	c.mu.RLock()
	sid := c.sessionID
	ws := c.ws
	c.mu.RUnlock()

	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		c.closeOnce.Do(func() {
			if c.callbacks.OnClose != nil {
				c.callbacks.OnClose(sid)
			}
		})
	}()

	for {
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			return
		}

		_, message, err := ws.ReadMessage()
		if err != nil {
			c.mu.RLock()
			closed := c.closed
			c.mu.RUnlock()
			if !closed && c.callbacks.OnError != nil {
				c.callbacks.OnError(sid, err)
			}
			return
		}

		var msg map[string]any
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug("live: unparseable message", "error", err)
			continue
		}
		c.handleMessage(sid, msg)
	}
}

func (c *Client) handleMessage(sid string, msg map[string]any) {
	if _, ok := msg["setupComplete"]; ok {
		log.Debug("live session ready", "session_id", sid)
		return
	}

	if serverContent, ok := msg["serverContent"].(map[string]any); ok {
		c.handleServerContent(sid, serverContent)
		return
	}

	if toolCall, ok := msg["toolCall"].(map[string]any); ok {
		c.handleToolCall(sid, toolCall)
		return
	}

	if _, ok := msg["toolCallCancellation"]; ok {
		log.Debug("live: tool call cancelled", "session_id", sid)
		return
	}
}

func (c *Client) handleServerContent(sid string, content map[string]any) {
	if turnComplete, ok := content["turnComplete"].(bool); ok && turnComplete {
		if c.callbacks.OnTurnComplete != nil {
			c.callbacks.OnTurnComplete(sid)
		}
		return
	}

	if interrupted, ok := content["interrupted"].(bool); ok && interrupted {
		if c.callbacks.OnInterrupted != nil {
			c.callbacks.OnInterrupted(sid)
		}
		return
	}

	if modelTurn, ok := content["modelTurn"].(map[string]any); ok {
		for _, pcm := range extractAudioParts(modelTurn) {
			if c.callbacks.OnAudio != nil {
				c.callbacks.OnAudio(sid, pcm)
			}
		}
	}

	if text, ok := extractTranscript(content, "inputTranscription"); ok {
		if c.callbacks.OnInputTranscript != nil {
			c.callbacks.OnInputTranscript(sid, text)
		}
	}

	if text, ok := extractTranscript(content, "outputTranscription"); ok {
		if c.callbacks.OnOutputTranscript != nil {
			c.callbacks.OnOutputTranscript(sid, text)
		}
	}
}

func (c *Client) handleToolCall(sid string, toolCall map[string]any) {
	for _, call := range extractToolCalls(toolCall) {
		if c.callbacks.OnToolCall != nil {
			c.callbacks.OnToolCall(sid, call)
		}

		handler, ok := c.toolsMap[call.Name]
		if !ok || handler.Handler == nil {
			if err := c.SubmitToolResult(call.ID, "Function not found"); err != nil && c.callbacks.OnError != nil {
				c.callbacks.OnError(sid, err)
			}
			continue
		}

		result, err := handler.Handler(call.Arguments)
		if err != nil {
			result = fmt.Sprintf("Error: %v", err)
		}
		if err := c.SubmitToolResult(call.ID, result); err != nil && c.callbacks.OnError != nil {
			c.callbacks.OnError(sid, err)
		}
	}
}

func (c *Client) sendJSON(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	return c.ws.WriteJSON(v)
}
