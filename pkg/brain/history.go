package brain

import (
	"sync"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Citation is a search-grounding source attached to an answer.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// ChatMessage is one turn of the conversation.
type ChatMessage struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Citations []Citation `json:"citations,omitempty"`
}

// ContextWindow is the number of trailing messages sent to the model.
// Older turns stay in the transcript but drop out of model context.
const ContextWindow = 12

// History is the bounded conversation transcript.
type History struct {
	mu   sync.Mutex
	msgs []ChatMessage
	max  int
}

// NewHistory creates a transcript retaining at most max messages.
// max <= 0 means unbounded.
func NewHistory(max int) *History {
	return &History{max: max}
}

// Add appends a message, evicting the oldest past the retention cap.
func (h *History) Add(msg ChatMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	if h.max > 0 && len(h.msgs) > h.max {
		h.msgs = h.msgs[len(h.msgs)-h.max:]
	}
	h.mu.Unlock()
}

// AddUser appends a user turn.
func (h *History) AddUser(content string) {
	h.Add(ChatMessage{Role: RoleUser, Content: content})
}

// AddAssistant appends an assistant turn with optional citations.
func (h *History) AddAssistant(content string, citations []Citation) {
	h.Add(ChatMessage{Role: RoleAssistant, Content: content, Citations: citations})
}

// Window returns the most recent n messages in order.
func (h *History) Window(n int) []ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	start := len(h.msgs) - n
	if start < 0 {
		start = 0
	}
	out := make([]ChatMessage, len(h.msgs)-start)
	copy(out, h.msgs[start:])
	return out
}

// Messages returns a snapshot of the whole transcript.
func (h *History) Messages() []ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ChatMessage, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Len returns the transcript length.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

// Clear empties the transcript.
func (h *History) Clear() {
	h.mu.Lock()
	h.msgs = nil
	h.mu.Unlock()
}
