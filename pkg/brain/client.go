// Package brain implements the turn-based intelligence layer: chat
// queries in three latency profiles, search grounding with citations,
// and speech synthesis with emotion prosody.
package brain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/agni-os/nova/internal/log"
)

// Mode selects the latency/quality profile of a query.
type Mode string

const (
	// ModeFast is the low-latency default.
	ModeFast Mode = "fast"
	// ModeSearch grounds the answer in web search and carries citations.
	ModeSearch Mode = "search"
	// ModeDeep allocates an extended thinking budget.
	ModeDeep Mode = "deep"
)

// ParseMode converts a string to a Mode, defaulting to fast.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(s)) {
	case ModeSearch:
		return ModeSearch
	case ModeDeep:
		return ModeDeep
	default:
		return ModeFast
	}
}

const (
	fastModel = "gemini-3-flash-preview"
	deepModel = "gemini-3-pro-preview"
	ttsModel  = "gemini-2.5-flash-preview-tts"

	thinkingBudget = 32768

	// Placeholder answers for empty model responses, one per profile.
	fastFallback   = "Sequence link failure."
	searchFallback = "Neural search timeout."
	deepFallback   = "Cognitive module timeout."
)

// Config holds the brain configuration.
type Config struct {
	// APIKey authenticates every request.
	APIKey string

	// FastModel handles fast and search queries.
	FastModel string

	// DeepModel handles extended-thinking queries.
	DeepModel string

	// TTSModel handles speech synthesis.
	TTSModel string

	// Voice is the prebuilt synthesis voice.
	Voice string

	// Timeout bounds each request.
	Timeout time.Duration
}

// DefaultConfig returns the standard model selection.
func DefaultConfig() Config {
	return Config{
		FastModel: fastModel,
		DeepModel: deepModel,
		TTSModel:  ttsModel,
		Voice:     "Kore",
		Timeout:   60 * time.Second,
	}
}

// Answer is the result of one query.
type Answer struct {
	Text      string
	Citations []Citation
}

// Client talks to the model API.
type Client struct {
	client *genai.Client
	cfg    Config
}

// NewClient creates a brain client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.FastModel == "" {
		cfg.FastModel = fastModel
	}
	if cfg.DeepModel == "" {
		cfg.DeepModel = deepModel
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = ttsModel
	}
	if cfg.Voice == "" {
		cfg.Voice = "Kore"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("brain: failed to create client: %w", err)
	}

	return &Client{client: client, cfg: cfg}, nil
}

// Query runs one turn against the model. The history's trailing context
// window rides along; older turns are dropped.
func (c *Client) Query(ctx context.Context, prompt string, hist *History, mode Mode) (Answer, error) {
	if strings.TrimSpace(prompt) == "" {
		return Answer{}, ErrEmptyPrompt
	}

	contents := formatContents(hist, prompt)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
	}

	model := c.cfg.FastModel
	fallback := fastFallback
	switch mode {
	case ModeSearch:
		config.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		}
		fallback = searchFallback
	case ModeDeep:
		model = c.cfg.DeepModel
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(thinkingBudget)),
		}
		fallback = deepFallback
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return Answer{}, fmt.Errorf("brain: query failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		log.Warn("empty model response", "mode", mode, "model", model)
		text = fallback
	}

	return Answer{
		Text:      text,
		Citations: extractCitations(resp),
	}, nil
}

// formatContents assembles model contents from the trailing context
// window plus the current prompt.
func formatContents(hist *History, prompt string) []*genai.Content {
	var msgs []ChatMessage
	if hist != nil {
		msgs = hist.Window(ContextWindow - 1)
	}

	contents := make([]*genai.Content, 0, len(msgs)+1)
	for _, msg := range msgs {
		role := genai.Role(genai.RoleUser)
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
	return contents
}

// extractCitations pulls deduplicated web sources from grounding
// metadata. Ungrounded answers yield none.
func extractCitations(resp *genai.GenerateContentResponse) []Citation {
	if len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []Citation
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		out = append(out, Citation{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return out
}
