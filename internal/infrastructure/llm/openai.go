package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsPoster/internal/config"
	"NewsPoster/internal/domain"
	"NewsPoster/internal/ports"
)

// TextClient implements ports.TextGenerator over OpenAI-compatible
// chat-completion APIs. Without an API key it degrades to a deterministic
// heuristic composer so dry runs work offline.
type TextClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.TextGenerator = (*TextClient)(nil)

// NewTextClient builds a client from configuration.
func NewTextClient(cfg config.OpenAIConfig) *TextClient {
	return &TextClient{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Generate produces post copy for one generation request, clamped to the
// request's length ceiling.
func (c *TextClient) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if c.apiKey == "" {
		return heuristicPost(req), nil
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You write concise, engaging social posts based on tech news."},
			{"role": "user", "content": buildPrompt(req)},
		},
		"temperature": 0.7,
		"max_tokens":  maxTokensFor(req.MaxLength),
	})
	if err != nil {
		return "", &domain.GenerationError{Stage: "text", Err: fmt.Errorf("marshal payload: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &domain.GenerationError{Stage: "text", Err: fmt.Errorf("new request: %w", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.GenerationError{Stage: "text", Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &domain.GenerationError{
			Stage: "text",
			Err:   fmt.Errorf("api error %s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.GenerationError{Stage: "text", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &domain.GenerationError{Stage: "text", Err: fmt.Errorf("empty completion")}
	}

	return clamp(strings.TrimSpace(parsed.Choices[0].Message.Content), req.MaxLength), nil
}

func buildPrompt(req domain.GenerationRequest) string {
	toneHint := map[string]string{
		"professional":   "Use a concise, professional tone.",
		"witty":          "Use a witty, clever tone without being cringey.",
		"hype":           "Use a high-energy, hype tone but avoid spam.",
		"thought_leader": "Use a reflective, thought-leader tone.",
	}[req.Tone]
	if toneHint == "" {
		toneHint = "Use a concise, professional tone."
	}

	emojiHint := "Do not use emojis."
	if req.UseEmojis {
		emojiHint = "Include 0-2 tasteful emojis."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Constraint: %d characters MAXIMUM.\n", req.MaxLength)
	b.WriteString(toneHint + " " + emojiHint + "\n")
	b.WriteString("Keep it human-like. Start directly with the insight (no preamble).\n\n")
	b.WriteString(req.TextContext)
	if req.Mention != "" {
		fmt.Fprintf(&b, "\n\nIf it fits naturally, mention %s.", req.Mention)
	}
	if len(req.Hashtags) > 0 {
		fmt.Fprintf(&b, "\n\nIf space allows, append: %s", strings.Join(req.Hashtags, " "))
	}
	return b.String()
}

// heuristicPost composes post text without an LLM: context headline plus
// hashtags, truncated to fit.
func heuristicPost(req domain.GenerationRequest) string {
	base := firstLine(req.TextContext)
	tags := strings.Join(req.Hashtags, " ")

	post := base
	if tags != "" {
		post = strings.TrimSpace(base + " " + tags)
	}
	if len(post) <= req.MaxLength {
		return post
	}

	room := req.MaxLength - len(tags) - 1
	if room <= 1 {
		return clamp(tags, req.MaxLength)
	}
	return strings.TrimSpace(clamp(base, room) + " " + tags)
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return text
}

func clamp(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit == 1 {
		return string(runes[:1])
	}
	return string(runes[:limit-1]) + "…"
}

func maxTokensFor(maxLength int) int {
	// Rough chars-per-token budget with headroom; the hard limit is the
	// post-hoc clamp.
	tokens := maxLength / 3
	if tokens < 120 {
		tokens = 120
	}
	if tokens > 4000 {
		tokens = 4000
	}
	return tokens
}
