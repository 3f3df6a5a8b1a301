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

// ImageClient implements ports.ImageGenerator against a Grok-style image
// generation API. The returned handle is the hosted image URL.
type ImageClient struct {
	endpoint   string
	model      string
	apiKey     string
	style      string
	httpClient *http.Client
}

var _ ports.ImageGenerator = (*ImageClient)(nil)

// NewImageClient builds a client from configuration.
func NewImageClient(cfg config.ImageConfig) *ImageClient {
	return &ImageClient{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		style:    cfg.Style,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GenerateImage requests one image for the prompt and returns its URL.
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", &domain.GenerationError{Stage: "image", Err: fmt.Errorf("no image api key configured")}
	}

	enhanced := fmt.Sprintf(
		"Create a %s image: %s. Professional, high-quality, eye-catching and shareable on social media.",
		c.style, prompt)

	body, err := json.Marshal(map[string]any{
		"model":  c.model,
		"prompt": enhanced,
		"n":      1,
		"size":   "1024x1024",
	})
	if err != nil {
		return "", &domain.GenerationError{Stage: "image", Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &domain.GenerationError{Stage: "image", Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.GenerationError{Stage: "image", Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &domain.GenerationError{
			Stage: "image",
			Err:   fmt.Errorf("api error %s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	var parsed struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.GenerationError{Stage: "image", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return "", &domain.GenerationError{Stage: "image", Err: fmt.Errorf("no image in response")}
	}

	return parsed.Data[0].URL, nil
}
