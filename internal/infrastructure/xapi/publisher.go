package xapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"NewsPoster/internal/config"
	"NewsPoster/internal/domain"
	"NewsPoster/internal/ports"
)

// Client publishes posts through the X v2 API. Outbound calls are rate
// limited; retryable failures are retried a bounded number of times with
// backoff before a terminal error is surfaced.
type Client struct {
	apiBase     string
	uploadBase  string
	accessToken string
	maxRetries  int
	callTimeout time.Duration
	limiter     *rate.Limiter
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ ports.Publisher = (*Client)(nil)

// New builds a publish client from configuration.
func New(cfg config.XConfig, logger *slog.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return &Client{
		apiBase:     strings.TrimRight(cfg.APIBase, "/"),
		uploadBase:  strings.TrimRight(cfg.UploadBase, "/"),
		accessToken: cfg.AccessToken,
		maxRetries:  cfg.MaxPublishRetries,
		callTimeout: cfg.CallTimeout(),
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		httpClient:  &http.Client{Timeout: cfg.CallTimeout()},
		logger:      logger,
	}
}

// Publish submits one post, uploading media first when present, and returns
// the external post identifier.
func (c *Client) Publish(ctx context.Context, req ports.PublishRequest) (string, error) {
	if c.accessToken == "" {
		return "", &domain.PublishError{Err: fmt.Errorf("publisher misconfigured: no access token")}
	}

	var mediaID string
	if req.MediaHandle != "" {
		id, err := c.uploadMedia(ctx, req.MediaHandle)
		if err != nil {
			return "", err
		}
		mediaID = id
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying publish", "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", &domain.PublishError{Err: ctx.Err()}
			}
			backoff *= 2
		}

		id, err := c.createPost(ctx, req, mediaID)
		if err == nil {
			return id, nil
		}
		lastErr = err

		var pubErr *domain.PublishError
		if !errors.As(err, &pubErr) || !pubErr.Retryable {
			return "", err
		}
	}

	return "", lastErr
}

func (c *Client) createPost(ctx context.Context, req ports.PublishRequest, mediaID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &domain.PublishError{Err: err}
	}

	payload := map[string]any{"text": req.Text}
	if req.ReplyTo != "" {
		payload["reply"] = map[string]string{"in_reply_to_tweet_id": req.ReplyTo}
	}
	if mediaID != "" {
		payload["media"] = map[string]any{"media_ids": []string{mediaID}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &domain.PublishError{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.apiBase+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", &domain.PublishError{Err: fmt.Errorf("new request: %w", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.PublishError{Retryable: true, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &domain.PublishError{
			Retryable: retryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("api error %s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	var parsed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.PublishError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if parsed.Data.ID == "" {
		return "", &domain.PublishError{Err: fmt.Errorf("no post id in response")}
	}

	c.logger.Info("post published", "post_id", parsed.Data.ID, "reply_to", req.ReplyTo)
	return parsed.Data.ID, nil
}

// uploadMedia downloads the generated image and pushes it through the v1.1
// media upload endpoint, returning the media id to attach.
func (c *Client) uploadMedia(ctx context.Context, imageURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &domain.PublishError{Err: err}
	}

	img, err := c.download(ctx, imageURL)
	if err != nil {
		return "", &domain.PublishError{Retryable: true, Err: fmt.Errorf("download image: %w", err)}
	}

	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(img))

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost,
		c.uploadBase+"/1.1/media/upload.json", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &domain.PublishError{Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.PublishError{Retryable: true, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &domain.PublishError{
			Retryable: retryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("media upload error %s", resp.Status),
		}
	}

	var parsed struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.PublishError{Err: fmt.Errorf("decode upload response: %w", err)}
	}
	if parsed.MediaIDString == "" {
		return "", &domain.PublishError{Err: fmt.Errorf("no media id in response")}
	}

	return parsed.MediaIDString, nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned %s", resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
