package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/httpx"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

const maxOutputTokens = 8192

// Client dispatches chat requests to whichever provider the requested model
// id resolves to, masking transient failures with retry, backoff, and a
// final-attempt fallback to a cheaper model.
type Client struct {
	log        *logger.Logger
	httpClient *http.Client

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration

	// endpointOverride redirects all calls to one URL. Tests only.
	endpointOverride string
	sleep            func(time.Duration)
}

func NewClient(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	timeoutSec := 180
	if v := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &Client{
		log:        log.With("service", "LLMClient"),
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: 5,
		baseDelay:  1 * time.Second,
		maxDelay:   10 * time.Second,
		sleep:      time.Sleep,
	}, nil
}

type llmHTTPError struct {
	StatusCode int
	Body       string
}

func (e *llmHTTPError) Error() string {
	return fmt.Sprintf("llm http %d: %s", e.StatusCode, e.Body)
}

func (e *llmHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Tools          []Tool          `json:"tools,omitempty"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Invoke sends one chat request. Transient failures (network errors, 5xx,
// 429) are retried up to 5 times with exponential backoff; the final attempt
// substitutes the fallback model if the requested one is not already it.
// Exhaustion and non-retryable errors both return (nil, error).
func (c *Client) Invoke(ctx context.Context, req Request) (*Message, error) {
	info, err := ResolveModel(req.Model)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		useInfo := info
		if attempt == c.maxRetries && req.Model != FallbackModelID {
			if fb, fbErr := ResolveModel(FallbackModelID); fbErr == nil {
				c.log.Warn("Final attempt falling back to cheaper model",
					"requested", req.Model,
					"fallback", FallbackModelID,
				)
				useInfo = fb
			}
		}

		msg, err := c.doOnce(ctx, useInfo, req)
		if err == nil {
			return msg, nil
		}
		lastErr = err

		if !httpx.IsRetryableError(err) {
			c.log.Warn("Non-retryable model call failure", "model", req.Model, "error", err.Error())
			return nil, err
		}
		if attempt == c.maxRetries {
			break
		}

		sleepFor := httpx.Backoff(attempt, c.maxRetries, c.baseDelay, c.maxDelay)
		c.log.Warn("Model call retrying",
			"model", req.Model,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		c.sleep(sleepFor)
	}

	return nil, fmt.Errorf("model call failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) doOnce(ctx context.Context, info ModelInfo, req Request) (*Message, error) {
	apiKey := strings.TrimSpace(os.Getenv(info.APIKeyEnv))
	if apiKey == "" {
		return nil, fmt.Errorf("missing %s", info.APIKeyEnv)
	}

	body := chatRequest{
		Model:     info.Name,
		MaxTokens: maxOutputTokens,
	}
	body.Messages = append(body.Messages, Message{Role: RoleSystem, Content: req.System})
	body.Messages = append(body.Messages, req.Messages...)
	body.Messages = append(body.Messages, Message{Role: RoleUser, Content: req.User})

	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "output"
		}
		body.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchema{Name: name, Schema: req.Schema},
		}
	}
	if len(req.Tools) > 0 {
		body.Tools = req.Tools
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	endpoint := info.Endpoint
	if c.endpointOverride != "" {
		endpoint = c.endpointOverride
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &llmHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("llm decode error: %w; raw=%s", err, string(raw))
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("llm response has no choices; raw=%s", string(raw))
	}
	msg := out.Choices[0].Message
	return &msg, nil
}
