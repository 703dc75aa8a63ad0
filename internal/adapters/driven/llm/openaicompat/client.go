// Package openaicompat provides a backend invocation client speaking
// the OpenAI-compatible completion and chat wire protocol. Every
// configured backend shares the same protocol; endpoint, paths,
// credential and timeout come from the backend descriptor per call.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
	"github.com/custodia-labs/askdb-core/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.BackendClient = (*Client)(nil)

// Config holds configuration for the invocation client.
type Config struct {
	// RequestsPerSecond throttles calls per backend. Zero disables
	// throttling.
	RequestsPerSecond float64

	// Burst is the limiter burst size (default 1 when throttling).
	Burst int
}

// Client sends completion and chat requests to inference backends.
// The client itself is stateless apart from the per-backend limiters;
// it is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cfg        Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// completionRequest is the wire format for the completion path.
type completionRequest struct {
	Prompt        string  `json:"prompt"`
	Model         string  `json:"model,omitempty"`
	MaxTokens     int     `json:"max_tokens,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	TopK          int     `json:"top_k,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
}

// chatMessage is one role-tagged message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the wire format for the chat path.
type chatRequest struct {
	Messages      []chatMessage `json:"messages"`
	Model         string        `json:"model,omitempty"`
	MaxTokens     int           `json:"max_tokens,omitempty"`
	Temperature   float64       `json:"temperature,omitempty"`
	TopP          float64       `json:"top_p,omitempty"`
	TopK          int           `json:"top_k,omitempty"`
	RepeatPenalty float64       `json:"repeat_penalty,omitempty"`
}

// wireResponse is the tolerant response shape. Completion text comes
// from choices[0].text; chat text from choices[0].message.content,
// falling back to choices[0].text.
type wireResponse struct {
	Choices []struct {
		Text    string `json:"text"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a new invocation client.
func NewClient(cfg Config) *Client {
	return &Client{
		// Per-call timeouts come from each backend descriptor through
		// the request context, not from the shared client.
		httpClient: &http.Client{},
		cfg:        cfg,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Ask sends a completion request to the backend's completion path.
func (c *Client) Ask(
	ctx context.Context, prompt, systemPrompt string,
	params domain.SamplingParams, backend domain.BackendDescriptor,
) (string, error) {
	full := prompt
	if systemPrompt != "" {
		full = systemPrompt + "\n\n" + prompt
	}

	body := completionRequest{
		Prompt:        full,
		Model:         backend.Model,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		TopK:          params.TopK,
		RepeatPenalty: params.RepeatPenalty,
	}

	raw, err := c.post(ctx, backend, backend.CompletionPath, body)
	if err != nil {
		return "", err
	}
	return extractCompletionText(raw, backend.Name)
}

// AskChat sends a chat request built from the history plus the final
// user turn to the backend's chat path.
func (c *Client) AskChat(
	ctx context.Context, prompt string, history []domain.ChatTurn, systemPrompt string,
	params domain.SamplingParams, backend domain.BackendDescriptor,
) (string, error) {
	messages := make([]chatMessage, 0, 2*len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	for _, turn := range history {
		messages = append(messages,
			chatMessage{Role: "user", Content: turn.Question},
			chatMessage{Role: "assistant", Content: turn.Answer},
		)
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body := chatRequest{
		Messages:      messages,
		Model:         backend.Model,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		TopK:          params.TopK,
		RepeatPenalty: params.RepeatPenalty,
	}

	raw, err := c.post(ctx, backend, backend.ChatPath, body)
	if err != nil {
		return "", err
	}
	return extractChatText(raw, backend.Name)
}

// post sends a JSON request under the backend's timeout and returns the
// raw response body. Transport failures are logged and returned to the
// caller - never converted into an empty answer.
func (c *Client) post(
	ctx context.Context, backend domain.BackendDescriptor, path string, body any,
) ([]byte, error) {
	if err := c.wait(ctx, backend.Name); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, backend.EffectiveTimeout())
	defer cancel()

	url := strings.TrimRight(backend.Endpoint, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if backend.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+backend.Credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Backend %s: request failed: %v", backend.Name, err)
		return nil, fmt.Errorf("backend %s: %w", backend.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("Backend %s: reading response failed: %v", backend.Name, err)
		return nil, fmt.Errorf("backend %s: read response: %w", backend.Name, err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warn("Backend %s: status %d", backend.Name, resp.StatusCode)
		return nil, fmt.Errorf("backend %s: status %d: %s", backend.Name, resp.StatusCode, string(raw))
	}

	return raw, nil
}

// wait applies the per-backend rate limiter when throttling is enabled.
func (c *Client) wait(ctx context.Context, backend string) error {
	if c.cfg.RequestsPerSecond <= 0 {
		return nil
	}

	c.mu.Lock()
	limiter, ok := c.limiters[backend]
	if !ok {
		burst := c.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(c.cfg.RequestsPerSecond), burst)
		c.limiters[backend] = limiter
	}
	c.mu.Unlock()

	return limiter.Wait(ctx)
}

// extractCompletionText decodes choices[0].text. A response missing the
// expected fields yields an empty string: a degraded empty answer is
// acceptable where a transport failure is not. An undecodable body is a
// transport failure and is raised.
func extractCompletionText(raw []byte, backend string) (string, error) {
	var resp wireResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger.Warn("Backend %s: undecodable completion body: %v", backend, err)
		return "", fmt.Errorf("backend %s: decode response: %w", backend, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Text), nil
}

// extractChatText decodes choices[0].message.content, falling back to
// choices[0].text.
func extractChatText(raw []byte, backend string) (string, error) {
	var resp wireResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger.Warn("Backend %s: undecodable chat body: %v", backend, err)
		return "", fmt.Errorf("backend %s: decode response: %w", backend, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	if content := strings.TrimSpace(resp.Choices[0].Message.Content); content != "" {
		return content, nil
	}
	return strings.TrimSpace(resp.Choices[0].Text), nil
}
