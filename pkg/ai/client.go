// Package ai provides an HTTP client for chat-completion style AI
// providers. PROCESS nodes call it through the protocol.AIClient
// contract.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
)

// Default base URLs for providers exposing an OpenAI-compatible chat
// completions endpoint. An explicit baseURL always wins.
var providerBaseURLs = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com/v1",
	"groq":     "https://api.groq.com/openai/v1",
}

// Client talks to chat-completion APIs. The per-call context carries
// the deadline, so the embedded http.Client has no timeout of its own.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type chatCompletionRequest struct {
	Model       string                 `json:"model"`
	Messages    []protocol.ChatMessage `json:"messages"`
	Temperature float64                `json:"temperature,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat performs one chat completion call against the provider.
func (c *Client) Chat(ctx context.Context, provider string, req protocol.ChatRequest, apiKey, baseURL string) (*protocol.ChatResponse, error) {
	if baseURL == "" {
		baseURL = providerBaseURLs[strings.ToLower(provider)]
	}

	if baseURL == "" {
		return nil, fmt.Errorf("unknown AI provider %q and no base URL configured", provider)
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	url := strings.TrimSuffix(baseURL, "/") + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("AI provider request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &completion); err != nil {
		return nil, fmt.Errorf("failed to decode provider response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if completion.Error != nil {
			return nil, fmt.Errorf("provider error (status %d): %s", resp.StatusCode, completion.Error.Message)
		}

		return nil, fmt.Errorf("provider error: status %d", resp.StatusCode)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}

	model := completion.Model
	if model == "" {
		model = req.Model
	}

	response := &protocol.ChatResponse{
		Content: completion.Choices[0].Message.Content,
		Model:   model,
	}

	if completion.Usage != nil {
		response.Usage = &models.TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		}
	}

	return response, nil
}
