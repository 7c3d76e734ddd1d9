package protocol

import (
	"context"
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
)

// ChatMessage is one message in an AI chat exchange.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes one AI provider invocation.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse is the provider's reply plus token accounting.
type ChatResponse struct {
	Content string             `json:"content"`
	Model   string             `json:"model"`
	Usage   *models.TokenUsage `json:"usage,omitempty"`
}

// AIClient invokes an AI provider. Implementations must honor the
// context deadline and map provider-specific failures to plain errors;
// PROCESS nodes wrap those into node errors.
type AIClient interface {
	Chat(ctx context.Context, provider string, req ChatRequest, apiKey, baseURL string) (*ChatResponse, error)
}

// RunResult is the outcome of a sandboxed code execution. A timeout is
// reported as Success=false with Error set, not as a Go error: it is a
// normal node failure, not an infrastructure one.
type RunResult struct {
	Success bool     `json:"success"`
	Output  any      `json:"output,omitempty"`
	Logs    []string `json:"logs,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Sandbox runs user-supplied code in isolation with the interpolated
// input bound as a read-only value.
type Sandbox interface {
	Run(ctx context.Context, code, language string, inputs map[string]any, timeout time.Duration) (*RunResult, error)
}

// SecretStore resolves decrypted AI provider credentials by config id.
// The execution context caches results so each id is resolved at most
// once per run.
type SecretStore interface {
	ResolveAIConfig(ctx context.Context, configID string) (*models.AIConfig, error)
}
