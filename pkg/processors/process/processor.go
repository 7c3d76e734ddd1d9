// Package process provides the AI-model invocation processor.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
	"github.com/fluxion-io/fluxion/pkg/template"
)

const defaultTimeout = 60 * time.Second

// Processor renders the configured prompt against the execution
// context, invokes the AI provider and returns the model's reply plus
// token usage. Provider credentials are resolved through the per-run
// cache so the secret store is hit at most once per config id.
type Processor struct {
	ai      protocol.AIClient
	secrets protocol.SecretStore
	logger  *slog.Logger
}

func (p *Processor) Process(ctx context.Context, node *models.Node, execCtx *models.ExecutionContext) (*models.NodeOutput, error) {
	startedAt := time.Now().UTC()

	configID, _ := node.Config["ai_config_id"].(string)
	if configID == "" {
		return models.NewNodeError(node.ID, "missing required field 'ai_config_id'", startedAt), nil
	}

	prompt, _ := node.Config["prompt"].(string)
	if prompt == "" {
		return models.NewNodeError(node.ID, "missing required field 'prompt'", startedAt), nil
	}

	aiConfig, err := p.resolveConfig(ctx, configID, execCtx)
	if err != nil {
		return models.NewNodeError(node.ID,
			fmt.Sprintf("failed to resolve AI config %s: %v", configID, err), startedAt), nil
	}

	rendered, err := template.Resolve(prompt, execCtx)
	if err != nil {
		return models.NewNodeError(node.ID,
			fmt.Sprintf("failed to render prompt: %v", err), startedAt), nil
	}

	req := protocol.ChatRequest{
		Model:    aiConfig.Model,
		Messages: []protocol.ChatMessage{},
	}

	if model, ok := node.Config["model"].(string); ok && model != "" {
		req.Model = model
	}

	if system, ok := node.Config["system_prompt"].(string); ok && system != "" {
		renderedSystem, err := template.Resolve(system, execCtx)
		if err != nil {
			return models.NewNodeError(node.ID,
				fmt.Sprintf("failed to render system prompt: %v", err), startedAt), nil
		}

		req.Messages = append(req.Messages, protocol.ChatMessage{
			Role:    "system",
			Content: fmt.Sprintf("%v", renderedSystem),
		})
	}

	req.Messages = append(req.Messages, protocol.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("%v", rendered),
	})

	if temperature, ok := node.Config["temperature"].(float64); ok {
		req.Temperature = temperature
	}

	if maxTokens, ok := node.Config["max_tokens"].(float64); ok {
		req.MaxTokens = int(maxTokens)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout(node.Config))
	defer cancel()

	resp, err := p.ai.Chat(callCtx, aiConfig.Provider, req, aiConfig.APIKey, aiConfig.BaseURL)
	if err != nil {
		return models.NewNodeError(node.ID,
			fmt.Sprintf("AI provider call failed: %v", err), startedAt), nil
	}

	result := models.NewNodeOutput(node.ID, map[string]any{
		"content": resp.Content,
		"model":   resp.Model,
	}, startedAt)
	result.TokenUsage = resp.Usage

	return result, nil
}

// resolveConfig returns the cached provider config or resolves and
// caches it.
func (p *Processor) resolveConfig(ctx context.Context, configID string, execCtx *models.ExecutionContext) (*models.AIConfig, error) {
	if cached := execCtx.AIConfig(configID); cached != nil {
		return cached, nil
	}

	config, err := p.secrets.ResolveAIConfig(ctx, configID)
	if err != nil {
		return nil, err
	}

	execCtx.CacheAIConfig(config)

	return config, nil
}

func (p *Processor) timeout(config map[string]any) time.Duration {
	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}

	return defaultTimeout
}
