package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"spaceplan/domain/core"
	"spaceplan/internal/config"
	apperrors "spaceplan/internal/errors"
	"spaceplan/ports"
)

// StructuredClient provides typed JSON responses from LLM calls. The
// response content is untrusted: it is stripped of markdown wrappers
// and surrounding chatter, then parsed into T, and anything that fails
// to parse comes back as ErrMalformedResponse rather than a panic or a
// half-filled struct.
type StructuredClient[T any] struct {
	Client        ports.LLMClient
	PromptManager *PromptManager
	Model         string
	MaxTokens     int
	SystemContext string
}

// NewStructuredClient creates a structured client over an LLM port
func NewStructuredClient[T any](client ports.LLMClient, cfg *config.AIConfig) *StructuredClient[T] {
	log.Printf("[StructuredClient] Initializing with model=%s, maxTokens=%d", cfg.Model, cfg.MaxTokens)

	return &StructuredClient[T]{
		Client:        client,
		PromptManager: NewPromptManager(cfg.PromptsDir),
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		SystemContext: cfg.SystemContext,
	}
}

// GetJsonResponse makes a typed LLM call and parses the JSON response
func (c *StructuredClient[T]) GetJsonResponse(ctx context.Context, prompt string) (*T, error) {
	fullPrompt := prompt
	if c.SystemContext != "" {
		fullPrompt = c.SystemContext + "\n\n" + prompt
	}

	log.Printf("[StructuredClient] Sending request - model=%s, promptLength=%d", c.Model, len(fullPrompt))

	content, err := c.Client.ChatCompletion(ctx, c.Model, fullPrompt, c.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}

	return ParseJSON[T](content)
}

// GetJsonResponseFromPrompt renders an external prompt template and
// gets a structured response
func (c *StructuredClient[T]) GetJsonResponseFromPrompt(ctx context.Context, promptName string, replacements map[string]string) (*T, error) {
	prompt, err := c.PromptManager.RenderPrompt(promptName, replacements)
	if err != nil {
		log.Printf("[StructuredClient] ERROR: Failed to render prompt %s: %v", promptName, err)
		return nil, err
	}
	return c.GetJsonResponse(ctx, prompt)
}

// ParseJSON cleans raw LLM output and unmarshals it into T
func ParseJSON[T any](content string) (*T, error) {
	cleaned := cleanJSONContent(content)

	var result T
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		log.Printf("[StructuredClient] ERROR: Failed to parse response into result type: %v", err)
		log.Printf("[StructuredClient] Cleaned content: %s", preview(cleaned, 500))
		return nil, apperrors.CollaboratorError(fmt.Errorf("%w: %v", core.ErrMalformedResponse, err))
	}
	return &result, nil
}

// cleanJSONContent removes markdown code fences and conversational
// chatter that models wrap around JSON payloads
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	// Drop leading prose before the first JSON value
	if idx := strings.IndexAny(content, "{["); idx > 0 {
		prefix := content[:idx]
		if !strings.ContainsAny(prefix, "{[") {
			content = content[idx:]
		}
	}

	// Drop trailing prose after the last closing bracket
	if idx := strings.LastIndexAny(content, "}]"); idx >= 0 && idx < len(content)-1 {
		content = content[:idx+1]
	}

	return strings.TrimSpace(content)
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
