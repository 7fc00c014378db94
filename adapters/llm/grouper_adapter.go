package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"spaceplan/ai"
	"spaceplan/domain/brief"
	"spaceplan/internal/config"
	"spaceplan/ports"
)

type groupingResponse struct {
	Groups []brief.RawGroup `json:"groups"`
}

// GrouperAdapter implements ports.Grouper over a structured LLM client.
// Its output is a candidate grouping only; the reconciler repairs it.
type GrouperAdapter struct {
	client *ai.StructuredClient[groupingResponse]
}

// NewGrouperAdapter creates an LLM-backed grouper
func NewGrouperAdapter(llmClient ports.LLMClient, cfg *config.AIConfig) *GrouperAdapter {
	return &GrouperAdapter{
		client: ai.NewStructuredClient[groupingResponse](llmClient, cfg),
	}
}

func (a *GrouperAdapter) ProposeGroups(ctx context.Context, req ports.GroupingRequest) ([]brief.RawGroup, error) {
	instruction := req.Instruction
	if instruction == "" {
		instruction = "Group the areas by architectural function."
	}

	areasJSON, err := json.Marshal(req.Areas)
	if err != nil {
		return nil, fmt.Errorf("marshal areas: %w", err)
	}

	log.Printf("[GrouperAdapter] Proposing groups for %d areas", len(req.Areas))

	result, err := a.client.GetJsonResponseFromPrompt(ctx, "propose_grouping", map[string]string{
		"INSTRUCTION": instruction,
		"AREAS":       string(areasJSON),
	})
	if err != nil {
		return nil, err
	}
	return result.Groups, nil
}
