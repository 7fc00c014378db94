package llm

import (
	"context"
	"fmt"
	"log"

	"spaceplan/ai"
	"spaceplan/domain/core"
	"spaceplan/internal/config"
	apperrors "spaceplan/internal/errors"
	"spaceplan/ports"
)

// PlannerAdapter implements ports.ToolPlanner over a structured LLM
// client. Every call in the returned plan has already passed catalog
// validation; callers can dispatch without re-checking shape.
type PlannerAdapter struct {
	client  *ai.StructuredClient[ports.Plan]
	catalog *ai.Catalog
}

// NewPlannerAdapter creates an LLM-backed tool planner
func NewPlannerAdapter(llmClient ports.LLMClient, cfg *config.AIConfig, catalog *ai.Catalog) *PlannerAdapter {
	return &PlannerAdapter{
		client:  ai.NewStructuredClient[ports.Plan](llmClient, cfg),
		catalog: catalog,
	}
}

func (a *PlannerAdapter) PlanTools(ctx context.Context, message string, projectSummary string) (*ports.Plan, error) {
	plan, err := a.client.GetJsonResponseFromPrompt(ctx, "plan_tools", map[string]string{
		"TOOLS":   a.catalog.Describe(),
		"SUMMARY": projectSummary,
		"MESSAGE": message,
	})
	if err != nil {
		return nil, err
	}

	for _, call := range plan.Calls {
		if err := a.catalog.ValidateCall(call); err != nil {
			log.Printf("[PlannerAdapter] Rejected tool call %q: %v", call.Name, err)
			return nil, apperrors.CollaboratorError(fmt.Errorf("%w: %v", core.ErrMalformedResponse, err))
		}
	}
	return plan, nil
}
