package llm

import (
	"context"
	"fmt"
	"log"

	"spaceplan/ai"
	"spaceplan/domain/brief"
	"spaceplan/internal/config"
	"spaceplan/ports"
)

// ExtractorAdapter implements ports.Extractor over a structured LLM
// client. The classification picks the prompt: prompt-category text is
// generated from, everything else is extracted from.
type ExtractorAdapter struct {
	client *ai.StructuredClient[brief.Extraction]
}

// NewExtractorAdapter creates an LLM-backed extractor
func NewExtractorAdapter(llmClient ports.LLMClient, cfg *config.AIConfig) *ExtractorAdapter {
	return &ExtractorAdapter{
		client: ai.NewStructuredClient[brief.Extraction](llmClient, cfg),
	}
}

func (a *ExtractorAdapter) Extract(ctx context.Context, text string, cls brief.Classification) (*brief.Extraction, error) {
	var (
		promptName   string
		replacements map[string]string
	)
	switch cls.Strategy {
	case brief.StrategyGenerate:
		promptName = "generate_program"
		replacements = map[string]string{"BRIEF": text}
	case brief.StrategyStructuredExtract, brief.StrategyTolerantExtract:
		promptName = "extract_program"
		replacements = map[string]string{"TEXT": text}
	default:
		return nil, fmt.Errorf("no extraction strategy for category %q", cls.Category)
	}

	log.Printf("[ExtractorAdapter] Extracting with prompt=%s, category=%s, lines=%d",
		promptName, cls.Category, cls.Signals.LineCount)

	result, err := a.client.GetJsonResponseFromPrompt(ctx, promptName, replacements)
	if err != nil {
		return nil, err
	}
	return result, nil
}
