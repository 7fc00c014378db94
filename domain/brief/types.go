package brief

import (
	"spaceplan/domain/core"
)

// Category is the coarse classification assigned to raw brief text
type Category string

const (
	// CategoryPrompt - short imperative text asking for generation rather
	// than describing an existing program
	CategoryPrompt Category = "prompt"
	// CategoryStructured - table-like text with consistent rows and totals
	CategoryStructured Category = "structured"
	// CategoryDirty - numeric content present but noisy/unstructured
	CategoryDirty Category = "dirty"
	// CategoryGarbage - no usable program content
	CategoryGarbage Category = "garbage"
)

// Strategy selects the downstream extraction path for a category
type Strategy string

const (
	StrategyGenerate          Strategy = "generate"
	StrategyStructuredExtract Strategy = "structured_extract"
	StrategyTolerantExtract   Strategy = "tolerant_extract"
	StrategyNone              Strategy = "none"
)

// UnitSystem is the measurement system detected in the text
type UnitSystem string

const (
	UnitMetric   UnitSystem = "metric"
	UnitImperial UnitSystem = "imperial"
	UnitNone     UnitSystem = "none"
)

// Signals records the syntactic/statistical evidence behind a classification
type Signals struct {
	LineCount        int        `json:"line_count"`
	NumericLineRatio float64    `json:"numeric_line_ratio"`
	TableLikeness    float64    `json:"table_likeness"`
	HasTotalMarker   bool       `json:"has_total_marker"`
	NoiseRatio       float64    `json:"noise_ratio"`
	ImperativeScore  float64    `json:"imperative_score"`
	UnitSystem       UnitSystem `json:"unit_system"`
}

// Classification is the result of inspecting raw brief text. Derived from
// the text alone, never persisted; recomputed per input.
type Classification struct {
	Category Category `json:"category"`
	Score    float64  `json:"score"`
	Strategy Strategy `json:"strategy"`
	Signals  Signals  `json:"signals"`
	Reason   string   `json:"reason"`
}

// RawProgram is one candidate program item as returned by an extraction
// source (AI collaborator, heuristic parser, spreadsheet reader). All
// fields are untrusted until normalized.
type RawProgram struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	Area       float64 `json:"area"`
	Count      int     `json:"count"`
	Total      float64 `json:"total,omitempty"` // ignored: totals are always recomputed
	Confidence float64 `json:"confidence,omitempty"`
	GroupHint  string  `json:"group_hint,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// RawGroup is one candidate functional group naming a subset of program IDs
type RawGroup struct {
	Name       string   `json:"name"`
	Color      string   `json:"color,omitempty"`
	ProgramIDs []string `json:"program_ids"`
}

/// Extraction is the untrusted result of one extraction pass: candidate
// program rows plus any grouping the source implied
type Extraction struct {
	Programs []RawProgram `json:"programs"`
	Groups   []RawGroup   `json:"groups,omitempty"`
}

// RawInput is one brief source (pasted text, uploaded sheet, prompt)
type RawInput struct {
	ID        core.InputID   `json:"id"`
	Kind      string         `json:"kind"` // "text", "spreadsheet", "prompt"
	Label     string         `json:"label,omitempty"`
	Content   string         `json:"content"`
	CreatedAt core.Timestamp `json:"created_at"`
}
