package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"spaceplan/domain/brief"
	"spaceplan/domain/core"
	"spaceplan/domain/program"
	"spaceplan/internal"
	"spaceplan/internal/classifier"
	"spaceplan/internal/extraction"
	"spaceplan/internal/graph"
	"spaceplan/internal/grouping"
	"spaceplan/ports"
)

// IngestResult reports what one brief ingestion produced
type IngestResult struct {
	Classifications []brief.Classification `json:"classifications"`
	NodeCount       int                    `json:"node_count"`
	GroupCount      int                    `json:"group_count"`
	FlaggedCount    int                    `json:"flagged_count"`
	Rejected        []string               `json:"rejected,omitempty"`
}

// BriefService turns raw brief inputs into a loaded project graph:
// classify, extract per strategy, normalize, reconcile, load. Multiple
// inputs are extracted concurrently, then merged in input order.
type BriefService struct {
	graph         *graph.Graph
	llmExtractor  ports.Extractor
	heuristic     ports.Extractor
	logger        *internal.Logger
	maxInputBytes int
}

// NewBriefService wires a brief service. The heuristic extractor is
// mandatory; the LLM extractor may be nil, in which case generation
// requests fail and extraction always takes the heuristic path.
func NewBriefService(g *graph.Graph, llmExtractor, heuristic ports.Extractor, logger *internal.Logger, maxInputBytes int) *BriefService {
	return &BriefService{
		graph:         g,
		llmExtractor:  llmExtractor,
		heuristic:     heuristic,
		logger:        logger.For("BriefService"),
		maxInputBytes: maxInputBytes,
	}
}

// Classify exposes classification without side effects
func (s *BriefService) Classify(text string) brief.Classification {
	return classifier.Classify(text)
}

// Ingest runs the full pipeline for one or more brief inputs and loads
// the combined result into the graph as a single undoable step.
// Garbage inputs are rejected individually; the rest proceed.
func (s *BriefService) Ingest(ctx context.Context, inputs []string) (*IngestResult, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no brief inputs supplied")
	}

	result := &IngestResult{}
	type extracted struct {
		index int
		ext   *brief.Extraction
		cls   brief.Classification
	}

	var mu sync.Mutex
	var done []extracted

	eg, egCtx := errgroup.WithContext(ctx)
	for i, text := range inputs {
		if s.maxInputBytes > 0 && len(text) > s.maxInputBytes {
			return nil, fmt.Errorf("input %d exceeds %d bytes", i, s.maxInputBytes)
		}

		cls := classifier.Classify(text)
		result.Classifications = append(result.Classifications, cls)
		if cls.Category == brief.CategoryGarbage {
			s.logger.Warn("Rejecting input %d: %s", i, cls.Reason)
			result.Rejected = append(result.Rejected, cls.Reason)
			continue
		}

		i, text, cls := i, text, cls
		eg.Go(func() error {
			ext, err := s.extract(egCtx, text, cls)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			mu.Lock()
			done = append(done, extracted{index: i, ext: ext, cls: cls})
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if len(done) == 0 {
		return result, fmt.Errorf("not a valid program: no usable inputs")
	}

	// Merge in input order so node ordering is deterministic
	for i := 0; i < len(done); i++ {
		for j := i + 1; j < len(done); j++ {
			if done[j].index < done[i].index {
				done[i], done[j] = done[j], done[i]
			}
		}
	}

	var allNodes []*program.AreaNode
	var candidates []brief.RawGroup
	origins := make(map[core.NodeID]string)
	for _, d := range done {
		nodes := extraction.Normalize(d.ext.Programs, program.ProvenanceBrief)
		hints, order := extraction.GroupHints(d.ext.Programs, nodes)
		for _, label := range order {
			candidates = append(candidates, brief.RawGroup{Name: label, ProgramIDs: idsToStrings(hints[label])})
			for _, id := range hints[label] {
				origins[id] = label
			}
		}
		candidates = append(candidates, d.ext.Groups...)
		allNodes = append(allNodes, nodes...)
	}

	rec := grouping.New()
	rec.Origins = origins
	groups := rec.Reconcile(candidates, allNodes, nil)

	if err := s.graph.Load("Import brief", allNodes, groups); err != nil {
		return nil, err
	}
	for i, text := range inputs {
		s.graph.AddRawInput(brief.RawInput{
			ID:        core.InputID(core.NewID()),
			Kind:      "text",
			Label:     fmt.Sprintf("input %d", i+1),
			Content:   text,
			CreatedAt: core.Now(),
		})
	}

	result.NodeCount = len(allNodes)
	result.GroupCount = len(groups)
	for _, n := range allNodes {
		if n.NeedsReview {
			result.FlaggedCount++
		}
	}
	s.logger.Info("Ingested %d inputs: %d nodes, %d groups, %d flagged",
		len(inputs), result.NodeCount, result.GroupCount, result.FlaggedCount)
	return result, nil
}

// LoadExtraction loads an already-extracted result, such as a
// spreadsheet brief, skipping classification entirely.
func (s *BriefService) LoadExtraction(ext *brief.Extraction, label string) (*IngestResult, error) {
	if ext == nil || len(ext.Programs) == 0 {
		return nil, fmt.Errorf("not a valid program: extraction is empty")
	}

	nodes := extraction.Normalize(ext.Programs, program.ProvenanceBrief)
	hints, order := extraction.GroupHints(ext.Programs, nodes)

	var candidates []brief.RawGroup
	origins := make(map[core.NodeID]string)
	for _, name := range order {
		candidates = append(candidates, brief.RawGroup{Name: name, ProgramIDs: idsToStrings(hints[name])})
		for _, id := range hints[name] {
			origins[id] = name
		}
	}
	candidates = append(candidates, ext.Groups...)

	rec := grouping.New()
	rec.Origins = origins
	groups := rec.Reconcile(candidates, nodes, nil)

	if err := s.graph.Load(label, nodes, groups); err != nil {
		return nil, err
	}

	result := &IngestResult{NodeCount: len(nodes), GroupCount: len(groups)}
	for _, n := range nodes {
		if n.NeedsReview {
			result.FlaggedCount++
		}
	}
	return result, nil
}

// extract picks the path for a classification: generation needs the
// collaborator, extraction prefers it but falls back to the heuristic
// parser when the collaborator fails or is absent.
func (s *BriefService) extract(ctx context.Context, text string, cls brief.Classification) (*brief.Extraction, error) {
	switch cls.Strategy {
	case brief.StrategyGenerate:
		if s.llmExtractor == nil {
			return nil, fmt.Errorf("%w: generation requires a collaborator", core.ErrProviderUnavailable)
		}
		return s.llmExtractor.Extract(ctx, text, cls)

	case brief.StrategyStructuredExtract, brief.StrategyTolerantExtract:
		if s.llmExtractor != nil {
			ext, err := s.llmExtractor.Extract(ctx, text, cls)
			if err == nil {
				return ext, nil
			}
			if ctx.Err() != nil {
				return nil, err
			}
			s.logger.Warn("Collaborator extraction failed, using heuristic: %v", err)
		}
		return s.heuristic.Extract(ctx, text, cls)

	default:
		return nil, fmt.Errorf("no extraction strategy for %q", cls.Category)
	}
}

func idsToStrings(ids []core.NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
