package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"spaceplan/domain/brief"
	"spaceplan/domain/core"
	"spaceplan/domain/program"
	"spaceplan/domain/proposal"
	"spaceplan/internal"
	"spaceplan/internal/classifier"
	"spaceplan/internal/engine"
	"spaceplan/internal/graph"
	"spaceplan/ports"
)

// ChatResult is what one chat turn produced: a reply for the user,
// plus any proposals now awaiting review. Mutating tools never touch
// the graph directly; they always go through the proposal engine.
type ChatResult struct {
	Reply     string               `json:"reply"`
	Proposals []*proposal.Proposal `json:"proposals,omitempty"`
	Lookups   []string             `json:"lookups,omitempty"`
}

// ChatService routes user messages through the tool planner and
// dispatches validated tool calls.
type ChatService struct {
	planner   ports.ToolPlanner
	grouper   ports.Grouper
	extractor ports.Extractor
	engine    *engine.Engine
	graph     *graph.Graph
	logger    *internal.Logger
}

// NewChatService wires a chat service
func NewChatService(planner ports.ToolPlanner, grouper ports.Grouper, extractor ports.Extractor, eng *engine.Engine, g *graph.Graph, logger *internal.Logger) *ChatService {
	return &ChatService{
		planner:   planner,
		grouper:   grouper,
		extractor: extractor,
		engine:    eng,
		graph:     g,
		logger:    logger.For("ChatService"),
	}
}

// HandleMessage runs one chat turn. If the context is cancelled while
// the planner is in flight, the late response is discarded and nothing
// reaches the engine.
func (s *ChatService) HandleMessage(ctx context.Context, message string) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("empty message")
	}
	if s.planner == nil {
		return nil, fmt.Errorf("%w: no collaborator configured", core.ErrProviderUnavailable)
	}

	plan, err := s.planner.PlanTools(ctx, message, s.Summary())
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.logger.Warn("Discarding plan: context cancelled during planning")
		return nil, ctxErr
	}

	result := &ChatResult{Reply: plan.Reply}
	for _, call := range plan.Calls {
		if err := s.dispatch(ctx, call, result); err != nil {
			s.logger.Warn("Tool %s failed: %v", call.Name, err)
			result.Lookups = append(result.Lookups, fmt.Sprintf("%s failed: %v", call.Name, err))
		}
	}
	return result, nil
}

func (s *ChatService) dispatch(ctx context.Context, call ports.ToolCall, result *ChatResult) error {
	switch call.Name {
	case "respond_to_user":
		var args struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return err
		}
		if result.Reply == "" {
			result.Reply = args.Message
		}
		return nil

	case "get_summary":
		result.Lookups = append(result.Lookups, s.Summary())
		return nil

	case "find_area":
		var args struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return err
		}
		node := s.findNodeByName(args.Name)
		if node == nil {
			result.Lookups = append(result.Lookups, fmt.Sprintf("no area named %q", args.Name))
			return nil
		}
		result.Lookups = append(result.Lookups,
			fmt.Sprintf("%s: %.1f m² x %d = %.1f m²", node.Name, node.AreaPerUnit, node.Count, node.TotalArea))
		return nil

	case "create_program", "parse_brief":
		return s.proposeExtraction(ctx, call, result)

	case "organize_areas", "regroup_by_function":
		return s.proposeRegroup(ctx, call, result)

	case "unfold_area":
		return s.proposeUnfold(call, result)

	case "split_group_numerically":
		return s.proposeGroupSplit(call, result)

	case "scale_areas":
		return s.proposeScale(call, result)

	default:
		return fmt.Errorf("unhandled tool %q", call.Name)
	}
}

func (s *ChatService) proposeExtraction(ctx context.Context, call ports.ToolCall, result *ChatResult) error {
	var args struct {
		Brief string `json:"brief"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return err
	}
	text := args.Brief
	if call.Name == "parse_brief" {
		text = args.Text
	}

	cls := classifier.Classify(text)
	if call.Name == "create_program" {
		// The tool is an explicit generation request even when the
		// text alone would not classify as one
		cls.Strategy = brief.StrategyGenerate
	}
	if cls.Category == brief.CategoryGarbage && call.Name == "parse_brief" {
		return fmt.Errorf("not a valid program: %s", cls.Reason)
	}

	ext, err := s.extractor.Extract(ctx, text, cls)
	if err != nil {
		return err
	}

	p := proposal.New(proposal.KindCreateAreas, fmt.Sprintf("Add %d areas from %s", len(ext.Programs), call.Name))
	p.CreateAreas = &proposal.CreateAreasPayload{Areas: ext.Programs}
	return s.submit(p, result)
}

func (s *ChatService) proposeRegroup(ctx context.Context, call ports.ToolCall, result *ChatResult) error {
	var args struct {
		Instruction string `json:"instruction"`
	}
	if len(call.Args) > 0 {
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return err
		}
	}
	if call.Name == "regroup_by_function" {
		args.Instruction = "Group the areas by architectural function."
	}

	req := ports.GroupingRequest{Instruction: args.Instruction}
	for _, n := range s.graph.Nodes() {
		area := ports.GroupingArea{ID: n.ID.String(), Name: n.Name, TotalArea: n.TotalArea}
		if grp := s.graph.GroupOf(n.ID); grp != nil {
			area.GroupName = grp.Name
		}
		req.Areas = append(req.Areas, area)
	}
	if len(req.Areas) == 0 {
		return fmt.Errorf("no areas to organize")
	}

	groups, err := s.grouper.ProposeGroups(ctx, req)
	if err != nil {
		return err
	}

	p := proposal.New(proposal.KindRegroup, fmt.Sprintf("Reorganize into %d groups", len(groups)))
	p.Regroup = &proposal.RegroupPayload{Groups: groups}
	return s.submit(p, result)
}

func (s *ChatService) proposeUnfold(call ports.ToolCall, result *ChatResult) error {
	var args struct {
		Area       string   `json:"area"`
		Quantities []int    `json:"quantities"`
		Names      []string `json:"names"`
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return err
	}
	node := s.resolveNode(args.Area)
	if node == nil {
		return core.NewNotFoundError("area", args.Area)
	}

	p := proposal.New(proposal.KindSplitArea, fmt.Sprintf("Unfold %s into %d instances", node.Name, len(args.Quantities)))
	p.SplitArea = &proposal.SplitAreaPayload{SourceNodeID: node.ID, Quantities: args.Quantities, Names: args.Names}
	return s.submit(p, result)
}

func (s *ChatService) proposeGroupSplit(call ports.ToolCall, result *ChatResult) error {
	var args struct {
		Group       string    `json:"group"`
		Parts       int       `json:"parts"`
		Proportions []float64 `json:"proportions"`
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return err
	}

	grp := s.resolveGroup(args.Group)
	if grp == nil {
		return core.NewNotFoundError("group", args.Group)
	}

	p := proposal.New(proposal.KindSplitGroup, fmt.Sprintf("Split group %s", grp.Name))
	p.SplitGroup = &proposal.SplitGroupPayload{GroupID: grp.ID, Parts: args.Parts, Proportions: args.Proportions}
	return s.submit(p, result)
}

func (s *ChatService) proposeScale(call ports.ToolCall, result *ChatResult) error {
	var args struct {
		Factor float64  `json:"factor"`
		Areas  []string `json:"areas"`
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return err
	}

	var ids []core.NodeID
	for _, ref := range args.Areas {
		node := s.resolveNode(ref)
		if node == nil {
			return core.NewNotFoundError("area", ref)
		}
		ids = append(ids, node.ID)
	}

	label := "all areas"
	if len(ids) > 0 {
		label = fmt.Sprintf("%d areas", len(ids))
	}
	p := proposal.New(proposal.KindScaleAreas, fmt.Sprintf("Scale %s by %.2f", label, args.Factor))
	p.ScaleAreas = &proposal.ScaleAreasPayload{NodeIDs: ids, Factor: args.Factor}
	return s.submit(p, result)
}

func (s *ChatService) submit(p *proposal.Proposal, result *ChatResult) error {
	if err := s.engine.Submit(p); err != nil {
		return err
	}
	result.Proposals = append(result.Proposals, p)
	return nil
}

// Summary renders the current program state compactly for prompts and
// the get_summary tool
func (s *ChatService) Summary() string {
	nodes := s.graph.Nodes()
	if len(nodes) == 0 {
		return "The project is empty."
	}

	var total float64
	flagged := 0
	totals := make([]float64, 0, len(nodes))
	for _, n := range nodes {
		total += n.TotalArea
		totals = append(totals, n.TotalArea)
		if n.NeedsReview {
			flagged++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d areas, %.0f m² total", len(nodes), total)
	if flagged > 0 {
		fmt.Fprintf(&b, ", %d flagged for review", flagged)
	}
	if mean, err := stats.Mean(totals); err == nil {
		if median, err := stats.Median(totals); err == nil {
			fmt.Fprintf(&b, "\nTypical area: %.1f m² mean, %.1f m² median", mean, median)
		}
	}
	for _, grp := range s.graph.Groups() {
		fmt.Fprintf(&b, "\n- %s: %d areas", grp.Name, len(grp.ProgramIDs))
	}
	return b.String()
}

// resolveNode accepts either a node id or a case-insensitive name
func (s *ChatService) resolveNode(ref string) *program.AreaNode {
	if id, err := core.ParseNodeID(ref); err == nil {
		if n, err := s.graph.Node(id); err == nil {
			return n
		}
	}
	return s.findNodeByName(ref)
}

func (s *ChatService) findNodeByName(name string) *program.AreaNode {
	for _, n := range s.graph.Nodes() {
		if strings.EqualFold(n.Name, name) {
			return n
		}
	}
	return nil
}

// resolveGroup accepts either a group id or a group name
func (s *ChatService) resolveGroup(ref string) *program.Group {
	if id, err := core.ParseGroupID(ref); err == nil {
		if grp, err := s.graph.Group(id); err == nil {
			return grp
		}
	}
	return s.graph.FindGroupByName(ref)
}
