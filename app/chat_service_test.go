package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceplan/domain/brief"
	"spaceplan/domain/program"
	"spaceplan/domain/proposal"
	"spaceplan/internal/engine"
	"spaceplan/internal/graph"
	"spaceplan/ports"
)

type stubPlanner struct {
	plan *ports.Plan
	err  error
}

func (s *stubPlanner) PlanTools(ctx context.Context, message, summary string) (*ports.Plan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.plan, nil
}

type stubGrouper struct {
	groups []brief.RawGroup
}

func (s *stubGrouper) ProposeGroups(ctx context.Context, req ports.GroupingRequest) ([]brief.RawGroup, error) {
	return s.groups, nil
}

func newChatFixture(t *testing.T, plan *ports.Plan) (*ChatService, *graph.Graph, *engine.Engine) {
	t.Helper()
	g := graph.New()
	eng := engine.New(g)
	svc := NewChatService(
		&stubPlanner{plan: plan},
		&stubGrouper{},
		&stubExtractor{ext: &brief.Extraction{Programs: []brief.RawProgram{
			{Name: "Lobby", Area: 80, Count: 1},
		}}},
		eng, g, testLogger(),
	)
	return svc, g, eng
}

func toolCall(name, args string) ports.ToolCall {
	return ports.ToolCall{Name: name, Args: json.RawMessage(args)}
}

func TestHandleMessageRespondOnly(t *testing.T) {
	svc, g, eng := newChatFixture(t, &ports.Plan{
		Calls: []ports.ToolCall{toolCall("respond_to_user", `{"message":"Hello"}`)},
	})

	result, err := svc.HandleMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello", result.Reply)
	assert.Empty(t, result.Proposals)
	assert.Equal(t, 0, g.NodeCount())
	assert.Empty(t, eng.Pending())
}

func TestHandleMessageParseBriefCreatesProposal(t *testing.T) {
	svc, g, eng := newChatFixture(t, &ports.Plan{
		Reply: "Parsed your brief.",
		Calls: []ports.ToolCall{toolCall("parse_brief", `{"text":"Lobby, 80, 1"}`)},
	})

	result, err := svc.HandleMessage(context.Background(), "parse this")
	require.NoError(t, err)
	require.Len(t, result.Proposals, 1)
	assert.Equal(t, proposal.KindCreateAreas, result.Proposals[0].Kind)
	assert.Equal(t, proposal.StatusPending, result.Proposals[0].Status)

	// Nothing touches the graph until the proposal is accepted
	assert.Equal(t, 0, g.NodeCount())

	_, err = eng.Accept(result.Proposals[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, g.NodeCount())
}

func TestHandleMessageUnfoldResolvesName(t *testing.T) {
	svc, g, _ := newChatFixture(t, &ports.Plan{
		Calls: []ports.ToolCall{toolCall("unfold_area", `{"area":"Meeting Room","quantities":[2,2]}`)},
	})
	node, err := g.CreateNode(program.NodeInput{Name: "Meeting Room", AreaPerUnit: 20, Count: 4})
	require.NoError(t, err)

	result, err := svc.HandleMessage(context.Background(), "unfold the meeting rooms")
	require.NoError(t, err)
	require.Len(t, result.Proposals, 1)
	assert.Equal(t, node.ID, result.Proposals[0].SplitArea.SourceNodeID)
}

func TestHandleMessageUnknownAreaReportsFailure(t *testing.T) {
	svc, _, eng := newChatFixture(t, &ports.Plan{
		Reply: "Done.",
		Calls: []ports.ToolCall{toolCall("scale_areas", `{"factor":1.2,"areas":["Ballroom"]}`)},
	})

	result, err := svc.HandleMessage(context.Background(), "scale the ballroom")
	require.NoError(t, err)
	assert.Empty(t, result.Proposals)
	assert.Empty(t, eng.Pending())
	require.Len(t, result.Lookups, 1)
	assert.Contains(t, result.Lookups[0], "scale_areas failed")
}

func TestHandleMessageCancelledContextDiscardsPlan(t *testing.T) {
	svc, _, eng := newChatFixture(t, &ports.Plan{
		Calls: []ports.ToolCall{toolCall("parse_brief", `{"text":"Lobby, 80, 1"}`)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.HandleMessage(ctx, "parse this")
	require.Error(t, err)
	assert.Empty(t, eng.Pending())
}

func TestHandleMessageFindArea(t *testing.T) {
	svc, g, _ := newChatFixture(t, &ports.Plan{
		Calls: []ports.ToolCall{toolCall("find_area", `{"name":"lobby"}`)},
	})
	_, err := g.CreateNode(program.NodeInput{Name: "Lobby", AreaPerUnit: 80, Count: 1})
	require.NoError(t, err)

	result, err := svc.HandleMessage(context.Background(), "how big is the lobby")
	require.NoError(t, err)
	require.Len(t, result.Lookups, 1)
	assert.Contains(t, result.Lookups[0], "Lobby")
	assert.Contains(t, result.Lookups[0], "80.0")
}

func TestSummaryEmptyAndPopulated(t *testing.T) {
	svc, g, _ := newChatFixture(t, &ports.Plan{})
	assert.Equal(t, "The project is empty.", svc.Summary())

	_, err := g.CreateNode(program.NodeInput{Name: "Lobby", AreaPerUnit: 80, Count: 1})
	require.NoError(t, err)
	assert.Contains(t, svc.Summary(), "1 areas")
	assert.Contains(t, svc.Summary(), "80.0 m² mean")
}
