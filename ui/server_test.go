package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spaceplan/app"
	"spaceplan/domain/brief"
	"spaceplan/internal"
	"spaceplan/internal/config"
	"spaceplan/internal/engine"
	"spaceplan/internal/graph"
	"spaceplan/ports"
)

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, text string, cls brief.Classification) (*brief.Extraction, error) {
	return &brief.Extraction{Programs: []brief.RawProgram{
		{Name: "Lobby", Area: 80, Count: 1, GroupHint: "Public"},
		{Name: "Open Office", Area: 6, Count: 40, GroupHint: "Work"},
	}}, nil
}

type stubPlanner struct{}

func (stubPlanner) PlanTools(ctx context.Context, message, summary string) (*ports.Plan, error) {
	return &ports.Plan{
		Reply: "Parsed it.",
		Calls: []ports.ToolCall{{Name: "parse_brief", Args: json.RawMessage(`{"text":"Lobby, 80, 1"}`)}},
	}, nil
}

type stubGrouper struct{}

func (stubGrouper) ProposeGroups(ctx context.Context, req ports.GroupingRequest) ([]brief.RawGroup, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *graph.Graph) {
	t.Helper()
	logger := internal.NewLogger(internal.LogLevelError)
	g := graph.New()
	eng := engine.New(g)
	briefs := app.NewBriefService(g, stubExtractor{}, stubExtractor{}, logger, 0)
	chat := app.NewChatService(stubPlanner{}, stubGrouper{}, stubExtractor{}, eng, g, logger)
	projects := app.NewProjectService(g, eng, logger)
	return NewServer(config.ServerConfig{GinMode: "test"}, briefs, chat, projects, logger), g
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestParseBriefEndpoint(t *testing.T) {
	s, g := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/brief/parse", gin.H{"inputs": []string{"Lobby, 80, 1\nOpen Office, 6, 40"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, g.NodeCount())
}

func TestNodeLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/nodes", gin.H{"name": "Lobby", "area_per_unit": 80, "count": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var node struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &node))

	w = doJSON(t, s, http.MethodPatch, "/api/nodes/"+node.ID, gin.H{"area_per_unit": 100})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total_area":100`)

	w = doJSON(t, s, http.MethodDelete, "/api/nodes/"+node.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, s, http.MethodDelete, "/api/nodes/"+node.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidationErrorsMapTo400(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/nodes", gin.H{"name": "Lobby", "area_per_unit": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	s, g := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/nodes", gin.H{"name": "Lobby", "area_per_unit": 80, "count": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	export := doJSON(t, s, http.MethodGet, "/api/project/export", nil)
	require.Equal(t, http.StatusOK, export.Code)

	// Wipe and restore
	s2, g2 := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/project/import", bytes.NewReader(export.Body.Bytes()))
	w2 := httptest.NewRecorder()
	s2.Handler().ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())
	assert.Equal(t, g.NodeCount(), g2.NodeCount())
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/project/import", bytes.NewReader([]byte(`{"schema_version":99}`)))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUndoEndpoint(t *testing.T) {
	s, g := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/nodes", gin.H{"name": "Lobby", "area_per_unit": 80, "count": 1})
	require.Equal(t, 1, g.NodeCount())

	w := doJSON(t, s, http.MethodPost, "/api/undo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, g.NodeCount())

	w = doJSON(t, s, http.MethodPost, "/api/redo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, g.NodeCount())
}

func TestChatProposalAcceptFlow(t *testing.T) {
	s, g := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/chat", gin.H{"message": "parse this brief"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var chat struct {
		Proposals []struct {
			ID string `json:"id"`
		} `json:"proposals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chat))
	require.Len(t, chat.Proposals, 1)
	assert.Equal(t, 0, g.NodeCount())

	accept := fmt.Sprintf("/api/proposals/%s/accept", chat.Proposals[0].ID)
	w = doJSON(t, s, http.MethodPost, accept, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"applied":true`)
	assert.Equal(t, 2, g.NodeCount())

	// Second accept is a no-op, not an error
	w = doJSON(t, s, http.MethodPost, accept, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"applied":false`)
	assert.Equal(t, 2, g.NodeCount())
}

func TestOpsRouter(t *testing.T) {
	ready := false
	h := NewOpsRouter(func() bool { return ready }, false)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
