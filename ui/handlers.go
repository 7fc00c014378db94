package ui

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"spaceplan/domain/core"
	"spaceplan/domain/program"
	apperrors "spaceplan/internal/errors"
	"spaceplan/internal/graph"
)

// writeError maps domain errors onto HTTP status codes. Infrastructure
// errors additionally carry their stable code so clients can branch
// without parsing messages.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsNotFoundError(err):
		status = http.StatusNotFound
	case core.IsValidationError(err), errors.Is(err, core.ErrUnknownSchemaVersion):
		status = http.StatusBadRequest
	case core.IsStaleReferenceError(err):
		status = http.StatusConflict
	case core.IsCollaboratorError(err):
		status = http.StatusBadGateway
	}
	body := gin.H{"error": err.Error()}
	if code := apperrors.GetCode(err); code != "" {
		body["code"] = code
	}
	c.JSON(status, body)
}

func (s *Server) handleParseBrief(c *gin.Context) {
	var req struct {
		Inputs []string `json:"inputs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.briefs.Ingest(c.Request.Context(), req.Inputs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleClassify(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.briefs.Classify(req.Text))
}

func (s *Server) handleGetProject(c *gin.Context) {
	g := s.projects.Graph()
	c.JSON(http.StatusOK, gin.H{
		"summary": s.projects.Summarize(),
		"nodes":   g.Nodes(),
		"groups":  g.Groups(),
	})
}

func (s *Server) handleExport(c *gin.Context) {
	data, err := s.projects.Export()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleImport(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.projects.Import(data); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.projects.Summarize())
}

func (s *Server) handleCreateNode(c *gin.Context) {
	var input program.NodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	node, err := s.projects.CreateNode(input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (s *Server) handleUpdateNode(c *gin.Context) {
	id, err := core.ParseNodeID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var changes program.NodeChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.projects.UpdateNode(id, changes); err != nil {
		writeError(c, err)
		return
	}
	node, err := s.projects.Graph().Node(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (s *Server) handleDeleteNode(c *gin.Context) {
	id, err := core.ParseNodeID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.projects.DeleteNode(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSplitNode(c *gin.Context) {
	id, err := core.ParseNodeID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req struct {
		Quantities []int    `json:"quantities" binding:"required"`
		Names      []string `json:"names"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	parts, err := s.projects.Graph().SplitNodeByQuantity(id, req.Quantities, req.Names)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, parts)
}

func (s *Server) handleLockField(c *gin.Context) {
	id, err := core.ParseNodeID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req struct {
		Field  string `json:"field" binding:"required"`
		Locked *bool  `json:"locked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g := s.projects.Graph()
	if req.Locked != nil && !*req.Locked {
		err = g.UnlockField(id, req.Field)
	} else {
		err = g.LockField(id, req.Field)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMergeNodes(c *gin.Context) {
	var req struct {
		NodeIDs []core.NodeID `json:"node_ids" binding:"required"`
		Name    string        `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	merged, err := s.projects.Graph().MergeNodes(req.NodeIDs, graph.MergeSpec{Name: req.Name})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, merged)
}

func (s *Server) handleCreateGroup(c *gin.Context) {
	var input program.GroupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	grp, err := s.projects.Graph().CreateGroup(input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grp)
}

func (s *Server) handleDeleteGroup(c *gin.Context) {
	id, err := core.ParseGroupID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.projects.Graph().DeleteGroup(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAssignToGroup(c *gin.Context) {
	id, err := core.ParseGroupID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req struct {
		NodeIDs []core.NodeID `json:"node_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.projects.Graph().AssignToGroup(id, req.NodeIDs); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSplitGroup(c *gin.Context) {
	id, err := core.ParseGroupID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req struct {
		Parts       int       `json:"parts"`
		Proportions []float64 `json:"proportions"`
		NameSuffix  string    `json:"name_suffix"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g := s.projects.Graph()
	var groups []*program.Group
	if len(req.Proportions) > 0 {
		groups, err = g.SplitGroupByProportion(id, req.Proportions)
	} else {
		groups, err = g.SplitGroupEqual(id, req.Parts, req.NameSuffix)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (s *Server) handleMergeGroupAreas(c *gin.Context) {
	id, err := core.ParseGroupID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	merged, err := s.projects.Graph().MergeGroupAreas(id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, merged)
}

func (s *Server) handleUndo(c *gin.Context) {
	label, ok := s.projects.Undo()
	c.JSON(http.StatusOK, gin.H{"undone": ok, "label": label})
}

func (s *Server) handleRedo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"redone": s.projects.Redo()})
}

func (s *Server) handleChat(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.chat.HandleMessage(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListProposals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"proposals": s.projects.Engine().All()})
}

func (s *Server) handleAcceptProposal(c *gin.Context) {
	id, err := core.ParseProposalID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.projects.Engine().Accept(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if result == nil {
		// Already terminal: repeated accepts are a quiet no-op
		c.JSON(http.StatusOK, gin.H{"applied": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true, "result": result})
}

func (s *Server) handleRejectProposal(c *gin.Context) {
	id, err := core.ParseProposalID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req) // body optional
	if err := s.projects.Engine().Reject(id, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
