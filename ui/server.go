// Package ui exposes the project surface over HTTP: a JSON API for
// project operations and a separate ops router for health and pprof.
package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spaceplan/app"
	"spaceplan/internal"
	"spaceplan/internal/config"
)

// Server is the JSON API over the application services
type Server struct {
	router   *gin.Engine
	briefs   *app.BriefService
	chat     *app.ChatService
	projects *app.ProjectService
	logger   *internal.Logger
}

// NewServer creates the API server and registers its routes
func NewServer(cfg config.ServerConfig, briefs *app.BriefService, chat *app.ChatService, projects *app.ProjectService, logger *internal.Logger) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	s := &Server{
		router:   gin.New(),
		briefs:   briefs,
		chat:     chat,
		projects: projects,
		logger:   logger.For("Server"),
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	api.POST("/brief/parse", s.handleParseBrief)
	api.POST("/brief/classify", s.handleClassify)

	api.GET("/project", s.handleGetProject)
	api.GET("/project/export", s.handleExport)
	api.POST("/project/import", s.handleImport)

	api.POST("/nodes", s.handleCreateNode)
	api.PATCH("/nodes/:id", s.handleUpdateNode)
	api.DELETE("/nodes/:id", s.handleDeleteNode)
	api.POST("/nodes/:id/split", s.handleSplitNode)
	api.POST("/nodes/:id/lock", s.handleLockField)
	api.POST("/nodes/merge", s.handleMergeNodes)

	api.POST("/groups", s.handleCreateGroup)
	api.DELETE("/groups/:id", s.handleDeleteGroup)
	api.POST("/groups/:id/assign", s.handleAssignToGroup)
	api.POST("/groups/:id/split", s.handleSplitGroup)
	api.POST("/groups/:id/merge-areas", s.handleMergeGroupAreas)

	api.POST("/undo", s.handleUndo)
	api.POST("/redo", s.handleRedo)

	api.POST("/chat", s.handleChat)
	api.GET("/proposals", s.handleListProposals)
	api.POST("/proposals/:id/accept", s.handleAcceptProposal)
	api.POST("/proposals/:id/reject", s.handleRejectProposal)
}

// Handler exposes the router for serving and for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server on the configured port
func (s *Server) Run(port string) error {
	s.logger.Info("Listening on :%s", port)
	return s.router.Run(":" + port)
}
