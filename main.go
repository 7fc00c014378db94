package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"spaceplan/adapters/llm"
	"spaceplan/adapters/llm/heuristic"
	"spaceplan/ai"
	"spaceplan/app"
	"spaceplan/internal"
	"spaceplan/internal/config"
	"spaceplan/internal/engine"
	"spaceplan/internal/graph"
	"spaceplan/internal/history"
	"spaceplan/ports"
	"spaceplan/ui"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Printf("[Main] No .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] Configuration error: %v", err)
	}

	logger := internal.NewDefaultLogger()
	mainLog := logger.For("Main")
	g := graph.NewWithHistory(history.NewManagerWithLimit(cfg.Brief.HistoryLimit))
	eng := engine.New(g)

	// The collaborator is optional: without a key the server still
	// parses briefs heuristically, it just cannot generate or chat.
	var (
		extractor ports.Extractor
		grouper   ports.Grouper
		planner   ports.ToolPlanner
	)
	if cfg.AI.APIKey != "" {
		client, err := llm.NewClient(llm.Config{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Timeout:     cfg.AI.Timeout,
			Temperature: cfg.AI.Temperature,
		})
		if err != nil {
			log.Fatalf("[Main] LLM client error: %v", err)
		}
		extractor = llm.NewExtractorAdapter(client, &cfg.AI)
		grouper = llm.NewGrouperAdapter(client, &cfg.AI)
		planner = llm.NewPlannerAdapter(client, &cfg.AI, ai.NewCatalog())
	} else {
		mainLog.Warn("OPENAI_API_KEY not set: chat and generation disabled")
	}

	briefs := app.NewBriefService(g, extractor, heuristic.NewExtractor(), logger, cfg.Brief.MaxInputBytes)
	chat := app.NewChatService(planner, grouper, extractor, eng, g, logger)
	projects := app.NewProjectService(g, eng, logger)

	if cfg.Ops.Enabled {
		opsRouter := ui.NewOpsRouter(func() bool { return true }, true)
		go func() {
			mainLog.Info("Ops endpoints on :%s", cfg.Ops.Port)
			if err := http.ListenAndServe(":"+cfg.Ops.Port, opsRouter); err != nil {
				mainLog.Error("Ops server stopped: %v", err)
			}
		}()
	}

	server := ui.NewServer(cfg.Server, briefs, chat, projects, logger)
	if err := server.Run(cfg.Server.Port); err != nil {
		log.Fatalf("[Main] Server stopped: %v", err)
	}
}
