package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/quarry/internal/app"
	"github.com/ternarybob/quarry/internal/common"
)

func main() {
	configPath := os.Getenv("QUARRY_CONFIG")
	if configPath == "" {
		configPath = "quarry.toml"
	}

	var paths []string
	if _, err := os.Stat(configPath); err == nil {
		paths = append(paths, configPath)
	}
	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs go to the file only
	config.Logging.Output = []string{"file"}
	logger := common.InitLogger(config)

	config.Metrics.Enabled = false
	application, err := app.New(context.Background(), config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	mcpServer := server.NewMCPServer(
		"quarry",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createSearchIndexTool(), handleSearchIndex(application.RetrievalService, config.Retrieval, logger))
	mcpServer.AddTool(createResearchTool(), handleResearch(application.ChatService, logger))
	mcpServer.AddTool(createListStartersTool(), handleListStarters(application.ChatService))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
