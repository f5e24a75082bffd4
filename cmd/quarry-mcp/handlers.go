package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/retrieval"
	"github.com/ternarybob/quarry/internal/services/transcript"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleSearchIndex implements the search_index tool
func handleSearchIndex(service *retrieval.Service, limits common.RetrievalConfig, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queries := request.GetStringSlice("queries", nil)
		if len(queries) == 0 {
			return textResult("Error: queries parameter is required"), nil
		}

		limit := request.GetInt("limit", limits.SinglePassTop)
		if limit < 1 {
			limit = limits.SinglePassTop
		}
		if limit > 50 {
			limit = 50
		}

		cache := retrieval.NewFigureCache()
		rs, err := service.Retrieve(ctx, queries, limit, cache)
		if err != nil {
			logger.Error().Err(err).Strs("queries", queries).Msg("Search failed")
			return textResult(fmt.Sprintf("Search error: %v", err)), nil
		}

		return textResult(formatResultSet(queries, rs, cache)), nil
	}
}

// handleResearch implements the research tool
func handleResearch(research interfaces.ResearchService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return textResult("Error: query parameter is required"), nil
		}
		req := interfaces.ResearchRequest{
			Query: query,
			Mode:  models.Mode(request.GetString("mode", "")),
		}

		renderer := transcript.NewRenderer(req.Mode, query)
		emit := func(event models.Event) error {
			renderer.Apply(event)
			return nil
		}

		result, err := research.Research(ctx, req, emit)
		if result == nil {
			logger.Error().Err(err).Msg("Research failed")
			return textResult(fmt.Sprintf("Research error: %v", err)), nil
		}

		return textResult(formatResearch(result, renderer.Transcript(), err)), nil
	}
}

// handleListStarters implements the list_starters tool
func handleListStarters(research interfaces.ResearchService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var sb strings.Builder
		for _, starter := range research.Starters() {
			sb.WriteString("- ")
			sb.WriteString(starter)
			sb.WriteString("\n")
		}
		return textResult(sb.String()), nil
	}
}
