package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSearchIndexTool returns the search_index tool definition
func createSearchIndexTool() mcp.Tool {
	return mcp.NewTool("search_index",
		mcp.WithDescription("Search the document index with semantic hybrid search. Passages below the reranker threshold are dropped."),
		mcp.WithArray("queries",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("One or more search terms, searched concurrently"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum passages per query (default: retrieval.single_pass_top, max: 50)"),
		),
	)
}

// createResearchTool returns the research tool definition
func createResearchTool() mcp.Tool {
	return mcp.NewTool("research",
		mcp.WithDescription("Answer a question from the document index with a research agent and an answer agent"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
		mcp.WithString("mode",
			mcp.Description("single_pass (one search then answer) or iterative (breadth search, draft, depth search, revision)"),
			mcp.Enum("single_pass", "iterative"),
		),
	)
}

// createListStartersTool returns the list_starters tool definition
func createListStartersTool() mcp.Tool {
	return mcp.NewTool("list_starters",
		mcp.WithDescription("List suggested opening questions"),
	)
}
