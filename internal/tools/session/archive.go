package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jaakkos/loomwork/internal/app"
	"github.com/jaakkos/loomwork/internal/archive"
)

// registerArchiveDocument registers the archive_document tool.
func registerArchiveDocument(add addFunc, store *app.SessionStore, arch *archive.Store, logger *log.Logger) {
	add(
		mcp.NewTool("archive_document",
			mcp.WithDescription("Save a free-text artifact (design writeup, review notes, delegation transcript) to the searchable archive. Archived documents survive session teardown."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Short document title")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Document body")),
			mcp.WithString("category", mcp.Description("Document category (default: note)"), mcp.Enum("design", "review", "delegation", "note")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			title, err := requireString(args, "title")
			if err != nil {
				return nil, err
			}
			content, err := requireString(args, "content")
			if err != nil {
				return nil, err
			}
			category := optionalString(args, "category", "note")

			session := store.Snapshot()
			if session == nil {
				return nil, fmt.Errorf("no active session")
			}
			id, err := arch.Save(session.Phase, category, title, content)
			if err != nil {
				return nil, fmt.Errorf("archive document: %w", err)
			}
			logger.Printf("archived document #%d (%s): %s", id, category, title)
			return mcp.NewToolResultText(fmt.Sprintf("Archived document #%d: %s", id, title)), nil
		},
	)
}

// registerSearchArchive registers the search_archive tool.
func registerSearchArchive(add addFunc, arch *archive.Store, logger *log.Logger) {
	add(
		mcp.NewTool("search_archive",
			mcp.WithDescription("Full-text search over archived documents. Returns ranked snippets."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Natural language search query")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default: 10, max: 50)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			query, err := requireString(args, "query")
			if err != nil {
				return nil, err
			}
			limit := optionalInt(args, "limit", 10, 1, 50)

			results, err := arch.Search(query, limit)
			if err != nil {
				logger.Printf("search_archive error: %v", err)
				return nil, fmt.Errorf("archive search failed: %w", err)
			}
			if len(results) == 0 {
				return mcp.NewToolResultText("No results found for: " + query), nil
			}

			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("marshal results: %w", err)
			}
			logger.Printf("search_archive: %q returned %d results", query, len(results))
			return mcp.NewToolResultText(string(data)), nil
		},
	)
}
