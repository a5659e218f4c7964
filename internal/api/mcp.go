package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

// NewMCPServer creates an MCP server exposing the lost & found operations as
// tools, so assistant integrations can drive the same core services as the
// REST API.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"verifind",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("VeriFind is a community lost & found service. Report items, search reports, review proposed matches, and verify ownership claims."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("report_item",
			mcp.WithDescription("Report a lost or found item. Found items require a secret question and answer that the true owner must later answer to claim."),
			mcp.WithString("kind", mcp.Description("Either \"lost\" or \"found\""), mcp.Required()),
			mcp.WithString("title", mcp.Description("Short item title"), mcp.Required()),
			mcp.WithString("owner_id", mcp.Description("Identity of the reporting user"), mcp.Required()),
			mcp.WithString("description", mcp.Description("Free-text description")),
			mcp.WithString("location", mcp.Description("Where the item was lost or found")),
			mcp.WithString("category", mcp.Description("Item category, e.g. electronics, keys, clothing")),
			mcp.WithString("secret_question", mcp.Description("Ownership challenge (found items only)")),
			mcp.WithString("secret_answer", mcp.Description("Expected challenge answer (found items only)")),
		),
		mcpReportItem(deps),
	)

	s.AddTool(
		mcp.NewTool("search_items",
			mcp.WithDescription("List lost & found reports, optionally filtered by kind and status."),
			mcp.WithString("kind", mcp.Description("Filter: \"lost\" or \"found\"")),
			mcp.WithString("status", mcp.Description("Filter: \"available\", \"claimed\", or \"resolved\"")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpSearchItems(deps),
	)

	s.AddTool(
		mcp.NewTool("list_matches",
			mcp.WithDescription("List proposed lost/found matches touching a user's own postings."),
			mcp.WithString("user_id", mcp.Description("Identity of the user"), mcp.Required()),
		),
		mcpListMatches(deps),
	)

	s.AddTool(
		mcp.NewTool("claim_item",
			mcp.WithDescription("Answer a found item's secret challenge to claim it. On success returns a one-time handover code."),
			mcp.WithString("item_id", mcp.Description("Item to claim"), mcp.Required()),
			mcp.WithString("claimant_id", mcp.Description("Identity of the claimant"), mcp.Required()),
			mcp.WithString("response", mcp.Description("Answer to the item's secret question"), mcp.Required()),
		),
		mcpClaimItem(deps),
	)

	return s
}

func mcpReportItem(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := req.RequireString("kind")
		if err != nil {
			return mcpError("kind is required"), nil
		}
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}
		ownerID, err := req.RequireString("owner_id")
		if err != nil {
			return mcpError("owner_id is required"), nil
		}

		id, err := createItem(deps, CreateItemRequest{
			Kind:           kind,
			Title:          title,
			OwnerID:        ownerID,
			Description:    req.GetString("description", ""),
			Location:       req.GetString("location", ""),
			Category:       req.GetString("category", ""),
			SecretQuestion: req.GetString("secret_question", ""),
			SecretAnswer:   req.GetString("secret_answer", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to report item: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Reported %s item %s; matching runs in the background", kind, id)), nil
	}
}

func mcpSearchItems(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind := req.GetString("kind", "")
		status := req.GetString("status", "")
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		items, err := deps.Store.ListItems(kind, status, limit, 0)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if items == nil {
			items = []storage.Item{}
		}

		return mcpJSON(items)
	}
}

func mcpListMatches(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		matches, err := deps.Store.ListMatchesForUser(userID, 50)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list matches: %v", err)), nil
		}
		if matches == nil {
			matches = []storage.Match{}
		}

		return mcpJSON(matches)
	}
}

func mcpClaimItem(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		itemID, err := req.RequireString("item_id")
		if err != nil {
			return mcpError("item_id is required"), nil
		}
		claimantID, err := req.RequireString("claimant_id")
		if err != nil {
			return mcpError("claimant_id is required"), nil
		}
		response, err := req.RequireString("response")
		if err != nil {
			return mcpError("response is required"), nil
		}

		res, err := deps.Verifier.VerifyClaim(ctx, itemID, claimantID, response)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				return mcpError("item not found"), nil
			case errors.Is(err, storage.ErrConflict):
				return mcpError("item is no longer available"), nil
			default:
				return mcpError(fmt.Sprintf("claim rejected: %v", err)), nil
			}
		}

		return mcpJSON(res)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
