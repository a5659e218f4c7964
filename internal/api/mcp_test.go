package api

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ShouryaDesai135/VeriFind/internal/claims"
	"github.com/ShouryaDesai135/VeriFind/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (Deps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return Deps{
		Store:    store,
		Verifier: claims.NewVerifier(store),
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func seedFoundItem(t *testing.T, store *storage.Store, id, ownerID, answer string) {
	t.Helper()
	hash, err := claims.HashAnswer(answer)
	if err != nil {
		t.Fatalf("hashing answer: %v", err)
	}
	err = store.SaveItem(storage.Item{
		ID:             id,
		Kind:           storage.KindFound,
		Status:         storage.StatusAvailable,
		Title:          "Black umbrella",
		OwnerID:        ownerID,
		SecretQuestion: "What is on the handle?",
		SecretHash:     hash,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("saving item: %v", err)
	}
}

// --- tests ---

func TestMCPTool_ReportItem(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpReportItem(deps)

	req := makeCallToolRequest("report_item", map[string]interface{}{
		"kind":        "lost",
		"title":       "Red backpack",
		"owner_id":    "user-1",
		"description": "Lost near the library",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	items, err := store.ListItems(storage.KindLost, "", 10, 0)
	if err != nil {
		t.Fatalf("listing items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Red backpack" {
		t.Fatalf("unexpected title: %s", items[0].Title)
	}
	if !strings.Contains(toolText(t, result), items[0].ID) {
		t.Fatalf("expected item id in response, got: %s", toolText(t, result))
	}
}

func TestMCPTool_ReportItem_MissingRequired(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpReportItem(deps)

	req := makeCallToolRequest("report_item", map[string]interface{}{
		"kind": "lost",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing title")
	}
}

func TestMCPTool_ReportItem_FoundRequiresSecret(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpReportItem(deps)

	req := makeCallToolRequest("report_item", map[string]interface{}{
		"kind":     "found",
		"title":    "Wallet",
		"owner_id": "finder-1",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for found item without secret challenge")
	}
}

func TestMCPTool_SearchItems_EmptyResult(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSearchItems(deps)

	req := makeCallToolRequest("search_items", map[string]interface{}{
		"kind": "lost",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if text := toolText(t, result); text != "[]" {
		t.Fatalf("expected empty array, got: %s", text)
	}
}

func TestMCPTool_SearchItems(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	seedFoundItem(t, store, "item-1", "finder-1", "a carved owl")
	handler := mcpSearchItems(deps)

	req := makeCallToolRequest("search_items", map[string]interface{}{
		"kind":   "found",
		"status": "available",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var items []storage.Item
	if err := json.Unmarshal([]byte(toolText(t, result)), &items); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].SecretHash != "" || items[0].CodeHash != "" {
		t.Fatal("hashes must never serialize into tool output")
	}
}

func TestMCPTool_ListMatches_Empty(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpListMatches(deps)

	req := makeCallToolRequest("list_matches", map[string]interface{}{
		"user_id": "user-1",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if text := toolText(t, result); text != "[]" {
		t.Fatalf("expected empty array, got: %s", text)
	}
}

func TestMCPTool_ClaimItem(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	seedFoundItem(t, store, "item-1", "finder-1", "a carved owl")
	handler := mcpClaimItem(deps)

	req := makeCallToolRequest("claim_item", map[string]interface{}{
		"item_id":     "item-1",
		"claimant_id": "owner-1",
		"response":    "A Carved Owl",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var res claims.Result
	if err := json.Unmarshal([]byte(toolText(t, result)), &res); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !res.Accepted {
		t.Fatal("expected claim to be accepted")
	}
	if !regexp.MustCompile(`^\d{6}$`).MatchString(res.Code) {
		t.Fatalf("expected 6-digit code, got %q", res.Code)
	}

	item, err := store.GetItem("item-1")
	if err != nil {
		t.Fatalf("getting item: %v", err)
	}
	if item.Status != storage.StatusClaimed {
		t.Fatalf("expected status claimed, got %q", item.Status)
	}
}

func TestMCPTool_ClaimItem_WrongAnswer(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	seedFoundItem(t, store, "item-1", "finder-1", "a carved owl")
	handler := mcpClaimItem(deps)

	req := makeCallToolRequest("claim_item", map[string]interface{}{
		"item_id":     "item-1",
		"claimant_id": "owner-1",
		"response":    "a rubber duck",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var res claims.Result
	if err := json.Unmarshal([]byte(toolText(t, result)), &res); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if res.Accepted {
		t.Fatal("expected wrong answer to be rejected")
	}
}

func TestMCPTool_ClaimItem_NotFound(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpClaimItem(deps)

	req := makeCallToolRequest("claim_item", map[string]interface{}{
		"item_id":     "no-such-item",
		"claimant_id": "owner-1",
		"response":    "anything",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing item")
	}
}
