package dbtools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/mcputil"
	"github.com/HendryAvila/roobridge/internal/ruledb"
	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── ListTool ───────────────────────────────────────────────────────────────

// ListTool handles the list_rules_db MCP tool.
type ListTool struct {
	store *ruledb.Store
}

// NewListTool creates a ListTool with the given rule database.
func NewListTool(store *ruledb.Store) *ListTool {
	return &ListTool{store: store}
}

// Definition returns the MCP tool definition for list_rules_db.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("list_rules_db",
		mcp.WithDescription(
			"List rules stored in the rule database. Use level to control detail: "+
				"'1' name and description, '2' adds scope and language, '3' the full rule (default). "+
				"Start at level 1 and drill down only where needed.",
		),
		mcp.WithString("level",
			mcp.Description("Detail level: 1, 2 or 3 (default: 3)"),
			mcp.Enum(rules.LevelValues()...),
		),
		mcp.WithString("scope",
			mcp.Description("Only rules with this scope"),
		),
		mcp.WithString("language",
			mcp.Description("Only rules targeting this language tag"),
		),
		mcp.WithBoolean("with_ids",
			mcp.Description("Include row ids, needed by get_rule_db, update_rule_db and delete_rule_db"),
		),
	)
}

// Handle processes the list_rules_db tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := t.store.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list rules: %v", err)), nil
	}

	filter := rules.Filter{
		Scope:    req.GetString("scope", ""),
		Language: req.GetString("language", ""),
	}
	level := rules.ParseLevel(levelArg(req))
	withIDs := mcputil.BoolArg(req, "with_ids", false)

	views := make([]rules.View, 0, len(recs))
	for _, rec := range recs {
		if !filter.Match(rec.Rule) {
			continue
		}
		v := rules.Project(rec.Rule, level)
		if withIDs {
			v.ID = rec.ID
		}
		views = append(views, v)
	}
	return mcputil.JSONResult(views)
}

// ─── GetTool ────────────────────────────────────────────────────────────────

// GetTool handles the get_rule_db MCP tool.
type GetTool struct {
	store *ruledb.Store
}

// NewGetTool creates a GetTool with the given rule database.
func NewGetTool(store *ruledb.Store) *GetTool {
	return &GetTool{store: store}
}

// Definition returns the MCP tool definition for get_rule_db.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("get_rule_db",
		mcp.WithDescription("Get one rule from the rule database by id, with its timestamps."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Rule id from list_rules_db with_ids=true"),
		),
	)
}

// Handle processes the get_rule_db tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcputil.IntArg(req, "id", 0)
	if id == 0 {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	rec, err := t.store.Get(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get rule %d: %v", id, err)), nil
	}
	return mcputil.JSONResult(rec)
}
