package dbtools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/mcputil"
	"github.com/HendryAvila/roobridge/internal/ruledb"
	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── ApplyTool ──────────────────────────────────────────────────────────────

// ApplyTool handles the apply_rules_db MCP tool.
type ApplyTool struct {
	tier *ruledb.Tier
}

// NewApplyTool creates an ApplyTool writing through a tier over store.
func NewApplyTool(store *ruledb.Store) *ApplyTool {
	return &ApplyTool{tier: ruledb.NewTier(store)}
}

// Definition returns the MCP tool definition for apply_rules_db.
func (t *ApplyTool) Definition() mcp.Tool {
	return mcp.NewTool("apply_rules_db",
		mcp.WithDescription(
			"Store rules in the rule database. A rule with the same rule_name, scope and language "+
				"replaces the stored one. This is the target of analyze_file results.",
		),
		mcp.WithArray("rules",
			mcp.Required(),
			mcp.Description("Rule objects with rule_name, description, scope, language, rule_content, categories"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	)
}

// Handle processes the apply_rules_db tool call.
func (t *ApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := mcputil.RuleItems(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcputil.ApplyEach(ctx, t.tier, items), nil
}

// ─── UpdateTool ─────────────────────────────────────────────────────────────

// UpdateTool handles the update_rule_db MCP tool.
type UpdateTool struct {
	store *ruledb.Store
}

// NewUpdateTool creates an UpdateTool with the given rule database.
func NewUpdateTool(store *ruledb.Store) *UpdateTool {
	return &UpdateTool{store: store}
}

// Definition returns the MCP tool definition for update_rule_db.
func (t *UpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("update_rule_db",
		mcp.WithDescription(
			"Update a stored rule by id. Only provided fields are changed; the result is validated like a new rule.",
		),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Rule id to update"),
		),
		mcp.WithString("rule_name",
			mcp.Description("New rule name"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("scope",
			mcp.Description("New scope: global, workspace or mode-<name>"),
		),
		mcp.WithString("language",
			mcp.Description("New language tag, or a comma-separated list of tags"),
		),
		mcp.WithObject("rule_content",
			mcp.Description("Replacement rule content (non-empty object)"),
		),
		mcp.WithArray("categories",
			mcp.Description("Replacement category list"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the update_rule_db tool call.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcputil.IntArg(req, "id", 0)
	if id == 0 {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	params := ruledb.UpdateParams{}
	if v := req.GetString("rule_name", ""); v != "" {
		params.Name = &v
	}
	if v := req.GetString("description", ""); v != "" {
		params.Description = &v
	}
	if v := req.GetString("scope", ""); v != "" {
		params.Scope = &v
	}
	if v := req.GetString("language", ""); v != "" {
		lang := rules.Lang(splitTags(v)...)
		params.Language = &lang
	}
	args := req.GetArguments()
	if raw, ok := args["rule_content"]; ok && raw != nil {
		if err := mcputil.DecodeArg(raw, &params.Content); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("'rule_content' must be an object: %v", err)), nil
		}
	}
	if raw, ok := args["categories"]; ok && raw != nil {
		var cats []string
		if err := mcputil.DecodeArg(raw, &cats); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("'categories' must be an array of strings: %v", err)), nil
		}
		params.Categories = &cats
	}

	if params.IsEmpty() {
		return mcp.NewToolResultError("at least one field to update is required"), nil
	}

	rec, err := t.store.Update(ctx, int64(id), params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update rule: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Rule %d updated: %q (%s)", rec.ID, rec.Name, rec.Bucket())), nil
}

// ─── DeleteTool ─────────────────────────────────────────────────────────────

// DeleteTool handles the delete_rule_db MCP tool.
type DeleteTool struct {
	store *ruledb.Store
}

// NewDeleteTool creates a DeleteTool with the given rule database.
func NewDeleteTool(store *ruledb.Store) *DeleteTool {
	return &DeleteTool{store: store}
}

// Definition returns the MCP tool definition for delete_rule_db.
func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_rule_db",
		mcp.WithDescription(
			"Delete rules from the rule database, either one row by id or every row with a given rule_name.",
		),
		mcp.WithNumber("id",
			mcp.Description("Rule id to delete"),
		),
		mcp.WithString("rule_name",
			mcp.Description("Delete every row with this name (used when id is not given)"),
		),
	)
}

// Handle processes the delete_rule_db tool call.
func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := mcputil.IntArg(req, "id", 0); id != 0 {
		if err := t.store.DeleteByID(ctx, int64(id)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete rule %d: %v", id, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Rule %d deleted", id)), nil
	}

	name := req.GetString("rule_name", "")
	if name == "" {
		return mcp.NewToolResultError("either 'id' or 'rule_name' is required"), nil
	}
	n, err := t.store.DeleteByName(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete rule '%s': %v", name, err)), nil
	}
	if n == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Rule '%s' not found in database", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %d row(s) named '%s'", n, name)), nil
}
