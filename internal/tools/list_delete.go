package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/mcputil"
	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/HendryAvila/roobridge/internal/rulestore"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListRulesTool handles the list_rules MCP tool.
type ListRulesTool struct {
	store rulestore.Store
}

// NewListRulesTool creates a ListRulesTool.
func NewListRulesTool(store rulestore.Store) *ListRulesTool {
	return &ListRulesTool{store: store}
}

// Definition returns the MCP tool definition for list_rules.
func (t *ListRulesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_rules",
		mcp.WithDescription(
			"List the rules of the .roo rule tree (global, workspace and mode scopes). "+
				"Optionally filter by scope and language.",
		),
		mcp.WithString("scope",
			mcp.Description("Only rules with this scope, e.g. 'workspace' or 'mode-architect'"),
		),
		mcp.WithString("language",
			mcp.Description("Only rules targeting this language tag, e.g. 'js'"),
		),
	)
}

// Handle processes the list_rules tool call.
func (t *ListRulesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := rules.Filter{
		Scope:    req.GetString("scope", ""),
		Language: req.GetString("language", ""),
	}
	listed, err := t.store.List(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing rules: %v", err)), nil
	}
	if listed == nil {
		listed = []rules.Rule{}
	}
	return mcputil.JSONResult(listed)
}

// DeleteRuleTool handles the delete_rule MCP tool.
type DeleteRuleTool struct {
	store rulestore.Store
}

// NewDeleteRuleTool creates a DeleteRuleTool.
func NewDeleteRuleTool(store rulestore.Store) *DeleteRuleTool {
	return &DeleteRuleTool{store: store}
}

// Definition returns the MCP tool definition for delete_rule.
func (t *DeleteRuleTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_rule",
		mcp.WithDescription(
			"Delete a rule by name. Searches workspace, global, then every registered mode "+
				"and removes the first match. A missing rule is reported, not treated as an error.",
		),
		mcp.WithString("rule_name",
			mcp.Required(),
			mcp.Description("Name of the rule to delete"),
		),
		mcp.WithString("language",
			mcp.Description("Only look in this language subfolder (default: general rules)"),
		),
	)
}

// Handle processes the delete_rule tool call.
func (t *DeleteRuleTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("rule_name", "")
	if name == "" {
		return mcp.NewToolResultError("'rule_name' is required"), nil
	}

	res, err := t.store.Delete(ctx, name, req.GetString("language", ""))
	if err != nil {
		if errors.Is(err, rules.ErrDeleteFailed) {
			return mcp.NewToolResultError(fmt.Sprintf("Found rule '%s' but could not delete it: %v", name, err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Error deleting rule: %v", err)), nil
	}
	return mcp.NewToolResultText(res.Message()), nil
}
