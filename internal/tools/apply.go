package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/mcputil"
	"github.com/HendryAvila/roobridge/internal/rulestore"
	"github.com/mark3labs/mcp-go/mcp"
)

// ApplyRuleTool handles the apply_rule MCP tool.
type ApplyRuleTool struct {
	store rulestore.Store
}

// NewApplyRuleTool creates an ApplyRuleTool.
func NewApplyRuleTool(store rulestore.Store) *ApplyRuleTool {
	return &ApplyRuleTool{store: store}
}

// Definition returns the MCP tool definition for apply_rule.
func (t *ApplyRuleTool) Definition() mcp.Tool {
	return mcp.NewTool("apply_rule",
		mcp.WithDescription(
			"Create or replace one coding rule in the .roo rule tree. "+
				"A rule with the same rule_name in the same scope and language is replaced.",
		),
		mcp.WithString("rule_name",
			mcp.Required(),
			mcp.Description("Rule identifier, also used as the file name (e.g. 'no-console-log')"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("One line stating the intent of the rule"),
		),
		mcp.WithString("scope",
			mcp.Required(),
			mcp.Description("'global', 'workspace' or 'mode-<name>'"),
		),
		mcp.WithString("language",
			mcp.Description("Target language tag (e.g. 'js') or 'general' (default)"),
		),
		mcp.WithObject("rule_content",
			mcp.Required(),
			mcp.Description("Non-empty JSON object with the enforceable logic"),
		),
		mcp.WithArray("categories",
			mcp.Description("Category tags such as style, naming, security"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the apply_rule tool call.
func (t *ApplyRuleTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rule, err := ruleFromArgs(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error applying rule '%s': %v", rule.Name, err)), nil
	}
	msg, err := t.store.Apply(ctx, rule)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error applying rule: %v", err)), nil
	}
	return mcp.NewToolResultText(msg), nil
}

// ApplyRulesTool handles the apply_rules MCP tool.
type ApplyRulesTool struct {
	store rulestore.Store
}

// NewApplyRulesTool creates an ApplyRulesTool.
func NewApplyRulesTool(store rulestore.Store) *ApplyRulesTool {
	return &ApplyRulesTool{store: store}
}

// Definition returns the MCP tool definition for apply_rules.
func (t *ApplyRulesTool) Definition() mcp.Tool {
	return mcp.NewTool("apply_rules",
		mcp.WithDescription(
			"Create or replace several coding rules in the .roo rule tree. "+
				"Rules are applied in order; a failing rule is reported and the rest still run.",
		),
		mcp.WithArray("rules",
			mcp.Required(),
			mcp.Description("Rule objects with rule_name, description, scope, language, rule_content, categories"),
			mcp.Items(ruleSchema),
		),
	)
}

// Handle processes the apply_rules tool call. The result lists one line per
// rule: its confirmation or its error. Each element is decoded on its own.
func (t *ApplyRulesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := mcputil.RuleItems(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcputil.ApplyEach(ctx, t.store, items), nil
}
