package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/gateway"
	"github.com/HendryAvila/roobridge/internal/mcputil"
	"github.com/mark3labs/mcp-go/mcp"
)

// Gateway runs action descriptors.
type Gateway interface {
	Handle(ctx context.Context, desc gateway.Descriptor) any
	HandleBatch(ctx context.Context, descs []gateway.Descriptor) any
}

// GatewayTool handles the ai_gateway MCP tool.
type GatewayTool struct {
	gw Gateway
}

// NewGatewayTool creates a GatewayTool.
func NewGatewayTool(gw Gateway) *GatewayTool {
	return &GatewayTool{gw: gw}
}

// Definition returns the MCP tool definition for ai_gateway.
func (t *GatewayTool) Definition() mcp.Tool {
	return mcp.NewTool("ai_gateway",
		mcp.WithDescription(
			"Run one rule management action and report it to the rule management model. "+
				"Returns the model's next reply, or an acknowledgement when the action fails.",
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Action to run"),
			mcp.Enum(gateway.ActionNames()...),
		),
		mcp.WithString("file_path",
			mcp.Description("give_file: file to read"),
		),
		mcp.WithString("user_message",
			mcp.Description("process_message: message for the model"),
		),
		mcp.WithArray("rules",
			mcp.Description("apply_rules: rule objects; delete_rules: objects with rule_name"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithString("scope",
			mcp.Description("list_rules, list_rules_db: scope filter"),
		),
		mcp.WithString("language",
			mcp.Description("list_rules, list_rules_db: language filter"),
		),
		mcp.WithString("level",
			mcp.Description("list_rules_db: '1' name and description, '2' adds scope and language, '3' full rule"),
			mcp.Enum("1", "2", "3"),
		),
	)
}

// Handle processes the ai_gateway tool call.
func (t *GatewayTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	desc := gateway.Descriptor(req.GetArguments())
	if desc.ActionName() == "" {
		return mcp.NewToolResultError("'action' is required"), nil
	}
	return gatewayResult(t.gw.Handle(ctx, desc))
}

// GatewayHandlerTool handles the ai_gateway_handler MCP tool.
type GatewayHandlerTool struct {
	gw Gateway
}

// NewGatewayHandlerTool creates a GatewayHandlerTool.
func NewGatewayHandlerTool(gw Gateway) *GatewayHandlerTool {
	return &GatewayHandlerTool{gw: gw}
}

// Definition returns the MCP tool definition for ai_gateway_handler.
func (t *GatewayHandlerTool) Definition() mcp.Tool {
	return mcp.NewTool("ai_gateway_handler",
		mcp.WithDescription(
			"Run several rule management actions in order. A failing action does not stop the others; "+
				"the combined trace is sent to the rule management model once and its reply is returned.",
		),
		mcp.WithArray("inputs",
			mcp.Required(),
			mcp.Description("Action descriptors, each shaped like an ai_gateway call: {action, ...params}"),
			mcp.Items(map[string]any{
				"type":       "object",
				"properties": map[string]any{"action": map[string]any{"type": "string"}},
				"required":   []string{"action"},
			}),
		),
	)
}

// Handle processes the ai_gateway_handler tool call.
func (t *GatewayHandlerTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["inputs"]
	if !ok || raw == nil {
		return mcp.NewToolResultError("'inputs' is required"), nil
	}
	var descs []gateway.Descriptor
	if err := mcputil.DecodeArg(raw, &descs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'inputs' must be an array of action objects: %v", err)), nil
	}
	if len(descs) == 0 {
		return mcp.NewToolResultError("'inputs' must contain at least one action"), nil
	}
	return gatewayResult(t.gw.HandleBatch(ctx, descs))
}

// gatewayResult returns a model reply as plain text and anything else as
// JSON.
func gatewayResult(v any) (*mcp.CallToolResult, error) {
	if s, ok := v.(string); ok {
		return mcp.NewToolResultText(s), nil
	}
	return mcputil.JSONResult(v)
}
