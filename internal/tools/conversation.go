package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/conversation"
	"github.com/HendryAvila/roobridge/internal/mcputil"
	"github.com/mark3labs/mcp-go/mcp"
)

// Conversation is the part of the conversation service the tools use.
type Conversation interface {
	Send(ctx context.Context, conversationID, message string) (string, error)
	AnalyzeCode(ctx context.Context, conversationID, path string) (string, error)
	AnalyzeFile(ctx context.Context, path string) (*conversation.AnalysisCall, error)
}

// ProcessMessageTool handles the process_message MCP tool.
type ProcessMessageTool struct {
	conv Conversation
}

// NewProcessMessageTool creates a ProcessMessageTool.
func NewProcessMessageTool(conv Conversation) *ProcessMessageTool {
	return &ProcessMessageTool{conv: conv}
}

// Definition returns the MCP tool definition for process_message.
func (t *ProcessMessageTool) Definition() mcp.Tool {
	return mcp.NewTool("process_message",
		mcp.WithDescription(
			"Send a message to the rule management model and return its reply. "+
				"The exchange is appended to the conversation transcript.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Message for the model, e.g. a user request about coding rules"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation to continue (default: the configured conversation)"),
		),
	)
}

// Handle processes the process_message tool call.
func (t *ProcessMessageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := req.GetString("message", "")
	if message == "" {
		return mcp.NewToolResultError("'message' is required"), nil
	}
	reply, err := t.conv.Send(ctx, req.GetString("conversation_id", ""), message)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error processing message: %v", err)), nil
	}
	return mcp.NewToolResultText(reply), nil
}

// AnalyzeCodeTool handles the analyze_code MCP tool.
type AnalyzeCodeTool struct {
	conv Conversation
}

// NewAnalyzeCodeTool creates an AnalyzeCodeTool.
func NewAnalyzeCodeTool(conv Conversation) *AnalyzeCodeTool {
	return &AnalyzeCodeTool{conv: conv}
}

// Definition returns the MCP tool definition for analyze_code.
func (t *AnalyzeCodeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_code",
		mcp.WithDescription(
			"Send a source file to the rule management model so it can check the file "+
				"against the rules. Returns the model's gateway call.",
		),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("File to analyze, absolute or relative to the workspace"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation to continue (default: the configured conversation)"),
		),
	)
}

// Handle processes the analyze_code tool call.
func (t *AnalyzeCodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("file_path", "")
	if path == "" {
		return mcp.NewToolResultError("'file_path' is required"), nil
	}
	reply, err := t.conv.AnalyzeCode(ctx, req.GetString("conversation_id", ""), path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error analyzing code: %v", err)), nil
	}
	return mcp.NewToolResultText(reply), nil
}

// AnalyzeFileTool handles the analyze_file MCP tool.
type AnalyzeFileTool struct {
	conv Conversation
}

// NewAnalyzeFileTool creates an AnalyzeFileTool.
func NewAnalyzeFileTool(conv Conversation) *AnalyzeFileTool {
	return &AnalyzeFileTool{conv: conv}
}

// Definition returns the MCP tool definition for analyze_file.
func (t *AnalyzeFileTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_file",
		mcp.WithDescription(
			"Extract coding rules from a document (style guide, brand book, standard). "+
				"Returns an apply_rules_db call carrying the extracted rules; nothing is stored yet.",
		),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Document to analyze, absolute or relative to the workspace"),
		),
	)
}

// Handle processes the analyze_file tool call.
func (t *AnalyzeFileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("file_path", "")
	if path == "" {
		return mcp.NewToolResultError("'file_path' is required"), nil
	}
	call, err := t.conv.AnalyzeFile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error analyzing file: %v", err)), nil
	}
	return mcputil.JSONResult(call)
}
