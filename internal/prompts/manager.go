// Package prompts implements the MCP prompts of the rule bridge and holds
// the system contexts sent to the chat model.
//
// MCP prompts are user-triggered workflows (like slash commands). The
// rule-manager prompt hands the host model the rule management context plus
// the user's request; rule-extraction does the same for a document to mine.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// RuleManagerPrompt handles the rule-manager MCP prompt.
type RuleManagerPrompt struct{}

// NewRuleManagerPrompt creates a RuleManagerPrompt.
func NewRuleManagerPrompt() *RuleManagerPrompt {
	return &RuleManagerPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *RuleManagerPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("rule-manager",
		mcp.WithPromptDescription(
			"Manage the project's coding rules. Loads the rule management context "+
				"and asks the model to inspect rules and files through ai_gateway.",
		),
		mcp.WithArgument("request",
			mcp.ArgumentDescription("What you want changed, e.g. 'only use tailwind for styling'. Default: review the current rules"),
		),
		mcp.WithArgument("file_path",
			mcp.ArgumentDescription("Optional file to review against the rules"),
		),
	)
}

// Handle processes the rule-manager prompt request.
func (p *RuleManagerPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	request := argOr(req, "request", "Review the active rules and the rule database and fix anything broken, missing or conflicting.")
	filePath := argOr(req, "file_path", "")

	var b strings.Builder
	b.WriteString(request)
	if filePath != "" {
		fmt.Fprintf(&b, "\n\nStart by reading %s with give_file and check it against list_rules.", filePath)
	}

	return &mcp.GetPromptResult{
		Description: "Rule management session",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(RuleManagerContext),
			},
			{
				Role:    mcp.RoleAssistant,
				Content: mcp.NewTextContent("I will only respond with ai_gateway or ai_gateway_handler calls."),
			},
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(b.String()),
			},
		},
	}, nil
}

// argOr returns the named prompt argument or fallback when it is unset.
func argOr(req mcp.GetPromptRequest, name, fallback string) string {
	if args := req.Params.Arguments; args != nil {
		if v, ok := args[name]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return fallback
}
