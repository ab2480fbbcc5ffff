package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// RuleExtractionPrompt handles the rule-extraction MCP prompt.
type RuleExtractionPrompt struct{}

// NewRuleExtractionPrompt creates a RuleExtractionPrompt.
func NewRuleExtractionPrompt() *RuleExtractionPrompt {
	return &RuleExtractionPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *RuleExtractionPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("rule-extraction",
		mcp.WithPromptDescription(
			"Extract enforceable coding rules from a document (style guide, brand book, standard) "+
				"and store them with apply_rules_db.",
		),
		mcp.WithArgument("file_path",
			mcp.ArgumentDescription("Document to analyze, relative to the workspace"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the rule-extraction prompt request.
func (p *RuleExtractionPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	filePath := argOr(req, "file_path", "")
	if filePath == "" {
		return nil, fmt.Errorf("file_path argument is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Extract rules from %s", filePath),
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(RuleExtractionContext),
			},
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Run `analyze_file` with file_path='%s'. It returns an apply_rules_db call; "+
						"review the rules, drop any with empty rule_content, then run `apply_rules_db` with the rest.",
					filePath,
				)),
			},
		},
	}, nil
}
