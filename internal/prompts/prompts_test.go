package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptReq(args map[string]string) mcp.GetPromptRequest {
	var req mcp.GetPromptRequest
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, msg mcp.PromptMessage) string {
	t.Helper()
	tc, ok := msg.Content.(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestRuleManagerPrompt_Default(t *testing.T) {
	p := NewRuleManagerPrompt()
	assert.Equal(t, "rule-manager", p.Definition().Name)

	res, err := p.Handle(context.Background(), promptReq(nil))
	require.NoError(t, err)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, RuleManagerContext, textOf(t, res.Messages[0]))
	assert.Contains(t, textOf(t, res.Messages[2]), "Review the active rules")
}

func TestRuleManagerPrompt_WithFile(t *testing.T) {
	res, err := NewRuleManagerPrompt().Handle(context.Background(), promptReq(map[string]string{
		"request":   "only use tailwind",
		"file_path": "src/app.css",
	}))
	require.NoError(t, err)
	last := textOf(t, res.Messages[2])
	assert.True(t, strings.HasPrefix(last, "only use tailwind"))
	assert.Contains(t, last, "src/app.css")
}

func TestRuleExtractionPrompt(t *testing.T) {
	p := NewRuleExtractionPrompt()
	assert.Equal(t, "rule-extraction", p.Definition().Name)

	_, err := p.Handle(context.Background(), promptReq(nil))
	assert.Error(t, err)

	res, err := p.Handle(context.Background(), promptReq(map[string]string{"file_path": "docs/brand.md"}))
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Contains(t, textOf(t, res.Messages[1]), "docs/brand.md")
}

func TestContexts_NameEveryAction(t *testing.T) {
	for _, action := range []string{
		"give_file", "list_project_files", "list_rules", "list_rules_db",
		"apply_rules", "delete_rules", "confirm_no_change",
	} {
		assert.Contains(t, RuleManagerContext, action)
	}
	assert.Contains(t, RuleExtractionContext, "rule_content")
}
