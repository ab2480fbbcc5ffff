package mcputil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// recordingApplier keeps every rule it is asked to apply.
type recordingApplier struct {
	applied []string
}

func (a *recordingApplier) Apply(_ context.Context, r rules.Rule) (string, error) {
	if r.Scope == "nowhere" {
		return "", errors.New("invalid scope")
	}
	a.applied = append(a.applied, r.Name)
	return "Rule '" + r.Name + "' applied", nil
}

func TestArgs(t *testing.T) {
	req := makeReq(map[string]any{"id": float64(7), "flag": true, "name": "x"})
	assert.Equal(t, 7, IntArg(req, "id", 0))
	assert.Equal(t, 3, IntArg(req, "name", 3))
	assert.True(t, BoolArg(req, "flag", false))
	assert.True(t, BoolArg(req, "missing", true))
}

func TestRuleItems(t *testing.T) {
	items, err := RuleItems(makeReq(map[string]any{"rules": []any{map[string]any{"rule_name": "a"}, "b"}}))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.JSONEq(t, `"b"`, string(items[1]))

	for _, args := range []map[string]any{nil, {"rules": []any{}}, {"rules": "nope"}} {
		_, err := RuleItems(makeReq(args))
		assert.Error(t, err, "%v", args)
	}
}

func TestApplyEach_ContinuesPastBadElements(t *testing.T) {
	store := &recordingApplier{}
	items := []json.RawMessage{
		json.RawMessage(`{"rule_name":"text-body","scope":"global","rule_content":"use tabs"}`),
		json.RawMessage(`{"rule_name":"elsewhere","scope":"nowhere","rule_content":{"x":1}}`),
		json.RawMessage(`{"rule_name":"good","scope":"global","rule_content":{"x":1}}`),
	}

	result := ApplyEach(context.Background(), store, items)
	require.False(t, result.IsError)
	assert.Equal(t, []string{"good"}, store.applied)
	assert.Equal(t,
		"Error applying rule 'text-body': rule \"text-body\": rule_content must not be empty: rule_content must be a JSON object\n"+
			"Error applying rule 'elsewhere': invalid scope\n"+
			"Rule 'good' applied",
		resultText(result))
}

func TestApplyEach_AllFailingIsError(t *testing.T) {
	result := ApplyEach(context.Background(), &recordingApplier{}, []json.RawMessage{json.RawMessage(`"x"`)})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(result), "Error applying rule '':")
}

func TestJSONResult(t *testing.T) {
	result, err := JSONResult(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, resultText(result))
}
