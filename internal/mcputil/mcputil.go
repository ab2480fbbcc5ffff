// Package mcputil holds the argument decoding and result helpers shared by
// the rule tool packages (internal/tools and internal/dbtools).
package mcputil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// DecodeArg round-trips a raw argument through JSON into out.
func DecodeArg(raw any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// JSONResult renders v as indented JSON text.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// IntArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func IntArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// BoolArg extracts a boolean argument from a tool request.
func BoolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// RuleItems returns the elements of the "rules" array argument without
// decoding them, so one malformed rule cannot fail the others.
func RuleItems(req mcp.CallToolRequest) ([]json.RawMessage, error) {
	raw, ok := req.GetArguments()["rules"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("'rules' is required")
	}
	var items []json.RawMessage
	if err := DecodeArg(raw, &items); err != nil {
		return nil, fmt.Errorf("'rules' must be an array of rule objects: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("'rules' must contain at least one rule")
	}
	return items, nil
}

// Applier is the write side shared by the file tree and the rule database.
type Applier interface {
	Apply(ctx context.Context, rule rules.Rule) (string, error)
}

// ApplyEach decodes and applies every item in order. The result has one
// line per rule, its confirmation or "Error applying rule '<name>': ...",
// and is an error result only when every rule failed.
func ApplyEach(ctx context.Context, store Applier, items []json.RawMessage) *mcp.CallToolResult {
	lines := make([]string, 0, len(items))
	failed := 0
	for _, item := range items {
		r, err := rules.DecodeRule(item)
		var msg string
		if err == nil {
			msg, err = store.Apply(ctx, r)
		}
		if err != nil {
			failed++
			lines = append(lines, fmt.Sprintf("Error applying rule '%s': %v", r.Name, err))
			continue
		}
		lines = append(lines, msg)
	}

	text := strings.Join(lines, "\n")
	if failed == len(items) {
		return mcp.NewToolResultError(text)
	}
	return mcp.NewToolResultText(text)
}
