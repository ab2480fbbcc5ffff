// Package tools implements the MCP tool handlers for rule management.
//
// Each tool is a struct that receives its dependencies through the
// constructor and exposes:
// - Definition() returning the mcp.Tool schema
// - Handle() processing a CallToolRequest
//
// Handlers never return Go errors for user-facing failures; they return an
// error result so the host always gets a well-formed response.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// ruleSchema is the JSON schema of one rule object, shared by the array
// parameters.
var ruleSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"rule_name":    map[string]any{"type": "string"},
		"description":  map[string]any{"type": "string"},
		"scope":        map[string]any{"type": "string"},
		"language":     map[string]any{"type": []string{"string", "array"}, "items": map[string]any{"type": "string"}},
		"rule_content": map[string]any{"type": "object"},
		"categories":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"rule_name", "scope", "rule_content"},
}

// ruleFromArgs builds a Rule from the flat apply_rule arguments.
func ruleFromArgs(req mcp.CallToolRequest) (rules.Rule, error) {
	data, err := json.Marshal(req.GetArguments())
	if err != nil {
		return rules.Rule{}, fmt.Errorf("invalid rule arguments: %w", err)
	}
	return rules.DecodeRule(data)
}
