// Package dbtools provides MCP tool handlers for the rule database.
//
// Each handler follows the same pattern as internal/tools:
// - A struct with dependencies (*ruledb.Store) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
package dbtools

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/roobridge/internal/mcputil"
	"github.com/mark3labs/mcp-go/mcp"
)

// levelArg accepts the level as "1".."3" or as a bare number.
func levelArg(req mcp.CallToolRequest) string {
	if n := mcputil.IntArg(req, "level", 0); n > 0 {
		return fmt.Sprint(n)
	}
	return req.GetString("level", "3")
}

func splitTags(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
