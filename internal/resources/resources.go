// Package resources implements MCP resource handlers for the rule tree.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (roo://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs.
const (
	RulesURI = "roo://rules"
	ModesURI = "roo://modes"
)

// RuleLister lists the rules of the active tier.
type RuleLister interface {
	List(ctx context.Context, filter rules.Filter) ([]rules.Rule, error)
}

// ModeRegistry reports the modes registered in custom_modes.
type ModeRegistry interface {
	RegisteredModes() ([]string, error)
}

// Handler manages rule resource endpoints.
type Handler struct {
	rules RuleLister
	modes ModeRegistry
}

// NewHandler creates a resource Handler with its dependencies. modes may be
// nil when the rule tier is not file based.
func NewHandler(rules RuleLister, modes ModeRegistry) *Handler {
	return &Handler{rules: rules, modes: modes}
}

// RulesResource returns the MCP resource definition for the rule listing.
func (h *Handler) RulesResource() mcp.Resource {
	return mcp.NewResource(
		RulesURI,
		"Coding Rules",
		mcp.WithResourceDescription("Every rule of the active tier across global, workspace and mode scopes"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRules returns every rule as JSON.
func (h *Handler) HandleRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	listed, err := h.rules.List(ctx, rules.Filter{})
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if listed == nil {
		listed = []rules.Rule{}
	}
	return jsonResource(req.Params.URI, listed)
}

// ModesResource returns the MCP resource definition for registered modes.
func (h *Handler) ModesResource() mcp.Resource {
	return mcp.NewResource(
		ModesURI,
		"Registered Modes",
		mcp.WithResourceDescription("Mode slugs registered in custom_modes; delete_rule searches these scopes"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleModes returns the registered mode slugs as JSON.
func (h *Handler) HandleModes(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	modes := []string{}
	if h.modes != nil {
		found, err := h.modes.RegisteredModes()
		if err != nil {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		modes = append(modes, found...)
	}
	return jsonResource(req.Params.URI, modes)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
