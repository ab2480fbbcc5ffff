// Package rulestore persists coding rules as individual record files under
// the .roo rule tree.
//
// Layout:
//
//	<workspace>/.roo/rules/              workspace, general
//	<workspace>/.roo/rules/<language>/   workspace, one language
//	<home>/.roo/rules/...                global, same sub-layout
//	<workspace>/.roo/rules-<mode>/...    mode, workspace variant
//	<home>/.roo/rules-<mode>/...         mode, global variant
//
// Store is the contract shared with the tabular backend (internal/ruledb)
// so either one can serve a tier.
package rulestore

import (
	"context"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/rules"
)

// Store defines the persistence contract for a rule tier.
type Store interface {
	// Apply creates or replaces a rule and returns a confirmation message.
	Apply(ctx context.Context, rule rules.Rule) (string, error)
	// Delete removes the first rule named name. A missing rule is reported
	// through DeleteResult.Found, not as an error.
	Delete(ctx context.Context, name, language string) (DeleteResult, error)
	// List returns every readable rule matching filter.
	List(ctx context.Context, filter rules.Filter) ([]rules.Rule, error)
}

// DeleteResult describes the outcome of a delete-by-name.
type DeleteResult struct {
	Name     string `json:"rule_name"`
	Found    bool   `json:"found"`
	Location string `json:"location,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Message renders the result the way tool callers expect it.
func (r DeleteResult) Message() string {
	if !r.Found {
		return fmt.Sprintf("Rule '%s' not found in any scope", r.Name)
	}
	return fmt.Sprintf("Deleted rule '%s' from %s", r.Name, r.Location)
}
