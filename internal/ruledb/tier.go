package ruledb

import (
	"context"
	"fmt"

	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/HendryAvila/roobridge/internal/rulestore"
	"go.uber.org/zap"
)

var _ rulestore.Store = (*Tier)(nil)

// Tier serves the rule table through the rulestore.Store contract so the
// database can stand in for the filesystem tree.
type Tier struct {
	db *Store
}

// NewTier wraps a Store.
func NewTier(db *Store) *Tier {
	return &Tier{db: db}
}

// Apply deletes rows sharing the rule's name, scope and language, then
// inserts the rule.
func (t *Tier) Apply(ctx context.Context, rule rules.Rule) (string, error) {
	rule = rule.Normalize().Record()
	if err := rules.Validate(rule); err != nil {
		return "", err
	}

	existing, err := t.db.FindByName(ctx, rule.Name)
	if err != nil {
		return "", fmt.Errorf("looking up rule %q: %w", rule.Name, err)
	}
	for _, rec := range existing {
		if rec.Scope != rule.Scope || rec.Language.Folder() != rule.Language.Folder() {
			continue
		}
		if err := t.db.DeleteByID(ctx, rec.ID); err != nil {
			t.db.log.Warn("could not delete rule before apply",
				zap.String("rule", rule.Name), zap.Int64("id", rec.ID), zap.Error(err))
		}
	}

	id, err := t.db.Insert(ctx, rule)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Rule '%s' applied to %s in database (id %d)", rule.Name, rule.Bucket(), id), nil
}

// Delete removes the first row named name. When language is set and not
// general only rows carrying that language are considered.
func (t *Tier) Delete(ctx context.Context, name, language string) (rulestore.DeleteResult, error) {
	result := rulestore.DeleteResult{Name: name}

	recs, err := t.db.FindByName(ctx, name)
	if err != nil {
		return result, fmt.Errorf("looking up rule %q: %w", name, err)
	}
	for _, rec := range recs {
		if language != "" && language != rules.General && !rec.Language.Contains(language) {
			continue
		}
		result.Found = true
		result.Location = "database/" + rec.Bucket()
		result.Path = fmt.Sprintf("rules/%d", rec.ID)
		if err := t.db.DeleteByID(ctx, rec.ID); err != nil {
			return result, err
		}
		return result, nil
	}
	return result, nil
}

// List fetches every row and applies filter.
func (t *Tier) List(ctx context.Context, filter rules.Filter) ([]rules.Rule, error) {
	recs, err := t.db.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]rules.Rule, 0, len(recs))
	for _, rec := range recs {
		r := rec.Rule
		r.Source = "database"
		out = append(out, r)
	}
	return filter.Apply(out), nil
}
