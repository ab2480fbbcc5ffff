// Package rules defines the coding rule record and the pure logic around it:
// scope resolution, filtering and the read-side level projection.
//
// Nothing in this package touches storage. The filesystem backend lives in
// internal/rulestore and the tabular backend in internal/ruledb; both reuse
// the resolver and the filter defined here.
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error taxonomy shared by both storage backends.
var (
	ErrInvalidScope     = errors.New("invalid scope")
	ErrEmptyRuleContent = errors.New("rule_content must not be empty")
	ErrInvalidRule      = errors.New("invalid rule")
	ErrRuleNotFound     = errors.New("rule not found")
	ErrDeleteFailed     = errors.New("delete failed")
	ErrMalformedRecord  = errors.New("malformed rule record")
)

// Rule is a single enforceable coding rule.
//
// The first six fields are the persisted record. Source, File and Path are
// listing annotations filled in by the filesystem store; they are never
// written back to disk.
type Rule struct {
	Name        string         `json:"rule_name" validate:"required,excludesall=/\\"`
	Description string         `json:"description"`
	Scope       string         `json:"scope"`
	Language    Language       `json:"language"`
	Content     map[string]any `json:"rule_content"`
	Categories  []string       `json:"categories"`

	Source string `json:"source,omitempty"`
	File   string `json:"file,omitempty"`
	Path   string `json:"path,omitempty"`
}

var validate = validator.New()

// Validate rejects a rule before it reaches storage. It returns an error
// wrapping ErrEmptyRuleContent, ErrInvalidScope or ErrInvalidRule.
func Validate(r Rule) error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", ErrInvalidRule, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if r.Name == "." || r.Name == ".." || strings.Contains(r.Name, "..") {
		return fmt.Errorf("%w: rule_name %q is not a valid file name", ErrInvalidRule, r.Name)
	}
	if _, err := ParseScope(r.Scope); err != nil {
		return err
	}
	if len(r.Content) == 0 {
		return fmt.Errorf("rule %q: %w", r.Name, ErrEmptyRuleContent)
	}
	return nil
}

// Normalize fills defaults that are implied by the record format: a missing
// language means "general".
func (r Rule) Normalize() Rule {
	if len(r.Language) == 0 {
		r.Language = Language{General}
	}
	return r
}

// Record strips listing annotations, leaving only the persisted fields.
func (r Rule) Record() Rule {
	r.Source, r.File, r.Path = "", "", ""
	return r
}

// Bucket returns a human label for the (scope, language) pair, e.g.
// "workspace/js" or "global".
func (r Rule) Bucket() string {
	if r.Language.IsGeneral() {
		return r.Scope
	}
	return r.Scope + "/" + r.Language.Folder()
}

// DecodeRule unmarshals one rule object. When the object does not fit the
// record shape the error wraps ErrEmptyRuleContent (rule_content is present
// but not an object) or ErrInvalidRule, and the returned Rule still carries
// the rule_name if one could be read, so callers can report the failure
// against it.
func DecodeRule(raw []byte) (Rule, error) {
	var r Rule
	err := json.Unmarshal(raw, &r)
	if err == nil {
		return r, nil
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return Rule{}, fmt.Errorf("%w: rule must be a JSON object", ErrInvalidRule)
	}
	var name string
	_ = json.Unmarshal(fields["rule_name"], &name)

	content := bytes.TrimSpace(fields["rule_content"])
	if len(content) > 0 && content[0] != '{' && !bytes.Equal(content, []byte("null")) {
		return Rule{Name: name}, fmt.Errorf("rule %q: %w: rule_content must be a JSON object", name, ErrEmptyRuleContent)
	}
	return Rule{Name: name}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
}
