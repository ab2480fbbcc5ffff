// Package gateway routes model-issued action descriptors to the rule stores,
// the project files and the conversation service.
//
// A descriptor is a JSON object {"action": "<name>", ...params}. Decode turns
// it into one of the Action variants below, checking required parameters up
// front; the Dispatcher then runs it and reports an action trace back to the
// conversation.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/HendryAvila/roobridge/internal/rules"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidParams = errors.New("invalid action parameters")
)

// Action names.
const (
	ActionGiveFile         = "give_file"
	ActionListProjectFiles = "list_project_files"
	ActionListRules        = "list_rules"
	ActionListRulesDB      = "list_rules_db"
	ActionApplyRules       = "apply_rules"
	ActionDeleteRules      = "delete_rules"
	ActionProcessMessage   = "process_message"
	ActionConfirmNoChange  = "confirm_no_change"
)

// ActionNames lists every action the dispatcher understands.
func ActionNames() []string {
	return []string{
		ActionGiveFile, ActionListProjectFiles, ActionListRules, ActionListRulesDB,
		ActionApplyRules, ActionDeleteRules, ActionProcessMessage, ActionConfirmNoChange,
	}
}

// Action is one decoded descriptor. The set of implementations is closed.
type Action interface {
	Name() string
	isAction()
}

// GiveFile returns the compressed content of one project file.
type GiveFile struct {
	FilePath string
}

// ListProjectFiles returns the project directory tree.
type ListProjectFiles struct{}

// ListRules lists rules from the rule tree.
type ListRules struct {
	Filter rules.Filter
}

// ListRulesDB lists rules from the rule database at a projection level.
type ListRulesDB struct {
	Level  rules.Level
	Filter rules.Filter
}

// ApplyRules creates or replaces rules in the rule tree.
type ApplyRules struct {
	Rules []RuleEntry
}

// RuleEntry is one element of an apply_rules list. Err is set when the
// element could not be decoded; such entries are reported, not applied.
type RuleEntry struct {
	Rule rules.Rule
	Err  error
}

// DeleteRules deletes rules from the rule tree by name.
type DeleteRules struct {
	Targets []DeleteTarget
}

// DeleteTarget names one rule to delete. An empty Language searches the
// general folders.
type DeleteTarget struct {
	Name     string
	Language string
}

// ProcessMessage forwards a user message to the conversation.
type ProcessMessage struct {
	UserMessage string
}

// ConfirmNoChange acknowledges that nothing needs to change.
type ConfirmNoChange struct{}

func (GiveFile) Name() string         { return ActionGiveFile }
func (ListProjectFiles) Name() string { return ActionListProjectFiles }
func (ListRules) Name() string        { return ActionListRules }
func (ListRulesDB) Name() string      { return ActionListRulesDB }
func (ApplyRules) Name() string       { return ActionApplyRules }
func (DeleteRules) Name() string      { return ActionDeleteRules }
func (ProcessMessage) Name() string   { return ActionProcessMessage }
func (ConfirmNoChange) Name() string  { return ActionConfirmNoChange }

func (GiveFile) isAction()         {}
func (ListProjectFiles) isAction() {}
func (ListRules) isAction()        {}
func (ListRulesDB) isAction()      {}
func (ApplyRules) isAction()       {}
func (DeleteRules) isAction()      {}
func (ProcessMessage) isAction()   {}
func (ConfirmNoChange) isAction()  {}

// Descriptor is the raw {"action": ..., ...params} object.
type Descriptor map[string]any

// ActionName returns the "action" field, or "" when it is missing.
func (d Descriptor) ActionName() string {
	name, _ := d["action"].(string)
	return name
}

// Params returns the descriptor without its "action" field.
func (d Descriptor) Params() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		if k != "action" {
			out[k] = v
		}
	}
	return out
}

type descriptorParams struct {
	FilePath    string            `json:"file_path"`
	UserMessage string            `json:"user_message"`
	Scope       string            `json:"scope"`
	Language    string            `json:"language"`
	Level       json.RawMessage   `json:"level"`
	Rules       []json.RawMessage `json:"rules"`
}

// Decode validates a descriptor and returns its Action. Unknown names wrap
// ErrUnknownAction; missing or mistyped parameters wrap ErrInvalidParams.
func Decode(d Descriptor) (Action, error) {
	name := d.ActionName()
	if name == "" {
		return nil, fmt.Errorf("%w: missing \"action\"", ErrInvalidParams)
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	var p descriptorParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParams, name, err)
	}

	switch name {
	case ActionGiveFile:
		if strings.TrimSpace(p.FilePath) == "" {
			return nil, missing(name, "file_path")
		}
		return GiveFile{FilePath: p.FilePath}, nil

	case ActionListProjectFiles:
		return ListProjectFiles{}, nil

	case ActionListRules:
		return ListRules{Filter: rules.Filter{Scope: p.Scope, Language: p.Language}}, nil

	case ActionListRulesDB:
		level, err := decodeLevel(p.Level)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParams, name, err)
		}
		return ListRulesDB{Level: level, Filter: rules.Filter{Scope: p.Scope, Language: p.Language}}, nil

	case ActionApplyRules:
		if p.Rules == nil {
			return nil, missing(name, "rules")
		}
		out := make([]RuleEntry, 0, len(p.Rules))
		for _, item := range p.Rules {
			r, err := rules.DecodeRule(item)
			out = append(out, RuleEntry{Rule: r, Err: err})
		}
		return ApplyRules{Rules: out}, nil

	case ActionDeleteRules:
		if p.Rules == nil {
			return nil, missing(name, "rules")
		}
		targets := make([]DeleteTarget, 0, len(p.Rules))
		for i, item := range p.Rules {
			target, err := decodeDeleteTarget(item)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: rules[%d]: %v", ErrInvalidParams, name, i, err)
			}
			targets = append(targets, target)
		}
		return DeleteRules{Targets: targets}, nil

	case ActionProcessMessage:
		if strings.TrimSpace(p.UserMessage) == "" {
			return nil, missing(name, "user_message")
		}
		return ProcessMessage{UserMessage: p.UserMessage}, nil

	case ActionConfirmNoChange:
		return ConfirmNoChange{}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
}

func missing(action, param string) error {
	return fmt.Errorf("%w: %s requires %q", ErrInvalidParams, action, param)
}

// decodeLevel accepts "1".."3" or the bare numbers 1..3.
func decodeLevel(raw json.RawMessage) (rules.Level, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New(`"level" is required`)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return rules.ParseLevel(s), nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf(`"level" must be "1", "2" or "3"`)
	}
	return rules.ParseLevel(strconv.Itoa(int(n))), nil
}

// decodeDeleteTarget accepts a bare "x" or {"rule_name": "x", "language": ...}
// where language is a tag or a list of tags.
func decodeDeleteTarget(raw json.RawMessage) (DeleteTarget, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return DeleteTarget{Name: s}, nil
	}
	var obj struct {
		Name     string         `json:"rule_name"`
		Language rules.Language `json:"language"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Name == "" {
		return DeleteTarget{}, errors.New(`each entry needs a "rule_name"`)
	}
	target := DeleteTarget{Name: obj.Name}
	if !obj.Language.IsGeneral() {
		target.Language = obj.Language.Folder()
	}
	return target, nil
}
