package rules

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scope values and on-disk layout names.
const (
	ScopeGlobal    = "global"
	ScopeWorkspace = "workspace"
	ModePrefix     = "mode-"

	RooDir        = ".roo"
	RulesDir      = "rules"
	ModeDirPrefix = "rules-"
)

// ScopeKind tells which tier a scope string belongs to.
type ScopeKind string

const (
	KindGlobal    ScopeKind = "global"
	KindWorkspace ScopeKind = "workspace"
	KindMode      ScopeKind = "mode"
)

// Scope is a parsed scope string.
type Scope struct {
	Kind ScopeKind
	Mode string // set only for KindMode
}

// ParseScope recognizes "global", "workspace" and "mode-<name>".
func ParseScope(s string) (Scope, error) {
	switch {
	case s == ScopeGlobal:
		return Scope{Kind: KindGlobal}, nil
	case s == ScopeWorkspace:
		return Scope{Kind: KindWorkspace}, nil
	case strings.HasPrefix(s, ModePrefix) && len(s) > len(ModePrefix):
		mode := s[len(ModePrefix):]
		if strings.ContainsAny(mode, `/\`) || mode == "." || mode == ".." {
			return Scope{}, fmt.Errorf("%w %q: mode name must be a plain name", ErrInvalidScope, s)
		}
		return Scope{Kind: KindMode, Mode: mode}, nil
	default:
		return Scope{}, fmt.Errorf("%w '%s': use 'global', 'workspace', or 'mode-<name>'", ErrInvalidScope, s)
	}
}

// Roots holds the two filesystem anchors of the rule tree: the current
// project and the user's home directory.
type Roots struct {
	Workspace string
	Home      string
}

// WorkspaceRules is <workspace>/.roo/rules.
func (r Roots) WorkspaceRules() string {
	return filepath.Join(r.Workspace, RooDir, RulesDir)
}

// GlobalRules is <home>/.roo/rules.
func (r Roots) GlobalRules() string {
	return filepath.Join(r.Home, RooDir, RulesDir)
}

// ModeDirs returns the workspace and global directories of a mode.
func (r Roots) ModeDirs(mode string) (workspace, global string) {
	name := ModeDirPrefix + mode
	return filepath.Join(r.Workspace, RooDir, name), filepath.Join(r.Home, RooDir, name)
}

// CustomModesDir is the directory holding the custom modes definition file.
func (r Roots) CustomModesDir() string {
	return filepath.Join(r.Workspace, RooDir)
}

// Resolve maps a scope and a language to the directory that holds the rule
// bucket. It performs no I/O; creating the directory is the store's job.
// Mode scopes resolve to the workspace variant.
func (r Roots) Resolve(scope string, lang Language) (string, error) {
	parsed, err := ParseScope(scope)
	if err != nil {
		return "", err
	}

	var base string
	switch parsed.Kind {
	case KindGlobal:
		base = r.GlobalRules()
	case KindWorkspace:
		base = r.WorkspaceRules()
	case KindMode:
		base, _ = r.ModeDirs(parsed.Mode)
	}
	return LanguageDir(base, lang), nil
}

// LanguageDir appends the language subfolder to base unless the language is
// general.
func LanguageDir(base string, lang Language) string {
	if folder := lang.Folder(); folder != "" {
		return filepath.Join(base, folder)
	}
	return base
}
