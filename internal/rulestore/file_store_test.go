package rulestore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testWorkspace = "/work/project"
	testHome      = "/home/dev"
)

func newTestStore(t *testing.T) (*FileStore, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	return NewFileStore(mem, rules.Roots{Workspace: testWorkspace, Home: testHome}, zap.NewNop()), mem
}

func testRule(name, scope string, lang rules.Language, content map[string]any) rules.Rule {
	return rules.Rule{
		Name:        name,
		Description: "desc " + name,
		Scope:       scope,
		Language:    lang,
		Content:     content,
		Categories:  []string{"logic"},
	}
}

func byName(rs []rules.Rule, name string) []rules.Rule {
	var out []rules.Rule
	for _, r := range rs {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// failingRemoveFs rejects every Remove call.
type failingRemoveFs struct {
	afero.Fs
}

func (f failingRemoveFs) Remove(name string) error {
	return errors.New("permission denied")
}

// --- Apply ---

func TestApply_WritesRecordInLanguageFolder(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()

	msg, err := store.Apply(ctx, testRule("no-console-log", "workspace", rules.Lang("js"), map[string]any{"block": "console.log"}))
	require.NoError(t, err)

	path := filepath.Join(testWorkspace, ".roo", "rules", "js", "no-console-log.json")
	assert.Contains(t, msg, "workspace/js")
	assert.Contains(t, msg, path)

	data, err := afero.ReadFile(mem, path)
	require.NoError(t, err)

	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Len(t, onDisk, 6, "record holds exactly the six rule fields")
	assert.Equal(t, "no-console-log", onDisk["rule_name"])
}

func TestApply_GeneralGoesToRoot(t *testing.T) {
	store, mem := newTestStore(t)

	_, err := store.Apply(context.Background(), testRule("a", "global", rules.Lang("general"), map[string]any{"x": 1}))
	require.NoError(t, err)

	exists, err := afero.Exists(mem, filepath.Join(testHome, ".roo", "rules", "a.json"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApply_ModeScopeCreatesDirectories(t *testing.T) {
	store, mem := newTestStore(t)

	_, err := store.Apply(context.Background(), testRule("m", "mode-architect", nil, map[string]any{"x": 1}))
	require.NoError(t, err)

	exists, err := afero.Exists(mem, filepath.Join(testWorkspace, ".roo", "rules-architect", "m.json"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApply_RejectsEmptyContent(t *testing.T) {
	store, mem := newTestStore(t)

	_, err := store.Apply(context.Background(), testRule("empty", "workspace", nil, map[string]any{}))
	assert.ErrorIs(t, err, rules.ErrEmptyRuleContent)

	exists, _ := afero.DirExists(mem, filepath.Join(testWorkspace, ".roo"))
	assert.False(t, exists, "nothing may be written for an invalid rule")
}

func TestApply_RejectsInvalidScope(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Apply(context.Background(), testRule("a", "team", nil, map[string]any{"x": 1}))
	assert.ErrorIs(t, err, rules.ErrInvalidScope)
}

func TestApply_SameNameReplaces(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, testRule("a", "global", nil, map[string]any{"v": "first"}))
	require.NoError(t, err)
	_, err = store.Apply(ctx, testRule("a", "global", nil, map[string]any{"v": "second"}))
	require.NoError(t, err)

	listed, err := store.List(ctx, rules.Filter{Scope: "global"})
	require.NoError(t, err)

	got := byName(listed, "a")
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Content["v"])
}

func TestApply_ReplacesDifferentlyNamedFile(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()

	legacy := filepath.Join(testWorkspace, ".roo", "rules", "legacy-name.txt")
	require.NoError(t, afero.WriteFile(mem, legacy, []byte(`{"rule_name":"a","scope":"workspace","rule_content":{"v":0}}`), 0o644))

	_, err := store.Apply(ctx, testRule("a", "workspace", nil, map[string]any{"v": 1}))
	require.NoError(t, err)

	exists, _ := afero.Exists(mem, legacy)
	assert.False(t, exists, "stale duplicate should be cleaned up")
}

func TestApply_PreDeleteFailureIsNotFatal(t *testing.T) {
	mem := afero.NewMemMapFs()
	store := NewFileStore(failingRemoveFs{mem}, rules.Roots{Workspace: testWorkspace, Home: testHome}, zap.NewNop())
	ctx := context.Background()

	_, err := store.Apply(ctx, testRule("a", "workspace", nil, map[string]any{"v": 1}))
	require.NoError(t, err)
	_, err = store.Apply(ctx, testRule("a", "workspace", nil, map[string]any{"v": 2}))
	require.NoError(t, err)

	listed, err := store.List(ctx, rules.Filter{})
	require.NoError(t, err)
	got := byName(listed, "a")
	require.Len(t, got, 1)
	assert.EqualValues(t, 2, got[0].Content["v"])
}

// --- List ---

func TestList_ScopeAndLanguageFilter(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, testRule("no-console-log", "workspace", rules.Lang("js"), map[string]any{"block": "console.log"}))
	require.NoError(t, err)
	_, err = store.Apply(ctx, testRule("other", "workspace", rules.Lang("go"), map[string]any{"x": 1}))
	require.NoError(t, err)
	_, err = store.Apply(ctx, testRule("global-js", "global", rules.Lang("js"), map[string]any{"x": 1}))
	require.NoError(t, err)

	listed, err := store.List(ctx, rules.Filter{Scope: "workspace", Language: "js"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "no-console-log", listed[0].Name)
	assert.Equal(t, "workspace/js", listed[0].Source)
	assert.Equal(t, "no-console-log.json", listed[0].File)
}

func TestList_RoundTripKeepsSixFields(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	original := rules.Rule{
		Name:        "enforce-brand-colors",
		Description: "Navbar must use the brand color",
		Scope:       "workspace",
		Language:    rules.Lang("css", "scss"),
		Content:     map[string]any{"navbar-color": "#0047AB", "max": float64(3)},
		Categories:  []string{"style", "company-branding"},
	}
	_, err := store.Apply(ctx, original)
	require.NoError(t, err)

	listed, err := store.List(ctx, rules.Filter{})
	require.NoError(t, err)
	got := byName(listed, original.Name)
	require.Len(t, got, 1)
	assert.Equal(t, original, got[0].Record())
}

func TestList_OrderGlobalWorkspaceModes(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, r := range []rules.Rule{
		testRule("m", "mode-code", nil, map[string]any{"x": 1}),
		testRule("w", "workspace", nil, map[string]any{"x": 1}),
		testRule("g", "global", nil, map[string]any{"x": 1}),
	} {
		_, err := store.Apply(ctx, r)
		require.NoError(t, err)
	}

	listed, err := store.List(ctx, rules.Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "g", listed[0].Name)
	assert.Equal(t, "w", listed[1].Name)
	assert.Equal(t, "m", listed[2].Name)
	assert.Equal(t, "mode:code", listed[2].Source)
}

func TestList_SkipsMalformedAndForeignFiles(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()
	dir := filepath.Join(testWorkspace, ".roo", "rules")

	require.NoError(t, afero.WriteFile(mem, filepath.Join(dir, "notes.md"), []byte("# not json"), 0o644))
	require.NoError(t, afero.WriteFile(mem, filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o644))
	require.NoError(t, afero.WriteFile(mem, filepath.Join(dir, "nameless.json"), []byte(`{"scope":"workspace"}`), 0o644))
	_, err := store.Apply(ctx, testRule("valid", "workspace", nil, map[string]any{"x": 1}))
	require.NoError(t, err)

	listed, err := store.List(ctx, rules.Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "valid", listed[0].Name)
}

func TestList_ArrayRecords(t *testing.T) {
	store, mem := newTestStore(t)
	path := filepath.Join(testHome, ".roo", "rules", "bundle.txt")
	require.NoError(t, afero.WriteFile(mem, path, []byte(`[
		{"rule_name":"one","scope":"global","language":"go","rule_content":{"a":1}},
		{"rule_name":"two","scope":"global","language":["go","rust"],"rule_content":{"b":2}}
	]`), 0o644))

	listed, err := store.List(context.Background(), rules.Filter{Language: "rust"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "two", listed[0].Name)
	assert.Equal(t, "bundle.txt", listed[0].File)
}

func TestList_EmptyTree(t *testing.T) {
	store, _ := newTestStore(t)
	listed, err := store.List(context.Background(), rules.Filter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

// --- Delete ---

func TestDelete_NotFoundIsNotAnError(t *testing.T) {
	store, _ := newTestStore(t)

	res, err := store.Delete(context.Background(), "nonexistent-rule", "")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Contains(t, res.Message(), "not found")
}

func TestDelete_WorkspaceBeforeGlobal(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, testRule("dup", "global", nil, map[string]any{"x": 1}))
	require.NoError(t, err)
	_, err = store.Apply(ctx, testRule("dup", "workspace", nil, map[string]any{"x": 2}))
	require.NoError(t, err)

	res, err := store.Delete(ctx, "dup", "")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "workspace", res.Location)

	exists, _ := afero.Exists(mem, filepath.Join(testHome, ".roo", "rules", "dup.json"))
	assert.True(t, exists, "only the first match is deleted")
}

func TestDelete_LanguageSubfolder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, testRule("js-only", "workspace", rules.Lang("js"), map[string]any{"x": 1}))
	require.NoError(t, err)

	res, err := store.Delete(ctx, "js-only", "")
	require.NoError(t, err)
	assert.False(t, res.Found, "general search does not descend into language folders")

	res, err = store.Delete(ctx, "js-only", "js")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "workspace/js", res.Location)
}

func TestDelete_RegisteredModes(t *testing.T) {
	store, mem := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(mem, filepath.Join(testWorkspace, ".roo", "custom_modes.json"),
		[]byte(`{"architect": {"name": "Architect"}}`), 0o644))
	globalMode := filepath.Join(testHome, ".roo", "rules-architect", "plan.json")
	require.NoError(t, afero.WriteFile(mem, globalMode,
		[]byte(`{"rule_name":"plan","scope":"mode-architect","rule_content":{"x":1}}`), 0o644))

	res, err := store.Delete(ctx, "plan", "")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "global-mode-architect", res.Location)

	exists, _ := afero.Exists(mem, globalMode)
	assert.False(t, exists)
}

func TestDelete_UnregisteredModeIsNotSearched(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, testRule("m", "mode-adhoc", nil, map[string]any{"x": 1}))
	require.NoError(t, err)

	res, err := store.Delete(ctx, "m", "")
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestDelete_RemoveFailureIsReported(t *testing.T) {
	mem := afero.NewMemMapFs()
	seed := NewFileStore(mem, rules.Roots{Workspace: testWorkspace, Home: testHome}, zap.NewNop())
	_, err := seed.Apply(context.Background(), testRule("locked", "workspace", nil, map[string]any{"x": 1}))
	require.NoError(t, err)

	store := NewFileStore(failingRemoveFs{mem}, rules.Roots{Workspace: testWorkspace, Home: testHome}, zap.NewNop())
	res, err := store.Delete(context.Background(), "locked", "")
	assert.ErrorIs(t, err, rules.ErrDeleteFailed)
	assert.True(t, res.Found, "found-but-failed is distinct from not found")
}

// --- Modes ---

func TestRegisteredModes_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    []string
	}{
		{"json object keys", "custom_modes.json", `{"debug":{},"architect":{}}`, []string{"architect", "debug"}},
		{"json customModes", "custom_modes.json", `{"customModes":[{"slug":"review"},{"slug":"docs"}]}`, []string{"review", "docs"}},
		{"yaml customModes", "custom_modes.yaml", "customModes:\n  - slug: translate\n  - slug: test\n", []string{"translate", "test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mem := newTestStore(t)
			require.NoError(t, afero.WriteFile(mem, filepath.Join(testWorkspace, ".roo", tt.file), []byte(tt.content), 0o644))

			modes, err := store.RegisteredModes()
			require.NoError(t, err)
			assert.Equal(t, tt.want, modes)
		})
	}
}

func TestRegisteredModes_MissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	modes, err := store.RegisteredModes()
	require.NoError(t, err)
	assert.Empty(t, modes)
}
