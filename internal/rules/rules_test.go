package rules

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRule(name, scope string, lang Language) Rule {
	return Rule{
		Name:        name,
		Description: "test rule " + name,
		Scope:       scope,
		Language:    lang,
		Content:     map[string]any{"block": "console.log"},
		Categories:  []string{"logic"},
	}
}

// --- Scope resolution ---

func TestResolve(t *testing.T) {
	roots := Roots{Workspace: "/proj", Home: "/home/u"}

	tests := []struct {
		name  string
		scope string
		lang  Language
		want  string
	}{
		{"workspace general", "workspace", Lang("general"), filepath.Join("/proj", ".roo", "rules")},
		{"workspace no language", "workspace", nil, filepath.Join("/proj", ".roo", "rules")},
		{"workspace js", "workspace", Lang("js"), filepath.Join("/proj", ".roo", "rules", "js")},
		{"global", "global", Lang("general"), filepath.Join("/home/u", ".roo", "rules")},
		{"global css", "global", Lang("css"), filepath.Join("/home/u", ".roo", "rules", "css")},
		{"mode", "mode-architect", nil, filepath.Join("/proj", ".roo", "rules-architect")},
		{"mode go", "mode-code", Lang("go"), filepath.Join("/proj", ".roo", "rules-code", "go")},
		{"language set", "workspace", Lang("ts", "js", "ts"), filepath.Join("/proj", ".roo", "rules", "js,ts")},
		{"general set", "workspace", Lang("general"), filepath.Join("/proj", ".roo", "rules")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := roots.Resolve(tt.scope, tt.lang)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := roots.Resolve(tt.scope, tt.lang)
			require.NoError(t, err)
			assert.Equal(t, got, again, "resolve must be deterministic")
		})
	}
}

func TestResolve_InvalidScope(t *testing.T) {
	roots := Roots{Workspace: "/proj", Home: "/home/u"}
	for _, scope := range []string{"", "project", "mode-", "mode-../x", "Global"} {
		_, err := roots.Resolve(scope, nil)
		assert.ErrorIs(t, err, ErrInvalidScope, "scope %q", scope)
	}
}

func TestModeDirs(t *testing.T) {
	roots := Roots{Workspace: "/proj", Home: "/home/u"}
	ws, global := roots.ModeDirs("debug")
	assert.Equal(t, filepath.Join("/proj", ".roo", "rules-debug"), ws)
	assert.Equal(t, filepath.Join("/home/u", ".roo", "rules-debug"), global)
}

// --- Language ---

func TestLanguage_JSON(t *testing.T) {
	var r Rule
	require.NoError(t, json.Unmarshal([]byte(`{"rule_name":"a","language":"js"}`), &r))
	assert.Equal(t, Lang("js"), r.Language)

	require.NoError(t, json.Unmarshal([]byte(`{"rule_name":"a","language":["css","html"]}`), &r))
	assert.Equal(t, Lang("css", "html"), r.Language)

	out, err := json.Marshal(Lang("js"))
	require.NoError(t, err)
	assert.JSONEq(t, `"js"`, string(out))

	out, err = json.Marshal(Lang("css", "html"))
	require.NoError(t, err)
	assert.JSONEq(t, `["css","html"]`, string(out))

	out, err = json.Marshal(Language(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `"general"`, string(out))
}

func TestLanguage_RejectsObject(t *testing.T) {
	var l Language
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &l))
}

// --- Validation ---

func TestValidate(t *testing.T) {
	ok := sampleRule("no-console-log", "workspace", Lang("js"))
	require.NoError(t, Validate(ok))

	empty := ok
	empty.Content = map[string]any{}
	assert.ErrorIs(t, Validate(empty), ErrEmptyRuleContent)

	missing := ok
	missing.Content = nil
	assert.ErrorIs(t, Validate(missing), ErrEmptyRuleContent)

	badScope := ok
	badScope.Scope = "team"
	assert.ErrorIs(t, Validate(badScope), ErrInvalidScope)

	noScope := ok
	noScope.Scope = ""
	err := Validate(noScope)
	assert.ErrorIs(t, err, ErrInvalidScope)
	assert.NotErrorIs(t, err, ErrInvalidRule)

	noName := ok
	noName.Name = ""
	assert.ErrorIs(t, Validate(noName), ErrInvalidRule)

	traversal := ok
	traversal.Name = "../escape"
	assert.ErrorIs(t, Validate(traversal), ErrInvalidRule)
}

func TestDecodeRule(t *testing.T) {
	r, err := DecodeRule([]byte(`{"rule_name":"a","scope":"global","language":["js","ts"],"rule_content":{"x":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "a", r.Name)
	assert.Equal(t, Lang("js", "ts"), r.Language)

	r, err = DecodeRule([]byte(`{"rule_name":"text-body","scope":"global","rule_content":"use tabs"}`))
	assert.ErrorIs(t, err, ErrEmptyRuleContent)
	assert.Equal(t, "text-body", r.Name)

	r, err = DecodeRule([]byte(`{"rule_name":"bad-lang","scope":"global","language":7,"rule_content":{"x":1}}`))
	assert.ErrorIs(t, err, ErrInvalidRule)
	assert.Equal(t, "bad-lang", r.Name)

	_, err = DecodeRule([]byte(`"just-a-name"`))
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestNormalize_DefaultsLanguage(t *testing.T) {
	r := sampleRule("a", "global", nil).Normalize()
	assert.Equal(t, Lang(General), r.Language)
}

// --- Filter ---

func TestFilter_Apply(t *testing.T) {
	in := []Rule{
		sampleRule("a", "workspace", Lang("js")),
		sampleRule("b", "global", Lang("css", "html")),
		sampleRule("c", "workspace", Lang("general")),
		sampleRule("d", "workspace", nil),
	}

	names := func(rs []Rule) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Name)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, names(Filter{}.Apply(in)))
	assert.Equal(t, []string{"a", "c", "d"}, names(Filter{Scope: "workspace"}.Apply(in)))
	assert.Equal(t, []string{"b"}, names(Filter{Language: "html"}.Apply(in)))
	assert.Equal(t, []string{"a"}, names(Filter{Scope: "workspace", Language: "js"}.Apply(in)))
	assert.Empty(t, Filter{Scope: "global", Language: "js"}.Apply(in))
}

func TestFilter_NoSubstringMatch(t *testing.T) {
	r := sampleRule("a", "workspace", Lang("javascript"))
	assert.False(t, Filter{Language: "java"}.Match(r))
}

// --- Level projection ---

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"1", LevelSummary},
		{"2", LevelScoped},
		{"3", LevelFull},
		{"", LevelFull},
		{"7", LevelFull},
		{"full", LevelFull},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestProject(t *testing.T) {
	r := sampleRule("a", "global", Lang("go"))

	data, err := json.Marshal(Project(r, LevelSummary))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Len(t, m, 2)
	assert.Equal(t, "a", m["rule_name"])
	assert.Contains(t, m, "description")

	data, err = json.Marshal(Project(r, LevelScoped))
	require.NoError(t, err)
	m = nil
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Len(t, m, 4)
	assert.Equal(t, "global", m["scope"])
	assert.Equal(t, "go", m["language"])

	data, err = json.Marshal(Project(r, LevelFull))
	require.NoError(t, err)
	m = nil
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Len(t, m, 6)
	assert.Contains(t, m, "rule_content")
	assert.Contains(t, m, "categories")
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrRuleNotFound, ErrDeleteFailed))
}
