package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the process at empty directories and clears every
// variable Load looks at.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", filepath.Join(dir, "home"))
	for _, name := range legacyEnv {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	wd, _ := os.Getwd()
	assert.Equal(t, wd, cfg.Workspace)
	assert.Equal(t, filepath.Join(dir, "home"), cfg.Home)
	assert.Equal(t, "123", cfg.ConversationID)
	assert.Equal(t, filepath.Join(wd, ".roo", "conversations"), cfg.ConversationsDir)
	assert.Equal(t, BackendFiles, cfg.RulesBackend)
	assert.Equal(t, "http://localhost:4000/v1/chat/completions", cfg.AI.URL)
	assert.Equal(t, 120*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Console)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	dir := isolate(t)
	ws := filepath.Join(dir, "project")
	t.Setenv("WORKSPACE_PATH", ws)
	t.Setenv("CONVERSATION_ID", "abc")
	t.Setenv("AI_URL", "https://llm.example.com/v1/chat/completions")
	t.Setenv("AI_KEY", "secret")
	t.Setenv("MODEL_NAME", "gpt-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ws, cfg.Workspace)
	assert.Equal(t, "abc", cfg.ConversationID)
	assert.Equal(t, "https://llm.example.com/v1/chat/completions", cfg.AI.URL)
	assert.Equal(t, "secret", cfg.AI.Key)
	assert.Equal(t, "gpt-test", cfg.AI.Model)
	assert.Equal(t, filepath.Join(ws, ".roo", "conversations"), cfg.ConversationsDir)
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	isolate(t)
	t.Setenv("MODEL_NAME", "legacy")
	t.Setenv("ROOBRIDGE_AI_MODEL", "prefixed")
	t.Setenv("ROOBRIDGE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.AI.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules_backend: database
conversations_dir: chats
ai:
  model: from-file
  timeout: 30s
database:
  driver: postgres
  dsn: postgres://u:p@localhost/rules
log:
  console: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	wd, _ := os.Getwd()
	assert.Equal(t, BackendDatabase, cfg.RulesBackend)
	assert.Equal(t, filepath.Join(wd, "chats"), cfg.ConversationsDir)
	assert.Equal(t, "from-file", cfg.AI.Model)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Log.Console)
}

func TestLoad_WorkspaceConfigIsFound(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roobridge.yaml"), []byte("conversation_id: from-workspace\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-workspace", cfg.ConversationID)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without dsn", map[string]string{"ROOBRIDGE_DATABASE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"ROOBRIDGE_DATABASE_DRIVER": "mysql"}},
		{"unknown backend", map[string]string{"ROOBRIDGE_RULES_BACKEND": "cloud"}},
		{"path-like conversation id", map[string]string{"CONVERSATION_ID": "../x"}},
		{"bad url", map[string]string{"AI_URL": "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
