// Package config loads the bridge configuration from defaults, an optional
// YAML file, a .env file and environment variables.
//
// Precedence, highest first: environment, config file, defaults. Environment
// variables use the ROOBRIDGE_ prefix with dots replaced by underscores
// (ROOBRIDGE_AI_URL); the bare names used by earlier deployments
// (WORKSPACE_PATH, AI_URL, ...) are bound as well.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "roobridge"
	envPrefix  = "ROOBRIDGE"
)

// Rule backends for the file-facing tools and the gateway.
const (
	BackendFiles    = "files"
	BackendDatabase = "database"
)

// Config is the full bridge configuration. It is built once at startup and
// passed by pointer to the composition root.
type Config struct {
	Workspace        string `mapstructure:"workspace" validate:"required"`
	Home             string `mapstructure:"home" validate:"required"`
	ConversationID   string `mapstructure:"conversation_id" validate:"required,excludesall=/\\"`
	ConversationsDir string `mapstructure:"conversations_dir" validate:"required"`
	RulesBackend     string `mapstructure:"rules_backend" validate:"oneof=files database"`

	AI       AIConfig       `mapstructure:"ai"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// AIConfig configures the OpenAI-compatible chat endpoint.
type AIConfig struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	Key     string        `mapstructure:"key"`
	Model   string        `mapstructure:"model" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// DatabaseConfig configures the rule table.
type DatabaseConfig struct {
	Driver  string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
	DataDir string `mapstructure:"data_dir"`
}

// LogConfig configures the logger. An empty File disables the file sink.
type LogConfig struct {
	File    string `mapstructure:"file"`
	Level   string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Console bool   `mapstructure:"console"`
}

// legacyEnv maps config keys to the unprefixed variable names that are
// still honoured.
var legacyEnv = map[string]string{
	"workspace":       "WORKSPACE_PATH",
	"conversation_id": "CONVERSATION_ID",
	"ai.url":          "AI_URL",
	"ai.key":          "AI_KEY",
	"ai.model":        "MODEL_NAME",
	"database.dsn":    "DATABASE_URL",
}

var validate = validator.New()

// Load builds the configuration. path names an explicit config file; when
// empty, roobridge.yaml is searched in the workspace and in ~/.roobridge.
// A missing .env or config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, home, cwd)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name); err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("workspace"))
		v.AddConfigPath(filepath.Join(home, ".roobridge"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, home, cwd string) {
	v.SetDefault("workspace", cwd)
	v.SetDefault("home", home)
	v.SetDefault("conversation_id", "123")
	v.SetDefault("conversations_dir", "")
	v.SetDefault("rules_backend", BackendFiles)

	v.SetDefault("ai.url", "http://localhost:4000/v1/chat/completions")
	v.SetDefault("ai.key", "")
	v.SetDefault("ai.model", "google-vertex/gemini-2.0-flash-thinking-exp-01-21")
	v.SetDefault("ai.timeout", "120s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.data_dir", filepath.Join(home, ".roobridge"))

	v.SetDefault("log.file", filepath.Join(home, ".roobridge", "logs", "roobridge.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
}

// resolvePaths makes workspace-relative settings absolute.
func (c *Config) resolvePaths() {
	if abs, err := filepath.Abs(c.Workspace); err == nil {
		c.Workspace = abs
	}
	if c.ConversationsDir == "" {
		c.ConversationsDir = filepath.Join(c.Workspace, ".roo", "conversations")
	} else if !filepath.IsAbs(c.ConversationsDir) {
		c.ConversationsDir = filepath.Join(c.Workspace, c.ConversationsDir)
	}
}
