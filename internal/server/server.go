// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources that depend on
// abstractions. No business logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/HendryAvila/roobridge/internal/config"
	"github.com/HendryAvila/roobridge/internal/conversation"
	"github.com/HendryAvila/roobridge/internal/dbtools"
	"github.com/HendryAvila/roobridge/internal/gateway"
	"github.com/HendryAvila/roobridge/internal/prompts"
	"github.com/HendryAvila/roobridge/internal/resources"
	"github.com/HendryAvila/roobridge/internal/ruledb"
	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/HendryAvila/roobridge/internal/rulestore"
	"github.com/HendryAvila/roobridge/internal/tools"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Name is the MCP server name, also reported in analysis envelopes.
const Name = "roobridge"

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts and
// resources registered. fs is the filesystem every component reads and
// writes; production passes afero.NewOsFs().
//
// The returned cleanup function closes the rule database and must be
// called on shutdown. It is always non-nil and safe to call.
func New(cfg *config.Config, fs afero.Fs, log *zap.Logger) (*server.MCPServer, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}

	// --- Create shared dependencies ---

	fileStore := rulestore.NewFileStore(fs, rules.Roots{Workspace: cfg.Workspace, Home: cfg.Home}, log)

	cleanup := noop
	db, err := ruledb.New(ruledb.Config{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		DataDir: cfg.Database.DataDir,
	}, log)
	if err != nil {
		if cfg.RulesBackend == config.BackendDatabase {
			return nil, noop, fmt.Errorf("opening rule database: %w", err)
		}
		// The file tier works without the database; only the *_db tools go.
		log.Warn("rule database unavailable, database tools disabled", zap.Error(err))
		db = nil
	} else {
		cleanup = func() {
			if err := db.Close(); err != nil {
				log.Warn("closing rule database", zap.Error(err))
			}
		}
	}

	var active rulestore.Store = fileStore
	if cfg.RulesBackend == config.BackendDatabase {
		active = ruledb.NewTier(db)
	}

	conv := conversation.NewService(
		conversation.NewHTTPClient(cfg.AI.URL, cfg.AI.Key, cfg.AI.Timeout),
		conversation.NewTranscriptStore(fs, cfg.ConversationsDir),
		fs,
		conversation.Options{
			Model:      cfg.AI.Model,
			DefaultID:  cfg.ConversationID,
			Workspace:  cfg.Workspace,
			ServerName: Name,
		},
		log,
	)

	var table gateway.RuleTable
	if db != nil {
		table = db
	}
	dispatcher := gateway.New(active, table, conv, fs, gateway.Options{
		Workspace:      cfg.Workspace,
		ConversationID: cfg.ConversationID,
	}, log)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register rule tools ---

	applyRule := tools.NewApplyRuleTool(active)
	s.AddTool(applyRule.Definition(), applyRule.Handle)

	applyRules := tools.NewApplyRulesTool(active)
	s.AddTool(applyRules.Definition(), applyRules.Handle)

	listRules := tools.NewListRulesTool(active)
	s.AddTool(listRules.Definition(), listRules.Handle)

	deleteRule := tools.NewDeleteRuleTool(active)
	s.AddTool(deleteRule.Definition(), deleteRule.Handle)

	// --- Register conversation tools ---

	processMessage := tools.NewProcessMessageTool(conv)
	s.AddTool(processMessage.Definition(), processMessage.Handle)

	analyzeCode := tools.NewAnalyzeCodeTool(conv)
	s.AddTool(analyzeCode.Definition(), analyzeCode.Handle)

	analyzeFile := tools.NewAnalyzeFileTool(conv)
	s.AddTool(analyzeFile.Definition(), analyzeFile.Handle)

	gw := tools.NewGatewayTool(dispatcher)
	s.AddTool(gw.Definition(), gw.Handle)

	gwBatch := tools.NewGatewayHandlerTool(dispatcher)
	s.AddTool(gwBatch.Definition(), gwBatch.Handle)

	// --- Register database tools ---

	if db != nil {
		registerDBTools(s, db)
	}

	// --- Register prompts ---

	manager := prompts.NewRuleManagerPrompt()
	s.AddPrompt(manager.Definition(), manager.Handle)

	extraction := prompts.NewRuleExtractionPrompt()
	s.AddPrompt(extraction.Definition(), extraction.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(active, fileStore)
	s.AddResource(resourceHandler.RulesResource(), resourceHandler.HandleRules)
	s.AddResource(resourceHandler.ModesResource(), resourceHandler.HandleModes)

	log.Info("server ready",
		zap.String("workspace", cfg.Workspace),
		zap.String("rules_backend", cfg.RulesBackend),
		zap.Bool("database", db != nil),
	)
	return s, cleanup, nil
}

// noop is the cleanup used when no database was opened.
func noop() {}

// registerDBTools registers the rule database tools.
func registerDBTools(s *server.MCPServer, db *ruledb.Store) {
	list := dbtools.NewListTool(db)
	s.AddTool(list.Definition(), list.Handle)

	get := dbtools.NewGetTool(db)
	s.AddTool(get.Definition(), get.Handle)

	apply := dbtools.NewApplyTool(db)
	s.AddTool(apply.Definition(), apply.Handle)

	update := dbtools.NewUpdateTool(db)
	s.AddTool(update.Definition(), update.Handle)

	del := dbtools.NewDeleteTool(db)
	s.AddTool(del.Definition(), del.Handle)
}

// serverInstructions tells the host how the tools fit together.
func serverInstructions() string {
	return `You have access to roobridge, an MCP server that manages Roo coding rules.

## Rules
A rule is a JSON object: rule_name, description, scope ("global", "workspace"
or "mode-<name>"), language (a tag, a list of tags, or "general"),
rule_content (a non-empty object) and categories.

Rules live in the .roo rule tree: workspace rules under <workspace>/.roo/rules,
global rules under ~/.roo/rules and mode rules under .roo/rules-<mode>, with
one subfolder per language. A second store, the rule database, holds rules
extracted from documents.

## Tools
- apply_rule / apply_rules: create or replace rules (same name, scope and language replaces)
- list_rules: list rules, optionally by scope and language
- delete_rule: delete by name; searches workspace, global, then registered modes
- list_rules_db, get_rule_db, apply_rules_db, update_rule_db, delete_rule_db:
  the rule database. Start list_rules_db at level 1 and drill down.
- analyze_file: extract rules from a style guide or standard. Review the
  returned apply_rules_db call with the user before running it.
- process_message, analyze_code: talk to the rule management model.
- ai_gateway / ai_gateway_handler: run the actions the rule management model
  asks for (give_file, list_project_files, list_rules, list_rules_db,
  apply_rules, delete_rules, process_message, confirm_no_change) and pass its
  next reply back. Keep looping until it answers confirm_no_change.

## Resources
- roo://rules: every rule of the active store
- roo://modes: registered mode slugs

Never invent rule_content. Rules must be specific and enforceable.`
}
