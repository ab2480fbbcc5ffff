package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/roobridge/internal/ruledb"
	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/HendryAvila/roobridge/internal/rulestore"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Acknowledgement reasons.
const (
	AckNoChange        = "confirm-no-change"
	ReasonAlreadyMatch = "Rules already match detected patterns and user intent"
)

// Ack is the fixed shape of no-op and summary results.
type Ack struct {
	Action  string   `json:"action"`
	Reason  string   `json:"reason"`
	Details []string `json:"details,omitempty"`
}

// NoChange returns the single-element no-op acknowledgement.
func NoChange(reason string) []Ack {
	return []Ack{{Action: AckNoChange, Reason: reason}}
}

// ErrorAck is the acknowledgement returned when an action or the
// conversation fails.
func ErrorAck(err error) []Ack {
	return NoChange("Error processing action: " + err.Error())
}

// Conversation is the part of the conversation service the dispatcher uses.
type Conversation interface {
	Send(ctx context.Context, conversationID, message string) (string, error)
}

// RuleTable is the read side of the rule database.
type RuleTable interface {
	List(ctx context.Context) ([]ruledb.Record, error)
}

// Options configures a Dispatcher.
type Options struct {
	Workspace      string
	ConversationID string
	IgnoreDirs     []string
}

// Dispatcher executes gateway actions.
type Dispatcher struct {
	rules  rulestore.Store
	table  RuleTable
	conv   Conversation
	files  projectFiles
	convID string
	log    *zap.Logger
}

// New creates a Dispatcher. table may be nil when no database is configured;
// list_rules_db then fails.
func New(store rulestore.Store, table RuleTable, conv Conversation, fs afero.Fs, opts Options, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	ignore := opts.IgnoreDirs
	if ignore == nil {
		ignore = DefaultIgnoreDirs
	}
	return &Dispatcher{
		rules:  store,
		table:  table,
		conv:   conv,
		files:  projectFiles{fs: fs, root: opts.Workspace, ignore: ignore},
		convID: opts.ConversationID,
		log:    log.Named("gateway"),
	}
}

// Execute runs one action and returns its result value.
func (d *Dispatcher) Execute(ctx context.Context, action Action) (any, error) {
	switch a := action.(type) {
	case GiveFile:
		return d.giveFile(a)
	case ListProjectFiles:
		tree, err := d.files.tree(d.files.root)
		if err != nil {
			return nil, err
		}
		return []any{tree}, nil
	case ListRules:
		listed, err := d.rules.List(ctx, a.Filter)
		if err != nil {
			return nil, err
		}
		if listed == nil {
			listed = []rules.Rule{}
		}
		return listed, nil
	case ListRulesDB:
		return d.listRulesDB(ctx, a)
	case ApplyRules:
		return d.applyRules(ctx, a), nil
	case DeleteRules:
		return d.deleteRules(ctx, a), nil
	case ProcessMessage:
		return d.conv.Send(ctx, d.convID, a.UserMessage)
	case ConfirmNoChange:
		return NoChange(ReasonAlreadyMatch), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

// Handle decodes and runs one descriptor, reports its trace to the
// conversation and returns the conversation's reply. Failures anywhere come
// back as an error acknowledgement; nothing is returned as an error.
func (d *Dispatcher) Handle(ctx context.Context, desc Descriptor) any {
	entry, err := d.run(ctx, desc)
	if err != nil {
		if _, sendErr := d.conv.Send(ctx, d.convID, entry); sendErr != nil {
			d.log.Warn("could not report failed action", zap.Error(sendErr))
		}
		return ErrorAck(err)
	}

	reply, err := d.conv.Send(ctx, d.convID, entry)
	if err != nil {
		d.log.Error("conversation failed", zap.Error(err))
		return ErrorAck(err)
	}
	return reply
}

// HandleBatch runs every descriptor in order without stopping on failure,
// sends the joined trace to the conversation once and returns its reply.
func (d *Dispatcher) HandleBatch(ctx context.Context, descs []Descriptor) any {
	entries := make([]string, 0, len(descs))
	for _, desc := range descs {
		entry, _ := d.run(ctx, desc)
		entries = append(entries, entry)
	}

	reply, err := d.conv.Send(ctx, d.convID, strings.Join(entries, "\n"))
	if err != nil {
		d.log.Error("conversation failed", zap.Int("actions", len(descs)), zap.Error(err))
		return ErrorAck(err)
	}
	return reply
}

// run executes one descriptor and returns its trace entry. The error is the
// action's own failure, already recorded in the entry.
func (d *Dispatcher) run(ctx context.Context, desc Descriptor) (string, error) {
	name := desc.ActionName()
	entry := fmt.Sprintf("Action: %s, Params: %s", name, jsonText(desc.Params()))

	action, err := Decode(desc)
	if err == nil {
		var result any
		result, err = d.Execute(ctx, action)
		if err == nil {
			d.log.Debug("action executed", zap.String("action", name))
			return entry + ", Result: " + jsonText(result), nil
		}
	}

	d.log.Warn("action failed", zap.String("action", name), zap.Error(err))
	return entry + ", Error: " + err.Error(), err
}

func (d *Dispatcher) giveFile(a GiveFile) (any, error) {
	path, ok := d.files.find(a.FilePath)
	if !ok {
		return NoChange(fmt.Sprintf("File %q not found.", a.FilePath)), nil
	}
	content, err := d.files.read(path)
	if err != nil {
		return nil, err
	}
	return []any{Compress(content)}, nil
}

func (d *Dispatcher) listRulesDB(ctx context.Context, a ListRulesDB) (any, error) {
	if d.table == nil {
		return nil, errors.New("rule database is not configured")
	}
	recs, err := d.table.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rule database: %w", err)
	}
	all := make([]rules.Rule, len(recs))
	for i, rec := range recs {
		all[i] = rec.Rule
	}
	return rules.ProjectAll(a.Filter.Apply(all), a.Level), nil
}

func (d *Dispatcher) applyRules(ctx context.Context, a ApplyRules) []string {
	results := make([]string, 0, len(a.Rules))
	for _, entry := range a.Rules {
		r := entry.Rule
		err := entry.Err
		var msg string
		if err == nil {
			msg, err = d.rules.Apply(ctx, r)
		}
		if err != nil {
			d.log.Warn("apply failed", zap.String("rule", r.Name), zap.Error(err))
			results = append(results, fmt.Sprintf("Error applying rule '%s': %v", r.Name, err))
			continue
		}
		results = append(results, msg)
	}
	return results
}

func (d *Dispatcher) deleteRules(ctx context.Context, a DeleteRules) []Ack {
	details := make([]string, 0, len(a.Targets))
	names := make([]string, 0, len(a.Targets))
	for _, target := range a.Targets {
		names = append(names, target.Name)
		res, err := d.rules.Delete(ctx, target.Name, target.Language)
		if err != nil {
			details = append(details, fmt.Sprintf("Error deleting rule '%s': %v", target.Name, err))
			continue
		}
		details = append(details, res.Message())
	}
	return []Ack{{
		Action:  "delete",
		Reason:  "Processed rules: " + strings.Join(names, ", "),
		Details: details,
	}}
}

func jsonText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return string(data)
}
