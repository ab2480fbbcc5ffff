package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/HendryAvila/roobridge/internal/prompts"
	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ChunkWords is the number of words per user message when a document is
// sent for rule extraction.
const ChunkWords = 512

// Options configures a Service.
type Options struct {
	Model      string
	DefaultID  string // used when Send gets an empty id; a random id when unset
	Workspace  string // base for relative analysis paths
	ServerName string // reported in analysis envelopes
}

// Service mediates conversations with the chat model.
type Service struct {
	client      Completer
	transcripts *TranscriptStore
	fs          afero.Fs
	opts        Options
	log         *zap.Logger

	mu sync.Mutex
}

// NewService wires a Service. fs is used to read files for analysis.
func NewService(client Completer, transcripts *TranscriptStore, fs afero.Fs, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DefaultID == "" {
		opts.DefaultID = uuid.NewString()
	}
	if opts.ServerName == "" {
		opts.ServerName = "roobridge"
	}
	return &Service{
		client:      client,
		transcripts: transcripts,
		fs:          fs,
		opts:        opts,
		log:         log.Named("conversation"),
	}
}

// DefaultID returns the id used when callers do not pass one.
func (s *Service) DefaultID() string {
	return s.opts.DefaultID
}

// Send appends message to the conversation, asks the model for a reply,
// persists both turns and returns the reply. A missing transcript is created
// from the default template. On upstream failure nothing is persisted.
func (s *Service) Send(ctx context.Context, conversationID, message string) (string, error) {
	if conversationID == "" {
		conversationID = s.opts.DefaultID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, found, err := s.transcripts.Load(conversationID)
	if err != nil {
		return "", err
	}
	if !found {
		conv = NewConversation(s.opts.Model, prompts.RuleManagerContext)
		s.log.Info("conversation created", zap.String("id", conversationID))
	}
	if conv.Model == "" {
		conv.Model = s.opts.Model
	}

	conv.Append(RoleUser, message)
	reply, err := s.client.Complete(ctx, conv)
	if err != nil {
		s.log.Error("chat completion failed", zap.String("id", conversationID), zap.Error(err))
		return "", err
	}
	conv.Append(RoleAssistant, reply)

	if err := s.transcripts.Save(conversationID, conv); err != nil {
		return "", err
	}
	s.log.Debug("message exchanged", zap.String("id", conversationID), zap.Int("turns", len(conv.Messages)))
	return reply, nil
}

// AnalysisCall is the tool invocation produced by AnalyzeFile: an
// apply_rules_db call carrying the extracted rules.
type AnalysisCall struct {
	ServerName string            `json:"server_name"`
	ToolName   string            `json:"tool_name"`
	Arguments  AnalysisArguments `json:"arguments"`
}

// AnalysisArguments holds the extracted rules.
type AnalysisArguments struct {
	Rules []rules.Rule `json:"rules"`
}

// AnalyzeFile sends a document to the model with the rule extraction context
// and returns the rules it found as an apply_rules_db call. The exchange is
// one-off and is not stored in any transcript.
func (s *Service) AnalyzeFile(ctx context.Context, path string) (*AnalysisCall, error) {
	data, err := afero.ReadFile(s.fs, s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	chunks := Chunk(Flatten(string(data)), ChunkWords)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s is empty", path)
	}

	conv := &Conversation{Model: s.opts.Model, Temperature: 0}
	conv.Append(RoleSystem, prompts.RuleExtractionContext)
	for _, c := range chunks {
		conv.Append(RoleUser, c)
	}

	reply, err := s.client.Complete(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", path, err)
	}

	var extracted []rules.Rule
	if err := json.Unmarshal([]byte(stripFences(reply)), &extracted); err != nil {
		return nil, fmt.Errorf("%w: model did not return a JSON array of rules: %v", ErrUpstream, err)
	}

	s.log.Info("document analyzed", zap.String("path", path), zap.Int("chunks", len(chunks)), zap.Int("rules", len(extracted)))
	return &AnalysisCall{
		ServerName: s.opts.ServerName,
		ToolName:   "apply_rules_db",
		Arguments:  AnalysisArguments{Rules: extracted},
	}, nil
}

// AnalyzeCode sends a source file, fenced in triple backticks, through the
// conversation and returns the model's reply.
func (s *Service) AnalyzeCode(ctx context.Context, conversationID, path string) (string, error) {
	data, err := afero.ReadFile(s.fs, s.resolve(path))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return s.Send(ctx, conversationID, "```\n"+string(data)+"\n```")
}

func (s *Service) resolve(path string) string {
	if filepath.IsAbs(path) || s.opts.Workspace == "" {
		return path
	}
	return filepath.Join(s.opts.Workspace, path)
}

// Flatten trims every line, drops blank ones and joins the rest with single
// spaces.
func Flatten(text string) string {
	var parts []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// Chunk splits text into pieces of at most size words.
func Chunk(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 || len(words) <= size {
		return []string{strings.Join(words, " ")}
	}
	var out []string
	for i := 0; i < len(words); i += size {
		end := min(i+size, len(words))
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// IsUpstream reports whether err came from the chat endpoint.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}
