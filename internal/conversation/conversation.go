// Package conversation keeps chat transcripts with the rule management model
// and talks to an OpenAI-compatible chat completion endpoint.
//
// A transcript is one JSON file per conversation id. New transcripts start
// from a template that carries the rule management context and a few priming
// turns; every Send appends the user message and the model's reply.
package conversation

import (
	"errors"
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrUpstream marks failures of the chat completion endpoint.
	ErrUpstream = errors.New("upstream chat service error")
	// ErrInvalidConversationID rejects ids that cannot be used as file names.
	ErrInvalidConversationID = errors.New("invalid conversation id")
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the persisted transcript. Its shape is also the chat
// completion request body.
type Conversation struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// Append adds a message at the end of the transcript.
func (c *Conversation) Append(role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
}

// Last returns the final message, or an empty Message for an empty transcript.
func (c *Conversation) Last() Message {
	if len(c.Messages) == 0 {
		return Message{}
	}
	return c.Messages[len(c.Messages)-1]
}

// NewConversation builds a fresh transcript from the default template: the
// system context followed by priming turns that pin the reply format.
func NewConversation(model, systemContext string) *Conversation {
	return &Conversation{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemContext + "\n\nDo not reply to this context message."},
			{Role: RoleUser, Content: "Answer only with MCP function calls that name ai_gateway or ai_gateway_handler. No plain text."},
			{Role: RoleUser, Content: "A reply that does not mention ai_gateway or ai_gateway_handler is treated as plain talk and ignored."},
			{Role: RoleAssistant, Content: "I will only respond with function calls, no normal text or commentary."},
		},
		Temperature: 0,
		Stream:      false,
	}
}

// ValidateID rejects empty ids and ids that would escape the transcript
// directory.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidConversationID)
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	return nil
}
