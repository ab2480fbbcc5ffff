package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Completer sends a chat completion request and returns the first choice.
type Completer interface {
	Complete(ctx context.Context, req *Conversation) (string, error)
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HTTPClient calls an OpenAI-compatible chat completion endpoint.
type HTTPClient struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewHTTPClient creates a client posting to url (the full completions URL).
func NewHTTPClient(url, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// Complete posts the conversation and returns the first choice's content.
// Transport failures, non-2xx statuses and empty choices wrap ErrUpstream.
func (c *HTTPClient) Complete(ctx context.Context, conv *Conversation) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("%w: no chat endpoint configured", ErrUpstream)
	}

	body, err := json.Marshal(conv)
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(respBody))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	if chat.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstream, chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return chat.Choices[0].Message.Content, nil
}
