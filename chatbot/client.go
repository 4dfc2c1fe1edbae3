package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Message represents a chat message in OpenAI format
type Message struct {
	Role       string     `json:"role"`                   // system, user, assistant, tool
	Content    *string    `json:"content"`                // text content (nil for tool_calls-only messages)
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // for assistant tool call requests
	ToolCallID string     `json:"tool_call_id,omitempty"` // for tool response messages
	Name       string     `json:"name,omitempty"`         // tool name (in tool responses)
}

// MarshalJSON sends null for empty content strings
func (m Message) MarshalJSON() ([]byte, error) {
	type Alias Message
	aux := struct {
		Alias
		Content *string `json:"content"`
	}{
		Alias: Alias(m),
	}
	if m.Content != nil && *m.Content != "" {
		aux.Content = m.Content
	}
	return json.Marshal(aux)
}

// ToolCall represents a tool call request from the assistant
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall contains the function name and arguments
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// Tool represents an OpenAI function tool
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes a function tool
type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"`
}

// ChatRequest is the request body for the chat completions API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"` // "auto", "none", or specific
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// ChatResponse is the response from the chat completions API
type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a single completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage contains token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AIClient is a client for the OpenAI-compatible API
type AIClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewAIClient creates a new AI client. apiKey may be empty for endpoints without authentication.
func NewAIClient(endpoint, model, apiKey string) *AIClient {
	return &AIClient{
		endpoint:   endpoint,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// Chat makes a chat completions request. Answers are generated with temperature 0.
func (c *AIClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*ChatResponse, error) {
	req := ChatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   false,
	}
	if len(tools) > 0 {
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &chatResp, nil
}

// Complete sends a single system and user message without tools and returns the reply text
func (c *AIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.Chat(ctx, []Message{
		{Role: "system", Content: &system},
		{Role: "user", Content: &user},
	}, nil)
	if err != nil {
		return "", err
	}

	msg := resp.Choices[0].Message
	if msg.Content == nil {
		return "", nil
	}
	return *msg.Content, nil
}
