package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/korylprince/knowledge-chatbot/api"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// DefaultMaxIterations is the number of AI requests an Agent makes before giving up
const DefaultMaxIterations = 10

// Answer is the result of an Agent run
type Answer struct {
	Type      string
	Content   string
	Histories []HistoryEntry
}

// Agent answers questions about a Dataset with an AI tool loop
type Agent struct {
	client        *AIClient
	executor      *ToolExecutor
	window        *Window
	maxIterations int
}

// NewAgent creates a new Agent
func NewAgent(client *AIClient, executor *ToolExecutor, window *Window) *Agent {
	return &Agent{
		client:        client,
		executor:      executor,
		window:        window,
		maxIterations: DefaultMaxIterations,
	}
}

// ClassifyOutput returns AnswerChart if output is a JSON object, otherwise AnswerText
func ClassifyOutput(output string) string {
	output = strings.TrimSpace(output)
	if gjson.Valid(output) && gjson.Parse(output).IsObject() {
		return AnswerChart
	}
	return AnswerText
}

// Run answers prompt using the previous histories. The returned histories are the window after this exchange.
// ctx must carry the transaction used for queries.
func (a *Agent) Run(ctx context.Context, dataset *api.Dataset, prompt string, histories []HistoryEntry) (*Answer, error) {
	system := SystemPrompt(dataset, a.window.Apply(histories))
	messages := []Message{
		{Role: "system", Content: &system},
		{Role: "user", Content: &prompt},
	}
	tools := GetTools()

	output, err := a.loop(ctx, dataset, messages, tools)
	if err != nil {
		return nil, err
	}

	next := make([]HistoryEntry, len(histories), len(histories)+1)
	copy(next, histories)
	next = append(next, HistoryEntry{Input: prompt, Output: output})

	return &Answer{
		Type:      ClassifyOutput(output),
		Content:   output,
		Histories: a.window.Apply(next),
	}, nil
}

func (a *Agent) loop(ctx context.Context, dataset *api.Dataset, messages []Message, tools []Tool) (string, error) {
	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.client.Chat(ctx, messages, tools)
		if err != nil {
			return "", fmt.Errorf("AI request failed: %w", err)
		}

		assistantMsg := resp.Choices[0].Message
		messages = append(messages, assistantMsg)

		if len(assistantMsg.ToolCalls) == 0 {
			if assistantMsg.Content == nil {
				return "", nil
			}
			return strings.TrimSpace(*assistantMsg.Content), nil
		}

		log.Debug().Str("org", dataset.Org).Str("tools", DescribeToolCalls(assistantMsg.ToolCalls)).Msg("chatbot: running tools")

		results := a.executeToolsParallel(ctx, dataset, assistantMsg.ToolCalls)

		for _, tr := range results {
			if tr.direct {
				return tr.content, nil
			}
		}

		for _, tr := range results {
			content := tr.content
			messages = append(messages, Message{
				Role:       "tool",
				Content:    &content,
				ToolCallID: tr.id,
				Name:       tr.name,
			})
		}
	}

	return "", fmt.Errorf("no answer after %d AI requests", a.maxIterations)
}

type toolResult struct {
	id      string
	name    string
	content string
	direct  bool
}

func (a *Agent) executeToolsParallel(ctx context.Context, dataset *api.Dataset, calls []ToolCall) []toolResult {
	results := make([]toolResult, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc ToolCall) {
			defer wg.Done()
			tr := toolResult{id: tc.ID, name: tc.Function.Name}

			res, err := a.executor.Execute(ctx, dataset, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				data, _ := json.Marshal(map[string]string{"error": err.Error()})
				tr.content = string(data)
			} else {
				tr.content = res.Content
				tr.direct = res.Direct
			}
			results[idx] = tr
		}(i, call)
	}

	wg.Wait()
	return results
}
