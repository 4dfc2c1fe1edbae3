package chatbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/korylprince/knowledge-chatbot/api"
	"github.com/rs/zerolog/log"
)

// ToolResult is the output of a tool call.
// A Direct result is the final answer and is returned to the user as is.
type ToolResult struct {
	Content string
	Direct  bool
}

// ToolExecutor dispatches tool calls to the dataset and the AI
type ToolExecutor struct {
	client *AIClient
	cache  *QueryCache
	limit  int
}

// NewToolExecutor creates a new tool executor. Queries return at most limit rows.
func NewToolExecutor(client *AIClient, cache *QueryCache, limit int) *ToolExecutor {
	return &ToolExecutor{
		client: client,
		cache:  cache,
		limit:  limit,
	}
}

// Execute runs a tool call. Tool failures are returned as an error observation for the AI, not as an error.
func (e *ToolExecutor) Execute(ctx context.Context, dataset *api.Dataset, name string, arguments string) (*ToolResult, error) {
	var args map[string]interface{}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return errorResult(fmt.Errorf("failed to parse arguments: %w", err)), nil
		}
	}

	var (
		result *ToolResult
		err    error
	)

	switch name {
	case ToolCollectData:
		result, err = e.collectData(ctx, dataset, args)
	case ToolListData:
		result, err = e.listData(ctx, dataset, args)
	case ToolVisualize:
		result, err = e.visualize(ctx, dataset, args)
	case ToolAnalyzeData:
		result, err = e.analyze(ctx, DataInsightPrompt(), args, "data")
	case ToolAnalyzeChart:
		result, err = e.analyze(ctx, ChartInsightPrompt(), args, "spec")
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	if err != nil {
		log.Debug().Err(err).Str("tool", name).Msg("chatbot: tool failed")
		return errorResult(err), nil
	}
	return result, nil
}

func errorResult(err error) *ToolResult {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return &ToolResult{Content: string(data)}
}

func getString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func (e *ToolExecutor) query(ctx context.Context, dataset *api.Dataset, sql string) (string, *api.Table, error) {
	if sql == "" {
		return "", nil, fmt.Errorf("sql is required")
	}

	if t := e.cache.Get(dataset.Org, sql, e.limit); t != nil {
		log.Debug().Str("org", dataset.Org).Msg("chatbot: query cache hit")
		return sql, t, nil
	}

	t, err := dataset.RunQuery(ctx, sql, e.limit)
	if err != nil {
		return sql, nil, err
	}
	e.cache.Put(dataset.Org, sql, e.limit, t)
	return sql, t, nil
}

func (e *ToolExecutor) collectData(ctx context.Context, dataset *api.Dataset, args map[string]interface{}) (*ToolResult, error) {
	sql, t, err := e.query(ctx, dataset, getString(args, "sql"))
	if err != nil {
		return nil, err
	}
	return &ToolResult{Content: fmt.Sprintf("Collected sql: %s\nCollected data:\n%s", sql, t.Markdown())}, nil
}

func (e *ToolExecutor) listData(ctx context.Context, dataset *api.Dataset, args map[string]interface{}) (*ToolResult, error) {
	_, t, err := e.query(ctx, dataset, getString(args, "sql"))
	if err != nil {
		return nil, err
	}
	return &ToolResult{Content: t.Markdown(), Direct: true}, nil
}

func (e *ToolExecutor) visualize(ctx context.Context, dataset *api.Dataset, args map[string]interface{}) (*ToolResult, error) {
	_, t, err := e.query(ctx, dataset, getString(args, "sql"))
	if err != nil {
		return nil, err
	}

	spec, err := BuildChart(getString(args, "question"), t,
		getString(args, "mark"), getString(args, "x"), getString(args, "y"), getString(args, "color"))
	if err != nil {
		return nil, err
	}
	return &ToolResult{Content: spec, Direct: true}, nil
}

func (e *ToolExecutor) analyze(ctx context.Context, system string, args map[string]interface{}, subjectKey string) (*ToolResult, error) {
	question := getString(args, "question")
	subject := getString(args, subjectKey)
	if subject == "" {
		return nil, fmt.Errorf("%s is required", subjectKey)
	}

	insights, err := e.client.Complete(ctx, system, AnalysisInput(question, subjectKey, subject))
	if err != nil {
		return nil, err
	}
	return &ToolResult{Content: insights, Direct: true}, nil
}
