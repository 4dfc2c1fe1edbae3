package chatbot

import (
	"strings"
)

// DescribeToolCalls returns a short description of the tool calls for logs
func DescribeToolCalls(calls []ToolCall) string {
	if len(calls) == 0 {
		return ""
	}
	var parts []string
	for _, call := range calls {
		switch call.Function.Name {
		case ToolCollectData:
			parts = append(parts, "Collecting data")
		case ToolListData:
			parts = append(parts, "Listing data")
		case ToolVisualize:
			parts = append(parts, "Drawing a chart")
		case ToolAnalyzeData:
			parts = append(parts, "Analyzing data")
		case ToolAnalyzeChart:
			parts = append(parts, "Analyzing a chart")
		default:
			parts = append(parts, "Running tools")
		}
	}
	return strings.Join(uniqueStrings(parts), " and ")
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
