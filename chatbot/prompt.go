package chatbot

import (
	"fmt"
	"strings"

	"github.com/korylprince/knowledge-chatbot/api"
)

// SystemPrompt returns the system prompt for the data analysis assistant
func SystemPrompt(dataset *api.Dataset, histories []HistoryEntry) string {
	return fmt.Sprintf(`You are a data analysis expert answering questions about an organization's business data. Answer as best you can, speaking as a data analysis expert.

## Data
The data is stored in read only SQL views:
%s

## Tools
- collect_data: run a SQL query and read the rows yourself. Use it first when you need data to answer a question.
- list_data: show the rows of a SQL query to the user. Use it when the user asks to Get, List, or Retrieve data.
- visualize_data: draw a chart of a SQL query. Use it when the user asks to Draw, Plot, or Visualize data.
- analyze_data: write insights about a markdown table. Use it when the user asks to analyze data.
- analyze_chart: write insights about a Vega-Lite chart. Use it when the user asks to analyze a chart.

## Guidelines
1. Only use the views listed above. Only SELECT statements are allowed. Join views with JOIN ... ON, never with commas, and do not write SQL comments.
2. If a query fails, read the error and try again with a corrected query.
3. Keep final answers short and use markdown formatting.
4. The previous conversation may contain charts as Vega-Lite JSON; pass them to analyze_chart when the user asks about them.

## Previous conversation
%s`, dataset.Schema(), formatHistory(histories))
}

func formatHistory(histories []HistoryEntry) string {
	var b strings.Builder
	for _, h := range histories {
		if h.Input == "" && h.Output == "" {
			continue
		}
		fmt.Fprintf(&b, "Human: %s\nAI: %s\n", h.Input, h.Output)
	}
	if b.Len() == 0 {
		return "(none)"
	}
	return b.String()
}

// DataInsightPrompt returns the system prompt for analyze_data
func DataInsightPrompt() string {
	return `Generate 5 bullet points of insights about the data that answer the user question.
Always answer with markdown formatting and put the crucial information in bold.
Only use the data you are given.`
}

// ChartInsightPrompt returns the system prompt for analyze_chart
func ChartInsightPrompt() string {
	return `Generate 5 bullet points of insights about the chart that answer the user question.
The chart is a Vega-Lite specification and its data is in data.values.
Always answer with markdown formatting and put the crucial information in bold.
Do not describe the specification itself.`
}

// AnalysisInput returns the user message for an analysis request
func AnalysisInput(question, subjectKey, subject string) string {
	if question == "" {
		question = "Give me some insights"
	}
	return fmt.Sprintf("Context:\n- %s: %s\n\nUser question delimited by <>.\n\n<%s>", subjectKey, subject, question)
}
