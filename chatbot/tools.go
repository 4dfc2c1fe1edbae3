package chatbot

// Tool names
const (
	ToolCollectData  = "collect_data"
	ToolListData     = "list_data"
	ToolVisualize    = "visualize_data"
	ToolAnalyzeData  = "analyze_data"
	ToolAnalyzeChart = "analyze_chart"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// GetTools returns all available tool definitions for the AI
func GetTools() []Tool {
	return []Tool{
		{
			Type: "function",
			Function: ToolFunction{
				Name: ToolCollectData,
				Description: "Run a read only SQL query against the organization's data views and return the rows to you. " +
					"Use this first when you need data to answer a question, for example the top 10 products. " +
					"Data can not be added, updated, or deleted.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"sql": stringProp("A single SQL SELECT statement over the data views"),
					},
					"required": []string{"sql"},
				},
			},
		},
		{
			Type: "function",
			Function: ToolFunction{
				Name: ToolListData,
				Description: "Run a read only SQL query and show the rows to the user as a table. " +
					"Use this when the user asks to Get, List, or Retrieve data. The table is returned to the user directly.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"sql": stringProp("A single SQL SELECT statement over the data views"),
					},
					"required": []string{"sql"},
				},
			},
		},
		{
			Type: "function",
			Function: ToolFunction{
				Name: ToolVisualize,
				Description: "Draw a chart of the rows returned by a SQL query. " +
					"Use this when the user asks to Draw, Plot, or Visualize data. The chart is returned to the user directly.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": stringProp("The user's question, used as the chart title"),
						"sql":      stringProp("A single SQL SELECT statement returning the columns to plot"),
						"mark": map[string]interface{}{
							"type":        "string",
							"enum":        []string{"bar", "line", "area", "point", "arc"},
							"description": "The chart type",
						},
						"x":     stringProp("The column for the x axis (or the categories of an arc chart)"),
						"y":     stringProp("The column for the y axis (or the values of an arc chart)"),
						"color": stringProp("Optional column used to color the marks"),
					},
					"required": []string{"question", "sql", "mark", "x", "y"},
				},
			},
		},
		{
			Type: "function",
			Function: ToolFunction{
				Name: ToolAnalyzeData,
				Description: "Write insights about a markdown table of data. " +
					"Use this when the user asks to analyze data. The analysis is returned to the user directly.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": stringProp("The user's question"),
						"data":     stringProp("The data as a markdown table, usually from collect_data"),
					},
					"required": []string{"question", "data"},
				},
			},
		},
		{
			Type: "function",
			Function: ToolFunction{
				Name: ToolAnalyzeChart,
				Description: "Write insights about a Vega-Lite chart. " +
					"Use this when the user asks to analyze a chart, such as one from the previous conversation. " +
					"The analysis is returned to the user directly.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": stringProp("The user's question"),
						"spec":     stringProp("The Vega-Lite JSON specification, including its data"),
					},
					"required": []string{"question", "spec"},
				},
			},
		},
	}
}
