package chatbot

// ConvRequest is the request body of the knowledge endpoint
type ConvRequest struct {
	PromptInput string         `json:"prompt_input"`
	Histories   []HistoryEntry `json:"histories"`
}

// ConvResponse is the response body of the knowledge endpoint.
// Status is repeated in the body so clients can check it without the HTTP status.
type ConvResponse struct {
	Status    int            `json:"status"`
	Type      string         `json:"type"`            // AnswerText or AnswerChart
	Content   string         `json:"content"`         // markdown or a Vega-Lite spec
	Histories []HistoryEntry `json:"histories"`       // replaces the client's window
	Error     string         `json:"error,omitempty"` // set when Status is not 200
}

// HistoryEntry is one previous exchange
type HistoryEntry struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Answer types
const (
	AnswerText  = "text"
	AnswerChart = "vega"
)
