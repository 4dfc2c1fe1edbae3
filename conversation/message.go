package conversation

//Author is the sender of a Message
type Author int

//Authors
const (
	User Author = iota
	System
)

func (a Author) String() string {
	switch a {
	case User:
		return "User"
	case System:
		return "System"
	default:
		return "Unknown"
	}
}

//Kind selects how a Message payload is rendered. The value is the wire tag used by the knowledge endpoint.
type Kind string

//Kinds
const (
	KindText  Kind = "text" //markdown
	KindChart Kind = "vega" //Vega-Lite JSON spec
)

//Known returns true if the Kind has a rendering path
func (k Kind) Known() bool {
	return k == KindText || k == KindChart
}

//Message is a single entry in the conversation log. Messages are never modified after they are appended.
type Message struct {
	ID      int64
	Author  Author
	Kind    Kind
	Payload string
}

//HistoryEntry is one input/output pair sent back to the server for context
type HistoryEntry struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func cloneHistory(h []HistoryEntry) []HistoryEntry {
	if h == nil {
		return nil
	}
	out := make([]HistoryEntry, len(h))
	copy(out, h)
	return out
}
