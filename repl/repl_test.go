package repl_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/korylprince/knowledge-chatbot/repl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type plainRenderer struct{}

func (plainRenderer) Render(m conversation.Message) (string, error) {
	if m.Kind == conversation.KindChart && !strings.HasPrefix(m.Payload, "{") {
		return "", errors.New("bad chart")
	}
	return m.Payload, nil
}

type scriptedGateway struct {
	replies []*conversation.Response
	reqs    []conversation.Request
}

func (g *scriptedGateway) Send(_ context.Context, req conversation.Request) (*conversation.Response, error) {
	g.reqs = append(g.reqs, req)
	if len(g.replies) == 0 {
		return nil, errors.New("no reply")
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r, nil
}

func run(t *testing.T, gw conversation.Gateway, input string) string {
	t.Helper()
	var out bytes.Buffer
	p := conversation.New(gw, conversation.DefaultOptions())
	require.NoError(t, repl.New(p, plainRenderer{}, strings.NewReader(input), &out).Run(context.Background()))
	return out.String()
}

func TestConversation(t *testing.T) {
	gw := &scriptedGateway{replies: []*conversation.Response{
		{StatusCode: 200, Kind: conversation.KindText, Content: "first", History: []conversation.HistoryEntry{{Input: "one", Output: "first"}}},
		{StatusCode: 200, Kind: conversation.KindText, Content: "second"},
	}}

	out := run(t, gw, "one\n\n  two  \nexit\nignored\n")

	assert.Contains(t, out, "Assistant: "+conversation.Greeting)
	assert.Contains(t, out, "Assistant: first")
	assert.Contains(t, out, "Assistant: second")
	assert.Contains(t, out, "Goodbye!")

	require.Len(t, gw.reqs, 2)
	assert.Equal(t, "one", gw.reqs[0].Prompt)
	assert.Equal(t, []conversation.HistoryEntry{{}, {}}, gw.reqs[0].History)
	assert.Equal(t, "two", gw.reqs[1].Prompt)
	assert.Equal(t, []conversation.HistoryEntry{{Input: "one", Output: "first"}}, gw.reqs[1].History)
}

func TestUserMessagesNotEchoed(t *testing.T) {
	gw := &scriptedGateway{replies: []*conversation.Response{{StatusCode: 200, Kind: conversation.KindText, Content: "ok"}}}
	out := run(t, gw, "unique-question\n")
	assert.NotContains(t, out, "Assistant: unique-question")
}

func TestFailureAndEmpty(t *testing.T) {
	gw := &scriptedGateway{replies: []*conversation.Response{{StatusCode: 500}}}

	out := run(t, gw, "a\nb\n")

	assert.Contains(t, out, "Assistant: "+conversation.FallbackText)
	assert.Contains(t, out, "(no reply received, try again)")
	assert.Equal(t, 1, strings.Count(out, conversation.FallbackText))
}

func TestInvalidChart(t *testing.T) {
	gw := &scriptedGateway{replies: []*conversation.Response{{StatusCode: 200, Kind: conversation.KindChart, Content: "oops"}}}
	out := run(t, gw, "chart\n")
	assert.Contains(t, out, "[chart could not be displayed]")
}

func TestUnknownKindSkipped(t *testing.T) {
	gw := &scriptedGateway{replies: []*conversation.Response{{StatusCode: 200, Kind: "audio", Content: "beep"}}}
	out := run(t, gw, "sound\n")
	assert.NotContains(t, out, "beep")
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := conversation.New(&scriptedGateway{}, conversation.DefaultOptions())
	err := repl.New(p, plainRenderer{}, strings.NewReader("hello\n"), &bytes.Buffer{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
