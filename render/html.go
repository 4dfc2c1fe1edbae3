// Package render turns conversation messages into displayable output.
//
// Text messages are markdown with GitHub-flavored tables and double-tilde strikethrough, and raw embedded
// markup is passed through. Chart messages are Vega-Lite specs. Messages of any other kind
// render to nothing.
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/pkg/errors"
	"github.com/tidwall/sjson"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

//Renderer renders a single message body. It returns an empty string for kinds it does not know.
type Renderer interface {
	Render(m conversation.Message) (string, error)
}

//HTML renders messages to HTML fragments for a browser host.
//Charts become a container element plus a JSON script element; the page runs vega-embed on every
//element with the "chart" class.
type HTML struct {
	md goldmark.Markdown
}

//NewHTML returns a new HTML renderer
func NewHTML() *HTML {
	return &HTML{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Linkify, extension.TaskList, strikethrough{}),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

//Render renders m
func (h *HTML) Render(m conversation.Message) (string, error) {
	switch m.Kind {
	case conversation.KindText:
		return h.Markdown(m.Payload)
	case conversation.KindChart:
		return h.chart(m.ID, m.Payload)
	default:
		return "", nil
	}
}

//Markdown converts markdown source to HTML
func (h *HTML) Markdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(source), &buf); err != nil {
		return "", errors.Wrap(err, "convert markdown")
	}
	return buf.String(), nil
}

func (h *HTML) chart(id int64, payload string) (string, error) {
	c, err := ParseChart(payload)
	if err != nil {
		return "", err
	}

	spec, err := sjson.Set(c.Spec, "width", "container")
	if err != nil {
		return "", errors.Wrap(err, "set chart width")
	}
	//keep the spec from closing its own script element
	spec = strings.ReplaceAll(spec, "</", `<\/`)

	elID := fmt.Sprintf("chart-%d", id)
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="chart" id="%s" data-spec="%s-spec"`, elID, elID)
	if c.Title != "" {
		fmt.Fprintf(&b, ` aria-label="%s"`, html.EscapeString(c.Title))
	}
	b.WriteString("></div>\n")
	fmt.Fprintf(&b, `<script type="application/json" id="%s-spec">%s</script>`, elID, spec)
	b.WriteString("\n")
	return b.String(), nil
}
