package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/pkg/errors"
)

var chartBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#7EBB81")).
	Padding(0, 1)

var chartLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8A890"))

//Terminal renders messages as styled terminal text.
//Terminals cannot draw Vega-Lite, so charts are rendered as a boxed summary of the spec.
type Terminal struct {
	md    *glamour.TermRenderer
	width int
}

//NewTerminal returns a Terminal renderer wrapping at width. style is a glamour standard style name
//("dark", "light", "notty", ...); empty selects one from the terminal background.
func NewTerminal(width int, style string) (*Terminal, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create markdown renderer")
	}
	return &Terminal{md: md, width: width}, nil
}

//Width returns the wrap width
func (t *Terminal) Width() int {
	return t.width
}

//Render renders m
func (t *Terminal) Render(m conversation.Message) (string, error) {
	switch m.Kind {
	case conversation.KindText:
		out, err := t.md.Render(m.Payload)
		if err != nil {
			return "", errors.Wrap(err, "render markdown")
		}
		return strings.Trim(out, "\n"), nil
	case conversation.KindChart:
		c, err := ParseChart(m.Payload)
		if err != nil {
			return "", err
		}
		return t.chart(c), nil
	default:
		return "", nil
	}
}

func (t *Terminal) chart(c *Chart) string {
	var lines []string

	title := c.Title
	if title == "" {
		title = "Chart"
	}
	lines = append(lines, lipgloss.NewStyle().Bold(true).Render(title))

	if c.Mark != "" {
		lines = append(lines, chartLabelStyle.Render("mark: ")+c.Mark)
	}
	for _, e := range c.Encodings {
		desc := e.Field
		if e.Aggregate != "" {
			if desc == "" {
				desc = e.Aggregate
			} else {
				desc = fmt.Sprintf("%s(%s)", e.Aggregate, desc)
			}
		}
		if e.Type != "" {
			desc += " [" + e.Type + "]"
		}
		lines = append(lines, chartLabelStyle.Render(e.Channel+": ")+desc)
	}
	lines = append(lines, chartLabelStyle.Render("data points: ")+fmt.Sprint(c.Points))

	box := chartBoxStyle
	if t.width > 4 {
		box = box.MaxWidth(t.width)
	}
	return box.Render(strings.Join(lines, "\n"))
}
