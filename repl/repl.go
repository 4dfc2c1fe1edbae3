// Package repl hosts a conversation panel on a line-oriented terminal or pipe.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/korylprince/knowledge-chatbot/render"
	"github.com/rs/zerolog/log"
)

var (
	userPrompt  = color.New(color.FgGreen, color.Bold).SprintFunc()
	systemLabel = color.New(color.FgCyan, color.Bold).SprintFunc()
	notice      = color.New(color.FgYellow).SprintFunc()
)

//REPL reads prompts line by line and prints replies
type REPL struct {
	panel    *conversation.Panel
	renderer render.Renderer
	in       *bufio.Scanner
	out      io.Writer
	printed  int
}

//New returns a REPL for panel reading from in and writing to out
func New(panel *conversation.Panel, renderer render.Renderer, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		panel:    panel,
		renderer: renderer,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

//Run loops until input ends, the user types exit or quit, or ctx is canceled
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "Type your message and press Enter. Type 'exit' to quit.")
	fmt.Fprintln(r.out)
	r.flush()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(r.out, "\n"+userPrompt("You: "))
		if !r.in.Scan() {
			if err := r.in.Err(); err != nil {
				return err
			}
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		}

		input := strings.TrimSpace(r.in.Text())
		if input == "" {
			continue
		}
		if cmd := strings.ToLower(input); cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}

		r.panel.SetDraft(input)
		outcome := r.panel.Submit(ctx)
		log.Debug().Stringer("outcome", outcome).Msg("repl: request resolved")

		r.flush()
		if outcome == conversation.OutcomeEmpty {
			fmt.Fprintln(r.out, notice("(no reply received, try again)"))
		}
	}
}

//flush prints System messages appended since the last flush
func (r *REPL) flush() {
	msgs := r.panel.Messages()
	for _, m := range msgs[r.printed:] {
		if m.Author != conversation.System || !m.Kind.Known() {
			continue
		}
		out, err := r.renderer.Render(m)
		if err != nil {
			log.Debug().Err(err).Int64("id", m.ID).Msg("repl: could not render message")
			out = notice("[chart could not be displayed]")
		}
		fmt.Fprintln(r.out, systemLabel("Assistant: ")+out)
	}
	r.printed = len(msgs)
}
