package main

import (
	"os"

	"github.com/korylprince/knowledge-chatbot/render"
	"github.com/korylprince/knowledge-chatbot/repl"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultWidth = 80

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the line mode client",
	Long:  "Start the line mode client. Prompts are read one per line from stdin; type exit to quit.",
	RunE:  runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

//terminalWidth returns the width of stdout, or defaultWidth if it isn't a terminal
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, sess, cleanup, err := start(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	style := cfg.Style
	if style == "" && !term.IsTerminal(int(os.Stdout.Fd())) {
		style = "notty"
	}

	renderer, err := render.NewTerminal(terminalWidth(), style)
	if err != nil {
		return err
	}

	return repl.New(newPanel(sess), renderer, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
}
