package main

import (
	"github.com/korylprince/knowledge-chatbot/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the full screen terminal UI",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, sess, cleanup, err := start(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return tui.Run(cmd.Context(), newPanel(sess), cfg.Style)
}
