package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/korylprince/knowledge-chatbot/webui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the chat in a local browser page",
	Long:  "Serve the chat in a local browser page. Charts are drawn with Vega-Lite in the browser.",
	RunE:  runWeb,
}

func init() {
	webCmd.Flags().String("listen", "", "address to serve the page on (default 127.0.0.1:8081)")
	rootCmd.AddCommand(webCmd)
}

func runWeb(cmd *cobra.Command, args []string) error {
	cfg, sess, cleanup, err := start(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	g, ctx := errgroup.WithContext(cmd.Context())

	ui := webui.NewServer(ctx, sess.client, conversation.DefaultOptions())
	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(ui),
	}

	g.Go(func() error {
		fmt.Fprintf(cmd.OutOrStdout(), "Open http://%s in your browser. Press Ctrl+C to quit.\n", cfg.Listen)
		log.Info().Str("addr", cfg.Listen).Msg("Serving web UI")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		ui.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
