package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "chatclient",
	Short: "Chat with your organization's data",
	Long: `chatclient asks questions about your organization's data and shows the answers as
text, tables and charts.

Without a subcommand the full screen terminal UI is started. When stdout isn't a terminal
the line mode client is used instead.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return runREPL(cmd, args)
		}
		return runTUI(cmd, args)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("server", "", "knowledge server API URL (default http://localhost:8080/api/1.0)")
	flags.String("email", "", "account email; prompted for if empty")
	flags.String("password", "", "account password; prompted for if empty")
	flags.String("style", "", "markdown style: dark, light, notty or empty for automatic")
	flags.StringVar(&flagConfig, "config", "", "config file (default $XDG_CONFIG_HOME/chatclient/config.yaml)")
	flags.String("log-file", "", "write logs to this file")
	flags.String("log-level", "", "log level: debug, info, warn, error")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

//setupLogging points the global logger at cfg.LogFile. Logs are discarded if no file is configured.
func setupLogging(cfg *clientConfig) (io.Closer, error) {
	if cfg.LogFile == "" {
		log.Logger = zerolog.Nop()
		return nopCloser{}, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	log.Logger = zerolog.New(f).Level(level).With().Timestamp().Logger()
	return f, nil
}

//start resolves configuration, sets up logging and logs in. The returned cleanup function must be called.
func start(cmd *cobra.Command) (*clientConfig, *session, func(), error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	closer, err := setupLogging(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	sess, err := login(cmd.Context(), cfg)
	if err != nil {
		closer.Close()
		return nil, nil, nil, err
	}

	log.Info().Str("server", cfg.Server).Str("email", cfg.Email).Msg("Logged in")
	return cfg, sess, func() { closer.Close() }, nil
}

func newPanel(sess *session) *conversation.Panel {
	return conversation.New(sess.client, conversation.DefaultOptions())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
