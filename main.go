package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/handlers"
	"github.com/korylprince/knowledge-chatbot/api"
	"github.com/korylprince/knowledge-chatbot/chatbot"
	"github.com/korylprince/knowledge-chatbot/httpapi"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func newSessionStore(ctx context.Context) (httpapi.SessionStore, error) {
	duration := time.Minute * time.Duration(config.SessionDuration)
	if config.SessionBackend == "redis" {
		return httpapi.NewRedisSessionStore(ctx, config.RedisAddr, duration)
	}
	return httpapi.NewMemorySessionStore(duration), nil
}

func newAgent() (*chatbot.Agent, error) {
	client := chatbot.NewAIClient(config.AIEndpoint, config.AIModel, config.AIKey)

	window, err := chatbot.NewWindow(config.HistoryWindow, config.HistoryMaxTokens)
	if err != nil {
		return nil, err
	}

	executor := chatbot.NewToolExecutor(client, chatbot.NewQueryCache(config.QueryCacheBytes), config.QueryRowLimit)
	return chatbot.NewAgent(client, executor, window), nil
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(config.LogLevel); err == nil {
		logger = logger.Level(level)
	} else {
		logger.Warn().Str("level", config.LogLevel).Msg("Unknown log level, using info")
	}
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open(config.SQLDriver, config.SQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open database")
	}
	defer db.Close()

	if err = api.Migrate(ctx, db, config.SQLDriver); err != nil {
		log.Fatal().Err(err).Msg("Could not migrate database")
	}

	s, err := newSessionStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create session store")
	}
	defer s.Close()

	agent, err := newAgent()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create agent")
	}

	r := httpapi.NewRouter(logger, s, db, agent)

	chain := handlers.CompressHandler(http.StripPrefix(config.Prefix, r))

	server := &http.Server{Addr: config.ListenAddr, Handler: chain}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Could not shut down server")
		}
	}()

	log.Info().Str("addr", config.ListenAddr).Str("sessions", config.SessionBackend).Str("model", config.AIModel).Msg("Listening")
	if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server stopped")
	}
}
