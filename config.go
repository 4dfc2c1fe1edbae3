package main

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/korylprince/knowledge-chatbot/api"
	"github.com/rs/zerolog/log"
)

//Config represents options given in the environment
type Config struct {
	SessionDuration int    //in minutes; default: 1440
	SessionBackend  string //memory or redis; default: memory
	RedisAddr       string //required if SessionBackend is redis

	SQLDriver string //mysql or sqlite3; required
	SQLDSN    string //required

	ListenAddr string //addr format used for net.Dial; required
	Prefix     string //url prefix to mount api to without trailing slash

	AIEndpoint string //OpenAI compatible chat completions URL; required
	AIModel    string //required
	AIKey      string //sent as a bearer token if set

	HistoryWindow    int //number of previous exchanges kept; default: 2
	HistoryMaxTokens int //history outputs are truncated to this many tokens; default: 1000, -1 disables
	QueryRowLimit    int //rows returned to the model per query; default: 20
	QueryCacheBytes  int //query result cache size; default: 10485760, -1 disables

	LogLevel string //zerolog level; default: info
}

var config = &Config{}

func checkEmpty(val, name string) {
	if val == "" {
		log.Fatal().Msgf("KNOWLEDGE_%s must be configured", name)
	}
}

func init() {
	err := envconfig.Process("KNOWLEDGE", config)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading configuration from environment")
	}

	if config.SessionDuration == 0 {
		config.SessionDuration = 24 * 60
	}

	switch config.SessionBackend {
	case "":
		config.SessionBackend = "memory"
	case "memory":
	case "redis":
		checkEmpty(config.RedisAddr, "REDISADDR")
	default:
		log.Fatal().Msgf("KNOWLEDGE_SESSIONBACKEND must be memory or redis, not %q", config.SessionBackend)
	}

	checkEmpty(config.SQLDriver, "SQLDRIVER")
	checkEmpty(config.SQLDSN, "SQLDSN")

	switch config.SQLDriver {
	case api.DriverMySQL:
		if !strings.Contains(config.SQLDSN, "parseTime=true") {
			log.Fatal().Msg("mysql DSN must contain \"parseTime=true\"")
		}
	case api.DriverSQLite:
	default:
		log.Fatal().Msgf("KNOWLEDGE_SQLDRIVER must be %s or %s, not %q", api.DriverMySQL, api.DriverSQLite, config.SQLDriver)
	}

	checkEmpty(config.ListenAddr, "LISTENADDR")
	checkEmpty(config.AIEndpoint, "AIENDPOINT")
	checkEmpty(config.AIModel, "AIMODEL")

	if config.HistoryWindow == 0 {
		config.HistoryWindow = 2
	}

	switch {
	case config.HistoryMaxTokens == 0:
		config.HistoryMaxTokens = 1000
	case config.HistoryMaxTokens < 0:
		config.HistoryMaxTokens = 0
	}

	if config.QueryRowLimit == 0 {
		config.QueryRowLimit = 20
	}

	switch {
	case config.QueryCacheBytes == 0:
		config.QueryCacheBytes = 10 << 20
	case config.QueryCacheBytes < 0:
		config.QueryCacheBytes = 0
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}
