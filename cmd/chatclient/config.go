package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//clientConfig holds chatclient options. Values are read from defaults, then the config file,
//then CHATCLIENT_ environment variables, then command line flags.
type clientConfig struct {
	Server   string `yaml:"server"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Style    string `yaml:"style"`
	Listen   string `yaml:"listen"`
	LogFile  string `yaml:"log_file" split_words:"true"`
	LogLevel string `yaml:"log_level" split_words:"true"`
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		Server:   "http://localhost:8080/api/1.0",
		Listen:   "127.0.0.1:8081",
		LogLevel: "info",
	}
}

//defaultConfigPath returns the config file used when --config isn't given
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chatclient", "config.yaml")
}

//loadConfig reads the config file at path and the environment.
//A missing file is only an error if required is true.
func loadConfig(path string, required bool) (*clientConfig, error) {
	cfg := defaultConfig()

	if path != "" {
		buf, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !required:
		case err != nil:
			return nil, fmt.Errorf("could not read config file: %w", err)
		default:
			if err = yaml.Unmarshal(buf, cfg); err != nil {
				return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("CHATCLIENT", cfg); err != nil {
		return nil, fmt.Errorf("could not read configuration from environment: %w", err)
	}

	return cfg, nil
}

//applyFlags overrides cfg with flags set on the command line
func applyFlags(cmd *cobra.Command, cfg *clientConfig) {
	flags := map[string]*string{
		"server":    &cfg.Server,
		"email":     &cfg.Email,
		"password":  &cfg.Password,
		"style":     &cfg.Style,
		"listen":    &cfg.Listen,
		"log-file":  &cfg.LogFile,
		"log-level": &cfg.LogLevel,
	}
	for name, val := range flags {
		f := cmd.Flags().Lookup(name)
		if f != nil && f.Changed {
			*val = f.Value.String()
		}
	}
}

//resolveConfig builds the configuration for cmd
func resolveConfig(cmd *cobra.Command) (*clientConfig, error) {
	path, required := flagConfig, true
	if path == "" {
		path, required = defaultConfigPath(), false
	}

	cfg, err := loadConfig(path, required)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)

	if cfg.Server == "" {
		return nil, errors.New("server must be configured")
	}
	return cfg, nil
}
