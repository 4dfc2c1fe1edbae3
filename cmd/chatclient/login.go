package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/korylprince/knowledge-chatbot/gateway"
	"github.com/mattn/go-isatty"
)

const requestTimeout = 2 * time.Minute

type session struct {
	client *gateway.Client
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

//promptCredentials asks for any missing email or password
func promptCredentials(cfg *clientConfig) error {
	var fields []huh.Field
	if cfg.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Validate(required("email")).
			Value(&cfg.Email))
	}
	if cfg.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Validate(required("password")).
			Value(&cfg.Password))
	}
	if len(fields) == 0 {
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCharm()).Run()
}

//login authenticates against the server, prompting for credentials when stdin is a terminal
func login(ctx context.Context, cfg *clientConfig) (*session, error) {
	if cfg.Email == "" || cfg.Password == "" {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return nil, errors.New("email and password must be configured when stdin isn't a terminal")
		}
		if err := promptCredentials(cfg); err != nil {
			return nil, fmt.Errorf("could not read credentials: %w", err)
		}
	}

	client := gateway.NewClient(cfg.Server, &http.Client{Timeout: requestTimeout})
	if err := client.Authenticate(ctx, cfg.Email, cfg.Password); err != nil {
		return nil, err
	}

	return &session{client: client}, nil
}
