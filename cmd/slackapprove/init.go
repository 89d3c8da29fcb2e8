package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Secrets are written as environment references and resolved at load time.
const (
	envBotToken      = "${SLACK_BOT_TOKEN}"
	envSigningSecret = "${SLACK_SIGNING_SECRET}"
	envAppToken      = "${SLACK_APP_TOKEN}"
	envTokenKey      = "${SLACKAPPROVE_TOKEN_KEY}"
)

// answers holds the wizard's choices.
type answers struct {
	Mode       string
	Command    string
	Bind       string
	Ledger     string
	RedisAddr  string
	SignTokens bool
}

func defaultAnswers() answers {
	return answers{
		Mode:       "http",
		Command:    "/approval-test",
		Bind:       "0.0.0.0:3000",
		Ledger:     "memory",
		RedisAddr:  "localhost:6379",
		SignTokens: true,
	}
}

// renderConfig turns a set of answers into a config file.
func renderConfig(a answers) ([]byte, error) {
	slackCfg := map[string]any{
		"mode":      a.Mode,
		"bot_token": envBotToken,
		"command":   a.Command,
	}
	if a.SignTokens {
		slackCfg["token_key"] = envTokenKey
	}

	modules := map[string]any{"channel.slack": slackCfg}

	switch a.Mode {
	case "http":
		slackCfg["signing_secret"] = envSigningSecret
		modules["gateway.http"] = map[string]any{"bind": a.Bind}
	case "socket":
		slackCfg["app_token"] = envAppToken
	default:
		return nil, fmt.Errorf("unknown mode %q", a.Mode)
	}

	switch a.Ledger {
	case "none":
	case "memory":
		modules["ledger.memory"] = map[string]any{"ttl": "168h"}
	case "sqlite":
		modules["ledger.sqlite"] = map[string]any{"ttl": "168h"}
	case "redis":
		modules["ledger.redis"] = map[string]any{"addr": a.RedisAddr, "ttl": "168h"}
	default:
		return nil, fmt.Errorf("unknown ledger %q", a.Ledger)
	}

	doc := map[string]any{
		"version": "1",
		"log":     map[string]any{"level": "info", "format": "text"},
		"modules": modules,
	}
	return yaml.Marshal(doc)
}

func validateCommand(s string) error {
	if !strings.HasPrefix(s, "/") || len(s) < 2 {
		return errors.New("command must start with / and have a name")
	}
	return nil
}

func validateBind(s string) error {
	if _, err := net.ResolveTCPAddr("tcp", s); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	return nil
}

func runWizard(a *answers) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How should Slack reach slackapprove?").
				Options(
					huh.NewOption("HTTP request URLs (needs a public endpoint)", "http"),
					huh.NewOption("Socket Mode (outbound websocket)", "socket"),
				).
				Value(&a.Mode),
			huh.NewInput().
				Title("Slash command").
				Value(&a.Command).
				Validate(validateCommand),
			huh.NewConfirm().
				Title("Sign decision tokens?").
				Description("Reads the key from $SLACKAPPROVE_TOKEN_KEY.").
				Value(&a.SignTokens),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gateway listen address").
				Value(&a.Bind).
				Validate(validateBind),
		).WithHideFunc(func() bool { return a.Mode != "http" }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Decision ledger").
				Options(
					huh.NewOption("In memory (single replica)", "memory"),
					huh.NewOption("SQLite file", "sqlite"),
					huh.NewOption("Redis (shared across replicas)", "redis"),
					huh.NewOption("None", "none"),
				).
				Value(&a.Ledger),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Redis address").
				Value(&a.RedisAddr),
		).WithHideFunc(func() bool { return a.Ledger != "redis" }),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errors.New("aborted")
	}
	return err
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "slackapprove.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			a := defaultAnswers()
			if err := runWizard(&a); err != nil {
				return err
			}
			data, err := renderConfig(a)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Wrote %s\n", path)
			_, _ = fmt.Fprintln(out, "Set SLACK_BOT_TOKEN before starting.")
			switch a.Mode {
			case "http":
				_, _ = fmt.Fprintln(out, "Set SLACK_SIGNING_SECRET and point Slack at /webhooks/slack.")
			case "socket":
				_, _ = fmt.Fprintln(out, "Set SLACK_APP_TOKEN (connections:write).")
			}
			if a.SignTokens {
				_, _ = fmt.Fprintln(out, "Set SLACKAPPROVE_TOKEN_KEY to a random secret.")
			}
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}
