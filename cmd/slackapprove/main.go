// Package main is the entry point for the slackapprove CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/slackapprove/internal/config"
	"github.com/flemzord/slackapprove/internal/core"
	"github.com/flemzord/slackapprove/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slackapprove",
		Short:         "A Slack approval workflow: request, dispatch, decide",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd(), serviceCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "slackapprove %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				_, _ = fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			_, _ = fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				_, _ = fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func runParams(cfgPath string) app.RunParams {
	return app.RunParams{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start slackapprove with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return app.Run(runParams(cfgPath))
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			// Module Configure/Validate run here too, so bad tokens and bind
			// addresses are caught without starting anything.
			logger, err := app.NewLogger(config.LogConfig{Level: "warn"}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			appCtx := core.NewAppContext(logger, app.DefaultDataDir()).WithModuleConfigs(cfg.Modules)
			application := core.NewApp(appCtx)
			ids := config.Resolve(cfg)
			if err := application.LoadModules(ids); err != nil {
				return err
			}
			defer application.Stop()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				_, _ = fmt.Fprintf(out, "  %s\n", id)
			}

			if show, _ := cmd.Flags().GetBool("print"); show {
				data, err := config.Redacted(cfg)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "\n%s", data)
			}
			return nil
		},
	}
	cmd.Flags().Bool("print", false, "Print the resolved configuration with secrets redacted")
	return cmd
}
