package main

import (
	"fmt"
	"log/slog"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/slackapprove/pkg/app"
)

// program adapts the runtime to the service manager's Start/Stop contract.
// Start must not block.
type program struct {
	params app.RunParams
	rt     *app.Runtime
}

func (p *program) Start(_ service.Service) error {
	rt, err := app.Build(p.params)
	if err != nil {
		return err
	}
	if err := rt.Start(); err != nil {
		return err
	}
	p.rt = rt
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.rt != nil {
		p.rt.Stop()
	}
	return nil
}

func newService(cfgPath string) (service.Service, error) {
	args := []string{"service", "run"}
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	return service.New(&program{params: runParams(cfgPath)}, &service.Config{
		Name:        "slackapprove",
		DisplayName: "Slack Approvals",
		Description: "Slack approval workflow: request, dispatch, decide.",
		Arguments:   args,
	})
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage slackapprove as a system service",
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")

	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfgPath, _ := cmd.Flags().GetString("config")
				svc, err := newService(cfgPath)
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			svc, err := newService(cfgPath)
			if err != nil {
				return err
			}
			if !service.Interactive() {
				slog.Info("running under service manager", "platform", service.Platform())
			}
			return svc.Run()
		},
	})
	return cmd
}
