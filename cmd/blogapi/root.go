package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/blogapi"
	"github.com/dmitrymomot/blogapi/pkg/appstate"
	"github.com/dmitrymomot/blogapi/pkg/config"
	"github.com/dmitrymomot/blogapi/pkg/environment"
	"github.com/dmitrymomot/blogapi/pkg/logger"
)

// cli holds what every subcommand needs once the root PersistentPreRunE ran.
type cli struct {
	cfg   blogapi.Config
	log   *slog.Logger
	state *appstate.State
}

func newRootCmd() *cobra.Command {
	rt := &cli{}
	var envFile string

	cmd := &cobra.Command{
		Use:           "blogapi",
		Short:         "Maintenance commands for the blog image service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := config.LoadEnv(envFile); err != nil {
					return err
				}
			}
			if err := config.Load(&rt.cfg); err != nil {
				return err
			}
			if version != "" {
				rt.cfg.Version = version
			}

			rt.log = blogapi.NewLogger(rt.cfg)
			logger.SetAsDefault(rt.log)
			rt.state = appstate.New(rt.cfg.Version)

			cmd.SetContext(environment.WithContext(cmd.Context(), rt.cfg.Env))
			rt.log.DebugContext(cmd.Context(), "starting", attrsToArgs(rt.state.LogAttrs())...)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			rt.log.DebugContext(cmd.Context(), "finished", slog.String("uptime", rt.state.UptimeString()))
		},
	}

	cmd.Version = appstate.DefaultVersion
	if version != "" {
		cmd.Version = version
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file first")

	cmd.AddCommand(
		newMigrateCmd(rt),
		newHealthCmd(rt),
		newOrphansCmd(rt),
	)
	return cmd
}

func attrsToArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return args
}
