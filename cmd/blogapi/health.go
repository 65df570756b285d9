package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/blogapi"
)

func newHealthCmd(rt *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Build the application and probe its storage, database and ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			app, err := blogapi.New(ctx, rt.cfg, blogapi.WithLogger(rt.log))
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Healthcheck(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
