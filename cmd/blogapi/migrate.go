package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/blogapi/pkg/pg"
	"github.com/dmitrymomot/blogapi/pkg/post"
)

func newMigrateCmd(rt *cli) *cobra.Command {
	var fromDisk bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the posts schema migrations",
		Long: "Apply the posts schema migrations embedded in the binary.\n" +
			"With --from-disk the SQL files in PG_MIGRATIONS_PATH are applied instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			pool, err := pg.Connect(ctx, rt.cfg.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			if fromDisk {
				err = pg.Migrate(ctx, pool, rt.cfg.Postgres, rt.log)
			} else {
				err = pg.MigrateFS(ctx, pool, post.Migrations, "migrations", rt.cfg.Postgres, rt.log)
			}
			if err != nil {
				return err
			}
			rt.log.InfoContext(ctx, "migrations applied", "from_disk", fromDisk)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromDisk, "from-disk", false, "apply migrations from PG_MIGRATIONS_PATH")
	return cmd
}
