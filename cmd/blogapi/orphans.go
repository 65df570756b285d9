package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/blogapi"
	"github.com/dmitrymomot/blogapi/pkg/file"
	"github.com/dmitrymomot/blogapi/pkg/logger"
	"github.com/dmitrymomot/blogapi/pkg/redis"
)

func newOrphansCmd(rt *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Inspect or clean up blobs recorded in the Redis orphan ledger",
	}

	withSet := func(run func(cmd *cobra.Command, set *redis.OrphanSet, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			client, err := redis.Connect(cmd.Context(), rt.cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()
			return run(cmd, redis.NewOrphanSet(client, rt.cfg.Redis.OrphanSetKey), args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print recorded references and their last failure",
			Args:  cobra.NoArgs,
			RunE: withSet(func(cmd *cobra.Command, set *redis.OrphanSet, _ []string) error {
				return listOrphans(cmd.Context(), set, cmd.OutOrStdout())
			}),
		},
		&cobra.Command{
			Use:   "forget REFERENCE...",
			Short: "Remove references from the ledger without touching storage",
			Args:  cobra.MinimumNArgs(1),
			RunE: withSet(func(cmd *cobra.Command, set *redis.OrphanSet, args []string) error {
				return set.Remove(cmd.Context(), args...)
			}),
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Delete recorded blobs from storage and forget the ones that are gone",
			Args:  cobra.NoArgs,
			RunE: withSet(func(cmd *cobra.Command, set *redis.OrphanSet, _ []string) error {
				storage, err := blogapi.NewStorage(cmd.Context(), rt.cfg, rt.log)
				if err != nil {
					return err
				}
				return sweepOrphans(cmd.Context(), set, storage, rt.log)
			}),
		},
	)
	return cmd
}

func listOrphans(ctx context.Context, set *redis.OrphanSet, w io.Writer) error {
	refs, err := set.Members(ctx)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		cause, err := set.Cause(ctx, ref)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", ref, cause)
	}
	return nil
}

// sweepOrphans retries the delete of every recorded blob. References whose
// blob is gone, or that the storage does not own, are forgotten.
func sweepOrphans(ctx context.Context, set *redis.OrphanSet, storage file.Storage, log *slog.Logger) error {
	refs, err := set.Members(ctx)
	if err != nil {
		return err
	}

	gone := make([]string, 0, len(refs))
	for _, ref := range refs {
		res := storage.Delete(ctx, ref)
		if res.Failed() {
			log.WarnContext(ctx, "orphan still not deletable", logger.Reference(ref), logger.Error(res.Err))
			continue
		}
		gone = append(gone, ref)
	}

	log.InfoContext(ctx, "orphan sweep finished",
		slog.Int("recorded", len(refs)),
		slog.Int("removed", len(gone)),
	)
	return set.Remove(ctx, gone...)
}
