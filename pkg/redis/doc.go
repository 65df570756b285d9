// Package redis connects to Redis with go-redis and keeps the ledger of
// orphaned image blobs.
//
// Connect parses REDIS_URL and pings the server with retries. Healthcheck
// wraps a ping for readiness probes.
//
// OrphanSet stores references of blobs whose deletion failed in a Redis set,
// with the last failure cause in a companion hash. It satisfies the post
// package's OrphanRecorder, so the post service can report leftovers there:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	orphans := redis.NewOrphanSet(client, cfg.OrphanSetKey)
//	svc := post.NewService(repo, storage, post.WithOrphanRecorder(orphans))
//
// A sweeper can later read Members, delete the blobs and call Remove;
// the blogapi CLI does this with "orphans sweep".
package redis
