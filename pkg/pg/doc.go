// Package pg bootstraps PostgreSQL access with the pgx/v5 driver: a
// connection pool with startup retries, goose migrations and a health check.
//
// Config is populated from environment variables (PG_CONN_URL and the pool
// and retry settings, see the field tags). Connect opens a *pgxpool.Pool and
// pings it, retrying with a linearly growing delay. Migrate applies goose
// migrations from a directory on disk; MigrateFS applies migrations embedded
// in a binary:
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.MigrateFS(ctx, pool, post.Migrations, "migrations", cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck returns a func(context.Context) error suitable for readiness
// probes. IsNotFoundError recognizes pgx.ErrNoRows behind wrapped errors.
package pg
