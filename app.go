package blogapi

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/blogapi/pkg/appstate"
	"github.com/dmitrymomot/blogapi/pkg/environment"
	"github.com/dmitrymomot/blogapi/pkg/file"
	"github.com/dmitrymomot/blogapi/pkg/logger"
	"github.com/dmitrymomot/blogapi/pkg/pg"
	"github.com/dmitrymomot/blogapi/pkg/post"
	"github.com/dmitrymomot/blogapi/pkg/redis"
)

// App wires the post service to its storage, record store and orphan ledger.
type App struct {
	Config    Config
	State     *appstate.State
	Logger    *slog.Logger
	Storage   file.Storage
	Validator *file.Validator
	Orphans   post.OrphanRecorder
	Metrics   *prometheus.Registry
	Posts     *post.Service

	repo    post.Repository
	s3opts  []file.S3Option
	redisDB goredis.UniversalClient
	checks  map[string]func(context.Context) error
	closers []func() error
}

// Option customizes App construction. Injected dependencies are used as is
// and are not closed by App.Close.
type Option func(*App)

// WithLogger replaces the logger built from Config.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.Logger = l
		}
	}
}

// WithRepository skips the Postgres connection.
func WithRepository(repo post.Repository) Option {
	return func(a *App) {
		if repo != nil {
			a.repo = repo
		}
	}
}

// WithStorage skips building storage from StorageDriver.
func WithStorage(s file.Storage) Option {
	return func(a *App) {
		if s != nil {
			a.Storage = s
		}
	}
}

// WithRedisClient reuses an existing client for the redis orphan ledger.
func WithRedisClient(c goredis.UniversalClient) Option {
	return func(a *App) {
		if c != nil {
			a.redisDB = c
		}
	}
}

// WithS3Options passes options through to file.NewS3Storage.
func WithS3Options(opts ...file.S3Option) Option {
	return func(a *App) {
		a.s3opts = append(a.s3opts, opts...)
	}
}

// New builds the application. On error everything opened so far is closed.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	a := &App{
		Config: cfg,
		State:  appstate.New(cfg.Version),
		checks: make(map[string]func(context.Context) error),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = NewLogger(cfg)
	}

	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Logger.InfoContext(ctx, "application initialized",
		slog.String("storage_driver", cfg.StorageDriver),
		slog.String("orphan_ledger", cfg.OrphanLedger),
		slog.String("version", a.State.Version),
	)
	return a, nil
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg Config) *slog.Logger {
	return logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(environment.LoggerExtractor()),
	)
}

func (a *App) init(ctx context.Context) error {
	if err := a.initStorage(ctx); err != nil {
		return err
	}
	a.Validator = file.NewValidator(a.Config.Upload, file.WithValidatorLogger(a.Logger))

	a.Metrics = prometheus.NewRegistry()
	a.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := post.NewPrometheusObserver(a.Config.MetricsNamespace, a.Metrics)
	if err != nil {
		return err
	}

	if err := a.initRepository(ctx); err != nil {
		return err
	}
	if err := a.initOrphans(ctx); err != nil {
		return err
	}

	a.Posts = post.NewService(a.repo, a.Storage,
		post.WithLogger(a.Logger),
		post.WithValidator(a.Validator),
		post.WithOrphanRecorder(a.Orphans),
		post.WithObserver(observer),
		post.WithSubfolder(a.Config.PostsSubfolder),
	)
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	if a.Storage != nil {
		return nil
	}
	s, err := NewStorage(ctx, a.Config, a.Logger, a.s3opts...)
	if err != nil {
		return err
	}
	a.Storage = s
	return nil
}

// NewStorage builds the blob store selected by cfg.StorageDriver.
func NewStorage(ctx context.Context, cfg Config, log *slog.Logger, s3opts ...file.S3Option) (file.Storage, error) {
	switch cfg.StorageDriver {
	case StorageLocal, "":
		s, err := file.NewLocalStorage(cfg.Local, file.WithLocalLogger(log))
		if err != nil {
			return nil, errors.Join(ErrFailedToInitStorage, err)
		}
		return s, nil
	case StorageS3:
		opts := append([]file.S3Option{file.WithS3Logger(log)}, s3opts...)
		s, err := file.NewS3Storage(ctx, cfg.S3, opts...)
		if err != nil {
			return nil, errors.Join(ErrFailedToInitStorage, err)
		}
		return s, nil
	default:
		return nil, errors.Join(ErrFailedToInitStorage, ErrUnknownStorageDriver)
	}
}

func (a *App) initRepository(ctx context.Context) error {
	if a.repo != nil {
		return nil
	}

	pool, err := pg.Connect(ctx, a.Config.Postgres)
	if err != nil {
		return errors.Join(ErrFailedToInitDatabase, err)
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	a.checks["postgres"] = pg.Healthcheck(pool)

	if a.Config.AutoMigrate {
		if err := pg.MigrateFS(ctx, pool, post.Migrations, "migrations", a.Config.Postgres, a.Logger); err != nil {
			return errors.Join(ErrFailedToInitDatabase, err)
		}
	}

	a.repo = post.NewPGRepository(pool)
	return nil
}

func (a *App) initOrphans(ctx context.Context) error {
	switch a.Config.OrphanLedger {
	case OrphanLedgerLog, "":
		a.Orphans = post.NewLogOrphanRecorder(a.Logger)
		return nil
	case OrphanLedgerRedis:
	default:
		return errors.Join(ErrFailedToInitLedger, ErrUnknownOrphanLedger)
	}

	if a.redisDB == nil {
		client, err := redis.Connect(ctx, a.Config.Redis)
		if err != nil {
			return errors.Join(ErrFailedToInitLedger, err)
		}
		a.redisDB = client
		a.closers = append(a.closers, client.Close)
	}
	a.checks["redis"] = redis.Healthcheck(a.redisDB)
	a.Orphans = redis.NewOrphanSet(a.redisDB, a.Config.Redis.OrphanSetKey)
	return nil
}

// Healthcheck runs every registered probe concurrently and reports all failures.
func (a *App) Healthcheck(ctx context.Context) error {
	names := make([]string, 0, len(a.checks))
	for name := range a.checks {
		names = append(names, name)
	}
	slices.Sort(names)

	var (
		mu   sync.Mutex
		errs = []error{}
		g    errgroup.Group
	)
	for _, name := range names {
		check := a.checks[name]
		g.Go(func() error {
			if err := check(ctx); err != nil {
				a.Logger.ErrorContext(ctx, "healthcheck failed",
					logger.Component(name),
					logger.Error(err),
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrUnhealthy}, errs...)...)
	}
	return nil
}

// Close releases connections opened by New, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
