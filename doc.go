// Package blogapi assembles the blog post image service.
//
// New turns a Config into a ready App: a logger, a blob store (local disk or
// S3), the upload validator, the Postgres post repository and an orphan
// ledger (log only or a Redis set), all handed to post.Service.
//
// Basic Usage:
//
//	var cfg blogapi.Config
//	config.MustLoad(&cfg)
//
//	app, err := blogapi.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	p, err := app.Posts.Create(ctx, userID, post.CreateInput{Title: "Hello"},
//		file.NewFileHeaderUpload(fh))
//
// Storage drivers are selected with STORAGE_DRIVER ("local" or "s3") and the
// orphan ledger with ORPHAN_LEDGER ("log" or "redis"). Dependencies passed
// as options (WithRepository, WithStorage, WithRedisClient) are used as is
// and never closed by App.Close.
package blogapi
