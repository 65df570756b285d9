// Package logger builds *slog.Logger values for the blog services and keeps
// attribute names consistent across packages.
//
// New takes functional options:
//
//   - WithEnvironment, WithDevelopment, WithStaging, WithProduction pick the
//     format and level for APP_ENV and tag every record with the service name.
//   - WithLevel and WithLevelName override the level (LOG_LEVEL).
//   - WithFormat, WithTextFormatter, WithJSONFormatter and WithOutput control output.
//   - WithAttr adds static attributes.
//   - WithContextExtractors and WithContextValue add attributes read from the
//     context of each record (see environment.LoggerExtractor).
//
// Attribute helpers in attr.go name the domain fields: PostID, UserID,
// Reference, Filename, Size, ContentType, Component and Error. Error and
// Errors return an empty attribute for nil errors, so they can be passed
// unconditionally:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "blogapi"),
//		logger.WithLevelName(cfg.LogLevel),
//		logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "post image replaced",
//		logger.PostID(p.ID),
//		logger.Reference(obj.Reference),
//	)
package logger
