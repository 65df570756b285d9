// Package environment carries the application environment (development,
// staging, production) through context.Context and into structured logs.
//
// The typed string Environment has the predefined constants Development,
// Staging and Production. WithContext attaches a value, FromContext reads it
// back and IsDevelopment, IsStaging and IsProduction answer the common
// questions. Missing values are the empty string.
//
// LoggerExtractor plugs into logger.WithContextExtractors so every record
// logged with such a context carries an "env" attribute:
//
//	ctx := environment.WithContext(context.Background(), cfg.AppEnv)
//	log := logger.New(logger.WithContextExtractors(environment.LoggerExtractor()))
//	log.InfoContext(ctx, "migrations applied")
package environment
