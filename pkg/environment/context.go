package environment

import (
	"context"
	"strings"
)

// Environment represents application environment.
type Environment string

const (
	// Development for development environment.
	Development Environment = "development"
	// Production for production environment.
	Production Environment = "production"
	// Staging for staging environment.
	Staging Environment = "staging"
)

// Parse normalizes an APP_ENV value, accepting the short forms "dev",
// "stage" and "prod". Anything unrecognized is Development.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Production), "prod":
		return Production
	case string(Staging), "stage":
		return Staging
	default:
		return Development
	}
}

type contextKey struct{}

// WithContext stores env in ctx as given.
func WithContext(ctx context.Context, env string) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext returns the stored value or "" if there is none.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(string)
	return env
}

// Is reports whether ctx carries an environment that parses to want.
// A context without an environment matches nothing.
func Is(ctx context.Context, want Environment) bool {
	env := FromContext(ctx)
	return env != "" && Parse(env) == want
}

func IsProduction(ctx context.Context) bool  { return Is(ctx, Production) }
func IsStaging(ctx context.Context) bool     { return Is(ctx, Staging) }
func IsDevelopment(ctx context.Context) bool { return Is(ctx, Development) }
