// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv (.env files) with
// github.com/caarlos0/env/v11 (struct tags). Each config type is parsed once
// and cached by type name, so packages can call Load for the same struct
// without re-reading the environment.
//
//	var cfg blogapi.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// The first Load reads ./.env if present. LoadEnv loads specific files and
// overrides variables already set; MustLoad and MustLoadEnv panic instead of
// returning errors, for use in main.
//
// Tests that change the environment can call ResetCache or ForceReloadConfig.
//
// Errors: ErrParsingConfig wraps env parse failures, ErrNilPointer is
// returned for a nil destination.
package config
