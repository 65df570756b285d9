package config

import "errors"

var (
	// ErrParsingConfig wraps failures to parse environment variables into a config struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrConfigNotLoaded is returned when a parse finished without caching a value.
	ErrConfigNotLoaded = errors.New("configuration has not been loaded")

	// ErrNilPointer is returned for a nil destination.
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)
