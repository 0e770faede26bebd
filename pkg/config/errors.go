package config

import (
	"errors"
	"fmt"
)

// Configuration errors. They are always wrapped in a *ConfigurationError
// naming the offending key, so callers can use errors.Is on the sentinel
// and errors.As to recover the key.
var (
	// ErrMissingAPIKey is returned when the LLM credential is absent or empty.
	ErrMissingAPIKey = errors.New("environment variable is required")

	// ErrInvalidInteger is returned when a numeric setting does not parse.
	ErrInvalidInteger = errors.New("must be an integer")

	// ErrInvalidPort is returned when the port is outside 1-65535.
	ErrInvalidPort = errors.New("port must be between 1 and 65535")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be a positive number of milliseconds")

	// ErrInvalidMaxSteps is returned when the agent step budget is not positive.
	ErrInvalidMaxSteps = errors.New("max steps must be positive")

	// ErrInvalidTokenEstimator is returned for an unknown token estimator name.
	ErrInvalidTokenEstimator = errors.New("token estimator must be 'fixed' or 'tiktoken'")

	// ErrConfigFile is returned when the YAML or .env file cannot be read.
	ErrConfigFile = errors.New("cannot read configuration file")
)

// ConfigurationError is fatal: the process must not start with it.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(key string, err error) *ConfigurationError {
	return &ConfigurationError{Key: key, Err: err}
}
