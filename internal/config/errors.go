package config

import "errors"

var (
	// ErrInvalidConfig wraps every problem reported by Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig is returned when the YAML file or the environment cannot be read.
	ErrLoadConfig = errors.New("load config failed")
)
