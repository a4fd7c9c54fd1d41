package config

import "errors"

// ErrInvalid wraps every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")
