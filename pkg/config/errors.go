package config

import "errors"

var (
	// ErrNilPointer is returned when a nil pointer is passed to Load.
	ErrNilPointer = errors.New("config: nil pointer passed to Load")

	// ErrParsingConfig wraps errors produced while parsing environment
	// variables into the configuration struct.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")
)
