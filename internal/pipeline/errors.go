package pipeline

import (
	"errors"
	"fmt"
)

// ErrConfig marks a scan request that was rejected before any day was read.
var ErrConfig = errors.New("invalid scan configuration")

// ConfigError reports which request field was rejected.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid scan configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}
