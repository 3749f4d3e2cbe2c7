package model

import (
	"errors"
	"fmt"
)

// ConfigError indicates that the loaded settings are invalid or
// insufficient to derive the run's behavior. It is always surfaced
// before any mail connection is attempted.
type ConfigError struct {
	Setting string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Setting == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error (%s): %s", e.Setting, e.Message)
}

// IsConfigError reports whether err (or any error in its chain) is a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
