package signature

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an unknown color or malformed setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// UnknownColor builds the error for a color name that is not configured.
func UnknownColor(name string) *ConfigurationError {
	return &ConfigurationError{Field: "color", Reason: fmt.Sprintf("unknown color %q", name)}
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ValidateLine checks a reference line fraction lies in [0, 1].
func ValidateLine(fraction float64) error {
	if fraction < 0 || fraction > 1 || fraction != fraction {
		return &ConfigurationError{Field: "line", Reason: fmt.Sprintf("line fraction %v outside [0, 1]", fraction)}
	}
	return nil
}
