package cleaning

import (
	"errors"
	"fmt"
)

// ErrPropertyNotFound is returned when the property does not exist.
var ErrPropertyNotFound = errors.New("property not found")

// ConfigurationError reports missing reference data that generation depends
// on, such as the owner's Clean task type.
type ConfigurationError struct {
	PropertyID string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("property %s: %s", e.PropertyID, e.Reason)
}
