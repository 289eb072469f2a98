package config

import (
	"fmt"

	"github.com/pkg/errors"
)

// OptionError is returned when an option of the configuration is missing,
// unknown or cannot be parsed.
type OptionError struct {
	Section string
	Key     string
	Reason  string
}

// Error returns the error message.
func (e *OptionError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("[%s] %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("[%s] %s %s", e.Section, e.Key, e.Reason)
}

const (
	reasonRequired = "is required"
	reasonUnknown  = "is not a supported option"
)

// OptionIsRequiredError is returned when a required option is not set
func OptionIsRequiredError(section, key string) error {
	return &OptionError{Section: section, Key: key, Reason: reasonRequired}
}

// UnknownOptionError is returned when the configuration contains an option
// that no phase declares
func UnknownOptionError(section, key string) error {
	if key == "" {
		return &OptionError{Section: section, Reason: "is not a supported section"}
	}
	return &OptionError{Section: section, Key: key, Reason: reasonUnknown}
}

// InvalidOptionError is returned when an option value cannot be parsed
func InvalidOptionError(section, key string, err error) error {
	return &OptionError{Section: section, Key: key, Reason: fmt.Sprintf("is invalid: %v", err)}
}

// IsMissingOption returns true if the given error is a required option error.
func IsMissingOption(err error) bool {
	oerr := &OptionError{}
	return errors.As(err, &oerr) && oerr.Reason == reasonRequired
}

// IsUnknownOption returns true if the given error is an unknown option error.
func IsUnknownOption(err error) bool {
	oerr := &OptionError{}
	return errors.As(err, &oerr) && oerr.Reason == reasonUnknown
}
