package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrConfiguration marks unrecoverable setup failures: device, swapchain or pipeline
	// creation, missing extensions, invalid config, a format change on recreation.
	ErrConfiguration = errors.New("configuration error")
	// ErrSwapchainStale is reported when the presentation surface no longer matches the
	// swapchain. The renderer recovers from it locally.
	ErrSwapchainStale = errors.New("swapchain out of date")
)

// ConfigurationError wraps err with context and marks it as configuration-fatal.
// A nil err produces a fresh marked error from the message.
func ConfigurationError(err error, format string, args ...interface{}) error {
	if err == nil {
		return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrConfiguration)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// InvariantViolation reports a broken call-order contract. These are core logic bugs
// and are never recovered from.
func InvariantViolation(format string, args ...interface{}) error {
	return errors.AssertionFailedf(format, args...)
}

func IsInvariantViolation(err error) bool {
	return errors.IsAssertionFailure(err)
}
