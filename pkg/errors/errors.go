package errors

import (
	"errors"
	"fmt"
)

// Resolution errors. "No data" is a value, not a panic: resolvers return
// these so callers can log-and-skip instead of defaulting.

var (
	// ErrDataMissing indicates a required market value could not be resolved
	ErrDataMissing = errors.New("data missing")

	// ErrDataInvalid indicates a resolved value failed a sanity check
	ErrDataInvalid = errors.New("data invalid")

	// ErrRateLimited indicates the provider throttled an outbound call
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound indicates a row was not found in the store
	ErrNotFound = errors.New("not found")
)

// Pipeline errors

var (
	// ErrNoPicks indicates the latest run produced no persisted picks
	ErrNoPicks = errors.New("no weekly picks for latest run")

	// ErrConfigMissing indicates a required startup configuration value is absent
	ErrConfigMissing = errors.New("required configuration missing")
)

// Streaming errors

var (
	// ErrWSNotConnected indicates the streaming socket is not connected
	ErrWSNotConnected = errors.New("websocket not connected")

	// ErrWSAuthFailed indicates the feed rejected the auth handshake
	ErrWSAuthFailed = errors.New("websocket auth failed")

	// ErrWSMaxReconnects indicates reconnection attempts were exhausted
	ErrWSMaxReconnects = errors.New("websocket max reconnect attempts reached")

	// ErrWSClosed indicates the engine was closed deliberately
	ErrWSClosed = errors.New("websocket closed")
)

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching the target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
