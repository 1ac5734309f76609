// Package errors provides error handling for ipmeta.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := loadDump(); err != nil {
//	    return errors.Wrap(err, "failed to load dump")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrConfiguration) {
//	    // fatal, engine stays not-ready
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New           = crdb.New
	Newf          = crdb.Newf
	Wrap          = crdb.Wrap
	Wrapf         = crdb.Wrapf
	WithStack     = crdb.WithStack
	WithMessage   = crdb.WithMessage
	WithMessagef  = crdb.WithMessagef
	Join          = crdb.Join
	CombineErrors = crdb.CombineErrors
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors forming the loading and query taxonomy.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrConfiguration indicates a required source is missing from the
	// configuration, or both a file and a stream were given for the same
	// input. Fatal: the engine stays not-ready.
	ErrConfiguration = New("invalid configuration")

	// ErrSourceUnavailable indicates an external reader or file could not be
	// opened. Fatal for the loading phase that needed it.
	ErrSourceUnavailable = New("source unavailable")

	// ErrMalformedRecord indicates an individual record is missing required
	// fields. Logged and skipped; never aborts a load.
	ErrMalformedRecord = New("malformed record")

	// ErrInvalidAddress indicates a query-time IP address that does not
	// parse. Logged at debug level; queries return their zero sentinel.
	ErrInvalidAddress = New("invalid IP address")

	// ErrNotReady indicates the engine failed to initialize and refuses to
	// attribute addresses from partial data.
	ErrNotReady = New("lookup engine not ready")
)

// IsConfigurationError checks if an error is or wraps ErrConfiguration.
func IsConfigurationError(err error) bool {
	return err != nil && Is(err, ErrConfiguration)
}

// IsSourceUnavailableError checks if an error is or wraps ErrSourceUnavailable.
func IsSourceUnavailableError(err error) bool {
	return err != nil && Is(err, ErrSourceUnavailable)
}

// NewConfigurationError creates a configuration error with a formatted message.
func NewConfigurationError(format string, args ...interface{}) error {
	return Wrap(ErrConfiguration, Newf(format, args...).Error())
}
