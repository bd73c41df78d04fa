package domain

import (
	"errors"
	"fmt"
)

// ConfigurationError aborts a run before any oracle call.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// OracleSchemaError means the model answer could not be constrained to the
// category set (unknown label, malformed payload, missing fields).
type OracleSchemaError struct {
	Provider string
	Detail   string
	Err      error
}

func (e *OracleSchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s oracle schema violation: %s: %v", e.Provider, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s oracle schema violation: %s", e.Provider, e.Detail)
}

func (e *OracleSchemaError) Unwrap() error { return e.Err }

// OracleTransportError covers network failures, timeouts and non-2xx answers.
type OracleTransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *OracleTransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s oracle transport error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s oracle transport error: %v", e.Provider, e.Err)
}

func (e *OracleTransportError) Unwrap() error { return e.Err }

// CacheReadError is reported when the previous result file cannot be used.
// Callers continue with an empty cache.
type CacheReadError struct {
	Path string
	Err  error
}

func (e *CacheReadError) Error() string {
	return fmt.Sprintf("read classification cache %s: %v", e.Path, e.Err)
}

func (e *CacheReadError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err only affects a single item.
func IsRecoverable(err error) bool {
	var schemaErr *OracleSchemaError
	var transportErr *OracleTransportError
	var cacheErr *CacheReadError
	return errors.As(err, &schemaErr) || errors.As(err, &transportErr) || errors.As(err, &cacheErr)
}

func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
