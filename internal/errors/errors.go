// Package errors provides structured error handling for hostscan operations.
// It defines error codes, error types, and utilities for creating and
// classifying errors raised during range construction, port parsing,
// and per-host probing.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Construction errors, surfaced before any pipeline starts.
	CodeInvalidRange    ErrorCode = "INVALID_RANGE"
	CodeInvalidPortSpec ErrorCode = "INVALID_PORT_SPEC"

	// Probe and pipeline errors.
	CodeProbeFailed     ErrorCode = "PROBE_FAILED"
	CodePipelineFault   ErrorCode = "PIPELINE_FAULT"
	CodeHostUnreachable ErrorCode = "HOST_UNREACHABLE"
	CodeDNSLookupFailed ErrorCode = "DNS_LOOKUP_FAILED"
	CodeNeighborLookup  ErrorCode = "NEIGHBOR_LOOKUP_FAILED"
	CodePingUnavailable ErrorCode = "PING_UNAVAILABLE"
	CodePortProbeFailed ErrorCode = "PORT_PROBE_FAILED"

	// Storage errors.
	CodeStoreOpen  ErrorCode = "STORE_OPEN"
	CodeStoreQuery ErrorCode = "STORE_QUERY"
)

// ConstructionError reports invalid scan inputs: a bad address range or
// a bad port specification. No pipeline starts once one is raised.
type ConstructionError struct {
	Code    ErrorCode
	Message string
	Token   string
	Cause   error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("[%s] %s (token: %q)", e.Code, e.Message, e.Token)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ConstructionError) Unwrap() error {
	return e.Cause
}

// NewConstructionError creates a new construction error.
func NewConstructionError(code ErrorCode, message string) *ConstructionError {
	return &ConstructionError{
		Code:    code,
		Message: message,
	}
}

// NewConstructionErrorWithToken creates a construction error that points at
// the offending input token.
func NewConstructionErrorWithToken(code ErrorCode, message, token string) *ConstructionError {
	return &ConstructionError{
		Code:    code,
		Message: message,
		Token:   token,
	}
}

// WrapConstructionError wraps an existing error as a construction error.
func WrapConstructionError(code ErrorCode, message string, err error) *ConstructionError {
	return &ConstructionError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// ProbeError represents a single probe's failure for one host. It is
// absorbed into a sentinel value inside the probe chain and never
// propagates past it.
type ProbeError struct {
	Code    ErrorCode
	Message string
	Probe   string
	Target  string
	Cause   error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s: %s (target: %s)", e.Code, e.Probe, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Probe, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// NewProbeError creates a new probe error.
func NewProbeError(code ErrorCode, probe, message string) *ProbeError {
	return &ProbeError{
		Code:    code,
		Probe:   probe,
		Message: message,
	}
}

// WrapProbeError wraps an existing error as a probe error for a target.
func WrapProbeError(code ErrorCode, probe, target string, err error) *ProbeError {
	return &ProbeError{
		Code:    code,
		Probe:   probe,
		Target:  target,
		Message: err.Error(),
		Cause:   err,
	}
}

// ScanError represents an error in the scan orchestration itself.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *ScanError) WithContext(key string, value interface{}) *ScanError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ConstructionError:
		return e.Code
	case *ProbeError:
		return e.Code
	case *ScanError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsConstruction reports whether the error was raised before any pipeline
// started, i.e. invalid scan inputs rather than a runtime failure.
func IsConstruction(err error) bool {
	_, ok := err.(*ConstructionError)
	return ok
}

// Common error creation functions

// ErrInvalidRange creates an error for an invalid address range.
func ErrInvalidRange(message string) *ConstructionError {
	return NewConstructionError(CodeInvalidRange, message)
}

// ErrInvalidPortSpec creates an error for an invalid port specification token.
func ErrInvalidPortSpec(message, token string) *ConstructionError {
	return NewConstructionErrorWithToken(CodeInvalidPortSpec, message, token)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}
