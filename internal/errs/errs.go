// Package errs defines the coded error types shared across msgstats.
//
// Batch-level failures are SkippableBatchErrors: they are logged and the
// batch is dropped. Table-level emptiness and configuration problems are
// surfaced to the caller as EmptyResultError and ConfigurationError.
package errs

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeUnknown        = "UNKNOWN"
	CodeSkippableBatch = "SKIPPABLE_BATCH"
	CodeEmptyResult    = "EMPTY_RESULT"
	CodeConfiguration  = "CONFIGURATION"
)

// ApplicationError is implemented by every error in this package.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

type base struct {
	code    string
	message string
	err     error
}

func (e *base) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *base) Code() string {
	return e.code
}

func (e *base) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return CodeUnknown
}

// SkippableBatchError reports a single conversation export that could not
// contribute rows. Source is the file path or batch label.
type SkippableBatchError struct {
	base
	Source string
}

func (e *SkippableBatchError) Error() string {
	if e.Source == "" {
		return e.base.Error()
	}
	return fmt.Sprintf("%s: %s", e.Source, e.base.Error())
}

func NewSkippableBatchError(source, message string, cause error) error {
	return &SkippableBatchError{
		base:   base{code: CodeSkippableBatch, message: message, err: cause},
		Source: source,
	}
}

// EmptyResultError is returned instead of an undefined aggregate when the
// input table has no rows.
type EmptyResultError struct {
	base
}

func NewEmptyResultError(message string) error {
	return &EmptyResultError{
		base: base{code: CodeEmptyResult, message: message},
	}
}

// ConfigurationError reports missing or invalid required configuration.
type ConfigurationError struct {
	base
}

func NewConfigurationError(message string, cause error) error {
	return &ConfigurationError{
		base: base{code: CodeConfiguration, message: message, err: cause},
	}
}

func IsSkippableBatch(err error) bool {
	var target *SkippableBatchError
	return errors.As(err, &target)
}

func IsEmptyResult(err error) bool {
	var target *EmptyResultError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
