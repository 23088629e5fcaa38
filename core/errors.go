package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ConfigError reports server settings that must be present for an operation to run.
type ConfigError struct {
	Missing []string
}

func NewConfigError(missing ...string) error {
	return &ConfigError{Missing: missing}
}

func (err ConfigError) Error() string {
	return "server misconfigured: missing " + strings.Join(err.Missing, ", ")
}

// UpstreamError wraps a failed call to a service we forward to.
type UpstreamError struct {
	Service string
	Status  int
	Err     error
}

func NewUpstreamError(service string, status int, err error) error {
	return &UpstreamError{Service: service, Status: status, Err: err}
}

func (err UpstreamError) Error() string {
	if err.Status != 0 {
		return fmt.Sprintf("%s responded with status %d", err.Service, err.Status)
	}
	if err.Err != nil {
		return fmt.Sprintf("%s unreachable: %v", err.Service, err.Err)
	}
	return err.Service + " failed"
}

func (err UpstreamError) Unwrap() error {
	return err.Err
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
