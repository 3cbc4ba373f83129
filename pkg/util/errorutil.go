package util

import (
	"errors"
	"fmt"
)

// Error codes used across the application. Only CONFIG_MISSING and
// AUTH_FAILED are fatal; every other condition degrades to a safe default.
const (
	CodeConfig        = "CONFIG_MISSING"
	CodeAuth          = "AUTH_FAILED"
	CodeTransport     = "TRANSPORT_FAILED"
	CodeResponseShape = "UNEXPECTED_RESPONSE"
	CodeValidation    = "VALIDATION_FAILED"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

func NewConfigError(message string) error {
	return NewDomainError(CodeConfig, message, nil)
}

func NewAuthError(message string, err error) error {
	return NewDomainError(CodeAuth, message, err)
}

func NewTransportError(message string, err error) error {
	return NewDomainError(CodeTransport, message, err)
}

func NewResponseShapeError(message string) error {
	return NewDomainError(CodeResponseShape, message, nil)
}

func NewValidationError(message string) error {
	return NewDomainError(CodeValidation, message, nil)
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsFatal reports whether err should abort the run instead of degrading.
func IsFatal(err error) bool {
	return HasCode(err, CodeConfig) || HasCode(err, CodeAuth)
}
