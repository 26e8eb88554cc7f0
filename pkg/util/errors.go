// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per failure class of a detection run
var (
	ErrFileRead         = errors.New("trusted list unreadable")
	ErrAuth             = errors.New("controller authentication failed")
	ErrHTTP             = errors.New("controller request failed")
	ErrDecode           = errors.New("controller response malformed")
	ErrMail             = errors.New("alert delivery failed")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrValidationFailed = errors.New("validation failed")
)

// FileReadError wraps an I/O failure on the trusted list
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() []error {
	return []error{ErrFileRead, e.Err}
}

// NewFileReadError creates a file read error
func NewFileReadError(path string, err error) *FileReadError {
	return &FileReadError{Path: path, Err: err}
}

// AuthError reports a login response that did not yield a session
type AuthError struct {
	Controller string
	Reason     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login to %s: %s", e.Controller, e.Reason)
}

func (e *AuthError) Unwrap() error {
	return ErrAuth
}

// NewAuthError creates an authentication error
func NewAuthError(controller, reason string) *AuthError {
	return &AuthError{Controller: controller, Reason: reason}
}

// HTTPError reports a transport failure or a non-2xx response.
// Status is zero when the request never got a response.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *HTTPError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += " (" + truncate(body, 200) + ")"
	}
	return msg
}

func (e *HTTPError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrHTTP}
	}
	return []error{ErrHTTP, e.Err}
}

// DecodeError reports a controller payload that could not be decoded
type DecodeError struct {
	What   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %s", e.What, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

// NewDecodeError creates a decode error
func NewDecodeError(what, reason string) *DecodeError {
	return &DecodeError{What: what, Reason: reason}
}

// MailError wraps an SMTP delivery failure
type MailError struct {
	Server string
	Err    error
}

func (e *MailError) Error() string {
	return fmt.Sprintf("sending alert via %s: %v", e.Server, e.Err)
}

func (e *MailError) Unwrap() []error {
	return []error{ErrMail, e.Err}
}

// NewMailError creates a mail error
func NewMailError(server string, err error) *MailError {
	return &MailError{Server: server, Err: err}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return NewValidationError(v.errors...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
