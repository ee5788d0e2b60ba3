// Package apperr defines the coded errors services return to the transport
// layer. Stores return sentinels; services translate them into these codes.
package apperr

import (
	"errors"
	"maps"
)

type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
)

type Error struct {
	Code    Code
	Message string
	// Fields carries per-field detail for validation errors.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code so callers can compare against a freshly built error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Invalid builds a validation error with per-field messages.
func Invalid(fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: "Validation error", Fields: maps.Clone(fields)}
}

// Forbidden never says why.
func Forbidden() *Error {
	return New(CodeForbidden, "Forbidden")
}

func NotFound(msg string) *Error {
	return New(CodeNotFound, msg)
}

// CodeOf reports the code carried by err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// FieldsOf returns validation detail, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
