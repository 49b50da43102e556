package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error unwraps to exactly one of them.
var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrReferentialIntegrity = errors.New("referential integrity failed")
	ErrValidation           = errors.New("validation failed")
)

// Error is a classified failure of a service operation.
type Error struct {
	Kind    error
	Entity  string
	Field   string
	Message string
	// Cause holds structured detail, e.g. validation.Errors for ErrValidation.
	Cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Field != "" {
		return fmt.Sprintf("%s %s: %v", e.Entity, e.Field, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Entity, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// NotFound reports a missing entity.
func NotFound(entity string, id int64) *Error {
	return &Error{
		Kind:    ErrNotFound,
		Entity:  entity,
		Field:   "id",
		Message: fmt.Sprintf("%s with id %d was not found", entity, id),
	}
}

// Conflict reports a clash with existing data, such as a duplicate unique value.
func Conflict(entity, field, message string) *Error {
	return &Error{Kind: ErrConflict, Entity: entity, Field: field, Message: message}
}

// ReferentialIntegrity reports a reference that does not resolve.
func ReferentialIntegrity(entity, field, message string) *Error {
	return &Error{Kind: ErrReferentialIntegrity, Entity: entity, Field: field, Message: message}
}

// Validation wraps the error of a Validate call. A nil cause returns nil.
func Validation(entity string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:    ErrValidation,
		Entity:  entity,
		Message: "one or more validation errors occurred",
		Cause:   cause,
	}
}

// KindOf returns the kind of err, or nil when err is not a classified service error.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrReferentialIntegrity, ErrNotFound, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
