package commons

import (
	"fmt"
	"strings"
)

// ValidationError is a precondition the caller can fix.
type ValidationError struct {
	Messages []string
}

func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

type NotFoundError struct {
	Entity string
	ID     any
}

func NewNotFoundError(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%v' was not found.", e.Entity, e.ID)
}

// CollaboratorError wraps a failure talking to a downstream service.
type CollaboratorError struct {
	Service string
	Err     error
}

func NewCollaboratorError(service string, err error) *CollaboratorError {
	return &CollaboratorError{Service: service, Err: err}
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Service, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
