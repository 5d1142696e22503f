// Package apperr holds the error taxonomy shared by the costing engine and the
// container ledger. Callers classify failures with errors.Is against the
// sentinels and errors.As against the typed errors.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Entity string

const (
	EntityFormula   Entity = "formula"
	EntityComponent Entity = "component"
	EntityContainer Entity = "container"
)

// NotFoundError is returned before any computation when a referenced record is missing.
type NotFoundError struct {
	Entity Entity
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidInputError names the rejected field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

func Invalid(field, reason string) error {
	return InvalidInputError{Field: field, Reason: reason}
}

func NotFound(entity Entity, id string) error {
	return NotFoundError{Entity: entity, ID: id}
}
