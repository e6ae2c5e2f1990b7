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
		return ""
	}
	return err.Err.Error()
}

// PrerequisiteError means a record this run depends on does not exist yet.
// Remedy tells the operator what to run first.
type PrerequisiteError struct {
	Msg    string
	Remedy string
}

func NewPrerequisiteError(msg, remedy string) error {
	return &PrerequisiteError{Msg: msg, Remedy: remedy}
}

func (err PrerequisiteError) Error() string {
	if err.Remedy == "" {
		return err.Msg
	}
	return err.Msg + "\n→ " + err.Remedy
}

// StructureError means a document did not have the JSON shape we expect.
// Shape carries a rendering of what was actually there.
type StructureError struct {
	Msg   string
	Shape string
}

func NewStructureError(msg, shape string) error {
	return &StructureError{Msg: msg, Shape: shape}
}

func (err StructureError) Error() string {
	if err.Shape == "" {
		return err.Msg
	}
	return fmt.Sprintf("%s\nactual structure:\n%s", err.Msg, err.Shape)
}

// IntegrityError means persisted references no longer line up: ids referenced
// but missing, or ids that must be unique appearing twice.
type IntegrityError struct {
	Msg string
	IDs []string
}

func NewIntegrityError(msg string, ids ...string) error {
	return &IntegrityError{Msg: msg, IDs: ids}
}

func (err IntegrityError) Error() string {
	if len(err.IDs) == 0 {
		return err.Msg
	}
	return fmt.Sprintf("%s: %s", err.Msg, strings.Join(err.IDs, ", "))
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
