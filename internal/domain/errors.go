package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError keeps backward compatibility for generic codes.
type DomainError struct {
	Code string
	Err  error
}

func (e DomainError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e DomainError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

// SourceUnavailableError reports raw data that cannot be fetched or has no
// loadable content.
type SourceUnavailableError struct {
	Key string
	Err error
}

func (e SourceUnavailableError) Error() string {
	switch {
	case e.Key != "" && e.Err != nil:
		return fmt.Sprintf("source %s unavailable: %v", e.Key, e.Err)
	case e.Key != "":
		return fmt.Sprintf("source %s unavailable", e.Key)
	case e.Err != nil:
		return fmt.Sprintf("source unavailable: %v", e.Err)
	default:
		return "source unavailable"
	}
}

func (e SourceUnavailableError) Unwrap() error { return e.Err }

// SchemaMismatchError marks a file fragment whose header cannot be loaded.
// Callers skip the fragment and keep going.
type SchemaMismatchError struct {
	Fragment string
	Missing  []string
	Msg      string
}

func (e SchemaMismatchError) Error() string {
	msg := e.Msg
	if msg == "" && len(e.Missing) > 0 {
		msg = "missing columns " + strings.Join(e.Missing, ", ")
	}
	if msg == "" {
		msg = "schema mismatch"
	}
	if e.Fragment == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Fragment, msg)
}

type ConstraintViolationError struct {
	Op  string
	Err error
}

func (e ConstraintViolationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("constraint violation: %v", e.Err)
	}
	return fmt.Sprintf("constraint violation during %s: %v", e.Op, e.Err)
}

func (e ConstraintViolationError) Unwrap() error { return e.Err }

// ConnectionError is fatal to a run: nothing is attempted after it.
type ConnectionError struct {
	Target string
	Err    error
}

func (e ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to %s: %v", e.Target, e.Err)
}

func (e ConnectionError) Unwrap() error { return e.Err }

func IsSourceUnavailable(err error) bool {
	var target SourceUnavailableError
	return errors.As(err, &target)
}

func IsSchemaMismatch(err error) bool {
	var target SchemaMismatchError
	return errors.As(err, &target)
}

func IsConstraintViolation(err error) bool {
	var target ConstraintViolationError
	return errors.As(err, &target)
}

func IsConnection(err error) bool {
	var target ConnectionError
	return errors.As(err, &target)
}
