// Package dmserr defines the error kinds surfaced by the document service.
//
// Every failure that crosses the HTTP boundary carries a Kind whose string
// form becomes the "type" field of the JSON error envelope. Errors created
// here wrap freely with %w; KindOf walks the chain to recover the kind.
package dmserr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure. The string value is part of the wire
// contract.
type Kind string

const (
	KindSchemaError           Kind = "SchemaError"
	KindUnknownType           Kind = "UnknownType"
	KindUnknownAttr           Kind = "UnknownAttr"
	KindTypeMismatch          Kind = "TypeMismatch"
	KindDimensionMismatch     Kind = "DimensionMismatch"
	KindShapeMismatch         Kind = "ShapeMismatch"
	KindUnitMissing           Kind = "UnitMissing"
	KindUnitExtra             Kind = "UnitExtra"
	KindUnitIncompatible      Kind = "UnitIncompatible"
	KindExtraKeys             Kind = "ExtraKeys"
	KindPathParseError        Kind = "PathParseError"
	KindPathNotFound          Kind = "PathNotFound"
	KindIndexOutOfRange       Kind = "IndexOutOfRange"
	KindIndexedScalar         Kind = "IndexedScalar"
	KindUnindexedList         Kind = "UnindexedList"
	KindPathTooLong           Kind = "PathTooLong"
	KindIndexedAttribute      Kind = "IndexedAttribute"
	KindUnknownID             Kind = "UnknownId"
	KindRelativeRefUnresolved Kind = "RelativeRefUnresolved"
	KindLinkShapeMismatch     Kind = "LinkShapeMismatch"
	KindConflict              Kind = "Conflict"
	KindBadRequest            Kind = "BadRequest"

	// KindInternal is reported for errors that carry no kind of their own.
	KindInternal Kind = "InternalError"
)

// Error is a kinded error. Message is safe to return to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New builds a kinded error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
