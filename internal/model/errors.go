package model

import "errors"

// Mutation errors. Each is wrapped together with the storage cause, so callers can
// match both with errors.Is.
var (
	// ErrResolution means an index or path did not resolve to a node of the required kind.
	ErrResolution = errors.New("cannot resolve node")
	// ErrOperation means the storage rejected the mutation.
	ErrOperation = errors.New("operation failed")
	// ErrInvalidInput means external input was malformed, e.g. an odd-length value file.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnexpectedKind means a node's structural kind does not fit the operation.
	ErrUnexpectedKind = errors.New("unexpected node kind")
	// ErrReentrantMutation is returned when an observer callback attempts a mutation.
	ErrReentrantMutation = errors.New("mutation from inside a change notification")
)
