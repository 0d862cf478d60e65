package files

import (
	"fmt"
	"strings"
)

// FileError is a failure of one file in a batch.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// BatchError collects the files that failed during a batch operation. The
// operation carries on past each failure.
type BatchError struct {
	Op     string
	Errors []*FileError
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("%s failed for %d file(s): %s", e.Op, len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes each file error to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		out[i] = fe
	}
	return out
}

// Failures returns the per-file errors for reporting.
func (e *BatchError) Failures() []error { return e.Unwrap() }

func (e *BatchError) add(path string, err error) {
	e.Errors = append(e.Errors, &FileError{Path: path, Err: err})
}

// errOrNil returns e when it holds at least one failure.
func (e *BatchError) errOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
