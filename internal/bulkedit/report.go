package bulkedit

import (
	"errors"
	"strings"
)

// BatchFailedMessage heads a report with one line per failed file.
const BatchFailedMessage = "At least one operation failed."

// Report is an error prepared for display: a single message, or a heading with one
// detail line per failed file.
type Report struct {
	Message string
	Details []string
}

// Batch is an error made of independent per-file failures.
type Batch interface {
	error
	Failures() []error
}

// NewReport converts err into a Report. A Batch anywhere in the chain produces one
// detail line per failure.
func NewReport(err error) Report {
	if err == nil {
		return Report{}
	}
	var batch Batch
	if errors.As(err, &batch) {
		if errs := batch.Failures(); len(errs) > 0 {
			r := Report{Message: BatchFailedMessage}
			for _, e := range errs {
				r.Details = append(r.Details, e.Error())
			}
			return r
		}
	}
	return Report{Message: err.Error()}
}

// IsBatch reports whether the report lists per-file failures.
func (r Report) IsBatch() bool { return len(r.Details) > 0 }

func (r Report) String() string {
	if !r.IsBatch() {
		return r.Message
	}
	var sb strings.Builder
	sb.WriteString(r.Message)
	for _, d := range r.Details {
		sb.WriteString("\n  - ")
		sb.WriteString(d)
	}
	return sb.String()
}
