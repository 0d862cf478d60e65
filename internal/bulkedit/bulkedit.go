// Package bulkedit collects one edit or delete instruction to apply to every open
// file. It never touches a dataset: applying the Request is up to the caller.
package bulkedit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomedit/internal/dataset"
)

var (
	ErrForbiddenTag = errors.New("editing StudyDate (0008,0020) is disabled")
	ErrEmptyTagPath = errors.New("tag path is empty")
	ErrNoMode       = errors.New("no mode selected")
	ErrCancelled    = errors.New("bulk edit cancelled")
)

// Placeholders shown by the dialog.
const (
	TagPathPlaceholder    = "E.g. PatientName or 10,10"
	ValuePlaceholder      = `Enter value. If VM > 1, separate values with '\'.`
	ForbiddenPlaceholder  = "Editing StudyDate (0008,0020) is disabled."
	studyDateNumber       = "0008,0020"
	studyDateKeywordLower = "studydate"
)

// Mode is what happens to the addressed element in each file.
type Mode int

const (
	// ModeSet writes the value, creating the element and any missing structure.
	ModeSet Mode = iota
	// ModeSetExisting writes the value only in files where the path already resolves.
	ModeSetExisting
	// ModeDelete removes every element the path addresses.
	ModeDelete
	// ModeNone is the inert state forced while the tag path is forbidden.
	ModeNone
)

var modeNames = map[Mode]string{
	ModeSet:         "set",
	ModeSetExisting: "set-existing",
	ModeDelete:      "delete",
	ModeNone:        "none",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Label is the text of the mode in the dialog.
func (m Mode) Label() string {
	switch m {
	case ModeSet:
		return "Insert or overwrite"
	case ModeSetExisting:
		return "Overwrite existing only"
	case ModeDelete:
		return "Delete"
	default:
		return "None"
	}
}

// ParseMode accepts the names returned by Mode.String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s && m != ModeNone {
			return m, nil
		}
	}
	return ModeNone, fmt.Errorf("unknown mode %q (want set, set-existing or delete)", s)
}

// Request is the confirmed instruction.
type Request struct {
	TagPath string
	Value   string
	Mode    Mode
}

// IsForbiddenTagPath reports whether path addresses StudyDate: its normalized text
// contains "0008,0020" or "studydate", or its last segment resolves to (0008,0020).
func IsForbiddenTagPath(path string) bool {
	norm := strings.ToLower(strings.TrimSpace(path))
	if norm == "" {
		return false
	}
	if strings.Contains(norm, studyDateNumber) || strings.Contains(norm, studyDateKeywordLower) {
		return true
	}
	segs, err := dataset.ParsePath(path)
	if err != nil {
		return false
	}
	return segs[len(segs)-1].Tag == tag.StudyDate
}

// Builder holds the state of the bulk edit dialog.
type Builder struct {
	tagPath string
	value   string
	mode    Mode
	// saved is the mode to restore once the tag path is no longer forbidden.
	saved     Mode
	forbidden bool

	result *Request
	closed bool
}

// NewBuilder returns a builder in ModeSet with empty fields.
func NewBuilder() *Builder {
	return &Builder{mode: ModeSet, saved: ModeSet}
}

// SetTagPath updates the tag path and applies the StudyDate guard: while the path
// is forbidden the value is cleared and locked and the mode is forced to ModeNone.
func (b *Builder) SetTagPath(path string) {
	b.tagPath = path
	forbidden := IsForbiddenTagPath(path)
	switch {
	case forbidden && !b.forbidden:
		b.saved = b.mode
		b.mode = ModeNone
		b.value = ""
	case !forbidden && b.forbidden:
		b.mode = b.saved
	}
	b.forbidden = forbidden
}

// SetValue updates the value unless value entry is disabled.
func (b *Builder) SetValue(v string) {
	if b.ValueEnabled() {
		b.value = v
	}
}

// SetMode selects the mode unless mode selection is disabled.
func (b *Builder) SetMode(m Mode) {
	if b.ModesEnabled() && m != ModeNone {
		b.mode = m
	}
}

func (b *Builder) TagPath() string { return b.tagPath }
func (b *Builder) Value() string   { return b.value }
func (b *Builder) Mode() Mode      { return b.mode }

// Forbidden reports whether the current tag path addresses StudyDate.
func (b *Builder) Forbidden() bool { return b.forbidden }

// ValueEnabled reports whether the value field accepts input. Delete mode takes
// no value.
func (b *Builder) ValueEnabled() bool { return !b.forbidden && b.mode != ModeDelete }

// ModesEnabled reports whether the mode selection accepts input.
func (b *Builder) ModesEnabled() bool { return !b.forbidden }

// ValuePlaceholder returns the hint for the value field.
func (b *Builder) ValuePlaceholder() string {
	if b.forbidden {
		return ForbiddenPlaceholder
	}
	return ValuePlaceholder
}

// Validate reports why the current state cannot be confirmed.
func (b *Builder) Validate() error {
	switch {
	case b.forbidden:
		return ErrForbiddenTag
	case strings.TrimSpace(b.tagPath) == "":
		return ErrEmptyTagPath
	case b.mode == ModeNone:
		return ErrNoMode
	}
	if _, err := dataset.ParsePath(b.tagPath); err != nil {
		return err
	}
	return nil
}

// Confirm closes the dialog and produces the Request.
func (b *Builder) Confirm() (Request, error) {
	if err := b.Validate(); err != nil {
		return Request{}, err
	}
	req := Request{TagPath: strings.TrimSpace(b.tagPath), Mode: b.mode}
	if b.ValueEnabled() {
		req.Value = b.value
	}
	b.result = &req
	b.closed = true
	return req, nil
}

// Cancel closes the dialog without a Request.
func (b *Builder) Cancel() {
	b.result = nil
	b.closed = true
}

// Result returns the confirmed Request; ok is false until Confirm succeeded or
// after Cancel.
func (b *Builder) Result() (req Request, ok bool) {
	if b.result == nil {
		return Request{}, false
	}
	return *b.result, true
}

// Closed reports whether Confirm succeeded or Cancel was called.
func (b *Builder) Closed() bool { return b.closed }
