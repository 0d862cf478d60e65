package bulkedit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsForbiddenTagPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"StudyDate", true},
		{"studydate", true},
		{"  STUDYDATE ", true},
		{"0008,0020", true},
		{"(0008,0020)", true},
		{"8,20", true},
		{"ReferencedStudySequence[0].StudyDate", true},
		{"PatientName", false},
		{"10,10", false},
		{"StudyTime", false},
		{"", false},
		{"not a path", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.path), func(t *testing.T) {
			assert.Equal(t, tt.want, IsForbiddenTagPath(tt.path))
		})
	}
}

func TestBuilderDefaults(t *testing.T) {
	b := NewBuilder()
	assert.Equal(t, ModeSet, b.Mode())
	assert.True(t, b.ValueEnabled())
	assert.True(t, b.ModesEnabled())
	assert.Equal(t, ValuePlaceholder, b.ValuePlaceholder())

	_, ok := b.Result()
	assert.False(t, ok)
	_, err := b.Confirm()
	assert.ErrorIs(t, err, ErrEmptyTagPath)
	assert.False(t, b.Closed())
}

func TestBuilderConfirm(t *testing.T) {
	b := NewBuilder()
	b.SetTagPath(" PatientName ")
	b.SetValue("DOE^JANE")
	b.SetMode(ModeSetExisting)

	req, err := b.Confirm()
	require.NoError(t, err)
	assert.Equal(t, Request{TagPath: "PatientName", Value: "DOE^JANE", Mode: ModeSetExisting}, req)

	got, ok := b.Result()
	assert.True(t, ok)
	assert.Equal(t, req, got)
	assert.True(t, b.Closed())
}

func TestBuilderStudyDateGuard(t *testing.T) {
	b := NewBuilder()
	b.SetTagPath("PatientID")
	b.SetValue("X")
	b.SetMode(ModeDelete)

	b.SetTagPath("StudyDate")
	assert.True(t, b.Forbidden())
	assert.False(t, b.ValueEnabled())
	assert.False(t, b.ModesEnabled())
	assert.Empty(t, b.Value(), "the value is cleared")
	assert.Equal(t, ModeNone, b.Mode())
	assert.Equal(t, ForbiddenPlaceholder, b.ValuePlaceholder())

	b.SetValue("20240101")
	b.SetMode(ModeSet)
	assert.Empty(t, b.Value())
	assert.Equal(t, ModeNone, b.Mode())

	_, err := b.Confirm()
	assert.ErrorIs(t, err, ErrForbiddenTag)
	_, ok := b.Result()
	assert.False(t, ok)

	// Leaving the forbidden path restores the previous mode.
	b.SetTagPath("StudyTime")
	assert.False(t, b.Forbidden())
	assert.Equal(t, ModeDelete, b.Mode())
	assert.True(t, b.ModesEnabled())
	assert.False(t, b.ValueEnabled(), "delete mode keeps the value disabled")
}

func TestBuilderDeleteModeDisablesValue(t *testing.T) {
	b := NewBuilder()
	b.SetTagPath("PatientComments")
	b.SetValue("KEEP")
	b.SetMode(ModeDelete)
	assert.False(t, b.ValueEnabled())

	b.SetValue("IGNORED")
	assert.Equal(t, "KEEP", b.Value())

	// Back in set mode the value is editable again.
	b.SetMode(ModeSet)
	assert.True(t, b.ValueEnabled())
	b.SetMode(ModeDelete)

	req, err := b.Confirm()
	require.NoError(t, err)
	assert.Equal(t, Request{TagPath: "PatientComments", Mode: ModeDelete}, req)
}

func TestBuilderInvalidPath(t *testing.T) {
	b := NewBuilder()
	b.SetTagPath("OtherPatientIDsSequence.PatientID")
	_, err := b.Confirm()
	assert.Error(t, err)
	assert.False(t, b.Closed())
}

func TestBuilderCancel(t *testing.T) {
	b := NewBuilder()
	b.SetTagPath("PatientName")
	b.Cancel()
	_, ok := b.Result()
	assert.False(t, ok)
	assert.True(t, b.Closed())
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeSet, ModeSetExisting, ModeDelete} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("none")
	assert.Error(t, err)
	_, err = ParseMode("upsert")
	assert.Error(t, err)
}

type failures []error

func (f failures) Error() string { return fmt.Sprintf("%d failures", len(f)) }
func (f failures) Failures() []error { return f }

func TestNewReport(t *testing.T) {
	assert.Equal(t, Report{}, NewReport(nil))

	single := NewReport(ErrForbiddenTag)
	assert.False(t, single.IsBatch())
	assert.Equal(t, ErrForbiddenTag.Error(), single.String())

	wrapped := NewReport(fmt.Errorf("%w: %w", ErrEmptyTagPath, ErrNoMode))
	assert.False(t, wrapped.IsBatch(), "wrapping two sentinels is not a batch")

	batch := NewReport(fmt.Errorf("apply: %w", failures{
		errors.New("a.dcm: bad value"),
		errors.New("b.dcm: bad value"),
	}))
	require.True(t, batch.IsBatch())
	assert.Equal(t, BatchFailedMessage, batch.Message)
	assert.Equal(t, []string{"a.dcm: bad value", "b.dcm: bad value"}, batch.Details)
	assert.Contains(t, batch.String(), "\n  - b.dcm: bad value")
}
