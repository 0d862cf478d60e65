package files

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomedit/internal/bulkedit"
	"github.com/mrsinham/dicomedit/internal/dataset"
	"github.com/mrsinham/dicomedit/internal/dataset/datasettest"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newSet returns a set of in-memory files holding the sample dataset.
func newSet(t *testing.T, n int) *Set {
	t.Helper()
	s := NewSet(quietLogger())
	for i := 0; i < n; i++ {
		s.Add(&File{Path: t.Name() + string(rune('a'+i)) + ".dcm", Dataset: datasettest.New(t, 2)})
	}
	return s
}

func valueOf(t *testing.T, ds *dataset.Dataset, path string) []string {
	t.Helper()
	nodes, err := ds.Lookup(path, ds.Root())
	require.NoError(t, err)
	var out []string
	for _, n := range nodes {
		el, ok := n.(*dataset.Element)
		require.True(t, ok)
		out = append(out, el.StringValue(0))
	}
	return out
}

func TestSetCurrent(t *testing.T) {
	s := NewSet(quietLogger())
	changed := 0
	s.OnCurrentFileChanged(func() { changed++ })

	assert.Nil(t, s.Current())
	assert.Nil(t, s.CurrentDataset())
	assert.ErrorIs(t, s.Save(), ErrNoFile)

	a := &File{Path: "a.dcm", Dataset: datasettest.New(t, 1)}
	b := &File{Path: "b.dcm", Dataset: datasettest.New(t, 1)}
	s.Add(a)
	s.Add(b)
	assert.Same(t, a, s.Current())
	assert.Equal(t, 1, changed)

	require.NoError(t, s.SetCurrent(1))
	assert.Same(t, b.Dataset, s.CurrentDataset())
	assert.Equal(t, 2, changed)
	require.NoError(t, s.SetCurrent(1))
	assert.Equal(t, 2, changed, "selecting the current file again is not a change")
	assert.Error(t, s.SetCurrent(2))

	assert.False(t, s.UnsavedChanges())
	s.MarkModified()
	assert.True(t, b.Modified())
	assert.False(t, a.Modified())
	assert.True(t, s.UnsavedChanges())
}

func TestApplyAll(t *testing.T) {
	tests := []struct {
		name    string
		req     bulkedit.Request
		path    string
		want    []string
		touched bool
	}{
		{
			name:    "set overwrites",
			req:     bulkedit.Request{TagPath: "PatientName", Value: "ANON", Mode: bulkedit.ModeSet},
			path:    "PatientName",
			want:    []string{"ANON"},
			touched: true,
		},
		{
			name:    "set creates",
			req:     bulkedit.Request{TagPath: "PatientSex", Value: "O", Mode: bulkedit.ModeSet},
			path:    "PatientSex",
			want:    []string{"O"},
			touched: true,
		},
		{
			name:    "set existing skips missing",
			req:     bulkedit.Request{TagPath: "PatientSex", Value: "O", Mode: bulkedit.ModeSetExisting},
			path:    "PatientSex",
			want:    nil,
			touched: false,
		},
		{
			name:    "set existing in every item",
			req:     bulkedit.Request{TagPath: "OtherPatientIDsSequence[*].IssuerOfPatientID", Value: "ANON", Mode: bulkedit.ModeSetExisting},
			path:    "OtherPatientIDsSequence[*].IssuerOfPatientID",
			want:    []string{"ANON", "ANON"},
			touched: true,
		},
		{
			name:    "delete",
			req:     bulkedit.Request{TagPath: "PatientComments", Mode: bulkedit.ModeDelete},
			path:    "PatientComments",
			want:    nil,
			touched: true,
		},
		{
			name:    "delete missing",
			req:     bulkedit.Request{TagPath: "PatientSex", Mode: bulkedit.ModeDelete},
			path:    "PatientSex",
			want:    nil,
			touched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSet(t, 2)
			edited := 0
			s.OnAllFilesEdited(func() { edited++ })

			require.NoError(t, s.ApplyAll(tt.req))
			assert.Equal(t, 1, edited)
			for _, f := range s.Files() {
				assert.Equal(t, tt.want, valueOf(t, f.Dataset, tt.path), f.Path)
				assert.Equal(t, tt.touched, f.Modified(), f.Path)
			}
		})
	}
}

func TestApplyAllRejectsStudyDate(t *testing.T) {
	for _, path := range []string{"StudyDate", "0008,0020", "8,20", "(0008,0020)"} {
		t.Run(path, func(t *testing.T) {
			s := newSet(t, 1)
			edited := 0
			s.OnAllFilesEdited(func() { edited++ })

			err := s.ApplyAll(bulkedit.Request{TagPath: path, Value: "20240101", Mode: bulkedit.ModeSet})
			assert.ErrorIs(t, err, bulkedit.ErrForbiddenTag)
			assert.Equal(t, []string{datasettest.StudyDate}, valueOf(t, s.Files()[0].Dataset, "StudyDate"))
			assert.False(t, s.UnsavedChanges())
			assert.Zero(t, edited)
		})
	}
}

func TestApplyAllCollectsFileErrors(t *testing.T) {
	s := newSet(t, 1)

	// The second file holds OtherPatientIDsSequence as a plain LO element.
	odd := dataset.New()
	_, err := odd.AddElementValue(odd.Root(), tag.OtherPatientIDsSequence, "LO", []string{"x"})
	require.NoError(t, err)
	s.Add(&File{Path: "odd.dcm", Dataset: odd})

	err = s.ApplyAll(bulkedit.Request{
		TagPath: "OtherPatientIDsSequence[0].PatientID",
		Value:   "ANON",
		Mode:    bulkedit.ModeSet,
	})
	var batch *BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, "odd.dcm", batch.Errors[0].Path)
	assert.ErrorIs(t, err, dataset.ErrWrongKind)

	// The healthy file keeps its change.
	assert.True(t, s.Files()[0].Modified())
	assert.False(t, s.Files()[1].Modified())

	report := bulkedit.NewReport(err)
	assert.Equal(t, bulkedit.BatchFailedMessage, report.Message)
	require.Len(t, report.Details, 1)
	assert.Contains(t, report.Details[0], "odd.dcm")
}

func TestApplyAllInvalidRequest(t *testing.T) {
	s := newSet(t, 1)
	assert.ErrorIs(t, s.ApplyAll(bulkedit.Request{TagPath: "PatientNam", Mode: bulkedit.ModeSet}), dataset.ErrInvalidPath)
	assert.ErrorIs(t, s.ApplyAll(bulkedit.Request{TagPath: "PatientName", Mode: bulkedit.ModeNone}), bulkedit.ErrNoMode)
	assert.False(t, s.UnsavedChanges())
}

func TestOpenSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p1 := datasettest.WriteFile(t, dir, "one.dcm", 2)
	p2 := datasettest.WriteFile(t, dir, "two.dcm", 3)

	s := NewSet(quietLogger())
	err := s.Open(p1, dir+"/missing.dcm", p2)
	var batch *BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "one.dcm", s.Current().Name())

	require.NoError(t, s.ApplyAll(bulkedit.Request{TagPath: "PatientName", Value: "ANON^PATIENT", Mode: bulkedit.ModeSet}))
	saved, err := s.SaveAll()
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.False(t, s.UnsavedChanges())

	for _, p := range []string{p1, p2} {
		f, err := Open(p)
		require.NoError(t, err)
		assert.Equal(t, []string{"ANON^PATIENT"}, valueOf(t, f.Dataset, "PatientName"))
		assert.Equal(t, []string{datasettest.StudyDate}, valueOf(t, f.Dataset, "StudyDate"))
	}

	f, err := Open(p2)
	require.NoError(t, err)
	seq, ok := f.Dataset.Root().Find(tag.OtherPatientIDsSequence).(*dataset.Sequence)
	require.True(t, ok)
	assert.Equal(t, 3, seq.NumChildren())
}

func TestBatchErrorMessage(t *testing.T) {
	b := &BatchError{Op: "save"}
	assert.NoError(t, b.errOrNil())
	b.add("a.dcm", errors.New("disk full"))
	assert.EqualError(t, b, "save failed for 1 file(s): a.dcm: disk full")
}

func TestApplyAllWarnsOnImageLevelTag(t *testing.T) {
	log, hook := test.NewNullLogger()
	s := NewSet(log)
	for _, name := range []string{"a.dcm", "b.dcm"} {
		s.Add(&File{Path: name, Dataset: datasettest.New(t, 1)})
	}

	require.NoError(t, s.ApplyAll(bulkedit.Request{TagPath: "SOPInstanceUID", Value: "1.2.3", Mode: bulkedit.ModeSet}))
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["tag_path"] == "SOPInstanceUID" {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning for an image-level tag")

	hook.Reset()
	require.NoError(t, s.ApplyAll(bulkedit.Request{TagPath: "PatientName", Value: "ANON", Mode: bulkedit.ModeSet}))
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, e.Level, e.Message)
	}
}

func TestApplyAllFailedWildcardLeavesFileUntouched(t *testing.T) {
	s := newSet(t, 2)
	bad := s.Files()[1]
	seq, ok := bad.Dataset.Root().Find(tag.OtherPatientIDsSequence).(*dataset.Sequence)
	require.True(t, ok)
	second := seq.ItemAt(1)
	id, ok := second.Find(tag.PatientID).(*dataset.Element)
	require.True(t, ok)
	require.NoError(t, second.RemoveElement(id.Position()))
	_, err := bad.Dataset.AddElementValue(second, tag.PatientID, "US", []int{7})
	require.NoError(t, err)

	err = s.ApplyAll(bulkedit.Request{TagPath: "OtherPatientIDsSequence[*].PatientID", Value: "NEWID", Mode: bulkedit.ModeSet})
	var batch *BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, bad.Path, batch.Errors[0].Path)

	assert.Equal(t, []string{"ALT-1", "7"}, valueOf(t, bad.Dataset, "OtherPatientIDsSequence[*].PatientID"))
	assert.False(t, bad.Modified())
	assert.Equal(t, []string{"NEWID", "NEWID"}, valueOf(t, s.Files()[0].Dataset, "OtherPatientIDsSequence[*].PatientID"))
	assert.True(t, s.Files()[0].Modified())
}
