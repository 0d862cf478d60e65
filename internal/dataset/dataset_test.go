package dataset_test

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomedit/internal/dataset"
	"github.com/mrsinham/dicomedit/internal/dataset/datasettest"
)

func sequenceOf(t *testing.T, ds *dataset.Dataset) *dataset.Sequence {
	t.Helper()
	seq, ok := ds.Root().Find(tag.OtherPatientIDsSequence).(*dataset.Sequence)
	require.True(t, ok, "sample dataset must hold OtherPatientIDsSequence")
	return seq
}

func elementOf(t *testing.T, c dataset.Container, tg tag.Tag) *dataset.Element {
	t.Helper()
	el, ok := c.Find(tg).(*dataset.Element)
	require.True(t, ok, "element %v not found", tg)
	return el
}

func TestFromDICOM_Structure(t *testing.T) {
	ds := datasettest.New(t, 2)
	root := ds.Root()

	assert.Equal(t, dataset.KindDataset, root.Kind())
	assert.Nil(t, root.Parent())
	assert.Equal(t, 10, root.NumChildren())

	name := elementOf(t, root, tag.PatientName)
	assert.Equal(t, "PN", name.VRName())
	assert.Equal(t, datasettest.PatientName, name.StringValue(0))
	assert.Equal(t, uint32(8), name.Length())
	assert.Equal(t, 5, name.Position())

	seq := sequenceOf(t, ds)
	assert.Equal(t, "SQ", seq.VRName())
	require.Equal(t, 2, seq.NumChildren())
	item := seq.ItemAt(1)
	require.NotNil(t, item)
	assert.Equal(t, 1, item.Position())
	assert.Equal(t, seq.Handle(), item.Parent().Handle())
	assert.Equal(t, "ALT-2", elementOf(t, item, tag.PatientID).StringValue(0))

	// Each item holds two 6-byte values behind 8-byte headers.
	assert.Equal(t, uint32(28), item.Length())
	assert.Equal(t, uint32(2*(8+28)), seq.Length())
	assert.Nil(t, seq.ItemAt(2))
}

func TestElementsStaySorted(t *testing.T) {
	ds := datasettest.New(t, 1)
	root := ds.Root()

	n, err := ds.AddElement(root, tag.PatientBirthDate)
	require.NoError(t, err)
	assert.Equal(t, dataset.KindElement, n.Kind())
	// PatientBirthDate (0010,0030) sorts between PatientID and the sequence.
	assert.Equal(t, 7, n.Position())
	assert.Equal(t, tag.OtherPatientIDsSequence, root.ElementAt(8).(*dataset.Sequence).Tag())

	_, err = ds.AddElement(root, tag.PatientBirthDate)
	assert.Error(t, err, "duplicate tags are rejected")

	seq, err := ds.AddElement(root, tag.ReferencedStudySequence)
	require.NoError(t, err)
	assert.IsType(t, &dataset.Sequence{}, seq)
}

func TestRemoveInvalidatesSubtree(t *testing.T) {
	ds := datasettest.New(t, 3)
	seq := sequenceOf(t, ds)
	second := seq.ItemAt(1)
	third := seq.ItemAt(2)
	inner := elementOf(t, second, tag.PatientID)

	require.NoError(t, seq.RemoveItem(1))

	assert.False(t, ds.Valid(second.Handle()))
	assert.False(t, ds.Valid(inner.Handle()))
	assert.True(t, ds.Valid(third.Handle()))
	assert.Equal(t, 1, third.Position())

	_, err := ds.Node(second.Handle())
	assert.ErrorIs(t, err, dataset.ErrStaleHandle)

	// A freed slot is reused under a new generation: the old handle stays stale.
	added, err := seq.AppendItem()
	require.NoError(t, err)
	assert.NotEqual(t, second.Handle(), added.Handle())
	assert.False(t, ds.Valid(second.Handle()))

	assert.ErrorIs(t, seq.RemoveItem(7), dataset.ErrNotFound)
}

func TestZeroHandleIsInvalid(t *testing.T) {
	ds := datasettest.New(t, 1)
	var h dataset.Handle
	assert.True(t, h.IsZero())
	assert.False(t, ds.Valid(h))
	_, err := ds.Node(h)
	assert.ErrorIs(t, err, dataset.ErrStaleHandle)
}

func TestPutString(t *testing.T) {
	tests := []struct {
		name    string
		tag     tag.Tag
		value   string
		wantErr error
	}{
		{name: "person name", tag: tag.PatientName, value: "SMITH^JANE"},
		{name: "code string", tag: tag.Modality, value: "MR"},
		{name: "bad date", tag: tag.StudyDate, value: "2024-01-01", wantErr: dataset.ErrInvalidValue},
		{name: "valid date", tag: tag.StudyDate, value: "20240101"},
		{name: "bad uid", tag: tag.StudyInstanceUID, value: "1.02.3", wantErr: dataset.ErrInvalidValue},
		{name: "uid", tag: tag.StudyInstanceUID, value: "1.2.3.4"},
		{name: "lowercase code string", tag: tag.Modality, value: "mr", wantErr: dataset.ErrInvalidValue},
		{name: "too long", tag: tag.PatientID, value: strings.Repeat("X", 65), wantErr: dataset.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := datasettest.New(t, 1)
			el := elementOf(t, ds.Root(), tt.tag)
			before := el.StringValue(0)

			err := el.PutString(tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, el.StringValue(0), "failed writes leave the value untouched")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, el.StringValue(0))
		})
	}
}

func TestPutString_BinaryVRs(t *testing.T) {
	ds := dataset.New()
	rows, err := ds.AddElement(ds.Root(), tag.Rows)
	require.NoError(t, err)
	el := rows.(*dataset.Element)

	require.NoError(t, el.PutString("512"))
	assert.Equal(t, "512", el.StringValue(0))
	assert.Equal(t, uint32(2), el.Length())

	assert.ErrorIs(t, el.PutString("-1"), dataset.ErrInvalidValue)
	assert.ErrorIs(t, el.PutString("70000"), dataset.ErrInvalidValue)
}

func TestUnsignedVeryLongOverflow(t *testing.T) {
	ds := dataset.New()
	el, err := ds.AddElementValue(ds.Root(), tag.Tag{Group: 0x0011, Element: 0x1010}, "UV", []int{1})
	require.NoError(t, err)

	require.NoError(t, el.PutString("9223372036854775807"))
	assert.Equal(t, "9223372036854775807", el.StringValue(0))

	assert.ErrorIs(t, el.PutString("18446744073709551615"), dataset.ErrInvalidValue)
	assert.Equal(t, "9223372036854775807", el.StringValue(0))

	raw := bytes.Repeat([]byte{0xff}, 8)
	assert.ErrorIs(t, el.CreateValueFromStream(bytes.NewReader(raw), 8, binary.LittleEndian), dataset.ErrInvalidValue)
	assert.Equal(t, "9223372036854775807", el.StringValue(0))
}

func TestStringValueTruncates(t *testing.T) {
	ds := datasettest.New(t, 1)
	el := elementOf(t, ds.Root(), tag.PatientComments)
	assert.Equal(t, datasettest.LongComment, el.StringValue(0))
	assert.Len(t, el.StringValue(100), 100)
	assert.Equal(t, uint32(150), el.Length())
}

func TestCreateValueFromStream(t *testing.T) {
	t.Run("odd length is rejected before reading", func(t *testing.T) {
		ds := datasettest.New(t, 1)
		el := elementOf(t, ds.Root(), tag.PatientName)
		src := bytes.NewReader([]byte("ABCDEFG"))

		err := el.CreateValueFromStream(src, 7, binary.LittleEndian)
		assert.ErrorIs(t, err, dataset.ErrOddLength)
		assert.Equal(t, 7, src.Len(), "nothing is consumed")
		assert.Equal(t, datasettest.PatientName, el.StringValue(0))
	})

	t.Run("short stream", func(t *testing.T) {
		ds := datasettest.New(t, 1)
		el := elementOf(t, ds.Root(), tag.PatientName)
		err := el.CreateValueFromStream(bytes.NewReader([]byte("AB")), 4, binary.LittleEndian)
		require.Error(t, err)
		assert.Equal(t, datasettest.PatientName, el.StringValue(0))
	})

	t.Run("string value", func(t *testing.T) {
		ds := datasettest.New(t, 1)
		el := elementOf(t, ds.Root(), tag.PatientName)
		require.NoError(t, el.CreateValueFromStream(bytes.NewReader([]byte("ROE^ANN ")), 8, binary.LittleEndian))
		assert.Equal(t, "ROE^ANN", el.StringValue(0))
	})

	t.Run("little endian integers", func(t *testing.T) {
		ds := dataset.New()
		n, err := ds.AddElement(ds.Root(), tag.Columns)
		require.NoError(t, err)
		el := n.(*dataset.Element)
		require.NoError(t, el.CreateValueFromStream(bytes.NewReader([]byte{0x00, 0x02, 0x01, 0x00}), 4, binary.LittleEndian))
		assert.Equal(t, `512\1`, el.StringValue(0))
	})
}

func TestTagName(t *testing.T) {
	assert.Equal(t, "PatientName", dataset.TagName(tag.PatientName))
	assert.Equal(t, "IssuerOfPatientID", dataset.TagName(tag.IssuerOfPatientID))
	assert.Equal(t, "OtherPatientIDsSequence", dataset.TagName(tag.OtherPatientIDsSequence))
	assert.Equal(t, "PrivateTag", dataset.TagName(tag.Tag{Group: 0x0011, Element: 0x1234}))
}

func TestNewUID(t *testing.T) {
	a, b := dataset.NewUID(), dataset.NewUID()
	assert.True(t, strings.HasPrefix(a, "2.25."))
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, len(a), 64)

	ds := datasettest.New(t, 1)
	require.NoError(t, elementOf(t, ds.Root(), tag.StudyInstanceUID).PutString(a), "generated UIDs are valid UI values")
}

func TestKindString(t *testing.T) {
	for k, want := range map[dataset.Kind]string{
		dataset.KindDataset:  "dataset",
		dataset.KindItem:     "item",
		dataset.KindSequence: "sequence",
		dataset.KindElement:  "element",
	} {
		assert.Equal(t, want, k.String())
	}
}
