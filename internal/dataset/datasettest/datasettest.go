// Package datasettest builds small DICOM datasets for tests.
package datasettest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomedit/internal/dataset"
)

// Values carried by the sample dataset.
const (
	PatientName      = "DOE^JOHN"
	PatientID        = "PID001"
	StudyInstanceUID = "1.2.826.0.1.3680043.8.498.1"
	StudyDate        = "20230115"
	Modality         = "CT"
)

// LongComment is a PatientComments value longer than the display limit.
var LongComment = strings.Repeat("0123456789", 15)

// Elements returns the elements of the sample dataset. OtherPatientIDsSequence
// holds items entries, each with its own PatientID and IssuerOfPatientID.
func Elements(items int) []*dicom.Element {
	seqItems := make([][]*dicom.Element, 0, items)
	for i := 1; i <= items; i++ {
		seqItems = append(seqItems, []*dicom.Element{
			mustNewElement(tag.PatientID, []string{fmt.Sprintf("ALT-%d", i)}),
			mustNewElement(tag.IssuerOfPatientID, []string{fmt.Sprintf("HOSP-%d", i)}),
		})
	}
	return []*dicom.Element{
		mustNewElement(tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{"1.2.826.0.1.3680043.8.498.2"}),
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.StudyDate, []string{StudyDate}),
		mustNewElement(tag.Modality, []string{Modality}),
		mustNewElement(tag.PatientName, []string{PatientName}),
		mustNewElement(tag.PatientID, []string{PatientID}),
		mustNewElement(tag.OtherPatientIDsSequence, seqItems),
		mustNewElement(tag.PatientComments, []string{LongComment}),
		mustNewElement(tag.StudyInstanceUID, []string{StudyInstanceUID}),
	}
}

// New returns the sample dataset with a sequence of the given number of items.
func New(tb testing.TB, items int) *dataset.Dataset {
	tb.Helper()
	ds, err := dataset.FromDICOM(dicom.Dataset{Elements: Elements(items)})
	if err != nil {
		tb.Fatalf("build sample dataset: %v", err)
	}
	return ds
}

// WriteFile writes the sample dataset to dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name string, items int) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := dicom.Write(f, dicom.Dataset{Elements: Elements(items)}); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

func mustNewElement(t tag.Tag, value any) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}
