// Package util provides tag keyword lookup for tag paths typed by users.
package util

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// TagScope represents the DICOM hierarchy level a tag belongs to.
type TagScope int

const (
	// ScopePatient indicates tags that should be consistent across all files of a patient.
	ScopePatient TagScope = iota
	// ScopeStudy indicates tags that should be consistent within a study.
	ScopeStudy
	// ScopeSeries indicates tags that should be consistent within a series.
	ScopeSeries
	// ScopeImage indicates tags that can vary per file.
	ScopeImage
	// ScopeUnknown is used for dictionary tags the registry does not classify.
	ScopeUnknown
)

// String returns the string representation of a TagScope.
func (s TagScope) String() string {
	switch s {
	case ScopePatient:
		return "Patient"
	case ScopeStudy:
		return "Study"
	case ScopeSeries:
		return "Series"
	case ScopeImage:
		return "Image"
	default:
		return "Unknown"
	}
}

// TagInfo contains information about a DICOM tag, including its scope.
type TagInfo struct {
	Name  string
	Tag   tag.Tag
	Scope TagScope
}

// tagRegistry maps lowercase keywords of commonly edited tags to their TagInfo.
var tagRegistry = map[string]TagInfo{
	// Patient level tags
	"patientname":      {Name: "PatientName", Tag: tag.PatientName, Scope: ScopePatient},
	"patientid":        {Name: "PatientID", Tag: tag.PatientID, Scope: ScopePatient},
	"patientbirthdate": {Name: "PatientBirthDate", Tag: tag.PatientBirthDate, Scope: ScopePatient},
	"patientsex":       {Name: "PatientSex", Tag: tag.PatientSex, Scope: ScopePatient},
	"otherpatientids":  {Name: "OtherPatientIDs", Tag: tag.OtherPatientIDs, Scope: ScopePatient},
	"patientcomments":  {Name: "PatientComments", Tag: tag.PatientComments, Scope: ScopePatient},

	// Study level tags
	"studyinstanceuid":            {Name: "StudyInstanceUID", Tag: tag.StudyInstanceUID, Scope: ScopeStudy},
	"studydate":                   {Name: "StudyDate", Tag: tag.StudyDate, Scope: ScopeStudy},
	"studytime":                   {Name: "StudyTime", Tag: tag.StudyTime, Scope: ScopeStudy},
	"studyid":                     {Name: "StudyID", Tag: tag.StudyID, Scope: ScopeStudy},
	"studydescription":            {Name: "StudyDescription", Tag: tag.StudyDescription, Scope: ScopeStudy},
	"accessionnumber":             {Name: "AccessionNumber", Tag: tag.AccessionNumber, Scope: ScopeStudy},
	"institutionname":             {Name: "InstitutionName", Tag: tag.InstitutionName, Scope: ScopeStudy},
	"institutionaldepartmentname": {Name: "InstitutionalDepartmentName", Tag: tag.InstitutionalDepartmentName, Scope: ScopeStudy},
	"referringphysicianname":      {Name: "ReferringPhysicianName", Tag: tag.ReferringPhysicianName, Scope: ScopeStudy},

	// Series level tags
	"seriesinstanceuid":         {Name: "SeriesInstanceUID", Tag: tag.SeriesInstanceUID, Scope: ScopeSeries},
	"seriesdescription":         {Name: "SeriesDescription", Tag: tag.SeriesDescription, Scope: ScopeSeries},
	"seriesnumber":              {Name: "SeriesNumber", Tag: tag.SeriesNumber, Scope: ScopeSeries},
	"modality":                  {Name: "Modality", Tag: tag.Modality, Scope: ScopeSeries},
	"bodypartexamined":          {Name: "BodyPartExamined", Tag: tag.BodyPartExamined, Scope: ScopeSeries},
	"referencedseriessequence":  {Name: "ReferencedSeriesSequence", Tag: tag.ReferencedSeriesSequence, Scope: ScopeSeries},
	"referencedstudysequence":   {Name: "ReferencedStudySequence", Tag: tag.ReferencedStudySequence, Scope: ScopeStudy},
	"requestattributessequence": {Name: "RequestAttributesSequence", Tag: tag.RequestAttributesSequence, Scope: ScopeStudy},

	// Image level tags
	"sopinstanceuid": {Name: "SOPInstanceUID", Tag: tag.SOPInstanceUID, Scope: ScopeImage},
	"instancenumber": {Name: "InstanceNumber", Tag: tag.InstanceNumber, Scope: ScopeImage},
	"windowcenter":   {Name: "WindowCenter", Tag: tag.WindowCenter, Scope: ScopeImage},
	"windowwidth":    {Name: "WindowWidth", Tag: tag.WindowWidth, Scope: ScopeImage},
}

// GetTagByName returns TagInfo for a given tag keyword.
// The lookup is case-insensitive for registered tags and falls back to the full
// DICOM dictionary. If the tag is not found, an error is returned with a
// suggestion for the closest registered keyword (using Levenshtein distance).
func GetTagByName(name string) (TagInfo, error) {
	trimmed := strings.TrimSpace(name)
	normalizedName := strings.ToLower(trimmed)

	if info, ok := tagRegistry[normalizedName]; ok {
		return info, nil
	}

	if trimmed != "" {
		if info, err := tag.FindByKeyword(trimmed); err == nil {
			return TagInfo{Name: info.Keyword, Tag: info.Tag, Scope: ScopeUnknown}, nil
		}
	}

	suggestion := findClosestTagName(normalizedName)
	if suggestion != "" {
		return TagInfo{}, fmt.Errorf("unknown tag %q, did you mean %q?", name, suggestion)
	}

	return TagInfo{}, fmt.Errorf("unknown tag %q", name)
}

// ScopeOf returns the registered scope of t, or ScopeUnknown.
func ScopeOf(t tag.Tag) TagScope {
	for _, info := range tagRegistry {
		if info.Tag == t {
			return info.Scope
		}
	}
	return ScopeUnknown
}

// findClosestTagName finds the closest matching tag name using Levenshtein distance.
// Returns empty string if no close match is found (distance > 5).
func findClosestTagName(input string) string {
	const maxDistance = 5
	bestDistance := maxDistance + 1
	var bestMatch string

	for key, info := range tagRegistry {
		distance := levenshteinDistance(input, key)
		if distance < bestDistance || (distance == bestDistance && info.Name < bestMatch) {
			bestDistance = distance
			bestMatch = info.Name
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

// levenshteinDistance calculates the minimum number of single-character edits
// (insertions, deletions or substitutions) to change one string into the other.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
