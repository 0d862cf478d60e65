package help

// HelpText contains information about a field
type HelpText struct {
	Title       string
	Description string
	Details     string
}

// Texts contains help information for the editor's form fields
var Texts = map[string]HelpText{
	"tag_path": {
		Title:       "TAG PATH",
		Description: "Which element to edit in every open file.",
		Details: `Segments joined by '.', each a keyword or a tag number:
  PatientName             keyword, case-insensitive
  10,10 or (0010,0010)    group,element in hex
Intermediate segments are sequences and need an item selector:
  OtherPatientIDsSequence[0].PatientID    first item
  OtherPatientIDsSequence[*].PatientID    every item
StudyDate (0008,0020) cannot be edited.`,
	},
	"value": {
		Title:       "VALUE",
		Description: "The new value, checked against the element's VR.",
		Details: `Separate multiple values with '\' (e.g. ORIGINAL\PRIMARY).
Dates are YYYYMMDD, times HHMMSS.FFFFFF, names FAMILY^Given.
Ignored when the mode is Delete.`,
	},
	"mode": {
		Title:       "MODE",
		Description: "What happens in each file.",
		Details: `Insert or overwrite: writes the value, creating the element
  and any missing sequence or item.
Overwrite existing only: skips files where the path does not resolve.
Delete: removes every element the path addresses.`,
	},
	"edit_value": {
		Title:       "ELEMENT VALUE",
		Description: "The new value of the selected element.",
		Details: `Only Patient Comments (0010,4000) and Patient ID (0010,0020)
can be edited in place. Enter '@' followed by a file path to load
the raw bytes of that file as the value.`,
	},
	"add_path": {
		Title:       "NEW ELEMENT",
		Description: "Tag path of the element to add below the selected node.",
		Details: `Relative to the selected dataset or item. Missing sequences
and items along the path are created.`,
	},
	"preset_name": {
		Title:       "PRESET NAME",
		Description: "Saves the last bulk edit to the configuration file.",
		Details:     "Run it later with: dicomedit bulk --preset NAME FILES...",
	},
}
