package screens

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/editor/components"
	"github.com/mrsinham/dicomedit/internal/bulkedit"
	"github.com/mrsinham/dicomedit/internal/dataset"
)

// valueLines is the height of the multi-line value field.
const valueLines = 4

// BulkScreen is the bulk edit dialog. The form fields are mirrored into a
// bulkedit.Builder on every update, which applies the StudyDate guard.
type BulkScreen struct {
	formScreen
	builder    *bulkedit.Builder
	files      int
	valueField *huh.Text

	tagPath string
	value   string
	mode    bulkedit.Mode
	err     error
}

// NewBulkScreen creates the dialog for a batch over n files.
func NewBulkScreen(n int) *BulkScreen {
	s := &BulkScreen{builder: bulkedit.NewBuilder(), files: n}
	s.mode = s.builder.Mode()
	s.title = "DICOMEDIT - Bulk Edit"
	s.subtitle = fmt.Sprintf("Applies to all %d open file(s)", n)
	s.helpPanel = components.NewHelpPanel()

	modes := []bulkedit.Mode{bulkedit.ModeSet, bulkedit.ModeSetExisting, bulkedit.ModeDelete}
	options := make([]huh.Option[bulkedit.Mode], len(modes))
	for i, m := range modes {
		options[i] = huh.NewOption(m.Label(), m)
	}

	s.valueField = huh.NewText().
		Key("value").
		Title("Value").
		Placeholder(bulkedit.ValuePlaceholder).
		Lines(valueLines).
		Value(&s.value)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("tag_path").
				Title("Tag Path").
				Placeholder(bulkedit.TagPathPlaceholder).
				Value(&s.tagPath).
				Validate(s.validateTagPath),
			s.valueField,
			huh.NewSelect[bulkedit.Mode]().
				Key("mode").
				Title("Mode").
				Options(options...).
				Value(&s.mode),
		),
	).WithShowHelp(false).WithShowErrors(true)
	return s
}

func (s *BulkScreen) validateTagPath(p string) error {
	s.builder.SetTagPath(p)
	if s.builder.Forbidden() {
		return bulkedit.ErrForbiddenTag
	}
	if strings.TrimSpace(p) == "" {
		return bulkedit.ErrEmptyTagPath
	}
	_, err := dataset.ParsePath(p)
	return err
}

// sync copies the form fields into the builder and refreshes the guard note.
func (s *BulkScreen) sync() {
	s.builder.SetTagPath(s.tagPath)
	s.builder.SetMode(s.mode)
	s.builder.SetValue(s.value)
	switch {
	case s.builder.Forbidden():
		s.value = ""
		s.helpPanel.SetNote(s.builder.ValuePlaceholder())
	case !s.builder.ValueEnabled():
		s.helpPanel.SetNote("Delete mode ignores the value.")
	default:
		s.helpPanel.SetNote("")
	}
}

// Init implements tea.Model
func (s *BulkScreen) Init() tea.Cmd { return s.init() }

// Update implements tea.Model
func (s *BulkScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := s.update(msg)
	s.sync()
	switch {
	case s.cancelled:
		s.builder.Cancel()
	case s.done && !s.builder.Closed():
		if _, err := s.builder.Confirm(); err != nil {
			s.err = err
		}
	}
	return s, cmd
}

// View implements tea.Model
func (s *BulkScreen) View() string {
	if s.builder.Forbidden() {
		s.subtitle = fmt.Sprintf("Applies to all %d open file(s) | Value and mode disabled", s.files)
	} else {
		s.subtitle = fmt.Sprintf("Applies to all %d open file(s) | %s", s.files, s.builder.Mode().Label())
	}
	return s.view()
}

// Done returns true if the dialog was confirmed
func (s *BulkScreen) Done() bool { return s.done }

// Cancelled returns true if the user cancelled
func (s *BulkScreen) Cancelled() bool { return s.cancelled }

// Result returns the confirmed request. The error explains a completed form the
// builder refused.
func (s *BulkScreen) Result() (bulkedit.Request, error) {
	if s.err != nil {
		return bulkedit.Request{}, s.err
	}
	req, ok := s.builder.Result()
	if !ok {
		return bulkedit.Request{}, bulkedit.ErrCancelled
	}
	return req, nil
}

// Builder exposes the dialog state.
func (s *BulkScreen) Builder() *bulkedit.Builder { return s.builder }
