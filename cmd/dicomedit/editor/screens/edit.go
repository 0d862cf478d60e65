package screens

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/editor/components"
	"github.com/mrsinham/dicomedit/internal/dataset"
)

// FilePrefix marks a value to be loaded from a file instead of parsed as text.
const FilePrefix = "@"

var (
	errMissingFilePath = errors.New("file path is missing after @")
	errEmptyName       = errors.New("name is required")
)

// formScreen is the shared shell of the single-form screens: a huh form, a help
// panel following the focused field and the done/cancelled state.
type formScreen struct {
	title     string
	subtitle  string
	form      *huh.Form
	helpPanel *components.HelpPanel
	done      bool
	cancelled bool
}

func (s *formScreen) init() tea.Cmd { return s.form.Init() }

func (s *formScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			s.cancelled = true
			return nil
		}
	case tea.WindowSizeMsg:
		s.helpPanel.SetWidth(min(msg.Width, 80))
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}
	if focused := s.form.GetFocusedField(); focused != nil {
		s.helpPanel.SetField(focused.GetKey())
	}
	switch s.form.State {
	case huh.StateCompleted:
		s.done = true
	case huh.StateAborted:
		s.cancelled = true
	}
	return cmd
}

func (s *formScreen) view() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		components.TitleStyle.Render(s.title),
		components.SubtitleStyle.Render(s.subtitle),
		s.form.View(),
		"",
		s.helpPanel.View(),
		"",
		"Tab: Next field | Enter: Submit | Esc: Cancel",
	)
}

// ValueScreen edits the value of one element.
type ValueScreen struct {
	formScreen
	value string
}

// NewValueScreen creates the form for the element labelled label, prefilled with
// its current value.
func NewValueScreen(label, current string) *ValueScreen {
	s := &ValueScreen{value: current}
	s.title = "DICOMEDIT - Edit Value"
	s.subtitle = label
	s.helpPanel = components.NewHelpPanel()
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("edit_value").
				Title("Value").
				Placeholder("value, or @/path/to/file").
				Value(&s.value).
				Validate(validateFileValue),
		),
	).WithShowHelp(false).WithShowErrors(true)
	return s
}

func validateFileValue(v string) error {
	if strings.HasPrefix(v, FilePrefix) && strings.TrimSpace(strings.TrimPrefix(v, FilePrefix)) == "" {
		return errMissingFilePath
	}
	return nil
}

// Init implements tea.Model
func (s *ValueScreen) Init() tea.Cmd { return s.init() }

// Update implements tea.Model
func (s *ValueScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return s, s.update(msg)
}

// View implements tea.Model
func (s *ValueScreen) View() string { return s.view() }

// Done returns true if the form was completed
func (s *ValueScreen) Done() bool { return s.done }

// Cancelled returns true if the user cancelled
func (s *ValueScreen) Cancelled() bool { return s.cancelled }

// Value returns the entered text and, when it names a file, the file path.
func (s *ValueScreen) Value() (text, path string) {
	if strings.HasPrefix(s.value, FilePrefix) {
		return "", strings.TrimSpace(strings.TrimPrefix(s.value, FilePrefix))
	}
	return s.value, ""
}

// AddScreen asks for the tag path and value of a new element.
type AddScreen struct {
	formScreen
	tagPath string
	value   string
}

// NewAddScreen creates the form adding below the node labelled parent.
func NewAddScreen(parent string) *AddScreen {
	s := &AddScreen{}
	s.title = "DICOMEDIT - Add Element"
	s.subtitle = "Below " + parent
	s.helpPanel = components.NewHelpPanel()
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("add_path").
				Title("Tag Path").
				Placeholder("E.g. PatientName or 10,10").
				Value(&s.tagPath).
				Validate(validateTagPath),
			huh.NewInput().
				Key("value").
				Title("Value").
				Value(&s.value),
		),
	).WithShowHelp(false).WithShowErrors(true)
	return s
}

func validateTagPath(p string) error {
	_, err := dataset.ParsePath(p)
	return err
}

// Init implements tea.Model
func (s *AddScreen) Init() tea.Cmd { return s.init() }

// Update implements tea.Model
func (s *AddScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return s, s.update(msg)
}

// View implements tea.Model
func (s *AddScreen) View() string { return s.view() }

// Done returns true if the form was completed
func (s *AddScreen) Done() bool { return s.done }

// Cancelled returns true if the user cancelled
func (s *AddScreen) Cancelled() bool { return s.cancelled }

// Result returns the entered tag path and value.
func (s *AddScreen) Result() (tagPath, value string) {
	return strings.TrimSpace(s.tagPath), s.value
}
