package screens

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/editor/components"
	"github.com/mrsinham/dicomedit/internal/bulkedit"
)

var (
	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	errorHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)
)

// bulkReport flattens err to one status line.
func bulkReport(err error) string {
	r := bulkedit.NewReport(err)
	if !r.IsBatch() {
		return r.Message
	}
	return r.Message + " " + strings.Join(r.Details, "; ")
}

// ReportScreen shows a failed operation, with one line per failed file for batches.
type ReportScreen struct {
	title  string
	report bulkedit.Report
	done   bool
}

// NewReportScreen creates the screen for err under title.
func NewReportScreen(title string, err error) *ReportScreen {
	return &ReportScreen{title: title, report: bulkedit.NewReport(err)}
}

// Init implements tea.Model
func (s *ReportScreen) Init() tea.Cmd { return nil }

// Update implements tea.Model
func (s *ReportScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc", "enter", "q":
			s.done = true
		}
	}
	return s, nil
}

// View implements tea.Model
func (s *ReportScreen) View() string {
	var sb strings.Builder
	sb.WriteString(errorTitleStyle.Render("✗ " + s.title))
	sb.WriteString("\n\n")
	sb.WriteString(errorMessageStyle.Render(s.report.Message))
	sb.WriteString("\n")
	for _, d := range s.report.Details {
		sb.WriteString("  - ")
		sb.WriteString(errorMessageStyle.Render(d))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(errorHintStyle.Render("Press Enter to go back"))
	return sb.String()
}

// Done returns true once the report was acknowledged
func (s *ReportScreen) Done() bool { return s.done }

// Report returns the displayed report.
func (s *ReportScreen) Report() bulkedit.Report { return s.report }

// PresetScreen asks for the name under which the last bulk edit is saved.
type PresetScreen struct {
	formScreen
	name string
}

// NewPresetScreen creates the form for req.
func NewPresetScreen(req bulkedit.Request) *PresetScreen {
	s := &PresetScreen{}
	s.title = "DICOMEDIT - Save Preset"
	s.subtitle = req.Mode.Label() + ": " + req.TagPath
	s.helpPanel = components.NewHelpPanel()
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("preset_name").
				Title("Preset Name").
				Value(&s.name).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return errEmptyName
					}
					return nil
				}),
		),
	).WithShowHelp(false).WithShowErrors(true)
	return s
}

// Init implements tea.Model
func (s *PresetScreen) Init() tea.Cmd { return s.init() }

// Update implements tea.Model
func (s *PresetScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return s, s.update(msg)
}

// View implements tea.Model
func (s *PresetScreen) View() string { return s.view() }

// Done returns true if the form was completed
func (s *PresetScreen) Done() bool { return s.done }

// Cancelled returns true if the user cancelled
func (s *PresetScreen) Cancelled() bool { return s.cancelled }

// Name returns the entered preset name.
func (s *PresetScreen) Name() string { return strings.TrimSpace(s.name) }
