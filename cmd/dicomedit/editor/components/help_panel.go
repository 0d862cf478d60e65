package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/editor/help"
)

var (
	helpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	helpDetailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	helpNoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// HelpPanel shows the help text of the focused form field and an optional note
// (a validation message, or why a field is disabled).
type HelpPanel struct {
	field string
	note  string
	width int
}

// NewHelpPanel creates a help panel
func NewHelpPanel() *HelpPanel {
	return &HelpPanel{width: 72}
}

// SetField selects the help text to display.
func (h *HelpPanel) SetField(field string) { h.field = field }

// Field returns the selected field key.
func (h *HelpPanel) Field() string { return h.field }

// SetNote replaces the note under the help text. An empty note hides it.
func (h *HelpPanel) SetNote(note string) { h.note = note }

// SetWidth bounds the panel width; narrow terminals keep the default.
func (h *HelpPanel) SetWidth(width int) {
	if width >= 30 {
		h.width = width
	}
}

// View renders the help panel
func (h *HelpPanel) View() string {
	style := helpPanelStyle.Width(h.width - 2)

	text, ok := help.Texts[h.field]
	if !ok {
		return style.Render(helpDetailStyle.Render("Select a field to see help"))
	}

	var sb strings.Builder
	sb.WriteString(helpTitleStyle.Render(text.Title))
	sb.WriteString("\n")
	sb.WriteString(helpDescStyle.Render(text.Description))
	sb.WriteString("\n\n")
	sb.WriteString(helpDetailStyle.Render(text.Details))
	if h.note != "" {
		sb.WriteString("\n\n")
		sb.WriteString(helpNoteStyle.Render(h.note))
	}
	return style.Render(sb.String())
}
