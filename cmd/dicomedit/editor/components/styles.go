package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/dicomedit/internal/model"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			MarginBottom(1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	SelectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237"))

	ModifiedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	rowStyles = map[model.Style]lipgloss.Style{
		model.StyleNormal:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		model.StyleDisabled: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
)

// RowStyle maps a model foreground to a terminal style.
func RowStyle(s model.Style) lipgloss.Style {
	if st, ok := rowStyles[s]; ok {
		return st
	}
	return rowStyles[model.StyleNormal]
}
