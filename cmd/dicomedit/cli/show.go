package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomedit/internal/model"
)

var (
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	headerStyle   = cellStyle.Bold(true)
	disabledStyle = cellStyle.Foreground(lipgloss.Color("240"))
)

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show FILE...",
		Short: "Print the element tree of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.openAll(args)
			if err != nil {
				return err
			}
			m := model.New(set, model.WithVisibility(a.visibility))
			out := cmd.OutOrStdout()
			for i := range set.Files() {
				if err := set.SetCurrent(i); err != nil {
					return err
				}
				if set.Len() > 1 {
					fmt.Fprintf(out, "== %s ==\n", set.Current().Path)
				}
				printTree(out, m)
			}
			return nil
		},
	}
	return cmd
}

// printTree renders the model as a table; nesting shows as indentation of the
// tag column.
func printTree(w io.Writer, m *model.Model) {
	var rows [][]string
	var styles []model.Style
	var walk func(parent model.Index, depth int)
	walk = func(parent model.Index, depth int) {
		for r := 0; r < m.RowCount(parent); r++ {
			idx := m.Index(r, model.ColumnTag, parent)
			row := make([]string, m.ColumnCount())
			for c := range row {
				if v := m.Data(idx.Sibling(c), model.RoleDisplay); v != nil {
					row[c] = fmt.Sprint(v)
				}
			}
			row[model.ColumnTag] = strings.Repeat("  ", depth) + row[model.ColumnTag]
			rows = append(rows, row)
			style, _ := m.Data(idx, model.RoleForeground).(model.Style)
			styles = append(styles, style)
			walk(idx, depth+1)
		}
	}
	walk(model.Index{}, 0)

	headers := make([]string, m.ColumnCount())
	for c := range headers {
		headers[c] = m.HeaderData(c)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(styles) && styles[row] == model.StyleDisabled:
				return disabledStyle
			default:
				return cellStyle
			}
		})
	fmt.Fprintln(w, t.String())
}
