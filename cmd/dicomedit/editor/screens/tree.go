package screens

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/editor/components"
	"github.com/mrsinham/dicomedit/internal/dataset"
	"github.com/mrsinham/dicomedit/internal/files"
	"github.com/mrsinham/dicomedit/internal/model"
)

// Action is a request from the tree to open another screen.
type Action int

const (
	ActionNone Action = iota
	ActionEditValue
	ActionAddElement
	ActionBulkEdit
	ActionSavePreset
	ActionQuit
)

// column widths of the tag, VR and length columns
const (
	tagWidth    = 52
	vrWidth     = 4
	lengthWidth = 8
)

type treeRow struct {
	idx   model.Index
	depth int
}

// TreeScreen browses the current file through the model and runs the in-place
// operations: add item, delete, save and file switching.
type TreeScreen struct {
	model    *model.Model
	files    *files.Set
	cancel   func()
	rows     []treeRow
	cursor   int
	offset   int
	expanded map[dataset.Handle]bool
	status   string
	action   Action
	width    int
	height   int
}

// NewTreeScreen creates the browser and subscribes it to m.
func NewTreeScreen(m *model.Model, fs *files.Set) *TreeScreen {
	s := &TreeScreen{
		model:    m,
		files:    fs,
		expanded: make(map[dataset.Handle]bool),
		height:   24,
	}
	s.cancel = m.Subscribe(s.onEvent)
	s.rebuild()
	return s
}

// Close removes the model subscription.
func (s *TreeScreen) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *TreeScreen) onEvent(ev model.Event) {
	switch ev.Kind {
	case model.EventReset:
		s.expanded = make(map[dataset.Handle]bool)
		s.cursor = 0
	case model.EventRowsInserted:
		s.expanded[ev.Parent.Handle()] = true
	case model.EventEditRefused:
		s.status = s.refusedStatus(ev.Index)
		return
	case model.EventEditFailed:
		s.status = fmt.Sprintf("Edit failed: %v", ev.Err)
		return
	}
	s.rebuild()
}

// rebuild flattens the expanded part of the tree and keeps the cursor on the same
// node when it still exists.
func (s *TreeScreen) rebuild() {
	var selected dataset.Handle
	if s.cursor < len(s.rows) {
		selected = s.rows[s.cursor].idx.Handle()
	}
	s.rows = s.rows[:0]
	s.appendRows(model.Index{}, 0)

	for i, r := range s.rows {
		if !selected.IsZero() && r.idx.Handle() == selected {
			s.cursor = i
			return
		}
	}
	if s.cursor >= len(s.rows) {
		s.cursor = max(len(s.rows)-1, 0)
	}
}

func (s *TreeScreen) appendRows(parent model.Index, depth int) {
	n := s.model.RowCount(parent)
	for r := 0; r < n; r++ {
		idx := s.model.Index(r, model.ColumnTag, parent)
		s.rows = append(s.rows, treeRow{idx: idx, depth: depth})
		if s.expanded[idx.Handle()] {
			s.appendRows(idx, depth+1)
		}
	}
}

// Selected returns the index under the cursor, or the root when the tree is empty.
func (s *TreeScreen) Selected() model.Index {
	if s.cursor < len(s.rows) {
		return s.rows[s.cursor].idx
	}
	return model.Index{}
}

// Action returns the pending request and clears it.
func (s *TreeScreen) Action() Action {
	a := s.action
	s.action = ActionNone
	return a
}

// SetStatus replaces the status line.
func (s *TreeScreen) SetStatus(msg string) { s.status = msg }

// Status returns the status line.
func (s *TreeScreen) Status() string { return s.status }

// Init implements tea.Model
func (s *TreeScreen) Init() tea.Cmd { return nil }

// Update implements tea.Model
func (s *TreeScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	case tea.KeyMsg:
		s.status = ""
		s.handleKey(msg.String())
	}
	return s, nil
}

func (s *TreeScreen) handleKey(key string) {
	switch key {
	case "ctrl+c", "q":
		s.action = ActionQuit
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.rows)-1 {
			s.cursor++
		}
	case "home", "g":
		s.cursor = 0
	case "end", "G":
		s.cursor = max(len(s.rows)-1, 0)
	case "right", "l", " ":
		s.setExpanded(true)
	case "left", "h":
		s.collapseOrParent()
	case "enter", "e":
		s.editOrToggle()
	case "a":
		s.action = ActionAddElement
	case "i":
		s.report(s.model.AddItem(s.Selected()))
	case "d", "delete":
		if len(s.rows) > 0 {
			s.report(s.model.Delete(s.Selected()))
		}
	case "b":
		s.action = ActionBulkEdit
	case "P":
		s.action = ActionSavePreset
	case "tab", "n":
		s.switchFile(1)
	case "shift+tab", "p":
		s.switchFile(-1)
	case "s":
		if err := s.files.Save(); err != nil {
			s.report(err)
		} else {
			s.status = "Saved " + s.files.Current().Name()
		}
	case "S":
		n, err := s.files.SaveAll()
		if err != nil {
			s.report(err)
		} else {
			s.status = fmt.Sprintf("Saved %d file(s)", n)
		}
	}
}

func (s *TreeScreen) report(err error) {
	if err != nil {
		s.status = bulkReport(err)
	}
}

func (s *TreeScreen) setExpanded(open bool) {
	idx := s.Selected()
	if idx.IsRoot() || s.model.RowCount(idx) == 0 {
		return
	}
	s.expanded[idx.Handle()] = open
	s.rebuild()
}

func (s *TreeScreen) collapseOrParent() {
	idx := s.Selected()
	if idx.IsRoot() {
		return
	}
	if s.expanded[idx.Handle()] {
		s.setExpanded(false)
		return
	}
	parent := s.model.Parent(idx)
	for i, r := range s.rows {
		if !parent.IsRoot() && r.idx.Handle() == parent.Handle() {
			s.cursor = i
			return
		}
	}
}

func (s *TreeScreen) editOrToggle() {
	idx := s.Selected()
	if idx.IsRoot() {
		return
	}
	if s.model.RowCount(idx) > 0 {
		s.setExpanded(!s.expanded[idx.Handle()])
		return
	}
	switch s.model.ValueKind(idx) {
	case model.ValueSequence, model.ValueItem:
		return
	}
	if !s.model.Flags(idx.Sibling(model.ColumnValue)).Has(model.FlagEditable) {
		s.status = s.refusedStatus(idx)
		return
	}
	s.action = ActionEditValue
}

func (s *TreeScreen) refusedStatus(idx model.Index) string {
	return fmt.Sprintf("%s cannot be edited", s.model.Data(idx.Sibling(model.ColumnTag), model.RoleDisplay))
}

func (s *TreeScreen) switchFile(step int) {
	n := s.files.Len()
	if n < 2 {
		return
	}
	next := (s.files.CurrentIndex() + step + n) % n
	s.report(s.files.SetCurrent(next))
}

// View implements tea.Model
func (s *TreeScreen) View() string {
	var sb strings.Builder
	sb.WriteString(components.TitleStyle.Render("DICOMEDIT - " + s.fileTitle()))
	sb.WriteString("\n")
	sb.WriteString(components.HeaderStyle.Render(s.line(
		s.model.HeaderData(model.ColumnTag),
		s.model.HeaderData(model.ColumnVR),
		s.model.HeaderData(model.ColumnLength),
		s.model.HeaderData(model.ColumnValue),
	)))
	sb.WriteString("\n")

	if s.model.Dataset() == nil {
		sb.WriteString(components.StatusStyle.Render("No file is open"))
		sb.WriteString("\n")
	}

	visible := max(s.height-8, 3)
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+visible {
		s.offset = s.cursor - visible + 1
	}
	end := min(s.offset+visible, len(s.rows))
	for i := s.offset; i < end; i++ {
		sb.WriteString(s.renderRow(i))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if s.status != "" {
		sb.WriteString(components.ModifiedStyle.Render(s.status))
		sb.WriteString("\n")
	}
	sb.WriteString(components.StatusStyle.Render(
		"↑/↓: Move | ←/→: Fold | Enter: Edit | a: Add | i: Add item | d: Delete | b: Bulk edit | n/p: File | s/S: Save | q: Quit",
	))
	return sb.String()
}

func (s *TreeScreen) fileTitle() string {
	f := s.files.Current()
	if f == nil {
		return "no file"
	}
	title := fmt.Sprintf("%s (%d/%d)", f.Name(), s.files.CurrentIndex()+1, s.files.Len())
	if f.Modified() {
		title += " *"
	}
	return title
}

func (s *TreeScreen) renderRow(i int) string {
	r := s.rows[i]
	marker := "  "
	if s.model.RowCount(r.idx) > 0 {
		marker = "▸ "
		if s.expanded[r.idx.Handle()] {
			marker = "▾ "
		}
	}
	cell := func(column int) string {
		v := s.model.Data(r.idx.Sibling(column), model.RoleDisplay)
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
	text := s.line(
		strings.Repeat("  ", r.depth)+marker+cell(model.ColumnTag),
		cell(model.ColumnVR),
		cell(model.ColumnLength),
		cell(model.ColumnValue),
	)

	fg, _ := s.model.Data(r.idx, model.RoleForeground).(model.Style)
	style := components.RowStyle(fg)
	if i == s.cursor {
		style = style.Inherit(components.SelectedStyle)
	}
	return style.Render(text)
}

func (s *TreeScreen) line(tagText, vr, length, value string) string {
	width := s.width
	if width <= 0 {
		width = 120
	}
	valueWidth := max(width-tagWidth-vrWidth-lengthWidth-3, 10)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		pad(tagText, tagWidth), " ",
		pad(vr, vrWidth), " ",
		pad(length, lengthWidth), " ",
		truncate(value, valueWidth),
	)
}

func pad(s string, width int) string {
	s = truncate(s, width)
	if n := lipgloss.Width(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
