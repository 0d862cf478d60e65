// Package model presents a DICOM dataset as a row/column tree for views.
//
// Rows under the dataset root and under items are elements; rows under a sequence
// are its items. Columns are fixed: tag, VR, length and value. Only the three tags
// in EditableTags may be changed in place; the Visibility policy decides whether
// the other elements are hidden or shown greyed out.
//
// The model keeps no tree of its own. Every query walks the current dataset, and
// indexes carry the dataset's generational handles, so an index into a removed
// branch is detected instead of pointing at reused storage.
package model

import (
	"fmt"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomedit/internal/dataset"
)

// Columns.
const (
	ColumnTag = iota
	ColumnVR
	ColumnLength
	ColumnValue

	columnCount
)

// MaxDisplayLength is the longest value, in bytes, shown inline in the value column.
const MaxDisplayLength = 100

// LargeValuePlaceholder replaces values longer than MaxDisplayLength.
const LargeValuePlaceholder = `<Large value, right-click and choose "Edit" for more details.>`

// EditableTags are the only tags whose values may be changed in place.
var EditableTags = [...]tag.Tag{
	tag.PatientName,      // (0010,0010)
	tag.PatientID,        // (0010,0020)
	tag.StudyInstanceUID, // (0020,000D)
}

var headers = [columnCount]string{"Tag", "VR", "Length", "Value"}

// Role selects which facet of a cell Data returns.
type Role int

const (
	// RoleDisplay is the text shown in the cell.
	RoleDisplay Role = iota
	// RoleForeground is the Style the cell is drawn with.
	RoleForeground
	// RoleEdit is the full, untruncated value offered to an editor.
	RoleEdit
)

// Style is the emphasis a row is drawn with.
type Style int

const (
	StyleNormal Style = iota
	StyleDisabled
)

// Flags describe what a view may do with a cell.
type Flags uint8

const (
	FlagSelectable Flags = 1 << iota
	FlagEnabled
	FlagEditable
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Visibility decides what happens to elements outside EditableTags.
type Visibility int

const (
	// VisibilityHidden exposes only whitelisted elements as rows. Items are always rows.
	VisibilityHidden Visibility = iota
	// VisibilityDisabled exposes every element and draws the locked ones disabled.
	VisibilityDisabled
)

// ParseVisibility converts "hidden" or "disabled" into a Visibility.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "", "hidden":
		return VisibilityHidden, nil
	case "disabled":
		return VisibilityDisabled, nil
	default:
		return VisibilityHidden, fmt.Errorf("unknown visibility %q (want hidden or disabled)", s)
	}
}

func (v Visibility) String() string {
	if v == VisibilityDisabled {
		return "disabled"
	}
	return "hidden"
}

// ValueKind classifies a node for formatting.
type ValueKind int

const (
	ValueUnknown ValueKind = iota
	ValueDataset
	ValueItem
	ValueSequence
	ValueScalar
)

// Index addresses a cell. The zero Index is the invisible root. A node that the
// visibility policy hides can still be addressed; its Row is -1.
type Index struct {
	h      dataset.Handle
	row    int
	column int
}

// Handle returns the dataset handle of the indexed node.
func (i Index) Handle() dataset.Handle { return i.h }

// Row returns the row of the node under its parent.
func (i Index) Row() int { return i.row }

// Column returns the column.
func (i Index) Column() int { return i.column }

// IsRoot reports whether i is the zero Index.
func (i Index) IsRoot() bool { return i.h.IsZero() }

// Sibling returns the index of another column of the same row.
func (i Index) Sibling(column int) Index {
	i.column = column
	return i
}

// Files is what the model needs from the file collaborator.
type Files interface {
	CurrentDataset() *dataset.Dataset
	MarkModified()
	OnCurrentFileChanged(func())
	OnAllFilesEdited(func())
}

// Option configures a Model.
type Option func(*Model)

// WithVisibility sets the visibility policy. The default is VisibilityHidden.
func WithVisibility(v Visibility) Option {
	return func(m *Model) { m.visibility = v }
}

// Model is the tree adapter. It is not safe for concurrent use.
type Model struct {
	files      Files
	ds         *dataset.Dataset
	visibility Visibility

	subscribers []subscriber
	nextID      int
	notifying   int
}

// New creates a model over files' current dataset. The model resets whenever the
// current file changes or a batch edit touched every file.
func New(files Files, opts ...Option) *Model {
	m := &Model{files: files}
	for _, opt := range opts {
		opt(m)
	}
	m.ds = files.CurrentDataset()
	files.OnCurrentFileChanged(m.Reset)
	files.OnAllFilesEdited(m.Reset)
	return m
}

// Visibility returns the model's visibility policy.
func (m *Model) Visibility() Visibility { return m.visibility }

// Dataset returns the dataset currently shown, possibly nil.
func (m *Model) Dataset() *dataset.Dataset { return m.ds }

// Reset reloads the current dataset and invalidates every index.
func (m *Model) Reset() {
	m.ds = m.files.CurrentDataset()
	m.emit(Event{Kind: EventReset})
}

// IsEditableTag reports whether n is an element whose tag is in EditableTags.
func IsEditableTag(n dataset.Node) bool {
	el, ok := n.(*dataset.Element)
	if !ok || el == nil {
		return false
	}
	t := el.Tag()
	for _, e := range EditableTags {
		if t == e {
			return true
		}
	}
	return false
}

// node resolves idx; the zero Index is the root.
func (m *Model) node(idx Index) (dataset.Node, error) {
	if m.ds == nil {
		return nil, fmt.Errorf("%w: no dataset loaded", ErrResolution)
	}
	if idx.IsRoot() {
		return m.ds.Root(), nil
	}
	n, err := m.ds.Node(idx.h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}
	return n, nil
}

func (m *Model) visible(n dataset.Node) bool {
	switch n.(type) {
	case *dataset.Item:
		return true
	case *dataset.Element, *dataset.Sequence:
		return m.visibility == VisibilityDisabled || IsEditableTag(n)
	default:
		return false
	}
}

// rows returns the children of n that are exposed as rows, in storage order.
func (m *Model) rows(n dataset.Node) []dataset.Node {
	switch n := n.(type) {
	case *dataset.Sequence:
		out := make([]dataset.Node, 0, n.NumChildren())
		for i := 0; i < n.NumChildren(); i++ {
			out = append(out, n.ItemAt(i))
		}
		return out
	case dataset.Container:
		var out []dataset.Node
		for i := 0; i < n.NumChildren(); i++ {
			if c := n.ElementAt(i); c != nil && m.visible(c) {
				out = append(out, c)
			}
		}
		return out
	default:
		return nil
	}
}

// rowOf returns the row of n under its parent, or -1 when n is hidden or the root.
func (m *Model) rowOf(n dataset.Node) int {
	p := n.Parent()
	if p == nil {
		return -1
	}
	for i, c := range m.rows(p) {
		if c.Handle() == n.Handle() {
			return i
		}
	}
	return -1
}

func (m *Model) indexFor(n dataset.Node, column int) Index {
	if n == nil || n.Parent() == nil {
		return Index{}
	}
	return Index{h: n.Handle(), row: m.rowOf(n), column: column}
}

// ColumnCount returns the number of columns.
func (m *Model) ColumnCount() int { return columnCount }

// HeaderData returns the title of a column.
func (m *Model) HeaderData(section int) string {
	if section < 0 || section >= columnCount {
		return ""
	}
	return headers[section]
}

// Valid reports whether idx still refers to a live node. The root is valid when a
// dataset is loaded.
func (m *Model) Valid(idx Index) bool {
	if m.ds == nil {
		return false
	}
	return idx.IsRoot() || m.ds.Valid(idx.h)
}

// Index returns the cell at row and column under parent, or the zero Index when
// there is no such row.
func (m *Model) Index(row, column int, parent Index) Index {
	if row < 0 || column < 0 || column >= columnCount {
		return Index{}
	}
	p, err := m.node(parent)
	if err != nil {
		return Index{}
	}
	rows := m.rows(p)
	if row >= len(rows) {
		return Index{}
	}
	return Index{h: rows[row].Handle(), row: row, column: column}
}

// RowCount returns the number of rows under parent: zero for leaf elements and
// stale indexes.
func (m *Model) RowCount(parent Index) int {
	p, err := m.node(parent)
	if err != nil {
		return 0
	}
	return len(m.rows(p))
}

// Parent returns the index of idx's container, or the zero Index when the
// container is the root.
func (m *Model) Parent(idx Index) Index {
	if idx.IsRoot() {
		return Index{}
	}
	n, err := m.node(idx)
	if err != nil {
		return Index{}
	}
	return m.indexFor(n.Parent(), 0)
}

// IndexOf returns the index of the node with handle h. Hidden nodes get row -1.
func (m *Model) IndexOf(h dataset.Handle, column int) Index {
	if m.ds == nil || !m.ds.Valid(h) {
		return Index{}
	}
	n, err := m.ds.Node(h)
	if err != nil {
		return Index{}
	}
	return m.indexFor(n, column)
}

// FindTag returns the index of the element with tag t directly under parent.
func (m *Model) FindTag(parent Index, t tag.Tag) (Index, bool) {
	p, err := m.node(parent)
	if err != nil {
		return Index{}, false
	}
	c, ok := p.(dataset.Container)
	if !ok {
		return Index{}, false
	}
	n := c.Find(t)
	if n == nil {
		return Index{}, false
	}
	return m.indexFor(n, 0), true
}

// Data returns one facet of a cell: a string (or uint32 for the length column) for
// RoleDisplay, a Style for RoleForeground and the full value string for RoleEdit.
// It returns nil for anything that has no data.
func (m *Model) Data(idx Index, role Role) any {
	if idx.IsRoot() || idx.column < 0 || idx.column >= columnCount {
		return nil
	}
	n, err := m.node(idx)
	if err != nil {
		return nil
	}
	switch role {
	case RoleDisplay:
		return displayData(n, idx.column)
	case RoleForeground:
		if IsEditableTag(n) {
			return StyleNormal
		}
		return StyleDisabled
	case RoleEdit:
		if el, ok := n.(*dataset.Element); ok && idx.column == ColumnValue {
			return el.StringValue(0)
		}
	}
	return nil
}

func displayData(n dataset.Node, column int) any {
	switch n := n.(type) {
	case *dataset.Item:
		switch column {
		case ColumnTag:
			return fmt.Sprintf("Item %d", n.Position()+1)
		case ColumnLength:
			return n.Length()
		default:
			return ""
		}
	case *dataset.Sequence:
		switch column {
		case ColumnTag:
			return tagLabel(n.Tag())
		case ColumnVR:
			return n.VRName()
		case ColumnLength:
			return n.Length()
		default:
			return ""
		}
	case *dataset.Element:
		switch column {
		case ColumnTag:
			return tagLabel(n.Tag())
		case ColumnVR:
			return n.VRName()
		case ColumnLength:
			return n.Length()
		default:
			if n.Length() > MaxDisplayLength {
				return LargeValuePlaceholder
			}
			return n.StringValue(0)
		}
	default:
		return nil
	}
}

// tagLabel renders a tag as "(gggg,eeee) Keyword".
func tagLabel(t tag.Tag) string {
	return fmt.Sprintf("(%04x,%04x) %s", t.Group, t.Element, dataset.TagName(t))
}

// Flags returns what a view may do with the cell at idx.
func (m *Model) Flags(idx Index) Flags {
	if idx.IsRoot() || !m.Valid(idx) {
		return 0
	}
	f := FlagSelectable | FlagEnabled
	if idx.column != ColumnValue {
		return f
	}
	if n, err := m.node(idx); err == nil && IsEditableTag(n) {
		f |= FlagEditable
	}
	return f
}

// ValueKind classifies the node at idx.
func (m *Model) ValueKind(idx Index) ValueKind {
	n, err := m.node(idx)
	if err != nil {
		return ValueUnknown
	}
	switch n.(type) {
	case *dataset.Root:
		return ValueDataset
	case *dataset.Item:
		return ValueItem
	case *dataset.Sequence:
		return ValueSequence
	case *dataset.Element:
		return ValueScalar
	default:
		return ValueUnknown
	}
}
