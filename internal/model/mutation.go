package model

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/mrsinham/dicomedit/internal/dataset"
)

// Every mutation runs the storage call first and notifies only once it succeeded.
// MarkModified follows the notification.

func (m *Model) checkMutable() error {
	if m.notifying > 0 {
		return ErrReentrantMutation
	}
	if m.ds == nil {
		return fmt.Errorf("%w: no dataset loaded", ErrResolution)
	}
	return nil
}

// AddElement resolves tagPath below the container at idx (the root for the zero
// Index), creating missing sequences, items and the element, and writes value.
func (m *Model) AddElement(idx Index, tagPath, value string) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	n, err := m.node(idx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOperation, err)
	}
	if _, ok := n.(dataset.Container); !ok {
		return fmt.Errorf("%w: %w: %s cannot hold elements", ErrOperation, ErrResolution, n.Kind())
	}
	if err := m.ds.ResolveAndSet(tagPath, value, true, n); err != nil {
		return fmt.Errorf("%w: add %s: %w", ErrOperation, tagPath, err)
	}
	m.emit(Event{Kind: EventLayoutChanged})
	m.files.MarkModified()
	return nil
}

// AddItem appends an empty item to the sequence at idx.
func (m *Model) AddItem(idx Index) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	n, err := m.node(idx)
	if err != nil {
		return err
	}
	seq, ok := n.(*dataset.Sequence)
	if !ok {
		return fmt.Errorf("%w: items can only be added to a sequence, not to a %s", ErrOperation, n.Kind())
	}
	row := seq.NumChildren()
	if _, err := seq.AppendItem(); err != nil {
		return fmt.Errorf("%w: append item: %w", ErrOperation, err)
	}
	m.emit(Event{Kind: EventRowsInserted, Parent: m.indexFor(seq, 0), First: row, Last: row})
	m.files.MarkModified()
	return nil
}

// Delete removes the element or item at idx together with everything below it.
func (m *Model) Delete(idx Index) error {
	if err := m.checkMutable(); err != nil {
		return err
	}
	if idx.IsRoot() {
		return fmt.Errorf("%w: the dataset root cannot be deleted", ErrResolution)
	}
	n, err := m.node(idx)
	if err != nil {
		return err
	}
	p := n.Parent()
	if p == nil {
		return fmt.Errorf("%w: %s has no parent", ErrResolution, n.Kind())
	}

	row := m.rowOf(n)
	parent := m.indexFor(p, 0)
	pos := n.Position()

	switch p := p.(type) {
	case *dataset.Sequence:
		if _, ok := n.(*dataset.Item); !ok {
			return fmt.Errorf("%w: sequence child is a %s", ErrUnexpectedKind, n.Kind())
		}
		err = p.RemoveItem(pos)
	case dataset.Container:
		switch n.(type) {
		case *dataset.Element, *dataset.Sequence:
		default:
			return fmt.Errorf("%w: %s child is a %s", ErrUnexpectedKind, p.Kind(), n.Kind())
		}
		err = p.RemoveElement(pos)
	default:
		return fmt.Errorf("%w: parent is a %s", ErrUnexpectedKind, p.Kind())
	}
	if err != nil {
		return fmt.Errorf("%w: remove: %w", ErrOperation, err)
	}

	if row >= 0 {
		m.emit(Event{Kind: EventRowsRemoved, Parent: parent, First: row, Last: row})
	} else {
		m.emit(Event{Kind: EventLayoutChanged})
	}
	m.files.MarkModified()
	return nil
}

// editable resolves idx to an element and applies the whitelist. A refused edit
// emits EventEditRefused and returns a nil element and a nil error.
func (m *Model) editable(idx Index) (*dataset.Element, Index, error) {
	if err := m.checkMutable(); err != nil {
		return nil, Index{}, err
	}
	n, err := m.node(idx)
	if err != nil {
		return nil, Index{}, err
	}
	el, ok := n.(*dataset.Element)
	if !ok {
		return nil, Index{}, fmt.Errorf("%w: values live on elements, not on a %s", ErrUnexpectedKind, n.Kind())
	}
	cell := m.indexFor(el, ColumnValue)
	if !IsEditableTag(el) {
		m.emit(Event{Kind: EventEditRefused, Index: cell})
		return nil, cell, nil
	}
	return el, cell, nil
}

// SetValue parses text according to the element's VR and stores it. Edits on tags
// outside EditableTags are ignored without error.
func (m *Model) SetValue(idx Index, text string) error {
	el, cell, err := m.editable(idx)
	if err != nil || el == nil {
		return err
	}
	if err := el.PutString(text); err != nil {
		m.emit(Event{Kind: EventEditFailed, Index: cell, Err: err})
		return fmt.Errorf("%w: %w", ErrOperation, err)
	}
	m.emit(Event{Kind: EventCellChanged, Index: cell})
	m.files.MarkModified()
	return nil
}

// SetValueFromFile replaces the element's value with the raw, little-endian
// contents of the file at path. The file length must be even.
func (m *Model) SetValueFromFile(idx Index, path string) error {
	el, cell, err := m.editable(idx)
	if err != nil || el == nil {
		return err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	size := fi.Size()
	if size%2 != 0 {
		return fmt.Errorf("%w: %s is %d bytes: %w", ErrInvalidInput, path, size, dataset.ErrOddLength)
	}
	if size > math.MaxUint32-1 {
		return fmt.Errorf("%w: %s is too large for a DICOM value", ErrInvalidInput, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	defer func() { _ = f.Close() }()

	if err := el.CreateValueFromStream(f, uint32(size), binary.LittleEndian); err != nil {
		m.emit(Event{Kind: EventEditFailed, Index: cell, Err: err})
		return fmt.Errorf("%w: %w", ErrOperation, err)
	}
	m.emit(Event{Kind: EventCellChanged, Index: cell})
	m.files.MarkModified()
	return nil
}

// SetData is the view-side edit entry point. It accepts only RoleEdit on the value
// column with a string value and reports whether the value was stored.
func (m *Model) SetData(idx Index, value any, role Role) bool {
	if role != RoleEdit || idx.column != ColumnValue || !m.Flags(idx).Has(FlagEditable) {
		return false
	}
	text, ok := value.(string)
	if !ok {
		return false
	}
	return m.SetValue(idx, text) == nil
}
