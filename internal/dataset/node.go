package dataset

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Node is one of *Root, *Item, *Sequence or *Element. The set is closed: callers
// switch on the concrete type.
type Node interface {
	Handle() Handle
	Kind() Kind
	// Parent returns the containing node, or nil for the root.
	Parent() Node
	// Position returns the index of the node among its parent's children.
	Position() int
	// Length returns the encoded byte length of the node's value.
	Length() uint32

	sealed()
}

// Container is implemented by the nodes that hold elements: *Root and *Item.
type Container interface {
	Node
	NumChildren() int
	ElementAt(i int) Node
	Find(t tag.Tag) Node
	RemoveElement(row int) error
}

type node struct {
	ds *Dataset
	h  Handle
}

func (n node) Handle() Handle { return n.h }

func (n node) sealed() {}

func (n node) rec() *record {
	return n.ds.get(n.h)
}

func (n node) Kind() Kind {
	if r := n.rec(); r != nil {
		return r.kind
	}
	return -1
}

func (n node) Parent() Node {
	r := n.rec()
	if r == nil || r.parent.IsZero() {
		return nil
	}
	p, err := n.ds.Node(r.parent)
	if err != nil {
		return nil
	}
	return p
}

func (n node) Position() int {
	return n.ds.position(n.h)
}

func (n node) Length() uint32 {
	return n.ds.length(n.h)
}

func (n node) NumChildren() int {
	if r := n.rec(); r != nil {
		return len(r.children)
	}
	return 0
}

func (n node) child(i int) Node {
	r := n.rec()
	if r == nil || i < 0 || i >= len(r.children) {
		return nil
	}
	c, err := n.ds.Node(r.children[i])
	if err != nil {
		return nil
	}
	return c
}

// Root is the top-level container of a dataset.
type Root struct{ node }

func (r *Root) ElementAt(i int) Node { return r.child(i) }

func (r *Root) Find(t tag.Tag) Node {
	h, ok := r.ds.findChild(r.h, t)
	if !ok {
		return nil
	}
	n, _ := r.ds.Node(h)
	return n
}

func (r *Root) RemoveElement(row int) error { return r.ds.removeChild(r.h, row) }

// Item is an ordered container inside a sequence.
type Item struct{ node }

func (it *Item) ElementAt(i int) Node { return it.child(i) }

func (it *Item) Find(t tag.Tag) Node {
	h, ok := it.ds.findChild(it.h, t)
	if !ok {
		return nil
	}
	n, _ := it.ds.Node(h)
	return n
}

func (it *Item) RemoveElement(row int) error { return it.ds.removeChild(it.h, row) }

// Sequence is an SQ element; its children are items.
type Sequence struct{ node }

func (s *Sequence) Tag() tag.Tag {
	if r := s.rec(); r != nil {
		return r.tag
	}
	return tag.Tag{}
}

func (s *Sequence) VRName() string { return "SQ" }

// ItemAt returns the i-th item, or nil when out of range.
func (s *Sequence) ItemAt(i int) *Item {
	it, _ := s.child(i).(*Item)
	return it
}

// AppendItem adds an empty item at the end of the sequence.
func (s *Sequence) AppendItem() (*Item, error) {
	if s.rec() == nil {
		return nil, fmt.Errorf("%w: %v", ErrStaleHandle, s.h)
	}
	h := s.ds.appendChild(s.h, record{kind: KindItem})
	return &Item{node{ds: s.ds, h: h}}, nil
}

func (s *Sequence) RemoveItem(row int) error { return s.ds.removeChild(s.h, row) }

// Element is a leaf element carrying a value.
type Element struct{ node }

func (e *Element) Tag() tag.Tag {
	if r := e.rec(); r != nil {
		return r.tag
	}
	return tag.Tag{}
}

func (e *Element) VRName() string {
	if r := e.rec(); r != nil {
		return r.rawVR
	}
	return ""
}

// Value returns the underlying value, which may be nil for empty elements.
func (e *Element) Value() dicom.Value {
	if r := e.rec(); r != nil {
		return r.value
	}
	return nil
}

// StringValue renders the value the way it is displayed and typed: multiple values
// joined by a backslash. When maxLen > 0 the result is cut to maxLen runes.
func (e *Element) StringValue(maxLen int) string {
	r := e.rec()
	if r == nil {
		return ""
	}
	s := formatValue(r.value)
	if maxLen > 0 {
		if runes := []rune(s); len(runes) > maxLen {
			s = string(runes[:maxLen])
		}
	}
	return s
}

// PutString parses text according to the element's VR and replaces the value.
// The element is left untouched when parsing fails.
func (e *Element) PutString(text string) error {
	r := e.rec()
	if r == nil {
		return fmt.Errorf("%w: %v", ErrStaleHandle, e.h)
	}
	v, err := parseValue(r.tag, r.rawVR, text)
	if err != nil {
		return err
	}
	r.value = v
	r.length = 0
	return nil
}

// CreateValueFromStream reads exactly n bytes from src and stores them as the raw
// value, decoded with the given byte order.
func (e *Element) CreateValueFromStream(src io.Reader, n uint32, order binary.ByteOrder) error {
	r := e.rec()
	if r == nil {
		return fmt.Errorf("%w: %v", ErrStaleHandle, e.h)
	}
	if n%2 != 0 {
		return fmt.Errorf("%w: got %d bytes", ErrOddLength, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return fmt.Errorf("reading value: %w", err)
	}
	v, err := decodeRaw(r.tag, r.rawVR, buf, order)
	if err != nil {
		return err
	}
	r.value = v
	r.length = 0
	return nil
}
