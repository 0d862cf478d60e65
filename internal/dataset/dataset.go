// Package dataset holds a mutable, handle-addressed copy of a DICOM dataset.
//
// A Dataset is an arena of nodes built from a github.com/suyashkumar/dicom Dataset.
// Nodes are addressed by generational Handles: removing a node frees its whole
// subtree and bumps the generation of every freed slot, so handles into a removed
// branch are detected as stale instead of silently pointing at reused storage.
package dataset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

var (
	ErrStaleHandle   = errors.New("dataset: stale or invalid handle")
	ErrNotFound      = errors.New("dataset: element not found")
	ErrWrongKind     = errors.New("dataset: node has the wrong kind")
	ErrInvalidValue  = errors.New("dataset: invalid value for VR")
	ErrOddLength     = errors.New("dataset: value length must be even")
	ErrUnsupportedVR = errors.New("dataset: unsupported VR")
	ErrInvalidPath   = errors.New("dataset: invalid tag path")
)

// Kind is the structural kind of a node.
type Kind int

const (
	KindDataset Kind = iota
	KindItem
	KindSequence
	KindElement
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDataset:
		return "dataset"
	case KindItem:
		return "item"
	case KindSequence:
		return "sequence"
	case KindElement:
		return "element"
	default:
		return "unknown"
	}
}

// Handle identifies a node inside one Dataset. The zero Handle is never valid.
type Handle struct {
	slot uint32
	gen  uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.slot == 0
}

// String returns a debug representation of the handle.
func (h Handle) String() string {
	return fmt.Sprintf("#%d.%d", h.slot, h.gen)
}

type record struct {
	gen    uint32
	live   bool
	kind   Kind
	parent Handle
	// children are elements (sorted by tag) for datasets and items, items for sequences.
	children []Handle

	tag    tag.Tag
	rawVR  string
	value  dicom.Value
	length uint32 // length as read from the file, used for pixel data
}

// Dataset is an arena-backed DICOM dataset tree.
type Dataset struct {
	records []record
	free    []uint32
	root    Handle
}

// New returns an empty dataset containing only its root.
func New() *Dataset {
	// Slot 0 is reserved so that the zero Handle is never live.
	d := &Dataset{records: make([]record, 1, 64)}
	d.root = d.alloc(record{kind: KindDataset})
	return d
}

func (d *Dataset) alloc(r record) Handle {
	var slot uint32
	if n := len(d.free); n > 0 {
		slot = d.free[n-1]
		d.free = d.free[:n-1]
		r.gen = d.records[slot].gen
	} else {
		slot = uint32(len(d.records))
		d.records = append(d.records, record{})
	}
	r.live = true
	d.records[slot] = r
	return Handle{slot: slot, gen: r.gen}
}

// release frees h and every node below it.
func (d *Dataset) release(h Handle) {
	r := d.get(h)
	if r == nil {
		return
	}
	for _, c := range r.children {
		d.release(c)
	}
	gen := r.gen + 1
	d.records[h.slot] = record{gen: gen}
	d.free = append(d.free, h.slot)
}

func (d *Dataset) get(h Handle) *record {
	if h.slot == 0 || int(h.slot) >= len(d.records) {
		return nil
	}
	r := &d.records[h.slot]
	if !r.live || r.gen != h.gen {
		return nil
	}
	return r
}

// Valid reports whether h still refers to a live node of d.
func (d *Dataset) Valid(h Handle) bool {
	return d != nil && d.get(h) != nil
}

// RootHandle returns the handle of the dataset root.
func (d *Dataset) RootHandle() Handle {
	return d.root
}

// Root returns the root container.
func (d *Dataset) Root() *Root {
	return &Root{node{ds: d, h: d.root}}
}

// Node returns the typed view of h.
func (d *Dataset) Node(h Handle) (Node, error) {
	r := d.get(h)
	if r == nil {
		return nil, fmt.Errorf("%w: %v", ErrStaleHandle, h)
	}
	n := node{ds: d, h: h}
	switch r.kind {
	case KindDataset:
		return &Root{n}, nil
	case KindItem:
		return &Item{n}, nil
	case KindSequence:
		return &Sequence{n}, nil
	case KindElement:
		return &Element{n}, nil
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrWrongKind, r.kind)
	}
}

// position returns the index of h among its parent's children, or -1.
func (d *Dataset) position(h Handle) int {
	r := d.get(h)
	if r == nil {
		return -1
	}
	p := d.get(r.parent)
	if p == nil {
		return -1
	}
	for i, c := range p.children {
		if c == h {
			return i
		}
	}
	return -1
}

// insertElement places a new element or sequence record under container c,
// keeping the children sorted by tag. An existing element with the same tag
// is an error.
func (d *Dataset) insertElement(c Handle, r record) (Handle, error) {
	parent := d.get(c)
	if parent == nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrStaleHandle, c)
	}
	if parent.kind != KindDataset && parent.kind != KindItem {
		return Handle{}, fmt.Errorf("%w: cannot add element to %s", ErrWrongKind, parent.kind)
	}
	at := sort.Search(len(parent.children), func(i int) bool {
		return !tagLess(d.records[parent.children[i].slot].tag, r.tag)
	})
	if at < len(parent.children) && d.records[parent.children[at].slot].tag == r.tag {
		return Handle{}, fmt.Errorf("element %v already exists", r.tag)
	}
	r.parent = c
	h := d.alloc(r)
	// alloc may grow d.records; reload the parent.
	parent = d.get(c)
	parent.children = append(parent.children, Handle{})
	copy(parent.children[at+1:], parent.children[at:])
	parent.children[at] = h
	return h, nil
}

func (d *Dataset) appendChild(c Handle, r record) Handle {
	r.parent = c
	h := d.alloc(r)
	parent := d.get(c)
	parent.children = append(parent.children, h)
	return h
}

// removeChild unlinks the row-th child of c and frees its subtree.
func (d *Dataset) removeChild(c Handle, row int) error {
	parent := d.get(c)
	if parent == nil {
		return fmt.Errorf("%w: %v", ErrStaleHandle, c)
	}
	if row < 0 || row >= len(parent.children) {
		return fmt.Errorf("%w: row %d out of range [0,%d)", ErrNotFound, row, len(parent.children))
	}
	h := parent.children[row]
	parent.children = append(parent.children[:row:row], parent.children[row+1:]...)
	d.release(h)
	return nil
}

func (d *Dataset) findChild(c Handle, t tag.Tag) (Handle, bool) {
	parent := d.get(c)
	if parent == nil {
		return Handle{}, false
	}
	for _, h := range parent.children {
		if d.records[h.slot].tag == t {
			return h, true
		}
	}
	return Handle{}, false
}

func tagLess(a, b tag.Tag) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Element < b.Element
}
