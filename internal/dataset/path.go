package dataset

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomedit/internal/util"
)

// Segment is one step of a tag path.
type Segment struct {
	Tag tag.Tag
	// HasItem is set when the segment carries an item selector.
	HasItem bool
	// Item is the 0-based item index; ignored when AllItems is set.
	Item     int
	AllItems bool
}

// String renders the segment in canonical form.
func (s Segment) String() string {
	out := fmt.Sprintf("%04X,%04X", s.Tag.Group, s.Tag.Element)
	switch {
	case s.AllItems:
		out += "[*]"
	case s.HasItem:
		out += "[" + strconv.Itoa(s.Item) + "]"
	}
	return out
}

var segmentPattern = regexp.MustCompile(
	`^\(?\s*(?:([0-9A-Fa-f]{1,4})\s*,\s*([0-9A-Fa-f]{1,4})|([A-Za-z][A-Za-z0-9]*))\s*\)?\s*(?:\[\s*(\d+|\*)\s*\])?$`)

// ParsePath splits a tag path such as "ReferencedStudySequence[0].ReferencedSOPInstanceUID"
// or "0008,1110[*].0008,1155" into segments. Every segment but the last must select
// an item.
func ParsePath(path string) ([]Segment, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(path, ".")
	segs := make([]Segment, 0, len(parts))
	for i, p := range parts {
		seg, err := parseSegment(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if i < len(parts)-1 && !seg.HasItem {
			return nil, fmt.Errorf("%w: segment %q must select an item, e.g. %s[0]", ErrInvalidPath, p, p)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(s string) (Segment, error) {
	m := segmentPattern.FindStringSubmatch(s)
	if m == nil {
		return Segment{}, fmt.Errorf("%w: cannot parse segment %q", ErrInvalidPath, s)
	}
	var seg Segment
	if m[3] != "" {
		info, err := util.GetTagByName(m[3])
		if err != nil {
			return Segment{}, fmt.Errorf("%w: %w", ErrInvalidPath, err)
		}
		seg.Tag = info.Tag
	} else {
		g, _ := strconv.ParseUint(m[1], 16, 16)
		e, _ := strconv.ParseUint(m[2], 16, 16)
		seg.Tag = tag.Tag{Group: uint16(g), Element: uint16(e)}
	}
	switch m[4] {
	case "":
	case "*":
		seg.HasItem, seg.AllItems = true, true
	default:
		n, err := strconv.Atoi(m[4])
		if err != nil {
			return Segment{}, fmt.Errorf("%w: item index %q", ErrInvalidPath, m[4])
		}
		seg.HasItem, seg.Item = true, n
	}
	return seg, nil
}

// containerOf checks that target can hold elements.
func containerOf(target Node) (Container, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil target", ErrStaleHandle)
	}
	c, ok := target.(Container)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot hold elements", ErrWrongKind, target.Kind())
	}
	if target.Kind() < 0 {
		return nil, fmt.Errorf("%w: %v", ErrStaleHandle, target.Handle())
	}
	return c, nil
}

// walk follows the sequence segments of a path and returns the items they select.
// With create set, missing sequences and items are added and recorded in created.
func (d *Dataset) walk(from Container, segs []Segment, create bool, created *[]Handle) ([]Container, error) {
	current := []Container{from}
	for _, seg := range segs {
		var next []Container
		for _, c := range current {
			n := c.Find(seg.Tag)
			if n == nil {
				if !create || seg.AllItems {
					continue
				}
				added, err := d.AddElement(c, seg.Tag)
				if err != nil {
					return nil, err
				}
				*created = append(*created, added.Handle())
				n = added
			}
			seq, ok := n.(*Sequence)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not a sequence", ErrWrongKind, seg)
			}
			if seg.AllItems {
				for i := 0; i < seq.NumChildren(); i++ {
					next = append(next, seq.ItemAt(i))
				}
				continue
			}
			for create && seq.NumChildren() <= seg.Item {
				it, err := seq.AppendItem()
				if err != nil {
					return nil, err
				}
				*created = append(*created, it.Handle())
			}
			if it := seq.ItemAt(seg.Item); it != nil {
				next = append(next, it)
			}
		}
		current = next
	}
	return current, nil
}

// Lookup returns every node the path addresses below target, in tree order.
func (d *Dataset) Lookup(path string, target Node) ([]Node, error) {
	from, err := containerOf(target)
	if err != nil {
		return nil, err
	}
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	last := segs[len(segs)-1]
	containers, err := d.walk(from, segs[:len(segs)-1], false, nil)
	if err != nil {
		return nil, err
	}
	var out []Node
	for _, c := range containers {
		n := c.Find(last.Tag)
		if n == nil {
			continue
		}
		if !last.HasItem {
			out = append(out, n)
			continue
		}
		seq, ok := n.(*Sequence)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a sequence", ErrWrongKind, last)
		}
		if last.AllItems {
			for i := 0; i < seq.NumChildren(); i++ {
				out = append(out, seq.ItemAt(i))
			}
		} else if it := seq.ItemAt(last.Item); it != nil {
			out = append(out, it)
		}
	}
	return out, nil
}

// ResolveAndSet writes value to every element the path addresses below target.
// With create set, missing sequences, items and the final element are added; without
// it, a path that addresses nothing fails with ErrNotFound. On failure every node
// added by this call is removed again.
func (d *Dataset) ResolveAndSet(path, value string, create bool, target Node) (err error) {
	from, err := containerOf(target)
	if err != nil {
		return err
	}
	segs, err := ParsePath(path)
	if err != nil {
		return err
	}
	last := segs[len(segs)-1]
	if last.HasItem {
		return fmt.Errorf("%w: the last segment must name an element", ErrInvalidPath)
	}

	var created []Handle
	defer func() {
		if err != nil {
			d.rollback(created)
		}
	}()

	containers, err := d.walk(from, segs[:len(segs)-1], create, &created)
	if err != nil {
		return err
	}
	// Every value is parsed before any is stored, so a failure leaves the
	// existing elements untouched.
	type write struct {
		h Handle
		v dicom.Value
	}
	var writes []write
	for _, c := range containers {
		n := c.Find(last.Tag)
		if n == nil {
			if !create {
				continue
			}
			added, addErr := d.AddElement(c, last.Tag)
			if addErr != nil {
				return addErr
			}
			created = append(created, added.Handle())
			n = added
		}
		el, ok := n.(*Element)
		if !ok {
			return fmt.Errorf("%w: %s is a sequence", ErrWrongKind, last)
		}
		r := el.rec()
		if r == nil {
			return fmt.Errorf("%w: %v", ErrStaleHandle, el.h)
		}
		v, parseErr := parseValue(r.tag, r.rawVR, value)
		if parseErr != nil {
			return fmt.Errorf("%s: %w", TagName(last.Tag), parseErr)
		}
		writes = append(writes, write{h: el.h, v: v})
	}
	if len(writes) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	for _, w := range writes {
		r := d.get(w.h)
		r.value = w.v
		r.length = 0
	}
	return nil
}

// DeletePath removes every node the path addresses below target and returns how
// many were removed. A path that addresses nothing removes nothing.
func (d *Dataset) DeletePath(path string, target Node) (int, error) {
	nodes, err := d.Lookup(path, target)
	if err != nil {
		return 0, err
	}
	// Remove back to front so earlier rows keep their position.
	removed := 0
	for i := len(nodes) - 1; i >= 0; i-- {
		if err := d.remove(nodes[i].Handle()); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// remove unlinks h from its parent and frees its subtree.
func (d *Dataset) remove(h Handle) error {
	r := d.get(h)
	if r == nil {
		return fmt.Errorf("%w: %v", ErrStaleHandle, h)
	}
	if r.parent.IsZero() {
		return errors.New("dataset: the root cannot be removed")
	}
	return d.removeChild(r.parent, d.position(h))
}

func (d *Dataset) rollback(created []Handle) {
	for i := len(created) - 1; i >= 0; i-- {
		if d.Valid(created[i]) {
			_ = d.remove(created[i])
		}
	}
}
