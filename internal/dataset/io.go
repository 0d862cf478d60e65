package dataset

import (
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// ReadFile parses the DICOM file at path.
func ReadFile(path string) (*Dataset, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return FromDICOM(ds)
}

// WriteFile encodes d and writes it to path.
func (d *Dataset) WriteFile(path string) error {
	ds, err := d.ToDICOM()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := dicom.Write(f, ds); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// FromDICOM copies a parsed dataset into a new arena.
func FromDICOM(ds dicom.Dataset) (*Dataset, error) {
	d := New()
	if err := d.importElements(d.root, ds.Elements); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) importElements(parent Handle, elems []*dicom.Element) error {
	for _, e := range elems {
		if e == nil {
			continue
		}
		if items, ok := sequenceItems(e); ok {
			seq := d.appendChild(parent, record{kind: KindSequence, tag: e.Tag, rawVR: "SQ"})
			for _, it := range items {
				item := d.appendChild(seq, record{kind: KindItem})
				sub, _ := it.GetValue().([]*dicom.Element)
				if err := d.importElements(item, sub); err != nil {
					return err
				}
			}
			continue
		}
		d.appendChild(parent, record{
			kind:   KindElement,
			tag:    e.Tag,
			rawVR:  e.RawValueRepresentation,
			value:  e.Value,
			length: e.ValueLength,
		})
	}
	return nil
}

func sequenceItems(e *dicom.Element) ([]*dicom.SequenceItemValue, bool) {
	if e.Value == nil {
		return nil, e.RawValueRepresentation == "SQ"
	}
	items, ok := e.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok && e.RawValueRepresentation == "SQ" {
		return nil, true
	}
	return items, ok
}

// ToDICOM rebuilds a dataset suitable for dicom.Write.
func (d *Dataset) ToDICOM() (dicom.Dataset, error) {
	elems, err := d.exportChildren(d.root)
	if err != nil {
		return dicom.Dataset{}, err
	}
	return dicom.Dataset{Elements: elems}, nil
}

func (d *Dataset) exportChildren(parent Handle) ([]*dicom.Element, error) {
	r := d.get(parent)
	out := make([]*dicom.Element, 0, len(r.children))
	for _, h := range r.children {
		c := d.get(h)
		switch c.kind {
		case KindSequence:
			items := make([][]*dicom.Element, 0, len(c.children))
			for _, ih := range c.children {
				sub, err := d.exportChildren(ih)
				if err != nil {
					return nil, err
				}
				items = append(items, sub)
			}
			v, err := dicom.NewValue(items)
			if err != nil {
				return nil, fmt.Errorf("sequence %v: %w", c.tag, err)
			}
			out = append(out, &dicom.Element{
				Tag:                    c.tag,
				ValueRepresentation:    tag.GetVRKind(c.tag, "SQ"),
				RawValueRepresentation: "SQ",
				Value:                  v,
			})
		case KindElement:
			v := c.value
			if v == nil {
				v = emptyValue(c.rawVR)
			}
			out = append(out, &dicom.Element{
				Tag:                    c.tag,
				ValueRepresentation:    tag.GetVRKind(c.tag, c.rawVR),
				RawValueRepresentation: c.rawVR,
				ValueLength:            c.length,
				Value:                  v,
			})
		}
	}
	return out, nil
}

// dictionaryVR returns the VR the standard dictionary assigns to t.
func dictionaryVR(t tag.Tag) (string, error) {
	// NewElement resolves the dictionary VR; the blank element is discarded.
	blank, err := dicom.NewElement(t, []string{})
	if err != nil {
		return "", fmt.Errorf("%w: no dictionary entry for %v: %v", ErrUnsupportedVR, t, err)
	}
	return blank.RawValueRepresentation, nil
}

// TagName returns the dictionary keyword of t, or a generic label for private and
// unknown tags.
func TagName(t tag.Tag) string {
	if info, err := tag.Find(t); err == nil && info.Keyword != "" {
		return info.Keyword
	}
	if t.Group%2 == 1 {
		return "PrivateTag"
	}
	return "UnknownTag"
}

// AddElement creates an empty element (or sequence) for t in container c, using
// the dictionary VR.
func (d *Dataset) AddElement(c Container, t tag.Tag) (Node, error) {
	vr, err := dictionaryVR(t)
	if err != nil {
		return nil, err
	}
	r := record{kind: KindElement, tag: t, rawVR: vr}
	if vr == "SQ" {
		r.kind = KindSequence
	}
	h, err := d.insertElement(c.Handle(), r)
	if err != nil {
		return nil, err
	}
	return d.Node(h)
}

// AddElementValue creates a leaf element with an explicit VR and value. It serves
// private tags, which have no dictionary entry.
func (d *Dataset) AddElementValue(c Container, t tag.Tag, vr string, data any) (*Element, error) {
	v, err := dicom.NewValue(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	h, err := d.insertElement(c.Handle(), record{kind: KindElement, tag: t, rawVR: vr, value: v})
	if err != nil {
		return nil, err
	}
	return &Element{node{ds: d, h: h}}, nil
}

// AddSequence creates an empty sequence for t in container c.
func (d *Dataset) AddSequence(c Container, t tag.Tag) (*Sequence, error) {
	h, err := d.insertElement(c.Handle(), record{kind: KindSequence, tag: t, rawVR: "SQ"})
	if err != nil {
		return nil, err
	}
	return &Sequence{node{ds: d, h: h}}, nil
}
