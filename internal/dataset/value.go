package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// valueClass groups VRs by how their value is stored.
type valueClass int

const (
	classUnknown valueClass = iota
	classString
	classText // single-valued text: backslash is data, not a separator
	classBytes
	classInts
	classFloats
	classSequence
	classTags
)

type vrInfo struct {
	class valueClass
	// size is the width in bytes of one binary value.
	size int
	// signed applies to integer VRs.
	signed bool
	// maxLen is the maximum number of characters of one string value, 0 = unbounded.
	maxLen int
	check  func(string) error
}

var vrTable = map[string]vrInfo{
	"AE": {class: classString, maxLen: 16},
	"AS": {class: classString, maxLen: 4, check: checkAge},
	"CS": {class: classString, maxLen: 16, check: checkCodeString},
	"DA": {class: classString, maxLen: 8, check: checkDate},
	"DS": {class: classString, maxLen: 16, check: checkDecimal},
	"DT": {class: classString, maxLen: 26},
	"IS": {class: classString, maxLen: 12, check: checkInteger},
	"LO": {class: classString, maxLen: 64},
	"PN": {class: classString, check: checkPersonName},
	"SH": {class: classString, maxLen: 16},
	"TM": {class: classString, maxLen: 14, check: checkTime},
	"UC": {class: classString},
	"UI": {class: classString, maxLen: 64, check: checkUID},
	"LT": {class: classText, maxLen: 10240},
	"ST": {class: classText, maxLen: 1024},
	"UT": {class: classText},
	"UR": {class: classText},
	"OB": {class: classBytes, size: 1},
	"UN": {class: classBytes, size: 1},
	"OW": {class: classBytes, size: 2},
	"OD": {class: classBytes, size: 8},
	"OF": {class: classBytes, size: 4},
	"OL": {class: classBytes, size: 4},
	"OV": {class: classBytes, size: 8},
	"US": {class: classInts, size: 2},
	"SS": {class: classInts, size: 2, signed: true},
	"UL": {class: classInts, size: 4},
	"SL": {class: classInts, size: 4, signed: true},
	"UV": {class: classInts, size: 8},
	"SV": {class: classInts, size: 8, signed: true},
	"FL": {class: classFloats, size: 4},
	"FD": {class: classFloats, size: 8},
	"SQ": {class: classSequence},
	"AT": {class: classTags, size: 4},
}

func lookupVR(vr string) vrInfo {
	if info, ok := vrTable[vr]; ok {
		return info
	}
	return vrInfo{class: classUnknown}
}

// longHeader reports whether an element with this VR uses the 12-byte explicit VR header.
func longHeader(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OV", "OW", "SQ", "SV", "UC", "UN", "UR", "UT", "UV":
		return true
	}
	return false
}

func headerLength(vr string) uint32 {
	if longHeader(vr) {
		return 12
	}
	return 8
}

// length computes the encoded value length of h (explicit VR, defined lengths).
func (d *Dataset) length(h Handle) uint32 {
	r := d.get(h)
	if r == nil {
		return 0
	}
	switch r.kind {
	case KindDataset, KindItem:
		var n uint32
		for _, c := range r.children {
			n += headerLength(d.records[c.slot].rawVR) + d.length(c)
		}
		return n
	case KindSequence:
		var n uint32
		for _, c := range r.children {
			n += 8 + d.length(c)
		}
		return n
	default:
		return valueLength(r)
	}
}

func valueLength(r *record) uint32 {
	if r.value == nil {
		return 0
	}
	info := lookupVR(r.rawVR)
	var n int
	switch v := r.value.GetValue().(type) {
	case []string:
		for i, s := range v {
			if i > 0 {
				n++
			}
			n += len(s)
		}
	case []byte:
		n = len(v)
	case []int:
		size := info.size
		if size == 0 {
			size = 2
		}
		n = len(v) * size
	case []float64:
		size := info.size
		if size == 0 {
			size = 8
		}
		n = len(v) * size
	default:
		return r.length
	}
	if n%2 != 0 {
		n++
	}
	return uint32(n)
}

// formatValue renders v with multiple values separated by a backslash.
func formatValue(v dicom.Value) string {
	if v == nil {
		return ""
	}
	switch vals := v.GetValue().(type) {
	case []string:
		return strings.Join(vals, `\`)
	case []int:
		parts := make([]string, len(vals))
		for i, n := range vals {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, `\`)
	case []float64:
		parts := make([]string, len(vals))
		for i, f := range vals {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, `\`)
	case []byte:
		parts := make([]string, len(vals))
		for i, b := range vals {
			parts[i] = fmt.Sprintf("%02x", b)
		}
		return strings.Join(parts, `\`)
	case dicom.PixelDataInfo:
		return ""
	default:
		return v.String()
	}
}

// parseValue converts user text into a value suitable for an element with the given VR.
func parseValue(t tag.Tag, vr, text string) (dicom.Value, error) {
	info := lookupVR(vr)
	var data any
	switch info.class {
	case classString, classText:
		var vals []string
		switch {
		case text == "":
			vals = []string{}
		case info.class == classText:
			vals = []string{text}
		default:
			vals = strings.Split(text, `\`)
		}
		for _, s := range vals {
			if info.maxLen > 0 && len(s) > info.maxLen {
				return nil, fmt.Errorf("%w: %s value %q exceeds %d characters", ErrInvalidValue, vr, s, info.maxLen)
			}
			if info.check != nil && s != "" {
				if err := info.check(s); err != nil {
					return nil, fmt.Errorf("%w: %s value %q: %v", ErrInvalidValue, vr, s, err)
				}
			}
		}
		data = vals
	case classInts:
		vals := []int{}
		for _, s := range splitNonEmpty(text) {
			n, err := parseInt(strings.TrimSpace(s), info)
			if err != nil {
				return nil, fmt.Errorf("%w: %s value %q: %v", ErrInvalidValue, vr, s, err)
			}
			vals = append(vals, n)
		}
		data = vals
	case classFloats:
		vals := []float64{}
		for _, s := range splitNonEmpty(text) {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), info.size*8)
			if err != nil {
				return nil, fmt.Errorf("%w: %s value %q: %v", ErrInvalidValue, vr, s, err)
			}
			vals = append(vals, f)
		}
		data = vals
	case classBytes:
		if info.size > 2 {
			return nil, fmt.Errorf("%w: %s cannot be entered as text, load it from a file", ErrUnsupportedVR, vr)
		}
		vals := []byte{}
		for _, s := range splitNonEmpty(text) {
			n, err := strconv.ParseUint(strings.TrimSpace(s), 16, info.size*8)
			if err != nil {
				return nil, fmt.Errorf("%w: %s value %q: %v", ErrInvalidValue, vr, s, err)
			}
			if info.size == 2 {
				vals = binary.LittleEndian.AppendUint16(vals, uint16(n))
			} else {
				vals = append(vals, byte(n))
			}
		}
		data = vals
	case classSequence:
		return nil, fmt.Errorf("%w: %v is a sequence", ErrWrongKind, t)
	default:
		return nil, fmt.Errorf("%w: %q on %v", ErrUnsupportedVR, vr, t)
	}
	v, err := dicom.NewValue(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return v, nil
}

// decodeRaw converts raw bytes read from a stream into a value.
func decodeRaw(t tag.Tag, vr string, buf []byte, order binary.ByteOrder) (dicom.Value, error) {
	info := lookupVR(vr)
	var data any
	switch info.class {
	case classBytes:
		data = buf
	case classString:
		text := strings.TrimRight(string(buf), " \x00")
		if text == "" {
			data = []string{}
		} else {
			data = strings.Split(text, `\`)
		}
	case classText:
		data = []string{strings.TrimRight(string(buf), " \x00")}
	case classInts:
		if len(buf)%info.size != 0 {
			return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d for %s", ErrInvalidValue, len(buf), info.size, vr)
		}
		vals := make([]int, 0, len(buf)/info.size)
		for i := 0; i < len(buf); i += info.size {
			n, err := decodeInt(buf[i:i+info.size], info, order)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", vr, err)
			}
			vals = append(vals, n)
		}
		data = vals
	case classFloats:
		if len(buf)%info.size != 0 {
			return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d for %s", ErrInvalidValue, len(buf), info.size, vr)
		}
		vals := make([]float64, 0, len(buf)/info.size)
		for i := 0; i < len(buf); i += info.size {
			if info.size == 4 {
				vals = append(vals, float64(math.Float32frombits(order.Uint32(buf[i:]))))
			} else {
				vals = append(vals, math.Float64frombits(order.Uint64(buf[i:])))
			}
		}
		data = vals
	case classSequence:
		return nil, fmt.Errorf("%w: %v is a sequence", ErrWrongKind, t)
	default:
		return nil, fmt.Errorf("%w: %q on %v", ErrUnsupportedVR, vr, t)
	}
	v, err := dicom.NewValue(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return v, nil
}

// decodeInt reads one binary integer. Unsigned 64-bit values that do not fit an
// int are rejected.
func decodeInt(b []byte, info vrInfo, order binary.ByteOrder) (int, error) {
	switch info.size {
	case 2:
		u := order.Uint16(b)
		if info.signed {
			return int(int16(u)), nil
		}
		return int(u), nil
	case 4:
		u := order.Uint32(b)
		if info.signed {
			return int(int32(u)), nil
		}
		return int(u), nil
	default:
		u := order.Uint64(b)
		if info.signed {
			return int(int64(u)), nil
		}
		if u > math.MaxInt {
			return 0, fmt.Errorf("%w: %d exceeds %d", ErrInvalidValue, u, math.MaxInt)
		}
		return int(u), nil
	}
}

func parseInt(s string, info vrInfo) (int, error) {
	if info.signed {
		n, err := strconv.ParseInt(s, 10, info.size*8)
		return int(n), err
	}
	n, err := strconv.ParseUint(s, 10, info.size*8)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt {
		return 0, fmt.Errorf("%d exceeds %d", n, math.MaxInt)
	}
	return int(n), nil
}

func splitNonEmpty(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(text, `\`)
}

// emptyValue returns a zero-length value of the right shape for vr.
func emptyValue(vr string) dicom.Value {
	var data any
	switch lookupVR(vr).class {
	case classBytes:
		data = []byte{}
	case classInts, classTags:
		data = []int{}
	case classFloats:
		data = []float64{}
	default:
		data = []string{}
	}
	v, _ := dicom.NewValue(data)
	return v
}

func checkDate(s string) error {
	if len(s) != 8 || !allDigits(s) {
		return fmt.Errorf("want YYYYMMDD")
	}
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return fmt.Errorf("month or day out of range")
	}
	return nil
}

func checkTime(s string) error {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ':' {
			return fmt.Errorf("unexpected character %q", r)
		}
	}
	return nil
}

func checkAge(s string) error {
	if len(s) != 4 || !allDigits(s[:3]) || !strings.ContainsRune("DWMY", rune(s[3])) {
		return fmt.Errorf("want nnnD, nnnW, nnnM or nnnY")
	}
	return nil
}

func checkCodeString(s string) error {
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != ' ' && r != '_' {
			return fmt.Errorf("unexpected character %q", r)
		}
	}
	return nil
}

func checkDecimal(s string) error {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err
}

func checkInteger(s string) error {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	return err
}

func checkPersonName(s string) error {
	groups := strings.Split(s, "=")
	if len(groups) > 3 {
		return fmt.Errorf("at most 3 component groups")
	}
	for _, g := range groups {
		if len(g) > 64 {
			return fmt.Errorf("component group exceeds 64 characters")
		}
		if strings.Count(g, "^") > 4 {
			return fmt.Errorf("at most 5 components")
		}
	}
	return nil
}

func checkUID(s string) error {
	for _, comp := range strings.Split(s, ".") {
		if comp == "" || !allDigits(comp) {
			return fmt.Errorf("components must be non-empty digit runs")
		}
		if len(comp) > 1 && comp[0] == '0' {
			return fmt.Errorf("component %q has a leading zero", comp)
		}
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
