package ptu

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/nasa-jpl/picoquant/pq"
)

// TagType is the type code of a tag value
type TagType uint32

// tag type codes
const (
	Empty8      TagType = 0xFFFF0008
	Bool8       TagType = 0x00000008
	Int8        TagType = 0x10000008
	BitSet64    TagType = 0x11000008
	Color8      TagType = 0x12000008
	Float8      TagType = 0x20000008
	TDateTime   TagType = 0x21000008
	Float8Array TagType = 0x2001FFFF
	AnsiString  TagType = 0x4001FFFF
	WideString  TagType = 0x4002FFFF
	BinaryBlob  TagType = 0xFFFFFFFF
)

var tagTypeNames = map[TagType]string{
	Empty8:      "Empty8",
	Bool8:       "Bool8",
	Int8:        "Int8",
	BitSet64:    "BitSet64",
	Color8:      "Color8",
	Float8:      "Float8",
	TDateTime:   "TDateTime",
	Float8Array: "Float8Array",
	AnsiString:  "AnsiString",
	WideString:  "WideString",
	BinaryBlob:  "BinaryBlob",
}

func (t TagType) String() string {
	if s, ok := tagTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("0x%08x", uint32(t))
}

// HeaderEnd is the ident of the last tag of a header
const HeaderEnd = "Header_End"

// tdatetime counts days from this epoch
var dateEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

type rawTag struct {
	Ident [32]byte
	Index int32
	Type  uint32
	Value int64
}

// Tag is one decoded header entry.  Value holds nil, bool, int64, uint64,
// float64, time.Time, []float64, string or []byte depending on Type.
type Tag struct {
	Ident string
	Index int32
	Type  TagType
	Value interface{}
}

// Key is the name the tag is printed under
func (t Tag) Key() string {
	if t.Index > 0 {
		return fmt.Sprintf("%s[%d]", t.Ident, t.Index)
	}
	return t.Ident
}

// String formats the value of the tag
func (t Tag) String() string {
	switch v := t.Value.(type) {
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", v)
	case uint64:
		return fmt.Sprintf("0x%x", v)
	case float64:
		return fmt.Sprintf("%E", v)
	case time.Time:
		return v.Format(time.RFC3339)
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = fmt.Sprintf("%f", f)
		}
		return strings.Join(parts, ",")
	case string:
		return v
	case []byte:
		return hex.EncodeToString(v)
	}
	return fmt.Sprint(t.Value)
}

// Tags is an ordered tagged header
type Tags []Tag

// Lookup returns the first tag with the given ident
func (ts Tags) Lookup(ident string) (Tag, bool) {
	for _, t := range ts {
		if t.Ident == ident {
			return t, true
		}
	}
	return Tag{}, false
}

// Int returns an integer tag, or zero when it is missing
func (ts Tags) Int(ident string) int64 {
	t, ok := ts.Lookup(ident)
	if !ok {
		return 0
	}
	switch v := t.Value.(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	}
	return 0
}

// Float returns a float tag, or zero when it is missing
func (ts Tags) Float(ident string) float64 {
	t, ok := ts.Lookup(ident)
	if !ok {
		return 0
	}
	if v, ok := t.Value.(float64); ok {
		return v
	}
	return 0
}

// PrintHeader writes every tag in file order
func (ts Tags) PrintHeader(hw *pq.HeaderWriter) {
	for _, t := range ts {
		hw.Str(t.Key(), t.String())
	}
}

func readBytes(r io.Reader, n int64, ident string) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: tag %s has negative length %d", pq.ErrUnknownData, ident, n)
	}
	if n > pq.MaxAlloc {
		return nil, fmt.Errorf("%w: tag %s has length %d", pq.ErrMemory, ident, n)
	}
	b := make([]byte, n)
	if err := pq.ReadStruct(r, "tag "+ident, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadTag reads one tag and its trailing data
func ReadTag(r io.Reader) (Tag, error) {
	var raw rawTag
	if err := pq.ReadStruct(r, "tag", &raw); err != nil {
		return Tag{}, err
	}
	t := Tag{Ident: pq.CString(raw.Ident[:]), Index: raw.Index, Type: TagType(raw.Type)}
	switch t.Type {
	case Empty8:
	case Bool8:
		t.Value = raw.Value != 0
	case Int8:
		t.Value = raw.Value
	case BitSet64, Color8:
		t.Value = uint64(raw.Value)
	case Float8:
		t.Value = math.Float64frombits(uint64(raw.Value))
	case TDateTime:
		days := math.Float64frombits(uint64(raw.Value))
		t.Value = dateEpoch.Add(time.Duration(days * float64(24*time.Hour)))
	case Float8Array:
		b, err := readBytes(r, raw.Value, t.Ident)
		if err != nil {
			return t, err
		}
		fs := make([]float64, len(b)/8)
		for i := range fs {
			fs[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
		}
		t.Value = fs
	case AnsiString:
		b, err := readBytes(r, raw.Value, t.Ident)
		if err != nil {
			return t, err
		}
		t.Value = pq.CString(b)
	case WideString:
		b, err := readBytes(r, raw.Value, t.Ident)
		if err != nil {
			return t, err
		}
		t.Value = wideString(b)
	case BinaryBlob:
		b, err := readBytes(r, raw.Value, t.Ident)
		if err != nil {
			return t, err
		}
		t.Value = b
	default:
		return t, fmt.Errorf("%w: tag %s has type %s", pq.ErrUnknownData, t.Ident, t.Type)
	}
	return t, nil
}

// ReadTags reads tags up to and including Header_End
func ReadTags(r io.Reader) (Tags, error) {
	var ts Tags
	for {
		t, err := ReadTag(r)
		if err != nil {
			return ts, err
		}
		pq.Debug("tag %s = %s", t.Key(), t)
		ts = append(ts, t)
		if t.Ident == HeaderEnd {
			return ts, nil
		}
	}
}

// wideString decodes NUL terminated UTF-16LE
func wideString(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		c := binary.LittleEndian.Uint16(b[i:])
		if c == 0 {
			break
		}
		u = append(u, c)
	}
	return string(utf16.Decode(u))
}
