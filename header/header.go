// Package header reads the Key = value header printed by the decoder back
// into a queryable form.
package header

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/rawbytes"

	"github.com/nasa-jpl/picoquant/pq"
)

// Delim separates nested keys.  Header keys use dots and brackets, so
// the delimiter is a character which never appears in them.
const Delim = "/"

var curveKey = regexp.MustCompile(`^(?:Curve|Crv)\[(\d+)\]\.`)

// Parser is a koanf.Parser for Key = value text
type Parser struct {
	// Order receives the keys in the order they were read
	Order []string
}

// Unmarshal splits lines at the first " = ", or the first "=" when there
// is no spaced form.  Blank and [section] lines are skipped.
func (p *Parser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	p.Order = p.Order[:0]
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 64*1024), pq.MaxAlloc)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		idx, sep := strings.Index(line, " = "), 3
		if idx < 0 {
			idx, sep = strings.Index(line, "="), 1
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: header line without a value: %q", pq.ErrUnknownData, line)
		}
		key := strings.TrimSpace(line[:idx])
		if _, seen := out[key]; !seen {
			p.Order = append(p.Order, key)
		}
		out[key] = strings.TrimSpace(line[idx+sep:])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", pq.ErrIO, err)
	}
	return out, nil
}

// Marshal writes the map back as Key = value lines
func (p *Parser) Marshal(m map[string]interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	for _, k := range p.Order {
		if v, ok := m[k]; ok {
			fmt.Fprintf(buf, "%s = %v\n", k, v)
		}
	}
	return buf.Bytes(), nil
}

// Header is a parsed header
type Header struct {
	k    *koanf.Koanf
	keys []string
}

// Parse reads a header from r
func Parse(r io.Reader) (*Header, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pq.ErrIO, err)
	}
	k := koanf.New(Delim)
	p := &Parser{}
	if err := k.Load(rawbytes.Provider(b), p); err != nil {
		return nil, err
	}
	return &Header{k: k, keys: append([]string(nil), p.Order...)}, nil
}

// Keys returns every key in the order it was read
func (h *Header) Keys() []string {
	return h.keys
}

// Exists reports whether key is in the header
func (h *Header) Exists(key string) bool {
	return h.k.Exists(key)
}

// String returns the value of key, or "" when it is missing
func (h *Header) String(key string) string {
	return h.k.String(key)
}

// Int returns the value of key as an integer
func (h *Header) Int(key string) (int64, error) {
	v, err := strconv.ParseInt(h.String(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: header key %s is not an integer: %v", pq.ErrUnknownData, key, err)
	}
	return v, nil
}

// Float returns the value of key as a float
func (h *Header) Float(key string) (float64, error) {
	v, err := strconv.ParseFloat(h.String(key), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: header key %s is not a number: %v", pq.ErrUnknownData, key, err)
	}
	return v, nil
}

// Map returns every key and value
func (h *Header) Map() map[string]string {
	out := make(map[string]string, len(h.keys))
	for _, k := range h.keys {
		out[k] = h.String(k)
	}
	return out
}

// Curve returns field of curve i, looking under Curve[i]., Crv[i]. and
// Brd[i]. in turn
func (h *Header) Curve(i int, field string) (string, bool) {
	for _, prefix := range []string{"Curve", "Crv", "Brd"} {
		key := fmt.Sprintf("%s[%d].%s", prefix, i, field)
		if h.Exists(key) {
			return h.String(key), true
		}
	}
	return "", false
}

// Curves returns NumberOfCurves, or the number of distinct curve indices
// when the header does not record it
func (h *Header) Curves() int {
	if n, err := h.Int("NumberOfCurves"); err == nil {
		return int(n)
	}
	seen := map[string]bool{}
	for _, k := range h.keys {
		if m := curveKey.FindStringSubmatch(k); m != nil {
			seen[m[1]] = true
		}
	}
	return len(seen)
}
