package pq

import (
	"fmt"
	"io"
	"time"
)

type kvState struct {
	w   io.Writer
	err error
}

// HeaderWriter prints header fields as "Key = value" lines.  Indexed
// writers share the underlying writer and the first error encountered.
type HeaderWriter struct {
	st     *kvState
	prefix string
}

// NewHeaderWriter returns a HeaderWriter writing to w
func NewHeaderWriter(w io.Writer) *HeaderWriter {
	return &HeaderWriter{st: &kvState{w: w}}
}

// Indexed returns a writer whose keys are prefixed with name[i].
func (hw *HeaderWriter) Indexed(name string, i int) *HeaderWriter {
	return &HeaderWriter{st: hw.st, prefix: fmt.Sprintf("%s%s[%d].", hw.prefix, name, i)}
}

func (hw *HeaderWriter) line(key, format string, v interface{}) {
	if hw.st.err != nil {
		return
	}
	_, hw.st.err = fmt.Fprintf(hw.st.w, "%s%s = "+format+"\n", hw.prefix, key, v)
}

// Str writes a string field
func (hw *HeaderWriter) Str(key, v string) { hw.line(key, "%s", v) }

// Int writes a signed integer field
func (hw *HeaderWriter) Int(key string, v int64) { hw.line(key, "%d", v) }

// Uint writes an unsigned integer field
func (hw *HeaderWriter) Uint(key string, v uint64) { hw.line(key, "%d", v) }

// Float writes a floating point field with six decimals
func (hw *HeaderWriter) Float(key string, v float64) { hw.line(key, "%f", v) }

// Time writes a unix time in the layout of C's ctime, in UTC
func (hw *HeaderWriter) Time(key string, unix int64) {
	hw.line(key, "%s", time.Unix(unix, 0).UTC().Format(time.ANSIC))
}

// Int32s writes one key[i] = v line per element
func (hw *HeaderWriter) Int32s(key string, vs []int32) {
	for i, v := range vs {
		hw.Int(fmt.Sprintf("%s[%d]", key, i), int64(v))
	}
}

// Uint32s writes one key[i] = v line per element
func (hw *HeaderWriter) Uint32s(key string, vs []uint32) {
	for i, v := range vs {
		hw.Uint(fmt.Sprintf("%s[%d]", key, i), uint64(v))
	}
}

// Err returns the first error encountered while writing
func (hw *HeaderWriter) Err() error {
	if hw.st.err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrIO, hw.st.err)
	}
	return nil
}

// DisplayCurve is the display mapping of one curve in the main header
// of PicoHarp, HydraHarp and TimeHarp files
type DisplayCurve struct {
	MapTo int32
	Show  int32
}

// Param is a parameter sweep in the main header
type Param struct {
	Start float32
	Step  float32
	Stop  float32
}

// PrintDisplay writes the display curves and parameters shared by the
// classic main headers
func PrintDisplay(hw *HeaderWriter, curves []DisplayCurve, params []Param) {
	for i, c := range curves {
		d := hw.Indexed("DisplayCurve", i)
		d.Int("MapTo", int64(c.MapTo))
		d.Int("Show", int64(c.Show))
	}
	for i, p := range params {
		d := hw.Indexed("Param", i)
		d.Float("Start", float64(p.Start))
		d.Float("Step", float64(p.Step))
		d.Float("Stop", float64(p.Stop))
	}
}
