package pq

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Sink receives decoded data and writes it in some output format
type Sink interface {
	WriteT2(T2) error
	WriteT3(T3) error
	WriteMarker(Marker) error
	WriteBin(Bin) error

	// WriteResolution writes the resolution in picoseconds.  curve is
	// negative for time-tagged data, which has a single resolution.
	WriteResolution(curve int, ps float64) error

	Flush() error
}

// NewSink returns the sink selected by opts
func NewSink(w io.Writer, opts Options) Sink {
	switch {
	case opts.Proto:
		return NewProtoSink(w)
	case opts.BinaryOut:
		return NewBinarySink(w)
	default:
		return NewCSVSink(w, opts)
	}
}

type csvSink struct {
	w       *bufio.Writer
	markers bool
}

// NewCSVSink returns a Sink writing one comma separated line per record.
// Markers are only written when opts.PrintMarkers is set.
func NewCSVSink(w io.Writer, opts Options) Sink {
	return &csvSink{w: bufio.NewWriter(w), markers: opts.PrintMarkers}
}

func (s *csvSink) WriteT2(r T2) error {
	_, err := fmt.Fprintf(s.w, "%d,%d\n", r.Channel, r.Time)
	return err
}

func (s *csvSink) WriteT3(r T3) error {
	_, err := fmt.Fprintf(s.w, "%d,%d,%d\n", r.Channel, r.Pulse, r.Time)
	return err
}

func (s *csvSink) WriteMarker(m Marker) error {
	if !s.markers {
		return nil
	}
	_, err := fmt.Fprintf(s.w, "marker,%d,%d,%d\n", m.Bits, m.Pulse, m.Time)
	return err
}

func (s *csvSink) WriteBin(b Bin) error {
	_, err := fmt.Fprintf(s.w, "%d,%.2f,%.2f,%d\n", b.Curve, b.Left*1e3, b.Right*1e3, b.Counts)
	return err
}

func (s *csvSink) WriteResolution(curve int, ps float64) error {
	var err error
	if curve >= 0 {
		_, err = fmt.Fprintf(s.w, "%d,%.2f\n", curve, ps)
	} else {
		_, err = fmt.Fprintf(s.w, "%.2f\n", ps)
	}
	return err
}

func (s *csvSink) Flush() error {
	return s.w.Flush()
}

// the binary layouts follow the natural alignment of the equivalent C structs
type binT2 struct {
	Channel uint32
	_       uint32
	Time    uint64
}

type binT3 struct {
	Channel uint32
	_       uint32
	Pulse   uint64
	Time    uint64
}

type binBin struct {
	Curve  uint32
	_      uint32
	Left   float64
	Right  float64
	Counts uint32
	_      uint32
}

type binarySink struct {
	w *bufio.Writer
}

// NewBinarySink returns a Sink writing fixed size little endian structures.
// t2 records take 16 bytes, t3 records 24 and histogram bins 32.
// Markers are not written.
func NewBinarySink(w io.Writer) Sink {
	return &binarySink{w: bufio.NewWriter(w)}
}

func (s *binarySink) WriteT2(r T2) error {
	return binary.Write(s.w, binary.LittleEndian, binT2{Channel: r.Channel, Time: r.Time})
}

func (s *binarySink) WriteT3(r T3) error {
	return binary.Write(s.w, binary.LittleEndian, binT3{Channel: r.Channel, Pulse: r.Pulse, Time: r.Time})
}

func (s *binarySink) WriteMarker(m Marker) error {
	return nil
}

func (s *binarySink) WriteBin(b Bin) error {
	return binary.Write(s.w, binary.LittleEndian, binBin{Curve: b.Curve, Left: b.Left, Right: b.Right, Counts: b.Counts})
}

func (s *binarySink) WriteResolution(curve int, ps float64) error {
	return binary.Write(s.w, binary.LittleEndian, ps)
}

func (s *binarySink) Flush() error {
	return s.w.Flush()
}

// ReadBinaryT2 reads one t2 record written by a binary sink
func ReadBinaryT2(r io.Reader) (T2, error) {
	var b binT2
	err := binary.Read(r, binary.LittleEndian, &b)
	return T2{Channel: b.Channel, Time: b.Time}, err
}

// ReadBinaryT3 reads one t3 record written by a binary sink
func ReadBinaryT3(r io.Reader) (T3, error) {
	var b binT3
	err := binary.Read(r, binary.LittleEndian, &b)
	return T3{Channel: b.Channel, Pulse: b.Pulse, Time: b.Time}, err
}

// ReadBinaryBin reads one histogram bin written by a binary sink
func ReadBinaryBin(r io.Reader) (Bin, error) {
	var b binBin
	err := binary.Read(r, binary.LittleEndian, &b)
	return Bin{Curve: b.Curve, Left: b.Left, Right: b.Right, Counts: b.Counts}, err
}
