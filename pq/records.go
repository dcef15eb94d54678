package pq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// T2 is a photon arrival with an absolute time in picoseconds
type T2 struct {
	Channel uint32
	Time    uint64
}

// T3 is a photon arrival counted in sync pulses, with the time in
// picoseconds since the most recent sync pulse
type T3 struct {
	Channel uint32
	Pulse   uint64
	Time    uint64
}

// Marker is an external marker seen in the record stream.  Channel is
// the raw channel field of the record and Bits holds the marker lines
// which fired.  Pulse is zero in t2 streams.
type Marker struct {
	Channel uint32
	Bits    uint32
	Pulse   uint64
	Time    uint64
}

// Bin is a single histogram bin of an interactive mode curve.
// The edges are in nanoseconds.
type Bin struct {
	Curve  uint32
	Left   float64
	Right  float64
	Counts uint32
}

// Kind labels what a decoder found in a record
type Kind int

const (
	// KindT2 is a t2 photon
	KindT2 Kind = 8

	// KindT3 is a t3 photon
	KindT3 Kind = 9

	// KindMarker is an external marker
	KindMarker Kind = 10

	// KindOverflow is a time tag overflow, already applied to the TTTR origin
	KindOverflow Kind = 11
)

func (k Kind) String() string {
	switch k {
	case KindT2:
		return "t2"
	case KindT3:
		return "t3"
	case KindMarker:
		return "marker"
	case KindOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Record is the result of decoding one raw record.  Only the field
// matching Kind is meaningful.
type Record struct {
	Kind   Kind
	T2     T2
	T3     T3
	Marker Marker
}

// TTTR is the running state of a time-tagged stream
type TTTR struct {
	// SyncChannel is the channel sync pulses are reported on, for formats
	// that put them in the t2 stream
	SyncChannel int

	// Origin accumulates time tag overflows, in the native units of the record
	Origin int64

	// Overflows counts the overflow records seen
	Overflows int64

	// OverflowIncrement is added to Origin for every overflow
	OverflowIncrement int64

	// SyncRate is the sync rate in Hz
	SyncRate int32

	// Resolution is the time resolution of the stream in seconds
	Resolution float64

	// ResolutionPS is the time resolution of a t3 time bin in integer picoseconds
	ResolutionPS int64
}

// Overflow advances the origin by n overflow periods
func (t *TTTR) Overflow(n int64) {
	t.Origin += n * t.OverflowIncrement
	t.Overflows += n
}

// Reset clears the running state, keeping the stream constants
func (t *TTTR) Reset() {
	t.Origin = 0
	t.Overflows = 0
}

// Decoder turns the next raw record of r into a Record.  A clean end of
// input is reported as io.EOF.
type Decoder func(r io.Reader, tttr *TTTR) (Record, error)

// ReadRecord reads one 32 bit little endian record.  It returns io.EOF when
// r is exhausted on a record boundary and ErrIO for a partial record.
func ReadRecord(r io.Reader) (uint32, error) {
	var buf [4]byte
	_, err := io.ReadFull(r, buf[:])
	switch {
	case err == nil:
		return binary.LittleEndian.Uint32(buf[:]), nil
	case err == io.EOF:
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, fmt.Errorf("%w: partial record at end of input", ErrIO)
	default:
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
}

// T3ToT2 converts a t3 record to a t2 record using the sync rate of the
// stream.  The time is the arrival time of the sync pulse plus the time
// since that pulse.
func T3ToT2(t3 T3, syncRate int32) T2 {
	period := 1e12 / float64(syncRate)
	return T2{
		Channel: t3.Channel,
		Time:    uint64(math.Floor(float64(t3.Pulse)*period)) + t3.Time,
	}
}
