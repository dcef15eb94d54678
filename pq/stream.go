package pq

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const streamName = "picoquant"

// MaxAlloc bounds the number of elements allocated for any array whose
// length is read from a file
const MaxAlloc = 1 << 24

// NewReader buffers r for record by record decoding
func NewReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReaderSize(r, 64*1024)
}

func report(opts Options, count int64) {
	Status(streamName, count, opts.PrintEvery)
	if opts.Progress != nil {
		opts.Progress.Report(count)
	}
}

// writeErr marks a sink failure as an i/o error, unless the sink already
// reported one of the package errors
func writeErr(err error) error {
	if Code(err) != Code(ErrIO) || errors.Is(err, ErrIO) {
		return err
	}
	return fmt.Errorf("%w: writing output: %v", ErrIO, err)
}

// StreamT2 decodes t2 records from r until the input ends or opts.Number
// photons have been written
func StreamT2(r io.Reader, sink Sink, decode Decoder, tttr *TTTR, opts Options) error {
	var count int64
	for count < opts.Number {
		rec, err := decode(r, tttr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch rec.Kind {
		case KindT2:
			t2 := rec.T2
			if opts.suppressed(t2.Channel) {
				continue
			}
			t2.Time = shift(t2.Time, offset(opts.TimeOffsets, t2.Channel))
			count++
			report(opts, count)
			if err := sink.WriteT2(t2); err != nil {
				return writeErr(err)
			}
		case KindMarker:
			Debug("marker %d at %d", rec.Marker.Bits, rec.Marker.Time)
			if err := sink.WriteMarker(rec.Marker); err != nil {
				return writeErr(err)
			}
		case KindOverflow:
			// applied by the decoder
		default:
			return fmt.Errorf("%w: record type not recognized: %v", ErrUnknownData, rec.Kind)
		}
	}
	Debug("wrote %d t2 records, %d overflows", count, tttr.Overflows)
	return sink.Flush()
}

// StreamT3 decodes t3 records from r until the input ends or opts.Number
// photons have been written.  With opts.ToT2 the records are converted
// to t2 before they are written.
func StreamT3(r io.Reader, sink Sink, decode Decoder, tttr *TTTR, opts Options) error {
	if opts.ToT2 && tttr.SyncRate <= 0 {
		return fmt.Errorf("%w: cannot convert t3 to t2 with a sync rate of %d", ErrOptions, tttr.SyncRate)
	}
	var count int64
	for count < opts.Number {
		rec, err := decode(r, tttr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch rec.Kind {
		case KindT3:
			t3 := rec.T3
			if opts.suppressed(t3.Channel) {
				continue
			}
			t3.Pulse = shift(t3.Pulse, offset(opts.PulseOffsets, t3.Channel))
			t3.Time = shift(t3.Time, offset(opts.TimeOffsets, t3.Channel))
			count++
			report(opts, count)
			if opts.ToT2 {
				err = sink.WriteT2(T3ToT2(t3, tttr.SyncRate))
			} else {
				err = sink.WriteT3(t3)
			}
			if err != nil {
				return writeErr(err)
			}
		case KindMarker:
			Debug("marker %d at pulse %d", rec.Marker.Bits, rec.Marker.Pulse)
			if err := sink.WriteMarker(rec.Marker); err != nil {
				return writeErr(err)
			}
		case KindOverflow:
		default:
			return fmt.Errorf("%w: record type not recognized: %v", ErrUnknownData, rec.Kind)
		}
	}
	Debug("wrote %d t3 records, %d overflows", count, tttr.Overflows)
	return sink.Flush()
}

// Curve is one histogram of an interactive mode file
type Curve struct {
	// Offset is the time of the left edge of the first bin, in ns
	Offset float64

	// Width is the width of every bin, in ns
	Width float64

	// Bins is the number of bins recorded in the file
	Bins int

	// Counts holds the histogram
	Counts []uint32
}

// ResolutionPS is the bin width in picoseconds
func (c Curve) ResolutionPS() float64 {
	return c.Width * 1e3
}

// Bin returns bin j of the curve, labelled as curve i
func (c Curve) Bin(i, j int) Bin {
	left := c.Offset + c.Width*float64(j)
	return Bin{Curve: uint32(i), Left: left, Right: left + c.Width, Counts: c.Counts[j]}
}

// WriteCurves writes every bin of every curve to sink
func WriteCurves(sink Sink, curves []Curve) error {
	for i, c := range curves {
		for j := range c.Counts {
			if err := sink.WriteBin(c.Bin(i, j)); err != nil {
				return writeErr(err)
			}
		}
	}
	return sink.Flush()
}

// WriteCurveResolutions writes the resolution of each curve to sink
func WriteCurveResolutions(sink Sink, curves []Curve) error {
	for i, c := range curves {
		if err := sink.WriteResolution(i, c.ResolutionPS()); err != nil {
			return writeErr(err)
		}
	}
	return sink.Flush()
}

// WriteResolution writes the single resolution of a time-tagged stream
func WriteResolution(sink Sink, ps float64) error {
	if err := sink.WriteResolution(-1, ps); err != nil {
		return writeErr(err)
	}
	return sink.Flush()
}

// ReadCounts reads n little endian uint32 histogram counts
func ReadCounts(r io.Reader, n int, what string) ([]uint32, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative bin count %d for %s", ErrUnknownData, n, what)
	}
	if n > MaxAlloc {
		return nil, fmt.Errorf("%w: %d bins for %s", ErrMemory, n, what)
	}
	counts := make([]uint32, n)
	if err := ReadStruct(r, what, counts); err != nil {
		return nil, err
	}
	return counts, nil
}
