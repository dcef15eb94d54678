package pq

import (
	"fmt"
	"io"
)

// HeaderPrinter prints the format specific headers which follow the
// common header
type HeaderPrinter interface {
	PrintHeader(hw *HeaderWriter)
}

// Headers prints several headers in order
type Headers []HeaderPrinter

// PrintHeader prints each header
func (hs Headers) PrintHeader(hw *HeaderWriter) {
	for _, h := range hs {
		h.PrintHeader(hw)
	}
}

// File is a PicoQuant file whose headers have been read.  Data is
// positioned at the first record or histogram.
type File struct {
	Header  Header
	Mode    Mode
	Headers HeaderPrinter
	Data    io.Reader

	// Curves describes the histograms of an interactive file.  Curves
	// with nil Counts are read from Data on demand.
	Curves []Curve

	// TTTR is the stream state of a t2 or t3 file
	TTTR *TTTR

	// Decode turns raw records into photons, markers and overflows
	Decode Decoder

	// Resolution of a t2 or t3 file in picoseconds
	Resolution float64

	// NoToT2 is set for formats whose t3 records cannot be converted to t2
	NoToT2 bool
}

// WriteHeader prints every header of the file in Key = value form
func (f *File) WriteHeader(w io.Writer) error {
	hw := NewHeaderWriter(w)
	f.Header.Print(hw)
	if f.Headers != nil {
		f.Headers.PrintHeader(hw)
	}
	return hw.Err()
}

// WriteResolution writes the resolution of the file to sink
func (f *File) WriteResolution(sink Sink) error {
	if f.Mode == ModeInteractive {
		return WriteCurveResolutions(sink, f.Curves)
	}
	return WriteResolution(sink, f.Resolution)
}

// Resolutions returns the resolution in picoseconds, keyed by curve.
// Time-tagged files have a single entry at key -1.
func (f *File) Resolutions() map[int]float64 {
	out := map[int]float64{}
	if f.Mode == ModeInteractive {
		for i, c := range f.Curves {
			out[i] = c.ResolutionPS()
		}
		return out
	}
	out[-1] = f.Resolution
	return out
}

// LoadCurves reads the histograms of an interactive file
func (f *File) LoadCurves() ([]Curve, error) {
	if f.Mode != ModeInteractive {
		return nil, fmt.Errorf("%w: %s file has no histograms", ErrMode, f.Mode)
	}
	for i := range f.Curves {
		if f.Curves[i].Counts != nil {
			continue
		}
		counts, err := ReadCounts(f.Data, f.Curves[i].Bins, fmt.Sprintf("counts of curve %d", i))
		if err != nil {
			return nil, err
		}
		f.Curves[i].Counts = counts
	}
	return f.Curves, nil
}

// Stream writes the data of the file to sink
func (f *File) Stream(sink Sink, opts Options) error {
	switch f.Mode {
	case ModeInteractive:
		curves, err := f.LoadCurves()
		if err != nil {
			return err
		}
		return WriteCurves(sink, curves)
	case ModeT2:
		return StreamT2(f.Data, sink, f.Decode, f.TTTR, opts)
	case ModeT3:
		if opts.ToT2 && f.NoToT2 {
			return fmt.Errorf("%w: t3 to t2 conversion not supported for %s", ErrOptions, f.Header.Ident)
		}
		return StreamT3(f.Data, sink, f.Decode, f.TTTR, opts)
	}
	return fmt.Errorf("%w: %s", ErrMode, f.Mode)
}

// Run writes what opts asks for: the header, the mode, the resolution or the data
func Run(f *File, w io.Writer, opts Options) error {
	switch {
	case opts.PrintHeader:
		return f.WriteHeader(w)
	case opts.PrintMode:
		if _, err := fmt.Fprintln(w, f.Mode); err != nil {
			return writeErr(err)
		}
		return nil
	}
	sink := NewSink(w, opts)
	if opts.PrintResolution {
		return f.WriteResolution(sink)
	}
	return f.Stream(sink, opts)
}
