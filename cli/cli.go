// Package cli defines the command line of the picoquant decoder.  It is
// shared by the picoquant command and by clients which run the decoder in
// process.
package cli

import (
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/nasa-jpl/picoquant/limits"
	"github.com/nasa-jpl/picoquant/pq"
)

// Version is the version of the decoder
var Version = "1.0.0"

// Message follows the option list in the usage text
const Message = `This program decodes data collected using Picoquant hardware.
The binary data is decoded to detect the hardware version and
collection mode, and the data are output in a mode-specific
ascii format.

When called, the data output are either run configuration parameters
(obtained by passing --resolution-only or --header-only) or the data from
the measurement. The header is output in an ini-like format, while the
resolution is output as a float in picoseconds, though for most runs
this is more accurately described as an integer number of picoseconds.

Hardware and versions supported:
TimeHarp: v2.0 (thd)
          v3.0 (thd, t3r)
          v5.0 (thd)
          v6.0 (thd, t3r)
Picoharp: v2.0 (phd, pt2, pt3)
Hydraharp: v1.0, v2.0 (hhd, ht2, ht3)
Unified: ptu (PicoHarp, HydraHarp, TimeHarp 260 t2 and t3)

Data formats (csv):
(times are integers in picoseconds, bin edges are floats in picoseconds)
    Interactive mode:
        curve number, left bin edge, right bin edge, counts

    T2:
        channel, time

    T3:
        channel, pulse, time
`

// Config is the parsed command line
type Config struct {
	Opts pq.Options

	Help     bool
	Version  bool
	Verbose  bool
	BinaryIn bool

	FileIn  string
	FileOut string

	FITS     string
	Progress bool
	Checksum bool
	Stats    bool

	// Edges holds the bin edges of --time, nil when it was not given
	Edges []float64

	suppress     string
	timeOffsets  string
	pulseOffsets string
	time         string
	timeScale    string
}

// FlagSet binds the options of c to a new flag set
func FlagSet(name string, c *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SortFlags = false
	o := &c.Opts
	fs.BoolVarP(&c.Help, "help", "h", false, "Prints this usage message.")
	fs.BoolVarP(&c.Version, "version", "v", false, "Print version information.")
	fs.BoolVarP(&c.Verbose, "verbose", "V", false, "Print debug-level information.")
	fs.Int64VarP(&o.PrintEvery, "print-every", "p", 0, "Print a status line after this many records.")
	fs.StringVarP(&c.FileIn, "file-in", "i", "", "Input filename or tcp://host:port. By default, this is stdin.")
	fs.StringVarP(&c.FileOut, "file-out", "o", "", "Output filename. By default, this is stdout.")
	fs.BoolVarP(&c.BinaryIn, "binary-in", "a", false, "Specifies that the input file is in binary format. It always is.")
	fs.BoolVarP(&o.BinaryOut, "binary-out", "b", false, "Specifies that the output file is in binary format,\nrather than text.")
	fs.Int64VarP(&o.Number, "number", "n", o.Number, "The number of entries to process. By default,\nall entries are processed.")
	fs.BoolVarP(&o.PrintHeader, "header-only", "r", false, "Rather than processing any data, print the header\nof the file in an ini-like format.")
	fs.BoolVarP(&o.PrintResolution, "resolution-only", "z", false, "Rather than processing any data, print the\nresolution of the measurement. For TTTR modes,\nthis is a single float, but for interactive data\nthe resolution of each curve is given.")
	fs.BoolVarP(&o.ToT2, "to-t2", "t", false, "For t3 data, use the sync rate to determine the\ntime represented by the sync count and output the\ndata in t2 mode.")
	fs.BoolVar(&o.PrintMode, "mode-only", false, "Rather than processing any data, print the mode\nof the measurement: interactive, t2 or t3.")
	fs.BoolVar(&o.PrintMarkers, "markers", false, "Include external marker records in the output.")
	fs.IntVarP(&o.Channels, "channels", "c", 0, "The number of channels in the signal.")
	fs.StringVarP(&c.suppress, "suppress", "s", "", "A comma-delimited list of channels to remove\nfrom the stream.")
	fs.StringVarP(&c.timeOffsets, "time-offsets", "u", "", "A comma-delimited list of time offsets to\napply to the channels. All channels must be\nrepresented, even if the offset is 0.")
	fs.StringVarP(&c.pulseOffsets, "pulse-offsets", "U", "", "A comma-delimited list of pulse offsets to\napply to the channels. All channels must be\nrepresented, even if the offset is 0.")
	fs.BoolVar(&o.Proto, "proto", false, "Write length-prefixed protobuf records.")
	fs.StringVar(&c.FITS, "fits", "", "Export the histograms of an interactive file\nto this FITS file.")
	fs.BoolVar(&c.Progress, "progress", false, "Show a spinner with the record count on stderr.")
	fs.BoolVar(&c.Checksum, "checksum", false, "Print the CRC-32 of the input to stderr.")
	fs.BoolVar(&c.Stats, "stats", false, "Print per-channel statistics as JSON instead of the data.")
	fs.StringVarP(&c.time, "time", "x", "", "The time limits of the --stats histogram:\n    lower,number of bins,upper\nwith the extrema in picoseconds.")
	fs.StringVarP(&c.timeScale, "time-scale", "X", "", "The scale of the time axis, one of:\n   linear: linear interpolation between limits\n      log: logarithmic interpolation\n log-zero: same as log, except that the lowest\n           bin is extended to include 0")
	return fs
}

// Usage writes the usage text
func Usage(w io.Writer, name string, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [options]\n\n", name)
	fmt.Fprintf(w, "%s v%s\n\n", name, Version)
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintf(w, "\n%s", Message)
}

// Parse parses args into a Config and validates the result
func Parse(name string, args []string) (*Config, error) {
	c := &Config{Opts: pq.DefaultOptions()}
	fs := FlagSet(name, c)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return c, fmt.Errorf("%w: %v", pq.ErrOptions, err)
	}
	if fs.NArg() > 0 {
		return c, fmt.Errorf("%w: unexpected arguments: %s", pq.ErrOptions, strings.Join(fs.Args(), " "))
	}
	if c.Help || c.Version {
		return c, nil
	}
	if err := c.finish(); err != nil {
		return c, err
	}
	return c, c.Opts.Validate()
}

func (c *Config) finish() error {
	o := &c.Opts
	if o.Channels < 0 {
		return fmt.Errorf("%w: must have a positive number of channels (%d specified)", pq.ErrOptions, o.Channels)
	}
	needChannels := func(flag string) error {
		return fmt.Errorf("%w: --%s needs --channels", pq.ErrOptions, flag)
	}
	var err error
	if c.suppress != "" {
		if o.Channels == 0 {
			return needChannels("suppress")
		}
		if o.Suppress, err = limits.ParseSuppress(c.suppress, o.Channels); err != nil {
			return err
		}
	}
	if c.timeOffsets != "" {
		if o.Channels == 0 {
			return needChannels("time-offsets")
		}
		if o.TimeOffsets, err = limits.ParseOffsets(c.timeOffsets, o.Channels); err != nil {
			return err
		}
	}
	if c.pulseOffsets != "" {
		if o.Channels == 0 {
			return needChannels("pulse-offsets")
		}
		if o.PulseOffsets, err = limits.ParseOffsets(c.pulseOffsets, o.Channels); err != nil {
			return err
		}
	}
	scale, err := limits.ParseScale(c.timeScale)
	if err != nil {
		return err
	}
	if c.time != "" {
		l, err := limits.Parse(c.time)
		if err != nil {
			return err
		}
		if c.Edges, err = limits.Edges(l, scale); err != nil {
			return err
		}
	}
	if c.FITS != "" && (o.PrintHeader || o.PrintResolution || o.PrintMode) {
		return fmt.Errorf("%w: --fits cannot be combined with header, resolution or mode printing", pq.ErrOptions)
	}
	return nil
}
