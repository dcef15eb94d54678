// Command picoquant decodes the data files written by PicoQuant TCSPC
// hardware to text or binary
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/theckman/yacspin"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/picoquant/cli"
	"github.com/nasa-jpl/picoquant/comm"
	"github.com/nasa-jpl/picoquant/decoder"
	"github.com/nasa-jpl/picoquant/fitsout"
	"github.com/nasa-jpl/picoquant/pq"
	"github.com/nasa-jpl/picoquant/stats"
)

const name = "picoquant"

// spinner reports the record count on a terminal spinner, at most ten
// times a second
type spinner struct {
	s     *yacspin.Spinner
	limit *rate.Limiter
}

func newSpinner() (*spinner, error) {
	cfg := yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " decoding",
		StopCharacter:     "✓",
		StopFailCharacter: "✗",
		Writer:            os.Stderr,
	}
	s, err := yacspin.New(cfg)
	if err != nil {
		return nil, err
	}
	return &spinner{s: s, limit: rate.NewLimiter(rate.Every(100*time.Millisecond), 1)}, s.Start()
}

func (s *spinner) Report(count int64) {
	if s.limit.Allow() {
		s.s.Message(fmt.Sprintf("%d records", count))
	}
}

func (s *spinner) stop(err error) {
	if err != nil {
		s.s.StopFail()
		return
	}
	s.s.Stop()
}

// checksumReader accumulates the CRC-32 of everything read through it
type checksumReader struct {
	r  io.Reader
	pw *io.PipeWriter
}

func (c checksumReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	if n > 0 {
		c.pw.Write(b[:n])
	}
	return n, err
}

// withChecksum returns a reader over r and a func which returns the
// checksum of what was read once r has been consumed
func withChecksum(r io.Reader) (io.Reader, func() (uint32, error)) {
	pr, pw := io.Pipe()
	type result struct {
		sum uint32
		err error
	}
	ch := make(chan result, 1)
	go func() {
		sum, err := decoder.Checksum(pr)
		ch <- result{sum, err}
	}()
	return checksumReader{r: r, pw: pw}, func() (uint32, error) {
		pw.Close()
		res := <-ch
		return res.sum, res.err
	}
}

// writeFITS writes the curves to w and closes it
func writeFITS(w io.WriteCloser, h pq.Header, curves []pq.Curve) (err error) {
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: %v", pq.ErrIO, cerr)
		}
	}()
	return fitsout.WriteCurves(w, h, curves)
}

func run(cfg *cli.Config, in io.Reader, out io.Writer) error {
	switch {
	case cfg.FITS != "":
		h, curves, err := decoder.Histogram(in)
		if err != nil {
			return err
		}
		f, err := os.Create(cfg.FITS)
		if err != nil {
			return fmt.Errorf("%w: %v", pq.ErrIO, err)
		}
		return writeFITS(f, h, curves)
	case cfg.Stats:
		f, err := decoder.Open(in)
		if err != nil {
			return err
		}
		s, err := stats.Compute(f, cfg.Opts, cfg.Edges)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("%w: %v", pq.ErrIO, err)
		}
		return nil
	}
	return decoder.Decode(in, out, cfg.Opts)
}

func main() {
	cfg, err := cli.Parse(name, os.Args[1:])
	if err != nil {
		pq.Error("%v", err)
		cli.Usage(os.Stderr, name, cli.FlagSet(name, &cli.Config{}))
		os.Exit(255 & pq.Code(err))
	}
	if cfg.Help {
		cli.Usage(os.Stdout, name, cli.FlagSet(name, &cli.Config{}))
		return
	}
	if cfg.Version {
		fmt.Printf("%s v%s\n", name, cli.Version)
		return
	}
	pq.Verbose = cfg.Verbose
	os.Exit(255 & pq.Code(decode(cfg)))
}

func decode(cfg *cli.Config) (err error) {
	defer func() {
		if err != nil {
			pq.Error("%v", err)
		}
	}()
	src, err := comm.Open(cfg.FileIn, 3*time.Second)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: could not open %s for reading", pq.ErrIO, cfg.FileIn)
		}
		return fmt.Errorf("%w: %v", pq.ErrIO, err)
	}
	defer src.Close()

	var out io.Writer = os.Stdout
	if cfg.FileOut != "" {
		f, err := os.Create(cfg.FileOut)
		if err != nil {
			return fmt.Errorf("%w: could not open %s for writing", pq.ErrIO, cfg.FileOut)
		}
		defer func() {
			if cerr := f.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("%w: %v", pq.ErrIO, cerr)
			}
		}()
		out = f
	}

	var in io.Reader = pq.NewReader(src)
	var sum func() (uint32, error)
	if cfg.Checksum {
		in, sum = withChecksum(in)
	}
	if cfg.Progress {
		sp, serr := newSpinner()
		if serr != nil {
			pq.Warn("no progress spinner: %v", serr)
		} else {
			cfg.Opts.Progress = sp
			defer func() { sp.stop(err) }()
		}
	}

	err = run(cfg, in, out)
	if sum != nil {
		if _, cerr := io.Copy(io.Discard, in); err == nil && cerr != nil {
			err = fmt.Errorf("%w: %v", pq.ErrIO, cerr)
		}
		crc, cerr := sum()
		if err == nil && cerr != nil {
			err = cerr
		}
		if err == nil {
			fmt.Fprintf(os.Stderr, "CRC-32: %08x\n", crc)
		}
	}
	return err
}
