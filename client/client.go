/*Package client reads PicoQuant files through the decoder's command line
interface, either by running the picoquant program or by running the
decoder in process.

	f := client.NewFile("run42.ht3", client.ExecRunner{})
	mode, err := f.Mode(ctx)
	...
	err = f.T3(ctx, func(r pq.T3) error {
		hist[r.Channel]++
		return nil
	})

Every call starts a fresh decode of the file, except Header which is
cached after the first call.
*/
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/nasa-jpl/picoquant/header"
	"github.com/nasa-jpl/picoquant/pq"
)

// Runner runs the decoder on a file with extra command line arguments
// and returns its standard output.  Errors from the decoder are reported
// by Read or by Close.
type Runner interface {
	Run(ctx context.Context, filename string, args ...string) (io.ReadCloser, error)
}

// File is a PicoQuant file read through a Runner
type File struct {
	Name   string
	Runner Runner

	mu     sync.Mutex
	header *header.Header
}

// NewFile returns a File.  A nil runner runs the picoquant program found
// on the PATH.
func NewFile(name string, r Runner) *File {
	if r == nil {
		r = ExecRunner{}
	}
	return &File{Name: name, Runner: r}
}

// output returns everything the decoder writes for args
func (f *File) output(ctx context.Context, args ...string) ([]byte, error) {
	rc, err := f.Runner.Run(ctx, f.Name, args...)
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(rc)
	cerr := rc.Close()
	if err != nil {
		return nil, err
	}
	return b, cerr
}

// Header returns the parsed header of the file
func (f *File) Header(ctx context.Context) (*header.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.header != nil {
		return f.header, nil
	}
	b, err := f.output(ctx, "--header-only")
	if err != nil {
		return nil, err
	}
	h, err := header.Parse(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	f.header = h
	return h, nil
}

// Resolution returns the resolution in picoseconds keyed by curve.  A
// time-tagged file has a single entry at key -1.
func (f *File) Resolution(ctx context.Context) (map[int]float64, error) {
	b, err := f.output(ctx, "--resolution-only")
	if err != nil {
		return nil, err
	}
	out := map[int]float64{}
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		curve := -1
		if idx := strings.Index(line, ","); idx >= 0 {
			if curve, err = strconv.Atoi(line[:idx]); err != nil {
				return nil, fmt.Errorf("%w: bad curve in resolution %q", pq.ErrUnknownData, line)
			}
			line = line[idx+1:]
		}
		ps, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad resolution %q", pq.ErrUnknownData, line)
		}
		out[curve] = ps
	}
	return out, nil
}

// Mode returns the measurement mode of the file
func (f *File) Mode(ctx context.Context) (pq.Mode, error) {
	b, err := f.output(ctx, "--mode-only")
	if err != nil {
		return pq.ModeUnknown, err
	}
	m, err := pq.ParseMode(string(b))
	if err != nil {
		return pq.ModeUnknown, fmt.Errorf("%w: %q", pq.ErrUnknownData, b)
	}
	return m, nil
}

// Stop may be returned by a record callback to end iteration early
// without an error
var Stop = errors.New("stop iteration")

// each calls fn with the fields of every csv line of the data, skipping
// markers
func (f *File) each(ctx context.Context, args []string, fn func([]string) error) error {
	rc, err := f.Runner.Run(ctx, f.Name, args...)
	if err != nil {
		return err
	}
	r := csv.NewReader(bufio.NewReaderSize(rc, 64*1024))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rc.Close()
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return fmt.Errorf("%w: %v", pq.ErrUnknownData, err)
			}
			return err
		}
		if len(fields) > 0 && fields[0] == "marker" {
			continue
		}
		if err := fn(fields); err != nil {
			rc.Close()
			if err == Stop {
				return nil
			}
			return err
		}
	}
	return rc.Close()
}

func parseUints(fields []string, n int) ([]uint64, error) {
	if len(fields) != n {
		return nil, fmt.Errorf("%w: expected %d fields got %d", pq.ErrUnknownData, n, len(fields))
	}
	out := make([]uint64, n)
	for i, s := range fields {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pq.ErrUnknownData, err)
		}
		out[i] = v
	}
	return out, nil
}

// T2 calls fn for every t2 record.  args are passed on to the decoder,
// for example "--to-t2" for a t3 file or "-n", "1000".
func (f *File) T2(ctx context.Context, fn func(pq.T2) error, args ...string) error {
	return f.each(ctx, args, func(fields []string) error {
		v, err := parseUints(fields, 2)
		if err != nil {
			return err
		}
		return fn(pq.T2{Channel: uint32(v[0]), Time: v[1]})
	})
}

// T3 calls fn for every t3 record
func (f *File) T3(ctx context.Context, fn func(pq.T3) error, args ...string) error {
	return f.each(ctx, args, func(fields []string) error {
		v, err := parseUints(fields, 3)
		if err != nil {
			return err
		}
		return fn(pq.T3{Channel: uint32(v[0]), Pulse: v[1], Time: v[2]})
	})
}

// Bins calls fn for every histogram bin of an interactive file.  The bin
// edges are in nanoseconds.
func (f *File) Bins(ctx context.Context, fn func(pq.Bin) error, args ...string) error {
	return f.each(ctx, args, func(fields []string) error {
		if len(fields) != 4 {
			return fmt.Errorf("%w: expected 4 fields got %d", pq.ErrUnknownData, len(fields))
		}
		curve, err1 := strconv.ParseUint(fields[0], 10, 32)
		left, err2 := strconv.ParseFloat(fields[1], 64)
		right, err3 := strconv.ParseFloat(fields[2], 64)
		counts, err4 := strconv.ParseUint(fields[3], 10, 32)
		for _, err := range []error{err1, err2, err3, err4} {
			if err != nil {
				return fmt.Errorf("%w: %v", pq.ErrUnknownData, err)
			}
		}
		return fn(pq.Bin{Curve: uint32(curve), Left: left / 1e3, Right: right / 1e3, Counts: uint32(counts)})
	})
}
