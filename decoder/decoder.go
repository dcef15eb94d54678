// Package decoder identifies PicoQuant files and dispatches them to the
// decoder for their board.
package decoder

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/snksoft/crc"

	"github.com/nasa-jpl/picoquant/hydraharp"
	"github.com/nasa-jpl/picoquant/picoharp"
	"github.com/nasa-jpl/picoquant/pq"
	"github.com/nasa-jpl/picoquant/ptu"
	"github.com/nasa-jpl/picoquant/timeharp"
)

// Opener reads the board headers which follow the common header
type Opener func(r io.Reader, h pq.Header) (*pq.File, error)

// Boards maps the Ident of the common header to the board's Opener
var Boards = map[string]Opener{
	picoharp.Ident:  picoharp.Open,
	hydraharp.Ident: hydraharp.Open,
	timeharp.Ident:  timeharp.Open,
}

var crcTable = crc.NewTable(crc.CRC32)

// Idents lists the known boards, sorted
func Idents() []string {
	out := make([]string, 0, len(Boards)+1)
	for k := range Boards {
		out = append(out, k)
	}
	out = append(out, ptu.Ident)
	sort.Strings(out)
	return out
}

func buffered(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return pq.NewReader(r)
}

func isPTU(br *bufio.Reader) bool {
	b, err := br.Peek(len(ptu.Magic))
	return err == nil && ptu.IsPTU(b)
}

// Identify reads the common or ptu header of r
func Identify(r io.Reader) (pq.Header, error) {
	br := buffered(r)
	if isPTU(br) {
		return ptu.ReadHeader(br)
	}
	return pq.ReadHeader(br)
}

// Open reads every header of r and returns the file, positioned at its data
func Open(r io.Reader) (*pq.File, error) {
	br := buffered(r)
	if isPTU(br) {
		h, err := ptu.ReadHeader(br)
		if err != nil {
			return nil, err
		}
		return ptu.Open(br, h)
	}
	h, err := pq.ReadHeader(br)
	if err != nil {
		return nil, err
	}
	pq.Debug("Ident: %s, FormatVersion: %s", h.Ident, h.FormatVersion)
	open, ok := Boards[h.Ident]
	if !ok {
		return nil, fmt.Errorf("%w: board type not recognized: %q", pq.ErrUnknownBoard, h.Ident)
	}
	return open(br, h)
}

// Decode reads a PicoQuant file from r and writes what opts asks for to w
func Decode(r io.Reader, w io.Writer, opts pq.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	f, err := Open(r)
	if err != nil {
		return err
	}
	return pq.Run(f, w, opts)
}

// Histogram returns the header and histograms of an interactive file
func Histogram(r io.Reader) (pq.Header, []pq.Curve, error) {
	f, err := Open(r)
	if err != nil {
		return pq.Header{}, nil, err
	}
	curves, err := f.LoadCurves()
	return f.Header, curves, err
}

// Checksum returns the CRC-32 of everything left in r
func Checksum(r io.Reader) (uint32, error) {
	sum := crcTable.InitCrc()
	buf := make([]byte, 1<<16)
	for {
		n, err := r.Read(buf)
		sum = crcTable.UpdateCrc(sum, buf[:n])
		if err == io.EOF {
			return crcTable.CRC32(sum), nil
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", pq.ErrIO, err)
		}
	}
}
