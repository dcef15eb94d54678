// Package pq contains the types shared by every PicoQuant file decoder:
// the common file header, decoded records, the TTTR overflow state,
// output sinks and the record streaming loops.
package pq

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrOptions is generated when the options cannot be satisfied for a file
	ErrOptions = errors.New("invalid options")

	// ErrIO is generated when a read or write fails part way through a structure
	ErrIO = errors.New("i/o error")

	// ErrVersion is generated when a board is known but its format version is not
	ErrVersion = errors.New("version not supported")

	// ErrEOF is generated when the input ends before a header is complete
	ErrEOF = errors.New("unexpected end of file")

	// ErrUnknownData is generated when a record or tag cannot be interpreted
	ErrUnknownData = errors.New("unknown data")

	// ErrMode is generated when a file was recorded in a mode that is not supported
	ErrMode = errors.New("mode not supported")

	// ErrUnknownBoard is generated when the Ident field does not name a known board
	ErrUnknownBoard = errors.New("could not identify board")

	// ErrMemory is generated when a header asks for an unreasonable allocation
	ErrMemory = errors.New("allocation too large")

	// ErrNotImplemented is generated for requests a format cannot answer
	ErrNotImplemented = errors.New("not implemented")
)

// Code maps an error to the numeric status the command line tool exits with
func Code(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrOptions):
		return -1
	case errors.Is(err, ErrIO):
		return -2
	case errors.Is(err, ErrVersion):
		return -3
	case errors.Is(err, ErrEOF):
		return -4
	case errors.Is(err, ErrUnknownData), errors.Is(err, ErrUnknownBoard):
		return -5
	case errors.Is(err, ErrMode), errors.Is(err, ErrNotImplemented):
		return -6
	case errors.Is(err, ErrMemory):
		return -7
	default:
		return -2
	}
}

// FromCode is the inverse of Code.  Exit statuses are taken modulo 256,
// so both -1 and 255 map to ErrOptions.  Unknown codes return nil.
func FromCode(code int) error {
	switch int8(code) {
	case -1:
		return ErrOptions
	case -2:
		return ErrIO
	case -3:
		return ErrVersion
	case -4:
		return ErrEOF
	case -5:
		return ErrUnknownData
	case -6:
		return ErrMode
	case -7:
		return ErrMemory
	}
	return nil
}

const (
	identLen   = 16
	versionLen = 6
)

// Header is the common header at the start of every classic PicoQuant file
type Header struct {
	Ident         string
	FormatVersion string
}

// ReadHeader reads the common header from r
func ReadHeader(r io.Reader) (Header, error) {
	var raw struct {
		Ident         [identLen]byte
		FormatVersion [versionLen]byte
	}
	if err := ReadStruct(r, "file header", &raw); err != nil {
		return Header{}, err
	}
	return Header{
		Ident:         CString(raw.Ident[:]),
		FormatVersion: CString(raw.FormatVersion[:]),
	}, nil
}

// Print writes the header in Key = value form
func (h Header) Print(hw *HeaderWriter) {
	hw.Str("Ident", h.Ident)
	hw.Str("FormatVersion", h.FormatVersion)
}

// CString returns the contents of b up to the first NUL, with
// trailing whitespace removed
func CString(b []byte) string {
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		b = b[:idx]
	}
	return strings.TrimRight(string(b), " \r\n")
}

// ReadStruct reads the packed little endian structure v from r.
// what names the structure in error messages.
func ReadStruct(r io.Reader, what string, v interface{}) error {
	err := binary.Read(r, binary.LittleEndian, v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: reading %s", ErrEOF, what)
	default:
		return fmt.Errorf("%w: reading %s: %v", ErrIO, what, err)
	}
}

// Mode is the acquisition mode a file was recorded in
type Mode int

const (
	// ModeUnknown is the zero value for a file that has not been inspected
	ModeUnknown Mode = -1

	// ModeInteractive holds histograms, one per curve
	ModeInteractive Mode = 0

	// ModeContinuous holds blocks of histograms
	ModeContinuous Mode = 1

	// ModeT2 holds absolute time tags
	ModeT2 Mode = 2

	// ModeT3 holds time tags relative to a sync pulse
	ModeT3 Mode = 3

	// ModeVector is accepted by ParseMode for tools that bin t2 or t3 vectors
	ModeVector Mode = 4
)

func (m Mode) String() string {
	switch m {
	case ModeInteractive:
		return "interactive"
	case ModeContinuous:
		return "continuous"
	case ModeT2:
		return "t2"
	case ModeT3:
		return "t3"
	case ModeVector:
		return "vector"
	default:
		return "unknown"
	}
}

// ParseMode converts the name of a mode to a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interactive", "hist":
		return ModeInteractive, nil
	case "t2":
		return ModeT2, nil
	case "t3":
		return ModeT3, nil
	case "vector":
		return ModeVector, nil
	}
	return ModeUnknown, fmt.Errorf("%w: mode not recognized: %s", ErrOptions, s)
}
