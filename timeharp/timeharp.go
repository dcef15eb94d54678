// Package timeharp decodes files written by the TimeHarp 200: thd
// histograms in format versions 2.0, 3.0, 5.0 and 6.0, and t3r
// time-tagged records in versions 3.0 and 6.0.
//
// Versions 2.0 and 3.0 use the classic layout which opens with the
// hardware version.  Versions 5.0 and 6.0 open with the creator name and
// version, and carry the hardware identity on each board.
package timeharp

import (
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/pq"
)

// Ident is the board name at the start of every TimeHarp file
const Ident = "TimeHarp 200"

// T3Overflow is the number of sync pulses between overflows
const T3Overflow = 65536

const (
	modeInteractive = 0
	modeContinuous  = 1
	modeTTTR        = 2

	maxBoards = 16
)

// Layout is the header layout of a format version
type Layout int

const (
	// Classic is the layout of versions 2.0 and 3.0
	Classic Layout = iota

	// Creator is the layout of versions 5.0 and 6.0
	Creator
)

// Format describes one supported format version
type Format struct {
	Version string
	Layout  Layout
	TTTR    bool
}

// Formats lists the supported format versions
var Formats = []Format{
	{"2.0", Classic, false},
	{"3.0", Classic, true},
	{"5.0", Creator, false},
	{"6.0", Creator, true},
}

// LookupFormat returns the format of a FormatVersion string
func LookupFormat(version string) (Format, error) {
	for _, f := range Formats {
		if f.Version == version {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: timeharp version %s", pq.ErrVersion, version)
}

type classicPrefix struct {
	HardwareVersion [6]byte
}

type creatorPrefix struct {
	CreatorName    [18]byte
	CreatorVersion [12]byte
}

type mainFixed struct {
	FileTime             [18]byte
	CRLF                 [2]byte
	Comment              [256]byte
	NumberOfChannels     int32
	NumberOfCurves       int32
	BitsPerChannel       int32
	RoutingChannels      int32
	NumberOfBoards       int32
	ActiveCurve          int32
	MeasurementMode      int32
	SubMode              int32
	RangeNo              int32
	Offset               int32
	AcquisitionTime      int32
	StopAt               int32
	StopOnOvfl           int32
	Restart              int32
	DisplayLinLog        int32
	DisplayTimeAxisFrom  int32
	DisplayTimeAxisTo    int32
	DisplayCountAxisFrom int32
	DisplayCountAxisTo   int32
	DisplayCurve         [8]pq.DisplayCurve
	Param                [3]pq.Param
	RepeatMode           int32
	RepeatsPerCurve      int32
	RepeatTime           int32
	RepeatWaitTime       int32
	ScriptName           [20]byte
}

type boardIdent struct {
	HardwareIdent   [16]byte
	HardwareVersion [8]byte
}

type boardFixed struct {
	BoardSerial         int32
	CFDZeroCross        int32
	CFDDiscriminatorMin int32
	SYNCLevel           int32
	CurveOffset         int32
	Resolution          float32
}

// Board is the setup of one acquisition board.  Resolution is in ns.
// The hardware identity is only recorded by the creator layout.
type Board struct {
	boardIdent
	boardFixed
}

// MainHeader is the hardware header which follows the common header
type MainHeader struct {
	Layout Layout
	classicPrefix
	creatorPrefix
	mainFixed
	Brd []Board
}

// ReadMainHeader reads the main header and boards of the given layout
func ReadMainHeader(r io.Reader, layout Layout) (*MainHeader, error) {
	h := &MainHeader{Layout: layout}
	var prefix interface{} = &h.classicPrefix
	if layout == Creator {
		prefix = &h.creatorPrefix
	}
	if err := pq.ReadStruct(r, "timeharp main header", prefix); err != nil {
		return nil, err
	}
	if err := pq.ReadStruct(r, "timeharp main header", &h.mainFixed); err != nil {
		return nil, err
	}
	if h.NumberOfBoards < 0 || h.NumberOfBoards > maxBoards {
		return nil, fmt.Errorf("%w: %d boards", pq.ErrUnknownData, h.NumberOfBoards)
	}
	h.Brd = make([]Board, h.NumberOfBoards)
	for i := range h.Brd {
		what := fmt.Sprintf("board %d", i)
		if layout == Creator {
			if err := pq.ReadStruct(r, what, &h.Brd[i].boardIdent); err != nil {
				return nil, err
			}
		}
		if err := pq.ReadStruct(r, what, &h.Brd[i].boardFixed); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// PrintHeader writes the main header and boards
func (h *MainHeader) PrintHeader(hw *pq.HeaderWriter) {
	if h.Layout == Creator {
		hw.Str("CreatorName", pq.CString(h.CreatorName[:]))
		hw.Str("CreatorVersion", pq.CString(h.CreatorVersion[:]))
	} else {
		hw.Str("HardwareVersion", pq.CString(h.HardwareVersion[:]))
	}
	hw.Str("FileTime", pq.CString(h.FileTime[:]))
	hw.Str("Comment", pq.CString(h.Comment[:]))
	hw.Int("NumberOfChannels", int64(h.NumberOfChannels))
	hw.Int("NumberOfCurves", int64(h.NumberOfCurves))
	hw.Int("BitsPerChannel", int64(h.BitsPerChannel))
	hw.Int("RoutingChannels", int64(h.RoutingChannels))
	hw.Int("NumberOfBoards", int64(h.NumberOfBoards))
	hw.Int("ActiveCurve", int64(h.ActiveCurve))
	hw.Int("MeasurementMode", int64(h.MeasurementMode))
	if h.Layout == Creator {
		hw.Int("SubMode", int64(h.SubMode))
	} else {
		hw.Int("HistogrammingMode", int64(h.SubMode))
	}
	hw.Int("RangeNo", int64(h.RangeNo))
	hw.Int("Offset", int64(h.Offset))
	hw.Int("AcquisitionTime", int64(h.AcquisitionTime))
	hw.Int("StopAt", int64(h.StopAt))
	hw.Int("StopOnOvfl", int64(h.StopOnOvfl))
	hw.Int("Restart", int64(h.Restart))
	hw.Int("DisplayLinLog", int64(h.DisplayLinLog))
	hw.Int("DisplayTimeAxisFrom", int64(h.DisplayTimeAxisFrom))
	hw.Int("DisplayTimeAxisTo", int64(h.DisplayTimeAxisTo))
	hw.Int("DisplayCountAxisFrom", int64(h.DisplayCountAxisFrom))
	hw.Int("DisplayCountAxisTo", int64(h.DisplayCountAxisTo))
	pq.PrintDisplay(hw, h.DisplayCurve[:], h.Param[:])
	hw.Int("RepeatMode", int64(h.RepeatMode))
	hw.Int("RepeatsPerCurve", int64(h.RepeatsPerCurve))
	hw.Int("RepeatTime", int64(h.RepeatTime))
	hw.Int("RepeatWaitTime", int64(h.RepeatWaitTime))
	hw.Str("ScriptName", pq.CString(h.ScriptName[:]))
	for i, b := range h.Brd {
		bw := hw.Indexed("Brd", i)
		if h.Layout == Creator {
			bw.Str("HardwareIdent", pq.CString(b.HardwareIdent[:]))
			bw.Str("HardwareVersion", pq.CString(b.HardwareVersion[:]))
		}
		bw.Int("BoardSerial", int64(b.BoardSerial))
		bw.Int("CFDZeroCross", int64(b.CFDZeroCross))
		bw.Int("CFDDiscriminatorMin", int64(b.CFDDiscriminatorMin))
		bw.Int("SYNCLevel", int64(b.SYNCLevel))
		bw.Int("CurveOffset", int64(b.CurveOffset))
		bw.Float("Resolution", float64(b.Resolution))
	}
}

func (h *MainHeader) boardResolution() float64 {
	if len(h.Brd) == 0 {
		return 0
	}
	return float64(h.Brd[0].Resolution)
}

// Open reads the headers of a TimeHarp file whose common header has
// already been consumed from r.  Histograms are read with the headers
// because each one follows its own curve header.
func Open(r io.Reader, h pq.Header) (*pq.File, error) {
	format, err := LookupFormat(h.FormatVersion)
	if err != nil {
		return nil, err
	}
	mh, err := ReadMainHeader(r, format.Layout)
	if err != nil {
		return nil, err
	}
	f := &pq.File{Header: h, Data: r, NoToT2: true}
	switch mh.MeasurementMode {
	case modeInteractive:
		curves, err := ReadCurves(r, format.Layout, int(mh.NumberOfCurves), int(mh.NumberOfChannels))
		if err != nil {
			return nil, err
		}
		f.Mode = pq.ModeInteractive
		f.Headers = pq.Headers{mh, curves}
		f.Curves = curves.Curves()
	case modeTTTR:
		if !format.TTTR {
			return nil, fmt.Errorf("%w: timeharp version %s has no tttr mode", pq.ErrMode, format.Version)
		}
		th, err := ReadTTTRHeader(r, format.Layout)
		if err != nil {
			return nil, err
		}
		f.Mode = pq.ModeT3
		f.Headers = pq.Headers{mh, th}
		f.TTTR = T3State(th.SyncRate, mh.boardResolution())
		f.Decode = DecodeT3
		f.Resolution = f.TTTR.Resolution * 1e12
	case modeContinuous:
		return nil, fmt.Errorf("%w: timeharp continuous mode", pq.ErrMode)
	default:
		return nil, fmt.Errorf("%w: timeharp measurement mode %d", pq.ErrMode, mh.MeasurementMode)
	}
	pq.Debug("timeharp %s file, version %s", f.Mode, format.Version)
	return f, nil
}
