// Package picoharp decodes files written by the PicoHarp 300, format
// version 2.0: phd histograms and pt2/pt3 time-tagged records.
package picoharp

import (
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/pq"
)

// Ident is the board name at the start of every PicoHarp file
const Ident = "PicoHarp 300"

const (
	// BaseResolution is the t2 time tag unit in seconds
	BaseResolution = 4e-12

	// T2Overflow is the number of base units between t2 overflows
	T2Overflow = 210698240

	// T3Overflow is the number of sync pulses between t3 overflows
	T3Overflow = 65536

	routingChannels = 4
)

// measurement modes recorded in MeasurementMode
const (
	modeInteractive = 0
	modeT2          = 2
	modeT3          = 3
)

// RouterChannel is the setup of one input of the PHR router
type RouterChannel struct {
	InputType  int32
	InputLevel int32
	InputEdge  int32
	CFDPresent int32
	CFDLevel   int32
	CFDZCross  int32
}

type boardFixed struct {
	HardwareIdent   [16]byte
	HardwareVersion [8]byte
	HardwareSerial  int32
	SyncDivider     int32
	CFDZeroCross0   int32
	CFDLevel0       int32
	CFDZeroCross1   int32
	CFDLevel1       int32
	Resolution      float32
	RouterModelCode int32
	RouterEnabled   int32
}

// Board is the setup of one acquisition board.  Resolution is in ns.
type Board struct {
	boardFixed
	RtCh []RouterChannel
}

type mainFixed struct {
	CreatorName          [18]byte
	CreatorVersion       [12]byte
	FileTime             [18]byte
	CRLF                 [2]byte
	Comment              [256]byte
	NumberOfCurves       int32
	BitsPerRecord        int32
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

// MainHeader is the hardware header which follows the common header
type MainHeader struct {
	mainFixed
	Brd []Board
}

// ReadMainHeader reads the main header and the board headers
func ReadMainHeader(r io.Reader) (*MainHeader, error) {
	h := &MainHeader{}
	if err := pq.ReadStruct(r, "picoharp main header", &h.mainFixed); err != nil {
		return nil, err
	}
	// the router channel count in the file is unreliable, the PHR 800 always has four
	h.RoutingChannels = routingChannels
	if h.NumberOfBoards < 0 || h.NumberOfBoards > 16 {
		return nil, fmt.Errorf("%w: %d boards", pq.ErrUnknownData, h.NumberOfBoards)
	}
	h.Brd = make([]Board, h.NumberOfBoards)
	for i := range h.Brd {
		b := &h.Brd[i]
		if err := pq.ReadStruct(r, fmt.Sprintf("board %d", i), &b.boardFixed); err != nil {
			return nil, err
		}
		b.RtCh = make([]RouterChannel, h.RoutingChannels)
		if err := pq.ReadStruct(r, fmt.Sprintf("router channels of board %d", i), b.RtCh); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// PrintHeader writes the main header and boards
func (h *MainHeader) PrintHeader(hw *pq.HeaderWriter) {
	hw.Str("CreatorName", pq.CString(h.CreatorName[:]))
	hw.Str("CreatorVersion", pq.CString(h.CreatorVersion[:]))
	hw.Str("FileTime", pq.CString(h.FileTime[:]))
	hw.Str("Comment", pq.CString(h.Comment[:]))
	hw.Int("NumberOfCurves", int64(h.NumberOfCurves))
	hw.Int("BitsPerRecord", int64(h.BitsPerRecord))
	hw.Int("RoutingChannels", int64(h.RoutingChannels))
	hw.Int("NumberOfBoards", int64(h.NumberOfBoards))
	hw.Int("ActiveCurve", int64(h.ActiveCurve))
	hw.Int("MeasurementMode", int64(h.MeasurementMode))
	hw.Int("SubMode", int64(h.SubMode))
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
		bw.Str("HardwareIdent", pq.CString(b.HardwareIdent[:]))
		bw.Str("HardwareVersion", pq.CString(b.HardwareVersion[:]))
		bw.Int("HardwareSerial", int64(b.HardwareSerial))
		bw.Int("SyncDivider", int64(b.SyncDivider))
		bw.Int("CFDZeroCross0", int64(b.CFDZeroCross0))
		bw.Int("CFDLevel0", int64(b.CFDLevel0))
		bw.Int("CFDZeroCross1", int64(b.CFDZeroCross1))
		bw.Int("CFDLevel1", int64(b.CFDLevel1))
		bw.Float("Resolution", float64(b.Resolution))
		bw.Int("RouterModelCode", int64(b.RouterModelCode))
		bw.Int("RouterEnabled", int64(b.RouterEnabled))
		for j, ch := range b.RtCh {
			cw := bw.Indexed("RtCh", j)
			cw.Int("InputType", int64(ch.InputType))
			cw.Int("InputLevel", int64(ch.InputLevel))
			cw.Int("InputEdge", int64(ch.InputEdge))
			cw.Int("CFDPresent", int64(ch.CFDPresent))
			cw.Int("CFDLevel", int64(ch.CFDLevel))
			cw.Int("CFDZCross", int64(ch.CFDZCross))
		}
	}
}

// boardResolution is the t3 time bin of the first board, in ns
func (h *MainHeader) boardResolution() float64 {
	if len(h.Brd) == 0 {
		return 0
	}
	return float64(h.Brd[0].Resolution)
}

// Open reads the headers of a PicoHarp file whose common header has
// already been consumed from r
func Open(r io.Reader, h pq.Header) (*pq.File, error) {
	if h.FormatVersion != "2.0" {
		return nil, fmt.Errorf("%w: picoharp version %s", pq.ErrVersion, h.FormatVersion)
	}
	mh, err := ReadMainHeader(r)
	if err != nil {
		return nil, err
	}
	f := &pq.File{Header: h, Data: r}
	switch mh.MeasurementMode {
	case modeInteractive:
		curves, err := ReadCurveHeaders(r, int(mh.NumberOfCurves))
		if err != nil {
			return nil, err
		}
		f.Mode = pq.ModeInteractive
		f.Headers = pq.Headers{mh, curves}
		f.Curves = curves.Curves()
	case modeT2, modeT3:
		th, err := ReadTTTRHeader(r)
		if err != nil {
			return nil, err
		}
		f.Headers = pq.Headers{mh, th}
		if mh.MeasurementMode == modeT2 {
			f.Mode = pq.ModeT2
			f.TTTR = T2State(th.InpRate0)
			f.Decode = DecodeT2
		} else {
			f.Mode = pq.ModeT3
			f.TTTR = T3State(th.InpRate0, mh.boardResolution())
			f.Decode = DecodeT3
		}
		f.Resolution = f.TTTR.Resolution * 1e12
	default:
		return nil, fmt.Errorf("%w: picoharp measurement mode %d", pq.ErrMode, mh.MeasurementMode)
	}
	pq.Debug("picoharp %s file with %d boards", f.Mode, mh.NumberOfBoards)
	return f, nil
}
