// Package hydraharp decodes files written by the HydraHarp 400, format
// versions 1.0 and 2.0: hhd histograms and ht2/ht3 time-tagged records.
//
// The two versions share a layout.  They differ in how overflow records
// are counted: a 1.0 overflow record stands for a single overflow, a 2.0
// record carries the number of overflows it stands for.
package hydraharp

import (
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/pq"
)

// Ident is the board name at the start of every HydraHarp file
const Ident = "HydraHarp"

const (
	// BaseResolution is the t2 time tag unit in seconds
	BaseResolution = 1e-12

	// T2OverflowV1 is the t2 wraparound of version 1.0 files
	T2OverflowV1 = 33552000

	// T2OverflowV2 is the t2 wraparound of version 2.0 files
	T2OverflowV2 = 33554432

	// T3Overflow is the t3 wraparound, in sync pulses
	T3Overflow = 1024

	overflowChannel = 63
	maxInputs       = 64
)

const (
	modeInteractive = 0
	modeT2          = 2
	modeT3          = 3
)

// Version is the format version of a file
type Version int

const (
	// V1 is format version 1.0
	V1 Version = 1

	// V2 is format version 2.0
	V2 Version = 2
)

// Module is the model and version of one hardware module
type Module struct {
	Model   int32
	Version int32
}

// InputChannel is the setup of one input channel
type InputChannel struct {
	ModuleIdx    int32
	CFDLevel     int32
	CFDZeroCross int32
	Offset       int32
}

type mainFixed struct {
	CreatorName          [18]byte
	CreatorVersion       [12]byte
	FileTime             [18]byte
	CRLF                 [2]byte
	Comment              [256]byte
	NumberOfCurves       int32
	BitsPerRecord        int32
	ActiveCurve          int32
	MeasurementMode      int32
	SubMode              int32
	Binning              int32
	Resolution           float64
	Offset               int32
	AcquisitionTime      int32
	StopAt               int32
	StopOnOvfl           int32
	Restart              int32
	DisplayLinLog        int32
	DisplayTimeAxisFrom  uint32
	DisplayTimeAxisTo    uint32
	DisplayCountAxisFrom uint32
	DisplayCountAxisTo   uint32
	DisplayCurve         [8]pq.DisplayCurve
	Param                [3]pq.Param
	RepeatMode           int32
	RepeatsPerCurve      int32
	RepeatTime           int32
	RepeatWaitTime       int32
	ScriptName           [20]byte
	HardwareIdent        [16]byte
	HardwarePartNo       [8]byte
	HardwareSerial       int32
	NumberOfModules      int32
	ModuleInfo           [10]Module
	BaseResolution       float64
	InputsEnabled        int64
	InputChannelsPresent int32
	RefClockSource       int32
	ExtDevices           int32
	MarkerSettings       int32
	SyncDivider          int32
	SyncCFDLevel         int32
	SyncCFDZeroCross     int32
	SyncOffset           int32
}

// MainHeader is the hardware header which follows the common header.
// Resolution and BaseResolution are in ps.
type MainHeader struct {
	mainFixed
	Version   Version
	InpChan   []InputChannel
	InputRate []int32
}

// ReadMainHeader reads the main header, the input channels and, outside
// interactive mode, the input rates
func ReadMainHeader(r io.Reader, v Version) (*MainHeader, error) {
	h := &MainHeader{Version: v}
	if err := pq.ReadStruct(r, "hydraharp main header", &h.mainFixed); err != nil {
		return nil, err
	}
	n := int(h.InputChannelsPresent)
	if n < 0 || n > maxInputs {
		return nil, fmt.Errorf("%w: %d input channels", pq.ErrUnknownData, n)
	}
	h.InpChan = make([]InputChannel, n)
	if err := pq.ReadStruct(r, "hydraharp input channels", h.InpChan); err != nil {
		return nil, err
	}
	h.InputRate = make([]int32, n)
	if h.MeasurementMode != modeInteractive {
		if err := pq.ReadStruct(r, "hydraharp input rates", h.InputRate); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *MainHeader) axis(hw *pq.HeaderWriter, key string, v uint32) {
	if h.Version == V1 {
		hw.Int(key, int64(int32(v)))
		return
	}
	hw.Uint(key, uint64(v))
}

// PrintHeader writes the main header
func (h *MainHeader) PrintHeader(hw *pq.HeaderWriter) {
	hw.Str("CreatorName", pq.CString(h.CreatorName[:]))
	hw.Str("CreatorVersion", pq.CString(h.CreatorVersion[:]))
	hw.Str("FileTime", pq.CString(h.FileTime[:]))
	hw.Str("Comment", pq.CString(h.Comment[:]))
	hw.Int("NumberOfCurves", int64(h.NumberOfCurves))
	hw.Int("BitsPerRecord", int64(h.BitsPerRecord))
	hw.Int("ActiveCurve", int64(h.ActiveCurve))
	hw.Int("MeasurementMode", int64(h.MeasurementMode))
	hw.Int("SubMode", int64(h.SubMode))
	hw.Int("Binning", int64(h.Binning))
	hw.Float("Resolution", h.Resolution)
	hw.Int("Offset", int64(h.Offset))
	hw.Int("AcquisitionTime", int64(h.AcquisitionTime))
	hw.Int("StopAt", int64(h.StopAt))
	hw.Int("StopOnOvfl", int64(h.StopOnOvfl))
	hw.Int("Restart", int64(h.Restart))
	hw.Int("DisplayLinLog", int64(h.DisplayLinLog))
	h.axis(hw, "DisplayTimeAxisFrom", h.DisplayTimeAxisFrom)
	h.axis(hw, "DisplayTimeAxisTo", h.DisplayTimeAxisTo)
	h.axis(hw, "DisplayCountAxisFrom", h.DisplayCountAxisFrom)
	h.axis(hw, "DisplayCountAxisTo", h.DisplayCountAxisTo)
	pq.PrintDisplay(hw, h.DisplayCurve[:], h.Param[:])
	hw.Int("RepeatMode", int64(h.RepeatMode))
	hw.Int("RepeatsPerCurve", int64(h.RepeatsPerCurve))
	hw.Int("RepeatTime", int64(h.RepeatTime))
	hw.Int("RepeatWaitTime", int64(h.RepeatWaitTime))
	hw.Str("ScriptName", pq.CString(h.ScriptName[:]))
	hw.Str("HardwareIdent", pq.CString(h.HardwareIdent[:]))
	hw.Str("HardwarePartNo", pq.CString(h.HardwarePartNo[:]))
	hw.Int("HardwareSerial", int64(h.HardwareSerial))
	hw.Int("NumberOfModules", int64(h.NumberOfModules))
	for i, m := range h.ModuleInfo {
		mw := hw.Indexed("ModuleInfo", i)
		mw.Int("Model", int64(m.Model))
		mw.Int("Version", int64(m.Version))
	}
	hw.Float("BaseResolution", h.BaseResolution)
	hw.Int("InputsEnabled", h.InputsEnabled)
	hw.Int("InputChannelsPresent", int64(h.InputChannelsPresent))
	hw.Int("RefClockSource", int64(h.RefClockSource))
	hw.Int("ExtDevices", int64(h.ExtDevices))
	hw.Int("MarkerSettings", int64(h.MarkerSettings))
	hw.Int("SyncDivider", int64(h.SyncDivider))
	hw.Int("SyncCFDLevel", int64(h.SyncCFDLevel))
	hw.Int("SyncCFDZeroCross", int64(h.SyncCFDZeroCross))
	hw.Int("SyncOffset", int64(h.SyncOffset))
	for i, c := range h.InpChan {
		cw := hw.Indexed("InpChan", i)
		cw.Int("ModuleIdx", int64(c.ModuleIdx))
		cw.Int("CFDLevel", int64(c.CFDLevel))
		cw.Int("CFDZeroCross", int64(c.CFDZeroCross))
		cw.Int("Offset", int64(c.Offset))
	}
	if h.MeasurementMode != modeInteractive {
		hw.Int32s("InputRate", h.InputRate)
	}
}

// ParseVersion maps a FormatVersion string to a Version
func ParseVersion(s string) (Version, error) {
	switch s {
	case "1.0":
		return V1, nil
	case "2.0":
		return V2, nil
	}
	return 0, fmt.Errorf("%w: hydraharp version %s", pq.ErrVersion, s)
}

// Open reads the headers of a HydraHarp file whose common header has
// already been consumed from r
func Open(r io.Reader, h pq.Header) (*pq.File, error) {
	v, err := ParseVersion(h.FormatVersion)
	if err != nil {
		return nil, err
	}
	mh, err := ReadMainHeader(r, v)
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
			f.TTTR = T2State(int(mh.InputChannelsPresent), th.SyncRate)
			f.Decode = T2Decoder(v)
		} else {
			f.Mode = pq.ModeT3
			f.TTTR = T3State(int(mh.InputChannelsPresent), th.SyncRate, mh.Resolution*1e-12)
			f.Decode = T3Decoder(v)
		}
		f.Resolution = f.TTTR.Resolution * 1e12
	default:
		return nil, fmt.Errorf("%w: hydraharp measurement mode %d", pq.ErrMode, mh.MeasurementMode)
	}
	pq.Debug("hydraharp %s file with %d inputs", f.Mode, mh.InputChannelsPresent)
	return f, nil
}
