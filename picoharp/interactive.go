package picoharp

import (
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/pq"
)

// CurveHeader describes one histogram of an interactive (phd) file.
// Resolution is in ns and Offset in ns.
type CurveHeader struct {
	CurveIndex        int32
	TimeOfRecording   int32
	HardwareIdent     [16]byte
	HardwareVersion   [8]byte
	HardwareSerial    int32
	SyncDivider       int32
	CFDZeroCross0     int32
	CFDLevel0         int32
	CFDZeroCross1     int32
	CFDLevel1         int32
	Offset            int32
	RoutingChannel    int32
	ExtDevices        int32
	MeasMode          int32
	SubMode           int32
	P1                float32
	P2                float32
	P3                float32
	RangeNo           int32
	Resolution        float32
	Channels          int32
	AcquisitionTime   int32
	StopAfter         int32
	StopReason        int32
	InpRate0          int32
	InpRate1          int32
	HistCountRate     int32
	IntegralCount     int64
	Reserved          int32
	DataOffset        int32
	RouterModelCode   int32
	RouterEnabled     int32
	RtChInputType     int32
	RtChInputLevel    int32
	RtChInputEdge     int32
	RtChCFDPresent    int32
	RtChCFDLevel      int32
	RtChCFDZeroCross  int32
}

// CurveHeaders holds every curve header of a file, in order
type CurveHeaders []CurveHeader

// ReadCurveHeaders reads n curve headers.  The histograms follow them.
func ReadCurveHeaders(r io.Reader, n int) (CurveHeaders, error) {
	if n < 0 || n > pq.MaxAlloc {
		return nil, fmt.Errorf("%w: %d curves", pq.ErrUnknownData, n)
	}
	curves := make(CurveHeaders, n)
	if err := pq.ReadStruct(r, "picoharp curve headers", curves); err != nil {
		return nil, err
	}
	return curves, nil
}

// Curves returns the bin layout of each histogram
func (cs CurveHeaders) Curves() []pq.Curve {
	out := make([]pq.Curve, len(cs))
	for i, c := range cs {
		out[i] = pq.Curve{
			Offset: float64(c.Offset),
			Width:  float64(c.Resolution),
			Bins:   int(c.Channels),
		}
	}
	return out
}

// PrintHeader writes every curve header
func (cs CurveHeaders) PrintHeader(hw *pq.HeaderWriter) {
	for i, c := range cs {
		cw := hw.Indexed("Crv", i)
		cw.Int("CurveIndex", int64(c.CurveIndex))
		cw.Time("TimeOfRecording", int64(c.TimeOfRecording))
		cw.Str("HardwareIdent", pq.CString(c.HardwareIdent[:]))
		cw.Str("HardwareVersion", pq.CString(c.HardwareVersion[:]))
		cw.Int("HardwareSerial", int64(c.HardwareSerial))
		cw.Int("SyncDivider", int64(c.SyncDivider))
		cw.Int("CFDZeroCross0", int64(c.CFDZeroCross0))
		cw.Int("CFDLevel0", int64(c.CFDLevel0))
		cw.Int("CFDZeroCross1", int64(c.CFDZeroCross1))
		cw.Int("CFDLevel1", int64(c.CFDLevel1))
		cw.Int("Offset", int64(c.Offset))
		cw.Int("RoutingChannel", int64(c.RoutingChannel))
		cw.Int("ExtDevices", int64(c.ExtDevices))
		cw.Int("MeasMode", int64(c.MeasMode))
		cw.Int("SubMode", int64(c.SubMode))
		cw.Float("P1", float64(c.P1))
		cw.Float("P2", float64(c.P2))
		cw.Float("P3", float64(c.P3))
		cw.Int("RangeNo", int64(c.RangeNo))
		cw.Float("Resolution", float64(c.Resolution))
		cw.Int("Channels", int64(c.Channels))
		cw.Int("AcquisitionTime", int64(c.AcquisitionTime))
		cw.Int("StopAfter", int64(c.StopAfter))
		cw.Int("StopReason", int64(c.StopReason))
		cw.Int("InpRate0", int64(c.InpRate0))
		cw.Int("InpRate1", int64(c.InpRate1))
		cw.Int("HistCountRate", int64(c.HistCountRate))
		cw.Int("IntegralCount", c.IntegralCount)
		cw.Int("Reserved", int64(c.Reserved))
		cw.Int("DataOffset", int64(c.DataOffset))
		cw.Int("RouterModelCode", int64(c.RouterModelCode))
		cw.Int("RouterEnabled", int64(c.RouterEnabled))
		cw.Int("RtCh_InputType", int64(c.RtChInputType))
		cw.Int("RtCh_InputLevel", int64(c.RtChInputLevel))
		cw.Int("RtCh_InputEdge", int64(c.RtChInputEdge))
		cw.Int("RtCh_CFDPresent", int64(c.RtChCFDPresent))
		cw.Int("RtCh_CFDLevel", int64(c.RtChCFDLevel))
		cw.Int("RtCh_CFDZeroCross", int64(c.RtChCFDZeroCross))
	}
}
