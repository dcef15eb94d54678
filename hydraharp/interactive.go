package hydraharp

import (
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/pq"
)

// CurveHeader describes one histogram of an interactive (hhd) file.
// Resolution is in ps and Offset in ns.
type CurveHeader struct {
	CurveIndex      int32
	TimeOfRecording int32
	HardwareIdent   [16]byte
	HardwareVersion [8]byte
	HardwareSerial  int32
	NoOfModules     int32
	Module          [10]Module
	BaseResolution  float64
	InputsEnabled   int64
	InpChanPresent  int32
	RefClockSource  int32
	ExtDevices      int32
	MarkerSettings  int32
	SyncDivider     int32
	SyncCFDLevel    int32
	SyncCFDZero     int32
	SyncOffset      int32
	InpModuleIdx    int32
	InpCFDLevel     int32
	InpCFDZeroCross int32
	InpOffset       int32
	InpChannel      int32
	MeasMode        int32
	SubMode         int32
	Binning         int32
	Resolution      float64
	Offset          int32
	AcquisitionTime int32
	StopAfter       int32
	StopReason      int32
	P1              float32
	P2              float32
	P3              float32
	SyncRate        int32
	InputRate       int32
	HistCountRate   int32
	IntegralCount   int64
	HistogramBins   int32
	DataOffset      int32
}

// CurveHeaders holds every curve header of a file, in order
type CurveHeaders []CurveHeader

// ReadCurveHeaders reads n curve headers.  The histograms follow them.
func ReadCurveHeaders(r io.Reader, n int) (CurveHeaders, error) {
	if n < 0 || n > pq.MaxAlloc {
		return nil, fmt.Errorf("%w: %d curves", pq.ErrUnknownData, n)
	}
	curves := make(CurveHeaders, n)
	if err := pq.ReadStruct(r, "hydraharp curve headers", curves); err != nil {
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
			Width:  c.Resolution * 1e-3,
			Bins:   int(c.HistogramBins),
		}
	}
	return out
}

// PrintHeader writes every curve header
func (cs CurveHeaders) PrintHeader(hw *pq.HeaderWriter) {
	for i, c := range cs {
		cw := hw.Indexed("Curve", i)
		cw.Int("CurveIndex", int64(c.CurveIndex))
		cw.Time("TimeOfRecording", int64(c.TimeOfRecording))
		cw.Str("HardwareIdent", pq.CString(c.HardwareIdent[:]))
		cw.Str("HardwareVersion", pq.CString(c.HardwareVersion[:]))
		cw.Int("HardwareSerial", int64(c.HardwareSerial))
		cw.Int("NoOfModules", int64(c.NoOfModules))
		for j, m := range c.Module {
			mw := cw.Indexed("Module", j)
			mw.Int("Model", int64(m.Model))
			mw.Int("Version", int64(m.Version))
		}
		cw.Float("BaseResolution", c.BaseResolution)
		cw.Int("InputsEnabled", c.InputsEnabled)
		cw.Int("InpChanPresent", int64(c.InpChanPresent))
		cw.Int("RefClockSource", int64(c.RefClockSource))
		cw.Int("ExtDevices", int64(c.ExtDevices))
		cw.Int("MarkerSettings", int64(c.MarkerSettings))
		cw.Int("SyncDivider", int64(c.SyncDivider))
		cw.Int("SyncCFDLevel", int64(c.SyncCFDLevel))
		cw.Int("SyncCFDZero", int64(c.SyncCFDZero))
		cw.Int("SyncOffset", int64(c.SyncOffset))
		cw.Int("InpModuleIdx", int64(c.InpModuleIdx))
		cw.Int("InpCFDLevel", int64(c.InpCFDLevel))
		cw.Int("InpCFDZeroCross", int64(c.InpCFDZeroCross))
		cw.Int("InpOffset", int64(c.InpOffset))
		cw.Int("InpChannel", int64(c.InpChannel))
		cw.Int("MeasMode", int64(c.MeasMode))
		cw.Int("SubMode", int64(c.SubMode))
		cw.Int("Binning", int64(c.Binning))
		cw.Float("Resolution", c.Resolution)
		cw.Int("Offset", int64(c.Offset))
		cw.Int("AcquisitionTime", int64(c.AcquisitionTime))
		cw.Int("StopAfter", int64(c.StopAfter))
		cw.Int("StopReason", int64(c.StopReason))
		cw.Float("P1", float64(c.P1))
		cw.Float("P2", float64(c.P2))
		cw.Float("P3", float64(c.P3))
		cw.Int("SyncRate", int64(c.SyncRate))
		cw.Int("InputRate", int64(c.InputRate))
		cw.Int("HistCountRate", int64(c.HistCountRate))
		cw.Int("IntegralCount", c.IntegralCount)
		cw.Int("HistogramBins", int64(c.HistogramBins))
		cw.Int("DataOffset", int64(c.DataOffset))
	}
}
