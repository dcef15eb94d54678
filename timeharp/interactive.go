package timeharp

import (
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/pq"
)

// CurveHeader describes one histogram.  Resolution is in ns and Offset
// in ns.  The trailing pair is reserve1, reserve2 in the classic layout
// and ExtDevices, Reserved in the creator layout.
type CurveHeader struct {
	CurveIndex      int32
	TimeOfRecording int32
	BoardSerial     int32
	CFDZeroCross    int32
	CFDDiscrMin     int32
	SyncLevel       int32
	CurveOffset     int32
	RoutingChannel  int32
	SubMode         int32
	MeasMode        int32
	P1              float32
	P2              float32
	P3              float32
	RangeNo         int32
	Offset          int32
	AcquisitionTime int32
	StopAfter       int32
	StopReason      int32
	SyncRate        int32
	CFDCountRate    int32
	TDCCountRate    int32
	IntegralCount   int32
	Resolution      float32
	Trailer         [2]int32
}

// Curve is a curve header and the histogram which follows it
type Curve struct {
	CurveHeader
	Counts []uint32
}

// Curves holds every histogram of a file, in order
type Curves struct {
	Layout Layout
	Crv    []Curve
}

// ReadCurves reads n curve headers, each followed by its bins
func ReadCurves(r io.Reader, layout Layout, n, bins int) (*Curves, error) {
	if n < 0 || n > pq.MaxAlloc {
		return nil, fmt.Errorf("%w: %d curves", pq.ErrUnknownData, n)
	}
	cs := &Curves{Layout: layout, Crv: make([]Curve, n)}
	for i := range cs.Crv {
		c := &cs.Crv[i]
		if err := pq.ReadStruct(r, fmt.Sprintf("curve header %d", i), &c.CurveHeader); err != nil {
			return nil, err
		}
		counts, err := pq.ReadCounts(r, bins, fmt.Sprintf("counts of curve %d", i))
		if err != nil {
			return nil, err
		}
		c.Counts = counts
	}
	return cs, nil
}

// Curves returns the histograms in common form
func (cs *Curves) Curves() []pq.Curve {
	out := make([]pq.Curve, len(cs.Crv))
	for i, c := range cs.Crv {
		out[i] = pq.Curve{
			Offset: float64(c.Offset),
			Width:  float64(c.Resolution),
			Bins:   len(c.Counts),
			Counts: c.Counts,
		}
	}
	return out
}

// PrintHeader writes every curve header
func (cs *Curves) PrintHeader(hw *pq.HeaderWriter) {
	trailer := [2]string{"reserve1", "reserve2"}
	if cs.Layout == Creator {
		trailer = [2]string{"ExtDevices", "Reserved"}
	}
	for i, c := range cs.Crv {
		cw := hw.Indexed("Crv", i)
		cw.Int("CurveIndex", int64(c.CurveIndex))
		cw.Time("TimeOfRecording", int64(c.TimeOfRecording))
		cw.Int("BoardSerial", int64(c.BoardSerial))
		cw.Int("CFDZeroCross", int64(c.CFDZeroCross))
		cw.Int("CFDDiscrMin", int64(c.CFDDiscrMin))
		cw.Int("SyncLevel", int64(c.SyncLevel))
		cw.Int("CurveOffset", int64(c.CurveOffset))
		cw.Int("RoutingChannel", int64(c.RoutingChannel))
		cw.Int("SubMode", int64(c.SubMode))
		cw.Int("MeasMode", int64(c.MeasMode))
		cw.Float("P1", float64(c.P1))
		cw.Float("P2", float64(c.P2))
		cw.Float("P3", float64(c.P3))
		cw.Int("RangeNo", int64(c.RangeNo))
		cw.Int("Offset", int64(c.Offset))
		cw.Int("AcquisitionTime", int64(c.AcquisitionTime))
		cw.Int("StopAfter", int64(c.StopAfter))
		cw.Int("StopReason", int64(c.StopReason))
		cw.Int("SyncRate", int64(c.SyncRate))
		cw.Int("CFDCountRate", int64(c.CFDCountRate))
		cw.Int("TDCCountRate", int64(c.TDCCountRate))
		cw.Int("IntegralCount", int64(c.IntegralCount))
		cw.Float("Resolution", float64(c.Resolution))
		cw.Int(trailer[0], int64(c.Trailer[0]))
		cw.Int(trailer[1], int64(c.Trailer[1]))
	}
}
