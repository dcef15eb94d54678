package timeharp

import (
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/pq"
)

type tttrTail struct {
	SyncRate        int32
	AverageCFDRate  int32
	StopAfter       int32
	StopReason      int32
	NumberOfRecords int32
}

// TTTRHeader follows the main header of t3r files.  ExtDevices and
// SpecHeader are only recorded by the creator layout, which has five
// reserved words instead of six.
type TTTRHeader struct {
	Layout        Layout
	TTTRGlobClock int32
	ExtDevices    int32
	Reserved      []int32
	tttrTail
	SpecHeader []int32
}

// ReadTTTRHeader reads the tttr header of the given layout
func ReadTTTRHeader(r io.Reader, layout Layout) (*TTTRHeader, error) {
	h := &TTTRHeader{Layout: layout}
	if err := pq.ReadStruct(r, "timeharp tttr header", &h.TTTRGlobClock); err != nil {
		return nil, err
	}
	h.Reserved = make([]int32, 6)
	if layout == Creator {
		if err := pq.ReadStruct(r, "timeharp tttr header", &h.ExtDevices); err != nil {
			return nil, err
		}
		h.Reserved = h.Reserved[:5]
	}
	if err := pq.ReadStruct(r, "timeharp tttr header", h.Reserved); err != nil {
		return nil, err
	}
	if err := pq.ReadStruct(r, "timeharp tttr header", &h.tttrTail); err != nil {
		return nil, err
	}
	if layout != Creator {
		return h, nil
	}
	var n int32
	if err := pq.ReadStruct(r, "timeharp special header length", &n); err != nil {
		return nil, err
	}
	if n < 0 || n > pq.MaxAlloc {
		return nil, fmt.Errorf("%w: special header of %d words", pq.ErrUnknownData, n)
	}
	h.SpecHeader = make([]int32, n)
	if err := pq.ReadStruct(r, "timeharp special header", h.SpecHeader); err != nil {
		return nil, err
	}
	return h, nil
}

// PrintHeader writes the tttr header
func (h *TTTRHeader) PrintHeader(hw *pq.HeaderWriter) {
	hw.Int("TTTRGlobClock", int64(h.TTTRGlobClock))
	if h.Layout == Creator {
		hw.Int("ExtDevices", int64(h.ExtDevices))
	}
	hw.Int32s("Reserved", h.Reserved)
	hw.Int("SyncRate", int64(h.SyncRate))
	hw.Int("AverageCFDRate", int64(h.AverageCFDRate))
	hw.Int("StopAfter", int64(h.StopAfter))
	hw.Int("StopReason", int64(h.StopReason))
	hw.Int("NumberOfRecords", int64(h.NumberOfRecords))
	if h.Layout == Creator {
		hw.Int("SpecHeaderLength", int64(len(h.SpecHeader)))
		hw.Int32s("SpecHeader", h.SpecHeader)
	}
}

// T3State returns the stream state for a board resolution in ns
func T3State(syncRate int32, boardResNs float64) *pq.TTTR {
	return &pq.TTTR{
		OverflowIncrement: T3Overflow,
		SyncRate:          syncRate,
		Resolution:        boardResNs * 1e-9,
		ResolutionPS:      int64(boardResNs*1e3 + 0.5),
	}
}

// DecodeT3 decodes one record: time tag bits 0-15, channel bits 16-27,
// route bits 28-29, valid bit 30.  The time tag counts sync pulses and
// the channel is the time bin since the sync.  An invalid record with
// channel bit 11 set is an overflow, any other invalid record a set of
// markers.
func DecodeT3(r io.Reader, tttr *pq.TTTR) (pq.Record, error) {
	raw, err := pq.ReadRecord(r)
	if err != nil {
		return pq.Record{}, err
	}
	tag := int64(raw & 0xFFFF)
	channel := (raw >> 16) & 0xFFF
	route := (raw >> 28) & 0x3
	valid := (raw>>30)&1 == 1
	if valid {
		return pq.Record{
			Kind: pq.KindT3,
			T3: pq.T3{
				Channel: route,
				Pulse:   uint64(tttr.Origin + tag),
				Time:    uint64(int64(channel) * tttr.ResolutionPS),
			},
		}, nil
	}
	if channel&0x800 != 0 {
		tttr.Overflow(1)
		return pq.Record{Kind: pq.KindOverflow}, nil
	}
	return pq.Record{
		Kind:   pq.KindMarker,
		Marker: pq.Marker{Channel: route, Bits: channel & 0x7, Pulse: uint64(tttr.Origin + tag)},
	}, nil
}
