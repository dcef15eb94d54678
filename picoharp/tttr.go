package picoharp

import (
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/pq"
)

type tttrFixed struct {
	ExtDevices int32
	Reserved   [2]int32
	InpRate0   int32
	InpRate1   int32
	StopAfter  int32
	StopReason int32
	NumRecords int32
	ImgHdrSize int32
}

// TTTRHeader follows the main header of pt2 and pt3 files
type TTTRHeader struct {
	tttrFixed
	ImgHdr []uint32
}

// ReadTTTRHeader reads the tttr header, including the imaging header
func ReadTTTRHeader(r io.Reader) (*TTTRHeader, error) {
	h := &TTTRHeader{}
	if err := pq.ReadStruct(r, "picoharp tttr header", &h.tttrFixed); err != nil {
		return nil, err
	}
	if h.ImgHdrSize < 0 || h.ImgHdrSize > pq.MaxAlloc {
		return nil, fmt.Errorf("%w: imaging header of %d words", pq.ErrUnknownData, h.ImgHdrSize)
	}
	h.ImgHdr = make([]uint32, h.ImgHdrSize)
	if err := pq.ReadStruct(r, "picoharp imaging header", h.ImgHdr); err != nil {
		return nil, err
	}
	return h, nil
}

// PrintHeader writes the tttr header
func (h *TTTRHeader) PrintHeader(hw *pq.HeaderWriter) {
	hw.Int("ExtDevices", int64(h.ExtDevices))
	hw.Int32s("Reserved", h.Reserved[:])
	hw.Int("InpRate0", int64(h.InpRate0))
	hw.Int("InpRate1", int64(h.InpRate1))
	hw.Int("StopAfter", int64(h.StopAfter))
	hw.Int("StopReason", int64(h.StopReason))
	hw.Int("NumRecords", int64(h.NumRecords))
	hw.Int("ImgHdrSize", int64(h.ImgHdrSize))
	hw.Uint32s("ImgHdr", h.ImgHdr)
}

// T2State returns the stream state for pt2 records
func T2State(syncRate int32) *pq.TTTR {
	return &pq.TTTR{
		OverflowIncrement: T2Overflow,
		SyncRate:          syncRate,
		Resolution:        BaseResolution,
		ResolutionPS:      int64(BaseResolution * 1e12),
	}
}

// T3State returns the stream state for pt3 records.  boardRes is the
// time bin in ns.
func T3State(syncRate int32, boardRes float64) *pq.TTTR {
	return &pq.TTTR{
		OverflowIncrement: T3Overflow,
		SyncRate:          syncRate,
		Resolution:        boardRes * 1e-9,
		ResolutionPS:      int64(boardRes*1e3 + 0.5),
	}
}

// DecodeT2 decodes one pt2 record.  Time is bits 0-27 and channel bits
// 28-31.  Channel 15 is special: the low four bits of the time hold
// marker lines, or are zero for an overflow.
func DecodeT2(r io.Reader, tttr *pq.TTTR) (pq.Record, error) {
	raw, err := pq.ReadRecord(r)
	if err != nil {
		return pq.Record{}, err
	}
	tag := int64(raw & 0x0FFFFFFF)
	channel := raw >> 28
	if channel == 0xF {
		markers := uint32(tag & 0xF)
		if markers == 0 {
			tttr.Overflow(1)
			return pq.Record{Kind: pq.KindOverflow}, nil
		}
		return pq.Record{
			Kind:   pq.KindMarker,
			Marker: pq.Marker{Channel: channel, Bits: markers, Time: uint64((tttr.Origin + tag) * tttr.ResolutionPS)},
		}, nil
	}
	return pq.Record{
		Kind: pq.KindT2,
		T2:   pq.T2{Channel: channel, Time: uint64((tttr.Origin + tag) * tttr.ResolutionPS)},
	}, nil
}

// DecodeT3 decodes one pt3 record.  nsync is bits 0-15, dtime bits
// 16-27 and channel bits 28-31.  Channel 15 with dtime zero is an
// overflow, otherwise the low bits of dtime hold marker lines.
func DecodeT3(r io.Reader, tttr *pq.TTTR) (pq.Record, error) {
	raw, err := pq.ReadRecord(r)
	if err != nil {
		return pq.Record{}, err
	}
	nsync := int64(raw & 0xFFFF)
	dtime := (raw >> 16) & 0x0FFF
	channel := raw >> 28
	if channel == 0xF {
		if dtime == 0 {
			tttr.Overflow(1)
			return pq.Record{Kind: pq.KindOverflow}, nil
		}
		return pq.Record{
			Kind:   pq.KindMarker,
			Marker: pq.Marker{Channel: channel, Bits: dtime & 0xF, Pulse: uint64(tttr.Origin + nsync)},
		}, nil
	}
	return pq.Record{
		Kind: pq.KindT3,
		T3: pq.T3{
			Channel: channel,
			Pulse:   uint64(tttr.Origin + nsync),
			Time:    uint64(int64(dtime) * tttr.ResolutionPS),
		},
	}, nil
}
