package hydraharp

import (
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/pq"
)

type tttrFixed struct {
	SyncRate   int32
	StopAfter  int32
	StopReason int32
	ImgHdrSize int32
	NumRecords int64
}

// TTTRHeader follows the main header of ht2 and ht3 files
type TTTRHeader struct {
	tttrFixed
	ImgHdr []uint32
}

// ReadTTTRHeader reads the tttr header, including the imaging header
func ReadTTTRHeader(r io.Reader) (*TTTRHeader, error) {
	h := &TTTRHeader{}
	if err := pq.ReadStruct(r, "hydraharp tttr header", &h.tttrFixed); err != nil {
		return nil, err
	}
	if h.ImgHdrSize < 0 || h.ImgHdrSize > pq.MaxAlloc {
		return nil, fmt.Errorf("%w: imaging header of %d words", pq.ErrUnknownData, h.ImgHdrSize)
	}
	h.ImgHdr = make([]uint32, h.ImgHdrSize)
	if err := pq.ReadStruct(r, "hydraharp imaging header", h.ImgHdr); err != nil {
		return nil, err
	}
	return h, nil
}

// PrintHeader writes the tttr header
func (h *TTTRHeader) PrintHeader(hw *pq.HeaderWriter) {
	hw.Int("SyncRate", int64(h.SyncRate))
	hw.Int("StopAfter", int64(h.StopAfter))
	hw.Int("StopReason", int64(h.StopReason))
	hw.Int("ImgHdrSize", int64(h.ImgHdrSize))
	hw.Int("NumRecords", h.NumRecords)
	hw.Uint32s("ImgHdr", h.ImgHdr)
}

// T2State returns the stream state for t2 data.  Sync pulses are
// reported on the channel after the last input.
func T2State(inputs int, syncRate int32) *pq.TTTR {
	return &pq.TTTR{
		SyncChannel:  inputs,
		SyncRate:     syncRate,
		Resolution:   BaseResolution,
		ResolutionPS: 1,
	}
}

// T3State returns the stream state for t3 data with the given time bin in seconds
func T3State(inputs int, syncRate int32, resolution float64) *pq.TTTR {
	return &pq.TTTR{
		SyncChannel:       inputs,
		OverflowIncrement: T3Overflow,
		SyncRate:          syncRate,
		Resolution:        resolution,
		ResolutionPS:      int64(resolution*1e12 + 0.5),
	}
}

// T2Decoder returns the t2 decoder of a format version
func T2Decoder(v Version) pq.Decoder {
	if v == V1 {
		return DecodeT2V1
	}
	return DecodeT2V2
}

// T3Decoder returns the t3 decoder of a format version
func T3Decoder(v Version) pq.Decoder {
	if v == V1 {
		return DecodeT3V1
	}
	return DecodeT3V2
}

// DecodeT2V1 decodes a version 1.0 t2 record
func DecodeT2V1(r io.Reader, tttr *pq.TTTR) (pq.Record, error) {
	return decodeT2(r, tttr, V1)
}

// DecodeT2V2 decodes a version 2.0 t2 record
func DecodeT2V2(r io.Reader, tttr *pq.TTTR) (pq.Record, error) {
	return decodeT2(r, tttr, V2)
}

// DecodeT3V1 decodes a version 1.0 t3 record
func DecodeT3V1(r io.Reader, tttr *pq.TTTR) (pq.Record, error) {
	return decodeT3(r, tttr, V1)
}

// DecodeT3V2 decodes a version 2.0 t3 record
func DecodeT3V2(r io.Reader, tttr *pq.TTTR) (pq.Record, error) {
	return decodeT3(r, tttr, V2)
}

// t2 record: time bits 0-24, channel bits 25-30, special bit 31.
// A special record on channel 63 is an overflow, on channel 0 a sync
// pulse and on any other channel a set of markers.
func decodeT2(r io.Reader, tttr *pq.TTTR, v Version) (pq.Record, error) {
	raw, err := pq.ReadRecord(r)
	if err != nil {
		return pq.Record{}, err
	}
	tag := int64(raw & 0x1FFFFFF)
	channel := (raw >> 25) & 0x3F
	special := raw>>31 == 1
	if !special {
		return pq.Record{
			Kind: pq.KindT2,
			T2:   pq.T2{Channel: channel, Time: uint64(tttr.Origin + tag)},
		}, nil
	}
	switch channel {
	case overflowChannel:
		if v == V1 {
			tttr.Origin += T2OverflowV1
			tttr.Overflows++
		} else {
			n := tag
			if n == 0 {
				n = 1
			}
			tttr.Origin += T2OverflowV2 * n
			tttr.Overflows += n
		}
		return pq.Record{Kind: pq.KindOverflow}, nil
	case 0:
		return pq.Record{
			Kind: pq.KindT2,
			T2:   pq.T2{Channel: uint32(tttr.SyncChannel), Time: uint64(tttr.Origin + tag)},
		}, nil
	}
	return pq.Record{
		Kind:   pq.KindMarker,
		Marker: pq.Marker{Channel: channel, Bits: channel & 0xF, Time: uint64(tttr.Origin + tag)},
	}, nil
}

// t3 record: nsync bits 0-9, dtime bits 10-24, channel bits 25-30,
// special bit 31.  A special record on channel 63 is an overflow, on any
// other channel a set of markers.
func decodeT3(r io.Reader, tttr *pq.TTTR, v Version) (pq.Record, error) {
	raw, err := pq.ReadRecord(r)
	if err != nil {
		return pq.Record{}, err
	}
	nsync := int64(raw & 0x3FF)
	dtime := int64((raw >> 10) & 0x7FFF)
	channel := (raw >> 25) & 0x3F
	special := raw>>31 == 1
	if !special {
		return pq.Record{
			Kind: pq.KindT3,
			T3: pq.T3{
				Channel: channel,
				Pulse:   uint64(tttr.Origin + nsync),
				Time:    uint64(dtime * tttr.ResolutionPS),
			},
		}, nil
	}
	if channel == overflowChannel {
		n := int64(1)
		if v == V2 && nsync != 0 {
			n = nsync
		}
		tttr.Overflow(n)
		return pq.Record{Kind: pq.KindOverflow}, nil
	}
	return pq.Record{
		Kind:   pq.KindMarker,
		Marker: pq.Marker{Channel: channel, Bits: channel & 0xF, Pulse: uint64(tttr.Origin + nsync)},
	}, nil
}
