// Package ptu decodes PicoQuant unified time-tagged files (ptu).  A ptu
// file opens with a magic string and a version, followed by a list of
// typed tags and the raw records of one of the supported boards.
package ptu

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nasa-jpl/picoquant/hydraharp"
	"github.com/nasa-jpl/picoquant/picoharp"
	"github.com/nasa-jpl/picoquant/pq"
)

// Magic opens every ptu file
var Magic = []byte("PQTTTR\x00\x00")

// Ident is reported as the board name of ptu files
const Ident = "PQTTTR"

// tags read for decoding
const (
	TagRecordType    = "TTResultFormat_TTTRRecType"
	TagInputChannels = "HW_InpChannels"
	TagSyncRate      = "TTResult_SyncRate"
	TagStopAfter     = "TTResult_StopAfter"
	TagNumRecords    = "TTResult_NumberOfRecords"
	TagResolution    = "MeasDesc_Resolution"
	TagMeasMode      = "Measurement_Mode"
)

// RecordType identifies the board and mode of the records
type RecordType uint32

// record types
const (
	PicoHarpT3     RecordType = 0x00010303
	PicoHarpT2     RecordType = 0x00010203
	HydraHarpV1T3  RecordType = 0x00010304
	HydraHarpV1T2  RecordType = 0x00010204
	HydraHarpV2T3  RecordType = 0x01010304
	HydraHarpV2T2  RecordType = 0x01010204
	TimeHarp260NT3 RecordType = 0x00010305
	TimeHarp260NT2 RecordType = 0x00010205
	TimeHarp260PT3 RecordType = 0x00010306
	TimeHarp260PT2 RecordType = 0x00010206
)

// Mode is t2 or t3, from the mode byte of the record type
func (rt RecordType) Mode() pq.Mode {
	switch (rt >> 8) & 0xFF {
	case 2:
		return pq.ModeT2
	case 3:
		return pq.ModeT3
	}
	return pq.ModeUnknown
}

func (rt RecordType) String() string {
	return fmt.Sprintf("0x%08x", uint32(rt))
}

// IsPTU reports whether b starts with the ptu magic
func IsPTU(b []byte) bool {
	return bytes.HasPrefix(b, Magic)
}

// ReadHeader reads the magic and version
func ReadHeader(r io.Reader) (pq.Header, error) {
	var pre struct {
		Magic   [8]byte
		Version [8]byte
	}
	if err := pq.ReadStruct(r, "ptu preamble", &pre); err != nil {
		return pq.Header{}, err
	}
	if !IsPTU(pre.Magic[:]) {
		return pq.Header{}, fmt.Errorf("%w: not a ptu file", pq.ErrUnknownBoard)
	}
	return pq.Header{Ident: Ident, FormatVersion: pq.CString(pre.Version[:])}, nil
}

// Open reads the tags of a ptu file whose preamble has already been
// consumed from r and sets up the decoder for its record type
func Open(r io.Reader, h pq.Header) (*pq.File, error) {
	tags, err := ReadTags(r)
	if err != nil {
		return nil, err
	}
	rt := RecordType(tags.Int(TagRecordType))
	sync := int32(tags.Int(TagSyncRate))
	inputs := int(tags.Int(TagInputChannels))
	res := tags.Float(TagResolution)

	f := &pq.File{Header: h, Headers: tags, Data: r, Mode: rt.Mode(), Resolution: res * 1e12}
	switch rt {
	case PicoHarpT2:
		f.TTTR, f.Decode = picoharp.T2State(sync), picoharp.DecodeT2
	case PicoHarpT3:
		f.TTTR, f.Decode = picoharp.T3State(sync, res*1e9), picoharp.DecodeT3
	case HydraHarpV1T2:
		f.TTTR, f.Decode = hydraharp.T2State(inputs, sync), hydraharp.DecodeT2V1
	case HydraHarpV1T3:
		f.TTTR, f.Decode = hydraharp.T3State(inputs, sync, res), hydraharp.DecodeT3V1
	case HydraHarpV2T2, TimeHarp260NT2, TimeHarp260PT2:
		f.TTTR, f.Decode = hydraharp.T2State(inputs, sync), hydraharp.DecodeT2V2
	case HydraHarpV2T3, TimeHarp260NT3, TimeHarp260PT3:
		f.TTTR, f.Decode = hydraharp.T3State(inputs, sync, res), hydraharp.DecodeT3V2
	default:
		return nil, fmt.Errorf("%w: ptu record type %s", pq.ErrMode, rt)
	}
	pq.Debug("ptu record type %s, %s, resolution %g ps, %d records", rt, f.Mode, f.Resolution, tags.Int(TagNumRecords))
	return f, nil
}
