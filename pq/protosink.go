package pq

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// field numbers of the record envelope
const (
	envT2         protowire.Number = 1
	envT3         protowire.Number = 2
	envMarker     protowire.Number = 3
	envBin        protowire.Number = 4
	envResolution protowire.Number = 5
)

// Resolution is a resolution entry read back from a proto stream
type Resolution struct {
	Curve int
	PS    float64
}

type protoSink struct {
	w   *bufio.Writer
	msg []byte
	env []byte
}

// NewProtoSink returns a Sink writing varint length delimited protobuf
// messages.  Each message is an envelope holding a single record as an
// embedded message, t2=1 t3=2 marker=3 bin=4 resolution=5.  The record
// fields are
//
//	t2:         1 channel, 2 time
//	t3:         1 channel, 2 pulse, 3 time
//	marker:     1 bits, 2 pulse, 3 time, 4 channel
//	bin:        1 curve, 2 left (double), 3 right (double), 4 counts
//	resolution: 1 curve (sint64), 2 ps (double)
func NewProtoSink(w io.Writer) Sink {
	return &protoSink{w: bufio.NewWriter(w)}
}

func (s *protoSink) emit(field protowire.Number) error {
	s.env = protowire.AppendTag(s.env[:0], field, protowire.BytesType)
	s.env = protowire.AppendBytes(s.env, s.msg)
	out := protowire.AppendVarint(nil, uint64(len(s.env)))
	if _, err := s.w.Write(out); err != nil {
		return err
	}
	_, err := s.w.Write(s.env)
	return err
}

func (s *protoSink) varint(n protowire.Number, v uint64) {
	s.msg = protowire.AppendTag(s.msg, n, protowire.VarintType)
	s.msg = protowire.AppendVarint(s.msg, v)
}

func (s *protoSink) double(n protowire.Number, v float64) {
	s.msg = protowire.AppendTag(s.msg, n, protowire.Fixed64Type)
	s.msg = protowire.AppendFixed64(s.msg, math.Float64bits(v))
}

func (s *protoSink) WriteT2(r T2) error {
	s.msg = s.msg[:0]
	s.varint(1, uint64(r.Channel))
	s.varint(2, r.Time)
	return s.emit(envT2)
}

func (s *protoSink) WriteT3(r T3) error {
	s.msg = s.msg[:0]
	s.varint(1, uint64(r.Channel))
	s.varint(2, r.Pulse)
	s.varint(3, r.Time)
	return s.emit(envT3)
}

func (s *protoSink) WriteMarker(m Marker) error {
	s.msg = s.msg[:0]
	s.varint(1, uint64(m.Bits))
	s.varint(2, m.Pulse)
	s.varint(3, m.Time)
	s.varint(4, uint64(m.Channel))
	return s.emit(envMarker)
}

func (s *protoSink) WriteBin(b Bin) error {
	s.msg = s.msg[:0]
	s.varint(1, uint64(b.Curve))
	s.double(2, b.Left)
	s.double(3, b.Right)
	s.varint(4, uint64(b.Counts))
	return s.emit(envBin)
}

func (s *protoSink) WriteResolution(curve int, ps float64) error {
	s.msg = s.msg[:0]
	s.varint(1, protowire.EncodeZigZag(int64(curve)))
	s.double(2, ps)
	return s.emit(envResolution)
}

func (s *protoSink) Flush() error {
	return s.w.Flush()
}

// ProtoReader reads the stream written by a proto sink
type ProtoReader struct {
	r *bufio.Reader
}

// NewProtoReader wraps r
func NewProtoReader(r io.Reader) *ProtoReader {
	return &ProtoReader{r: bufio.NewReader(r)}
}

// Next returns the next record, one of T2, T3, Marker, Bin or Resolution.
// It returns io.EOF at the end of the stream.
func (p *ProtoReader) Next() (interface{}, error) {
	size, err := binary.ReadUvarint(p.r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: reading message length: %v", ErrIO, err)
	}
	if size > MaxAlloc {
		return nil, fmt.Errorf("%w: message of %d bytes", ErrUnknownData, size)
	}
	env := make([]byte, size)
	if _, err := io.ReadFull(p.r, env); err != nil {
		return nil, fmt.Errorf("%w: reading message: %v", ErrIO, err)
	}
	field, typ, n := protowire.ConsumeTag(env)
	if n < 0 || typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: malformed envelope", ErrUnknownData)
	}
	body, m := protowire.ConsumeBytes(env[n:])
	if m < 0 {
		return nil, fmt.Errorf("%w: malformed envelope body", ErrUnknownData)
	}
	fields, err := consumeFields(body)
	if err != nil {
		return nil, err
	}
	switch field {
	case envT2:
		return T2{Channel: uint32(fields[1]), Time: fields[2]}, nil
	case envT3:
		return T3{Channel: uint32(fields[1]), Pulse: fields[2], Time: fields[3]}, nil
	case envMarker:
		return Marker{Channel: uint32(fields[4]), Bits: uint32(fields[1]), Pulse: fields[2], Time: fields[3]}, nil
	case envBin:
		return Bin{
			Curve:  uint32(fields[1]),
			Left:   math.Float64frombits(fields[2]),
			Right:  math.Float64frombits(fields[3]),
			Counts: uint32(fields[4]),
		}, nil
	case envResolution:
		return Resolution{
			Curve: int(protowire.DecodeZigZag(fields[1])),
			PS:    math.Float64frombits(fields[2]),
		}, nil
	}
	return nil, fmt.Errorf("%w: envelope field %d", ErrUnknownData, field)
}

// consumeFields flattens a message of varint and fixed64 fields into their raw values
func consumeFields(b []byte) (map[protowire.Number]uint64, error) {
	out := map[protowire.Number]uint64{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnknownData, protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrUnknownData, protowire.ParseError(m))
			}
			out[num] = v
			b = b[m:]
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrUnknownData, protowire.ParseError(m))
			}
			out[num] = v
			b = b[m:]
		default:
			return nil, fmt.Errorf("%w: wire type %d in record message", ErrUnknownData, typ)
		}
	}
	return out, nil
}
