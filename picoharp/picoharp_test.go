package picoharp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/nasa-jpl/picoquant/pq"
)

func put(buf *bytes.Buffer, v interface{}) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func commonHeader(buf *bytes.Buffer, version string) {
	var ident [16]byte
	var ver [6]byte
	copy(ident[:], Ident)
	copy(ver[:], version)
	put(buf, ident)
	put(buf, ver)
}

func mainHeader(buf *bytes.Buffer, mode int32, curves int32) {
	m := mainFixed{
		NumberOfCurves:  curves,
		RoutingChannels: 7,
		NumberOfBoards:  1,
		MeasurementMode: mode,
	}
	copy(m.CreatorName[:], "PicoHarp Software")
	copy(m.Comment[:], "unit test")
	put(buf, m)
	b := boardFixed{Resolution: 0.004, HardwareSerial: 1234}
	copy(b.HardwareIdent[:], "PicoHarp 300")
	put(buf, b)
	put(buf, make([]RouterChannel, routingChannels))
}

func tttrFile(mode int32, records []uint32) *bytes.Buffer {
	buf := &bytes.Buffer{}
	commonHeader(buf, "2.0")
	mainHeader(buf, mode, 0)
	put(buf, tttrFixed{InpRate0: 10000000, NumRecords: int32(len(records)), ImgHdrSize: 2})
	put(buf, []uint32{3, 7})
	put(buf, records)
	return buf
}

func run(t *testing.T, buf *bytes.Buffer, opts pq.Options) string {
	h, err := pq.ReadHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	f, err := Open(buf, h)
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	if err := pq.Run(f, out, opts); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func t3(channel, dtime, nsync uint32) uint32 {
	return channel<<28 | dtime<<16 | nsync
}

func TestT3Stream(t *testing.T) {
	recs := []uint32{
		t3(1, 100, 10),
		t3(15, 0, 0), // overflow
		t3(2, 3, 5),
		t3(15, 2, 9), // marker
	}
	out := run(t, tttrFile(modeT3, recs), pq.DefaultOptions())
	expected := "1,10,400\n2,65541,12\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestT3MarkersPrinted(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintMarkers = true
	out := run(t, tttrFile(modeT3, []uint32{t3(15, 2, 9)}), opts)
	expected := "marker,2,9,0\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestMarkerChannel(t *testing.T) {
	buf := &bytes.Buffer{}
	put(buf, []uint32{t3(15, 2, 9), 15<<28 | 4})
	tttr := &pq.TTTR{ResolutionPS: 1}
	rec, err := DecodeT3(buf, tttr)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Kind != pq.KindMarker || rec.Marker != (pq.Marker{Channel: 15, Bits: 2, Pulse: 9}) {
		t.Errorf("expected a t3 marker on channel 15 got %+v", rec)
	}
	rec, err = DecodeT2(buf, tttr)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Kind != pq.KindMarker || rec.Marker.Channel != 15 || rec.Marker.Bits != 4 {
		t.Errorf("expected a t2 marker on channel 15 got %+v", rec)
	}
}

func TestT3ToT2(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.ToT2 = true
	out := run(t, tttrFile(modeT3, []uint32{t3(1, 100, 10)}), opts)
	// 10 MHz sync, pulse 10 is at 1 us, plus 400 ps
	expected := "1,1000400\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestT2Stream(t *testing.T) {
	recs := []uint32{
		0<<28 | 5,
		0xF0000000, // overflow
		3<<28 | 1,
		0xF0000002, // marker
	}
	out := run(t, tttrFile(modeT2, recs), pq.DefaultOptions())
	expected := "0,20\n3,842792964\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestNumberLimitsRecords(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.Number = 1
	out := run(t, tttrFile(modeT2, []uint32{5, 6, 7}), opts)
	if out != "0,20\n" {
		t.Errorf("expected a single record got %q", out)
	}
}

func TestTTTRResolution(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintResolution = true
	out := run(t, tttrFile(modeT3, nil), opts)
	if out != "4.00\n" {
		t.Errorf("expected %q got %q", "4.00\n", out)
	}
}

func TestTTTRHeaderPrint(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintHeader = true
	out := run(t, tttrFile(modeT2, nil), opts)
	for _, line := range []string{
		"Ident = PicoHarp 300",
		"FormatVersion = 2.0",
		"CreatorName = PicoHarp Software",
		"RoutingChannels = 4",
		"DisplayCurve[7].Show = 0",
		"Param[2].Stop = 0.000000",
		"Brd[0].HardwareSerial = 1234",
		"Brd[0].RtCh[3].CFDZCross = 0",
		"InpRate0 = 10000000",
		"ImgHdr[1] = 7",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("expected header to contain %q", line)
		}
	}
}

func interactiveFile() *bytes.Buffer {
	buf := &bytes.Buffer{}
	commonHeader(buf, "2.0")
	mainHeader(buf, modeInteractive, 2)
	put(buf, CurveHeader{CurveIndex: 0, Resolution: 0.5, Channels: 3, TimeOfRecording: 0})
	put(buf, CurveHeader{CurveIndex: 1, Resolution: 0.25, Channels: 2, Offset: 10})
	put(buf, []uint32{1, 2, 3})
	put(buf, []uint32{4, 5})
	return buf
}

func TestInteractiveStream(t *testing.T) {
	out := run(t, interactiveFile(), pq.DefaultOptions())
	expected := strings.Join([]string{
		"0,0.00,500.00,1",
		"0,500.00,1000.00,2",
		"0,1000.00,1500.00,3",
		"1,10000.00,10250.00,4",
		"1,10250.00,10500.00,5",
	}, "\n") + "\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestInteractiveResolution(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintResolution = true
	out := run(t, interactiveFile(), opts)
	expected := "0,500.00\n1,250.00\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestInteractiveHeader(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintHeader = true
	out := run(t, interactiveFile(), opts)
	for _, line := range []string{
		"Crv[1].CurveIndex = 1",
		"Crv[0].TimeOfRecording = Thu Jan  1 00:00:00 1970",
		"Crv[1].Resolution = 0.250000",
		"Crv[0].RtCh_CFDZeroCross = 0",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("expected header to contain %q", line)
		}
	}
}

func TestBadVersion(t *testing.T) {
	buf := &bytes.Buffer{}
	commonHeader(buf, "9.9")
	h, err := pq.ReadHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Open(buf, h)
	if !errors.Is(err, pq.ErrVersion) {
		t.Errorf("expected %v got %v", pq.ErrVersion, err)
	}
}

func TestUnknownMode(t *testing.T) {
	buf := &bytes.Buffer{}
	commonHeader(buf, "2.0")
	mainHeader(buf, 1, 0)
	h, _ := pq.ReadHeader(buf)
	_, err := Open(buf, h)
	if !errors.Is(err, pq.ErrMode) {
		t.Errorf("expected %v got %v", pq.ErrMode, err)
	}
}

func TestTruncatedRecord(t *testing.T) {
	buf := tttrFile(modeT2, []uint32{5})
	buf.Write([]byte{1, 2})
	h, _ := pq.ReadHeader(buf)
	f, err := Open(buf, h)
	if err != nil {
		t.Fatal(err)
	}
	err = pq.Run(f, &bytes.Buffer{}, pq.DefaultOptions())
	if !errors.Is(err, pq.ErrIO) {
		t.Errorf("expected %v got %v", pq.ErrIO, err)
	}
}

func BenchmarkDecodeT3(b *testing.B) {
	recs := make([]uint32, 4096)
	for i := range recs {
		recs[i] = t3(uint32(i%4), uint32(i%4096), uint32(i))
	}
	raw := &bytes.Buffer{}
	put(raw, recs)
	data := raw.Bytes()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := bytes.NewReader(data)
		tttr := &pq.TTTR{OverflowIncrement: T3Overflow, ResolutionPS: 4}
		for {
			if _, err := DecodeT3(r, tttr); err != nil {
				break
			}
		}
	}
}
