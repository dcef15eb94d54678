package hydraharp

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

func file(version string, mode int32, curves int32) *bytes.Buffer {
	buf := &bytes.Buffer{}
	var ident [16]byte
	var ver [6]byte
	copy(ident[:], Ident)
	copy(ver[:], version)
	put(buf, ident)
	put(buf, ver)
	m := mainFixed{
		NumberOfCurves:       curves,
		MeasurementMode:      mode,
		Resolution:           8,
		BaseResolution:       1,
		InputChannelsPresent: 2,
		DisplayTimeAxisFrom:  0xFFFFFFFF,
	}
	copy(m.HardwareIdent[:], "HydraHarp 400")
	put(buf, m)
	put(buf, []InputChannel{{CFDLevel: 50}, {CFDLevel: 60}})
	if mode != modeInteractive {
		put(buf, []int32{1000, 2000})
		put(buf, tttrFixed{SyncRate: 40000000, ImgHdrSize: 0, NumRecords: 4})
	}
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

func t2rec(special bool, channel, tag uint32) uint32 {
	v := channel<<25 | tag
	if special {
		v |= 1 << 31
	}
	return v
}

func t3rec(special bool, channel, dtime, nsync uint32) uint32 {
	v := channel<<25 | dtime<<10 | nsync
	if special {
		v |= 1 << 31
	}
	return v
}

func t2records() []uint32 {
	return []uint32{
		t2rec(false, 1, 100),
		t2rec(true, overflowChannel, 2),
		t2rec(true, 0, 5),
		t2rec(true, 3, 7),
		t2rec(false, 0, 1),
	}
}

func TestT2V2(t *testing.T) {
	buf := file("2.0", modeT2, 0)
	put(buf, t2records())
	out := run(t, buf, pq.DefaultOptions())
	expected := "1,100\n2,67108869\n0,67108865\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestT2V1OverflowCountsOnce(t *testing.T) {
	buf := file("1.0", modeT2, 0)
	put(buf, t2records())
	out := run(t, buf, pq.DefaultOptions())
	expected := "1,100\n2,33552005\n0,33552001\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestT2Markers(t *testing.T) {
	buf := file("2.0", modeT2, 0)
	put(buf, []uint32{t2rec(true, 3, 7)})
	opts := pq.DefaultOptions()
	opts.PrintMarkers = true
	out := run(t, buf, opts)
	if out != "marker,3,0,7\n" {
		t.Errorf("expected %q got %q", "marker,3,0,7\n", out)
	}
}

func TestMarkerChannel(t *testing.T) {
	buf := &bytes.Buffer{}
	put(buf, []uint32{t2rec(true, 3, 7), t3rec(true, 5, 0, 2)})
	rec, err := DecodeT2V2(buf, &pq.TTTR{})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Marker != (pq.Marker{Channel: 3, Bits: 3, Time: 7}) {
		t.Errorf("expected a marker on channel 3 got %+v", rec)
	}
	rec, err = DecodeT3V2(buf, &pq.TTTR{ResolutionPS: 1})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Marker != (pq.Marker{Channel: 5, Bits: 5, Pulse: 2}) {
		t.Errorf("expected a marker on channel 5 got %+v", rec)
	}
}

func t3records() []uint32 {
	return []uint32{
		t3rec(false, 1, 10, 5),
		t3rec(true, overflowChannel, 0, 3),
		t3rec(false, 0, 2, 1),
	}
}

func TestT3V2(t *testing.T) {
	buf := file("2.0", modeT3, 0)
	put(buf, t3records())
	out := run(t, buf, pq.DefaultOptions())
	expected := "1,5,80\n0,3073,16\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestT3V1(t *testing.T) {
	buf := file("1.0", modeT3, 0)
	put(buf, t3records())
	out := run(t, buf, pq.DefaultOptions())
	expected := "1,5,80\n0,1025,16\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestT3Suppress(t *testing.T) {
	buf := file("2.0", modeT3, 0)
	put(buf, t3records())
	opts := pq.DefaultOptions()
	opts.Channels = 2
	opts.Suppress = map[int]bool{1: true}
	opts.TimeOffsets = []int64{100, 0}
	out := run(t, buf, opts)
	expected := "0,3073,116\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestResolutions(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintResolution = true
	if out := run(t, file("2.0", modeT3, 0), opts); out != "8.00\n" {
		t.Errorf("expected t3 resolution 8.00 got %q", out)
	}
	if out := run(t, file("2.0", modeT2, 0), opts); out != "1.00\n" {
		t.Errorf("expected t2 resolution 1.00 got %q", out)
	}
}

func TestTTTRHeader(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintHeader = true
	out := run(t, file("2.0", modeT3, 0), opts)
	for _, line := range []string{
		"Ident = HydraHarp",
		"HardwareIdent = HydraHarp 400",
		"DisplayTimeAxisFrom = 4294967295",
		"InpChan[1].CFDLevel = 60",
		"InputRate[1] = 2000",
		"SyncRate = 40000000",
		"NumRecords = 4",
		"ModuleInfo[9].Version = 0",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("expected header to contain %q", line)
		}
	}
	out = run(t, file("1.0", modeT3, 0), opts)
	if !strings.Contains(out, "DisplayTimeAxisFrom = -1\n") {
		t.Errorf("expected version 1.0 axes to print signed")
	}
}

func interactive() *bytes.Buffer {
	buf := file("2.0", modeInteractive, 1)
	put(buf, CurveHeader{Resolution: 16, HistogramBins: 2, InputRate: 77})
	put(buf, []uint32{9, 10})
	return buf
}

func TestInteractive(t *testing.T) {
	out := run(t, interactive(), pq.DefaultOptions())
	expected := "0,0.00,16.00,9\n0,16.00,32.00,10\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestInteractiveHeader(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintHeader = true
	out := run(t, interactive(), opts)
	if strings.Contains(out, "InputRate[") {
		t.Errorf("interactive header should not carry input rates")
	}
	for _, line := range []string{
		"Curve[0].InputRate = 77",
		"Curve[0].Module[9].Model = 0",
		"Curve[0].Resolution = 16.000000",
		"Curve[0].HistogramBins = 2",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("expected header to contain %q", line)
		}
	}
}

func TestVersionRejected(t *testing.T) {
	_, err := ParseVersion("3.0")
	if !errors.Is(err, pq.ErrVersion) {
		t.Errorf("expected %v got %v", pq.ErrVersion, err)
	}
}
