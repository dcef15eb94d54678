package ptu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/nasa-jpl/picoquant/pq"
)

func put(buf *bytes.Buffer, v interface{}) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func tag(buf *bytes.Buffer, ident string, index int32, typ TagType, value int64, data []byte) {
	raw := rawTag{Index: index, Type: uint32(typ), Value: value}
	copy(raw.Ident[:], ident)
	put(buf, raw)
	buf.Write(data)
}

func float(f float64) int64 {
	return int64(math.Float64bits(f))
}

func ptuFile(rt RecordType, resolution float64, records []uint32) *bytes.Buffer {
	buf := &bytes.Buffer{}
	buf.Write(Magic)
	buf.Write([]byte("1.0.00\x00\x00"))
	comment := []byte("hello\x00\x00\x00")
	tag(buf, "File_Comment", -1, AnsiString, int64(len(comment)), comment)
	tag(buf, "File_CreatingTime", -1, TDateTime, float(1.5), nil)
	wide := &bytes.Buffer{}
	put(wide, utf16.Encode([]rune("hé")))
	put(wide, uint16(0))
	tag(buf, "Wide", -1, WideString, int64(wide.Len()), wide.Bytes())
	arr := &bytes.Buffer{}
	put(arr, []float64{1.5, 2})
	tag(buf, "Arr", 1, Float8Array, int64(arr.Len()), arr.Bytes())
	tag(buf, "Blob", -1, BinaryBlob, 2, []byte{0xab, 0x01})
	tag(buf, "Bits", -1, BitSet64, 255, nil)
	tag(buf, "Flag", -1, Bool8, 1, nil)
	tag(buf, TagRecordType, -1, Int8, int64(rt), nil)
	tag(buf, TagInputChannels, -1, Int8, 2, nil)
	tag(buf, TagSyncRate, -1, Int8, 40000000, nil)
	tag(buf, TagNumRecords, -1, Int8, int64(len(records)), nil)
	tag(buf, TagResolution, -1, Float8, float(resolution), nil)
	tag(buf, HeaderEnd, -1, Empty8, 0, nil)
	put(buf, records)
	return buf
}

func run(t *testing.T, buf *bytes.Buffer, opts pq.Options) string {
	h, err := ReadHeader(buf)
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

func TestHeaderPrint(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintHeader = true
	out := run(t, ptuFile(HydraHarpV2T3, 8e-12, nil), opts)
	for _, line := range []string{
		"Ident = PQTTTR",
		"FormatVersion = 1.0.00",
		"File_Comment = hello",
		"File_CreatingTime = 1899-12-31T12:00:00Z",
		"Wide = hé",
		"Arr[1] = 1.500000,2.000000",
		"Blob = ab01",
		"Bits = 0xff",
		"Flag = true",
		"TTResultFormat_TTTRRecType = 16843524",
		"MeasDesc_Resolution = 8.000000E-12",
		"Header_End = null",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("expected header to contain %q", line)
		}
	}
}

func TestHydraHarpT3(t *testing.T) {
	recs := []uint32{
		1<<25 | 10<<10 | 5,
		1<<31 | 63<<25 | 3, // three overflows
		2 << 10,
	}
	out := run(t, ptuFile(HydraHarpV2T3, 8e-12, recs), pq.DefaultOptions())
	expected := "1,5,80\n0,3072,16\n"
	if out != expected {
		t.Errorf("expected %q got %q", expected, out)
	}
}

func TestTimeHarp260UsesHydraHarpLayout(t *testing.T) {
	recs := []uint32{1<<25 | 10<<10 | 5}
	out := run(t, ptuFile(TimeHarp260PT3, 25e-12, recs), pq.DefaultOptions())
	if out != "1,5,250\n" {
		t.Errorf("expected %q got %q", "1,5,250\n", out)
	}
}

func TestPicoHarpT2(t *testing.T) {
	out := run(t, ptuFile(PicoHarpT2, 4e-12, []uint32{5}), pq.DefaultOptions())
	if out != "0,20\n" {
		t.Errorf("expected %q got %q", "0,20\n", out)
	}
}

func TestResolutionAndMode(t *testing.T) {
	opts := pq.DefaultOptions()
	opts.PrintResolution = true
	if out := run(t, ptuFile(PicoHarpT2, 4e-12, nil), opts); out != "4.00\n" {
		t.Errorf("expected %q got %q", "4.00\n", out)
	}
	opts = pq.DefaultOptions()
	opts.PrintMode = true
	if out := run(t, ptuFile(HydraHarpV1T2, 1e-12, nil), opts); out != "t2\n" {
		t.Errorf("expected %q got %q", "t2\n", out)
	}
}

func TestUnknownRecordType(t *testing.T) {
	buf := ptuFile(RecordType(0x00010307), 1e-12, nil)
	h, err := ReadHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(buf, h); !errors.Is(err, pq.ErrMode) {
		t.Errorf("expected %v got %v", pq.ErrMode, err)
	}
}

func TestUnknownTagType(t *testing.T) {
	buf := &bytes.Buffer{}
	tag(buf, "Odd", -1, TagType(0x12345678), 0, nil)
	if _, err := ReadTags(buf); !errors.Is(err, pq.ErrUnknownData) {
		t.Errorf("expected %v got %v", pq.ErrUnknownData, err)
	}
}

func TestTruncatedTags(t *testing.T) {
	buf := &bytes.Buffer{}
	tag(buf, "File_Comment", -1, AnsiString, 10, []byte("abc"))
	if _, err := ReadTags(buf); !errors.Is(err, pq.ErrEOF) {
		t.Errorf("expected %v got %v", pq.ErrEOF, err)
	}
}

func TestNotPTU(t *testing.T) {
	if IsPTU([]byte("PicoHarp 300")) {
		t.Errorf("expected a PicoHarp header not to match")
	}
	if _, err := ReadHeader(bytes.NewReader(make([]byte, 16))); !errors.Is(err, pq.ErrUnknownBoard) {
		t.Errorf("expected %v got %v", pq.ErrUnknownBoard, err)
	}
}
