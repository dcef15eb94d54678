package header

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nasa-jpl/picoquant/pq"
)

const sample = `[header]
Ident = PicoHarp 300
FormatVersion = 2.0
Comment = a = b

NumberOfBoards = 1
Brd[0].Resolution = 0.004000
Crv[0].Offset = 0
Crv[1].Offset = 10
Crv[1].Resolution = 0.250000
Bare=7
`

func parse(t *testing.T, s string) *Header {
	h, err := Parse(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestParse(t *testing.T) {
	h := parse(t, sample)
	cases := map[string]string{
		"Ident":             "PicoHarp 300",
		"Comment":           "a = b",
		"Brd[0].Resolution": "0.004000",
		"Crv[1].Resolution": "0.250000",
		"Bare":              "7",
	}
	for k, expected := range cases {
		if got := h.String(k); got != expected {
			t.Errorf("%s: expected %q got %q", k, expected, got)
		}
	}
	if h.Exists("header") || h.Exists("Brd") {
		t.Errorf("section lines and key prefixes should not be keys")
	}
	expected := "Ident,FormatVersion,Comment,NumberOfBoards,Brd[0].Resolution,Crv[0].Offset,Crv[1].Offset,Crv[1].Resolution,Bare"
	if got := strings.Join(h.Keys(), ","); got != expected {
		t.Errorf("expected %s got %s", expected, got)
	}
}

func TestNumbers(t *testing.T) {
	h := parse(t, sample)
	if v, err := h.Int("NumberOfBoards"); err != nil || v != 1 {
		t.Errorf("expected 1 got %v (%v)", v, err)
	}
	if v, err := h.Float("Brd[0].Resolution"); err != nil || v != 0.004 {
		t.Errorf("expected 0.004 got %v (%v)", v, err)
	}
	if _, err := h.Int("Ident"); !errors.Is(err, pq.ErrUnknownData) {
		t.Errorf("expected %v got %v", pq.ErrUnknownData, err)
	}
}

func TestCurves(t *testing.T) {
	h := parse(t, sample)
	if n := h.Curves(); n != 2 {
		t.Errorf("expected 2 curves got %d", n)
	}
	if v, ok := h.Curve(1, "Offset"); !ok || v != "10" {
		t.Errorf("expected Crv[1].Offset 10 got %q", v)
	}
	if v, ok := h.Curve(0, "Resolution"); !ok || v != "0.004000" {
		t.Errorf("expected the board resolution for curve 0 got %q", v)
	}
	if _, ok := h.Curve(5, "Offset"); ok {
		t.Errorf("expected curve 5 to be missing")
	}
	h = parse(t, "NumberOfCurves = 4\nCurve[0].Offset = 1\n")
	if n := h.Curves(); n != 4 {
		t.Errorf("expected NumberOfCurves to win, got %d", n)
	}
}

func TestBadLine(t *testing.T) {
	if _, err := Parse(strings.NewReader("Ident\n")); !errors.Is(err, pq.ErrUnknownData) {
		t.Errorf("expected %v got %v", pq.ErrUnknownData, err)
	}
}

func ExampleHeader_Curve() {
	h, _ := Parse(strings.NewReader("Curve[0].Resolution = 8.000000\n"))
	v, _ := h.Curve(0, "Resolution")
	fmt.Println(v, h.Curves())
	// Output: 8.000000 1
}
