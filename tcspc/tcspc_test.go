package tcspc

import (
	"errors"
	"fmt"
	"testing"
)

func TestModeNumber(t *testing.T) {
	cases := []struct {
		d    Device
		mode interface{}
		n    int
		ok   bool
	}{
		{PicoHarp, "T3", 3, true},
		{PicoHarp, "hist", 0, true},
		{PicoHarp, "cont", 0, false},
		{HydraHarp, "cont", 8, true},
		{HydraHarp, 5, 5, true},
		{HydraHarp, 2.0, 0, false},
	}
	for _, c := range cases {
		n, err := ModeNumber(c.d, c.mode)
		if (err == nil) != c.ok || n != c.n {
			t.Errorf("%v %v: expected %d ok=%v got %d %v", c.d, c.mode, c.n, c.ok, n, err)
		}
		if ValidMode(c.d, c.mode) != c.ok {
			t.Errorf("%v %v: expected valid=%v", c.d, c.mode, c.ok)
		}
	}
}

func TestTablesAreCopies(t *testing.T) {
	m := Modes(PicoHarp)
	m["t2"] = 99
	if Modes(PicoHarp)["t2"] != 2 {
		t.Errorf("expected the mode table to be unaffected by callers")
	}
	if len(Flags(HydraHarp)) != 6 || len(Warnings(PicoHarp)) != 9 {
		t.Errorf("expected 6 HydraHarp flags and 9 PicoHarp warnings")
	}
}

func TestDecodeFlags(t *testing.T) {
	if got := fmt.Sprint(DecodeFlags(PicoHarp, 0x0041)); got != "[overflow]" {
		t.Errorf("expected [overflow] got %s", got)
	}
	if got := fmt.Sprint(DecodeFlags(PicoHarp, 0x0043)); got != "[fifofull overflow]" {
		t.Errorf("expected [fifofull overflow] got %s", got)
	}
	if got := DecodeFlags(HydraHarp, 0); got != nil {
		t.Errorf("expected no flags got %v", got)
	}
}

func TestCheck(t *testing.T) {
	if err := Check(0); err != nil {
		t.Errorf("expected nil got %v", err)
	}
	err := Check(-7)
	var ce *CodeError
	if !errors.As(err, &ce) || ce.Code != -7 || err.Error() != "error code -7" {
		t.Errorf("expected error code -7 got %v", err)
	}
}

func ExampleDecodeWarnings() {
	fmt.Println(DecodeWarnings(HydraHarp, 0x0011))
	// Output: [inpt_rate_zero sync_rate_zero]
}

func ExampleModeNumber() {
	n, _ := ModeNumber(HydraHarp, "T2")
	fmt.Println(n)
	// Output: 2
}
