package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nasa-jpl/picoquant/pq"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse("picoquant", nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Opts.Number != pq.DefaultOptions().Number {
		t.Errorf("expected every record to be decoded got %d", c.Opts.Number)
	}
	if c.FileIn != "" || c.Edges != nil {
		t.Errorf("expected stdin and no histogram got %+v", c)
	}
}

func TestParseChannels(t *testing.T) {
	c, err := Parse("picoquant", []string{
		"-i", "x.ht3", "-c", "3", "-s", "1", "-u", "0,10,-5", "--pulse-offsets=1,2,3,4", "-t", "-n", "50",
	})
	if err != nil {
		t.Fatal(err)
	}
	o := c.Opts
	if c.FileIn != "x.ht3" || !o.ToT2 || o.Number != 50 {
		t.Errorf("unexpected options %+v", c)
	}
	if !o.Suppress[1] || len(o.Suppress) != 1 {
		t.Errorf("expected channel 1 suppressed got %v", o.Suppress)
	}
	if fmt.Sprint(o.TimeOffsets) != "[0 10 -5]" || fmt.Sprint(o.PulseOffsets) != "[1 2 3]" {
		t.Errorf("expected offsets for 3 channels got %v %v", o.TimeOffsets, o.PulseOffsets)
	}
}

func TestParseTime(t *testing.T) {
	c, err := Parse("picoquant", []string{"--stats", "-x", "0,2,100"})
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(c.Edges) != "[0 50 100]" {
		t.Errorf("expected [0 50 100] got %v", c.Edges)
	}
	c, err = Parse("picoquant", []string{"--stats", "-x", "1,4,100", "-X", "log-zero"})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Edges) != 5 || c.Edges[0] != 0 {
		t.Errorf("expected 5 edges starting at 0 got %v", c.Edges)
	}
}

func TestParseErrors(t *testing.T) {
	cases := [][]string{
		{"--no-such-flag"},
		{"extra"},
		{"-s", "1"},
		{"-c", "2", "-u", "1"},
		{"-c", "-1"},
		{"-r", "-z"},
		{"-b", "--proto"},
		{"-x", "1,2"},
		{"-X", "cubic"},
		{"--fits", "a.fits", "-r"},
	}
	for _, args := range cases {
		_, err := Parse("picoquant", args)
		if !errors.Is(err, pq.ErrOptions) {
			t.Errorf("%v: expected %v got %v", args, pq.ErrOptions, err)
		}
	}
}

func TestParseHelp(t *testing.T) {
	c, err := Parse("picoquant", []string{"-h", "-s", "1"})
	if err != nil || !c.Help {
		t.Errorf("expected help without validation got %v", err)
	}
}

func TestUsage(t *testing.T) {
	c := &Config{}
	buf := &bytes.Buffer{}
	Usage(buf, "picoquant", FlagSet("picoquant", c))
	out := buf.String()
	for _, s := range []string{"Usage: picoquant [options]", "--resolution-only", "-U, --pulse-offsets", "Hydraharp: v1.0, v2.0"} {
		if !strings.Contains(out, s) {
			t.Errorf("expected usage to contain %q", s)
		}
	}
}

func ExampleParse() {
	c, err := Parse("picoquant", []string{"--file-in", "tcp://daq:9000", "--mode-only"})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(c.FileIn, c.Opts.PrintMode)
	// Output: tcp://daq:9000 true
}
