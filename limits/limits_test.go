package limits

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/nasa-jpl/picoquant/pq"
)

func TestParse(t *testing.T) {
	l, err := Parse("0, 100 ,1e3")
	if err != nil {
		t.Fatal(err)
	}
	expected := Limits{Lower: 0, Bins: 100, Upper: 1000}
	if l != expected {
		t.Errorf("expected %v got %v", expected, l)
	}
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "1,2", "a,2,3", "0,x,3", "0,2,y", "5,10,1", "1,0,5", "1,-3,5"} {
		if _, err := Parse(s); !errors.Is(err, pq.ErrOptions) {
			t.Errorf("%q: expected %v got %v", s, pq.ErrOptions, err)
		}
	}
	_, err := Parse("1,2")
	if err == nil || !strings.Contains(err.Error(), "lower,bins,upper") {
		t.Errorf("expected the error to name the format, got %v", err)
	}
}

func TestParseScale(t *testing.T) {
	cases := map[string]Scale{"": Linear, "linear": Linear, "log": Log, "log-zero": LogZero}
	for s, expected := range cases {
		got, err := ParseScale(s)
		if err != nil || got != expected {
			t.Errorf("%q: expected %v got %v (%v)", s, expected, got, err)
		}
	}
	if _, err := ParseScale("cubic"); !errors.Is(err, pq.ErrOptions) {
		t.Errorf("expected %v got %v", pq.ErrOptions, err)
	}
}

func TestEdges(t *testing.T) {
	edges, err := Edges(Limits{0, 4, 8}, Linear)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{0, 2, 4, 6, 8}
	if fmt.Sprint(edges) != fmt.Sprint(expected) {
		t.Errorf("expected %v got %v", expected, edges)
	}

	edges, err = Edges(Limits{1, 3, 1000}, LogZero)
	if err != nil {
		t.Fatal(err)
	}
	expected = []float64{0, 10, 100, 1000}
	for i := range expected {
		if math.Abs(edges[i]-expected[i]) > 1e-9 {
			t.Errorf("edge %d: expected %v got %v", i, expected[i], edges[i])
		}
	}

	if _, err := Edges(Limits{0, 3, 1000}, Log); !errors.Is(err, pq.ErrOptions) {
		t.Errorf("expected %v got %v", pq.ErrOptions, err)
	}
}

func TestIndex(t *testing.T) {
	edges := []float64{0, 2, 4, 6, 8}
	cases := map[float64]int{-1: -1, 0: 0, 1.5: 0, 2: 1, 5: 2, 7.9: 3, 8: 3, 8.1: -1}
	for x, expected := range cases {
		if got := Index(edges, x); got != expected {
			t.Errorf("Index(%v): expected %d got %d", x, expected, got)
		}
	}
	if got := Index(edges, math.NaN()); got != -1 {
		t.Errorf("Index(NaN): expected -1 got %d", got)
	}
}

func TestParseOffsets(t *testing.T) {
	got, err := ParseOffsets("10, -20,30,40", 3)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(got) != "[10 -20 30]" {
		t.Errorf("expected [10 -20 30] got %v", got)
	}
	if _, err := ParseOffsets("1,2", 3); !errors.Is(err, pq.ErrOptions) {
		t.Errorf("expected %v got %v", pq.ErrOptions, err)
	}
	if _, err := ParseOffsets("1,b,3", 3); !errors.Is(err, pq.ErrOptions) {
		t.Errorf("expected %v got %v", pq.ErrOptions, err)
	}
}

func TestParseSuppress(t *testing.T) {
	log := &bytes.Buffer{}
	pq.SetLogOutput(log)
	defer pq.SetLogOutput(os.Stderr)

	got, err := ParseSuppress("0,2,2", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got[0] || !got[2] {
		t.Errorf("expected channels 0 and 2 got %v", got)
	}
	if !strings.Contains(log.String(), "WARNING: channel 2 suppressed more than once") {
		t.Errorf("expected a duplicate warning, log was %q", log.String())
	}
	for _, s := range []string{"4", "-1", "x"} {
		if _, err := ParseSuppress(s, 4); !errors.Is(err, pq.ErrOptions) {
			t.Errorf("%q: expected %v got %v", s, pq.ErrOptions, err)
		}
	}
}

func ExampleParse() {
	l, _ := Parse("0,4,8")
	edges, _ := Edges(l, Linear)
	fmt.Println(l, edges, Index(edges, 5))
	// Output: 0,4,8 [0 2 4 6 8] 2
}
