// Package limits parses the axis limits and per-channel options given on
// the command line: histogram limits of the form lower,bins,upper, the
// axis scale, channel offsets and suppressed channels.
package limits

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/nasa-jpl/picoquant/pq"
)

// Limits is a histogram axis
type Limits struct {
	Lower float64
	Bins  int
	Upper float64
}

func (l Limits) String() string {
	return fmt.Sprintf("%g,%d,%g", l.Lower, l.Bins, l.Upper)
}

// Scale is the spacing of the bin edges
type Scale int

const (
	// Linear spaces edges evenly
	Linear Scale = iota

	// Log spaces edges logarithmically
	Log

	// LogZero is Log with the first edge moved to zero
	LogZero
)

func (s Scale) String() string {
	switch s {
	case Linear:
		return "linear"
	case Log:
		return "log"
	case LogZero:
		return "log-zero"
	}
	return "unknown"
}

func split(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Parse reads limits of the form lower,bins,upper
func Parse(s string) (Limits, error) {
	var l Limits
	parts := split(s)
	if len(parts) != 3 {
		return l, fmt.Errorf("%w: limits must be of the form lower,bins,upper: %q", pq.ErrOptions, s)
	}
	var err error
	if l.Lower, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return l, fmt.Errorf("%w: limits must be of the form lower,bins,upper: bad lower limit %q", pq.ErrOptions, parts[0])
	}
	if l.Bins, err = strconv.Atoi(parts[1]); err != nil {
		return l, fmt.Errorf("%w: limits must be of the form lower,bins,upper: bad bin count %q", pq.ErrOptions, parts[1])
	}
	if l.Upper, err = strconv.ParseFloat(parts[2], 64); err != nil {
		return l, fmt.Errorf("%w: limits must be of the form lower,bins,upper: bad upper limit %q", pq.ErrOptions, parts[2])
	}
	if l.Lower >= l.Upper {
		return l, fmt.Errorf("%w: lower limit must be less than upper limit (%g, %g specified)", pq.ErrOptions, l.Lower, l.Upper)
	}
	if l.Bins <= 0 {
		return l, fmt.Errorf("%w: must have at least one bin", pq.ErrOptions)
	}
	return l, nil
}

// ParseScale reads a scale name.  The empty string is Linear.
func ParseScale(s string) (Scale, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "log":
		return Log, nil
	case "log-zero":
		return LogZero, nil
	}
	return Linear, fmt.Errorf("%w: scale specified but not recognized: %s", pq.ErrOptions, s)
}

// Edges returns the Bins+1 bin edges of l
func Edges(l Limits, scale Scale) ([]float64, error) {
	if l.Bins <= 0 {
		return nil, fmt.Errorf("%w: must have at least one bin", pq.ErrOptions)
	}
	edges := make([]float64, l.Bins+1)
	switch scale {
	case Linear:
		floats.Span(edges, l.Lower, l.Upper)
	case Log, LogZero:
		if l.Lower <= 0 {
			return nil, fmt.Errorf("%w: %s scale needs a positive lower limit", pq.ErrOptions, scale)
		}
		floats.LogSpan(edges, l.Lower, l.Upper)
		if scale == LogZero {
			edges[0] = 0
		}
	default:
		return nil, fmt.Errorf("%w: scale %d", pq.ErrOptions, scale)
	}
	return edges, nil
}

// Index returns the bin of edges holding x, or -1 when x is outside them.
// Bins are closed on the left; the last bin is also closed on the right.
func Index(edges []float64, x float64) int {
	n := len(edges)
	if n < 2 || math.IsNaN(x) || x < edges[0] || x > edges[n-1] {
		return -1
	}
	i := sort.SearchFloat64s(edges, x)
	if i == n-1 || (i < n && edges[i] != x) {
		i--
	}
	return i
}

// ParseOffsets reads a comma separated list of offsets, one per channel.
// Values past the channel count are ignored.
func ParseOffsets(s string, channels int) ([]int64, error) {
	var out []int64
	for _, p := range split(s) {
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: offset is not an integer: %q", pq.ErrOptions, p)
		}
		out = append(out, v)
	}
	if len(out) < channels {
		return nil, fmt.Errorf("%w: not enough offsets specified (%d found, %d channels)", pq.ErrOptions, len(out), channels)
	}
	return out[:channels], nil
}

// ParseSuppress reads a comma separated list of channels to drop
func ParseSuppress(s string, channels int) (map[int]bool, error) {
	out := map[int]bool{}
	for _, p := range split(s) {
		if p == "" {
			continue
		}
		ch, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: suppressed channel is not an integer: %q", pq.ErrOptions, p)
		}
		if ch < 0 || ch >= channels {
			return nil, fmt.Errorf("%w: suppressed channel %d is not in [0, %d)", pq.ErrOptions, ch, channels)
		}
		if out[ch] {
			pq.Warn("channel %d suppressed more than once", ch)
		}
		out[ch] = true
	}
	return out, nil
}
