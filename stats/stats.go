// Package stats summarises a decoded stream: counts per channel, the mean
// and spread of the arrival times, and optionally a histogram of them.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/nasa-jpl/picoquant/limits"
	"github.com/nasa-jpl/picoquant/pq"
)

// Channel summarises the records of one channel, or the bins of one
// curve of an interactive file.  Times are in ps.
type Channel struct {
	Channel int       `json:"channel"`
	Count   int64     `json:"count"`
	Mean    float64   `json:"mean"`
	StdDev  float64   `json:"stddev"`
	Hist    []float64 `json:"hist,omitempty"`
}

// Summary is the result of Compute
type Summary struct {
	Mode     string    `json:"mode"`
	Records  int64     `json:"records"`
	Markers  int64     `json:"markers"`
	Edges    []float64 `json:"edges,omitempty"`
	Channels []Channel `json:"channels"`
}

// collector is a pq.Sink which keeps the arrival times of each channel
type collector struct {
	times   map[int][]float64
	total   int64
	markers int64
}

func (c *collector) add(channel uint32, t float64) error {
	if c.total >= pq.MaxAlloc {
		return fmt.Errorf("%w: more than %d records, limit the count", pq.ErrMemory, pq.MaxAlloc)
	}
	c.total++
	c.times[int(channel)] = append(c.times[int(channel)], t)
	return nil
}

func (c *collector) WriteT2(r pq.T2) error { return c.add(r.Channel, float64(r.Time)) }

func (c *collector) WriteT3(r pq.T3) error { return c.add(r.Channel, float64(r.Time)) }

func (c *collector) WriteMarker(pq.Marker) error {
	c.markers++
	return nil
}

func (c *collector) WriteBin(pq.Bin) error { return nil }

func (c *collector) WriteResolution(int, float64) error { return nil }

func (c *collector) Flush() error { return nil }

func histogram(edges, xs, weights []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	out := make([]float64, len(edges)-1)
	for i, x := range xs {
		if j := limits.Index(edges, x); j >= 0 {
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			out[j] += w
		}
	}
	return out
}

// meanStdDev is stat.MeanStdDev with the spread of a single sample set to 0
func meanStdDev(xs, weights []float64) (float64, float64) {
	mean, std := stat.MeanStdDev(xs, weights)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// Compute streams f and summarises it.  Time-tagged records are grouped
// by channel; curves of an interactive file are summarised by bin centre
// weighted by counts.  When edges is not nil each channel also gets a
// histogram of its times over edges.
func Compute(f *pq.File, opts pq.Options, edges []float64) (*Summary, error) {
	s := &Summary{Mode: f.Mode.String(), Edges: edges}
	if f.Mode == pq.ModeInteractive {
		curves, err := f.LoadCurves()
		if err != nil {
			return nil, err
		}
		for i, c := range curves {
			xs := make([]float64, len(c.Counts))
			ws := make([]float64, len(c.Counts))
			var n int64
			for j, v := range c.Counts {
				b := c.Bin(i, j)
				xs[j] = (b.Left + b.Right) / 2 * 1e3
				ws[j] = float64(v)
				n += int64(v)
			}
			ch := Channel{Channel: i, Count: n, Hist: histogram(edges, xs, ws)}
			if n > 0 {
				ch.Mean, ch.StdDev = meanStdDev(xs, ws)
			}
			s.Channels = append(s.Channels, ch)
			s.Records += n
		}
		return s, nil
	}

	c := &collector{times: map[int][]float64{}}
	if err := f.Stream(c, opts); err != nil {
		return nil, err
	}
	keys := make([]int, 0, len(c.times))
	for k := range c.times {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		xs := c.times[k]
		ch := Channel{Channel: k, Count: int64(len(xs)), Hist: histogram(edges, xs, nil)}
		ch.Mean, ch.StdDev = meanStdDev(xs, nil)
		s.Channels = append(s.Channels, ch)
	}
	s.Records = c.total
	s.Markers = c.markers
	return s, nil
}
