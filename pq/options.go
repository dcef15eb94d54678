package pq

import (
	"fmt"
	"math"
)

// Reporter receives the running record count of a stream
type Reporter interface {
	Report(count int64)
}

// Options controls what a decoder writes and how much of the input it reads
type Options struct {
	// Number is the maximum number of photon records to write
	Number int64

	// PrintEvery prints a status line to the log every so many records, 0 disables it
	PrintEvery int64

	BinaryOut       bool
	Proto           bool
	PrintHeader     bool
	PrintResolution bool
	PrintMode       bool
	ToT2            bool
	PrintMarkers    bool

	// Channels is the number of channels the per-channel options apply to
	Channels int

	// Suppress holds the channels whose records are dropped
	Suppress map[int]bool

	// TimeOffsets is added to the time of each record, indexed by channel
	TimeOffsets []int64

	// PulseOffsets is added to the pulse of each t3 record, indexed by channel
	PulseOffsets []int64

	// Progress, if not nil, is told the record count as the stream advances
	Progress Reporter
}

// DefaultOptions returns options which decode the whole file to csv
func DefaultOptions() Options {
	return Options{Number: math.MaxInt64}
}

// Validate checks that options which depend on each other are consistent
func (o Options) Validate() error {
	n := 0
	for _, b := range []bool{o.PrintHeader, o.PrintResolution, o.PrintMode} {
		if b {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("%w: only one of header, resolution or mode may be printed", ErrOptions)
	}
	if o.BinaryOut && o.Proto {
		return fmt.Errorf("%w: binary and proto output are exclusive", ErrOptions)
	}
	if o.Number < 0 {
		return fmt.Errorf("%w: number of records must be positive, got %d", ErrOptions, o.Number)
	}
	if o.PrintEvery < 0 {
		return fmt.Errorf("%w: print every must be positive, got %d", ErrOptions, o.PrintEvery)
	}
	hasChannelOpts := len(o.Suppress) > 0 || len(o.TimeOffsets) > 0 || len(o.PulseOffsets) > 0
	if hasChannelOpts && o.Channels <= 0 {
		return fmt.Errorf("%w: channel options require the number of channels", ErrOptions)
	}
	if len(o.TimeOffsets) > 0 && len(o.TimeOffsets) < o.Channels {
		return fmt.Errorf("%w: not enough time offsets specified (%d found)", ErrOptions, len(o.TimeOffsets))
	}
	if len(o.PulseOffsets) > 0 && len(o.PulseOffsets) < o.Channels {
		return fmt.Errorf("%w: not enough pulse offsets specified (%d found)", ErrOptions, len(o.PulseOffsets))
	}
	return nil
}

func (o Options) suppressed(channel uint32) bool {
	return o.Suppress[int(channel)]
}

func offset(offsets []int64, channel uint32) int64 {
	if int(channel) < len(offsets) {
		return offsets[channel]
	}
	return 0
}

func shift(v uint64, by int64) uint64 {
	if by < 0 && uint64(-by) > v {
		return 0
	}
	return uint64(int64(v) + by)
}
