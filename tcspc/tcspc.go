// Package tcspc holds the mode, status flag and warning constants of the
// PicoHarp and HydraHarp acquisition libraries, with helpers to translate
// them to and from names.
package tcspc

import (
	"fmt"
	"sort"
	"strings"
)

// Device is a TCSPC board family
type Device int

const (
	// PicoHarp is the PicoHarp 300
	PicoHarp Device = iota

	// HydraHarp is the HydraHarp 400
	HydraHarp
)

func (d Device) String() string {
	switch d {
	case PicoHarp:
		return "PicoHarp"
	case HydraHarp:
		return "HydraHarp"
	}
	return fmt.Sprintf("Device(%d)", int(d))
}

var modes = map[Device]map[string]int{
	PicoHarp: {
		"hist": 0,
		"t2":   2,
		"t3":   3,
	},
	HydraHarp: {
		"hist": 0,
		"t2":   2,
		"t3":   3,
		"cont": 8,
	},
}

var flags = map[Device]map[string]int{
	PicoHarp: {
		"overflow": 0x0040,
		"fifofull": 0x0003,
	},
	HydraHarp: {
		"overflow":  0x0001,
		"fifofull":  0x0002,
		"sync_lost": 0x0004,
		"ref_lost":  0x0008,
		"syserror":  0x0010,
		"active":    0x0020,
	},
}

var warnings = map[Device]map[string]int{
	PicoHarp: {
		"inp0_rate_zero":      0x0001,
		"inp0_rate_too_low":   0x0002,
		"inp0_rate_too_high":  0x0004,
		"inp1_rate_zero":      0x0010,
		"inp1_rate_too_high":  0x0040,
		"inp_rate_ratio":      0x0100,
		"divider_greater_one": 0x0200,
		"time_span_too_small": 0x0400,
		"offset_unnecessary":  0x0800,
	},
	HydraHarp: {
		"sync_rate_zero":      0x0001,
		"sync_rate_too_low":   0x0002,
		"sync_rate_too_high":  0x0004,
		"inpt_rate_zero":      0x0010,
		"inpt_rate_too_high":  0x0040,
		"inpt_rate_ratio":     0x0100,
		"divider_greater_one": 0x0200,
		"time_span_too_small": 0x0400,
		"offset_unnecessary":  0x0800,
	},
}

func clone(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Modes returns the measurement modes of d by lowercase name
func Modes(d Device) map[string]int { return clone(modes[d]) }

// Flags returns the status flag masks of d
func Flags(d Device) map[string]int { return clone(flags[d]) }

// Warnings returns the warning masks of d
func Warnings(d Device) map[string]int { return clone(warnings[d]) }

// ModeNumber returns the numeric mode for mode, which is either the name
// of a mode in any case or already a mode number
func ModeNumber(d Device, mode interface{}) (int, error) {
	switch v := mode.(type) {
	case string:
		n, ok := modes[d][strings.ToLower(v)]
		if !ok {
			return 0, fmt.Errorf("unsupported mode: %s", v)
		}
		return n, nil
	case int:
		return v, nil
	}
	return 0, fmt.Errorf("invalid mode type %T for %v (expected int or string)", mode, mode)
}

// ValidMode reports whether ModeNumber accepts mode
func ValidMode(d Device, mode interface{}) bool {
	_, err := ModeNumber(d, mode)
	return err == nil
}

func decode(table map[string]int, v int) []string {
	var out []string
	for name, mask := range table {
		if v&mask == mask {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// DecodeFlags returns the sorted names of the flags set in v
func DecodeFlags(d Device, v int) []string { return decode(flags[d], v) }

// DecodeWarnings returns the sorted names of the warnings set in v
func DecodeWarnings(d Device, v int) []string { return decode(warnings[d], v) }

// CodeError is a nonzero status returned by a library call
type CodeError struct {
	Code int
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("error code %d", e.Code)
}

// Check returns nil for a zero status and a *CodeError otherwise
func Check(code int) error {
	if code == 0 {
		return nil
	}
	return &CodeError{Code: code}
}
