package core

import (
	"errors"
	"strconv"
)

// Hertz is a frequency in cycles per second
type Hertz uint32

const (
	maxPrescalerDiv = 0x10000 // PSC+1
	// ARR is kept below 0xFFFF so that max duty (ARR+1) fits a 16-bit threshold
	maxReload = 0xFFFE
)

var ErrFrequencyOutOfRange = errors.New("frequency out of range for timer clock")

// FrequencyError reports that the requested frequency is not exactly
// representable. The timebase returned alongside it is still usable.
type FrequencyError struct {
	Requested    Hertz
	Achieved     Hertz // rounded to the nearest hertz
	DeviationPPM int64 // (achieved-requested)/requested in parts per million
}

func (e *FrequencyError) Error() string {
	return "frequency " + strconv.FormatUint(uint64(e.Requested), 10) +
		" Hz not exact, achievable " + strconv.FormatUint(uint64(e.Achieved), 10) +
		" Hz (" + strconv.FormatInt(e.DeviationPPM, 10) + " ppm)"
}

// IsInexact reports whether err only signals an approximate frequency
func IsInexact(err error) bool {
	var fe *FrequencyError
	return errors.As(err, &fe)
}

// Timebase is a prescaler/reload pair.
// The counter runs (Prescaler+1)*(Reload+1) clock ticks per period.
type Timebase struct {
	Prescaler uint32
	Reload    uint32
	Achieved  Hertz
}

// MaxDuty is the number of distinct compare thresholds, Reload+1
func (t Timebase) MaxDuty() uint32 {
	return t.Reload + 1
}

// ComputeTimebase picks the prescaler/reload pair closest to hz, preferring
// the smallest prescaler (finest duty resolution) among equally good pairs.
// A *FrequencyError is returned together with a valid timebase when the
// result is not exact.
func ComputeTimebase(clock, hz Hertz) (Timebase, error) {
	if hz == 0 || hz > clock/2 {
		return Timebase{}, ErrFrequencyOutOfRange
	}

	clk := int64(clock)
	f := int64(hz)
	ticks := (clk + f/2) / f
	minDiv := (ticks + maxReload) / (maxReload + 1)
	if minDiv > maxPrescalerDiv {
		return Timebase{}, ErrFrequencyOutOfRange
	}

	bestDiv, bestPeriod := int64(0), int64(0)
	bestDiff := int64(-1)
	for div := minDiv; div <= maxPrescalerDiv; div++ {
		period := (ticks + div/2) / div
		if period > maxReload+1 {
			continue
		}
		if period < 1 {
			break
		}
		diff := clk - f*div*period
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			bestDiv, bestPeriod, bestDiff = div, period, diff
		}
		if diff == 0 {
			break
		}
	}
	if bestDiff < 0 {
		return Timebase{}, ErrFrequencyOutOfRange
	}

	n := bestDiv * bestPeriod
	tb := Timebase{
		Prescaler: uint32(bestDiv - 1),
		Reload:    uint32(bestPeriod - 1),
		Achieved:  Hertz((clk + n/2) / n),
	}
	if bestDiff == 0 {
		return tb, nil
	}
	return tb, &FrequencyError{
		Requested:    hz,
		Achieved:     tb.Achieved,
		DeviationPPM: (clk - f*n) * 1000000 / (f * n),
	}
}
