// Package clock maps wall-clock time onto the canonical 15-minute trading
// periods. It is the single source of truth for period arithmetic; no other
// package computes period boundaries itself.
package clock

// PeriodSeconds is the duration of one up/down market period.
const PeriodSeconds int64 = 900

// PeriodStart returns the period timestamp for the Unix second t: the
// 900-second floor of t.
func PeriodStart(t int64) int64 {
	return (t / PeriodSeconds) * PeriodSeconds
}

// TimeRemaining returns the number of seconds left in the period containing
// t. It is in (0, 900]; exactly 900 at a boundary.
func TimeRemaining(t int64) int64 {
	return PeriodStart(t) + PeriodSeconds - t
}

// NextBoundary returns the Unix second at which the next period begins.
func NextBoundary(t int64) int64 {
	return PeriodStart(t) + PeriodSeconds
}
