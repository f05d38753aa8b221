// Package timeutil provides contest clock helpers: conversion between
// absolute timestamps and contest-relative seconds, the "H:MM:SS" relative
// notation used in contest configuration and API payloads, and the rounding
// the scoring pipeline relies on.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Contest-relative seconds
// ═══════════════════════════════════════════════════════════════════════════

// ElapsedSeconds returns how many seconds into the contest t is, as a
// fractional value. Negative for times before the start.
func ElapsedSeconds(start, t time.Time) float64 {
	return t.Sub(start).Seconds()
}

// AbsoluteTime converts contest-relative seconds back to a wall clock time.
func AbsoluteTime(start time.Time, seconds float64) time.Time {
	return start.Add(time.Duration(seconds * float64(time.Second)))
}

// RoundSeconds rounds contest-relative seconds to 4 decimal places, the
// precision submission times are stored and compared at. Two submissions
// closer together than 100 microseconds count as simultaneous.
func RoundSeconds(seconds float64) float64 {
	return math.Round(seconds*10000) / 10000
}

// PenaltyMinutes converts contest-relative seconds to the whole minutes
// shown on a classic scoreboard. Truncates: second 59 is still minute 0.
func PenaltyMinutes(seconds float64) int64 {
	return int64(seconds) / 60
}

// ═══════════════════════════════════════════════════════════════════════════
// Relative time notation
// ═══════════════════════════════════════════════════════════════════════════

// relTimePattern matches "[-]H:MM:SS[.uuu]" with unbounded hours.
var relTimePattern = regexp.MustCompile(`^(-)?(\d+):([0-5]\d):([0-5]\d)(?:\.(\d{1,6}))?$`)

// ParseRelative parses the "[-]H:MM:SS[.uuu]" notation used for freeze
// offsets and contest lengths, for example "4:30:00" or "-0:15:00".
func ParseRelative(s string) (time.Duration, error) {
	m := relTimePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid relative time %q: want [-]H:MM:SS[.uuu]", s)
	}

	hours, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid relative time %q: %w", s, err)
	}
	minutes, _ := strconv.ParseInt(m[3], 10, 64)
	seconds, _ := strconv.ParseInt(m[4], 10, 64)

	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second

	if m[5] != "" {
		// Pad to microseconds: ".5" means 500000us
		frac := m[5] + strings.Repeat("0", 6-len(m[5]))
		micros, _ := strconv.ParseInt(frac, 10, 64)
		d += time.Duration(micros) * time.Microsecond
	}

	if m[1] == "-" {
		d = -d
	}

	return d, nil
}

// FormatRelative renders a duration in the "[-]H:MM:SS" notation,
// truncating fractional seconds.
func FormatRelative(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	total := int64(d / time.Second)
	return fmt.Sprintf("%s%d:%02d:%02d", sign, total/3600, (total/60)%60, total%60)
}

// FormatSeconds renders contest-relative seconds in "[-]H:MM:SS" notation.
func FormatSeconds(seconds float64) string {
	return FormatRelative(time.Duration(seconds * float64(time.Second)))
}

// ═══════════════════════════════════════════════════════════════════════════
// Wall clock helpers
// ═══════════════════════════════════════════════════════════════════════════

// InWindow reports whether t falls in the half-open interval [from, until).
// A nil bound is unbounded on that side.
func InWindow(t time.Time, from, until *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if until != nil && !t.Before(*until) {
		return false
	}
	return true
}

// FormatAPI renders a timestamp the way the API exposes it, RFC 3339 with
// millisecond precision in UTC.
func FormatAPI(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseAPI parses an RFC 3339 timestamp.
func ParseAPI(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
