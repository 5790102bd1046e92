// Package timeutil provides duration utilities for the onboarding engine.
// Workflow timeout policies arrive as advisory duration strings in several
// dialects (ISO-8601, Go, human-readable); this package normalizes them.
// No external dependencies - uses only standard library.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseableDuration is returned when a duration string matches no known
// dialect. Callers treat this as "no timeout" (fail-open), never as a hard
// failure of the operation that carried the string.
var ErrUnparseableDuration = errors.New("unparseable duration string")

// ParseAdvisoryDuration parses an advisory timeout string. Accepted forms:
//
//   - Go durations: "72h", "30m", "1h30m"
//   - ISO-8601 durations: "P7D", "P2W", "PT12H", "P1DT6H"
//   - human-readable: "7 days", "2 weeks", "36 hours", "90 minutes", "1 day"
//
// An empty string and any unrecognized form return ErrUnparseableDuration.
func ParseAdvisoryDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrUnparseableDuration
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("%w: %q is not positive", ErrUnparseableDuration, s)
		}
		return d, nil
	}

	if d, err := parseISO8601(s); err == nil {
		return d, nil
	}

	if d, err := parseHuman(s); err == nil {
		return d, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnparseableDuration, s)
}

// parseISO8601 parses the calendar-free subset of ISO-8601 durations:
// P[nW][nD][T[nH][nM][nS]]. Weeks and days use fixed 7d/24h arithmetic.
func parseISO8601(s string) (time.Duration, error) {
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "P") || len(upper) < 2 {
		return 0, ErrUnparseableDuration
	}

	datePart := upper[1:]
	timePart := ""
	if i := strings.IndexByte(datePart, 'T'); i >= 0 {
		timePart = datePart[i+1:]
		datePart = datePart[:i]
	}

	var total time.Duration
	var err error
	if total, err = parseISOUnits(datePart, map[byte]time.Duration{
		'W': 7 * 24 * time.Hour,
		'D': 24 * time.Hour,
	}); err != nil {
		return 0, err
	}

	timed, err := parseISOUnits(timePart, map[byte]time.Duration{
		'H': time.Hour,
		'M': time.Minute,
		'S': time.Second,
	})
	if err != nil {
		return 0, err
	}
	total += timed

	if total <= 0 {
		return 0, ErrUnparseableDuration
	}
	return total, nil
}

func parseISOUnits(part string, units map[byte]time.Duration) (time.Duration, error) {
	var total time.Duration
	start := 0
	for i := 0; i < len(part); i++ {
		c := part[i]
		if c >= '0' && c <= '9' {
			continue
		}
		unit, ok := units[c]
		if !ok || i == start {
			return 0, ErrUnparseableDuration
		}
		n, err := strconv.Atoi(part[start:i])
		if err != nil {
			return 0, ErrUnparseableDuration
		}
		total += time.Duration(n) * unit
		start = i + 1
	}
	if start != len(part) {
		return 0, ErrUnparseableDuration
	}
	return total, nil
}

// parseHuman parses "<n> <unit>" forms such as "7 days" or "1 week".
func parseHuman(s string) (time.Duration, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) != 2 {
		return 0, ErrUnparseableDuration
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, ErrUnparseableDuration
	}

	unit := strings.TrimSuffix(fields[1], "s")
	switch unit {
	case "second", "sec":
		return time.Duration(n) * time.Second, nil
	case "minute", "min":
		return time.Duration(n) * time.Minute, nil
	case "hour":
		return time.Duration(n) * time.Hour, nil
	case "day":
		return time.Duration(n) * 24 * time.Hour, nil
	case "week":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, ErrUnparseableDuration
	}
}
