package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
	year = 52 * week
)

var ageUnits = map[byte]time.Duration{
	'd': day,
	'w': week,
	'y': year,
}

// ParseAge parses an age such as "30d", "6w" or "2y", falling back to
// time.ParseDuration for anything else ("36h", "90m").
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty age")
	}

	var age time.Duration
	if unit, ok := ageUnits[s[len(s)-1]]; ok {
		n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid age %q: %w", s, err)
		}
		if n > int64(time.Duration(1<<63-1)/unit) {
			return 0, fmt.Errorf("age %q is too large", s)
		}
		age = time.Duration(n) * unit
	} else {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid age %q: use e.g. 30d, 6w, 1y or 36h", s)
		}
		age = d
	}

	if age <= 0 {
		return 0, fmt.Errorf("age %q must be positive", s)
	}
	return age, nil
}

// HumanDuration renders d in its largest whole unit, so 53 weeks is "1 year".
func HumanDuration(d time.Duration) string {
	switch {
	case d >= year:
		return plural(int64(d/year), "year")
	case d >= week:
		return plural(int64(d/week), "week")
	case d >= day:
		return plural(int64(d/day), "day")
	case d >= time.Hour:
		return plural(int64(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int64(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
