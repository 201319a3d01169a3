package report

import (
	"strconv"
	"strings"
)

// ComputeTotalHours returns the worked hours between two kiosk time strings
// ("9:00:00 AM" form) with two decimals. A negative difference is treated as
// an overnight wrap. Returns "" when either side is missing or unparseable.
func ComputeTotalHours(logIn, logOut string) string {
	in, ok := parseClockMinutes(logIn)
	if !ok {
		return ""
	}
	out, ok := parseClockMinutes(logOut)
	if !ok {
		return ""
	}
	diff := out - in
	if diff < 0 {
		diff += 24 * 60
	}
	return strconv.FormatFloat(float64(diff)/60, 'f', 2, 64)
}

// CompareClock orders two time strings within a day. Unparseable or missing
// values compare equal, letting callers fall back to timestamps.
func CompareClock(a, b string) int {
	am, aok := parseClockMinutes(a)
	bm, bok := parseClockMinutes(b)
	if !aok || !bok {
		return 0
	}
	switch {
	case am < bm:
		return -1
	case am > bm:
		return 1
	default:
		return 0
	}
}

// parseClockMinutes reads a 12-hour clock string into minutes since
// midnight. Seconds are ignored; a missing meridiem leaves the hour as-is.
func parseClockMinutes(s string) (int, bool) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0, false
	}
	hm := strings.Split(fields[0], ":")
	if len(hm) < 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil {
		return 0, false
	}
	if len(fields) > 1 {
		switch strings.ToUpper(fields[1]) {
		case "PM":
			if hour < 12 {
				hour += 12
			}
		case "AM":
			if hour == 12 {
				hour = 0
			}
		}
	}
	return hour*60 + minute, true
}
