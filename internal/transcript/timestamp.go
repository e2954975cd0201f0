package transcript

import (
	"strconv"
	"strings"
)

// ParseTimestamp converts H:MM:SS.mmm or MM:SS.mmm into seconds. A comma is
// accepted as the fractional separator. Malformed values yield 0.
func ParseTimestamp(value string) float64 {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return 0
	}
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	var hours, minutes int
	var err error
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil || hours < 0 {
			return 0
		}
		parts = parts[1:]
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil || minutes < 0 {
		return 0
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || seconds < 0 || strings.ContainsAny(parts[1], "eE+-") {
		return 0
	}
	return float64(hours*3600+minutes*60) + seconds
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds*1000 + 0.5)
	hours := totalMillis / 3_600_000
	minutes := (totalMillis % 3_600_000) / 60_000
	secs := (totalMillis % 60_000) / 1000
	millis := totalMillis % 1000
	var b strings.Builder
	b.WriteString(pad(hours, 2))
	b.WriteByte(':')
	b.WriteString(pad(minutes, 2))
	b.WriteByte(':')
	b.WriteString(pad(secs, 2))
	b.WriteByte('.')
	b.WriteString(pad(millis, 3))
	return b.String()
}

func pad(value int64, width int) string {
	s := strconv.FormatInt(value, 10)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
