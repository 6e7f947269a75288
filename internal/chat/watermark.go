package chat

import (
	"fmt"
	"strings"
)

// LastTimestamp scans transcript lines in reverse and returns the normalized
// timestamp of the chronologically last message, assuming an append-only
// export. Returns "" when no header is present.
func LastTimestamp(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		match := headerRe.FindStringSubmatch(lines[i])
		if match == nil {
			continue
		}
		return NormalizeTimestamp(match[1], normalizeTime(match[2]))
	}
	return ""
}

// NormalizeTimestamp rewrites DD/MM/YY + HH:MM:SS into YY/MM/DD HH:MM:SS so
// that lexicographic comparison equals chronological comparison.
func NormalizeTimestamp(date, clock string) string {
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return fmt.Sprintf("%s %s", date, clock)
	}

	day, month, year := pad2(parts[0]), pad2(parts[1]), parts[2]
	if len(year) == 4 {
		year = year[2:]
	}
	return fmt.Sprintf("%s/%s/%s %s", year, month, day, clock)
}

// AlreadyProcessed reports whether a file whose last message carries
// lastTimestamp is covered by the stored watermark.
func AlreadyProcessed(lastTimestamp, storedWatermark string) bool {
	if lastTimestamp == "" || storedWatermark == "" {
		return false
	}
	return lastTimestamp <= storedWatermark
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
