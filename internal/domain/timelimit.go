package domain

import (
	"fmt"
	"time"
)

// TimeLimitPresets are the per-question limits offered at authoring time, in seconds.
var TimeLimitPresets = []int{10, 20, 30, 60, 120, 180, 240, 300}

// MaxTimeLimit is the longest per-question limit accepted, in seconds.
const MaxTimeLimit = 3600

// ValidTimeLimit reports whether seconds is usable as a question limit.
// Presets are suggestions; any value in (0, MaxTimeLimit] is accepted.
func ValidTimeLimit(seconds int) bool {
	return seconds > 0 && seconds <= MaxTimeLimit
}

// FormatSeconds renders a limit like "1 min 30 sec".
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	mins, secs := seconds/60, seconds%60
	switch {
	case mins == 0:
		return fmt.Sprintf("%d sec", secs)
	case secs == 0:
		return fmt.Sprintf("%d min", mins)
	default:
		return fmt.Sprintf("%d min %d sec", mins, secs)
	}
}

// FormatDuration formats d rounded down to whole seconds.
func FormatDuration(d time.Duration) string {
	return FormatSeconds(int(d / time.Second))
}
