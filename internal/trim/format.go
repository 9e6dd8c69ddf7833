package trim

import (
	"fmt"
	"time"
)

// FormatTime renders d as mm:ss.ff, or hh:mm:ss.ff from one hour on.
// Negative durations render as zero.
func FormatTime(d time.Duration) string {
	d = max(d, 0).Round(10 * time.Millisecond)
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := d.Seconds()

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%05.2f", minutes, seconds)
}
