package cli

import (
	"fmt"
	"time"
)

// FormatDuration formats d for humans: 850ms, 4.2s, 3m7.5s, 2h05m.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		mins := int(d / time.Minute)
		secs := (d - time.Duration(mins)*time.Minute).Seconds()
		return fmt.Sprintf("%dm%.1fs", mins, secs)
	default:
		hours := int(d / time.Hour)
		mins := int((d - time.Duration(hours)*time.Hour) / time.Minute)
		return fmt.Sprintf("%dh%02dm", hours, mins)
	}
}

// FormatBytes formats bytes to human readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatGB formats a size already in GiB.
func FormatGB(gb float64) string {
	return fmt.Sprintf("%.1f GB", gb)
}

// FormatSemitones formats a pitch shift with its sign: +3 st, -7 st, 0 st.
func FormatSemitones(st float64) string {
	if st > 0 {
		return fmt.Sprintf("+%g st", st)
	}
	return fmt.Sprintf("%g st", st)
}
