package views

import (
	"fmt"
	"time"
)

// RelativeTime renders t relative to now the way the dashboard shows it.
func RelativeTime(now, t time.Time) string {
	minutes := int(now.Sub(t) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	default:
		return fmt.Sprintf("%dh ago", minutes/60)
	}
}

// Elapsed is the longer form used on order cards.
func Elapsed(now, t time.Time) string {
	minutes := int(now.Sub(t) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	default:
		return fmt.Sprintf("%dh %dm ago", minutes/60, minutes%60)
	}
}
