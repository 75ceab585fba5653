package ui

import (
	"fmt"
	"strings"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// Bar renders done out of total as a fixed-width bar followed by the counts.
// A zero total renders an empty bar.
func Bar(done, total, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if total > 0 {
		if done > total {
			done = total
		}
		filled = done * width / total
	}
	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, done, total)
}

// PrintBar prints a labelled progress bar
func PrintBar(label string, done, total int) {
	write(false, fmt.Sprintf("%s %s", highlightStyle.Render(label), Value(Bar(done, total, 20))))
}
