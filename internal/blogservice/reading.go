package blogservice

import "strings"

const wordsPerMinute = 200

// readingTime estimates the minutes needed to read the body, assuming
// 200 words per minute, never less than one minute. It is recomputed
// on every save rather than cached.
func readingTime(body string) int {
	words := len(strings.Fields(body))

	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}

	return minutes
}
