package ui

import "strings"

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// truncateMiddle keeps the start and the end of value, which suits file
// paths where the file name matters most.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 5 {
		return string(runes[:limit])
	}
	endLen := (limit - 3) * 2 / 3
	startLen := limit - 3 - endLen
	return string(runes[:startLen]) + "..." + string(runes[len(runes)-endLen:])
}
