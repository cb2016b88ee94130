// ABOUTME: SQL helper functions for query construction.
// ABOUTME: Utilities for escaping LIKE patterns and parsing SQLite timestamps.

package store

import (
	"strings"
	"time"
)

// timestampLayout matches SQLite's CURRENT_TIMESTAMP format (UTC).
const timestampLayout = "2006-01-02 15:04:05"

// escapeSQLLike escapes SQL LIKE pattern special characters so user input
// matches literally. Queries using it must declare ESCAPE '\'.
func escapeSQLLike(pattern string) string {
	// Backslash first to avoid double-escaping
	pattern = strings.ReplaceAll(pattern, "\\", "\\\\")
	pattern = strings.ReplaceAll(pattern, "%", "\\%")
	pattern = strings.ReplaceAll(pattern, "_", "\\_")
	return pattern
}

// parseTimestamp accepts both CURRENT_TIMESTAMP text and the RFC3339 form
// the driver produces for time.Time parameters.
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
