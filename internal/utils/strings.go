// Package utils provides common utility functions.
package utils

// MaskKey masks an access token for safe logging (shows first 8 and last 4 chars).
// Use this to avoid logging guest credentials in plain text.
func MaskKey(key string) string {
	if key == "" {
		return "(empty)"
	}
	if len(key) < 16 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

// Truncate limits a string to maxLen bytes, appending "..." when cut.
// Used to keep logged message excerpts and audit details bounded.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
