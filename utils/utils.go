package utils

import (
	"fmt"
)

// GenerateRateLimitKey creates a unique key for rate limiting
func GenerateRateLimitKey(userID, campaignID, path string) string {
	return fmt.Sprintf("rl:%s:%s:%s", userID, campaignID, path)
}

// Pointer returns a pointer to its argument, for literal struct fields.
func Pointer[T any](v T) *T {
	return &v
}
