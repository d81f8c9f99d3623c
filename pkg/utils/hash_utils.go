package utils

import (
	"crypto/sha256"
	"fmt"
)

// CalculateURLHash generates a stable hex digest for a normalized URL
func CalculateURLHash(url string) string {
	if url == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", hash[:16])
}

