package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateSessionID returns a random identifier for an optimizer session
func GenerateSessionID() string {
	return uuid.NewString()
}

// GenerateRunID generates a run ID from prefix and a timestamp, e.g. HH-20240102-150405.
// It contains no underscore so the {run_id}_* directory pattern stays unambiguous.
func GenerateRunID(prefix string) string {
	timestamp := time.Now().Format("20060102-150405")
	if prefix == "" {
		return fmt.Sprintf("run-%s", timestamp)
	}
	return fmt.Sprintf("%s-%s", prefix, timestamp)
}
