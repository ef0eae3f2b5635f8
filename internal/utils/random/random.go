package random

import "github.com/google/uuid"

// NewRunID returns a fresh identifier for one attack run.
func NewRunID() string {
	return uuid.NewString()
}

// ShortID is the first block of a run id, for display.
func ShortID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
