package repositories

import (
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time. Repositories store UTC.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func newID() string {
	return uuid.NewString()
}
