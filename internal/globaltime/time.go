// Package globaltime is the process-wide clock. Production code reads it
// like time.Now; tests pin it to fabricate retention and throttle windows.
package globaltime

import (
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

var (
	mu   sync.RWMutex
	mock *time.Time
)

// Now returns the current time, or the pinned mock when one is set.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	if mock != nil {
		return *mock
	}
	return time.Now()
}

// UTC is Now in UTC. Tracker timestamps are stored in UTC so state files
// compare cleanly across host timezones.
func UTC() time.Time {
	return Now().UTC()
}

// LocalDate returns the current local calendar date. It keys the today
// collection scope and the daily batch file.
func LocalDate() string {
	return Now().Format(dateLayout)
}

// SetMockTime pins the clock until ResetTime is called.
func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	mock = &t
}

// ResetTime restores the real clock.
func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	mock = nil
}
