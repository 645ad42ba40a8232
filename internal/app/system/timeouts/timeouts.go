// Package timeouts provides centralized timeout values for I/O in HTTP
// handlers and background workers.
//
// Values start at the defaults below and can be overridden from the
// environment at startup via ConfigureFromEnv. Access is through the
// getter functions.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Long: a background pass over one collection (the resync sweep)
//   - Batch: a full reconciliation pass across every external system
package timeouts

import (
	"os"
	"sync"
	"time"
)

// Default timeout values (used unless overridden from the environment).
const (
	DefaultPing  = 2 * time.Second
	DefaultLong  = 30 * time.Second
	DefaultBatch = 60 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	ping  = DefaultPing
	long  = DefaultLong
	batch = DefaultBatch
)

// Ping returns the timeout for health checks and connectivity verification.
// Used by the health endpoint and by startup pings.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Long returns the timeout for a background pass over one collection.
// The resync sweep uses it to bound each enumeration of active groups.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Batch returns the timeout for a full reconciliation pass: provisioning,
// permission diffs, calendar patches, and reminder scheduling for one group.
func Batch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return batch
}

// ConfigureFromEnv reads timeout overrides from environment variables.
// All are optional; unset or unparsable values keep the defaults:
//   - TIMEOUT_PING: e.g., "2s", "500ms"
//   - TIMEOUT_LONG: e.g., "30s"
//   - TIMEOUT_BATCH: e.g., "60s", "2m"
//
// Returns the number of timeouts successfully configured from environment.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0

	if v := os.Getenv("TIMEOUT_PING"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ping = d
			configured++
		}
	}
	if v := os.Getenv("TIMEOUT_LONG"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			long = d
			configured++
		}
	}
	if v := os.Getenv("TIMEOUT_BATCH"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			batch = d
			configured++
		}
	}

	return configured
}
