// Package flood provides per-client rate limiting for the public relay
// endpoints.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed limiting window (always 1 minute).
	windowDuration = 60 * time.Second
	// cleanupInterval is how often expired entries are swept.
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long before an idle client entry is removed.
	idleTimeout = 10 * time.Minute
)

// Floodgate limits requests per client with a sliding one-minute window.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*clientEntry
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
}

type clientEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a Floodgate allowing limitPerMinute requests per client.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*clientEntry),
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine.
func (fg *Floodgate) Stop() {
	close(fg.stopCleanup)
}

// Allow reports whether a request from the client should be served, and
// records it when allowed.
func (fg *Floodgate) Allow(clientKey string) bool {
	now := time.Now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[clientKey]
	if !exists {
		entry = &clientEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[clientKey] = entry
	}

	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	validTimestamps := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			validTimestamps = append(validTimestamps, ts)
		}
	}
	entry.timestamps = validTimestamps

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

func (fg *Floodgate) cleanup() {
	fg.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := time.Now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// Stats contains floodgate statistics for monitoring.
type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}

// GetStats returns statistics about the floodgate.
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveClients:  len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}
