package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

type lockoutEntry struct {
	failures    int
	lastFailure time.Time
	expiresAt   time.Time // zero while not locked
}

// LockoutTracker counts failed logins per username and locks the username
// once the threshold is reached. Failures older than the lockout duration
// are forgotten. State is in memory only.
type LockoutTracker struct {
	mu        sync.Mutex
	entries   map[string]*lockoutEntry
	threshold int
	duration  time.Duration
	now       func() time.Time
}

// NewLockoutTracker creates a new lockout tracker. A threshold of zero or less
// disables lockout.
func NewLockoutTracker(threshold int, duration time.Duration) *LockoutTracker {
	return &LockoutTracker{
		entries:   make(map[string]*lockoutEntry),
		threshold: threshold,
		duration:  duration,
		now:       time.Now,
	}
}

func lockoutKey(username string) string {
	return strings.ToLower(username)
}

// RecordFailure records a failed login attempt.
// Returns true if the username is now locked.
func (t *LockoutTracker) RecordFailure(username string) bool {
	if t.threshold <= 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := lockoutKey(username)
	now := t.now()

	entry, ok := t.entries[key]
	if !ok {
		entry = &lockoutEntry{}
		t.entries[key] = entry
	}

	if !entry.expiresAt.IsZero() {
		if now.Before(entry.expiresAt) {
			return true
		}
		entry.failures = 0
		entry.expiresAt = time.Time{}
	} else if t.idle(entry, now) {
		entry.failures = 0
	}

	entry.failures++
	entry.lastFailure = now
	if entry.failures >= t.threshold {
		entry.expiresAt = now.Add(t.duration)
		return true
	}
	return false
}

// IsLocked returns true if the username is currently locked.
func (t *LockoutTracker) IsLocked(username string) bool {
	return t.RemainingLockoutTime(username) > 0
}

// RemainingLockoutTime returns how long until the lockout expires.
func (t *LockoutTracker) RemainingLockoutTime(username string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[lockoutKey(username)]
	if !ok || entry.expiresAt.IsZero() {
		return 0
	}
	remaining := entry.expiresAt.Sub(t.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ClearFailures clears failed attempts on successful login.
func (t *LockoutTracker) ClearFailures(username string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, lockoutKey(username))
}

// Run removes expired entries every interval until ctx is done.
func (t *LockoutTracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.cleanup()
		}
	}
}

// idle reports whether an unlocked entry's failures have aged out.
func (t *LockoutTracker) idle(entry *lockoutEntry, now time.Time) bool {
	return now.Sub(entry.lastFailure) > t.duration
}

func (t *LockoutTracker) cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, entry := range t.entries {
		if entry.expiresAt.IsZero() {
			if t.idle(entry, now) {
				delete(t.entries, key)
			}
			continue
		}
		if now.After(entry.expiresAt) {
			delete(t.entries, key)
		}
	}
}

func (t *LockoutTracker) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
