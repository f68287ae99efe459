package account

import (
	"strings"
	"sync"
	"time"
)

type attemptsItem struct {
	count     int
	touchedAt time.Time
}

// NewLimiter creates the failed-attempts counter that guards the
// credentials-based operations against brute force. An entry expires
// Window after it was last touched; an over-limit hit refreshes the
// window, so hammering a locked key keeps it locked.
func NewLimiter() *Limiter {
	return &Limiter{
		MaxAttempts: 4,
		Window:      time.Minute,
		data:        make(map[string]*attemptsItem),
	}
}

type Limiter struct {
	MaxAttempts int
	Window      time.Duration

	lock sync.Mutex
	data map[string]*attemptsItem
}

// Exceeded reports whether the key has reached the attempts limit
// within the current window.
func (l *Limiter) Exceeded(key string) bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	item := l.liveItem(key)
	if item == nil || item.count < l.MaxAttempts {
		return false
	}

	item.touchedAt = now()

	return true
}

// Failure records a failed attempt for the key.
func (l *Limiter) Failure(key string) {
	l.lock.Lock()
	defer l.lock.Unlock()

	item := l.liveItem(key)
	if item == nil {
		item = &attemptsItem{}
		l.data[normalizeKey(key)] = item
	}

	item.count++
	item.touchedAt = now()
}

// l.lock must be held by the caller. Expired entries are pruned on
// access, so the map never outgrows the set of recently failing keys.
func (l *Limiter) liveItem(key string) *attemptsItem {
	normalized := normalizeKey(key)
	item, exists := l.data[normalized]
	if !exists {
		return nil
	}

	if item.touchedAt.Add(l.Window).Before(now()) {
		delete(l.data, normalized)
		return nil
	}

	return item
}

func normalizeKey(key string) string {
	return strings.ToLower(key)
}
