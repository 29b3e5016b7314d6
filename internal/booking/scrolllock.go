package booking

import "sync"

// ScrollLock is the page's background scroll lock. Each open overlay holds a
// lease; the page is locked while at least one lease is outstanding.
type ScrollLock struct {
	mu       sync.Mutex
	holders  int
	onChange func(locked bool)
}

// NewScrollLock creates a lock. onChange, if set, fires when the lock flips.
func NewScrollLock(onChange func(locked bool)) *ScrollLock {
	return &ScrollLock{onChange: onChange}
}

// Acquire takes a lease. The returned release func is idempotent.
func (l *ScrollLock) Acquire() func() {
	l.mu.Lock()
	l.holders++
	first := l.holders == 1
	l.mu.Unlock()
	if first {
		l.notify(true)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.holders--
			last := l.holders == 0
			l.mu.Unlock()
			if last {
				l.notify(false)
			}
		})
	}
}

// Locked reports whether any lease is outstanding.
func (l *ScrollLock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holders > 0
}

func (l *ScrollLock) notify(locked bool) {
	if l.onChange != nil {
		l.onChange(locked)
	}
}
