package scraper

import (
	"context"
	"sync"
	"time"
)

// payloadLatch holds at most one captured payload. The first offer wins and
// later offers are ignored; waiters are woken by closing done.
type payloadLatch struct {
	once sync.Once
	done chan struct{}

	// Written once inside once.Do, read only after done is closed.
	url  string
	body []byte
}

func newPayloadLatch() *payloadLatch {
	return &payloadLatch{done: make(chan struct{})}
}

// offer stores body unless a payload is already held. It reports whether
// this call set the latch.
func (l *payloadLatch) offer(url string, body []byte) bool {
	set := false
	l.once.Do(func() {
		l.url = url
		l.body = body
		close(l.done)
		set = true
	})
	return set
}

// isSet reports whether a payload is held.
func (l *payloadLatch) isSet() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// get returns the held payload, if any.
func (l *payloadLatch) get() (string, []byte, bool) {
	if !l.isSet() {
		return "", nil, false
	}
	return l.url, l.body, true
}

// wait blocks until the latch is set, d elapses or ctx ends, and reports
// whether a payload is held.
func (l *payloadLatch) wait(ctx context.Context, d time.Duration) bool {
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-l.done:
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	return l.isSet()
}
