package pool

import (
	"sync"
	"time"
)

var timerPool = sync.Pool{New: func() any {
	t := time.NewTimer(time.Hour)
	t.Stop()

	return t
}}

// GetTimer returns a pooled timer armed to fire after d.
//
// Return it with PutTimer once the caller stopped waiting on it.
func GetTimer(d time.Duration) *time.Timer {
	t, _ := timerPool.Get().(*time.Timer)
	if t == nil {
		return time.NewTimer(d)
	}
	// since Go 1.23 Reset discards a stale expiration, no drain is needed
	t.Reset(d)

	return t
}

// PutTimer stops t and returns it to the pool. t cannot be accessed after this call.
func PutTimer(t *time.Timer) {
	if t == nil {
		return
	}
	t.Stop()
	timerPool.Put(t)
}
