package testsupport

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually advanced clock. After channels fire when Advance
// moves the current time past their deadline.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
	blocked chan struct{}
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewFakeClock returns a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start, blocked: make(chan struct{}, 64)}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that receives once the clock reaches now+d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	deadline := c.now.Add(d)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, fakeWaiter{deadline: deadline, ch: ch})
	select {
	case c.blocked <- struct{}{}:
	default:
	}
	return ch
}

// BlockUntilWaiting waits until at least one goroutine has called After
// since the previous call, or the timeout expires.
func (c *FakeClock) BlockUntilWaiting(timeout time.Duration) bool {
	select {
	case <-c.blocked:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Advance moves the clock forward and fires every waiter whose deadline passed.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	sort.Slice(c.waiters, func(i, j int) bool { return c.waiters[i].deadline.Before(c.waiters[j].deadline) })
	remaining := c.waiters[:0]
	var fire []chan time.Time
	for _, w := range c.waiters {
		if !w.deadline.After(now) {
			fire = append(fire, w.ch)
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
	c.mu.Unlock()

	for _, ch := range fire {
		ch <- now
	}
}
