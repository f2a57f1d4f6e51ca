package session

import (
	"cmp"
	"slices"
	"time"
)

// Timers is a game-time timer queue advanced by the frame loop.
// Timers due at the same instant run in the order they were scheduled.
type Timers struct {
	now   time.Duration
	seq   uint64
	queue []timer
}

type timer struct {
	at  time.Duration
	seq uint64
	fn  func()
}

// After schedules fn to run once d of game time has passed.
func (t *Timers) After(d time.Duration, fn func()) {
	if fn == nil {
		return
	}
	t.seq++
	t.queue = append(t.queue, timer{at: t.now + max(d, 0), seq: t.seq, fn: fn})
	slices.SortStableFunc(t.queue, func(a, b timer) int {
		return cmp.Or(cmp.Compare(a.at, b.at), cmp.Compare(a.seq, b.seq))
	})
}

// Advance moves game time forward by dt and runs every timer that fell due.
// A timer scheduled by a running timer runs in the same call if it is already due.
func (t *Timers) Advance(dt time.Duration) int {
	t.now += max(dt, 0)
	ran := 0
	for len(t.queue) > 0 && t.queue[0].at <= t.now {
		next := t.queue[0]
		t.queue = t.queue[1:]
		next.fn()
		ran++
	}
	return ran
}

// Now returns the game time elapsed so far.
func (t *Timers) Now() time.Duration {
	return t.now
}

// Pending returns the number of timers not yet run.
func (t *Timers) Pending() int {
	return len(t.queue)
}

// Clear drops every pending timer. Game time keeps counting.
func (t *Timers) Clear() {
	t.queue = nil
}
