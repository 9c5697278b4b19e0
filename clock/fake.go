package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Timers and tickers fire only from
// Advance, in deadline order.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	nextID  int
	waiters map[int]*waiter
}

type waiter struct {
	id     int
	when   time.Time
	period time.Duration // zero for one-shot timers
	fn     func()
	ch     chan time.Time
}

// NewFake returns a Fake clock starting at start
func NewFake(start time.Time) *Fake {
	return &Fake{now: start, waiters: make(map[int]*waiter)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) *Timer {
	f.mu.Lock()
	id := f.add(&waiter{when: f.now.Add(d), fn: fn})
	f.mu.Unlock()

	return &Timer{stopFunc: func() bool { return f.remove(id) }}
}

func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	ch := make(chan time.Time, 1)

	f.mu.Lock()
	id := f.add(&waiter{when: f.now.Add(d), period: d, ch: ch})
	f.mu.Unlock()

	return &Ticker{C: ch, stopFunc: func() { f.remove(id) }}
}

// Pending returns how many timers and tickers are scheduled
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

// Advance moves the clock forward by d, firing everything that comes due.
// AfterFunc callbacks run synchronously on the caller's goroutine, with
// the clock already set to their deadline.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		w := f.nextDue(target)
		if w == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = w.when
		if w.period > 0 {
			w.when = w.when.Add(w.period)
		} else {
			delete(f.waiters, w.id)
		}
		now := f.now
		f.mu.Unlock()

		if w.ch != nil {
			select {
			case w.ch <- now:
			default:
			}
		}
		if w.fn != nil {
			w.fn()
		}
	}
}

func (f *Fake) add(w *waiter) int {
	f.nextID++
	w.id = f.nextID
	f.waiters[w.id] = w
	return w.id
}

func (f *Fake) remove(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.waiters[id]
	delete(f.waiters, id)
	return ok
}

// nextDue returns the earliest waiter due at or before target. Ties go to
// the waiter scheduled first.
func (f *Fake) nextDue(target time.Time) *waiter {
	due := make([]*waiter, 0, len(f.waiters))
	for _, w := range f.waiters {
		if !w.when.After(target) {
			due = append(due, w)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].when.Equal(due[j].when) {
			return due[i].id < due[j].id
		}
		return due[i].when.Before(due[j].when)
	})
	return due[0]
}
