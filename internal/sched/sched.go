// Package sched tracks aggregate deadlines. Each deadline is keyed by
// (aggregate, reason); scheduling the same key again supersedes the old
// deadline, so an aggregate never fires twice for one reason. Due events
// are handed to a single dispatch callback, never applied directly, which
// keeps expiry on the same command path as player actions.
package sched

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"cosmossdk.io/log"
)

// Reason names why a deadline exists. Game packages define their own.
type Reason string

// Event is one due deadline.
type Event struct {
	Aggregate string
	Reason    Reason
	At        time.Time
}

// Clock abstracts time so tests can drive deadlines by hand.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a test clock advanced explicitly.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type key struct {
	aggregate string
	reason    Reason
}

type entry struct {
	ev    Event
	seq   uint64
	index int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if !h[i].ev.At.Equal(h[j].ev.At) {
		return h[i].ev.At.Before(h[j].ev.At)
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Wheel is the deadline queue. Schedule, Cancel and Tick are safe for
// concurrent use; the dispatch callback runs outside the wheel's lock.
type Wheel struct {
	logger log.Logger
	clock  Clock
	out    func(Event)

	mu      sync.Mutex
	entries map[key]*entry
	heap    entryHeap
	seq     uint64
	wake    chan struct{}
}

// NewWheel builds a wheel that dispatches due events to out.
func NewWheel(logger log.Logger, clock Clock, out func(Event)) *Wheel {
	if clock == nil {
		panic("sched: nil clock")
	}
	if out == nil {
		panic("sched: nil dispatch")
	}
	return &Wheel{
		logger:  logger.With("module", "sched"),
		clock:   clock,
		out:     out,
		entries: make(map[key]*entry),
		wake:    make(chan struct{}, 1),
	}
}

// Schedule sets the deadline for (aggregate, reason), replacing any
// earlier deadline under the same key.
func (w *Wheel) Schedule(aggregate string, reason Reason, at time.Time) {
	w.mu.Lock()
	k := key{aggregate: aggregate, reason: reason}
	if e, ok := w.entries[k]; ok {
		e.ev.At = at
		w.seq++
		e.seq = w.seq
		heap.Fix(&w.heap, e.index)
	} else {
		w.seq++
		e := &entry{ev: Event{Aggregate: aggregate, Reason: reason, At: at}, seq: w.seq}
		w.entries[k] = e
		heap.Push(&w.heap, e)
	}
	w.mu.Unlock()
	w.notify()
}

// Cancel drops the deadline for (aggregate, reason) if one is pending.
func (w *Wheel) Cancel(aggregate string, reason Reason) {
	w.mu.Lock()
	k := key{aggregate: aggregate, reason: reason}
	if e, ok := w.entries[k]; ok {
		heap.Remove(&w.heap, e.index)
		delete(w.entries, k)
	}
	w.mu.Unlock()
}

// CancelAggregate drops every pending deadline for one aggregate.
func (w *Wheel) CancelAggregate(aggregate string) {
	w.mu.Lock()
	for k, e := range w.entries {
		if k.aggregate == aggregate {
			heap.Remove(&w.heap, e.index)
			delete(w.entries, k)
		}
	}
	w.mu.Unlock()
}

// Next peeks at the earliest pending deadline.
func (w *Wheel) Next() (Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.heap) == 0 {
		return Event{}, false
	}
	return w.heap[0].ev, true
}

// Pending returns the number of pending deadlines.
func (w *Wheel) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.heap)
}

// Tick pops everything due at now, in deadline order, and dispatches each
// event. It returns how many events fired. Tests call it directly with a
// manual clock; Run calls it from the timer loop.
func (w *Wheel) Tick(now time.Time) int {
	w.mu.Lock()
	var due []Event
	for len(w.heap) > 0 && !w.heap[0].ev.At.After(now) {
		e := heap.Pop(&w.heap).(*entry)
		delete(w.entries, key{aggregate: e.ev.Aggregate, reason: e.ev.Reason})
		due = append(due, e.ev)
	}
	w.mu.Unlock()

	for _, ev := range due {
		w.out(ev)
	}
	return len(due)
}

// Run drives Tick from a timer until ctx is cancelled. Rescheduling wakes
// the loop so a nearer deadline is never slept through.
func (w *Wheel) Run(ctx context.Context) {
	w.logger.Info("deadline wheel started")
	for {
		var timer *time.Timer
		var fire <-chan time.Time
		w.mu.Lock()
		if len(w.heap) > 0 {
			d := w.heap[0].ev.At.Sub(w.clock.Now())
			if d < 0 {
				d = 0
			}
			timer = time.NewTimer(d)
			fire = timer.C
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("deadline wheel stopped")
			return
		case <-w.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-fire:
			w.Tick(w.clock.Now())
		}
	}
}

func (w *Wheel) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
