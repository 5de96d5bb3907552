// Implements Queue, a FIFO that timestamps arrivals and keeps statistics
// about its population and waiting times as a side effect of use.

package sim

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/psim-dev/psim/sim/stats"
)

// queueEntry pairs an item with the virtual time it was enqueued.
type queueEntry[T any] struct {
	item       T
	enqueuedAt float64
}

// Queue is a FIFO of items of type T. A bounded Queue (see NewBalkingQueue)
// refuses items when full instead of growing.
//
// Statistics:
//   - population: time-weighted measure of the queue length
//   - waiting: discrete measure of time spent queued, recorded on Dequeue
type Queue[T any] struct {
	clock    stats.Clock
	capacity int // 0 = unbounded
	entries  *linkedlistqueue.Queue

	population *stats.SystemMeasure
	waiting    *stats.Measure
	balked     int64
}

// NewQueue creates an unbounded queue timed by clock.
func NewQueue[T any](clock stats.Clock) *Queue[T] {
	return &Queue[T]{
		clock:      clock,
		entries:    linkedlistqueue.New(),
		population: stats.NewSystemMeasure(clock),
		waiting:    stats.NewMeasure(),
	}
}

// NewBalkingQueue creates a queue holding at most capacity items.
func NewBalkingQueue[T any](clock stats.Clock, capacity int) *Queue[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("NewBalkingQueue: capacity must be positive, got %d", capacity))
	}
	q := NewQueue[T](clock)
	q.capacity = capacity
	return q
}

// Enqueue appends item, stamped with the current time. A full bounded queue
// returns ErrQueueFull and is left untouched apart from its balk count.
func (q *Queue[T]) Enqueue(item T) error {
	if q.capacity > 0 && q.entries.Size() >= q.capacity {
		q.balked++
		return ErrQueueFull
	}
	q.entries.Enqueue(queueEntry[T]{item: item, enqueuedAt: q.clock.Now()})
	q.population.Update(float64(q.entries.Size()))
	return nil
}

// Dequeue removes and returns the oldest item, recording how long it
// waited. It panics on an empty queue; check IsEmpty first.
func (q *Queue[T]) Dequeue() T {
	v, ok := q.entries.Dequeue()
	if !ok {
		panic(fmt.Errorf("Dequeue: %w", ErrEmptyQueue))
	}
	e := v.(queueEntry[T])
	q.population.Update(float64(q.entries.Size()))
	q.waiting.Add(q.clock.Now() - e.enqueuedAt)
	return e.item
}

// Front returns the oldest item without removing it. It panics on an empty queue.
func (q *Queue[T]) Front() T {
	v, ok := q.entries.Peek()
	if !ok {
		panic(fmt.Errorf("Front: %w", ErrEmptyQueue))
	}
	return v.(queueEntry[T]).item
}

// IsEmpty reports whether the queue holds no items.
func (q *Queue[T]) IsEmpty() bool {
	return q.entries.Empty()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return q.entries.Size()
}

// Capacity returns the bound of a balking queue, 0 if unbounded.
func (q *Queue[T]) Capacity() int {
	return q.capacity
}

// Bounded reports whether the queue balks when full.
func (q *Queue[T]) Bounded() bool {
	return q.capacity > 0
}

// Balked returns how many items were refused since the last reset.
func (q *Queue[T]) Balked() int64 {
	return q.balked
}

// ResetTime returns the start of the current statistics window.
func (q *Queue[T]) ResetTime() float64 {
	return q.population.ResetTime()
}

// MeanLength returns the time-averaged queue length since the last reset.
// It panics if no time has elapsed since then.
func (q *Queue[T]) MeanLength() float64 {
	return q.population.Mean()
}

// VarLength returns the time-weighted variance of the queue length.
func (q *Queue[T]) VarLength() float64 {
	return q.population.Variance()
}

// MeanWait returns the mean time spent queued by items dequeued since the
// last reset. It panics if nothing has been dequeued; check WaitCount.
func (q *Queue[T]) MeanWait() float64 {
	return q.waiting.Mean()
}

// WaitCount returns the number of waiting-time samples since the last reset.
func (q *Queue[T]) WaitCount() int64 {
	return q.waiting.Count()
}

// Reset discards accumulated statistics. The queue contents are kept, and
// the population measure carries on from the current length.
func (q *Queue[T]) Reset() {
	q.population.Reset()
	q.waiting.Reset()
	q.balked = 0
}

func (q *Queue[T]) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, v := range q.entries.Values() {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprint(v.(queueEntry[T]).item))
	}
	sb.WriteString("]")
	return sb.String()
}
