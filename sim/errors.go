package sim

import "errors"

// Usage errors. The kernel panics with these (wrapped) because they indicate
// a bug in model code that would otherwise silently corrupt simulated time.
var (
	// ErrPastWakeTime is raised when an event is scheduled before Now().
	ErrPastWakeTime = errors.New("wake time is in the past")
	// ErrNegativeHold is raised when Hold is called with a negative or NaN duration.
	ErrNegativeHold = errors.New("hold duration must be non-negative")
	// ErrNotRunning is raised when Hold or Passivate is called from outside
	// the process's own execution context.
	ErrNotRunning = errors.New("process is not the running process")
	// ErrForeignProcess is raised when a Scheduler is asked to activate a
	// process spawned by another Scheduler.
	ErrForeignProcess = errors.New("process belongs to another scheduler")
	// ErrTerminated is raised when a terminated process is rescheduled.
	ErrTerminated = errors.New("process has terminated")
	// ErrEmptyQueue is raised by Dequeue and Front on an empty queue.
	ErrEmptyQueue = errors.New("queue is empty")
)

// ErrNotPassive is returned by Activate when the target is neither Created
// nor Passive. The call is a no-op.
var ErrNotPassive = errors.New("process is not passive")

// ErrQueueFull is returned by Enqueue when a bounded queue is at capacity.
// It is an expected outcome (the item balked), not a kernel failure.
var ErrQueueFull = errors.New("queue full")
