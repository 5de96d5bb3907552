// sim/scheduler.go
package sim

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// StopReason reports why Run returned.
type StopReason int

const (
	// StopConditionMet means the StopCondition returned true.
	StopConditionMet StopReason = iota
	// StopExhausted means the event list ran dry while the stop condition
	// was still false. The run terminates cleanly; it usually means the
	// model has no autonomous source of events left.
	StopExhausted
)

func (r StopReason) String() string {
	switch r {
	case StopConditionMet:
		return "stop-condition"
	case StopExhausted:
		return "event-list-exhausted"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Scheduler owns the virtual clock and the event list, and drives processes
// by waking them in time order.
//
// Every process is backed by its own goroutine, but only one of {scheduler,
// one process} runs at any instant: the scheduler wakes a process through
// the process's wake channel and then blocks on yield until that process
// suspends or returns. No other locking is needed.
//
// Each Scheduler is an independent simulation; several may run in one
// program.
type Scheduler struct {
	clock  float64
	events *eventList
	seq    uint64 // scheduling sequence, breaks wake-time ties

	nextID  int
	procs   map[int]*Proc // live processes, unwound on teardown
	running *Proc

	yield chan struct{} // raised by a process when its turn ends
	done  chan struct{} // closed on teardown
	wg    sync.WaitGroup

	fault      any // panic value captured in a process goroutine
	dispatched uint64
	started    bool
}

// NewScheduler creates a Scheduler with the clock at zero and no processes.
func NewScheduler() *Scheduler {
	return &Scheduler{
		events: newEventList(),
		procs:  make(map[int]*Proc),
		yield:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() float64 {
	return s.clock
}

// NextEventTime returns the wake time of the earliest pending event.
func (s *Scheduler) NextEventTime() (float64, bool) {
	k, ok := s.events.peek()
	return k.at, ok
}

// Pending returns the number of pending events.
func (s *Scheduler) Pending() int {
	return s.events.Len()
}

// Dispatched returns the number of dispatches performed so far.
func (s *Scheduler) Dispatched() uint64 {
	return s.dispatched
}

// Running returns the process currently holding control, or nil when the
// scheduler itself holds it.
func (s *Scheduler) Running() *Proc {
	return s.running
}

// Spawn creates a process running body. Its goroutine starts immediately
// and parks; body is entered on the first dispatch, which happens once the
// process is activated.
func (s *Scheduler) Spawn(name string, body Process) *Proc {
	if body == nil {
		panic("Spawn: body must not be nil")
	}
	s.nextID++
	p := &Proc{
		sched: s,
		id:    s.nextID,
		name:  name,
		body:  body,
		state: StateCreated,
		wake:  make(chan struct{}),
	}
	s.procs[p.id] = p
	s.wg.Add(1)
	go p.main()
	return p
}

// Start spawns a process and activates it at the current time.
func (s *Scheduler) Start(name string, body Process) *Proc {
	p := s.Spawn(name, body)
	if err := s.Activate(p); err != nil {
		panic(err) // a freshly spawned process is always activatable
	}
	return p
}

// Activate makes a Created or Passive process runnable at the current time.
// Activating a process in any other state is a caller error: it is logged,
// ignored, and reported as ErrNotPassive. p must have been spawned by s.
func (s *Scheduler) Activate(p *Proc) error {
	if p.sched != s {
		panic(fmt.Errorf("activate %s: %w", p, ErrForeignProcess))
	}
	switch p.state {
	case StateCreated, StatePassive:
		s.schedule(p, s.clock)
		p.state = StateWaiting
		return nil
	}
	logrus.Warnf("[t=%g] activate %s ignored: process is %s", s.clock, p, p.state)
	return fmt.Errorf("activate %s (%s): %w", p, p.state, ErrNotPassive)
}

// schedule inserts or replaces p's pending event.
// Wake times earlier than Now() are rejected: dispatching them would move
// the clock backwards.
func (s *Scheduler) schedule(p *Proc, at float64) {
	if p.state == StateTerminated {
		panic(fmt.Errorf("schedule %s: %w", p, ErrTerminated))
	}
	if math.IsNaN(at) || at < s.clock {
		panic(fmt.Errorf("schedule %s at %g (now %g): %w", p, at, s.clock, ErrPastWakeTime))
	}
	if p.pending != nil {
		s.events.remove(*p.pending)
	}
	s.seq++
	k := eventKey{at: at, seq: s.seq}
	s.events.insert(k, p)
	p.pending = &k
}

// Run is the main loop. While stop reports false it pops the earliest event,
// advances the clock to its wake time and hands control to its process,
// blocking until the process suspends or terminates.
//
// On return every live process is unwound without running further model
// logic. A Scheduler can be run only once. A panic raised inside a process
// body tears the simulation down and is re-raised here.
func (s *Scheduler) Run(stop StopCondition) StopReason {
	if s.started {
		panic("Run: scheduler has already run")
	}
	if stop == nil {
		panic("Run: stop condition must not be nil")
	}
	s.started = true
	defer s.teardown()

	logrus.Infof("[t=%g] simulation started with %d processes, %d pending events", s.clock, len(s.procs), s.events.Len())
	for !stop.Stop(s) {
		k, p, ok := s.events.popFirst()
		if !ok {
			logrus.Warnf("[t=%g] event list exhausted before the stop condition was met", s.clock)
			return StopExhausted
		}
		p.pending = nil
		s.clock = k.at
		s.dispatch(p)
	}
	return StopConditionMet
}

// dispatch passes control to p and waits for it to come back.
func (s *Scheduler) dispatch(p *Proc) {
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("[t=%g] dispatch %s", s.clock, p)
	}
	s.dispatched++
	s.running = p
	p.state = StateRunning
	p.wake <- struct{}{}
	<-s.yield
	s.running = nil

	if s.fault != nil {
		f := s.fault
		s.fault = nil
		logrus.Errorf("[t=%g] process %s panicked: %v", s.clock, p, f)
		panic(f)
	}
}

// teardown unwinds every parked process and waits for its goroutine to exit.
func (s *Scheduler) teardown() {
	close(s.done)
	s.wg.Wait()
	for id, p := range s.procs {
		p.state = StateTerminated
		p.pending = nil
		delete(s.procs, id)
	}
	logrus.Infof("[t=%g] simulation ended after %d dispatches", s.clock, s.dispatched)
}
