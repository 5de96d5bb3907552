package sim

import (
	"fmt"
	"math"
	"runtime"
)

// Process is the entry point of a simulation process. Run is invoked once,
// on the first dispatch, and the process terminates when it returns.
type Process interface {
	Run(p *Proc)
}

// ProcessFunc adapts a function to the Process interface.
type ProcessFunc func(p *Proc)

// Run calls f(p).
func (f ProcessFunc) Run(p *Proc) { f(p) }

// State is the lifecycle state of a process.
type State int

const (
	// StateCreated: spawned, never dispatched, no pending event.
	StateCreated State = iota
	// StateWaiting: has a pending event (Active-Waiting).
	StateWaiting
	// StatePassive: no pending event, waits for Activate.
	StatePassive
	// StateRunning: currently holds control. At most one process is running.
	StateRunning
	// StateTerminated: returned from Run or unwound at teardown. Absorbing.
	StateTerminated
)

var stateNames = map[State]string{
	StateCreated:    "created",
	StateWaiting:    "waiting",
	StatePassive:    "passive",
	StateRunning:    "running",
	StateTerminated: "terminated",
}

func (st State) String() string {
	if name, ok := stateNames[st]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(st))
}

// Proc is the kernel's handle on a simulation process. Model code receives
// it in Process.Run and uses it to suspend itself.
type Proc struct {
	sched *Scheduler
	id    int
	name  string
	body  Process
	state State

	pending *eventKey     // key of the pending event, nil if none
	wake    chan struct{} // raised by the scheduler to resume this process
	unwound bool          // set when teardown releases the goroutine
}

// ID returns the process identifier, unique within its Scheduler.
func (p *Proc) ID() int { return p.id }

// Name returns the name the process was spawned with.
func (p *Proc) Name() string { return p.name }

// State returns the current lifecycle state.
func (p *Proc) State() State { return p.state }

// IsPassive reports whether the process can be activated.
func (p *Proc) IsPassive() bool {
	return p.state == StatePassive || p.state == StateCreated
}

// Scheduler returns the scheduler the process belongs to.
func (p *Proc) Scheduler() *Scheduler { return p.sched }

// Now returns the scheduler's virtual time.
func (p *Proc) Now() float64 { return p.sched.clock }

func (p *Proc) String() string {
	return fmt.Sprintf("%s#%d", p.name, p.id)
}

// Hold suspends the calling process for d units of virtual time. When it
// returns, Now() is exactly the time at the call plus d.
func (p *Proc) Hold(d float64) {
	p.mustBeRunning("Hold")
	if d < 0 || math.IsNaN(d) {
		panic(fmt.Errorf("%s: Hold(%g): %w", p, d, ErrNegativeHold))
	}
	p.sched.schedule(p, p.sched.clock+d)
	p.state = StateWaiting
	p.suspend()
}

// Passivate suspends the calling process indefinitely. Only Activate can
// make it runnable again.
func (p *Proc) Passivate() {
	p.mustBeRunning("Passivate")
	p.state = StatePassive
	p.suspend()
}

// Activate is shorthand for p.Scheduler().Activate(p).
func (p *Proc) Activate() error {
	return p.sched.Activate(p)
}

func (p *Proc) mustBeRunning(op string) {
	if p.sched.running != p {
		panic(fmt.Errorf("%s: %s: %w", p, op, ErrNotRunning))
	}
}

// suspend gives control back to the scheduler and parks until the next
// dispatch. If the simulation is torn down meanwhile, the goroutine exits
// here and the rest of the process body never runs.
func (p *Proc) suspend() {
	p.sched.yield <- struct{}{}
	if !p.park() {
		runtime.Goexit()
	}
}

// park blocks until the scheduler wakes the process (true) or tears the
// simulation down (false).
func (p *Proc) park() bool {
	select {
	case <-p.wake:
		return true
	case <-p.sched.done:
		p.unwound = true
		return false
	}
}

// main is the body of the process goroutine.
func (p *Proc) main() {
	defer p.sched.wg.Done()
	if !p.park() {
		return
	}
	defer p.exit()
	p.body.Run(p)
}

// exit hands control back exactly once when the body returns, panics, or
// calls runtime.Goexit itself. It does nothing on teardown.
func (p *Proc) exit() {
	if p.unwound {
		return
	}
	s := p.sched
	if r := recover(); r != nil {
		s.fault = r
	}
	p.state = StateTerminated
	p.pending = nil
	delete(s.procs, p.id)
	s.yield <- struct{}{}
}
