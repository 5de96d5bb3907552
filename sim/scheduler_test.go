package sim

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recoverErr runs fn and returns the error it panicked with, or nil.
func recoverErr(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			}
		}
	}()
	fn()
	return nil
}

func TestHold_ResumesAtCallTimePlusDuration(t *testing.T) {
	// GIVEN a process holding for a series of awkward durations
	s := NewScheduler()
	durations := []float64{0.1, 0.2, 0.7, 0, 1e-9, 3.3}
	var got, want []float64
	s.Start("holder", ProcessFunc(func(p *Proc) {
		for _, d := range durations {
			before := p.Now()
			p.Hold(d)
			want = append(want, before+d)
			got = append(got, p.Now())
		}
	}))

	// WHEN the simulation runs to exhaustion
	reason := s.Run(MaxDispatches(1000))

	// THEN every resume happens exactly at call time + d
	assert.Equal(t, StopExhausted, reason)
	require.Len(t, got, len(durations))
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("hold %d: resumed at %v, want exactly %v", i, got[i], want[i])
		}
	}
}

func TestScheduler_EqualWakeTimesDispatchFIFO(t *testing.T) {
	// GIVEN P1 then P2 both scheduled for t=5 from t=0
	s := NewScheduler()
	var order []string
	body := func(p *Proc) {
		p.Hold(5.0)
		order = append(order, p.Name())
	}
	s.Start("P1", ProcessFunc(body))
	s.Start("P2", ProcessFunc(body))

	// WHEN run
	s.Run(MaxDispatches(100))

	// THEN P1 is dispatched strictly before P2
	assert.Equal(t, []string{"P1", "P2"}, order)
	assert.Equal(t, 5.0, s.Now())
}

func TestScheduler_TieOrderFollowsSchedulingNotCreation(t *testing.T) {
	// GIVEN A created first but scheduled for t=2 after B
	s := NewScheduler()
	var order []string
	a := s.Spawn("A", ProcessFunc(func(p *Proc) { order = append(order, "A") }))
	b := s.Spawn("B", ProcessFunc(func(p *Proc) { order = append(order, "B") }))
	s.Start("driver", ProcessFunc(func(p *Proc) {
		p.Hold(2)
		require.NoError(t, b.Activate())
		require.NoError(t, a.Activate())
	}))

	s.Run(MaxDispatches(100))

	assert.Equal(t, []string{"B", "A"}, order)
}

func TestScheduler_ManyTiesKeepInsertionOrder(t *testing.T) {
	s := NewScheduler()
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		s.Start("p", ProcessFunc(func(p *Proc) {
			p.Hold(1)
			order = append(order, i)
		}))
	}
	s.Run(MaxDispatches(1000))

	require.Len(t, order, 50)
	for i, v := range order {
		if v != i {
			t.Fatalf("position %d dispatched process %d, want FIFO order", i, v)
		}
	}
}

func TestPassivate_NeverRunsAgainWithoutActivate(t *testing.T) {
	// GIVEN a process that passivates and a ticker that keeps the clock moving
	s := NewScheduler()
	resumed := false
	sleeper := s.Start("sleeper", ProcessFunc(func(p *Proc) {
		p.Passivate()
		resumed = true
	}))
	ticks := 0
	s.Start("ticker", ProcessFunc(func(p *Proc) {
		for i := 0; i < 10; i++ {
			p.Hold(1)
			ticks++
			if sleeper.State() != StatePassive {
				t.Errorf("sleeper state = %s at t=%v, want passive", sleeper.State(), p.Now())
			}
		}
	}))

	// WHEN run until the ticker is done
	reason := s.Run(MaxDispatches(1000))

	// THEN the scheduler proceeded past the passive process without deadlock
	assert.Equal(t, StopExhausted, reason)
	assert.Equal(t, 10, ticks)
	assert.False(t, resumed)
	assert.Equal(t, 10.0, s.Now())
	// AND teardown unwound it
	assert.Equal(t, StateTerminated, sleeper.State())
}

func TestActivate_WakesPassiveProcessAtCurrentTime(t *testing.T) {
	s := NewScheduler()
	var wokeAt float64 = -1
	worker := s.Start("worker", ProcessFunc(func(p *Proc) {
		p.Passivate()
		wokeAt = p.Now()
	}))
	s.Start("boss", ProcessFunc(func(p *Proc) {
		p.Hold(7.5)
		assert.True(t, worker.IsPassive())
		assert.NoError(t, worker.Activate())
		assert.Equal(t, StateWaiting, worker.State())
	}))

	s.Run(MaxDispatches(100))

	assert.Equal(t, 7.5, wokeAt)
	assert.Equal(t, StateTerminated, worker.State())
}

func TestActivate_NonPassiveIsNoOp(t *testing.T) {
	s := NewScheduler()
	runs := 0
	target := s.Start("target", ProcessFunc(func(p *Proc) {
		runs++
		p.Hold(10)
		runs++
	}))
	var activateErr error
	s.Start("caller", ProcessFunc(func(p *Proc) {
		p.Hold(1)
		// target is waiting on its t=10 event
		activateErr = target.Activate()
	}))

	s.Run(MaxDispatches(100))

	assert.True(t, errors.Is(activateErr, ErrNotPassive), "got %v", activateErr)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 10.0, s.Now())
}

func TestActivate_SelfWhileRunningIsNoOp(t *testing.T) {
	s := NewScheduler()
	var err error
	s.Start("self", ProcessFunc(func(p *Proc) {
		err = p.Activate()
	}))
	s.Run(MaxDispatches(10))
	assert.ErrorIs(t, err, ErrNotPassive)
}

func TestProcess_EntryPointRunsOnceAndTerminates(t *testing.T) {
	s := NewScheduler()
	entries := 0
	p := s.Start("once", ProcessFunc(func(p *Proc) {
		entries++
		assert.Equal(t, StateRunning, p.State())
		assert.Same(t, p, p.Scheduler().Running())
	}))
	assert.Equal(t, StateWaiting, p.State())

	reason := s.Run(MaxDispatches(10))

	assert.Equal(t, StopExhausted, reason)
	assert.Equal(t, 1, entries)
	assert.Equal(t, StateTerminated, p.State())
	assert.Nil(t, s.Running())
	assert.Equal(t, uint64(1), s.Dispatched())
}

func TestSpawn_CreatedProcessDoesNotRunUntilActivated(t *testing.T) {
	s := NewScheduler()
	ran := false
	p := s.Spawn("idle", ProcessFunc(func(p *Proc) { ran = true }))
	assert.Equal(t, StateCreated, p.State())
	assert.True(t, p.IsPassive())
	assert.Equal(t, 0, s.Pending())

	s.Run(MaxDispatches(10))

	assert.False(t, ran)
	assert.Equal(t, StateTerminated, p.State())
}

func TestProcess_SpawnFromInsideProcess(t *testing.T) {
	s := NewScheduler()
	var childRanAt float64 = -1
	s.Start("parent", ProcessFunc(func(p *Proc) {
		p.Hold(3)
		p.Scheduler().Start("child", ProcessFunc(func(c *Proc) {
			childRanAt = c.Now()
		}))
	}))
	s.Run(MaxDispatches(10))
	assert.Equal(t, 3.0, childRanAt)
}

func TestRun_TeardownAbandonsSuspendedBodies(t *testing.T) {
	// GIVEN a process holding past the horizon
	s := NewScheduler()
	afterHold := false
	deferred := false
	p := s.Start("long", ProcessFunc(func(p *Proc) {
		defer func() { deferred = true }()
		p.Hold(100)
		afterHold = true
	}))

	// WHEN the horizon stops the run first
	reason := s.Run(Horizon(50))

	// THEN no model logic after the suspension point ran, but defers did
	assert.Equal(t, StopConditionMet, reason)
	assert.False(t, afterHold)
	assert.True(t, deferred)
	assert.Equal(t, StateTerminated, p.State())
	assert.Equal(t, 0.0, s.Now())
}

func TestRun_PanicInProcessIsReraised(t *testing.T) {
	s := NewScheduler()
	s.Start("bad", ProcessFunc(func(p *Proc) {
		p.Hold(1)
		p.Hold(-1)
	}))
	other := s.Start("other", ProcessFunc(func(p *Proc) { p.Hold(100) }))

	err := recoverErr(func() { s.Run(MaxDispatches(100)) })

	assert.True(t, errors.Is(err, ErrNegativeHold), "got %v", err)
	assert.Equal(t, StateTerminated, other.State())
}

func TestRun_NonErrorPanicIsReraised(t *testing.T) {
	s := NewScheduler()
	s.Start("bad", ProcessFunc(func(p *Proc) { panic("boom") }))
	assert.PanicsWithValue(t, "boom", func() { s.Run(MaxDispatches(10)) })
}

func TestRun_GoexitInBodyTerminatesProcess(t *testing.T) {
	s := NewScheduler()
	after := false
	p := s.Start("quitter", ProcessFunc(func(p *Proc) {
		runtime.Goexit()
	}))
	s.Start("next", ProcessFunc(func(p *Proc) {
		p.Hold(1)
		after = true
	}))

	reason := s.Run(MaxDispatches(10))

	assert.Equal(t, StopExhausted, reason)
	assert.True(t, after)
	assert.Equal(t, StateTerminated, p.State())
}

func TestRun_Twice(t *testing.T) {
	s := NewScheduler()
	s.Run(MaxDispatches(1))
	assert.Panics(t, func() { s.Run(MaxDispatches(1)) })
}

func TestRun_NilStopConditionPanics(t *testing.T) {
	s := NewScheduler()
	assert.Panics(t, func() { s.Run(nil) })
}

func TestHold_OutsideProcessContextPanics(t *testing.T) {
	s := NewScheduler()
	p := s.Spawn("p", ProcessFunc(func(p *Proc) {}))

	err := recoverErr(func() { p.Hold(1) })
	assert.True(t, errors.Is(err, ErrNotRunning), "got %v", err)
	err = recoverErr(func() { p.Passivate() })
	assert.True(t, errors.Is(err, ErrNotRunning), "got %v", err)

	s.Run(MaxDispatches(1))
}

func TestHold_OnAnotherProcessPanics(t *testing.T) {
	s := NewScheduler()
	victim := s.Start("victim", ProcessFunc(func(p *Proc) { p.Passivate() }))
	s.Start("culprit", ProcessFunc(func(p *Proc) { victim.Hold(1) }))

	err := recoverErr(func() { s.Run(MaxDispatches(10)) })
	assert.True(t, errors.Is(err, ErrNotRunning), "got %v", err)
}

func TestActivate_ProcessOfAnotherSchedulerPanics(t *testing.T) {
	// GIVEN a process spawned on one scheduler
	home, other := NewScheduler(), NewScheduler()
	ran := false
	p := home.Spawn("p", ProcessFunc(func(p *Proc) { ran = true }))

	// WHEN another scheduler is asked to activate it
	err := recoverErr(func() { _ = other.Activate(p) })

	// THEN it is refused and nothing is scheduled on either side
	assert.True(t, errors.Is(err, ErrForeignProcess), "got %v", err)
	assert.Equal(t, StateCreated, p.State())
	assert.Equal(t, 0, other.Pending())
	assert.Equal(t, 0, home.Pending())

	// AND the home scheduler can still run it
	require.NoError(t, home.Activate(p))
	home.Run(MaxDispatches(10))
	other.Run(MaxDispatches(10))
	assert.True(t, ran)
}

func TestSchedule_RearmReplacesPendingEvent(t *testing.T) {
	s := NewScheduler()
	var ranAt float64 = -1
	p := s.Spawn("p", ProcessFunc(func(p *Proc) { ranAt = p.Now() }))

	s.schedule(p, 5)
	s.schedule(p, 2)
	assert.Equal(t, 1, s.Pending())
	next, ok := s.NextEventTime()
	require.True(t, ok)
	assert.Equal(t, 2.0, next)

	s.Run(MaxDispatches(10))
	assert.Equal(t, 2.0, ranAt)
	assert.Equal(t, uint64(1), s.Dispatched())
}

func TestSchedule_PastWakeTimeRejected(t *testing.T) {
	s := NewScheduler()
	var err error
	s.Start("p", ProcessFunc(func(p *Proc) {
		p.Hold(10)
		err = recoverErr(func() { p.sched.schedule(p, 9.999) })
	}))
	s.Run(MaxDispatches(10))
	assert.True(t, errors.Is(err, ErrPastWakeTime), "got %v", err)
}

func TestSchedule_TerminatedProcessRejected(t *testing.T) {
	s := NewScheduler()
	done := s.Start("done", ProcessFunc(func(p *Proc) {}))
	var err error
	s.Start("late", ProcessFunc(func(p *Proc) {
		p.Hold(1)
		err = recoverErr(func() { p.sched.schedule(done, p.Now()) })
	}))
	s.Run(MaxDispatches(10))
	assert.True(t, errors.Is(err, ErrTerminated), "got %v", err)
}

// pingPong runs two processes that alternately activate each other and
// returns the visit log.
func pingPong(rounds int) []string {
	s := NewScheduler()
	var log []string
	var ping, pong *Proc
	ping = s.Spawn("ping", ProcessFunc(func(p *Proc) {
		for i := 0; i < rounds; i++ {
			log = append(log, "ping")
			p.Hold(0.5)
			_ = pong.Activate()
			p.Passivate()
		}
	}))
	pong = s.Spawn("pong", ProcessFunc(func(p *Proc) {
		for {
			p.Passivate()
			log = append(log, "pong")
			p.Hold(0.25)
			_ = ping.Activate()
		}
	}))
	_ = pong.Activate()
	_ = ping.Activate()
	s.Run(MaxDispatches(10_000))
	return log
}

func TestScheduler_IndependentInstancesAreDeterministic(t *testing.T) {
	// GIVEN the same model run by several schedulers concurrently
	const n = 4
	logs := make([][]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logs[i] = pingPong(20)
		}(i)
	}
	wg.Wait()

	// THEN every run produced the same interleaving
	require.Len(t, logs[0], 40)
	for i := 1; i < n; i++ {
		assert.Equal(t, logs[0], logs[i])
	}
	assert.Equal(t, "ping", logs[0][0])
	assert.Equal(t, "pong", logs[0][1])
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "passive", StatePassive.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.Equal(t, "event-list-exhausted", StopExhausted.String())
}
