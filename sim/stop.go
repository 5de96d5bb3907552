package sim

// StopCondition decides when Run ends. Stop is evaluated once per dispatch
// cycle, before the next event is popped.
type StopCondition interface {
	Stop(s *Scheduler) bool
}

// StopFunc adapts a function to the StopCondition interface.
type StopFunc func(s *Scheduler) bool

// Stop calls f(s).
func (f StopFunc) Stop(s *Scheduler) bool { return f(s) }

// Horizon stops before any event later than t is dispatched, so the clock
// never passes t.
func Horizon(t float64) StopCondition {
	return StopFunc(func(s *Scheduler) bool {
		next, ok := s.NextEventTime()
		return ok && next > t
	})
}

// AfterTime stops once the clock has moved strictly past t. The event that
// crosses t is still dispatched.
func AfterTime(t float64) StopCondition {
	return StopFunc(func(s *Scheduler) bool {
		return s.Now() > t
	})
}

// MaxDispatches stops after n dispatches.
func MaxDispatches(n uint64) StopCondition {
	return StopFunc(func(s *Scheduler) bool {
		return s.Dispatched() >= n
	})
}

// AnyOf stops as soon as one of conds does. Every condition is evaluated on
// each cycle, so conditions with side effects all observe every cycle.
func AnyOf(conds ...StopCondition) StopCondition {
	return StopFunc(func(s *Scheduler) bool {
		stop := false
		for _, c := range conds {
			if c.Stop(s) {
				stop = true
			}
		}
		return stop
	})
}
