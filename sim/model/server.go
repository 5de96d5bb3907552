package model

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/psim-dev/psim/sim"
	"github.com/psim-dev/psim/sim/dist"
	"github.com/psim-dev/psim/sim/stats"
)

// ServerParams sizes a server.
type ServerParams struct {
	Threads     int
	Processors  int
	QueueSize   int     // <= 0: unbounded
	ThreadGrain float64 // 0: one slice per service
}

// Server queues incoming requests and serves them with a pool of threads.
// A dispatcher process hands queued requests to idle threads; threads take
// turns on a limited number of processors, in slices of ThreadGrain.
type Server struct {
	name    string
	sched   *sim.Scheduler
	service dist.Sampler
	net     Network
	params  ServerParams

	queue      *sim.Queue[*Message]
	dispatcher *sim.Proc
	threads    []*ServerThread

	free    int             // idle processors
	waiting []*ServerThread // threads passivated until a processor frees up
	busy    *stats.SystemMeasure

	serviceTime                *stats.Measure
	in, out, refused, faultyIn int64
}

// NewServer creates a server and spawns its dispatcher and threads on
// sched. None of them runs until the first request arrives.
func NewServer(sched *sim.Scheduler, name string, service dist.Sampler, params ServerParams, net Network) *Server {
	if params.Threads < 1 || params.Processors < 1 {
		panic(fmt.Sprintf("NewServer %s: threads and processors must be at least 1, got %d and %d",
			name, params.Threads, params.Processors))
	}
	s := &Server{
		name:        name,
		sched:       sched,
		service:     service,
		net:         net,
		params:      params,
		free:        params.Processors,
		busy:        stats.NewSystemMeasure(sched),
		serviceTime: stats.NewMeasure(),
	}
	if params.QueueSize > 0 {
		s.queue = sim.NewBalkingQueue[*Message](sched, params.QueueSize)
	} else {
		s.queue = sim.NewQueue[*Message](sched)
	}
	s.dispatcher = sched.Spawn(name+"/dispatcher", sim.ProcessFunc(s.dispatch))
	for i := 0; i < params.Threads; i++ {
		t := &ServerThread{
			server:      s,
			index:       i,
			resource:    stats.NewResource(sched),
			serviceTime: stats.NewMeasure(),
		}
		t.proc = sched.Spawn(t.String(), t)
		s.threads = append(s.threads, t)
	}
	return s
}

// Name returns the server's name.
func (s *Server) Name() string { return s.name }

// Deliver queues a request, or answers with a refusal when the queue is full.
func (s *Server) Deliver(m *Message) {
	if m.Kind != KindRequest || m.Server != s.name {
		logrus.Warnf("[t=%g] server %s ignored unexpected %s; check the model routing", s.sched.Now(), s.name, m)
		s.faultyIn++
		return
	}
	if err := s.queue.Enqueue(m); err != nil {
		if !errors.Is(err, sim.ErrQueueFull) {
			panic(err)
		}
		logrus.Debugf("[t=%g] server %s refuses %s: queue full", s.sched.Now(), s.name, m)
		s.refused++
		s.net.Send(m.answer(KindRefusal))
		return
	}
	s.in++
	s.wakeDispatcher()
}

func (s *Server) wakeDispatcher() {
	if s.dispatcher.IsPassive() {
		_ = s.dispatcher.Activate()
	}
}

// dispatch hands queued requests to idle threads, then sleeps until a
// request arrives or a thread finishes.
func (s *Server) dispatch(p *sim.Proc) {
	for {
		for _, t := range s.threads {
			if s.queue.IsEmpty() {
				break
			}
			if !t.busy {
				t.assign(s.queue.Dequeue())
			}
		}
		p.Passivate()
	}
}

// reply is called by a thread when it has finished serving m.
func (s *Server) reply(m *Message) {
	s.out++
	s.net.Send(m.answer(KindReply))
	s.wakeDispatcher()
}

// acquire blocks t's process until a processor is free and claims it.
func (s *Server) acquire(t *ServerThread, p *sim.Proc) {
	for s.free == 0 {
		s.waiting = append(s.waiting, t)
		p.Passivate()
	}
	s.free--
	s.busy.Update(float64(s.params.Processors - s.free))
}

// release returns a processor and wakes the longest-waiting thread.
// It reports whether a waiter was woken.
func (s *Server) release() bool {
	s.free++
	s.busy.Update(float64(s.params.Processors - s.free))
	for len(s.waiting) > 0 {
		next := s.waiting[0]
		s.waiting = s.waiting[1:]
		if next.proc.IsPassive() {
			_ = next.proc.Activate()
			return true
		}
	}
	return false
}

// QueueLength returns the number of requests waiting for a thread.
func (s *Server) QueueLength() int { return s.queue.Len() }

// Utilisation returns the mean fraction of processors busy since the last
// reset, or 0 when no time has elapsed yet.
func (s *Server) Utilisation() float64 {
	if s.sched.Now() == s.busy.ResetTime() {
		return 0
	}
	return s.busy.Mean() / float64(s.params.Processors)
}

// Queue exposes the request queue and its statistics.
func (s *Server) Queue() *sim.Queue[*Message] { return s.queue }

// Threads returns the server's threads in index order.
func (s *Server) Threads() []*ServerThread { return s.threads }

// ServiceTime returns the service time measure across all threads.
func (s *Server) ServiceTime() *stats.Measure { return s.serviceTime }

// Received returns the number of requests queued since the last reset.
func (s *Server) Received() int64 { return s.in }

// Replied returns the number of replies sent since the last reset.
func (s *Server) Replied() int64 { return s.out }

// Refused returns the number of requests refused because the queue was full.
func (s *Server) Refused() int64 { return s.refused }

// Faulty returns the number of misrouted messages received.
func (s *Server) Faulty() int64 { return s.faultyIn }

// Reset clears counters and statistics of the server and its threads.
// Queued requests and in-progress services are kept.
func (s *Server) Reset() {
	s.in, s.out, s.refused, s.faultyIn = 0, 0, 0, 0
	s.queue.Reset()
	s.busy.Reset()
	s.serviceTime.Reset()
	for _, t := range s.threads {
		t.Reset()
	}
}

// ServerThread serves one request at a time for its server.
type ServerThread struct {
	server *Server
	index  int
	proc   *sim.Proc

	busy    bool
	message *Message

	resource    *stats.Resource
	serviceTime *stats.Measure
	in, out     int64
}

func (t *ServerThread) String() string {
	return fmt.Sprintf("%s(%d)", t.server.name, t.index)
}

// assign gives the thread a request and wakes it.
func (t *ServerThread) assign(m *Message) {
	t.busy = true
	t.message = m
	t.in++
	if err := t.proc.Activate(); err != nil {
		panic(fmt.Errorf("assign %s to %s: %w", m, t, err))
	}
}

// Run is the thread's process body: serve the assigned request, then sleep
// until the dispatcher assigns another.
func (t *ServerThread) Run(p *sim.Proc) {
	for {
		t.serve(p)
		t.busy = false
		m := t.message
		t.message = nil
		t.out++
		t.server.reply(m)
		logrus.Debugf("[t=%g] %s served %s", p.Now(), t, m)
		p.Passivate()
	}
}

// serve holds for one sampled service time, split into slices that each
// need a processor.
func (t *ServerThread) serve(p *sim.Proc) {
	s := t.server
	total := s.service.Next()
	remaining := total
	for remaining > 0 {
		s.acquire(t, p)
		t.resource.Claim()
		slice := remaining
		if s.params.ThreadGrain > 0 && remaining > s.params.ThreadGrain {
			slice = s.params.ThreadGrain
		}
		p.Hold(slice)
		remaining -= slice
		t.resource.Release()
		if s.release() && remaining > 0 {
			// let the woken thread have the processor before the next slice
			s.waiting = append(s.waiting, t)
			p.Passivate()
		}
	}
	t.serviceTime.Add(total)
	s.serviceTime.Add(total)
}

// Index returns the thread's position in its server.
func (t *ServerThread) Index() int { return t.index }

// Busy reports whether the thread is serving a request.
func (t *ServerThread) Busy() bool { return t.busy }

// ServiceTime returns this thread's service time measure.
func (t *ServerThread) ServiceTime() *stats.Measure { return t.serviceTime }

// Utilisation returns the fraction of time this thread held a processor
// since the last reset, or 0 when no time has elapsed yet.
func (t *ServerThread) Utilisation() float64 {
	if t.server.sched.Now() == t.resource.ResetTime() {
		return 0
	}
	return t.resource.Utilisation()
}

// Received returns the number of requests assigned since the last reset.
func (t *ServerThread) Received() int64 { return t.in }

// Replied returns the number of requests completed since the last reset.
func (t *ServerThread) Replied() int64 { return t.out }

// Reset clears the thread's counters and statistics.
func (t *ServerThread) Reset() {
	t.in, t.out = 0, 0
	t.resource.Reset()
	t.serviceTime.Reset()
}
