package model

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/psim-dev/psim/sim"
	"github.com/psim-dev/psim/sim/dist"
	"github.com/psim-dev/psim/sim/trace"
)

// System is one runnable queueing network: its scheduler, nodes and the
// message routing between them.
type System struct {
	cfg   *Config
	sched *sim.Scheduler
	rng   *sim.PartitionedRNG

	clients []*Client
	servers []*Server
	nodes   []Node
	byName  map[string]Node

	resetters []Resetter
	dump      *DataDump
	msgTrace  *trace.SimulationTrace

	nextMessageID uint64
	dropped       int64
	resetDone     bool
	wallStart     time.Time
	wallElapsed   time.Duration
}

// NewSystem builds the network described by cfg. When cfg.Dump is set, dump
// rows go to dumpOut.
func NewSystem(cfg *Config, dumpOut io.Writer) (*System, error) {
	sys := &System{
		cfg:    cfg,
		sched:  sim.NewScheduler(),
		rng:    sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
		byName: make(map[string]Node),
	}

	for _, sc := range cfg.Servers {
		service, err := dist.NewSampler(sc.Service, sys.rng.ForSubsystem(sim.SubsystemServer(sc.Name)))
		if err != nil {
			return nil, fmt.Errorf("server %q service: %w", sc.Name, err)
		}
		srv := NewServer(sys.sched, sc.Name, service, ServerParams{
			Threads:     sc.Threads,
			Processors:  sc.Processors,
			QueueSize:   sc.QueueSize,
			ThreadGrain: sc.ThreadGrain,
		}, sys)
		sys.servers = append(sys.servers, srv)
	}
	pick := sys.rng.ForSubsystem(sim.SubsystemRouting)
	for _, cc := range cfg.Clients {
		interarrival, err := dist.NewSampler(cc.Interarrival, sys.rng.ForSubsystem(sim.SubsystemClient(cc.Name)))
		if err != nil {
			return nil, fmt.Errorf("client %q interarrival: %w", cc.Name, err)
		}
		c := NewClient(cc.Name, interarrival, cc.Destinations, pick, sys, sys.sched)
		sys.clients = append(sys.clients, c)
	}

	for _, c := range sys.clients {
		sys.addNode(c)
	}
	for _, s := range sys.servers {
		sys.addNode(s)
	}

	if cfg.Dump != nil {
		sys.dump = NewDataDump(cfg.Dump.Period, dumpOut, sys.nodes)
	}
	return sys, nil
}

func (sys *System) addNode(n Node) {
	sys.nodes = append(sys.nodes, n)
	sys.byName[n.Name()] = n
	if r, ok := n.(Resetter); ok {
		sys.resetters = append(sys.resetters, r)
	}
}

// SetTrace records every message sent from now on into st.
func (sys *System) SetTrace(st *trace.SimulationTrace) {
	sys.msgTrace = st
}

// Send routes requests to their server and answers to their client.
func (sys *System) Send(m *Message) {
	if sys.msgTrace.Enabled() {
		sys.msgTrace.RecordMessage(trace.MessageRecord{
			MessageID: m.ID,
			Clock:     sys.sched.Now(),
			Kind:      m.Kind.String(),
			Client:    m.Client,
			Server:    m.Server,
			Created:   m.Created,
		})
	}
	dest := m.Server
	if m.Kind != KindRequest {
		dest = m.Client
	}
	n, ok := sys.byName[dest]
	if !ok {
		logrus.Warnf("[t=%g] dropped %s: no node named %q", sys.sched.Now(), m, dest)
		sys.dropped++
		return
	}
	n.Deliver(m)
}

// NextMessageID returns a fresh message ID.
func (sys *System) NextMessageID() uint64 {
	sys.nextMessageID++
	return sys.nextMessageID
}

// Run starts every client and the data dump and runs until virtual time
// passes run_time. Statistics are reset once when virtual time first passes
// reset_time.
func (sys *System) Run() sim.StopReason {
	for _, c := range sys.clients {
		sys.sched.Start(c.Name(), c)
	}
	if sys.dump != nil {
		sys.sched.Start("datadump", sys.dump)
	}

	logrus.Infof("running %q: run_time=%g reset_time=%g seed=%d clients=%d servers=%d",
		sys.cfg.Name, sys.cfg.RunTime, sys.cfg.ResetTime, sys.cfg.Seed, len(sys.clients), len(sys.servers))
	sys.wallStart = time.Now()
	reason := sys.sched.Run(sim.StopFunc(sys.stop))
	sys.wallElapsed = time.Since(sys.wallStart)
	logrus.Infof("finished %q at t=%g (%s) after %d dispatches in %s",
		sys.cfg.Name, sys.sched.Now(), reason, sys.sched.Dispatched(), sys.wallElapsed.Round(time.Millisecond))
	return reason
}

// stop is evaluated before every dispatch.
func (sys *System) stop(s *sim.Scheduler) bool {
	now := s.Now()
	if every := sys.cfg.ProgressEvery; every > 0 && s.Dispatched() > 0 && s.Dispatched()%every == 0 {
		sys.logProgress(now)
	}
	if sys.cfg.ResetTime > 0 && !sys.resetDone && now > sys.cfg.ResetTime {
		sys.ResetStatistics()
	}
	return now > sys.cfg.RunTime
}

func (sys *System) logProgress(now float64) {
	wall := time.Since(sys.wallStart)
	var eta time.Duration
	if now > 0 {
		eta = time.Duration((sys.cfg.RunTime - now) / now * float64(wall))
	}
	logrus.Infof("progress: virtual t=%g of %g, real %s, ETA %s",
		now, sys.cfg.RunTime, wall.Round(time.Millisecond), eta.Round(time.Second))
}

// ResetStatistics discards everything measured so far, ending the warm-up.
func (sys *System) ResetStatistics() {
	logrus.Infof("[t=%g] warm-up over, resetting statistics", sys.sched.Now())
	for _, r := range sys.resetters {
		r.Reset()
	}
	sys.dropped = 0
	sys.resetDone = true
}

// WriteReport writes the end-of-run summary.
func (sys *System) WriteReport(w io.Writer) error {
	if err := WriteReport(w, sys.nodes); err != nil {
		return err
	}
	virtual := sys.sched.Now()
	wall := sys.wallElapsed.Seconds()
	_, err := fmt.Fprintf(w, "\nSimulation took %.3fs (real), %.3fs (virtual) to execute.\n", wall, virtual)
	if err == nil && wall > 0 {
		_, err = fmt.Fprintf(w, "Speedup of %.1f over virtual time.\n", virtual/wall)
	}
	return err
}

// Scheduler returns the system's scheduler.
func (sys *System) Scheduler() *sim.Scheduler { return sys.sched }

// Clients returns the clients in configuration order.
func (sys *System) Clients() []*Client { return sys.clients }

// Servers returns the servers in configuration order.
func (sys *System) Servers() []*Server { return sys.servers }

// Nodes returns every node, clients first.
func (sys *System) Nodes() []Node { return sys.nodes }

// Dropped returns the number of messages addressed to unknown nodes.
func (sys *System) Dropped() int64 { return sys.dropped }

// Dump returns the data dump, or nil when none was configured.
func (sys *System) Dump() *DataDump { return sys.dump }
