// Package sim provides the core process-oriented discrete-event simulation
// kernel for psim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - process.go: Proc lifecycle (created → waiting/passive → running → terminated) and Hold/Passivate/Activate
//   - event.go: The event list, ordered by (wake time, scheduling sequence)
//   - scheduler.go: The main loop and the control handoff between the scheduler and process goroutines
//
// # Architecture
//
// The sim package holds the kernel; everything built on it lives in
// sub-packages:
//   - sim/stats/: Measure, SystemMeasure and Resource accumulators
//   - sim/dist/: Random variate samplers and the YAML DistSpec factory
//   - sim/model/: Client/server queueing network built on the kernel
//   - sim/trace/: Message trace recording
//
// # Key Types
//
//   - Scheduler: virtual clock, event list, Run(StopCondition)
//   - Process: the body a Proc executes; ProcessFunc adapts a plain function
//   - StopCondition: Horizon, AfterTime, MaxDispatches, AnyOf, StopFunc
//   - Queue: FIFO with length and waiting-time statistics, optionally bounded (balking)
//   - PartitionedRNG: per-subsystem random streams derived from one seed
//
// Exactly one of {scheduler, one process} runs at any instant, so model code
// needs no locking. Virtual time never decreases, and processes woken at the
// same time run in the order they were scheduled.
package sim
