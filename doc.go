// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tcpm implements a tiny cooperative actor runtime: a fixed pool
// of slots addressed by (slot, generation) PIDs, each running a
// single-threaded message handler multiplexed cooperatively across a
// small number of worker goroutines.
//
// # Quick Start
//
//	pq, err := tcpm.NewProcessQueue(1024, runtime.NumCPU())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pq.Release()
//
//	pid := pq.Spawn(tcpm.SpawnParameters{
//	    Handler: func(q *tcpm.ProcessQueue, state any, msg any) tcpm.ProcessControl {
//	        fmt.Println("got", msg)
//	        return tcpm.WaitMessage
//	    },
//	    MessageCap:          64,
//	    MaxMessagesPerCycle: 16,
//	})
//
//	pq.Send(pid, "hello", tcpm.Remove)
//
// # Scheduling Model
//
// Each worker goroutine runs a plain for loop: pop one actor off the run
// queue, invoke its handler up to MaxMessagesPerCycle times, then either
// tear it down (Stop) or push it back onto the run queue (Continue, or
// WaitMessage whether or not its mailbox holds a message; a waiting actor
// with an empty mailbox is simply visited again on a later cycle). There
// is no preemption: a
// handler that blocks or loops forever starves its worker, the same
// trade-off the cooperative model always makes in exchange for zero
// scheduling overhead between messages.
//
// # Addressing and Generations
//
// A PID names a (slot, generation) pair. Slots are allocated once, for
// the lifetime of the ProcessQueue, and recycled across spawn/release
// cycles; the generation counter is bumped on every release so a PID
// captured before a slot's reuse can never address the new occupant —
// Send on a stale PID returns ActorIsDead instead of silently reaching
// a different actor.
//
// # Error Handling
//
// The queues backing the run queue, proc pool, and per-actor mailboxes
// report backpressure via [code.hybscloud.com/iox]'s semantic
// ErrWouldBlock internally; BoundedQueue narrows this to a bool at its
// public boundary (Push/Pop), and ProcessQueue narrows it further to
// the closed SendResult/ProcessControl enums the actor model calls for.
// Callers of BoundedQueue and ProcessQueue never see ErrWouldBlock
// directly; only MPSC, which keeps an error-returning style, returns it.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established purely through atomic acquire-release orderings. The
// queue algorithms in this package are correct under the C11-style
// memory model that [code.hybscloud.com/atomix] exposes, but a few
// stress tests that rely on that ordering exclusively skip themselves in
// race-detector runs by checking RaceEnabled; see race.go and race_off.go.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, [code.hybscloud.com/spin] for CAS-retry backoff, and
// [go.uber.org/zap] for the optional structured logging attached via
// WithLogger. See the metrics subpackage for the optional
// Prometheus-backed MetricsHook, and cmd/spawn1m for a cobra-driven CLI
// that exercises the runtime end to end.
package tcpm
