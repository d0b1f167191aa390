// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

import (
	"runtime"

	"go.uber.org/zap"
)

// eventKind distinguishes the lifecycle transitions a ProcessQueue reports
// through its internal event bus.
type eventKind uint8

const (
	eventSpawned eventKind = iota
	eventStopped
)

// lifecycleEvent is one entry on the scheduler's internal MPSC event bus.
// Worker goroutines are producers; eventLoop is the sole consumer.
type lifecycleEvent struct {
	kind eventKind
	slot uint32
	gen  uint64
}

// eventLoop drains events off the bus and turns them into structured log
// lines, keeping zap's allocation and I/O cost off the worker goroutines
// that invoke handlers. It returns once bus.Dequeue reports ErrWouldBlock
// on a drained, draining bus — the shutdown sequence calls bus.Drain()
// before waiting on this goroutine.
func (q *ProcessQueue) eventLoop() {
	defer q.eventWG.Done()

	sw := 0
	for {
		ev, err := q.events.Dequeue()
		if err != nil {
			if q.events.draining.LoadAcquire() {
				return
			}
			sw++
			if sw > 1<<12 {
				sw = 0
				runtime.Gosched()
			}
			continue
		}
		sw = 0

		switch ev.kind {
		case eventSpawned:
			q.logger.Debug("actor spawned", zap.Uint32("slot", ev.slot), zap.Uint64("gen", ev.gen))
		case eventStopped:
			q.logger.Debug("actor stopped", zap.Uint32("slot", ev.slot), zap.Uint64("gen", ev.gen))
		}
	}
}

// emit best-effort enqueues a lifecycle event. A full event bus means the
// consumer is falling behind logging; dropping the event is preferable to
// making a worker goroutine block on it.
func (q *ProcessQueue) emit(ev lifecycleEvent) {
	if q.logger == nil {
		return
	}
	_ = q.events.Enqueue(&ev)
}
