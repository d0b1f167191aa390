// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

import (
	"errors"
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"go.uber.org/zap"
)

const (
	queueStateRunning uint64 = 0
	queueStateStopped uint64 = 1

	eventBusCapacity = 4096
)

// ProcessQueue is a fixed-capacity pool of actor slots multiplexed over a
// small set of worker goroutines. It is the scheduler, the free-slot
// allocator, and the routing table for Send/Receive/Self/Parent.
//
// A ProcessQueue owns processes, procPool, and runQueue for its entire
// lifetime; Release is the only legal way to tear them down.
type ProcessQueue struct {
	processes []actorRecord
	procPool  *BoundedQueue[*actorRecord]
	runQueue  *BoundedQueue[*actorRecord]

	procCount atomix.Uint64
	state     atomix.Uint64

	current   *currentActorTable
	workersWG sync.WaitGroup
	eventWG   sync.WaitGroup

	logger  *zap.Logger
	metrics MetricsHook
	events  *MPSC[lifecycleEvent]
}

// NewProcessQueue allocates processCap actor slots and starts threadCount
// worker goroutines. processCap and threadCount must both be positive.
func NewProcessQueue(processCap, threadCount int, opts ...Option) (*ProcessQueue, error) {
	if processCap < 1 {
		return nil, errors.New("tcpm: processCap must be >= 1")
	}
	if threadCount < 1 {
		return nil, errors.New("tcpm: threadCount must be >= 1")
	}

	q := &ProcessQueue{
		processes: make([]actorRecord, processCap),
		current:   newCurrentActorTable(),
	}
	q.procPool = NewBoundedQueue[*actorRecord](processCap, nil)
	q.runQueue = NewBoundedQueue[*actorRecord](processCap, func(a *actorRecord) {
		a.release()
	})

	for i := range q.processes {
		q.processes[i].id = uint32(i)
		q.processes[i].queue = q
		q.procPool.Push(&q.processes[i])
	}

	for _, opt := range opts {
		opt(q)
	}

	if q.logger != nil {
		q.events = NewMPSC[lifecycleEvent](eventBusCapacity)
		q.eventWG.Add(1)
		go q.eventLoop()
	}

	q.workersWG.Add(threadCount)
	for i := 0; i < threadCount; i++ {
		go q.workerLoop()
	}

	return q, nil
}

// workerLoop is one of threadCount identical goroutines draining the run
// queue. There is no preemption: a handler that never returns keeps this
// goroutine forever, the same trade-off the cooperative model always makes.
func (q *ProcessQueue) workerLoop() {
	defer q.workersWG.Done()

	for q.state.LoadAcquire() == queueStateRunning {
		actor, ok := q.runQueue.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		q.runCycle(actor)
	}
}

// runCycle invokes actor's handler up to maxMessagesPerCycle times, then
// retires or re-enqueues it according to the last ProcessControl returned.
func (q *ProcessQueue) runCycle(actor *actorRecord) {
	stopped := false

	for i := uint32(0); i < actor.maxMessagesPerCycle; i++ {
		var message any
		if runningState(actor.runningState.LoadAcquire()) == stateWaiting {
			msg, ok := actor.mailbox.Pop()
			if !ok {
				break
			}
			message = msg
		}

		ctl, panicked := q.invoke(actor, message)
		if panicked {
			stopped = true
			break
		}

		switch ctl {
		case Stop:
			stopped = true
		case WaitMessage:
			actor.runningState.StoreRelease(uint64(stateWaiting))
		case Continue:
			actor.runningState.StoreRelease(uint64(stateRunning))
		default:
			panic("tcpm: handler returned unrecognized ProcessControl")
		}

		if stopped {
			break
		}
	}

	if stopped {
		q.retire(actor)
		return
	}

	sw := spin.Wait{}
	for !q.runQueue.Push(actor) {
		runtime.Gosched()
		sw.Once()
	}
}

// invoke runs one handler turn under recover, isolating a handler panic to
// this one actor rather than taking down the worker goroutine currently
// running it — a fixed-size pool that loses a thread to every misbehaving
// actor would eventually stop scheduling anyone. A caught panic is reported
// as if the handler had returned Stop.
func (q *ProcessQueue) invoke(actor *actorRecord, message any) (ctl ProcessControl, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			if q.logger != nil {
				q.logger.Error("actor handler panicked",
					zap.Uint32("slot", actor.id),
					zap.Any("panic", r))
			}
		}
	}()

	q.current.set(actor)
	defer q.current.clear()
	return actor.handler(q, actor.state, message), false
}

// retire runs the actor's release protocol and updates accounting. It must
// be called with actor no longer reachable from runQueue.
func (q *ProcessQueue) retire(actor *actorRecord) {
	slot := actor.id
	gen := actor.gen.LoadAcquire()

	actor.release()
	newCount := q.procCount.AddAcqRel(^uint64(0))

	if q.metrics != nil {
		q.metrics.ObserveProcCount(int64(newCount))
	}
	q.emit(lifecycleEvent{kind: eventStopped, slot: slot, gen: gen})
}

// Spawn allocates a free slot and puts it on the run queue. It returns
// NilPID if the pool is at capacity, after invoking params.ReleaseState on
// the rejected initial state (if provided).
func (q *ProcessQueue) Spawn(params SpawnParameters) PID {
	if params.Handler == nil {
		panic("tcpm: SpawnParameters.Handler is required")
	}

	newCount := q.procCount.AddAcqRel(1)
	if newCount > uint64(len(q.processes)) {
		q.procCount.AddAcqRel(^uint64(0))
		if params.ReleaseState != nil {
			params.ReleaseState(params.InitialState)
		}
		return NilPID
	}

	var actor *actorRecord
	sw := spin.Wait{}
	for {
		a, ok := q.procPool.Pop()
		if ok {
			actor = a
			break
		}
		runtime.Gosched()
		sw.Once()
	}

	var parent PID
	hasParent := false
	if cur := q.current.get(); cur != nil {
		parent = cur.pid()
		hasParent = true
	}

	messageCap := params.MessageCap
	if messageCap < 1 {
		messageCap = 1
	}
	maxPerCycle := params.MaxMessagesPerCycle
	if maxPerCycle == 0 || maxPerCycle > uint32(messageCap) {
		maxPerCycle = uint32(messageCap)
	}

	actor.handler = params.Handler
	actor.state = params.InitialState
	actor.releaseState = params.ReleaseState
	actor.messageRelease = params.MessageRelease
	actor.mailbox = NewBoundedQueue[any](messageCap, params.MessageRelease)
	actor.maxMessagesPerCycle = maxPerCycle
	actor.hasParent = hasParent
	actor.parent = parent
	actor.runningState.StoreRelease(uint64(stateRunning))

	pid := actor.pid()

	sw2 := spin.Wait{}
	for !q.runQueue.Push(actor) {
		runtime.Gosched()
		sw2.Once()
	}

	if q.metrics != nil {
		q.metrics.IncSpawned()
		q.metrics.ObserveProcCount(int64(newCount))
	}
	q.emit(lifecycleEvent{kind: eventSpawned, slot: actor.id, gen: pid.gen})

	return pid
}

// Send delivers message to dest's mailbox. It never blocks: a terminating
// destination yields SendFail rather than stalling the caller.
func (q *ProcessQueue) Send(dest PID, message any, action MessageAction) SendResult {
	if dest.IsNil() {
		if q.metrics != nil {
			q.metrics.IncSend(ActorIsDead)
		}
		return ActorIsDead
	}

	target := dest.queue
	actor := &target.processes[dest.slot]

	if !actor.lock.tryLock() {
		if target.metrics != nil {
			target.metrics.IncSend(SendFail)
		}
		return SendFail
	}
	defer actor.lock.unlock()

	if actor.gen.LoadAcquire() != dest.gen {
		if target.metrics != nil {
			target.metrics.IncSend(ActorIsDead)
		}
		return ActorIsDead
	}

	if actor.mailbox.Push(message) {
		if target.metrics != nil {
			target.metrics.IncSend(SendSuccess)
		}
		return SendSuccess
	}

	if action == Remove && actor.messageRelease != nil {
		actor.messageRelease(message)
	}
	if target.metrics != nil {
		target.metrics.IncSend(SendFail)
	}
	return SendFail
}

// Receive pops one message from the calling handler's own mailbox. It must
// only be called from inside a handler invocation.
func (q *ProcessQueue) Receive() (any, bool) {
	cur := q.current.get()
	if cur == nil {
		return nil, false
	}
	return cur.mailbox.Pop()
}

// Self returns the calling handler's own PID. It must only be called from
// inside a handler invocation; otherwise it returns NilPID.
func (q *ProcessQueue) Self() PID {
	cur := q.current.get()
	if cur == nil {
		return NilPID
	}
	return cur.pid()
}

// Parent returns the PID captured at spawn time for the calling handler's
// actor, or NilPID for a root actor or when called outside a handler.
func (q *ProcessQueue) Parent() PID {
	cur := q.current.get()
	if cur == nil || !cur.hasParent {
		return NilPID
	}
	return cur.parent
}

// ProcCount reports the number of currently live actors.
func (q *ProcessQueue) ProcCount() int64 {
	return int64(q.procCount.LoadAcquire())
}

// Release stops accepting new worker cycles, waits for every worker (and
// the event-bus consumer, if logging is enabled) to exit, then drains the
// run queue through each still-live actor's release protocol. It is a
// no-op if called more than once.
func (q *ProcessQueue) Release() {
	if !q.state.CompareAndSwapAcqRel(queueStateRunning, queueStateStopped) {
		return
	}

	q.workersWG.Wait()

	if q.events != nil {
		q.events.Drain()
		q.eventWG.Wait()
	}

	q.runQueue.Release()
	q.procPool.Release()
}
