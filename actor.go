// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

import "code.hybscloud.com/atomix"

// runningState is the actor's observable scheduling state.
type runningState uint64

const (
	// stateRunning means "call me again with no message."
	stateRunning runningState = 0
	// stateWaiting means "call me only when a message arrives."
	stateWaiting runningState = 1
)

// actorRecord is the per-slot state backing one actor. Slots are allocated
// once, for the lifetime of the owning ProcessQueue, and reused across
// spawn/terminate cycles; gen distinguishes successive occupants of the
// same slot so a PID captured before a recycle can never address the new
// occupant.
type actorRecord struct {
	id    uint32
	gen   atomix.Uint64
	queue *ProcessQueue

	hasParent bool
	parent    PID

	handler        Handler
	state          any
	releaseState   func(any)
	messageRelease func(any)
	mailbox        *BoundedQueue[any]

	maxMessagesPerCycle uint32
	runningState        atomix.Uint64 // runningState, written only by the worker owning this cycle

	lock releaseLock
}

// pid returns this slot's current address.
func (a *actorRecord) pid() PID {
	return PID{queue: a.queue, slot: a.id, gen: a.gen.LoadAcquire()}
}

// release is the termination procedure: bump generation, release user
// state, drain the mailbox, return the slot to the pool. gen is bumped
// before the slot becomes visible in the free pool so a sender that
// acquires the release lock afterward observes the generation mismatch
// rather than the stale owner.
//
// The slot is pushed back to the pool before the lock is released, not
// after: a late sender may see the new generation but still find the lock
// held, and will back off with SendFail rather than racing the next
// occupant's initialization.
func (a *actorRecord) release() {
	a.lock.lock()
	a.gen.AddAcqRel(1)

	if a.releaseState != nil {
		a.releaseState(a.state)
	}
	a.state = nil

	if a.mailbox != nil {
		a.mailbox.Release()
		a.mailbox = nil
	}

	a.queue.procPool.Push(a)
	a.lock.unlock()
}
