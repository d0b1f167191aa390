// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

// PID addresses an actor by (owning queue, slot index, generation). It is
// opaque to callers and compared by equality of all three fields, which
// Go's == already does for this struct since every field is itself
// comparable.
type PID struct {
	queue *ProcessQueue
	slot  uint32
	gen   uint64
}

// NilPID is returned by Spawn when the process pool is at capacity.
var NilPID = PID{}

// IsNil reports whether p is the null PID returned on spawn rejection.
func (p PID) IsNil() bool {
	return p.queue == nil
}

// ProcessControl is the value a Handler returns to tell the scheduler what
// to do with the actor after this invocation.
type ProcessControl int

const (
	// Stop terminates the actor: the runtime releases its state, drains
	// and releases its mailbox, bumps its generation, and returns the
	// slot to the pool.
	Stop ProcessControl = iota
	// WaitMessage transitions the actor to WAITING: the scheduler will
	// not re-enter the handler until a mailbox pop succeeds.
	WaitMessage
	// Continue keeps (or makes) the actor RUNNING: it will be re-entered
	// with a nil message on its next handler turn, later in the same cycle
	// while MaxMessagesPerCycle allows, otherwise on its next cycle.
	Continue
)

func (c ProcessControl) String() string {
	switch c {
	case Stop:
		return "stop"
	case WaitMessage:
		return "wait_message"
	case Continue:
		return "continue"
	default:
		return "invalid"
	}
}

// Handler is invoked by the scheduler once per cycle turn. message is nil
// when the actor is RUNNING; it is the just-popped mailbox message when the
// actor is WAITING.
type Handler func(q *ProcessQueue, state any, message any) ProcessControl

// SendResult is the outcome of Send.
type SendResult int

const (
	SendSuccess SendResult = iota
	SendFail
	ActorIsDead
)

func (r SendResult) String() string {
	switch r {
	case SendSuccess:
		return "send_success"
	case SendFail:
		return "send_fail"
	case ActorIsDead:
		return "actor_is_dead"
	default:
		return "invalid"
	}
}

// MessageAction selects what happens to a message that failed to enqueue
// into a full mailbox.
type MessageAction int

const (
	// Keep leaves the caller owning the message.
	Keep MessageAction = iota
	// Remove invokes the mailbox's message-release callback to discard it.
	Remove
)

// SpawnParameters configures a new actor.
type SpawnParameters struct {
	// Handler is invoked on every cycle turn. Required.
	Handler Handler
	// InitialState is the actor's opaque user state, passed to Handler.
	InitialState any
	// ReleaseState, if set, is invoked on termination (and on rejected
	// spawn, when the process pool is at capacity) to free InitialState.
	ReleaseState func(any)
	// MessageRelease, if set, is invoked for every mailbox message still
	// unreceived at actor death or queue shutdown.
	MessageRelease func(any)
	// MessageCap bounds the actor's mailbox.
	MessageCap int
	// MaxMessagesPerCycle bounds how many handler invocations a single
	// scheduling visit may perform; clamped to MessageCap.
	MaxMessagesPerCycle uint32
}
