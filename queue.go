// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// BoundedQueue is a lock-free multi-producer/multi-consumer ring of fixed
// capacity with per-slot sequence numbers (heavily inspired from
// 1024cores.net, same lineage as lfq.MPMCSeq).
//
// Slot i starts with seq = i. A push claiming ticket t leaves its slot at
// seq = t+1; a pop claiming ticket t leaves its slot at seq = t+capacity.
// A slot is writable by the push at ticket t when seq == t, and readable
// by the pop at ticket t when seq == t+1. Acquire/release on seq is what
// establishes happens-before between a push publishing a slot and the
// paired pop observing it.
//
// Push and pop never block and never fail except on capacity (push) or
// emptiness (pop); spinning happens only on CAS contention between peers
// on the same side, bounded by spin.Wait's backoff policy.
//
// Capacity is exact, not rounded to a power of two: slot lookup indexes by
// `ticket mod capacity`, the same `el % bq->cap` the reference C
// implementation uses, so a caller asking for capacity 3 gets a mailbox
// that is full after exactly 3 pending messages, never 4.
type BoundedQueue[T any] struct {
	_        pad
	last     atomix.Uint64
	_        pad
	first    atomix.Uint64
	_        pad
	slots    []queueSlot[T]
	capacity uint64
	release  func(T)
}

type queueSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort
}

type pad [64]byte
type padShort [64 - 8]byte

// NewBoundedQueue allocates a queue of exactly the requested capacity.
//
// release, if non-nil, is invoked once per surviving element when Release
// drains the queue during teardown.
func NewBoundedQueue[T any](capacity int, release func(T)) *BoundedQueue[T] {
	if capacity < 1 {
		panic("tcpm: capacity must be >= 1")
	}
	n := uint64(capacity)
	q := &BoundedQueue[T]{
		slots:    make([]queueSlot[T], n),
		capacity: n,
		release:  release,
	}
	for i := uint64(0); i < n; i++ {
		q.slots[i].seq.StoreRelaxed(i)
	}
	return q
}

// Push attempts to enqueue data. It returns false iff the queue is full;
// it never blocks and never reports a reservation failure.
func (q *BoundedQueue[T]) Push(data T) bool {
	return q.tryPush(data) == nil
}

// tryPush is the error-signaling internal form: full is reported as
// iox.ErrWouldBlock, the ecosystem's semantic non-failure error, before
// Push narrows it to a plain bool for callers.
func (q *BoundedQueue[T]) tryPush(data T) error {
	sw := spin.Wait{}
	last := q.last.LoadAcquire()
	for {
		slot := &q.slots[last%q.capacity]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(last)

		if diff == 0 {
			if q.last.CompareAndSwapAcqRel(last, last+1) {
				break
			}
		} else if diff < 0 {
			return iox.ErrWouldBlock
		}
		last = q.last.LoadAcquire()
		sw.Once()
	}

	// Past this point any preemption makes peers on the push side spin
	// waiting for this slot's seq to publish. Normal case: producers are
	// ahead of the sequence they are about to write.
	slot := &q.slots[last%q.capacity]
	slot.data = data
	slot.seq.StoreRelease(last + 1)
	return nil
}

// Pop attempts to dequeue one element. It returns the zero value and false
// iff the queue is empty.
func (q *BoundedQueue[T]) Pop() (T, bool) {
	data, err := q.tryPop()
	return data, err == nil
}

func (q *BoundedQueue[T]) tryPop() (T, error) {
	sw := spin.Wait{}
	first := q.first.LoadAcquire()
	for {
		slot := &q.slots[first%q.capacity]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(first+1)

		if diff == 0 {
			if q.first.CompareAndSwapAcqRel(first, first+1) {
				break
			}
		} else if diff < 0 {
			var zero T
			return zero, iox.ErrWouldBlock
		}
		first = q.first.LoadAcquire()
		sw.Once()
	}

	slot := &q.slots[first%q.capacity]
	data := slot.data
	var zero T
	slot.data = zero
	slot.seq.StoreRelease(first + q.capacity)
	return data, nil
}

// Release drains any remaining elements through the registered release
// callback, then drops the backing storage. Safe to call only once no
// other goroutine holds a reference to the queue.
func (q *BoundedQueue[T]) Release() {
	if q.release != nil {
		for {
			data, ok := q.Pop()
			if !ok {
				break
			}
			q.release(data)
		}
	}
	q.slots = nil
}

// Cap returns the exact requested capacity.
func (q *BoundedQueue[T]) Cap() int {
	return int(q.capacity)
}

// roundToPow2 rounds n up to the next power of 2. Used by SPSC and MPSC,
// whose mask-based indexing is internal plumbing not bound by the exact
// user-facing capacity contract BoundedQueue must honor.
func roundToPow2(n int) int {
	if n < 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
