// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

import "code.hybscloud.com/atomix"

// SPSC is a single-producer single-consumer bounded queue, based on
// Lamport's ring buffer with cached index optimization: the producer
// caches the consumer's dequeue index and vice versa, cutting cross-core
// cache-line traffic relative to the MPMC algorithm used by BoundedQueue.
//
// cmd/spawn1m uses one of these to stream spawn batches from its
// generator stage to its submission stage; nothing in the scheduler
// itself needs single-producer/single-consumer ordering, since run queue,
// proc pool, and mailboxes all have multiple producers or multiple
// consumers.
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []T
	mask       uint64
}

// NewSPSC creates a new SPSC queue. Capacity rounds up to the next power
// of 2.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 2 {
		panic("tcpm: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	return &SPSC[T]{
		buffer: make([]T, n),
		mask:   n - 1,
	}
}

// Enqueue adds an element to the queue (producer only).
// Returns false if the queue is full.
func (q *SPSC[T]) Enqueue(elem T) bool {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return false
		}
	}

	q.buffer[tail&q.mask] = elem
	q.tail.StoreRelease(tail + 1)
	return true
}

// Dequeue removes and returns an element (consumer only).
// Returns the zero value and false if the queue is empty.
func (q *SPSC[T]) Dequeue() (T, bool) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, false
		}
	}

	elem := q.buffer[head&q.mask]
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return elem, true
}

// Cap returns the queue capacity.
func (q *SPSC[T]) Cap() int {
	return int(q.mask + 1)
}
