// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

import "code.hybscloud.com/iox"

// ErrWouldBlock indicates an internal queue operation cannot proceed
// immediately (full on enqueue, empty on dequeue). It is a control-flow
// signal, not a failure. BoundedQueue's Push/Pop and ProcessQueue's
// Spawn/Send/Receive narrow it to a plain bool/pointer/closed enum. MPSC
// keeps an error-returning style and returns it from Enqueue/Dequeue;
// MPSC backs the scheduler's internal event bus (see events.go).
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}
