// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// releaseLock is a single-bit spinlock serializing actor termination
// against concurrent senders. The critical section is always short (a
// release or one mailbox push), so spinning is cheaper here than a
// blocking mutex would be; try-lock semantics are load-bearing for Send,
// which must never stall on a dying actor.
type releaseLock struct {
	state atomix.Uint64 // 0 = unlocked, 1 = locked
}

func (l *releaseLock) lock() {
	sw := spin.Wait{}
	for !l.state.CompareAndSwapAcqRel(0, 1) {
		sw.Once()
	}
}

func (l *releaseLock) unlock() {
	l.state.StoreRelease(0)
}

// tryLock reports whether the lock was free and is now held by the
// caller. It never blocks.
func (l *releaseLock) tryLock() bool {
	return l.state.CompareAndSwapAcqRel(0, 1)
}
