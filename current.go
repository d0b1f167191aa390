// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tcpm

import (
	"fmt"
	"runtime"
	"sync"
)

// currentActorTable models the scheduler's "who is running on this worker
// right now" without threading it explicitly through every handler helper
// (Self, Parent, Receive). It is this package's stand-in for native
// thread-local storage: a worker goroutine is the long-lived equivalent of
// one of the original library's pthreads, and it sets/clears its own entry
// immediately before and after invoking a handler.
type currentActorTable struct {
	mu sync.RWMutex
	m  map[uint64]*actorRecord
}

func newCurrentActorTable() *currentActorTable {
	return &currentActorTable{m: make(map[uint64]*actorRecord)}
}

func (t *currentActorTable) set(proc *actorRecord) {
	id := goid()
	t.mu.Lock()
	t.m[id] = proc
	t.mu.Unlock()
}

func (t *currentActorTable) clear() {
	id := goid()
	t.mu.Lock()
	delete(t.m, id)
	t.mu.Unlock()
}

func (t *currentActorTable) get() *actorRecord {
	id := goid()
	t.mu.RLock()
	proc := t.m[id]
	t.mu.RUnlock()
	return proc
}

// goid extracts the calling goroutine's id from its stack trace header.
// It is only ever used to key currentActorTable, never for scheduling
// decisions. Its small per-call cost (a few hundred ns) is paid twice per
// handler invocation (set and clear) and once per Spawn, Self, Parent or
// Receive call.
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	_, _ = fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}
