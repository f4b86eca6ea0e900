package exam

import "sync/atomic"

// latch is a single-use token: the first Acquire wins until Release.
type latch struct {
	taken int32
}

func (l *latch) Acquire() bool {
	return atomic.CompareAndSwapInt32(&l.taken, 0, 1)
}

func (l *latch) Release() {
	atomic.StoreInt32(&l.taken, 0)
}

func (l *latch) Taken() bool {
	return atomic.LoadInt32(&l.taken) == 1
}
