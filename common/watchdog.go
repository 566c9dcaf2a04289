/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	watchdog.go: timer that fires when an activity source goes silent.
*/
package common

import (
	"sync/atomic"
	"time"
)

type WatchDog struct {
	t  *time.Timer
	d  time.Duration
	i  uint32 // set while the WD is armed, so a Stop is not reported as a trigger
	tr uint32
	C  chan struct{}
}

// NewWatchDog creates a watchdog that sends on C when Poke has not been
// called for wdTime. The send is non-blocking so a slow consumer never
// stalls the timer callback.
func NewWatchDog(wdTime time.Duration) *WatchDog {
	wd := WatchDog{
		d: wdTime,
		i: 0,
		C: make(chan struct{}),
	}

	wd.t = time.AfterFunc(wdTime, func() {
		if atomic.LoadUint32(&wd.i) != 0 {
			atomic.StoreUint32(&wd.tr, uint32(1))
			select {
			case wd.C <- struct{}{}:
			default:
			}
		}
	})

	return &wd
}

func (w *WatchDog) IsTriggered() bool {
	return atomic.LoadUint32(&w.tr) != 0
}

// Poke re-arms the watchdog.
func (w *WatchDog) Poke() {
	atomic.StoreUint32(&w.i, uint32(0))
	w.t.Stop()
	w.t.Reset(w.d)
	atomic.StoreUint32(&w.i, uint32(1))
	atomic.StoreUint32(&w.tr, uint32(0))
}

// Stop the WD without triggering.
func (w *WatchDog) Stop() {
	atomic.StoreUint32(&w.i, uint32(0))
	w.t.Stop()
}
