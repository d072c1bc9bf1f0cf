// Package gopool runs short tasks on a shared goroutine pool.
package gopool

import (
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

var (
	// Init a instance pool when importing ants.
	defaultPool, _   = ants.NewPool(ants.DefaultAntsPoolSize, ants.WithExpiryDuration(10*time.Second))
	minNumberPerTask = 5
)

// Submit submits a task to pool.
func Submit(task func()) error {
	return defaultPool.Submit(task)
}

// Running returns the number of the currently running goroutines.
func Running() int {
	return defaultPool.Running()
}

// Cap returns the capacity of this default pool.
func Cap() int {
	return defaultPool.Cap()
}

// Free returns the available goroutines to work.
func Free() int {
	return defaultPool.Free()
}

// Release Closes the default pool.
func Release() {
	defaultPool.Release()
}

// Reboot reboots the default pool.
func Reboot() {
	defaultPool.Reboot()
}

// Threads returns how many workers are worth starting for tasks items,
// capped by the number of CPUs.
func Threads(tasks int) int {
	threads := tasks / minNumberPerTask
	if threads > runtime.NumCPU() {
		threads = runtime.NumCPU()
	} else if threads == 0 {
		threads = 1
	}
	return threads
}

// Workers runs work(id) on n pooled goroutines and waits for all of them.
// A worker that cannot be scheduled on the pool runs on its own goroutine.
func Workers(n int, work func(id int)) {
	if n <= 1 {
		work(0)
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for id := 0; id < n; id++ {
		id := id
		task := func() {
			defer wg.Done()
			work(id)
		}
		if err := Submit(task); err != nil {
			go task()
		}
	}
	wg.Wait()
}
