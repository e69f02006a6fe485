package kernels

import (
	"runtime"
	"sync"
)

// rowTask asks a worker to run fn over rows [rs, re).
type rowTask struct {
	fn     func(rs, re int)
	rs, re int
	done   chan struct{}
}

type rowPool struct {
	size      int
	tasks     chan rowTask
	doneSlots chan chan struct{}
}

var (
	rowWorkPool *rowPool
	rowPoolOnce sync.Once
)

func getRowPool() *rowPool {
	rowPoolOnce.Do(func() {
		rowWorkPool = newRowPool()
	})
	return rowWorkPool
}

func newRowPool() *rowPool {
	size := runtime.GOMAXPROCS(0)
	if size < 1 {
		size = 1
	}
	p := &rowPool{
		size:      size,
		tasks:     make(chan rowTask, size*2),
		doneSlots: make(chan chan struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.doneSlots <- make(chan struct{}, 1)
	}
	for i := 0; i < size; i++ {
		go func() {
			for task := range p.tasks {
				task.fn(task.rs, task.re)
				task.done <- struct{}{}
			}
		}()
	}
	return p
}

// minParallelElems keeps small tensors on the calling goroutine; the pool
// handoff costs more than the work below this.
const minParallelElems = 4096

// parallelRows splits rows into contiguous chunks across the worker pool.
// fn must be safe to call concurrently on disjoint row ranges; each chunk
// writes a disjoint output region, so no locking is involved.
func parallelRows(rows, rowLen int, fn func(rs, re int)) {
	pool := getRowPool()
	workers := pool.size
	if workers > rows {
		workers = rows
	}

	if workers <= 1 || rows*rowLen < minParallelElems {
		fn(0, rows)
		return
	}

	chunk := (rows + workers - 1) / workers
	done := <-pool.doneSlots

	active := 0
	for i := 0; i < workers; i++ {
		rs := i * chunk
		re := rs + chunk
		if re > rows {
			re = rows
		}
		if rs >= re {
			break
		}
		active++
		pool.tasks <- rowTask{fn: fn, rs: rs, re: re, done: done}
	}

	for i := 0; i < active; i++ {
		<-done
	}
	pool.doneSlots <- done
}
