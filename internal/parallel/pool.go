// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package parallel runs compute work-groups on a pool of goroutines.
package parallel

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when work is submitted after Close.
var ErrPoolClosed = errors.New("parallel: pool closed")

// WorkerPool is a pool of goroutines executing kernel work-groups.
//
// Each worker has its own queue. Workers steal from other queues when
// their own is empty, which balances load when work-groups near image
// borders take a slower path than interior ones.
//
// Thread safety: WorkerPool is safe for concurrent use. Several dispatches
// may share one pool.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewWorkerPool creates a pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return
		case work := <-myQueue:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drainQueue(myQueue)
				return
			case work := <-myQueue:
				work()
			}
		}
	}
}

func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

// steal takes one item from another worker's queue, or returns nil.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll distributes work across workers and waits for all of it.
//
// A panic inside a work item is recovered and returned as an error; the
// remaining items still run. Returns ErrPoolClosed if the pool was closed
// before all work could be queued.
func (p *WorkerPool) ExecuteAll(work []func()) error {
	if len(work) == 0 {
		return nil
	}
	if !p.running.Load() {
		return ErrPoolClosed
	}

	var (
		completion sync.WaitGroup
		firstErr   atomic.Pointer[error]
		skipped    atomic.Bool
	)
	completion.Add(len(work))

	for i, fn := range work {
		wrapped := func() {
			defer completion.Done()
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("parallel: work item panicked: %v", r)
					firstErr.CompareAndSwap(nil, &err)
				}
			}()
			fn()
		}

		select {
		case p.workQueues[i%p.workers] <- wrapped:
		case <-p.done:
			skipped.Store(true)
			completion.Done()
		}
	}

	completion.Wait()

	if skipped.Load() {
		return ErrPoolClosed
	}
	if errp := firstErr.Load(); errp != nil {
		return *errp
	}
	return nil
}

// ForEachTile splits a width x height domain into size x size tiles and
// calls fn for each tile on the pool. Edge tiles are clipped to the
// domain. fn receives inclusive x0, y0 and exclusive x1, y1 bounds.
func (p *WorkerPool) ForEachTile(width, height, size int, fn func(x0, y0, x1, y1 int)) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if size <= 0 {
		size = 16
	}

	tilesX := (width + size - 1) / size
	tilesY := (height + size - 1) / size
	work := make([]func(), 0, tilesX*tilesY)
	for ty := range tilesY {
		for tx := range tilesX {
			x0, y0 := tx*size, ty*size
			x1, y1 := min(x0+size, width), min(y0+size, height)
			work = append(work, func() { fn(x0, y0, x1, y1) })
		}
	}
	return p.ExecuteAll(work)
}

// Close stops accepting new work, waits for queued work to complete and
// stops all workers. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the approximate number of queued work items.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
