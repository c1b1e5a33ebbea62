// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package texpool recycles host texture memory for the software backend.
package texpool

import (
	"fmt"
	"sync"

	"github.com/gogpu/camproc/gpucore"
)

// Pool is a thread-safe pool of texture buffers with an optional budget.
//
// Buffers are grouped by dimensions and format. At steady state the frame
// store allocates one mosaic texture per captured frame and the debayer
// engine one surface per cell and frame, all of identical size, so almost
// every Get is served from a bucket.
//
// The budget limits the bytes of buffers handed out and not yet returned.
// Idle pooled buffers do not count against it.
type Pool struct {
	mu      sync.Mutex
	buckets map[poolKey][][]byte
	maxSize int
	budget  int64
	live    int64
	hits    uint64
	misses  uint64
}

type poolKey struct {
	width  int
	height int
	format gpucore.TextureFormat
}

// New creates a pool retaining at most maxPerBucket idle buffers per size.
// A budget of 0 means unlimited.
func New(maxPerBucket int, budget int64) *Pool {
	return &Pool{
		buckets: make(map[poolKey][][]byte),
		maxSize: maxPerBucket,
		budget:  budget,
	}
}

// Get returns a zeroed buffer for a width x height texture.
// Returns an error wrapping gpucore.ErrOutOfMemory when the buffer would
// exceed the budget.
func (p *Pool) Get(width, height int, format gpucore.TextureFormat) ([]byte, error) {
	size := gpucore.TextureSize(width, height, format)
	if size <= 0 {
		return nil, fmt.Errorf("texpool: invalid texture %dx%d %v", width, height, format)
	}
	key := poolKey{width: width, height: height, format: format}

	p.mu.Lock()
	if p.budget > 0 && p.live+int64(size) > p.budget {
		live := p.live
		p.mu.Unlock()
		return nil, fmt.Errorf("texpool: %d bytes requested, %d of %d in use: %w",
			size, live, p.budget, gpucore.ErrOutOfMemory)
	}
	p.live += int64(size)

	if bucket := p.buckets[key]; len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		p.buckets[key] = bucket[:len(bucket)-1]
		p.hits++
		p.mu.Unlock()
		clear(buf)
		return buf, nil
	}
	p.misses++
	p.mu.Unlock()

	return make([]byte, size), nil
}

// Put returns a buffer obtained from Get.
// If the bucket is at capacity the buffer is left to the garbage collector.
func (p *Pool) Put(width, height int, format gpucore.TextureFormat, buf []byte) {
	if buf == nil {
		return
	}
	key := poolKey{width: width, height: height, format: format}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.live -= int64(len(buf))
	if p.live < 0 {
		p.live = 0
	}

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, buf)
}

// Stats is a snapshot of pool counters.
type Stats struct {
	LiveBytes int64
	Budget    int64
	Hits      uint64
	Misses    uint64
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{LiveBytes: p.live, Budget: p.budget, Hits: p.hits, Misses: p.misses}
}

// Reset drops all idle buffers.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.buckets)
}
