// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package framestore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/camproc/frame"
	"github.com/gogpu/camproc/gpucore"
	"github.com/gogpu/camproc/internal/logging"
)

// DefaultFirstFrameDelay is the visibility delay of the first published frame.
const DefaultFirstFrameDelay = 50 * time.Millisecond

var (
	// ErrGpuResourceExhausted is returned by Publish when the device cannot
	// hold the new frame. The previous frame stays latest.
	ErrGpuResourceExhausted = errors.New("framestore: gpu resource exhausted")

	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("framestore: closed")
)

// Option configures a Store.
type Option func(*options)

type options struct {
	firstFrameDelay time.Duration
	now             func() time.Time
}

// WithFirstFrameDelay sets how long the first published frame stays hidden.
// Zero makes it visible immediately.
func WithFirstFrameDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.firstFrameDelay = d
		}
	}
}

// WithClock replaces time.Now for visibility decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

type snapshot struct {
	frame     *GpuFrame
	visibleAt time.Time
}

// Store owns the latest GpuFrame.
//
// Publish may be called from any goroutine; publishes are serialized.
// Current and Generation are lock-free.
type Store struct {
	dev  gpucore.Device
	opts options

	latest atomic.Pointer[snapshot]
	gen    atomic.Uint64
	closed atomic.Bool

	publishMu sync.Mutex

	subsMu  sync.Mutex
	subs    map[int]chan uint64
	nextSub int
}

// New creates an empty store publishing to dev.
func New(dev gpucore.Device, opts ...Option) *Store {
	o := options{firstFrameDelay: DefaultFirstFrameDelay, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{dev: dev, opts: o, subs: make(map[int]chan uint64)}
}

// Publish uploads f into a new texture and makes it the latest frame.
// It returns the generation assigned to the frame.
//
// If the device cannot allocate or fill the texture, Publish returns an
// error wrapping ErrGpuResourceExhausted and the previous frame stays
// latest.
func (s *Store) Publish(f *frame.MosaicFrame) (uint64, error) {
	if f == nil {
		return 0, fmt.Errorf("framestore: nil frame")
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if s.closed.Load() {
		return 0, ErrClosed
	}

	tex, err := s.dev.CreateTexture(f.Width(), f.Height(), gpucore.TextureFormatR16Uint)
	if err != nil {
		logging.Logger().Warn("framestore: texture allocation failed", "width", f.Width(), "height", f.Height(), "err", err)
		return 0, fmt.Errorf("%w: %w", ErrGpuResourceExhausted, err)
	}
	if err := s.dev.WriteTexture(tex, pack(f)); err != nil {
		s.dev.DestroyTexture(tex)
		logging.Logger().Warn("framestore: texture upload failed", "err", err)
		return 0, fmt.Errorf("%w: upload: %w", ErrGpuResourceExhausted, err)
	}

	first := s.gen.Load() == 0
	gen := s.gen.Add(1)
	gf := &GpuFrame{
		dev:        s.dev,
		tex:        tex,
		width:      f.Width(),
		height:     f.Height(),
		pattern:    f.Pattern(),
		bitDepth:   f.BitDepth(),
		generation: gen,
		sequence:   f.Sequence(),
		capturedAt: f.CapturedAt(),
	}
	gf.refs.Store(1)

	visibleAt := s.opts.now()
	if first && s.opts.firstFrameDelay > 0 {
		visibleAt = visibleAt.Add(s.opts.firstFrameDelay)
	}

	if old := s.latest.Swap(&snapshot{frame: gf, visibleAt: visibleAt}); old != nil {
		old.frame.release()
	}

	logging.Logger().Debug("framestore: published", "generation", gen, "sequence", f.Sequence(), "first", first)

	if first && s.opts.firstFrameDelay > 0 {
		time.AfterFunc(s.opts.firstFrameDelay, func() { s.notify(gen) })
	} else {
		s.notify(gen)
	}
	return gen, nil
}

// pack drops stride padding and encodes samples little-endian.
func pack(f *frame.MosaicFrame) []byte {
	w, h := f.Width(), f.Height()
	out := make([]byte, w*h*2)
	for y := range h {
		row := f.Row(y)
		base := y * w * 2
		for x, v := range row {
			binary.LittleEndian.PutUint16(out[base+x*2:], v)
		}
	}
	return out
}

// Current returns a lease on the latest visible frame, or false before the
// first publish and while the first frame is still hidden.
// The caller must Release the lease.
func (s *Store) Current() (*Lease, bool) {
	for {
		snap := s.latest.Load()
		if snap == nil {
			return nil, false
		}
		if s.opts.now().Before(snap.visibleAt) {
			return nil, false
		}
		if snap.frame.tryAcquire() {
			return &Lease{frame: snap.frame}, true
		}
		// Released between Load and acquire: a newer snapshot is in place.
	}
}

// Generation returns the generation of the most recent successful publish,
// or 0 if nothing has been published.
func (s *Store) Generation() uint64 {
	return s.gen.Load()
}

// Subscribe returns a channel receiving the generation of every frame as
// it becomes visible. The channel holds one value; a slow reader only sees
// the newest generation. cancel closes the channel.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	cancel := func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// notify delivers gen unless a newer generation has been published, so a
// deferred first-frame notification never overwrites a later one.
func (s *Store) notify(gen uint64) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if gen != s.gen.Load() {
		return
	}

	for _, ch := range s.subs {
		select {
		case ch <- gen:
		default:
			// Overwrite the stale value.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- gen:
			default:
			}
		}
	}
}

// Close drops the store's reference to the latest frame. Outstanding leases
// stay valid until released. Subscriptions are closed.
func (s *Store) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.publishMu.Lock()
	if old := s.latest.Swap(nil); old != nil {
		old.frame.release()
	}
	s.publishMu.Unlock()

	s.subsMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}
