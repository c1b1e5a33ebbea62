// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sensorsim

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/camproc/frame"
)

func TestNew_Invalid(t *testing.T) {
	noop := func(frame.RawFrame) {}
	tests := []struct {
		name string
		cfg  Config
		fn   func(frame.RawFrame)
	}{
		{"format", Config{Width: 4, Height: 4, Format: frame.FormatBGRA8}, noop},
		{"odd", Config{Width: 5, Height: 4, Format: frame.FormatGray16}, noop},
		{"empty", Config{Format: frame.FormatGray16}, noop},
		{"callback", Config{Width: 4, Height: 4, Format: frame.FormatGray16}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, tt.fn); err == nil {
				t.Error("New() succeeded, want error")
			}
		})
	}
}

func TestCapture_SamplesChart(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		order binary.ByteOrder
	}{
		{"bayer14 little", Config{Width: 60, Height: 40, Format: frame.FormatBayerGRBG14}, binary.LittleEndian},
		{"gray16 big", Config{Width: 60, Height: 40, Format: frame.FormatGray16, Pattern: frame.BGGR, ByteOrder: binary.BigEndian}, binary.BigEndian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, func(frame.RawFrame) {})
			if err != nil {
				t.Fatal(err)
			}
			raw := s.Capture()
			if raw.BytesPerRow != 128 || raw.BytesPerRow != s.BytesPerRow() {
				t.Errorf("BytesPerRow = %d, want 128", raw.BytesPerRow)
			}
			if raw.Sequence != 1 {
				t.Errorf("Sequence = %d, want 1", raw.Sequence)
			}

			f, err := frame.DecodeRaw(raw, frame.WithByteOrder(tt.order))
			if err != nil {
				t.Fatalf("DecodeRaw() error = %v", err)
			}
			maxV := uint16(1<<f.BitDepth() - 1)
			// Patch (2,1) spans x 20..29, y 10..19.
			want := ChartColor(2, 1, maxV)
			for y := 10; y < 20; y++ {
				for x := 20; x < 30; x++ {
					ch := f.Pattern().ColorAt(x, y)
					if got := f.At(x, y); got != want[ch] {
						t.Fatalf("At(%d,%d) = %d, want %d (%s)", x, y, got, want[ch], ch)
					}
				}
			}
		})
	}
}

func TestCapture_NoiseBounded(t *testing.T) {
	cfg := Config{Width: 12, Height: 8, Format: frame.FormatBayerRGGB14, Noise: 3}
	s, _ := New(cfg, func(frame.RawFrame) {})
	f, err := frame.DecodeRaw(s.Capture())
	if err != nil {
		t.Fatal(err)
	}
	for y := range 8 {
		for x := range 12 {
			want := int(ChartColor(x*ChartColumns/12, y*ChartRows/8, 16383)[f.Pattern().ColorAt(x, y)])
			if d := int(f.At(x, y)) - want; d < -3 || d > 3 {
				t.Errorf("At(%d,%d) off by %d", x, y, d)
			}
		}
	}
}

func TestTriggerCapture_Async(t *testing.T) {
	got := make(chan frame.RawFrame, 4)
	s, err := New(Config{Width: 8, Height: 8, Format: frame.FormatGray16}, func(r frame.RawFrame) { got <- r })
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		if err := s.TriggerCapture(context.Background()); err != nil {
			t.Fatalf("TriggerCapture() error = %v", err)
		}
	}
	s.Close()
	if len(got) != 3 {
		t.Fatalf("delivered %d frames, want 3", len(got))
	}
	seen := map[uint64]bool{}
	for range 3 {
		seen[(<-got).Sequence] = true
	}
	if !seen[1] || !seen[2] || !seen[3] {
		t.Errorf("sequences = %v, want 1..3", seen)
	}

	if err := s.TriggerCapture(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("TriggerCapture() after Close error = %v, want ErrClosed", err)
	}
}

func TestTriggerCapture_ContextDone(t *testing.T) {
	s, _ := New(Config{Width: 2, Height: 2, Format: frame.FormatGray16}, func(frame.RawFrame) {
		t.Error("frame delivered for canceled trigger")
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if err := s.TriggerCapture(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("TriggerCapture() error = %v", err)
	}
	s.Close()
}
