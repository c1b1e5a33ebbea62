// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package camproc

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/camproc/frame"
)

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger should not be enabled for %v", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	c := newTestCore(t)
	if err := c.OnRawFrame(frame.RawFrame{Format: frame.FormatBGRA8, Width: 2, Height: 2, BytesPerRow: 8}); err == nil {
		t.Fatal("OnRawFrame() accepted BGRA")
	}
	if !strings.Contains(buf.String(), "camproc: frame dropped") {
		t.Errorf("log output = %q, want frame dropped warning", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}

func TestSetLoggerConcurrent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				SetLogger(slog.Default())
			} else {
				Logger().Debug("concurrent")
			}
		}()
	}
	wg.Wait()
}
