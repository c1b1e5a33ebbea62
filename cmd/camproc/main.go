// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command camproc renders one frame of the pipeline grid to a PNG file.
//
// Frames come from the simulated sensor, or from a raw capture file:
//
//	camproc -config camproc.yaml -out grid.png
//	camproc -raw capture.bin -width 4032 -height 3024 -format rgg4 -out grid.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/camproc"
	"github.com/gogpu/camproc/config"
	"github.com/gogpu/camproc/frame"
	"github.com/gogpu/camproc/internal/sensorsim"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "YAML configuration file (defaults if empty)")
		backendName = flag.String("backend", "", "override the configured backend: auto, software, wgpu")
		output      = flag.String("out", "camproc.png", "output PNG file")
		rawPath     = flag.String("raw", "", "raw capture file to decode instead of the simulated sensor")
		width       = flag.Int("width", 0, "raw capture width")
		height      = flag.Int("height", 0, "raw capture height")
		stride      = flag.Int("stride", 0, "raw capture bytes per row (default width*2)")
		format      = flag.String("format", "bayer14", "raw capture pixel format")
		captures    = flag.Int("captures", 1, "simulated captures before rendering")
		noise       = flag.Int("noise", 0, "simulated sensor noise amplitude")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*cfgPath, *backendName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, _ := cfg.Level()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	camproc.SetLogger(logger)

	r := runner{cfg: cfg, log: logger}
	if *rawPath != "" {
		err = r.runRaw(*rawPath, *width, *height, *stride, *format, *output)
	} else {
		err = r.runSimulated(*captures, *noise, *output)
	}
	if err != nil {
		logger.Error("camproc failed", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path, backendName string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if backendName != "" {
		cfg.Backend = backendName
	}
	return cfg, cfg.Validate()
}

type runner struct {
	cfg *config.Config
	log *slog.Logger
}

func (r runner) newCore() (*camproc.Core, error) {
	opts, err := camproc.ConfigOptions(r.cfg)
	if err != nil {
		return nil, err
	}
	return camproc.New(opts...)
}

func (r runner) runSimulated(captures, noise int, output string) error {
	captures = max(captures, 1)
	core, err := r.newCore()
	if err != nil {
		return err
	}
	defer core.Close()

	f, pattern, _ := r.cfg.SensorFormat()
	order, _ := r.cfg.ByteOrder()
	delivered := make(chan error, captures)
	sensor, err := sensorsim.New(sensorsim.Config{
		Width:     r.cfg.Sensor.Width,
		Height:    r.cfg.Sensor.Height,
		Format:    f,
		Pattern:   pattern,
		ByteOrder: order,
		Noise:     noise,
	}, func(raw frame.RawFrame) { delivered <- core.OnRawFrame(raw) })
	if err != nil {
		return err
	}
	defer sensor.Close()
	core.AttachSensor(sensor)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for range captures {
		if err := core.Capture(ctx); err != nil {
			return err
		}
	}
	var errs []error
	for range captures {
		select {
		case err := <-delivered:
			errs = append(errs, err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return r.render(ctx, core, output)
}

func (r runner) runRaw(path string, width, height, stride int, format, output string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	pf, err := frame.ParsePixelFormat(format)
	if err != nil {
		return err
	}
	if stride == 0 {
		stride = width * 2
	}

	core, err := r.newCore()
	if err != nil {
		return err
	}
	defer core.Close()

	_, pattern, _ := r.cfg.SensorFormat()
	raw := frame.RawFrame{
		Data:        data,
		Width:       width,
		Height:      height,
		BytesPerRow: stride,
		Format:      pf,
		Pattern:     pattern,
		CapturedAt:  time.Now(),
	}
	if err := core.OnRawFrame(raw); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return r.render(ctx, core, output)
}

// render waits out the first-frame delay, renders the grid and writes it.
func (r runner) render(ctx context.Context, core *camproc.Core, output string) error {
	updates, stop := core.Store().Subscribe()
	defer stop()
	if l, ok := core.Store().Current(); ok {
		l.Release()
	} else {
		select {
		case <-updates:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	img, results := core.RenderImage(ctx)
	for _, res := range results {
		if res.Err != nil {
			r.log.Warn("cell failed", "cell", res.Index, "pipeline", res.Label, "err", res.Err)
		}
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	r.log.Info("grid written", "file", output, "cells", len(results),
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return nil
}
