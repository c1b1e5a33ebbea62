// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package viewport assigns pipelines to a grid of render cells and renders
// every cell from the latest captured frame.
//
// # Grid
//
// A Scheduler holds a rows x columns Grid of pipeline ids. Resize and
// OnRegistryChanged reconcile the grid against the registry: valid
// assignments are kept, missing or stale cells are filled by cycling
// through the registry in display order (cell i gets registry[i % n]).
// Reconciling against an empty registry fails with ErrEmptyRegistry and
// leaves the grid untouched.
//
// # Rendering
//
// RenderFrame fans out one goroutine per cell. Each cell leases the current
// frame on its own, runs its pipeline on the debayer engine into a surface
// it owns, and converts the result for display:
//
//	Store.Current ──► Engine.Debayer ──► Engine.ApplyFilter ──► Surface.Read
//	                                                               │
//	                        OutputImage: scale to 8 bits ◄─────────┤
//	                        OutputHistogram: channel chart ◄───────┘
//
// A failing cell never affects the others. It keeps showing its previous
// image (Stale) or the idle placeholder, and carries the error.
//
// # Display
//
// Compose lays the cell images out into one labelled image, and Presenter
// hands that image to a gpucontext.TextureDrawer.
package viewport
