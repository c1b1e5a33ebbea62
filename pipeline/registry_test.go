// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/gogpu/camproc/debayer"
)

func names(defs []Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

func TestRegistry_AddListOrder(t *testing.T) {
	r := New()
	for _, n := range []string{"a", "b", "c"} {
		if _, err := r.Add(Definition{Name: n}); err != nil {
			t.Fatalf("Add(%s) error = %v", n, err)
		}
	}

	got := names(r.List())
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
	if r.Len() != 3 || r.Version() != 3 {
		t.Errorf("Len() = %d, Version() = %d, want 3, 3", r.Len(), r.Version())
	}
}

func TestRegistry_AddAssignsID(t *testing.T) {
	r := New()
	a, _ := r.Add(Definition{})
	b, _ := r.Add(Definition{})
	if a == NilID || b == NilID || a == b {
		t.Fatalf("ids %s, %s: want distinct non-nil", a, b)
	}

	fixed := uuid.New()
	id, err := r.Add(Definition{ID: fixed})
	if err != nil || id != fixed {
		t.Fatalf("Add with explicit ID = %s, %v", id, err)
	}
	if _, err := r.Add(Definition{ID: fixed}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Add duplicate error = %v, want ErrDuplicateID", err)
	}
}

func TestRegistry_NameNormalisation(t *testing.T) {
	r := New()
	tests := []struct {
		in, want string
	}{
		{"  Sharp  ", "Sharp"},
		{"", "Pipeline 2"},
		{"Cafe\u0301", "Caf\u00e9"},
	}
	for _, tt := range tests {
		id, err := r.Add(Definition{Name: tt.in})
		if err != nil {
			t.Fatalf("Add(%q) error = %v", tt.in, err)
		}
		d, _ := r.Get(id)
		if d.Name != tt.want {
			t.Errorf("Add(%q) name = %q, want %q", tt.in, d.Name, tt.want)
		}
	}
}

func TestRegistry_Invalid(t *testing.T) {
	r := New()
	tests := []Definition{
		{Debayer: debayer.Algorithm(9)},
		{PostFilter: debayer.Filter(9)},
		{Output: Output(9)},
	}
	for _, d := range tests {
		if _, err := r.Add(d); !errors.Is(err, ErrInvalidDefinition) {
			t.Errorf("Add(%+v) error = %v, want ErrInvalidDefinition", d, err)
		}
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after rejected adds", r.Len())
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := New()
	a, _ := r.Add(Definition{Name: "a"})
	b, _ := r.Add(Definition{Name: "b"})

	before := r.Snapshot()
	if err := r.Remove(a); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if r.Contains(a) || !r.Contains(b) {
		t.Error("Remove() removed the wrong definition")
	}
	if !before.Contains(a) || before.Len() != 2 {
		t.Error("earlier snapshot changed by Remove")
	}
	if err := r.Remove(a); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove() twice error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Update(t *testing.T) {
	r := New()
	id, _ := r.Add(Definition{Name: "a"})

	err := r.Update(id, func(d *Definition) {
		d.ID = uuid.New() // ignored
		d.Name = "renamed"
		d.Debayer = debayer.Malvar
		d.PostFilter = debayer.FilterEdgeDetect
		d.Output = OutputHistogram
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	d, ok := r.Get(id)
	if !ok {
		t.Fatal("ID changed by Update")
	}
	if d.Name != "renamed" || d.Debayer != debayer.Malvar || d.Output != OutputHistogram {
		t.Errorf("Update() result = %+v", d)
	}

	err = r.Update(id, func(d *Definition) { d.Output = Output(7) })
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("invalid Update() error = %v", err)
	}
	if d2, _ := r.Get(id); d2.Output != OutputHistogram {
		t.Error("rejected Update() changed the definition")
	}

	if err := r.Update(uuid.New(), func(*Definition) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Move(t *testing.T) {
	r := New()
	a, _ := r.Add(Definition{Name: "a"})
	_, _ = r.Add(Definition{Name: "b"})
	_, _ = r.Add(Definition{Name: "c"})

	if err := r.Move(a, 99); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	got := names(r.List())
	if got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Errorf("List() after Move = %v, want [b c a]", got)
	}
	if i := r.Snapshot().IDs(); i[2] != a {
		t.Error("IDs() out of order")
	}
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 200 {
			id, _ := r.Add(Definition{})
			_ = r.Update(id, func(d *Definition) { d.Debayer = debayer.Malvar })
			_ = r.Remove(id)
		}
	}()

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				s := r.Snapshot()
				for i := range s.Len() {
					if !s.Contains(s.At(i).ID) {
						t.Error("snapshot index inconsistent with definitions")
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestDefinition_Summary(t *testing.T) {
	d := Definition{Debayer: debayer.Malvar, PostFilter: debayer.FilterEdgeDetect, Output: OutputHistogram}
	if got := d.Summary(); got != "malvar+edge-detect/histogram" {
		t.Errorf("Summary() = %q", got)
	}
	if got := (Definition{}).Summary(); got != "bilinear" {
		t.Errorf("Summary() = %q, want bilinear", got)
	}
}
