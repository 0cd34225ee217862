package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegistry_CreateDuplicate(t *testing.T) {
	r := New(Options{})

	if err := r.Create("phone"); err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}
	err := r.Create("phone")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second Create() = %v, want ErrAlreadyExists", err)
	}
	if KindOf(err) != KindAlreadyExists {
		t.Errorf("KindOf() = %v, want %v", KindOf(err), KindAlreadyExists)
	}
	if n := r.Count(); n != 1 {
		t.Errorf("Count() = %d after failed Create, want 1", n)
	}
}

func TestRegistry_CreateEmptyID(t *testing.T) {
	r := New(Options{})
	if err := r.Create(""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Create(\"\") = %v, want ErrInvalidInput", err)
	}
	if n := r.Count(); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestRegistry_RemoveThenLookup(t *testing.T) {
	r := New(Options{})
	if err := r.Create("phone"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.SetContent("phone", "x"); err != nil {
		t.Fatal(err)
	}

	if err := r.Remove("phone"); err != nil {
		t.Fatalf("Remove() returned error: %v", err)
	}
	if _, err := r.HistoryCount("phone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("HistoryCount() after Remove = %v, want ErrNotFound", err)
	}
	if _, err := r.Snapshot("phone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Snapshot() after Remove = %v, want ErrNotFound", err)
	}
	if err := r.Remove("phone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove() = %v, want ErrNotFound", err)
	}
}

func TestRegistry_SetContentAutoRegisters(t *testing.T) {
	r := New(Options{})

	res, err := r.SetContent("tablet", "hello")
	if err != nil {
		t.Fatalf("SetContent() returned error: %v", err)
	}
	if res.Scope != ScopeDevice || res.DeviceID != "tablet" || res.Written != 1 {
		t.Errorf("SetContent() = %+v, want device scope for tablet", res)
	}
	if n := r.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
	s, err := r.Snapshot("tablet")
	if err != nil {
		t.Fatal(err)
	}
	if s.Current != "hello" || !slices.Equal(s.History, []string{"hello"}) {
		t.Errorf("Snapshot() = %+v, want current hello and history [hello]", s)
	}
}

func TestRegistry_SetContentRejectUnknown(t *testing.T) {
	r := New(Options{RejectUnknown: true})

	if _, err := r.SetContent("tablet", "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetContent() = %v, want ErrNotFound", err)
	}
	if n := r.Count(); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}

	if err := r.Create("tablet"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.SetContent("tablet", "hello"); err != nil {
		t.Errorf("SetContent() on created device returned error: %v", err)
	}
}

func TestRegistry_SetContentTooLarge(t *testing.T) {
	r := New(Options{MaxContentBytes: 8})
	if err := r.Create("phone"); err != nil {
		t.Fatal(err)
	}

	_, err := r.SetContent("phone", strings.Repeat("x", 9))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("SetContent() = %v, want ErrTooLarge", err)
	}
	if n, _ := r.HistoryCount("phone"); n != 0 {
		t.Errorf("HistoryCount() = %d after rejected write, want 0", n)
	}

	if _, err := r.SetContent("phone", strings.Repeat("x", 8)); err != nil {
		t.Errorf("SetContent() at the limit returned error: %v", err)
	}
	if _, err := r.SetContent("", strings.Repeat("x", 9)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("broadcast SetContent() = %v, want ErrTooLarge", err)
	}
}

func TestRegistry_Broadcast(t *testing.T) {
	r := New(Options{})
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		if err := r.Create(id); err != nil {
			t.Fatal(err)
		}
		if _, err := r.SetContent(id, "prev-"+id); err != nil {
			t.Fatal(err)
		}
	}

	res, err := r.SetContent("", "x")
	if err != nil {
		t.Fatalf("broadcast returned error: %v", err)
	}
	if res.Scope != ScopeAll || res.Written != 3 {
		t.Errorf("SetContent() = %+v, want all scope with 3 written", res)
	}

	for _, id := range ids {
		s, err := r.Snapshot(id)
		if err != nil {
			t.Fatal(err)
		}
		if s.Current != "x" {
			t.Errorf("%s: Current = %q, want %q", id, s.Current, "x")
		}
		want := []string{"prev-" + id, "prev-" + id}
		if !slices.Equal(s.History, want) {
			t.Errorf("%s: History = %q, want %q", id, s.History, want)
		}
	}
}

func TestRegistry_BroadcastEmpty(t *testing.T) {
	r := New(Options{})
	res, err := r.SetContent("", "x")
	if err != nil {
		t.Fatalf("broadcast on empty registry returned error: %v", err)
	}
	if res.Written != 0 || r.Count() != 0 {
		t.Errorf("broadcast on empty registry wrote %d, count %d; want 0, 0", res.Written, r.Count())
	}
}

func TestRegistry_BroadcastUsesCallTimeSnapshot(t *testing.T) {
	r := New(Options{})
	for _, id := range []string{"kept", "removed"} {
		if err := r.Create(id); err != nil {
			t.Fatal(err)
		}
	}

	r.afterSnapshot = func() {
		if err := r.Create("late"); err != nil {
			t.Errorf("Create(late) = %v", err)
		}
		if err := r.Remove("removed"); err != nil {
			t.Errorf("Remove(removed) = %v", err)
		}
	}
	res, err := r.SetContent("", "x")
	r.afterSnapshot = nil
	if err != nil {
		t.Fatal(err)
	}

	if res.Written != 2 {
		t.Errorf("Written = %d, want 2 (kept + removed from the snapshot)", res.Written)
	}
	if s, _ := r.Snapshot("kept"); s.Current != "x" {
		t.Errorf("kept: Current = %q, want %q", s.Current, "x")
	}
	if s, _ := r.Snapshot("late"); s.HasCurrent {
		t.Errorf("late: Current = %q, want no value (created after snapshot)", s.Current)
	}
	if _, err := r.Snapshot("removed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("removed: Snapshot() = %v, want ErrNotFound", err)
	}
}

func TestRegistry_DevicesInRegistrationOrder(t *testing.T) {
	r := New(Options{})
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := r.Create(id); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.SetContent("alpha", "v"); err != nil {
		t.Fatal(err)
	}

	devs := r.Devices()
	var got []string
	for _, d := range devs {
		got = append(got, d.DeviceID)
	}
	if want := []string{"zeta", "alpha", "mid"}; !slices.Equal(got, want) {
		t.Errorf("Devices() order = %q, want %q", got, want)
	}
	if devs[1].HistoryCount != 1 || !devs[1].HasCurrent {
		t.Errorf("alpha = %+v, want one history entry and a current value", devs[1])
	}
}

func TestRegistry_CountAccuracy(t *testing.T) {
	tests := []struct {
		name string
		ops  func(r *Registry)
		want int
	}{
		{
			name: "creates only",
			ops: func(r *Registry) {
				_ = r.Create("a")
				_ = r.Create("b")
			},
			want: 2,
		},
		{
			name: "implicit create via SetContent",
			ops: func(r *Registry) {
				_ = r.Create("a")
				_, _ = r.SetContent("b", "x")
				_, _ = r.SetContent("a", "y")
			},
			want: 2,
		},
		{
			name: "failed operations do not count",
			ops: func(r *Registry) {
				_ = r.Create("a")
				_ = r.Create("a")
				_ = r.Remove("missing")
			},
			want: 1,
		},
		{
			name: "removes",
			ops: func(r *Registry) {
				_ = r.Create("a")
				_ = r.Create("b")
				_ = r.Remove("a")
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Options{})
			tt.ops(r)
			if got := r.Count(); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRegistry_ConcurrentCreateRemove(t *testing.T) {
	const workers = 32

	r := New(Options{})
	var created, removed atomic.Int64
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				id := fmt.Sprintf("dev-%d", (w*7+i)%40)
				if r.Create(id) == nil {
					created.Add(1)
				}
				if i%3 == 0 && r.Remove(id) == nil {
					removed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	want := int(created.Load() - removed.Load())
	if got := r.Count(); got != want {
		t.Errorf("Count() = %d, want created-removed = %d", got, want)
	}
	if got := len(r.Devices()); got != want {
		t.Errorf("len(Devices()) = %d, want %d", got, want)
	}
}

func TestRegistry_ConcurrentSameDevice(t *testing.T) {
	const n = 40

	r := New(Options{})
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.SetContent("shared", fmt.Sprintf("v%d", i)); err != nil {
				t.Errorf("SetContent() = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := r.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	if got, _ := r.HistoryCount("shared"); got != n {
		t.Errorf("HistoryCount() = %d, want %d", got, n)
	}
}
