package registry

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
)

func TestEntry_FirstWrite(t *testing.T) {
	e := NewEntry("laptop")

	if _, ok := e.Current(); ok {
		t.Fatal("Current() reported a value on a fresh entry")
	}
	if n := e.HistoryCount(); n != 0 {
		t.Fatalf("HistoryCount() = %d, want 0", n)
	}

	e.Write("hello")

	cur, ok := e.Current()
	if !ok || cur != "hello" {
		t.Errorf("Current() = %q, %v, want %q, true", cur, ok, "hello")
	}
	if got := e.History(); !slices.Equal(got, []string{"hello"}) {
		t.Errorf("History() = %q, want [hello]", got)
	}
}

func TestEntry_SteadyStateRecordsOutgoing(t *testing.T) {
	e := NewEntry("laptop")
	e.Write("a")
	e.Write("b")
	e.Write("c")

	cur, _ := e.Current()
	if cur != "c" {
		t.Errorf("Current() = %q, want %q", cur, "c")
	}
	want := []string{"a", "a", "b"}
	if got := e.History(); !slices.Equal(got, want) {
		t.Errorf("History() = %q, want %q", got, want)
	}
}

func TestEntry_EmptyContent(t *testing.T) {
	e := NewEntry("laptop")
	e.Write("")

	cur, ok := e.Current()
	if !ok || cur != "" {
		t.Errorf("Current() = %q, %v, want \"\", true", cur, ok)
	}
	if n := e.HistoryCount(); n != 1 {
		t.Errorf("HistoryCount() = %d, want 1", n)
	}
}

func TestEntry_BoundedHistory(t *testing.T) {
	e := NewEntry("laptop")
	for i := range 500 {
		e.Write(fmt.Sprintf("v%d", i))
		if n := e.HistoryCount(); n > HistoryCapacity {
			t.Fatalf("after write %d HistoryCount() = %d, want <= %d", i, n, HistoryCapacity)
		}
	}
	if n := e.HistoryCount(); n != HistoryCapacity {
		t.Errorf("HistoryCount() = %d, want %d", n, HistoryCapacity)
	}
}

func TestEntry_FIFOEviction(t *testing.T) {
	e := NewEntry("laptop")
	for i := 1; i <= 65; i++ {
		e.Write(fmt.Sprintf("content_%d", i))
	}

	want := make([]string, 0, HistoryCapacity)
	for i := 1; i <= 64; i++ {
		want = append(want, fmt.Sprintf("content_%d", i))
	}
	if got := e.History(); !slices.Equal(got, want) {
		t.Errorf("History() = %q,\nwant %q", got, want)
	}
	if cur, _ := e.Current(); cur != "content_65" {
		t.Errorf("Current() = %q, want %q", cur, "content_65")
	}

	e.Write("content_66")
	got := e.History()
	if got[0] != "content_2" || got[len(got)-1] != "content_65" {
		t.Errorf("after one more write history spans %q..%q, want content_2..content_65", got[0], got[len(got)-1])
	}
}

func TestEntry_HistoryIsCopy(t *testing.T) {
	e := NewEntry("laptop")
	e.Write("a")

	h := e.History()
	h[0] = "mutated"

	if got := e.History(); got[0] != "a" {
		t.Errorf("History()[0] = %q after caller mutation, want %q", got[0], "a")
	}
	s := e.Snapshot()
	s.History[0] = "mutated"
	if got := e.History(); got[0] != "a" {
		t.Errorf("History()[0] = %q after snapshot mutation, want %q", got[0], "a")
	}
}

func TestEntry_ConcurrentWrites(t *testing.T) {
	const n = 50

	e := NewEntry("laptop")
	inputs := make([]string, n)
	for i := range inputs {
		inputs[i] = fmt.Sprintf("w%02d", i)
	}

	var wg sync.WaitGroup
	for _, v := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Write(v)
		}()
	}
	wg.Wait()

	cur, ok := e.Current()
	if !ok || !slices.Contains(inputs, cur) {
		t.Fatalf("Current() = %q, want one of the inputs", cur)
	}

	h := e.History()
	if len(h) != n {
		t.Fatalf("HistoryCount() = %d, want %d (bootstrap + %d predecessors)", len(h), n, n-1)
	}

	// h[0] is the bootstrap copy of the first write; h[1:] plus current
	// must account for every input exactly once.
	seen := append(slices.Clone(h[1:]), cur)
	sort.Strings(seen)
	want := slices.Clone(inputs)
	sort.Strings(want)
	if !slices.Equal(seen, want) {
		t.Errorf("history[1:]+current = %q, want %q", seen, want)
	}
	if h[0] != h[1] {
		t.Errorf("bootstrap history[0] = %q, want it to equal history[1] = %q", h[0], h[1])
	}
}

func TestEntry_ConcurrentWritesCapped(t *testing.T) {
	const n = 200

	e := NewEntry("laptop")
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Write(fmt.Sprintf("w%03d", i))
		}()
	}
	wg.Wait()

	if got := e.HistoryCount(); got != HistoryCapacity {
		t.Errorf("HistoryCount() = %d, want %d", got, HistoryCapacity)
	}

	cur, _ := e.Current()
	h := e.History()
	seen := map[string]bool{cur: true}
	for _, v := range h {
		if seen[v] {
			t.Fatalf("value %q recorded twice", v)
		}
		seen[v] = true
	}
}
