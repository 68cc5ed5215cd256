package ticksm_test

import (
	"fmt"
	"sync"
	"testing"

	. "github.com/ticksm/ticksm"
)

func TestStoreBasic(t *testing.T) {
	s := NewStore()

	s.Set("key", "value")
	if got := s.Get("key"); got != "value" {
		t.Errorf("expected 'value', got %v", got)
	}

	if got := s.Get("missing"); got != nil {
		t.Errorf("expected nil for missing key, got %v", got)
	}

	s.Delete("key")
	if got := s.Get("key"); got != nil {
		t.Errorf("expected nil after delete, got %v", got)
	}
}

func TestStoreSnapshot(t *testing.T) {
	s := NewStore()
	s.Set("a", 1)
	s.Set("b", 2)

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}

	// The snapshot is detached from the store.
	snap["a"] = 99
	if s.Get("a") != 1 {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n)
			for j := 0; j < 100; j++ {
				s.Set(key, j)
				s.Get(key)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		if got := s.Get(fmt.Sprintf("key-%d", i)); got != 99 {
			t.Errorf("key-%d: expected 99, got %v", i, got)
		}
	}
}

func TestStoreAsMachineContext(t *testing.T) {
	clk, _ := manualClock()
	s := NewStore()
	s.Set("runs", 0)

	states := []State{{OnExec: func(m *Machine) {
		st := m.Context().(*Store)
		st.Set("runs", st.Get("runs").(int)+1)
	}}}

	m, err := New(clk, states, 0, s)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := m.Execute(); err != nil {
			t.Fatal(err)
		}
	}
	if s.Get("runs") != 3 {
		t.Errorf("expected 3 runs recorded, got %v", s.Get("runs"))
	}
}
