package atmosphere

import "testing"

func TestPropertyStoreActivateGet(t *testing.T) {
	s := NewPropertyStore[int]()
	s.Activate(3, 42)

	v, ok := s.Get(3)
	if !ok {
		t.Fatal("Get(3) ok = false, want true")
	}
	if *v != 42 {
		t.Errorf("Get(3) = %d, want 42", *v)
	}
}

func TestPropertyStoreGetInactiveIDFails(t *testing.T) {
	s := NewPropertyStore[int]()
	if _, ok := s.Get(0); ok {
		t.Error("Get(0) on empty store ok = true, want false")
	}
}

func TestPropertyStoreDeactivateZeroesValue(t *testing.T) {
	s := NewPropertyStore[string]()
	s.Activate(0, "hello")
	s.Deactivate(0)

	if s.IsActive(0) {
		t.Error("IsActive(0) after Deactivate = true, want false")
	}
	s.Activate(0, "")
	v, _ := s.Get(0)
	if *v != "" {
		t.Errorf("value after reactivate = %q, want empty (stale data leaked)", *v)
	}
}

func TestPropertyStoreSetNoOpOnInactive(t *testing.T) {
	s := NewPropertyStore[int]()
	if ok := s.Set(5, 10); ok {
		t.Error("Set on inactive id returned true, want false")
	}
}

func TestPropertyStoreIterateAscendingAndShortCircuit(t *testing.T) {
	s := NewPropertyStore[int]()
	s.Activate(0, 10)
	s.Activate(2, 20)
	s.Activate(4, 30)

	var seen []uint32
	s.Iterate(func(id uint32, v *int) bool {
		seen = append(seen, id)
		return id != 2
	})

	want := []uint32{0, 2}
	if len(seen) != len(want) {
		t.Fatalf("visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("visited[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestPropertyStoreGetFirstFreeID(t *testing.T) {
	s := NewPropertyStore[int]()
	s.Activate(0, 1)
	s.Activate(1, 2)
	if id := s.GetFirstFreeID(); id != 2 {
		t.Errorf("GetFirstFreeID() = %d, want 2", id)
	}
	s.Deactivate(0)
	if id := s.GetFirstFreeID(); id != 0 {
		t.Errorf("GetFirstFreeID() after deactivating 0 = %d, want 0", id)
	}
}
