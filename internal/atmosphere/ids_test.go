package atmosphere

import "testing"

func TestIdAllocatorMintIsSequential(t *testing.T) {
	var a idAllocator
	if id := a.mint(); id != 0 {
		t.Errorf("first mint = %d, want 0", id)
	}
	if id := a.mint(); id != 1 {
		t.Errorf("second mint = %d, want 1", id)
	}
	if id := a.mint(); id != 2 {
		t.Errorf("third mint = %d, want 2", id)
	}
}

func TestIdAllocatorReusesFreedID(t *testing.T) {
	var a idAllocator
	id0 := a.mint()
	id1 := a.mint()
	a.mint()

	a.free(id0)
	reused := a.mint()
	if reused != id0 {
		t.Errorf("mint() after free(%d) = %d, want %d (smallest inactive reused)", id0, reused, id0)
	}

	if !a.isActive(id1) {
		t.Errorf("isActive(%d) = false, want true", id1)
	}
	if !a.isActive(reused) {
		t.Errorf("isActive(%d) = false, want true", reused)
	}
}

func TestIdAllocatorFreeThenMintDoesNotCollideWithActive(t *testing.T) {
	var a idAllocator
	ids := make([]uint32, 5)
	for i := range ids {
		ids[i] = a.mint()
	}
	a.free(ids[1])
	a.free(ids[3])

	seen := map[uint32]bool{}
	for range 2 {
		id := a.mint()
		if seen[id] {
			t.Fatalf("mint() returned duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestIdAllocatorIsActive(t *testing.T) {
	var a idAllocator
	id := a.mint()
	if !a.isActive(id) {
		t.Errorf("isActive(%d) = false immediately after mint, want true", id)
	}
	a.free(id)
	if a.isActive(id) {
		t.Errorf("isActive(%d) = true after free, want false", id)
	}
}
