package atmosphere

// PropertyStore maps a dense integer id to an optional value of a single
// type T (§4.1). Out-of-range ids auto-extend the backing slice. Lookups are
// O(1); GetFirstFreeID is O(n) worst case (scan for a free slot) and
// amortised O(1) thanks to the free-index hint.
type PropertyStore[T any] struct {
	values   []T
	active   []bool
	freeHint int
}

// NewPropertyStore creates an empty store.
func NewPropertyStore[T any]() *PropertyStore[T] {
	return &PropertyStore[T]{}
}

// Activate sets the value at id and marks it active, growing the backing
// slice if necessary.
func (s *PropertyStore[T]) Activate(id uint32, v T) {
	s.ensure(id)
	s.values[id] = v
	s.active[id] = true
	if int(id) == s.freeHint {
		s.freeHint++
	}
}

// Deactivate marks id inactive. Its stored value is zeroed so stale data
// cannot leak back in if the id is reused without being re-activated.
func (s *PropertyStore[T]) Deactivate(id uint32) {
	if int(id) >= len(s.active) {
		return
	}
	s.active[id] = false
	var zero T
	s.values[id] = zero
	if int(id) < s.freeHint {
		s.freeHint = int(id)
	}
}

// Get returns a pointer to id's value and whether it is active. The pointer
// is valid until the next Activate/Deactivate call that reallocates the
// backing slice.
func (s *PropertyStore[T]) Get(id uint32) (*T, bool) {
	if int(id) >= len(s.active) || !s.active[id] {
		return nil, false
	}
	return &s.values[id], true
}

// Set overwrites id's value in place. It is a no-op if id is not active.
func (s *PropertyStore[T]) Set(id uint32, v T) bool {
	if int(id) >= len(s.active) || !s.active[id] {
		return false
	}
	s.values[id] = v
	return true
}

// IsActive reports whether id currently holds a value.
func (s *PropertyStore[T]) IsActive(id uint32) bool {
	return int(id) < len(s.active) && s.active[id]
}

// Iterate calls f for every active id in ascending order. Iteration stops
// early if f returns false.
func (s *PropertyStore[T]) Iterate(f func(id uint32, v *T) bool) {
	for i := range s.active {
		if !s.active[i] {
			continue
		}
		if !f(uint32(i), &s.values[i]) {
			return
		}
	}
}

// GetFirstFreeID returns the smallest inactive id, which may be beyond the
// current backing slice (meaning it will grow on Activate).
func (s *PropertyStore[T]) GetFirstFreeID() uint32 {
	for i := s.freeHint; i < len(s.active); i++ {
		if !s.active[i] {
			return uint32(i)
		}
	}
	return uint32(len(s.active))
}

func (s *PropertyStore[T]) ensure(id uint32) {
	for uint32(len(s.active)) <= id {
		var zero T
		s.active = append(s.active, false)
		s.values = append(s.values, zero)
	}
}
