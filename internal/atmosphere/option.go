package atmosphere

// Option is a small explicit-presence wrapper used throughout the property
// model for an "optional WindowId" or similar (grabbed window, skiplist
// links, parent/root window, ...). It is a value type so it copies cleanly
// through the patch log and hemisphere snapshots.
type Option[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an absent value of type T.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the wrapped value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome reports whether the option holds a value.
func (o Option[T]) IsSome() bool {
	return o.ok
}

// OrZero returns the wrapped value, or the zero value of T if absent.
func (o Option[T]) OrZero() T {
	return o.value
}
