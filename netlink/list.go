package netlink

import "slices"

// List holds decoded records in the order the kernel delivered them.
type List[T any] []T

func (l List[T]) Len() int {
	return len(l)
}

// Reverse flips the list in place, which yields the newest-first order
// head-inserting consumers expect.
func (l List[T]) Reverse() List[T] {
	slices.Reverse(l)
	return l
}

// Free drops every record. It's safe on a nil pointer, on a nil list and on
// a list that has already been freed.
func (l *List[T]) Free() {
	if l == nil || *l == nil {
		return
	}
	clear(*l)
	*l = nil
}
