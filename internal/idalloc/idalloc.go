// Package idalloc hands out surrogate keys for notes and cards.
package idalloc

import "math"

// Allocator is a monotonic counter seeded from the write timestamp. A single
// Allocator belongs to one write and is not safe for concurrent use.
type Allocator struct {
	next   uint64
	issued int
}

// New returns an allocator whose first id is the timestamp, in seconds,
// converted to whole milliseconds.
func New(timestamp float64) *Allocator {
	return &Allocator{next: uint64(math.Floor(timestamp * 1000))}
}

// Next returns the next id and advances the counter.
func (a *Allocator) Next() int64 {
	id := a.next
	a.next++
	a.issued++
	return int64(id)
}

// Peek returns the id the next call to Next would return.
func (a *Allocator) Peek() int64 {
	return int64(a.next)
}

// Issued returns how many ids have been handed out.
func (a *Allocator) Issued() int {
	return a.issued
}
