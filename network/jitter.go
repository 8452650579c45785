package network

import "sort"

// Entry is one received snapshot and the sender timestamp it carried.
type Entry[T any] struct {
	TS    float64
	State T
}

// Sample is the bracketing pair for a render time. Factor is 0 when Prev and
// Next are the same entry.
type Sample[T any] struct {
	Prev   Entry[T]
	Next   Entry[T]
	Factor float64
}

// JitterBuffer holds the most recent snapshots of one entity sorted by
// timestamp, so frames arriving out of order still play back in order.
type JitterBuffer[T any] struct {
	entries  []Entry[T]
	capacity int
}

func NewJitterBuffer[T any](capacity int) *JitterBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &JitterBuffer[T]{entries: make([]Entry[T], 0, capacity), capacity: capacity}
}

// Push inserts state at its sorted position, dropping the oldest entry when
// the buffer is full. Equal timestamps keep arrival order.
func (b *JitterBuffer[T]) Push(ts float64, state T) {
	i := sort.Search(len(b.entries), func(i int) bool { return b.entries[i].TS > ts })
	b.entries = append(b.entries, Entry[T]{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = Entry[T]{TS: ts, State: state}

	if len(b.entries) > b.capacity {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:b.capacity]
	}
}

// Sample returns the entries bracketing target. It never extrapolates: targets
// outside the buffered window clamp to the oldest or newest entry.
func (b *JitterBuffer[T]) Sample(target float64) (Sample[T], bool) {
	n := len(b.entries)
	if n == 0 {
		return Sample[T]{}, false
	}
	if oldest := b.entries[0]; target <= oldest.TS {
		return Sample[T]{Prev: oldest, Next: oldest}, true
	}
	if newest := b.entries[n-1]; target >= newest.TS {
		return Sample[T]{Prev: newest, Next: newest}, true
	}

	i := sort.Search(n, func(i int) bool { return b.entries[i].TS > target })
	prev, next := b.entries[i-1], b.entries[i]
	s := Sample[T]{Prev: prev, Next: next}
	if span := next.TS - prev.TS; span > 0 {
		s.Factor = (target - prev.TS) / span
	}
	return s, true
}

// Newest returns the most recent entry.
func (b *JitterBuffer[T]) Newest() (Entry[T], bool) {
	if len(b.entries) == 0 {
		return Entry[T]{}, false
	}
	return b.entries[len(b.entries)-1], true
}

func (b *JitterBuffer[T]) Len() int { return len(b.entries) }

func (b *JitterBuffer[T]) Clear() { b.entries = b.entries[:0] }

// Entries returns a copy of the buffered entries, oldest first.
func (b *JitterBuffer[T]) Entries() []Entry[T] {
	return append([]Entry[T](nil), b.entries...)
}
