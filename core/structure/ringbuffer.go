package structure

import (
	"runtime"
	"sync/atomic"
)

type cell[T any] struct {
	seq  atomic.Uint64
	data T
}

// RingBuffer is a fixed-size, lock-free MPMC ring buffer.
// Each cell carries a sequence number telling producers and consumers whose turn it is.
type RingBuffer[T any] struct {
	buffer   []cell[T]
	capacity uint64
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		size = 1 // Prevent zero-size buffer
	}
	r := &RingBuffer[T]{
		buffer:   make([]cell[T], size),
		capacity: uint64(size),
	}
	for i := range r.buffer {
		r.buffer[i].seq.Store(uint64(i))
	}
	return r
}

// Push appends entry and reports false when the buffer is full.
func (r *RingBuffer[T]) Push(entry T) bool {
	for {
		write := r.writePos.Load()
		c := &r.buffer[write%r.capacity]
		seq := c.seq.Load()

		switch diff := int64(seq) - int64(write); {
		case diff == 0:
			if r.writePos.CompareAndSwap(write, write+1) {
				c.data = entry
				c.seq.Store(write + 1)
				return true
			}
		case diff < 0: // Buffer full
			return false
		default:
			runtime.Gosched()
		}
	}
}

// Pop removes the oldest entry, reporting false when the buffer is empty.
func (r *RingBuffer[T]) Pop() (T, bool) {
	var zero T
	for {
		read := r.readPos.Load()
		c := &r.buffer[read%r.capacity]
		seq := c.seq.Load()

		switch diff := int64(seq) - int64(read+1); {
		case diff == 0:
			if r.readPos.CompareAndSwap(read, read+1) {
				entry := c.data
				c.data = zero
				c.seq.Store(read + r.capacity)
				return entry, true
			}
		case diff < 0: // Buffer empty
			return zero, false
		default:
			runtime.Gosched()
		}
	}
}

// Drain pops up to limit entries. A limit <= 0 drains everything currently buffered.
func (r *RingBuffer[T]) Drain(limit int) []T {
	var out []T
	for limit <= 0 || len(out) < limit {
		entry, ok := r.Pop()
		if !ok {
			break
		}
		out = append(out, entry)
	}
	return out
}

func (r *RingBuffer[T]) Len() uint64 {
	read := r.readPos.Load()
	write := r.writePos.Load()
	if write < read {
		return 0
	}
	return write - read
}

func (r *RingBuffer[T]) Cap() uint64 {
	return r.capacity
}
