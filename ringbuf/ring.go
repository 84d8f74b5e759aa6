// Package ringbuf implements the single-producer/single-consumer byte ring
// that the Linux UART, RingPort and CMUX channel Port realizations stage
// inbound bytes through:
// one UART reader goroutine (or one CMUX demux goroutine) writes, and the AT
// client's RX-parse goroutine reads, with no further locking between them.
//
// Invariants
//   - Capacity is fixed at construction and must be a power of two so index
//     wraparound reduces to a mask instead of a modulo.
//   - head/tail are free-running uint32 counters; only their difference
//     (taken mod 2^32, which wraparound makes exact) is ever meaningful.
//   - The ring is empty when head == tail and full when head-tail == size;
//     it never overwrites unread data — a write past capacity is reported
//     back to the caller rather than silently dropped.
//   - Readable/Writable are level-to-edge notifications: each fires once per
//     empty->non-empty (or full->non-full) transition and is buffered to
//     depth 1, so a waiter must re-check the actual counters on wake rather
//     than trust the notification count.
package ringbuf

import "sync/atomic"

// Ring is a fixed-capacity SPSC byte ring. The zero value is not usable;
// construct with New.
type Ring struct {
	data []byte
	mask uint32

	tail atomic.Uint32 // advanced by the reader
	head atomic.Uint32 // advanced by the writer

	readable chan struct{}
	writable chan struct{}
}

// New allocates a Ring of the given capacity, which must be a power of two
// no smaller than 2. It panics on an invalid size since that reflects a
// caller bug in static sizing, not a runtime condition.
func New(capacity int) *Ring {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		panic("ringbuf: capacity must be a power of two >= 2")
	}
	return &Ring{
		data:     make([]byte, capacity),
		mask:     uint32(capacity - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func (r *Ring) capacity() uint32 { return uint32(len(r.data)) }

// Cap reports the ring's fixed capacity in bytes.
func (r *Ring) Cap() int { return len(r.data) }

// Available reports how many bytes the reader could consume right now.
func (r *Ring) Available() int {
	return int(r.head.Load() - r.tail.Load())
}

// Space reports how many bytes the writer could deposit right now.
func (r *Ring) Space() int {
	return int(r.capacity() - (r.head.Load() - r.tail.Load()))
}

// Readable signals once per empty->non-empty transition. Callers waiting on
// it must still re-check Available, since a notification only means "state
// changed at some point", not "state is non-empty right now".
func (r *Ring) Readable() <-chan struct{} { return r.readable }

// Writable signals once per full->non-full transition, with the same
// re-check caveat as Readable.
func (r *Ring) Writable() <-chan struct{} { return r.writable }

func (r *Ring) nudge(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// WriteAcquire reserves up to the entire free region as one or two
// contiguous slices (the second non-nil only when the free region wraps
// past the end of the backing array). The writer must follow up with
// WriteCommit to publish however many bytes it actually filled.
func (r *Ring) WriteAcquire() (p1, p2 []byte) {
	head, tail := r.head.Load(), r.tail.Load()
	free := r.capacity() - (head - tail)
	if free == 0 {
		return nil, nil
	}
	start := head & r.mask
	run := r.capacity() - start
	if run > free {
		run = free
	}
	p1 = r.data[start : start+run]
	if rest := free - run; rest > 0 {
		p2 = r.data[:rest]
	}
	return p1, p2
}

// WriteCommit publishes n bytes of a region previously returned by
// WriteAcquire, advancing the ring's head and waking a blocked reader if
// this write was the one that made the ring non-empty.
func (r *Ring) WriteCommit(n int) {
	if n <= 0 {
		return
	}
	head, tail := r.head.Load(), r.tail.Load()
	wasEmpty := head == tail
	r.head.Store(head + uint32(n))
	if wasEmpty {
		r.nudge(r.readable)
	}
}

// ReadAcquire exposes up to the entire filled region as one or two
// contiguous slices, mirroring WriteAcquire. The reader must follow up with
// ReadRelease to advance past however many bytes it actually consumed.
func (r *Ring) ReadAcquire() (p1, p2 []byte) {
	head, tail := r.head.Load(), r.tail.Load()
	filled := head - tail
	if filled == 0 {
		return nil, nil
	}
	start := tail & r.mask
	run := r.capacity() - start
	if run > filled {
		run = filled
	}
	p1 = r.data[start : start+run]
	if rest := filled - run; rest > 0 {
		p2 = r.data[:rest]
	}
	return p1, p2
}

// ReadRelease advances the ring's tail past n bytes previously returned by
// ReadAcquire, waking a blocked writer if this read was the one that made
// the ring non-full.
func (r *Ring) ReadRelease(n int) {
	if n <= 0 {
		return
	}
	head, tail := r.head.Load(), r.tail.Load()
	wasFull := head-tail == r.capacity()
	r.tail.Store(tail + uint32(n))
	if wasFull {
		r.nudge(r.writable)
	}
}

// TryWriteFrom copies as much of src as currently fits, via WriteAcquire/
// WriteCommit, and reports how many bytes it placed (zero if the ring is
// full).
func (r *Ring) TryWriteFrom(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	p1, p2 := r.WriteAcquire()
	if len(p1) == 0 {
		return 0
	}
	n := copy(p1, src)
	if n < len(src) {
		n += copy(p2, src[n:])
	}
	r.WriteCommit(n)
	return n
}

// TryReadInto copies as much as is currently available into dst, via
// ReadAcquire/ReadRelease, and reports how many bytes it delivered (zero if
// the ring is empty).
func (r *Ring) TryReadInto(dst []byte) int {
	if len(dst) == 0 {
		return 0
	}
	p1, p2 := r.ReadAcquire()
	if len(p1) == 0 {
		return 0
	}
	n := copy(dst, p1)
	if n < len(dst) {
		n += copy(dst[n:], p2)
	}
	r.ReadRelease(n)
	return n
}

// WriteFrom is TryWriteFrom plus an explicit overflow flag, for producers
// (the UART/CMUX read pumps) that need to know when the consumer has fallen
// behind badly enough to lose bytes, rather than just how many got queued.
func (r *Ring) WriteFrom(src []byte) (n int, overflow bool) {
	n = r.TryWriteFrom(src)
	return n, n < len(src)
}

// Reset discards every unread byte, snapping the ring back to empty, for a
// caller that abandons whatever partial data is staged after a framing
// error or timeout and resyncs from whatever arrives next. No package in
// this module calls it outside its tests.
func (r *Ring) Reset() {
	head, tail := r.head.Load(), r.tail.Load()
	if head == tail {
		return
	}
	wasFull := head-tail == r.capacity()
	r.tail.Store(head)
	if wasFull {
		r.nudge(r.writable)
	}
}
