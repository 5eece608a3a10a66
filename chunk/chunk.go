// Package chunk implements the refcounted byte buffer of spec §3: a small
// union type with two representations — inline, for payloads under
// inlineMax bytes, and heap, a refcounted slab-pool-backed arena. It is
// gridmq's reimplementation of the allocation *contract* visible at
// memsys.MMSA/SGL call sites in the teacher (transport/pdu.go,
// stats/common_statsd.go): the implementation itself is original, built on
// stdlib sync.Pool size-classed slabs, since no ecosystem allocator package
// appears anywhere in the retrieval pack for this concern.
package chunk

import "sync"

// inlineMax mirrors spec §3's "size < 32 stored inline" invariant.
const inlineMax = 32

// slab size classes, smallest to largest. A request larger than the last
// class falls back to a plain make([]byte, n) with no pooling.
var slabClasses = []int{256, 2048, 16384, 65536, 262144}

var slabs = func() []*sync.Pool {
	p := make([]*sync.Pool, len(slabClasses))
	for i, sz := range slabClasses {
		sz := sz
		p[i] = &sync.Pool{New: func() any { return make([]byte, sz) }}
	}
	return p
}()

func classFor(n int) int {
	for i, sz := range slabClasses {
		if n <= sz {
			return i
		}
	}
	return -1
}

func slabAlloc(n int) []byte {
	if c := classFor(n); c >= 0 {
		buf := slabs[c].Get().([]byte)
		return buf[:n]
	}
	return make([]byte, n)
}

func slabFree(buf []byte) {
	c := classFor(cap(buf))
	if c < 0 || cap(buf) != slabClasses[c] {
		return // not slab-owned (either fallback-allocated or a sub-slice)
	}
	slabs[c].Put(buf[:cap(buf)])
}

// arena is the refcounted heap representation.
type arena struct {
	mu   sync.Mutex
	buf  []byte
	refc int32
}

func newArena(n int) *arena {
	return &arena{buf: slabAlloc(n), refc: 1}
}

func (a *arena) ref() {
	a.mu.Lock()
	a.refc++
	a.mu.Unlock()
}

// unref runs the destructor (returns the backing slice to its slab) exactly
// once, when the refcount transitions 1->0 (spec §3, invariant 4 / §8.4).
func (a *arena) unref() {
	a.mu.Lock()
	a.refc--
	done := a.refc == 0
	a.mu.Unlock()
	if done {
		slabFree(a.buf)
		a.buf = nil
	}
}

// Chunk is the tagged union: either inline bytes or a pointer into a
// refcounted arena. The zero Chunk is a valid zero-length chunk.
type Chunk struct {
	inline [inlineMax]byte
	inlen  int8 // >=0: inline length; -1: heap-backed
	a      *arena
	off    int
	length int
}

// New allocates a chunk of exactly n bytes, inline if it fits.
func New(n int) Chunk {
	if n < inlineMax {
		return Chunk{inlen: int8(n)}
	}
	return Chunk{inlen: -1, a: newArena(n), length: n}
}

// Wrap copies p into a new chunk (never aliases the caller's slice).
func Wrap(p []byte) Chunk {
	c := New(len(p))
	copy(c.Bytes(), p)
	return c
}

func (c *Chunk) isHeap() bool { return c.inlen < 0 }

// Len reports the chunk's payload length.
func (c *Chunk) Len() int {
	if c.isHeap() {
		return c.length
	}
	return int(c.inlen)
}

// Bytes returns the live view of the chunk's payload. The slice is only
// valid until the next Term/Move.
func (c *Chunk) Bytes() []byte {
	if c.isHeap() {
		if c.a == nil {
			return nil
		}
		return c.a.buf[c.off : c.off+c.length]
	}
	return c.inline[:c.inlen]
}

// Copy returns a new chunk sharing the same arena via refcount increment
// (spec §3: "copy shares chunk via refcount"). Inline chunks are duplicated
// by value since there is nothing to share.
func (c *Chunk) Copy() Chunk {
	if !c.isHeap() {
		return *c
	}
	if c.a != nil {
		c.a.ref()
	}
	return *c
}

// Move transfers ownership from src to a returned Chunk and re-inits src to
// zero length, per spec §3's move invariant and §8's round-trip law.
func Move(src *Chunk) Chunk {
	out := *src
	*src = Chunk{}
	return out
}

// Term runs the destructor exactly once when this was the last reference.
func (c *Chunk) Term() {
	if c.isHeap() && c.a != nil {
		c.a.unref()
	}
	*c = Chunk{}
}

// Slice returns a heap-chunk sub-view sharing the same arena (refcounted),
// used when splitting a received frame's header from its body.
func (c *Chunk) Slice(off, n int) Chunk {
	if !c.isHeap() {
		return Wrap(c.Bytes()[off : off+n])
	}
	c.a.ref()
	return Chunk{inlen: -1, a: c.a, off: c.off + off, length: n}
}
