package buffer

import (
	"sync"
	"sync/atomic"
)

// MemoryLimitExceededError is returned when an allocation would exceed
// the pool's memory limit.
type MemoryLimitExceededError struct {
	Requested int64
	Current   int64
	Limit     int64
}

func (e *MemoryLimitExceededError) Error() string {
	return "buffer: pool memory limit exceeded"
}

// poolSizes are the discrete capacities for pooled buffers. The first
// two match the 3- and 4-channel tile payload sizes; the larger classes
// absorb compressed streams and multi-tile scratch space.
var poolSizes = []int{
	64 << 10,  // 64 KB
	192 << 10, // 196608 bytes, 3-channel tile
	256 << 10, // 262144 bytes, 4-channel tile
	1 << 20,   // 1 MB
}

// Pool manages reusable owning buffers to reduce allocations across
// tile operations. It supports an optional memory limit to bound
// outstanding buffer storage.
type Pool struct {
	pools       []*sync.Pool
	memoryUsed  int64 // atomic: storage currently handed out
	memoryLimit int64 // atomic: maximum allowed (0 = unlimited)
	hitCount    int64 // atomic
	missCount   int64 // atomic
}

// NewPool creates a buffer pool with no memory limit.
func NewPool() *Pool {
	return NewPoolWithLimit(0)
}

// NewPoolWithLimit creates a buffer pool that refuses allocations once
// outstanding storage would exceed limit bytes. A limit of 0 disables
// the check.
func NewPoolWithLimit(limit int64) *Pool {
	p := &Pool{
		pools:       make([]*sync.Pool, len(poolSizes)),
		memoryLimit: limit,
	}
	for i, size := range poolSizes {
		size := size
		p.pools[i] = &sync.Pool{
			New: func() interface{} {
				return make([]byte, size)
			},
		}
	}
	return p
}

// SetMemoryLimit sets the maximum outstanding storage and returns the
// previous limit. A limit of 0 disables the check.
func (p *Pool) SetMemoryLimit(limit int64) int64 {
	return atomic.SwapInt64(&p.memoryLimit, limit)
}

// MemoryUsed returns the storage currently handed out, in bytes.
func (p *Pool) MemoryUsed() int64 {
	return atomic.LoadInt64(&p.memoryUsed)
}

// Stats returns the pool hit and miss counts.
func (p *Pool) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&p.hitCount), atomic.LoadInt64(&p.missCount)
}

func poolIndex(size int) int {
	for i, s := range poolSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// Get returns an owning buffer with capacity of at least size and size
// 0. Call Put when done to return the storage for reuse.
func (p *Pool) Get(size int) (*Buffer, error) {
	idx := poolIndex(size)
	alloc := size
	if idx >= 0 {
		alloc = poolSizes[idx]
	}

	limit := atomic.LoadInt64(&p.memoryLimit)
	if limit > 0 {
		// Reserve with a CAS so concurrent Gets cannot jointly pass the
		// check and overshoot the limit.
		for {
			current := atomic.LoadInt64(&p.memoryUsed)
			if current+int64(alloc) > limit {
				return nil, &MemoryLimitExceededError{
					Requested: int64(alloc),
					Current:   current,
					Limit:     limit,
				}
			}
			if atomic.CompareAndSwapInt64(&p.memoryUsed, current, current+int64(alloc)) {
				break
			}
		}
	} else {
		atomic.AddInt64(&p.memoryUsed, int64(alloc))
	}

	if idx < 0 {
		// Too large for any class, allocate directly.
		atomic.AddInt64(&p.missCount, 1)
		return NewSized(size), nil
	}

	data := p.pools[idx].Get().([]byte)
	atomic.AddInt64(&p.hitCount, 1)
	return &Buffer{data: data, strength: Owning}, nil
}

// Put returns a buffer's storage to the pool. Only owning buffers whose
// capacity matches a pool class are recycled; borrowed buffers are
// ignored since their storage belongs to the caller. The buffer must
// not be used after Put.
func (p *Pool) Put(b *Buffer) {
	if b == nil || b.strength != Owning || b.data == nil {
		return
	}
	capacity := len(b.data)
	atomic.AddInt64(&p.memoryUsed, -int64(capacity))

	idx := poolIndex(capacity)
	if idx >= 0 && capacity == poolSizes[idx] {
		p.pools[idx].Put(b.data)
	}
	b.data = nil
	b.size = 0
}
