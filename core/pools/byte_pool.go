package pools

import (
	"sync"
	"sync/atomic"
)

// BytePool hands out fixed-capacity read buffers.
//
// Every buffer has exactly the pool's size, so a read into it can never grow
// past the limit. Buffers are recycled through a sync.Pool.
type BytePool struct {
	size int
	pool sync.Pool

	stats struct {
		gets   atomic.Uint64
		puts   atomic.Uint64
		allocs atomic.Uint64
	}
}

// DefaultBufferSize is the read buffer capacity for one request
const DefaultBufferSize = 8192

// NewBytePool creates a pool of size-byte buffers. size <= 0 selects DefaultBufferSize.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = DefaultBufferSize
	}

	bp := &BytePool{size: size}
	bp.pool.New = func() any {
		bp.stats.allocs.Add(1)
		buf := make([]byte, size)
		return &buf
	}
	return bp
}

// Size returns the capacity of every buffer in the pool
func (bp *BytePool) Size() int {
	return bp.size
}

// Get returns a buffer with len == cap == Size()
func (bp *BytePool) Get() *[]byte {
	bp.stats.gets.Add(1)
	return bp.pool.Get().(*[]byte)
}

// Put returns a buffer obtained from Get. Foreign buffers are dropped.
func (bp *BytePool) Put(buf *[]byte) {
	if buf == nil || cap(*buf) != bp.size {
		return
	}
	*buf = (*buf)[:bp.size]
	bp.stats.puts.Add(1)
	bp.pool.Put(buf)
}

// Stats returns pool statistics
func (bp *BytePool) Stats() BytePoolStats {
	return BytePoolStats{
		Size:      bp.size,
		TotalGets: bp.stats.gets.Load(),
		TotalPuts: bp.stats.puts.Load(),
		Allocs:    bp.stats.allocs.Load(),
	}
}

// BytePoolStats contains pool statistics
type BytePoolStats struct {
	Size      int
	TotalGets uint64
	TotalPuts uint64
	Allocs    uint64
}
