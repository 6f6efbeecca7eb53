package pool

import (
	"io"
	"sync"
)

// Default sizes of the shared buffer pools.
//
// Read buffers hold one chunk of wire records (4096 EVT2 records by default);
// write buffers collect encoded records before they are flushed.
const (
	ReadBufferDefaultSize   = 1024 * 16       // 16KiB
	ReadBufferMaxThreshold  = 1024 * 1024     // 1MiB
	WriteBufferDefaultSize  = 1024 * 64       // 64KiB
	WriteBufferMaxThreshold = 1024 * 1024 * 4 // 4MiB
)

// ByteBuffer is a reusable byte slice.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer, retaining the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// Resize sets the length of the buffer to n, reallocating when the capacity
// is too small. The content of a reallocated buffer is not preserved.
//
// It panics if n is negative.
func (bb *ByteBuffer) Resize(n int) []byte {
	if n < 0 {
		panic("Resize: negative length")
	}
	if cap(bb.B) < n {
		bb.B = make([]byte, n)
	}
	bb.B = bb.B[:n]

	return bb.B
}

// Grow ensures the buffer can hold requiredBytes more bytes without reallocating.
//
// Small buffers grow by WriteBufferDefaultSize; larger ones by 25% of their
// capacity, or by requiredBytes when that is more.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	if cap(bb.B)-len(bb.B) >= requiredBytes {
		return
	}

	growBy := WriteBufferDefaultSize
	if cap(bb.B) > 4*WriteBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	growBy = max(growBy, requiredBytes)

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a pool of ByteBuffers backed by sync.Pool.
//
// Buffers whose capacity grew beyond maxThreshold are dropped on Put instead
// of being retained.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
// A maxThreshold of 0 retains buffers of any size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves an empty ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	readDefaultPool  = NewByteBufferPool(ReadBufferDefaultSize, ReadBufferMaxThreshold)
	writeDefaultPool = NewByteBufferPool(WriteBufferDefaultSize, WriteBufferMaxThreshold)
)

// GetReadBuffer retrieves a ByteBuffer sized for one chunk of wire records.
func GetReadBuffer() *ByteBuffer {
	return readDefaultPool.Get()
}

// PutReadBuffer returns a ByteBuffer to the read pool.
func PutReadBuffer(bb *ByteBuffer) {
	readDefaultPool.Put(bb)
}

// GetWriteBuffer retrieves a ByteBuffer for collecting encoded records.
func GetWriteBuffer() *ByteBuffer {
	return writeDefaultPool.Get()
}

// PutWriteBuffer returns a ByteBuffer to the write pool.
func PutWriteBuffer(bb *ByteBuffer) {
	writeDefaultPool.Put(bb)
}
