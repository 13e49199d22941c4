package transport

import (
	"bufio"
	"errors"
	"net"
	"runtime"
	"sync/atomic"
)

// PoolSize is the number of idle connection contexts kept for reuse. It must
// be a power of two.
const PoolSize = 256

var (
	ErrFull  = errors.New("transport: ring buffer is full")
	ErrEmpty = errors.New("transport: ring buffer is empty")
)

// connCtx holds the buffers of one connection. It is reset and reused for
// the next connection once the current one closes.
type connCtx struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	idle   atomic.Bool
}

func newConnCtx() *connCtx {
	return &connCtx{
		reader: bufio.NewReaderSize(nil, DefaultReadBufferSize),
		writer: bufio.NewWriterSize(nil, DefaultWriteBufferSize),
	}
}

func (cc *connCtx) reset(conn net.Conn) {
	cc.conn = conn
	cc.reader.Reset(conn)
	cc.writer.Reset(conn)
	cc.idle.Store(false)
}

// connPool hands out connection contexts, allocating when the ring is empty
// and dropping contexts when it is full.
type connPool struct {
	ready RingBuffer[*connCtx]
}

func newConnPool() *connPool {
	return &connPool{ready: NewRingBuffer[*connCtx]()}
}

func (p *connPool) acquire(conn net.Conn) *connCtx {
	cc, err := p.ready.Dequeue()
	if err != nil {
		cc = newConnCtx()
	}
	cc.reset(conn)
	return cc
}

func (p *connPool) release(cc *connCtx) {
	cc.reset(nil)
	p.ready.Enqueue(cc)
}

// RingBuffer is a bounded lock-free multi-producer multi-consumer queue.
type RingBuffer[T any] struct {
	buffer [PoolSize]slot[T]
	mask   uint64
	enqPos uint64
	deqPos uint64
}

type slot[T any] struct {
	sequence uint64
	value    T
}

func NewRingBuffer[T any]() RingBuffer[T] {
	var buf [PoolSize]slot[T]
	for i := range buf {
		buf[i].sequence = uint64(i)
	}
	return RingBuffer[T]{
		buffer: buf,
		mask:   PoolSize - 1,
	}
}

func (q *RingBuffer[T]) Enqueue(val T) error {
	for {
		pos := atomic.LoadUint64(&q.enqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos)

		if delta == 0 {
			if atomic.CompareAndSwapUint64(&q.enqPos, pos, pos+1) {
				slot.value = val
				atomic.StoreUint64(&slot.sequence, pos+1)
				return nil
			}
		} else if delta < 0 {
			return ErrFull
		} else {
			runtime.Gosched()
		}
	}
}

// Dequeue removes and returns the oldest item.
func (q *RingBuffer[T]) Dequeue() (T, error) {
	var zero T
	for {
		pos := atomic.LoadUint64(&q.deqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos+1)

		if delta == 0 {
			if atomic.CompareAndSwapUint64(&q.deqPos, pos, pos+1) {
				val := slot.value
				slot.value = zero
				atomic.StoreUint64(&slot.sequence, pos+q.mask+1)
				return val, nil
			}
		} else if delta < 0 {
			return zero, ErrEmpty
		} else {
			runtime.Gosched()
		}
	}
}
