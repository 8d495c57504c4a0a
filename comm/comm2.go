package comm

import (
	"io"
	"sync"
	"time"
)

// CreationFunc is a function which returns a new "connection" to something
// a closure should be used to encapsulate the variables and functions needed
type CreationFunc func() (io.ReadWriteCloser, error)

// Pool is a communication pool which holds one or more connections to a device
// that will be closed if they are not in use, and re-opened as needed.
// it is concurrent safe.  Pools must be created with NewPool.
//
// A pool of size 1 serializes all access to an instrument.
type Pool struct {
	maxSize int                     // maximum number of connections, == cap(conns)
	onLease int                     // number of connections given out or being made, <= maxSize
	timeout time.Duration           // time after all conns are returned to free them
	conns   chan io.ReadWriteCloser // idle connections
	timer   *time.Timer             // fires reclaim once the pool has been idle for timeout
	freed   chan struct{}           // closed and replaced whenever a lease ends without a Put
	maker   CreationFunc

	mu sync.Mutex
}

// NewPool creates a new pool which makes at most maxSize connections with maker
// and frees them once none have been in use for timeout
func NewPool(maxSize int, timeout time.Duration, maker CreationFunc) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	p := &Pool{
		maxSize: maxSize,
		timeout: timeout,
		conns:   make(chan io.ReadWriteCloser, maxSize),
		freed:   make(chan struct{}),
		maker:   maker,
	}
	p.timer = time.AfterFunc(timeout, p.reclaim)
	p.timer.Stop() // nothing to close initially
	return p
}

// Get retrieves a connection from the pool, blocking until one is
// available if all are in use.  It is guaranteed that there is no contention
// for the ReadWriter.  The consumer should not attempt to cast it to its
// concrete type and use it outside this interface.
//
// When done with the connection, return it with Put, or discard it with
// Destroy if it has become no good (e.g., all calls error).
// ReturnWithError picks between the two.
//
// If the error from Get is not nil, you must not return it
// to the pool.
func (p *Pool) Get() (io.ReadWriter, error) {
	for {
		p.mu.Lock()
		p.timer.Stop()
		// short circuit: if a connection is available, immediately return it
		select {
		case c := <-p.conns:
			p.onLease++
			p.mu.Unlock()
			return c, nil
		default:
		}

		if p.onLease < p.maxSize {
			// reserve the slot before making the connection, so that
			// concurrent callers cannot overfill the pool
			p.onLease++
			p.mu.Unlock()
			c, err := p.maker()
			if err != nil {
				p.release()
				return nil, err
			}
			return c, nil
		}
		freed := p.freed
		p.mu.Unlock()

		// all are given out, wait for one to come back or a slot to open
		select {
		case c := <-p.conns:
			p.mu.Lock()
			p.onLease++
			p.timer.Stop()
			p.mu.Unlock()
			return c, nil
		case <-freed:
		}
	}
}

// release ends a lease that does not return a connection and wakes waiters
func (p *Pool) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLease--
	close(p.freed)
	p.freed = make(chan struct{})
}

// Put restores a connection to the pool.  It may be reused, or will be
// automatically freed after all connections are returned and the timeout
// has elapsed.
func (p *Pool) Put(rw io.ReadWriter) {
	rwc := rw.(io.ReadWriteCloser)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLease--
	p.conns <- rwc
	if p.onLease == 0 {
		p.timer.Reset(p.timeout)
	}
}

// Destroy immediately frees a connection from the pool.  This should be used
// instead of Put if the connection has gone bad.
func (p *Pool) Destroy(rw io.ReadWriter) {
	rwc := rw.(io.ReadWriteCloser)
	rwc.Close()
	p.release()
}

// ReturnWithError calls Put if err is nil, otherwise Destroy
func (p *Pool) ReturnWithError(rw io.ReadWriter, err error) {
	if rw == nil {
		return
	}
	if err != nil {
		p.Destroy(rw)
		return
	}
	p.Put(rw)
}

// Size returns the number of connections in the pool, or given out from it
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns) + p.onLease
}

// Active returns the number of connections owned by the pool that are currently
// given out
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onLease
}

// Close frees all idle connections.  Connections on lease are unaffected
// and may still be returned.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timer.Stop()
	return p.drain()
}

// reclaim closes all idle connections if none are on lease
func (p *Pool) reclaim() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onLease == 0 {
		p.drain()
	}
}

// drain must be called with mu held
func (p *Pool) drain() error {
	var first error
	for {
		select {
		case c := <-p.conns:
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		default:
			return first
		}
	}
}
