/*Package comm provides the byte transports lab hardware is reached through.

Most usages of this package will boil down to:
	1.  build a CreationFunc with Dialer (TCP or RS-232) or any closure
		returning an io.ReadWriteCloser (e.g. a USBTMC device)
	2.  hand it to NewPool, which opens, reuses and eventually frees connections
	3.  wrap a connection from the pool in a Terminator to exchange
		newline delimited messages, after SetTimeout bounds the exchange

A minimal example for a SCPI device on a raw socket:

	pool := comm.NewPool(1, time.Minute, comm.Dialer("192.168.100.40:5025", nil))
	conn, err := pool.Get()
	if err != nil {
		return err
	}
	err = comm.SetTimeout(conn, 5*time.Second)
	...
	term := comm.NewTerminator(conn, '\n', '\n')
	_, err = io.WriteString(term, "*IDN?")
	...
	resp, err := term.ReadMessage()
	pool.ReturnWithError(conn, err)
*/
package comm

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

const (
	dialTimeout = 3 * time.Second
)

var (
	// ErrNotConnected is generated when a wrapper is used without an underlying connection.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// SerialConf makes a new serial.Config with 8N1 framing and the given baud rate.
// The read timeout bounds every read on the port.
func SerialConf(addr string, baud int) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 5 * time.Second}
}

// Dialer returns a CreationFunc which opens a connection to addr.
// If conf is nil, addr is a host:port and a TCP connection is made,
// otherwise the serial port described by conf is opened.
//
// Refused connections are retried with an exponential backoff,
// some instruments do not like being connection thrashed.
// Timeouts are not retried.
func Dialer(addr string, conf *serial.Config) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var (
			conn     io.ReadWriteCloser
			timedOut bool
		)
		op := func() error {
			var err error
			if conf != nil {
				conn, err = serial.OpenPort(conf)
			} else {
				conn, err = TCPSetup(addr, dialTimeout)
			}
			if err != nil && isTimeout(err) {
				timedOut = true
				return nil
			}
			return err
		}

		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if timedOut {
			return nil, fmt.Errorf("connection timeout to %s", addr)
		}
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

type deadliner interface {
	SetDeadline(time.Time) error
}

// SetTimeout bounds the next exchange on rw to d from now.
// Transports without deadlines (serial ports, USB) carry their own timeouts
// and are left untouched.
func SetTimeout(rw io.ReadWriter, d time.Duration) error {
	if rw == nil {
		return ErrNotConnected
	}
	if dl, ok := rw.(deadliner); ok {
		return dl.SetDeadline(time.Now().Add(d))
	}
	return nil
}
