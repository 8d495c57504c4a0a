package comm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Terminator wraps a connection to exchange messages delimited by
// termination bytes.  Writes have the Tx terminator appended,
// reads consume up to and including the Rx terminator.
type Terminator struct {
	rw io.ReadWriter
	rd *bufio.Reader
	rx byte
	tx byte
}

// NewTerminator creates a new Terminator around rw
func NewTerminator(rw io.ReadWriter, rx, tx byte) *Terminator {
	return &Terminator{rw: rw, rd: bufio.NewReader(rw), rx: rx, tx: tx}
}

// Write sends p followed by the Tx terminator.  The returned count
// excludes the terminator.
func (t *Terminator) Write(p []byte) (int, error) {
	if t.rw == nil {
		return 0, ErrNotConnected
	}
	buf := make([]byte, len(p), len(p)+1)
	copy(buf, p)
	buf = append(buf, t.tx)
	n, err := t.rw.Write(buf)
	if n > len(p) {
		n = len(p)
	}
	return n, err
}

// Read reads one message into p, with the Rx terminator stripped.
// If the message does not fit, io.ErrShortBuffer is returned
// along with the portion that did.
func (t *Terminator) Read(p []byte) (int, error) {
	msg, err := t.ReadMessage()
	n := copy(p, msg)
	if err == nil && n < len(msg) {
		err = io.ErrShortBuffer
	}
	return n, err
}

// ReadMessage reads one message and strips the Rx terminator and
// a carriage return preceding it
func (t *Terminator) ReadMessage() ([]byte, error) {
	if t.rw == nil {
		return nil, ErrNotConnected
	}
	buf, err := t.rd.ReadBytes(t.rx)
	if err != nil {
		if err == io.EOF && len(buf) > 0 {
			return buf, ErrTerminatorNotFound
		}
		return buf, err
	}
	buf = buf[:len(buf)-1]
	buf = bytes.TrimSuffix(buf, []byte{'\r'})
	return buf, nil
}

// ReadBlock reads an IEEE 488.2 definite length arbitrary block,
// #<n><length, n digits><length bytes>, and consumes the Rx terminator
// that follows it.  The payload is returned without the header.
func (t *Terminator) ReadBlock() ([]byte, error) {
	if t.rw == nil {
		return nil, ErrNotConnected
	}
	hash, err := t.rd.ReadByte()
	if err != nil {
		return nil, err
	}
	if hash != '#' {
		return nil, fmt.Errorf("first byte in block was %q, expected #", hash)
	}
	digit, err := t.rd.ReadByte()
	if err != nil {
		return nil, err
	}
	ndigits := int(digit - '0')
	if ndigits < 1 || ndigits > 9 {
		return nil, fmt.Errorf("block header length digit %q is not 1-9", digit)
	}
	lenText := make([]byte, ndigits)
	if _, err = io.ReadFull(t.rd, lenText); err != nil {
		return nil, err
	}
	nbytes, err := strconv.Atoi(string(lenText))
	if err != nil {
		return nil, err
	}
	data := make([]byte, nbytes)
	if _, err = io.ReadFull(t.rd, data); err != nil {
		return data, err
	}
	// now we need to pop off the terminator
	_, err = t.rd.ReadBytes(t.rx)
	return data, err
}
