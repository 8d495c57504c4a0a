/*Package usbtmc implements datagram encoding and decoding for USB Test and
Measurement Class devices.  This is a 'minimum viable product' for the bulk
transfer mode, as used by SCPI instruments such as the Keysight B2900 series.

It does not, for example, include features to support multi-packet
messaging, and thus assumes your data fits in the remote's buffer.

It also does not implement chatter / ping-pong for the case when data
does not fit in the remote buffer.

To send a message:
1.  Allocate a send buffer
2.  Write the header to it
3.  Write your data to it
4.  Ensure that the total transmission size is a multiple of 4 bytes before flushing

To receive a message:
1.  Allocate a receipt buffer
2.  Create a read header and send it on the Out endpoint
3.  Read from the In endpoint

These macros are implemented as Write and ReadBulk on the concrete USB type
defined in this package.  Device also satisfies io.ReadWriteCloser, so it can
be the connection handed out by a comm.Pool.
*/
package usbtmc

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/google/gousb"
	"github.com/nasa-jpl/golab-smu/comm"
)

const (
	// reserved is the byte to insert in reserved header fields
	reserved = 0x00

	headerSize = 12

	// bufSize is the largest single transfer requested from the device
	bufSize = 1500

	// KeysightVID is the Keysight (formerly Agilent) vendor ID
	KeysightVID = 0x0957

	// B2961APID is the product ID of the B2961A in USBTMC mode
	B2961APID = 0x9018
)

// BTagger can generate bTags
type BTagger interface {
	nextbTag() byte
}

// bTagGen is a concurrent-safe bTag generator
type bTagGen struct {
	sync.Mutex

	value byte
}

func newBTagGen() *bTagGen {
	return &bTagGen{}
}

// nextbTag yields 1..255, never 0
func (b *bTagGen) nextbTag() byte {
	b.Lock()
	defer b.Unlock()
	b.value++
	if b.value == 0 {
		b.value = 1
	}
	return b.value
}

// invbTag computes the bitwise inversion of a btag, per USBTMC standard table 1 offset 2
func invbTag(b byte) byte {
	return b ^ 0xff
}

// BulkInResponse is the response from a bulk input read, split into header and payload
type BulkInResponse struct {
	// Header is the header bytes that are prepended to the data
	Header []byte

	// Data is the actual datagram body, with alignment padding removed
	Data []byte
}

// encBulkOutHeader creates the header defined in USBTMC standard, Table 3
func encBulkOutHeader(btag BTagger, datalen int) [headerSize]byte {
	out := [headerSize]byte{}
	/* data map by offset:
	0 MsgID, DEV_DEP_MSG_OUT = 1
	1 bTag, unique and incrementing with each message
	2 bTagInverse
	3 Reserved (0x00)
	4-7 transferSize, LSB first, exclusive of header and alignment
	8 bitmap, bit 0 EOM
	9-11 reserved
	*/
	tag := btag.nextbTag()
	out[0] = 0x01
	out[1] = tag
	out[2] = invbTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(datalen))
	out[8] = 0x01 // hardcode end of message
	return out
}

// encBulkInHeader creates the header defined in USBTMC standard, Table 4.
// if terminator is nil, the device is told to ignore the termination character
func encBulkInHeader(btag BTagger, bufsize int, terminator *byte) [headerSize]byte {
	out := [headerSize]byte{}
	/* this differs from BulkOut by bytes 8~11
	8 bitmap, bit 1 termination character enabled
	9 terminator byte
	10~11 reserved
	*/
	tag := btag.nextbTag()
	out[0] = 0x02 // REQUEST_DEV_DEP_MSG_IN
	out[1] = tag
	out[2] = invbTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(bufsize))
	if terminator != nil {
		out[8] = 0x02
		out[9] = *terminator
	}
	return out
}

// decBulkInHeader validates a DEV_DEP_MSG_IN header and returns its transfer size
func decBulkInHeader(hdr []byte) (int, error) {
	if len(hdr) < headerSize {
		return 0, fmt.Errorf("only received %d bytes, need at least %d to form header", len(hdr), headerSize)
	}
	if hdr[0] != 0x02 {
		return 0, fmt.Errorf("unexpected MsgID %d in bulk in header", hdr[0])
	}
	if hdr[2] != invbTag(hdr[1]) {
		return 0, fmt.Errorf("bTag %d and inverse %d do not match", hdr[1], hdr[2])
	}
	return int(binary.LittleEndian.Uint32(hdr[4:8])), nil
}

// USBDevice is a struct hiding the details of USB and exposing an io.ReadWriteCloser interface
type USBDevice struct {
	tagger BTagger
	ctx    *gousb.Context
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
	device *gousb.Device
	iface  *gousb.Interface
	closer func()
}

// NewUSBDevice opens the first device with the given vendor and product ID
func NewUSBDevice(vid, pid uint16) (*USBDevice, error) {
	var err error
	out := &USBDevice{tagger: newBTagGen(), ctx: gousb.NewContext()}
	out.device, err = out.ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		out.ctx.Close()
		return nil, err
	}
	if out.device == nil {
		out.ctx.Close()
		return nil, fmt.Errorf("no USB device with VID %04x PID %04x", vid, pid)
	}
	if err = out.device.SetAutoDetach(true); err != nil {
		out.Close()
		return nil, err
	}
	out.iface, out.closer, err = out.device.DefaultInterface()
	if err != nil {
		out.Close()
		return nil, err
	}
	out.in, err = out.iface.InEndpoint(2)
	if err != nil {
		out.Close()
		return nil, err
	}
	out.out, err = out.iface.OutEndpoint(2)
	if err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}

// Dialer returns a comm.CreationFunc which opens the device on every call
func Dialer(vid, pid uint16) comm.CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return NewUSBDevice(vid, pid)
	}
}

// ReadBulk requests and reads one bulk in transfer
func (d *USBDevice) ReadBulk() (BulkInResponse, error) {
	var out BulkInResponse
	term := byte('\n')
	hdr := encBulkInHeader(d.tagger, bufSize, &term)
	n, err := d.out.Write(hdr[:])
	if err != nil {
		return out, err
	}
	if n < headerSize {
		// attempt a second write
		m, err := d.out.Write(hdr[n:])
		if err != nil {
			return out, err
		}
		if total := n + m; total != headerSize {
			return out, fmt.Errorf("wrote %d bytes, not full %d required to transmit read request", total, headerSize)
		}
	}
	buf := make([]byte, bufSize+headerSize)
	n, err = d.in.Read(buf)
	if err != nil {
		return out, err
	}
	buf = buf[:n]
	size, err := decBulkInHeader(buf)
	if err != nil {
		return out, err
	}
	out.Header = buf[:headerSize]
	out.Data = buf[headerSize:]
	if size < len(out.Data) {
		out.Data = out.Data[:size]
	}
	return out, nil
}

// Read satisfies io.Reader, reading one bulk transfer into p
func (d *USBDevice) Read(p []byte) (int, error) {
	resp, err := d.ReadBulk()
	if err != nil {
		return 0, err
	}
	n := copy(p, resp.Data)
	if n < len(resp.Data) {
		return n, io.ErrShortBuffer
	}
	return n, nil
}

// Write satisfies io.Writer, sending b as one DEV_DEP_MSG_OUT transfer
func (d *USBDevice) Write(b []byte) (int, error) {
	const (
		alignment = 4
	)
	hdr := encBulkOutHeader(d.tagger, len(b))
	msg := append(hdr[:], b...)

	if residual := len(msg) % alignment; residual > 0 {
		// make zero-fills the padding
		msg = append(msg, make([]byte, alignment-residual)...)
	}
	if _, err := d.out.Write(msg); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close closes the device
func (d *USBDevice) Close() error {
	if d.closer != nil {
		d.closer()
	}
	var err error
	if d.device != nil {
		err = d.device.Close()
	}
	if d.ctx != nil {
		d.ctx.Close()
	}
	return err
}
