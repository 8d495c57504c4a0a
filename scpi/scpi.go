// Package scpi provides primitives for working with devices that
// have SCPI interfaces: properties binding typed attributes to command
// pairs, an Instrument base holding the adapter, and SCPI, an adapter
// over a pool of connections.
package scpi

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nasa-jpl/golab-smu/comm"
	"golang.org/x/time/rate"
)

const (
	timeout = 5 * time.Second
)

// SCPI is an Adapter for newline terminated SCPI over a pool of connections
// (TCP, RS-232, USBTMC).  A pool of size one serializes access to the device.
type SCPI struct {
	Pool *comm.Pool

	// Handshaking indicates if the communication shall use handshaking,
	// where an error query is sent with every message
	// to ensure the device accepted the input
	Handshaking bool

	// Limiter, if not nil, spaces out commands; some instruments drop
	// commands sent in quick succession
	Limiter *rate.Limiter

	// Timeout bounds each exchange on transports with deadlines.
	// Zero means 5 seconds.
	Timeout time.Duration

	mu      sync.Mutex
	framing FramingConfig
}

// New creates a new SCPI adapter on pool with ASCII, comma separated framing
func New(pool *comm.Pool) *SCPI {
	return &SCPI{Pool: pool, framing: FramingConfig{Separator: ","}}
}

// Configure sets the framing used by QueryValues
func (s *SCPI) Configure(f FramingConfig) error {
	if f.Binary {
		switch f.Datatype {
		case "float32", "float64":
		default:
			return fmt.Errorf("unsupported binary datatype %q", f.Datatype)
		}
	} else if f.Separator == "" {
		return fmt.Errorf("ASCII framing needs a separator")
	}
	switch f.Converter {
	case "", "f", "e", "g", "d":
	default:
		return fmt.Errorf("unsupported converter %q", f.Converter)
	}
	s.mu.Lock()
	s.framing = f
	s.mu.Unlock()
	return nil
}

// Framing returns the framing used by QueryValues
func (s *SCPI) Framing() FramingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.framing
}

// exchange borrows a connection, sends cmd and, if read is not nil, hands
// the terminated connection to read
func (s *SCPI) exchange(cmd string, read func(*comm.Terminator) error) (err error) {
	if s.Limiter != nil {
		if err = s.Limiter.Wait(context.Background()); err != nil {
			return err
		}
	}
	conn, err := s.Pool.Get()
	if err != nil {
		return err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	to := s.Timeout
	if to == 0 {
		to = timeout
	}
	if err = comm.SetTimeout(conn, to); err != nil {
		return err
	}
	term := comm.NewTerminator(conn, '\n', '\n')
	if _, err = io.WriteString(term, cmd); err != nil {
		return err
	}
	if read != nil {
		err = read(term)
	}
	return err
}

func (s *SCPI) handshake(cmd string) string {
	return "*CLS;" + cmd + ";:SYST:ERR?"
}

// Write sends a command to the device.  if s.Handshaking == true,
// it also requests an error response and checks that it is OK
func (s *SCPI) Write(cmd string) error {
	if !s.Handshaking {
		return s.exchange(cmd, nil)
	}
	var resp []byte
	err := s.exchange(s.handshake(cmd), func(t *comm.Terminator) error {
		var err error
		resp, err = t.ReadMessage()
		return err
	})
	if err != nil {
		return err
	}
	return checkHandshake(string(resp))
}

// Query sends a command to the device, then reads the response
// and returns it as a decoded ASCII or UTF-8 string
func (s *SCPI) Query(cmd string) (string, error) {
	if s.Handshaking {
		cmd = s.handshake(cmd)
	}
	var resp []byte
	err := s.exchange(cmd, func(t *comm.Terminator) error {
		var err error
		resp, err = t.ReadMessage()
		return err
	})
	if err != nil {
		return "", err
	}
	str := string(resp)
	if s.Handshaking {
		idx := strings.LastIndexByte(str, ';')
		if idx == -1 {
			return str, fmt.Errorf("handshake response %q has no error field", str)
		}
		if err = checkHandshake(str[idx+1:]); err != nil {
			return str[:idx], err
		}
		str = str[:idx]
	}
	return str, nil
}

func checkHandshake(resp string) error {
	de, err := parseDeviceError(resp)
	if err != nil {
		return err
	}
	if de != nil {
		return de
	}
	return nil
}

// QueryValues sends a query and decodes the list of values in the response
// according to the configured framing.  Handshaking is not applied.
func (s *SCPI) QueryValues(cmd string) ([]float64, error) {
	f := s.Framing()
	if !f.Binary {
		var resp []byte
		err := s.exchange(cmd, func(t *comm.Terminator) error {
			var err error
			resp, err = t.ReadMessage()
			return err
		})
		if err != nil {
			return nil, err
		}
		return ParseValues(string(resp), f.Separator)
	}
	var block []byte
	err := s.exchange(cmd, func(t *comm.Terminator) error {
		var err error
		block, err = t.ReadBlock()
		return err
	})
	if err != nil {
		return nil, err
	}
	return DecodeBlock(block, f.Datatype)
}

// DecodeBlock decodes little endian IEEE 754 values of datatype
// "float32" or "float64" from the payload of a binary block
func DecodeBlock(block []byte, datatype string) ([]float64, error) {
	size := 4
	if datatype == "float64" {
		size = 8
	} else if datatype != "float32" {
		return nil, fmt.Errorf("unsupported binary datatype %q", datatype)
	}
	if len(block)%size != 0 {
		return nil, fmt.Errorf("block of %d bytes is not a whole number of %s", len(block), datatype)
	}
	out := make([]float64, len(block)/size)
	for i := range out {
		chunk := block[i*size : (i+1)*size]
		if size == 4 {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(chunk)))
		} else {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(chunk))
		}
	}
	return out, nil
}

// Raw sends a command and returns a response if it was a query,
// else a blank string.  Handshaking is not applied.
func (s *SCPI) Raw(str string) (string, error) {
	if strings.Contains(str, "?") {
		var resp []byte
		err := s.exchange(str, func(t *comm.Terminator) error {
			var err error
			resp, err = t.ReadMessage()
			return err
		})
		return string(resp), err
	}
	return "", s.exchange(str, nil)
}
