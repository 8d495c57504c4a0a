package scpi_test

import (
	"bufio"
	"encoding/binary"
	"errors"
	"math"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nasa-jpl/golab-smu/comm"
	"github.com/nasa-jpl/golab-smu/scpi"
)

// fakeInstrument is a line oriented TCP server answering queries from a table
type fakeInstrument struct {
	mu       sync.Mutex
	received []string
	answers  map[string]string
}

func (f *fakeInstrument) serve(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal("could not listen, test aborted")
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.handle(conn)
		}
	}()
	return ln.Addr().String()
}

func (f *fakeInstrument) handle(conn net.Conn) {
	defer conn.Close()
	rd := bufio.NewReader(conn)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSuffix(line, "\n")
		f.mu.Lock()
		f.received = append(f.received, line)
		ans, ok := f.answers[line]
		f.mu.Unlock()
		if ok {
			conn.Write([]byte(ans))
		}
	}
}

func (f *fakeInstrument) got() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func newSCPI(t *testing.T, f *fakeInstrument) *scpi.SCPI {
	addr := f.serve(t)
	pool := comm.NewPool(1, time.Minute, comm.Dialer(addr, nil))
	t.Cleanup(func() { pool.Close() })
	s := scpi.New(pool)
	s.Timeout = time.Second
	return s
}

func TestSCPIWriteQuery(t *testing.T) {
	f := &fakeInstrument{answers: map[string]string{":READ:CURR?": "+1.000000E-03\r\n"}}
	s := newSCPI(t, f)
	if err := s.Write(":OUTP 1"); err != nil {
		t.Fatal(err)
	}
	resp, err := s.Query(":READ:CURR?")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "+1.000000E-03" {
		t.Errorf("expected +1.000000E-03 got %q", resp)
	}
	if diff := cmp.Diff([]string{":OUTP 1", ":READ:CURR?"}, f.got()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSCPIHandshaking(t *testing.T) {
	f := &fakeInstrument{answers: map[string]string{
		"*CLS;:OUTP 1;:SYST:ERR?":     "+0,\"No error\"\n",
		"*CLS;:OUTP 7;:SYST:ERR?":     "-222,\"Data out of range\"\n",
		"*CLS;:READ:VOLT?;:SYST:ERR?": "+2.0E+00;+0,\"No error\"\n",
	}}
	s := newSCPI(t, f)
	s.Handshaking = true
	if err := s.Write(":OUTP 1"); err != nil {
		t.Errorf("expected accepted write, got %v", err)
	}
	var de *scpi.DeviceError
	if err := s.Write(":OUTP 7"); !errors.As(err, &de) || de.Code != -222 {
		t.Errorf("expected device error -222 got %v", err)
	}
	resp, err := s.Query(":READ:VOLT?")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "+2.0E+00" {
		t.Errorf("expected +2.0E+00 got %q", resp)
	}
}

func TestSCPIConfigureValidates(t *testing.T) {
	s := scpi.New(nil)
	if err := s.Configure(scpi.FramingConfig{Binary: true, Datatype: "int8"}); err == nil {
		t.Error("expected unsupported datatype to be rejected")
	}
	if err := s.Configure(scpi.FramingConfig{}); err == nil {
		t.Error("expected ASCII framing without a separator to be rejected")
	}
	want := scpi.FramingConfig{Datatype: "float32", Converter: "f", Separator: ","}
	if err := s.Configure(want); err != nil {
		t.Fatal(err)
	}
	if s.Framing() != want {
		t.Errorf("expected %+v got %+v", want, s.Framing())
	}
}

func TestSCPIQueryValuesASCII(t *testing.T) {
	f := &fakeInstrument{answers: map[string]string{":FETC:ARR:VOLT?": "1.5;2.5\n"}}
	s := newSCPI(t, f)
	if err := s.Configure(scpi.FramingConfig{Separator: ";"}); err != nil {
		t.Fatal(err)
	}
	vals, err := s.QueryValues(":FETC:ARR:VOLT?")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1.5, 2.5}, vals); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSCPIQueryValuesBinary(t *testing.T) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(payload[4:8], math.Float32bits(-0.25))
	f := &fakeInstrument{answers: map[string]string{":FETC:ARR:CURR?": "#18" + string(payload) + "\n"}}
	s := newSCPI(t, f)
	if err := s.Configure(scpi.FramingConfig{Binary: true, Datatype: "float32"}); err != nil {
		t.Fatal(err)
	}
	vals, err := s.QueryValues(":FETC:ARR:CURR?")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1.5, -0.25}, vals); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDecodeBlockRejectsPartialElements(t *testing.T) {
	if _, err := scpi.DecodeBlock(make([]byte, 6), "float32"); err == nil {
		t.Error("expected an error for 6 bytes of float32")
	}
	if _, err := scpi.DecodeBlock(make([]byte, 8), "int16"); err == nil {
		t.Error("expected an error for an unsupported datatype")
	}
}

func TestSCPIRaw(t *testing.T) {
	f := &fakeInstrument{answers: map[string]string{"*IDN?": "Keysight Technologies,B2961A,MY0,1.0\n"}}
	s := newSCPI(t, f)
	resp, err := s.Raw("*IDN?")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "Keysight Technologies,B2961A,MY0,1.0" {
		t.Errorf("unexpected %q", resp)
	}
	if resp, err = s.Raw("*RST"); err != nil || resp != "" {
		t.Errorf("expected empty response to a write, got %q %v", resp, err)
	}
}

func TestSCPIDestroysConnectionOnError(t *testing.T) {
	f := &fakeInstrument{answers: map[string]string{}}
	s := newSCPI(t, f)
	s.Timeout = 50 * time.Millisecond
	if _, err := s.Query("NOANSWER?"); err == nil {
		t.Fatal("expected a timeout")
	}
	if s.Pool.Size() != 0 {
		t.Errorf("expected the timed out connection to be destroyed, pool size %d", s.Pool.Size())
	}
}
