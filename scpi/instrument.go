package scpi

import (
	"fmt"
	"strconv"
	"strings"
)

// maxErrors bounds how many entries CheckErrors drains from the error queue,
// so a misbehaving instrument cannot hold the caller forever
const maxErrors = 64

// Instrument holds the adapter a driver talks through and exposes
// the commands common to all SCPI instruments.  It keeps no state about
// the instrument itself; every call is a live exchange.
//
// The adapter is shared: the Instrument never closes it.
type Instrument struct {
	// Name is a human readable name of the instrument
	Name string

	// Adapter is the transport the instrument is driven through
	Adapter Adapter

	includeSCPI bool
}

// An Option configures an Instrument
type Option func(*Instrument)

// WithName sets the display name of the instrument
func WithName(name string) Option {
	return func(i *Instrument) {
		i.Name = name
	}
}

// IncludeSCPI enables (the default) or disables the common SCPI commands
// (*IDN?, *RST, *CLS, *OPC?, SYSTem:ERRor?) for instruments which lack them
func IncludeSCPI(b bool) Option {
	return func(i *Instrument) {
		i.includeSCPI = b
	}
}

// NewInstrument creates a new Instrument on a.  name is the default name,
// which a WithName option overrides.
func NewInstrument(a Adapter, name string, opts ...Option) *Instrument {
	i := &Instrument{Name: name, Adapter: a, includeSCPI: true}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Get reads a property
func (i *Instrument) Get(p Property) (interface{}, error) {
	return p.Get(i.Adapter)
}

// Set writes a property
func (i *Instrument) Set(p Property, v interface{}) error {
	return p.Set(i.Adapter, v)
}

// Float reads a property which yields a float64
func (i *Instrument) Float(p Property) (float64, error) {
	v, err := p.Get(i.Adapter)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s yields %T, not float64", p.Name(), v)
	}
	return f, nil
}

// Bool reads a property which yields a bool
func (i *Instrument) Bool(p Property) (bool, error) {
	v, err := p.Get(i.Adapter)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s yields %T, not bool", p.Name(), v)
	}
	return b, nil
}

// String reads a property which yields a string
func (i *Instrument) String(p Property) (string, error) {
	v, err := p.Get(i.Adapter)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s yields %T, not string", p.Name(), v)
	}
	return s, nil
}

// Write sends a command to the instrument
func (i *Instrument) Write(cmd string) error {
	return i.Adapter.Write(cmd)
}

// Ask sends a query to the instrument and returns the trimmed response
func (i *Instrument) Ask(cmd string) (string, error) {
	resp, err := i.Adapter.Query(cmd)
	return strings.TrimSpace(resp), err
}

// Raw sends a command to the instrument and returns a response if it was a query,
// else a blank string
func (i *Instrument) Raw(cmd string) (string, error) {
	if strings.Contains(cmd, "?") {
		return i.Ask(cmd)
	}
	return "", i.Write(cmd)
}

// Values queries the instrument for a list of numbers.  If the adapter knows
// how to decode them according to its framing it does so, otherwise the
// response is split on commas.
func (i *Instrument) Values(cmd string) ([]float64, error) {
	if vq, ok := i.Adapter.(ValuesQuerier); ok {
		return vq.QueryValues(cmd)
	}
	resp, err := i.Ask(cmd)
	if err != nil {
		return nil, err
	}
	return ParseValues(resp, ",")
}

// ParseValues splits an ASCII response on sep and parses each element
func ParseValues(resp, sep string) ([]float64, error) {
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return []float64{}, nil
	}
	pieces := strings.Split(resp, sep)
	out := make([]float64, len(pieces))
	for j, s := range pieces {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		out[j] = f
	}
	return out, nil
}

func (i *Instrument) common(cmd string) error {
	if !i.includeSCPI {
		return &NotSupportedError{Property: cmd, Op: "common command"}
	}
	return nil
}

// ID returns the identification string of the instrument
func (i *Instrument) ID() (string, error) {
	if err := i.common("*IDN?"); err != nil {
		return "", err
	}
	return i.Ask("*IDN?")
}

// Reset restores the power-on settings of the instrument
func (i *Instrument) Reset() error {
	if err := i.common("*RST"); err != nil {
		return err
	}
	return i.Write("*RST")
}

// Clear clears the status registers and error queue of the instrument
func (i *Instrument) Clear() error {
	if err := i.common("*CLS"); err != nil {
		return err
	}
	return i.Write("*CLS")
}

// Complete blocks until all pending operations on the instrument have finished
func (i *Instrument) Complete() error {
	if err := i.common("*OPC?"); err != nil {
		return err
	}
	resp, err := i.Ask("*OPC?")
	if err != nil {
		return err
	}
	if resp != "1" && resp != "+1" {
		return &UnknownResponseError{Property: "*OPC?", Response: resp}
	}
	return nil
}

// PopError gets a single error from the queue on the device, nil if the queue is empty
func (i *Instrument) PopError() error {
	if err := i.common("SYST:ERR?"); err != nil {
		return err
	}
	resp, err := i.Ask("SYST:ERR?")
	if err != nil {
		return err
	}
	de, err := parseDeviceError(resp)
	if err != nil {
		return err
	}
	if de == nil {
		return nil
	}
	return de
}

// CheckErrors drains the error queue of the instrument.  The returned slice
// holds *DeviceError values; the error is non-nil if the queue could not be read.
func (i *Instrument) CheckErrors() ([]error, error) {
	var errs []error
	for n := 0; n < maxErrors; n++ {
		err := i.PopError()
		if err == nil {
			return errs, nil
		}
		if _, ok := err.(*DeviceError); !ok {
			return errs, err
		}
		errs = append(errs, err)
	}
	return errs, fmt.Errorf("%s: error queue not empty after %d reads", i.Name, maxErrors)
}
