package scpi_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nasa-jpl/golab-smu/scpi"
)

// plainAdapter hides the framing and values support of a Mock
type plainAdapter struct {
	m *scpi.Mock
}

func (p plainAdapter) Write(cmd string) error            { return p.m.Write(cmd) }
func (p plainAdapter) Query(cmd string) (string, error) { return p.m.Query(cmd) }

// valuesAdapter decodes values itself
type valuesAdapter struct {
	plainAdapter
}

func (v valuesAdapter) QueryValues(cmd string) ([]float64, error) {
	return []float64{1, 2, 3}, nil
}

func TestInstrumentOptions(t *testing.T) {
	i := scpi.NewInstrument(scpi.NewMock(), "default")
	if i.Name != "default" {
		t.Errorf("expected default got %q", i.Name)
	}
	i = scpi.NewInstrument(scpi.NewMock(), "default", scpi.WithName("bench supply"))
	if i.Name != "bench supply" {
		t.Errorf("expected bench supply got %q", i.Name)
	}
}

func TestTypedGetters(t *testing.T) {
	m := scpi.NewMock()
	i := scpi.NewInstrument(m, "x")
	m.SetResponse(":SOUR:CURR?", "+2.500000E-01")
	f, err := i.Float(level)
	if err != nil {
		t.Fatal(err)
	}
	if f != 0.25 {
		t.Errorf("expected 0.25 got %v", f)
	}
	if _, err = i.Bool(level); err == nil {
		t.Error("expected a type mismatch error reading a float property as bool")
	}
	m.SetResponse(":SOUR:FUNC:MODE?", "VOLT")
	s, err := i.String(mode)
	if err != nil {
		t.Fatal(err)
	}
	if s != "voltage" {
		t.Errorf("expected voltage got %q", s)
	}
}

func TestCommonCommands(t *testing.T) {
	m := scpi.NewMock()
	i := scpi.NewInstrument(m, "x")
	id, err := i.ID()
	if err != nil {
		t.Fatal(err)
	}
	if id != "MOCK,SCPI INSTRUMENT,0,0.0" {
		t.Errorf("unexpected id %q", id)
	}
	if err = i.Reset(); err != nil {
		t.Fatal(err)
	}
	if err = i.Clear(); err != nil {
		t.Fatal(err)
	}
	if err = i.Complete(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"*RST", "*CLS"}, m.Written()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCommonCommandsExcluded(t *testing.T) {
	m := scpi.NewMock()
	i := scpi.NewInstrument(m, "x", scpi.IncludeSCPI(false))
	var ne *scpi.NotSupportedError
	if _, err := i.ID(); !errors.As(err, &ne) {
		t.Errorf("expected NotSupportedError got %v", err)
	}
	if err := i.Reset(); !errors.As(err, &ne) {
		t.Errorf("expected NotSupportedError got %v", err)
	}
	if len(m.Written())+len(m.Queried()) != 0 {
		t.Error("expected no I/O")
	}
}

// queueAdapter serves a fixed error queue
type queueAdapter struct {
	plainAdapter
	queue []string
}

func (q *queueAdapter) Query(cmd string) (string, error) {
	if cmd != "SYST:ERR?" {
		return q.plainAdapter.Query(cmd)
	}
	if len(q.queue) == 0 {
		return `+0,"No error"`, nil
	}
	head := q.queue[0]
	q.queue = q.queue[1:]
	return head, nil
}

func TestCheckErrors(t *testing.T) {
	q := &queueAdapter{
		plainAdapter: plainAdapter{scpi.NewMock()},
		queue:        []string{`-113,"Undefined header"`, `-222,"Data out of range"`},
	}
	i := scpi.NewInstrument(q, "x")
	errs, err := i.CheckErrors()
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors got %d", len(errs))
	}
	var de *scpi.DeviceError
	if !errors.As(errs[0], &de) || de.Code != -113 || de.Message != "Undefined header" {
		t.Errorf("unexpected first error %v", errs[0])
	}
	if errs[1].Error() != "-222 - Data out of range" {
		t.Errorf("unexpected second error %q", errs[1].Error())
	}
	errs, err = i.CheckErrors()
	if err != nil || len(errs) != 0 {
		t.Errorf("expected drained queue, got %v %v", errs, err)
	}
}

func TestDeviceErrorStandardText(t *testing.T) {
	de := &scpi.DeviceError{Code: -222}
	if de.Error() != "-222 - DATA OUT OF RANGE" {
		t.Errorf("unexpected %q", de.Error())
	}
}

func TestValuesSplitsWithoutValuesQuerier(t *testing.T) {
	m := scpi.NewMock()
	m.SetResponse(":FETC:ARR:CURR?", "1.0E-3,2.0E-3,+3.0E-3")
	i := scpi.NewInstrument(plainAdapter{m}, "x")
	vals, err := i.Values(":FETC:ARR:CURR?")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1e-3, 2e-3, 3e-3}, vals); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestValuesDelegatesToAdapter(t *testing.T) {
	i := scpi.NewInstrument(valuesAdapter{plainAdapter{scpi.NewMock()}}, "x")
	vals, err := i.Values(":FETC:ARR:CURR?")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1, 2, 3}, vals); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestRaw(t *testing.T) {
	m := scpi.NewMock()
	i := scpi.NewInstrument(m, "x")
	resp, err := i.Raw("*IDN?")
	if err != nil || resp == "" {
		t.Errorf("expected a response to a query, got %q %v", resp, err)
	}
	resp, err = i.Raw(":OUTP 1")
	if err != nil || resp != "" {
		t.Errorf("expected no response to a write, got %q %v", resp, err)
	}
}
