// Package keysight provides access to Keysight power supplies and
// source-measure units in Go
package keysight

import (
	"github.com/nasa-jpl/golab-smu/scpi"
)

const (
	// B2961AName is the default display name of a B2961A
	B2961AName = "Keysight B2961A power supply"

	// MaxCurrent is the largest current magnitude the B2961A sources, in Amps
	MaxCurrent = 3.

	// MaxVoltage is the largest voltage magnitude allowed by this driver, in Volts.
	// The device can in principle output 210 V.
	MaxVoltage = 21.
)

var (
	currentBound = scpi.RangeBound{Min: -MaxCurrent, Max: MaxCurrent}
	voltageBound = scpi.RangeBound{Min: -MaxVoltage, Max: MaxVoltage}
	onOff        = scpi.DiscreteMap{true: "ON", false: "OFF"}

	// B2961AFraming is the transfer format set up on adapters which support it
	B2961AFraming = scpi.FramingConfig{
		Binary:    false,
		Datatype:  "float32",
		Converter: "f",
		Separator: ","}
)

// Source
var (
	// SourceMode is the source mode, "current" or "voltage"
	SourceMode = scpi.Control("source_mode", ":SOUR:FUNC:MODE?", ":SOUR:FUNC:MODE %s",
		scpi.Validate(scpi.StrictDiscreteSet, scpi.DiscreteMap{"current": "CURR", "voltage": "VOLT"}),
		scpi.MapValues())

	// SourceFunction is the source function, "dc" or "pulse"
	SourceFunction = scpi.Control("source_function", ":SOUR:FUNC?", ":SOUR:FUNC %s",
		scpi.Validate(scpi.StrictDiscreteSet, scpi.DiscreteMap{"pulse": "PULS", "dc": "DC"}),
		scpi.MapValues())

	// SourceEnabled is true if the source is enabled
	SourceEnabled = scpi.Measurement("source_enabled", "OUTPUT?", scpi.CastTo(scpi.Bool))
)

// Source current, A
var (
	// SourceCurrent is the immediate current output
	SourceCurrent = scpi.Control("source_current", ":SOUR:CURR:LEV:IMM:AMPL?", ":SOUR:CURR:LEV:IMM:AMPL %g",
		scpi.Validate(scpi.TruncatedRange, currentBound), scpi.CastTo(scpi.Float))

	// SourceCurrentReading is a readback of the sourced current
	SourceCurrentReading = scpi.Measurement("source_current_reading", "READ:SOUR?", scpi.CastTo(scpi.Float))

	// SourceCurrentRange is the source current range
	SourceCurrentRange = scpi.Control("source_current_range", ":SOUR:CURR:RANG?", ":SOUR:CURR:RANG %g",
		scpi.Validate(scpi.TruncatedRange, currentBound), scpi.CastTo(scpi.Float))

	// SourceCurrentAutorange is the source current auto range function
	SourceCurrentAutorange = scpi.Control("source_current_autorange", ":SOUR:CURR:RANG:AUTO?", ":SOUR:CURR:RANG:AUTO %s",
		scpi.Validate(scpi.StrictDiscreteSet, onOff), scpi.MapValues())
)

// Source voltage, V
var (
	// SourceVoltage is the immediate voltage output
	SourceVoltage = scpi.Control("source_voltage", ":SOUR:VOLT:LEV:IMM:AMPL?", ":SOUR:VOLT:LEV:IMM:AMPL %g",
		scpi.Validate(scpi.TruncatedRange, voltageBound), scpi.CastTo(scpi.Float))

	// SourceVoltageReading is a readback of the sourced voltage
	SourceVoltageReading = scpi.Measurement("source_voltage_reading", "READ:SOUR?", scpi.CastTo(scpi.Float))

	// SourceVoltageRange is the source voltage range
	SourceVoltageRange = scpi.Control("source_voltage_range", ":SOUR:VOLT:RANG?", ":SOUR:VOLT:RANG %g",
		scpi.Validate(scpi.TruncatedRange, voltageBound), scpi.CastTo(scpi.Float))

	// SourceVoltageAutorange is the source voltage auto range function
	SourceVoltageAutorange = scpi.Control("source_voltage_autorange", ":SOUR:VOLT:RANG:AUTO?", ":SOUR:VOLT:RANG:AUTO %s",
		scpi.Validate(scpi.StrictDiscreteSet, onOff), scpi.MapValues())
)

// Sense
var (
	// CurrentCompliance is the current compliance, applied to both
	// the positive and negative sides
	CurrentCompliance = scpi.Control("current_compliance", ":SENS:CURR:PROT?", ":SENS:CURR:PROT %g",
		scpi.Validate(scpi.TruncatedRange, currentBound), scpi.CastTo(scpi.Float))

	// CurrentComplianceTripped is true if the current compliance has been reached
	CurrentComplianceTripped = scpi.Measurement("current_compliance_tripped", "SENS:CURR:PROT:TRIP?", scpi.CastTo(scpi.Bool))

	// Current is the measured current in Amps
	Current = scpi.Measurement("current", ":READ:CURR?", scpi.CastTo(scpi.Float))

	// CurrentRange is the current measurement range in Amps.
	// Auto-range is disabled when this is set.
	// Sent as :SENS:CURR:RANG, not the older driver's :SENS:CURR? / :CURR.
	CurrentRange = scpi.Control("current_range", ":SENS:CURR:RANG?", ":SENS:CURR:RANG %g",
		scpi.Validate(scpi.TruncatedRange, currentBound), scpi.CastTo(scpi.Float))

	// VoltageCompliance is the voltage compliance, applied to both
	// the positive and negative sides.
	// Sent as :SENS:VOLT:PROT; the older driver sent :SENS:CURR:PROT here.
	VoltageCompliance = scpi.Control("voltage_compliance", ":SENS:VOLT:PROT?", ":SENS:VOLT:PROT %g",
		scpi.Validate(scpi.TruncatedRange, voltageBound), scpi.CastTo(scpi.Float))

	// VoltageComplianceTripped is true if the voltage compliance has been reached.
	// Queried with SENS:VOLT:PROT:TRIP?; the older driver queried the current trip.
	VoltageComplianceTripped = scpi.Measurement("voltage_compliance_tripped", "SENS:VOLT:PROT:TRIP?", scpi.CastTo(scpi.Bool))

	// Voltage is the measured voltage in Volts
	Voltage = scpi.Measurement("voltage", ":READ:VOLT?", scpi.CastTo(scpi.Float))

	// OutputStatus is the output status, true when current may flow
	OutputStatus = scpi.Measurement("output_status", ":OUTP?", scpi.CastTo(scpi.Bool))
)

// B2961AProperties lists every property of the B2961A
var B2961AProperties = []scpi.Property{
	SourceMode, SourceFunction, SourceEnabled,
	SourceCurrent, SourceCurrentReading, SourceCurrentRange, SourceCurrentAutorange,
	SourceVoltage, SourceVoltageReading, SourceVoltageRange, SourceVoltageAutorange,
	CurrentCompliance, CurrentComplianceTripped, Current, CurrentRange,
	VoltageCompliance, VoltageComplianceTripped, Voltage,
	OutputStatus,
}

// B2961A is a Keysight B2961A low noise power source
type B2961A struct {
	*scpi.Instrument
}

// NewB2961A creates a new B2961A on adapter a.  The adapter is not owned;
// it is never closed by the driver.
//
// If a supports framing configuration, it is set up for ASCII, comma
// separated float32 transfers.  An error doing so is returned.
func NewB2961A(a scpi.Adapter, opts ...scpi.Option) (*B2961A, error) {
	inst := scpi.NewInstrument(a, B2961AName, opts...)
	if fc, ok := a.(scpi.FramingConfigurer); ok {
		if err := fc.Configure(B2961AFraming); err != nil {
			return nil, err
		}
	}
	return &B2961A{inst}, nil
}

// Enable enables the flow of current
func (b *B2961A) Enable() error {
	return b.Write(":OUTP 1")
}

// Disable disables the flow of current
func (b *B2961A) Disable() error {
	return b.Write(":OUTP 0")
}

// IsEnabled returns true if the output is enabled
func (b *B2961A) IsEnabled() (bool, error) {
	return b.Bool(OutputStatus)
}

// Shutdown disables the output, leaving the instrument safe
func (b *B2961A) Shutdown() error {
	return b.Disable()
}

// ApplyCurrent configures the instrument to source current.  A currentRange
// of zero selects auto ranging.  The voltage compliance is set last.
func (b *B2961A) ApplyCurrent(currentRange, complianceVoltage float64) error {
	if err := b.SetSourceMode("current"); err != nil {
		return err
	}
	if err := b.setRange(SourceCurrentRange, SourceCurrentAutorange, currentRange); err != nil {
		return err
	}
	return b.SetVoltageCompliance(complianceVoltage)
}

// ApplyVoltage configures the instrument to source voltage.  A voltageRange
// of zero selects auto ranging.  The current compliance is set last.
func (b *B2961A) ApplyVoltage(voltageRange, complianceCurrent float64) error {
	if err := b.SetSourceMode("voltage"); err != nil {
		return err
	}
	if err := b.setRange(SourceVoltageRange, SourceVoltageAutorange, voltageRange); err != nil {
		return err
	}
	return b.SetCurrentCompliance(complianceCurrent)
}

func (b *B2961A) setRange(rng, auto scpi.Property, v float64) error {
	if v == 0 {
		return b.Set(auto, true)
	}
	return b.Set(rng, v)
}
