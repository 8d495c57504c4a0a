package keysight

// SourceMode returns the source mode, "current" or "voltage"
func (b *B2961A) SourceMode() (string, error) { return b.String(SourceMode) }

// SetSourceMode sets the source mode, "current" or "voltage"
func (b *B2961A) SetSourceMode(mode string) error { return b.Set(SourceMode, mode) }

// SourceFunction returns the source function, "dc" or "pulse"
func (b *B2961A) SourceFunction() (string, error) { return b.String(SourceFunction) }

// SetSourceFunction sets the source function, "dc" or "pulse"
func (b *B2961A) SetSourceFunction(fcn string) error { return b.Set(SourceFunction, fcn) }

// SourceEnabled returns true if the source is enabled
func (b *B2961A) SourceEnabled() (bool, error) { return b.Bool(SourceEnabled) }

// SourceCurrent returns the immediate current output in Amps
func (b *B2961A) SourceCurrent() (float64, error) { return b.Float(SourceCurrent) }

// SetSourceCurrent sets the immediate current output in Amps, clamped to ±3 A
func (b *B2961A) SetSourceCurrent(amps float64) error { return b.Set(SourceCurrent, amps) }

// SourceCurrentReading returns a readback of the sourced current
func (b *B2961A) SourceCurrentReading() (float64, error) { return b.Float(SourceCurrentReading) }

// SourceCurrentRange returns the source current range in Amps
func (b *B2961A) SourceCurrentRange() (float64, error) { return b.Float(SourceCurrentRange) }

// SetSourceCurrentRange sets the source current range in Amps
func (b *B2961A) SetSourceCurrentRange(amps float64) error { return b.Set(SourceCurrentRange, amps) }

// SourceCurrentAutorange returns true if the source current is auto ranged
func (b *B2961A) SourceCurrentAutorange() (bool, error) { return b.Bool(SourceCurrentAutorange) }

// SetSourceCurrentAutorange turns source current auto ranging on or off
func (b *B2961A) SetSourceCurrentAutorange(on bool) error { return b.Set(SourceCurrentAutorange, on) }

// SourceVoltage returns the immediate voltage output in Volts
func (b *B2961A) SourceVoltage() (float64, error) { return b.Float(SourceVoltage) }

// SetSourceVoltage sets the immediate voltage output in Volts, clamped to ±21 V
func (b *B2961A) SetSourceVoltage(volts float64) error { return b.Set(SourceVoltage, volts) }

// SourceVoltageReading returns a readback of the sourced voltage
func (b *B2961A) SourceVoltageReading() (float64, error) { return b.Float(SourceVoltageReading) }

// SourceVoltageRange returns the source voltage range in Volts
func (b *B2961A) SourceVoltageRange() (float64, error) { return b.Float(SourceVoltageRange) }

// SetSourceVoltageRange sets the source voltage range in Volts
func (b *B2961A) SetSourceVoltageRange(volts float64) error { return b.Set(SourceVoltageRange, volts) }

// SourceVoltageAutorange returns true if the source voltage is auto ranged
func (b *B2961A) SourceVoltageAutorange() (bool, error) { return b.Bool(SourceVoltageAutorange) }

// SetSourceVoltageAutorange turns source voltage auto ranging on or off
func (b *B2961A) SetSourceVoltageAutorange(on bool) error { return b.Set(SourceVoltageAutorange, on) }

// CurrentCompliance returns the current compliance in Amps
func (b *B2961A) CurrentCompliance() (float64, error) { return b.Float(CurrentCompliance) }

// SetCurrentCompliance sets the current compliance in Amps
func (b *B2961A) SetCurrentCompliance(amps float64) error { return b.Set(CurrentCompliance, amps) }

// CurrentComplianceTripped returns true if the current compliance has been reached
func (b *B2961A) CurrentComplianceTripped() (bool, error) { return b.Bool(CurrentComplianceTripped) }

// Current measures the current in Amps
func (b *B2961A) Current() (float64, error) { return b.Float(Current) }

// CurrentRange returns the current measurement range in Amps
func (b *B2961A) CurrentRange() (float64, error) { return b.Float(CurrentRange) }

// SetCurrentRange sets the current measurement range in Amps
func (b *B2961A) SetCurrentRange(amps float64) error { return b.Set(CurrentRange, amps) }

// VoltageCompliance returns the voltage compliance in Volts
func (b *B2961A) VoltageCompliance() (float64, error) { return b.Float(VoltageCompliance) }

// SetVoltageCompliance sets the voltage compliance in Volts
func (b *B2961A) SetVoltageCompliance(volts float64) error { return b.Set(VoltageCompliance, volts) }

// VoltageComplianceTripped returns true if the voltage compliance has been reached
func (b *B2961A) VoltageComplianceTripped() (bool, error) { return b.Bool(VoltageComplianceTripped) }

// Voltage measures the voltage in Volts
func (b *B2961A) Voltage() (float64, error) { return b.Float(Voltage) }
