package keysight

import "github.com/nasa-jpl/golab-smu/scpi"

// NewMockB2961AAdapter returns a scpi.Mock answering like a B2961A
// fresh out of *RST: voltage source, DC, output off, auto ranging
func NewMockB2961AAdapter() *scpi.Mock {
	m := scpi.NewMock()
	for q, r := range map[string]string{
		"*IDN?":                    "Keysight Technologies,B2961A,MOCK0000,0.0.0000",
		":SOUR:FUNC:MODE?":         "VOLT",
		":SOUR:FUNC?":              "DC",
		"OUTPUT?":                  "0",
		":OUTP?":                   "0",
		":SOUR:CURR:LEV:IMM:AMPL?": "+0.000000E+00",
		":SOUR:CURR:RANG?":         "+1.000000E-01",
		":SOUR:CURR:RANG:AUTO?":    "ON",
		":SOUR:VOLT:LEV:IMM:AMPL?": "+0.000000E+00",
		":SOUR:VOLT:RANG?":         "+2.000000E+00",
		":SOUR:VOLT:RANG:AUTO?":    "ON",
		"READ:SOUR?":               "+0.000000E+00",
		":SENS:CURR:PROT?":         "+1.000000E-04",
		"SENS:CURR:PROT:TRIP?":     "0",
		":READ:CURR?":              "+0.000000E+00",
		":SENS:CURR:RANG?":         "+1.000000E-04",
		":SENS:VOLT:PROT?":         "+2.000000E+00",
		"SENS:VOLT:PROT:TRIP?":     "0",
		":READ:VOLT?":              "+0.000000E+00",
	} {
		m.SetResponse(q, r)
	}
	return m
}
