// Package smu provides an HTTP interface to source-measure units and
// programmable power supplies.
//
// A device may implement any number of the interfaces in this package;
// NewHTTPSMU binds routes for each one it implements.
package smu

import (
	"encoding/json"
	"net/http"

	"github.com/nasa-jpl/golab-smu/generichttp"
	"github.com/nasa-jpl/golab-smu/server"
)

// Enabler turns the output on and off
type Enabler interface {
	Enable() error
	Disable() error
	IsEnabled() (bool, error)
}

// SourceModer selects what is sourced, e.g. "current" or "voltage"
type SourceModer interface {
	SourceMode() (string, error)
	SetSourceMode(string) error
}

// SourceFunctioner selects the source waveform, e.g. "dc" or "pulse"
type SourceFunctioner interface {
	SourceFunction() (string, error)
	SetSourceFunction(string) error
}

// CurrentSource sources current, in Amps
type CurrentSource interface {
	SourceCurrent() (float64, error)
	SetSourceCurrent(float64) error
}

// VoltageSource sources voltage, in Volts
type VoltageSource interface {
	SourceVoltage() (float64, error)
	SetSourceVoltage(float64) error
}

// SourceRanger has ranges for its sources
type SourceRanger interface {
	SourceCurrentRange() (float64, error)
	SetSourceCurrentRange(float64) error
	SourceCurrentAutorange() (bool, error)
	SetSourceCurrentAutorange(bool) error
	SourceVoltageRange() (float64, error)
	SetSourceVoltageRange(float64) error
	SourceVoltageAutorange() (bool, error)
	SetSourceVoltageAutorange(bool) error
}

// Compliancer limits the current and voltage the output may reach
type Compliancer interface {
	CurrentCompliance() (float64, error)
	SetCurrentCompliance(float64) error
	CurrentComplianceTripped() (bool, error)
	VoltageCompliance() (float64, error)
	SetVoltageCompliance(float64) error
	VoltageComplianceTripped() (bool, error)
}

// Meter measures the current and voltage at the output
type Meter interface {
	Current() (float64, error)
	Voltage() (float64, error)
}

// CurrentRanger has a current measurement range
type CurrentRanger interface {
	CurrentRange() (float64, error)
	SetCurrentRange(float64) error
}

// Applier configures a complete source in one call
type Applier interface {
	ApplyCurrent(rng, compliance float64) error
	ApplyVoltage(rng, compliance float64) error
}

// Shutdowner can be put into a safe state
type Shutdowner interface {
	Shutdown() error
}

// Identifier can identify itself
type Identifier interface {
	ID() (string, error)
}

// ErrorChecker has an error queue
type ErrorChecker interface {
	CheckErrors() ([]error, error)
}

// ApplyT is the body of an apply-current or apply-voltage request.
// A zero range selects autoranging.
type ApplyT struct {
	Range      float64 `json:"range"`
	Compliance float64 `json:"compliance"`
}

func route(method, path string) generichttp.MethodPath {
	return generichttp.MethodPath{Method: method, Path: path}
}

func getset(table generichttp.RouteTable, path string, get, set http.HandlerFunc) {
	table[route(http.MethodGet, path)] = get
	table[route(http.MethodPost, path)] = set
}

// HTTPEnable binds GET/POST /output
func HTTPEnable(e Enabler, table generichttp.RouteTable) {
	getset(table, "/output", generichttp.GetBool(e.IsEnabled), generichttp.SetBool(func(b bool) error {
		if b {
			return e.Enable()
		}
		return e.Disable()
	}))
}

// HTTPSourceMode binds GET/POST /source-mode
func HTTPSourceMode(s SourceModer, table generichttp.RouteTable) {
	getset(table, "/source-mode", generichttp.GetString(s.SourceMode), generichttp.SetString(s.SetSourceMode))
}

// HTTPSourceFunction binds GET/POST /source-function
func HTTPSourceFunction(s SourceFunctioner, table generichttp.RouteTable) {
	getset(table, "/source-function", generichttp.GetString(s.SourceFunction), generichttp.SetString(s.SetSourceFunction))
}

// HTTPCurrentSource binds GET/POST /source-current
func HTTPCurrentSource(s CurrentSource, table generichttp.RouteTable) {
	getset(table, "/source-current", generichttp.GetFloat(s.SourceCurrent), generichttp.SetFloat(s.SetSourceCurrent))
}

// HTTPVoltageSource binds GET/POST /source-voltage
func HTTPVoltageSource(s VoltageSource, table generichttp.RouteTable) {
	getset(table, "/source-voltage", generichttp.GetFloat(s.SourceVoltage), generichttp.SetFloat(s.SetSourceVoltage))
}

// HTTPSourceRange binds the source range and autorange routes
func HTTPSourceRange(s SourceRanger, table generichttp.RouteTable) {
	getset(table, "/source-current-range", generichttp.GetFloat(s.SourceCurrentRange), generichttp.SetFloat(s.SetSourceCurrentRange))
	getset(table, "/source-current-autorange", generichttp.GetBool(s.SourceCurrentAutorange), generichttp.SetBool(s.SetSourceCurrentAutorange))
	getset(table, "/source-voltage-range", generichttp.GetFloat(s.SourceVoltageRange), generichttp.SetFloat(s.SetSourceVoltageRange))
	getset(table, "/source-voltage-autorange", generichttp.GetBool(s.SourceVoltageAutorange), generichttp.SetBool(s.SetSourceVoltageAutorange))
}

// HTTPCompliance binds the compliance routes
func HTTPCompliance(c Compliancer, table generichttp.RouteTable) {
	getset(table, "/current-compliance", generichttp.GetFloat(c.CurrentCompliance), generichttp.SetFloat(c.SetCurrentCompliance))
	getset(table, "/voltage-compliance", generichttp.GetFloat(c.VoltageCompliance), generichttp.SetFloat(c.SetVoltageCompliance))
	table[route(http.MethodGet, "/current-compliance-tripped")] = generichttp.GetBool(c.CurrentComplianceTripped)
	table[route(http.MethodGet, "/voltage-compliance-tripped")] = generichttp.GetBool(c.VoltageComplianceTripped)
}

// HTTPMeter binds GET /current and GET /voltage
func HTTPMeter(m Meter, table generichttp.RouteTable) {
	table[route(http.MethodGet, "/current")] = generichttp.GetFloat(m.Current)
	table[route(http.MethodGet, "/voltage")] = generichttp.GetFloat(m.Voltage)
}

// HTTPCurrentRange binds GET/POST /current-range
func HTTPCurrentRange(c CurrentRanger, table generichttp.RouteTable) {
	getset(table, "/current-range", generichttp.GetFloat(c.CurrentRange), generichttp.SetFloat(c.SetCurrentRange))
}

// HTTPApply binds POST /apply-current and POST /apply-voltage
func HTTPApply(a Applier, table generichttp.RouteTable) {
	table[route(http.MethodPost, "/apply-current")] = apply(a.ApplyCurrent)
	table[route(http.MethodPost, "/apply-voltage")] = apply(a.ApplyVoltage)
}

func apply(fcn func(float64, float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := ApplyT{}
		err := json.NewDecoder(r.Body).Decode(&a)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = fcn(a.Range, a.Compliance); err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HTTPShutdown binds POST /shutdown
func HTTPShutdown(s Shutdowner, table generichttp.RouteTable) {
	table[route(http.MethodPost, "/shutdown")] = generichttp.Do(s.Shutdown)
}

// HTTPIdentify binds GET /id
func HTTPIdentify(i Identifier, table generichttp.RouteTable) {
	table[route(http.MethodGet, "/id")] = generichttp.GetString(i.ID)
}

// HTTPErrors binds GET /errors, which drains the error queue and
// responds with the errors as a list of strings
func HTTPErrors(e ErrorChecker, table generichttp.RouteTable) {
	table[route(http.MethodGet, "/errors")] = func(w http.ResponseWriter, r *http.Request) {
		errs, err := e.CheckErrors()
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		strs := make([]string, len(errs))
		for i, de := range errs {
			strs[i] = de.Error()
		}
		server.EncodeJSON(w, strs)
	}
}

// HTTPSMU wraps a source-measure unit in an HTTP interface
type HTTPSMU struct {
	// SMU is the wrapped device
	SMU interface{}

	// RouteTable maps routes to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPSMU returns a new HTTP wrapper with the route table pre-configured
// for every capability dev has
func NewHTTPSMU(dev interface{}) HTTPSMU {
	rt := generichttp.RouteTable{}
	if e, ok := dev.(Enabler); ok {
		HTTPEnable(e, rt)
	}
	if s, ok := dev.(SourceModer); ok {
		HTTPSourceMode(s, rt)
	}
	if s, ok := dev.(SourceFunctioner); ok {
		HTTPSourceFunction(s, rt)
	}
	if s, ok := dev.(CurrentSource); ok {
		HTTPCurrentSource(s, rt)
	}
	if s, ok := dev.(VoltageSource); ok {
		HTTPVoltageSource(s, rt)
	}
	if s, ok := dev.(SourceRanger); ok {
		HTTPSourceRange(s, rt)
	}
	if c, ok := dev.(Compliancer); ok {
		HTTPCompliance(c, rt)
	}
	if m, ok := dev.(Meter); ok {
		HTTPMeter(m, rt)
	}
	if c, ok := dev.(CurrentRanger); ok {
		HTTPCurrentRange(c, rt)
	}
	if a, ok := dev.(Applier); ok {
		HTTPApply(a, rt)
	}
	if s, ok := dev.(Shutdowner); ok {
		HTTPShutdown(s, rt)
	}
	if i, ok := dev.(Identifier); ok {
		HTTPIdentify(i, rt)
	}
	if e, ok := dev.(ErrorChecker); ok {
		HTTPErrors(e, rt)
	}
	return HTTPSMU{SMU: dev, RouteTable: rt}
}

// RT satisfies the generichttp.HTTPer interface
func (h HTTPSMU) RT() generichttp.RouteTable {
	return h.RouteTable
}
