package smu

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"
	"github.com/nasa-jpl/golab-smu/keysight"
	"github.com/nasa-jpl/golab-smu/scpi"
	"github.com/nasa-jpl/golab-smu/server"
	"github.com/nasa-jpl/golab-smu/util"
)

func setup(t *testing.T) (chi.Router, *scpi.Mock) {
	m := keysight.NewMockB2961AAdapter()
	b, err := keysight.NewB2961A(m)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHTTPSMU(b)
	lim := LimitMiddleware{Limits: map[string]util.Limiter{"source-voltage": {Min: -5, Max: 5}}}
	lim.Inject(h)
	r := chi.NewRouter()
	r.Use(lim.Check)
	h.RT().Bind(r)
	m.ClearLog()
	return r, m
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestB2961AHasEveryCapability(t *testing.T) {
	m := keysight.NewMockB2961AAdapter()
	b, _ := keysight.NewB2961A(m)
	h := NewHTTPSMU(b)
	for _, mp := range []string{
		"GET /output", "POST /output", "POST /source-mode", "POST /source-function",
		"POST /source-current", "POST /source-voltage", "POST /source-current-range",
		"POST /voltage-compliance", "GET /voltage-compliance-tripped", "GET /current",
		"GET /voltage", "POST /current-range", "POST /apply-current", "POST /shutdown",
		"GET /id", "GET /errors",
	} {
		found := false
		for _, e := range h.RT().Endpoints() {
			if e == mp {
				found = true
			}
		}
		if !found {
			t.Errorf("route %s not bound", mp)
		}
	}
}

func TestOutputRoundTrip(t *testing.T) {
	r, m := setup(t)
	if w := do(r, http.MethodPost, "/output", `{"bool":true}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	w := do(r, http.MethodGet, "/output", "")
	b := server.BoolT{}
	if err := json.NewDecoder(w.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	if !b.Bool {
		t.Error("expected output on")
	}
	if diff := cmp.Diff([]string{":OUTP 1"}, m.Written()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSourceModeRejected(t *testing.T) {
	r, m := setup(t)
	w := do(r, http.MethodPost, "/source-mode", `{"str":"power"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 got %d", w.Code)
	}
	if len(m.Written()) != 0 {
		t.Errorf("expected nothing written got %v", m.Written())
	}
}

func TestUnknownResponseIsBadGateway(t *testing.T) {
	r, m := setup(t)
	m.SetResponse(":SOUR:FUNC:MODE?", "RES")
	if w := do(r, http.MethodGet, "/source-mode", ""); w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 got %d", w.Code)
	}
}

func TestSoftwareLimit(t *testing.T) {
	r, m := setup(t)
	if w := do(r, http.MethodPost, "/source-voltage", `{"f64":10}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/source-voltage", `{"f64":2}`); w.Code != http.StatusOK {
		t.Errorf("expected 200 got %d", w.Code)
	}
	// unlimited routes still clamp in the driver
	if w := do(r, http.MethodPost, "/source-current", `{"f64":10}`); w.Code != http.StatusOK {
		t.Errorf("expected 200 got %d", w.Code)
	}
	want := []string{":SOUR:VOLT:LEV:IMM:AMPL 2", ":SOUR:CURR:LEV:IMM:AMPL 3"}
	if diff := cmp.Diff(want, m.Written()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLimitsRoute(t *testing.T) {
	r, _ := setup(t)
	w := do(r, http.MethodGet, "/limits", "")
	var got map[string]util.Limiter
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]util.Limiter{"source-voltage": {Min: -5, Max: 5}}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestApplyVoltage(t *testing.T) {
	r, m := setup(t)
	if w := do(r, http.MethodPost, "/apply-voltage", `{"range":0,"compliance":0.01}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	want := []string{":SOUR:FUNC:MODE VOLT", ":SOUR:VOLT:RANG:AUTO ON", ":SENS:CURR:PROT 0.01"}
	if diff := cmp.Diff(want, m.Written()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestErrorsRoute(t *testing.T) {
	r, m := setup(t)
	m.SetResponse("SYST:ERR?", `-222,"Data out of range"`)
	calls := 0
	// the mock answers the same entry forever, so the queue never drains
	w := do(r, http.MethodGet, "/errors", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for an undrainable queue got %d", w.Code)
	}
	for _, q := range m.Queried() {
		if q == "SYST:ERR?" {
			calls++
		}
	}
	if calls != 64 {
		t.Errorf("expected 64 reads of the queue got %d", calls)
	}

	m.SetResponse("SYST:ERR?", `+0,"No error"`)
	w = do(r, http.MethodGet, "/errors", "")
	var errs []string
	if err := json.NewDecoder(w.Body).Decode(&errs); err != nil {
		t.Fatal(err)
	}
	if len(errs) != 0 {
		t.Errorf("expected no errors got %v", errs)
	}
}

func TestShutdown(t *testing.T) {
	r, m := setup(t)
	if w := do(r, http.MethodPost, "/shutdown", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if diff := cmp.Diff([]string{":OUTP 0"}, m.Written()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestApplyHeldToLimits(t *testing.T) {
	m := keysight.NewMockB2961AAdapter()
	b, err := keysight.NewB2961A(m)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHTTPSMU(b)
	lim := LimitMiddleware{Limits: map[string]util.Limiter{
		"current-compliance":   {Min: 0, Max: 0.01},
		"source-voltage-range": {Min: 0, Max: 2},
	}}
	r := chi.NewRouter()
	r.Use(lim.Check)
	h.RT().Bind(r)
	m.ClearLog()

	if w := do(r, http.MethodPost, "/apply-voltage", `{"range":0,"compliance":0.5}`); w.Code != http.StatusBadRequest {
		t.Errorf("compliance over the limit: expected 400 got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/apply-voltage", `{"range":20,"compliance":0.001}`); w.Code != http.StatusBadRequest {
		t.Errorf("range over the limit: expected 400 got %d", w.Code)
	}
	if len(m.Written()) != 0 {
		t.Errorf("expected nothing written got %v", m.Written())
	}
	if w := do(r, http.MethodPost, "/apply-voltage", `{"range":0,"compliance":0.001}`); w.Code != http.StatusOK {
		t.Errorf("autorange within limits: expected 200 got %d", w.Code)
	}
	// no limits on the current side
	if w := do(r, http.MethodPost, "/apply-current", `{"range":1,"compliance":20}`); w.Code != http.StatusOK {
		t.Errorf("unlimited apply: expected 200 got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/apply-voltage", `{bad`); w.Code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400 got %d", w.Code)
	}
}
