package locker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/golab-smu/generichttp"
	"github.com/nasa-jpl/golab-smu/server"
)

type table generichttp.RouteTable

func (t table) RT() generichttp.RouteTable { return generichttp.RouteTable(t) }

func setup() (chi.Router, *Locker, *int) {
	calls := new(int)
	rt := table{
		{Method: http.MethodPost, Path: "/output"}: func(w http.ResponseWriter, r *http.Request) {
			*calls++
			w.WriteHeader(http.StatusOK)
		},
		{Method: http.MethodGet, Path: "/output"}: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}
	l := New()
	Inject(rt, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	rt.RT().Bind(r)
	return r, l, calls
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestLockedWritesAreRefused(t *testing.T) {
	r, _, calls := setup()
	if w := do(r, http.MethodPost, "/lock", `{"bool":true}`); w.Code != http.StatusOK {
		t.Fatalf("locking: expected 200 got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/output", `{"bool":true}`); w.Code != http.StatusLocked {
		t.Errorf("expected 423 got %d", w.Code)
	}
	if *calls != 0 {
		t.Errorf("handler reached %d times while locked", *calls)
	}
	if w := do(r, http.MethodGet, "/output", ""); w.Code != http.StatusOK {
		t.Errorf("expected reads to pass while locked, got %d", w.Code)
	}
	do(r, http.MethodPost, "/lock", `{"bool":false}`)
	if w := do(r, http.MethodPost, "/output", `{"bool":true}`); w.Code != http.StatusOK {
		t.Errorf("expected 200 after unlock got %d", w.Code)
	}
	if *calls != 1 {
		t.Errorf("expected one call got %d", *calls)
	}
}

func TestHTTPGetReportsState(t *testing.T) {
	r, l, _ := setup()
	l.Lock()
	w := do(r, http.MethodGet, "/lock", "")
	b := server.BoolT{}
	if err := json.NewDecoder(w.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	if !b.Bool {
		t.Error("expected locked")
	}
}
