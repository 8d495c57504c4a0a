package smu

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"path"

	"github.com/nasa-jpl/golab-smu/generichttp"
	"github.com/nasa-jpl/golab-smu/server"
	"github.com/nasa-jpl/golab-smu/util"
)

var (
	errLimited = errors.New("requested value violates software limits, aborted")
)

// LimitMiddleware imposes software limits on float settings, tighter than
// what the instrument itself allows.  Limits are keyed by the last element
// of the route, e.g. "source-voltage".
//
// The range and compliance of /apply-current and /apply-voltage are held to
// the limits of the matching direct routes.  /raw is not inspected.
type LimitMiddleware struct {
	Limits map[string]util.Limiter
}

// applyLimits maps the apply routes to the limit keys of their range
// and compliance
var applyLimits = map[string][2]string{
	"apply-current": {"source-current-range", "voltage-compliance"},
	"apply-voltage": {"source-voltage-range", "current-compliance"},
}

// Check verifies that a POST to a limited route is within the limits
// and responds with StatusBadRequest if not, otherwise flows control
// to the next handler
func (l LimitMiddleware) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		route := path.Base(r.URL.Path)
		limiter, direct := l.Limits[route]
		keys, isApply := applyLimits[route]
		if !direct && !isApply {
			next.ServeHTTP(w, r)
			return
		}
		// downstream handlers need the body too
		bodyContent, err := ioutil.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		r.Body = ioutil.NopCloser(bytes.NewBuffer(bodyContent))
		var ok bool
		if isApply {
			ok, err = l.checkApply(bodyContent, keys)
		} else {
			f := server.FloatT{}
			err = json.Unmarshal(bodyContent, &f)
			ok = limiter.Check(f.F64)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !ok {
			http.Error(w, errLimited.Error(), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkApply checks an ApplyT body.  A zero range selects autoranging
// and is always allowed.
func (l LimitMiddleware) checkApply(body []byte, keys [2]string) (bool, error) {
	a := ApplyT{}
	if err := json.Unmarshal(body, &a); err != nil {
		return false, err
	}
	if lim, ok := l.Limits[keys[0]]; ok && a.Range != 0 && !lim.Check(a.Range) {
		return false, nil
	}
	if lim, ok := l.Limits[keys[1]]; ok && !lim.Check(a.Compliance) {
		return false, nil
	}
	return true, nil
}

// Inject places a GET /limits route on the table of the HTTPer
func (l LimitMiddleware) Inject(h generichttp.HTTPer) {
	h.RT()[route(http.MethodGet, "/limits")] = func(w http.ResponseWriter, r *http.Request) {
		server.EncodeJSON(w, l.Limits)
	}
}
