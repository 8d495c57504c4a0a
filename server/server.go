// Package server contains the JSON payload types shared by the HTTP
// wrappers and misc server utilities.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"
	"sort"
)

// FloatT is a struct with a single F64 field.
// It is used to decode {"f64": value} request bodies.
type FloatT struct {
	F64 float64 `json:"f64"`
}

// BoolT is a struct with a single Bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single Str field
type StrT struct {
	Str string `json:"str"`
}

// IntT is a struct with a single Int field
type IntT struct {
	Int int `json:"int"`
}

// HumanPayload holds one value of a basic kind and knows how to
// encode itself as the matching single-field JSON object
type HumanPayload struct {
	// T is the kind of value held, one of types.Bool, types.Float64,
	// types.Int, or types.String
	T types.BasicKind

	Bool   bool
	Float  float64
	Int    int
	String string
}

// EncodeAndRespond writes the payload to w as JSON, e.g. {"f64": 1.5}
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var v interface{}
	switch hp.T {
	case types.Bool:
		v = BoolT{Bool: hp.Bool}
	case types.Float64:
		v = FloatT{F64: hp.Float}
	case types.Int:
		v = IntT{Int: hp.Int}
	case types.String:
		v = StrT{Str: hp.String}
	default:
		fstr := fmt.Sprintf("unsupported payload kind %v", hp.T)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
		return
	}
	EncodeJSON(w, v)
}

// EncodeJSON writes v to w as JSON with status 200
func EncodeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fstr := fmt.Sprintf("error encoding data to json %q", err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
	}
}

// ListRoutes returns a handler which responds with the sorted list of routes
func ListRoutes(routes []string) http.HandlerFunc {
	sorted := append([]string(nil), routes...)
	sort.Strings(sorted)
	return func(w http.ResponseWriter, r *http.Request) {
		EncodeJSON(w, sorted)
	}
}
