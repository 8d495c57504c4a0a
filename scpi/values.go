package scpi

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/nasa-jpl/golab-smu/util"
)

// Values is the set of values a property accepts, either a RangeBound,
// a DiscreteMap or a DiscreteSet
type Values interface {
	fmt.Stringer
	isValues()
}

// RangeBound is a closed numeric interval
type RangeBound struct {
	Min, Max float64
}

func (RangeBound) isValues() {}

func (r RangeBound) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// DiscreteMap maps semantic values to the tokens the instrument uses for them
type DiscreteMap map[interface{}]string

func (DiscreteMap) isValues() {}

func (m DiscreteMap) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, fmt.Sprint(k))
	}
	sort.Strings(keys)
	return "{" + strings.Join(keys, ", ") + "}"
}

// token returns the wire token for v
func (m DiscreteMap) token(v interface{}) (string, bool) {
	if !isComparable(v) {
		return "", false
	}
	tok, ok := m[v]
	return tok, ok
}

// semantic returns the value whose token is tok.  SCPI is case insensitive.
func (m DiscreteMap) semantic(tok string) (interface{}, bool) {
	for k, v := range m {
		if strings.EqualFold(v, tok) {
			return k, true
		}
	}
	return nil, false
}

// DiscreteSet is a list of allowed values which are sent as-is
type DiscreteSet []interface{}

func (DiscreteSet) isValues() {}

func (s DiscreteSet) String() string {
	strs := make([]string, len(s))
	for i, v := range s {
		strs[i] = fmt.Sprint(v)
	}
	return "{" + strings.Join(strs, ", ") + "}"
}

func (s DiscreteSet) contains(v interface{}) bool {
	if !isComparable(v) {
		return false
	}
	for _, e := range s {
		if isComparable(e) && e == v {
			return true
		}
	}
	return false
}

func isComparable(v interface{}) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

// A Validator checks a proposed value against the allowed values and
// returns the value to send, or a *ValidationError
type Validator func(v interface{}, allowed Values) (interface{}, error)

// TruncatedRange clamps numeric values into a RangeBound.
// Out of range values are not an error; NaN and infinities are.
func TruncatedRange(v interface{}, allowed Values) (interface{}, error) {
	r, ok := allowed.(RangeBound)
	if !ok {
		return nil, fmt.Errorf("truncated range validator needs a RangeBound, got %T", allowed)
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &ValidationError{Value: v, Allowed: allowed}
	}
	return util.Clamp(f, r.Min, r.Max), nil
}

// StrictRange rejects numeric values outside a RangeBound
func StrictRange(v interface{}, allowed Values) (interface{}, error) {
	r, ok := allowed.(RangeBound)
	if !ok {
		return nil, fmt.Errorf("strict range validator needs a RangeBound, got %T", allowed)
	}
	f, ok := toFloat(v)
	if !ok || !(util.Limiter{Min: r.Min, Max: r.Max}).Check(f) {
		return nil, &ValidationError{Value: v, Allowed: allowed}
	}
	return f, nil
}

// StrictDiscreteSet rejects values which are not keys of a DiscreteMap
// or members of a DiscreteSet
func StrictDiscreteSet(v interface{}, allowed Values) (interface{}, error) {
	switch a := allowed.(type) {
	case DiscreteMap:
		if _, ok := a.token(v); ok {
			return v, nil
		}
	case DiscreteSet:
		if a.contains(v) {
			return v, nil
		}
	default:
		return nil, fmt.Errorf("strict discrete set validator needs a DiscreteMap or DiscreteSet, got %T", allowed)
	}
	return nil, &ValidationError{Value: v, Allowed: allowed}
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// A Cast converts a trimmed response to a typed value
type Cast func(string) (interface{}, error)

// Float parses a response as a float64
func Float(s string) (interface{}, error) {
	return strconv.ParseFloat(s, 64)
}

// Int parses a response as an int.  Responses in float notation,
// e.g. "+1.000000E+00", are accepted if they are integral.
func Int(s string) (interface{}, error) {
	i, err := strconv.Atoi(s)
	if err == nil {
		return i, nil
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || f != float64(int(f)) {
		return 0, err
	}
	return int(f), nil
}

// Bool parses a response as a bool.  "1"/"0", "ON"/"OFF" and
// numeric forms such as "+1" are understood.
func Bool(s string) (interface{}, error) {
	switch strings.ToUpper(s) {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err == nil {
		return b, nil
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil {
		return false, err
	}
	return f != 0, nil
}
