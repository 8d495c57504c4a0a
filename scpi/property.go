package scpi

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Property binds one instrument attribute to a query command, a write
// command template, or both.  Properties are immutable metadata; build them
// once with Control, Measurement or Setting and share them freely.
//
// Reading sends the query and converts the trimmed response: through the
// reverse value map when values are mapped, else through the cast, else the
// string is returned as-is.  Writing validates the value, maps it to its wire
// token when values are mapped, and formats it into the write template.
// Neither direction caches anything; every call is live I/O on the adapter.
type Property struct {
	name      string
	query     string
	write     string
	validator Validator
	values    Values
	mapValues bool
	cast      Cast
}

// PropertyOption configures a Property at construction
type PropertyOption func(*Property)

// Validate sets the validator and the values it checks against
func Validate(v Validator, values Values) PropertyOption {
	return func(p *Property) {
		p.validator = v
		p.values = values
	}
}

// WithValues sets the values without a validator,
// e.g. for a mapped measurement
func WithValues(values Values) PropertyOption {
	return func(p *Property) {
		p.values = values
	}
}

// MapValues translates semantic values to and from the tokens of a DiscreteMap
func MapValues() PropertyOption {
	return func(p *Property) {
		p.mapValues = true
	}
}

// CastTo sets the conversion applied to responses of unmapped properties
func CastTo(c Cast) PropertyOption {
	return func(p *Property) {
		p.cast = c
	}
}

// Control creates a read-write property.
// It panics if the command templates are malformed.
func Control(name, query, write string, opts ...PropertyOption) Property {
	if query == "" || write == "" {
		panic(fmt.Sprintf("scpi: control %s needs both a query and a write command", name))
	}
	return newProperty(name, query, write, opts)
}

// Measurement creates a read-only property.
// It panics if the query is malformed.
func Measurement(name, query string, opts ...PropertyOption) Property {
	if query == "" {
		panic(fmt.Sprintf("scpi: measurement %s needs a query command", name))
	}
	return newProperty(name, query, "", opts)
}

// Setting creates a write-only property.
// It panics if the write template is malformed.
func Setting(name, write string, opts ...PropertyOption) Property {
	if write == "" {
		panic(fmt.Sprintf("scpi: setting %s needs a write command", name))
	}
	return newProperty(name, "", write, opts)
}

func newProperty(name, query, write string, opts []PropertyOption) Property {
	p := Property{name: name, query: query, write: write}
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.check(); err != nil {
		panic(err)
	}
	return p
}

// check validates the templates and options
func (p Property) check() error {
	if n := countVerbs(p.query); n != 0 {
		return fmt.Errorf("scpi: %s query %q has %d formatting verbs, expected none", p.name, p.query, n)
	}
	if p.write != "" {
		if n := countVerbs(p.write); n != 1 {
			return fmt.Errorf("scpi: %s write %q has %d formatting verbs, expected one", p.name, p.write, n)
		}
	}
	if p.mapValues {
		if _, ok := p.values.(DiscreteMap); !ok {
			return fmt.Errorf("scpi: %s maps values but its values are %T, not DiscreteMap", p.name, p.values)
		}
	}
	if p.validator != nil && p.values == nil {
		return fmt.Errorf("scpi: %s has a validator but no values", p.name)
	}
	return nil
}

// countVerbs counts the formatting verbs in a template, %% excluded
func countVerbs(tmpl string) int {
	n := 0
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		if i+1 < len(tmpl) && tmpl[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

// Name returns the name of the property
func (p Property) Name() string { return p.name }

// QueryCommand returns the query command, "" if write-only
func (p Property) QueryCommand() string { return p.query }

// WriteCommand returns the write template, "" if read-only
func (p Property) WriteCommand() string { return p.write }

// Allowed returns the values the property accepts, nil if unrestricted
func (p Property) Allowed() Values { return p.values }

// Readable is true if the property has a query command
func (p Property) Readable() bool { return p.query != "" }

// Writable is true if the property has a write command
func (p Property) Writable() bool { return p.write != "" }

// Get queries the instrument and converts the response
func (p Property) Get(a Adapter) (interface{}, error) {
	if p.query == "" {
		return nil, &NotSupportedError{Property: p.name, Op: "read"}
	}
	resp, err := a.Query(p.query)
	if err != nil {
		return nil, err
	}
	return p.Parse(resp)
}

// Parse converts a raw response to the property's semantic value
func (p Property) Parse(resp string) (interface{}, error) {
	resp = strings.TrimSpace(resp)
	if p.mapValues {
		v, ok := p.values.(DiscreteMap).semantic(resp)
		if !ok {
			return nil, &UnknownResponseError{Property: p.name, Response: resp}
		}
		return v, nil
	}
	if p.cast != nil {
		v, err := p.cast(resp)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: parsing response %q", p.name, resp)
		}
		return v, nil
	}
	return resp, nil
}

// Set validates v and writes it to the instrument
func (p Property) Set(a Adapter, v interface{}) error {
	if p.write == "" {
		return &NotSupportedError{Property: p.name, Op: "write"}
	}
	cmd, err := p.Format(v)
	if err != nil {
		return err
	}
	return a.Write(cmd)
}

// Format validates v, maps it if values are mapped,
// and returns the write command that would be sent
func (p Property) Format(v interface{}) (string, error) {
	if p.write == "" {
		return "", &NotSupportedError{Property: p.name, Op: "write"}
	}
	var err error
	if p.validator != nil {
		v, err = p.validator(v, p.values)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Property = p.name
			}
			return "", err
		}
	}
	if p.mapValues {
		tok, ok := p.values.(DiscreteMap).token(v)
		if !ok {
			return "", &ValidationError{Property: p.name, Value: v, Allowed: p.values}
		}
		v = tok
	}
	return fmt.Sprintf(p.write, v), nil
}
