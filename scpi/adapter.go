package scpi

// Adapter is the transport an instrument is driven through.
// Write sends one command, Query sends one command and returns the raw response.
// Transport errors are returned as-is and are never retried by this package.
type Adapter interface {
	Write(cmd string) error
	Query(cmd string) (string, error)
}

// FramingConfig describes how an adapter frames bulk value transfers
type FramingConfig struct {
	// Binary selects IEEE 488.2 binary blocks (true) or ASCII (false)
	Binary bool

	// Datatype is the element type of binary blocks, e.g. "float32"
	Datatype string

	// Converter is the single character numeric converter, e.g. "f"
	Converter string

	// Separator splits ASCII values
	Separator string
}

// FramingConfigurer is implemented by adapters whose transfer framing can be configured
type FramingConfigurer interface {
	Configure(FramingConfig) error
}

// ValuesQuerier is implemented by adapters which can decode a list of values
// from a response according to their framing
type ValuesQuerier interface {
	QueryValues(cmd string) ([]float64, error)
}
