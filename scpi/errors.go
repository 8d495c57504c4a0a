package scpi

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError is returned when a value is not accepted by a property
type ValidationError struct {
	Property string
	Value    interface{}
	Allowed  Values
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: value %v (%T) not in %v", e.Property, e.Value, e.Value, e.Allowed)
}

// UnknownResponseError is returned when the instrument responds with a token
// that has no semantic value
type UnknownResponseError struct {
	Property string
	Response string
}

func (e *UnknownResponseError) Error() string {
	return fmt.Sprintf("%s: unknown response %q from instrument", e.Property, e.Response)
}

// NotSupportedError is returned when reading a write-only property,
// writing a read-only one, or using an operation the instrument was
// configured without
type NotSupportedError struct {
	Property string
	Op       string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s: %s not supported", e.Property, e.Op)
}

// DeviceError is an entry of the instrument's error queue
type DeviceError struct {
	Code    int
	Message string
}

// Error satisfies stdlib error interface
func (e *DeviceError) Error() string {
	msg := e.Message
	if msg == "" {
		if s, ok := StandardErrors[e.Code]; ok {
			msg = s
		} else {
			msg = "UNKNOWN ERROR CODE"
		}
	}
	return fmt.Sprintf("%d - %s", e.Code, msg)
}

// parseDeviceError parses a SYSTem:ERRor? response such as
// -113,"Undefined header".  A nil error is returned for code 0.
func parseDeviceError(resp string) (*DeviceError, error) {
	resp = strings.TrimSpace(resp)
	pieces := strings.SplitN(resp, ",", 2)
	code, err := strconv.Atoi(strings.TrimSpace(pieces[0]))
	if err != nil {
		return nil, fmt.Errorf("malformed error queue entry %q", resp)
	}
	if code == 0 {
		return nil, nil
	}
	de := &DeviceError{Code: code}
	if len(pieces) == 2 {
		de.Message = strings.Trim(strings.TrimSpace(pieces[1]), `"`)
	}
	return de, nil
}

var (
	// StandardErrors maps the error codes of IEEE 488.2 / SCPI to strings
	StandardErrors = map[int]string{
		-100: "COMMAND ERROR",
		-101: "INVALID CHARACTER",
		-102: "SYNTAX ERROR",
		-103: "INVALID SEPARATOR",
		-104: "DATA TYPE ERROR",
		-105: "GROUP EXECUTE TRIGGER NOT ALLOWED",
		-108: "PARAMETER NOT ALLOWED",
		-109: "MISSING PARAMETER",
		-110: "COMMAND HEADER ERROR",
		-113: "UNDEFINED HEADER (UNKNOWN COMMAND)",
		-115: "UNEXPECTED NUMBER OF PARAMETERS",
		-120: "NUMERIC DATA ERROR",
		-130: "SUFFIX ERROR",
		-131: "INVALID SUFFIX",
		-151: "INVALID STRING DATA",

		-220: "PARAMETER ERROR",
		-221: "SETTINGS CONFLICT",
		-222: "DATA OUT OF RANGE",
		-230: "DATA CORRUPT OR STALE",
		-231: "DATA QUESTIONABLE",
		-240: "HARDWARE ERROR",
		-241: "HARDWARE MISSING",

		-310: "SYSTEM ERROR",
		-311: "MEMORY ERROR",
		-313: "CALIBRATION MEMORY LOST",
		-314: "SAVE/RECALL MEMORY LOST",
		-315: "CONFIGURATION MEMORY LOST",
		-321: "OUT OF MEMORY",
		-330: "SELF-TEST FAILED",
		-350: "QUEUE OVERFLOW",
		-363: "INPUT BUFFER OVERRUN",

		-400: "QUERY ERROR",
		-410: "QUERY INTERRUPTED",
		-420: "QUERY UNTERMINATED",
	}
)
