package soap

import (
	"errors"
	"fmt"
)

// ErrNoEndpoint is returned by Resolve when neither an override nor the WSDL
// supplies an endpoint URL.
var ErrNoEndpoint = errors.New("no endpoint: supply one via the WSDL or an override")

// InvalidNameError reports an operation name that is not a symbolic
// identifier. Operation names must look like verify_address, not arbitrary
// strings; this is an API contract, caught before any network activity.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid operation name %q: expected an identifier like verify_address", e.Name)
}

// UnknownOperationError reports an operation name absent from the WSDL's
// operation catalog.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q", e.Name)
}

// HTTPError reports a transport-level failure or a non-success HTTP status.
// It carries the original response body for inspection.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
	Body       []byte
	Cause      error
}

func (e *HTTPError) Error() string {
	msg := "http request to " + e.URL + " failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: %s", msg, e.Status)
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// DecodeError reports a malformed response that could not be decoded into a
// Response. No partial Response accompanies it.
type DecodeError struct {
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	msg := "decode response: " + e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// FaultError is a SOAP Fault returned by the server, in either the 1.1 or
// 1.2 element shape.
type FaultError struct {
	Code    string
	Message string
	Detail  string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("soap fault [%s]: %s", e.Code, e.Message)
}
