package carrier

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed carrier call. The resolver treats all kinds
// the same (degrade to mock/synthetic), but logs and tests distinguish them.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindTimeout     ErrorKind = "timeout"
	KindNotFound    ErrorKind = "not_found"
	KindBadResponse ErrorKind = "bad_response"
	KindCarrier     ErrorKind = "carrier"
	// KindRestricted covers carrier-reported geographic/eligibility
	// restrictions (USPS Web Tools is US-only).
	KindRestricted ErrorKind = "restricted"
)

// APIError is a failed live tracking call.
type APIError struct {
	Carrier string
	Kind    ErrorKind
	Msg     string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Carrier, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Carrier, e.Kind, e.Msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// KindOf returns the error's kind, or empty when err is not an *APIError.
func KindOf(err error) ErrorKind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
