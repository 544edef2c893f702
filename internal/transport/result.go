// Package transport executes HTTP calls against the inference service and
// converts every transport failure into a typed, displayable outcome.
package transport

// FailureKind classifies a call that never produced an HTTP response.
type FailureKind int

const (
	// FailureNone marks a call that reached the server, whatever the status class.
	FailureNone FailureKind = iota
	// FailureConnection marks refused, reset or unresolvable connections.
	FailureConnection
	// FailureHTTP marks responses that violated the HTTP protocol.
	FailureHTTP
	// FailureRedirect marks redirect loops.
	FailureRedirect
	// FailureTimeout marks read timeouts.
	FailureTimeout
	// FailureRequest marks every other request failure.
	FailureRequest
)

// Code returns the negative sentinel status code reserved for the failure kind.
func (kind FailureKind) Code() int {
	return -int(kind)
}

// FailureKindFromCode maps a sentinel status code back to its failure kind.
// Non-negative codes map to FailureNone and unknown negative codes to FailureRequest.
func FailureKindFromCode(code int) FailureKind {
	switch {
	case code >= 0:
		return FailureNone
	case code < FailureRequest.Code():
		return FailureRequest
	default:
		return FailureKind(-code)
	}
}

// PayloadKind identifies which variant a Payload holds.
type PayloadKind int

const (
	PayloadAbsent PayloadKind = iota
	PayloadJSON
	PayloadText
)

// Payload is the decoded response body: JSON, raw text, or absent.
type Payload struct {
	kind  PayloadKind
	value any
	text  string
}

// NewJSONPayload wraps a decoded JSON value.
func NewJSONPayload(value any) Payload {
	return Payload{kind: PayloadJSON, value: value}
}

// NewTextPayload wraps a body that could not be decoded as JSON.
func NewTextPayload(text string) Payload {
	return Payload{kind: PayloadText, text: text}
}

// Kind reports the payload variant.
func (payload Payload) Kind() PayloadKind {
	return payload.kind
}

// IsAbsent reports whether no body was received.
func (payload Payload) IsAbsent() bool {
	return payload.kind == PayloadAbsent
}

// JSON returns the decoded JSON value.
func (payload Payload) JSON() (any, bool) {
	if payload.kind != PayloadJSON {
		return nil, false
	}
	return payload.value, true
}

// Object returns the payload as a JSON object when it is one.
func (payload Payload) Object() (map[string]any, bool) {
	value, isJSON := payload.JSON()
	if !isJSON {
		return nil, false
	}
	object, isObject := value.(map[string]any)
	return object, isObject
}

// Text returns the raw body of a non-JSON response.
func (payload Payload) Text() (string, bool) {
	if payload.kind != PayloadText {
		return "", false
	}
	return payload.text, true
}

// Result is the outcome of one HTTP call.
type Result struct {
	Payload    Payload
	StatusCode int
	Failure    FailureKind
}

func failedResult(kind FailureKind) Result {
	return Result{StatusCode: kind.Code(), Failure: kind}
}

// IsError reports whether the call failed before any response was received.
func (result Result) IsError() bool {
	return result.Failure != FailureNone
}

// Code returns the HTTP status code, or the negative sentinel of a transport failure.
func (result Result) Code() int {
	if result.IsError() {
		return result.Failure.Code()
	}
	return result.StatusCode
}

// ErrorMessage describes a transport failure, or returns an empty string.
func (result Result) ErrorMessage() string {
	if !result.IsError() {
		return ""
	}
	return TransportErrorMessage(result.Failure.Code())
}
