package servicelayer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind separates session failures from resource call failures.
type Kind string

const (
	// KindAuth covers configuration, login and logout failures.
	KindAuth Kind = "auth"
	// KindRequest covers failed resource calls.
	KindRequest Kind = "request"
)

// Error is the error type of every Client operation.
type Error struct {
	Kind    Kind
	Code    string // e.g. "SL-AUTH-4010"
	Message string
	Details string

	// Status is the HTTP status of the failed call, 0 when no response arrived.
	Status int
	// Payload is the response body of the failed call, verbatim.
	Payload []byte

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if detail := e.detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

func (e *Error) detail() string {
	if m := ServerMessage(e.Payload); m != "" {
		return m
	}
	return e.Details
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors with the same code, so errors.Is(err, ErrLoginRejected)
// holds for any rejected login.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details string) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of the error wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// withResponse returns a copy carrying the status and body of a failed call.
func (e *Error) withResponse(status int, payload []byte) *Error {
	c := *e
	c.Status = status
	c.Payload = payload
	return &c
}

// Result is the normalized failure document of a resource call.
type Result struct {
	Error   bool            `json:"error"`
	Message json.RawMessage `json:"message"`
}

// Result renders e as {"error": true, "message": ...}. The message is the
// server payload when one was received, the error text otherwise.
func (e *Error) Result() Result {
	if len(e.Payload) > 0 {
		if json.Valid(e.Payload) {
			return Result{Error: true, Message: json.RawMessage(e.Payload)}
		}
		return Result{Error: true, Message: quote(string(e.Payload))}
	}
	text := e.Details
	if text == "" {
		text = e.Message
	}
	return Result{Error: true, Message: quote(text)}
}

func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// ServerMessage extracts the human-readable message from a Service Layer
// error payload. Both the v1 shape
//
//	{"error": {"code": -304, "message": {"lang": "en-us", "value": "..."}}}
//
// and the v2 shape with a plain string message are understood. Payloads
// that are not JSON are returned as text; an empty string means no message.
func ServerMessage(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var body struct {
		Error struct {
			Message json.RawMessage `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return string(payload)
	}
	raw := body.Error.Message
	if len(raw) == 0 {
		return string(payload)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &v); err == nil && v.Value != "" {
		return v.Value
	}
	return string(raw)
}

var (
	// ErrInvalidConfig indicates the configuration cannot be used for a login.
	ErrInvalidConfig = &Error{Kind: KindAuth, Code: "SL-AUTH-4000", Message: "invalid session configuration"}

	// ErrLoginRejected indicates the server answered the login with an error status.
	ErrLoginRejected = &Error{Kind: KindAuth, Code: "SL-AUTH-4010", Message: "login rejected"}

	// ErrLoginResponse indicates a login response without a usable session.
	ErrLoginResponse = &Error{Kind: KindAuth, Code: "SL-AUTH-5020", Message: "malformed login response"}

	// ErrLoginFailed indicates the login call did not complete.
	ErrLoginFailed = &Error{Kind: KindAuth, Code: "SL-AUTH-5030", Message: "login failed"}

	// ErrLogoutFailed indicates the server did not acknowledge a logout.
	ErrLogoutFailed = &Error{Kind: KindAuth, Code: "SL-AUTH-5031", Message: "logout failed"}

	// ErrRequestEncode indicates the request body could not be encoded.
	ErrRequestEncode = &Error{Kind: KindRequest, Code: "SL-REQ-4000", Message: "cannot encode request body"}

	// ErrRequestInvalid indicates an unsupported method or resource path.
	ErrRequestInvalid = &Error{Kind: KindRequest, Code: "SL-REQ-4001", Message: "invalid request"}

	// ErrRequestRejected indicates a resource call answered with a non-2xx status.
	ErrRequestRejected = &Error{Kind: KindRequest, Code: "SL-REQ-4010", Message: "request rejected"}

	// ErrRequestFailed indicates a resource call did not complete.
	ErrRequestFailed = &Error{Kind: KindRequest, Code: "SL-REQ-5030", Message: "request failed"}
)

// IsAuthError reports whether err is a session failure.
func IsAuthError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuth
}

// IsRequestError reports whether err is a failed resource call.
func IsRequestError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRequest
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// ResultOf renders any error as a failure document.
func ResultOf(err error) Result {
	var e *Error
	if errors.As(err, &e) {
		return e.Result()
	}
	return Result{Error: true, Message: quote(err.Error())}
}
