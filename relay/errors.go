package relay

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed relay request.
type ErrorKind int

const (
	// KindConfiguration means the upstream credential is missing.
	KindConfiguration ErrorKind = iota + 1
	// KindRateLimited is an upstream 429.
	KindRateLimited
	// KindQuotaExhausted is an upstream 402.
	KindQuotaExhausted
	// KindUpstream is any other non-2xx upstream status.
	KindUpstream
	// KindNetworkOrParse covers transport failures and undecodable payloads.
	KindNetworkOrParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindRateLimited:
		return "rate limited"
	case KindQuotaExhausted:
		return "quota exhausted"
	case KindUpstream:
		return "upstream"
	case KindNetworkOrParse:
		return "network or parse"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a relay failure reported to the caller as a structured error body.
type Error struct {
	Kind ErrorKind

	// UpstreamStatus is the gateway status for upstream kinds.
	UpstreamStatus int

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("relay: %s: %v", e.Kind, e.Err)
	}
	if e.UpstreamStatus != 0 {
		return fmt.Sprintf("relay: %s: upstream returned %d", e.Kind, e.UpstreamStatus)
	}
	return fmt.Sprintf("relay: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status the relay responds with.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindQuotaExhausted:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing error text.
func (e *Error) Message() string {
	switch e.Kind {
	case KindConfiguration:
		return "AI service not configured"
	case KindRateLimited:
		return "Rate limit exceeded. Please try again in a moment."
	case KindQuotaExhausted:
		return "AI credits exhausted. Please add credits to continue."
	case KindUpstream:
		return "AI service error"
	}
	if e.Err != nil && e.Err.Error() != "" {
		return e.Err.Error()
	}
	return "Unknown error"
}

func classifyStatus(status int) *Error {
	switch status {
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, UpstreamStatus: status}
	case http.StatusPaymentRequired:
		return &Error{Kind: KindQuotaExhausted, UpstreamStatus: status}
	default:
		return &Error{Kind: KindUpstream, UpstreamStatus: status}
	}
}
