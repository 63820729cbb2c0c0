// Package llm provides the wire representations of chat requests, streamed
// completion chunks and error bodies shared by the relay and its clients.
package llm

// ErrorResponse is the structured error body returned by the relay.
type ErrorResponse struct {
	Error string `json:"error"`
}
