package llm

import "encoding/json"

// ChatRequest is the OpenAI-compatible chat completions request sent upstream.
// Messages are kept as raw JSON so caller turns reach the gateway verbatim.
type ChatRequest struct {
	Model    string            `json:"model"`    // Model name (e.g., "google/gemini-2.5-flash")
	Messages []json.RawMessage `json:"messages"` // System turn followed by caller turns
	Stream   bool              `json:"stream"`   // Always true for the relay
}

// RelayRequest is the body a client posts to the relay.
type RelayRequest struct {
	Messages []Message `json:"messages"`
}
