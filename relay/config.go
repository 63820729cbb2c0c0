package relay

import "time"

const (
	// DefaultUpstreamURL is the chat completions endpoint of the AI gateway.
	DefaultUpstreamURL = "https://ai.gateway.lovable.dev/v1/chat/completions"

	// DefaultModel is the model requested from the gateway.
	DefaultModel = "google/gemini-2.5-flash"

	// DefaultUpstreamTimeout bounds a whole upstream exchange, streaming included.
	DefaultUpstreamTimeout = 5 * time.Minute

	// DefaultHeaderTimeout bounds the wait for upstream response headers.
	DefaultHeaderTimeout = 30 * time.Second
)

// Config is the relay server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// UpstreamURL is the full chat completions URL of the gateway.
	UpstreamURL string

	// Model is sent as the "model" field of every upstream request.
	Model string

	// APIKey is the bearer credential for the gateway. Requests are rejected
	// with a configuration error while it is empty.
	APIKey string

	UpstreamTimeout time.Duration
	HeaderTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.UpstreamURL == "" {
		c.UpstreamURL = DefaultUpstreamURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if c.HeaderTimeout <= 0 {
		c.HeaderTimeout = DefaultHeaderTimeout
	}
	return c
}
